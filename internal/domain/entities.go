package domain

// UnannotatedID marks regions of a protein not covered by any accepted domain.
const UnannotatedID = "UNN"

// Hit is one row of an HMMER domain-table (--domtblout). Coordinates are
// 1-based inclusive: HMM coordinates are on the profile, alignment and
// envelope coordinates are on the protein sequence.
type Hit struct {
	Protein    string // annotated sequence (domtbl target under the hmmsearch layout)
	ProteinAcc string
	ProteinLen int    // tlen
	Domain     string // HMM profile name
	DomainAcc  string
	HMMLen     int // qlen

	SeqEvalue float64 // full-sequence E-value
	SeqScore  float64
	SeqBias   float64

	DomIndex int // "#" column, index of this domain within the sequence
	DomTotal int // "of" column

	CEvalue float64
	IEvalue float64
	Score   float64
	Bias    float64

	HMMFrom, HMMTo int
	AliFrom, AliTo int
	EnvFrom, EnvTo int

	Acc         float64 // mean posterior probability of aligned residues
	Description string

	// Derived at parse time.
	HMMCov    float64 // aligned HMM span / profile length
	DomainCov float64 // alignment span / envelope span

	// Set by the identifier mapper when mapping is enabled.
	FID string
}

// EnvLen is the envelope span length in residues.
func (h Hit) EnvLen() int { return h.EnvTo - h.EnvFrom + 1 }

// Annotation is one accepted, non-redundant domain call on a protein.
type Annotation struct {
	Protein   string
	Domain    string
	FID       string
	Start     int // envelope coordinates on the protein
	End       int
	IEvalue   float64
	HMMCov    float64
	DomainCov float64
	Hit       *Hit // source hit the call was derived from
}

func (a Annotation) Length() int { return a.End - a.Start + 1 }

// Segment is an unannotated run of residues, reported alongside domain calls.
type Segment struct {
	Start int
	End   int
}

func (s Segment) Length() int { return s.End - s.Start + 1 }

// ProteinAnnotation aggregates the resolved calls for one protein: accepted
// domains ordered by start coordinate plus the unannotated segments between
// and around them.
type ProteinAnnotation struct {
	Protein     string
	Length      int
	Domains     []Annotation
	Unannotated []Segment
}

// Group collects the raw hits sharing one protein, in input order.
type Group struct {
	Protein string
	Length  int
	Hits    []Hit
}

// Chunk is a batch of protein groups dispatched to one worker. Index is the
// chunk's position in first-seen input order and fixes the merge order.
type Chunk struct {
	Index  int
	Groups []Group
}

// RowKind distinguishes output rows so sinks can format metrics accordingly.
type RowKind int

const (
	RowDomain RowKind = iota // an accepted domain call
	RowGap                   // an unannotated segment between calls
	RowNoHit                 // a protein with no surviving hits at all
)

// Row is one flattened output record, shared by the TSV and SQL sinks.
type Row struct {
	Protein   string
	FID       string
	Domain    string
	Start     int
	End       int
	IEvalue   float64
	HMMCov    float64
	DomainCov float64
	Kind      RowKind
}

// Rows flattens the annotation into output order: domain calls interleaved
// with unannotated segments by ascending start coordinate. A protein without
// any call yields a single full-length row of kind RowNoHit.
func (pa ProteinAnnotation) Rows() []Row {
	if len(pa.Domains) == 0 {
		if len(pa.Unannotated) == 0 {
			return nil
		}
		seg := pa.Unannotated[0]
		return []Row{{
			Protein: pa.Protein,
			FID:     UnannotatedID,
			Domain:  UnannotatedID,
			Start:   seg.Start,
			End:     seg.End,
			Kind:    RowNoHit,
		}}
	}

	rows := make([]Row, 0, len(pa.Domains)+len(pa.Unannotated))
	d, u := 0, 0
	for d < len(pa.Domains) || u < len(pa.Unannotated) {
		if u >= len(pa.Unannotated) || (d < len(pa.Domains) && pa.Domains[d].Start <= pa.Unannotated[u].Start) {
			a := pa.Domains[d]
			rows = append(rows, Row{
				Protein:   a.Protein,
				FID:       a.FID,
				Domain:    a.Domain,
				Start:     a.Start,
				End:       a.End,
				IEvalue:   a.IEvalue,
				HMMCov:    a.HMMCov,
				DomainCov: a.DomainCov,
				Kind:      RowDomain,
			})
			d++
			continue
		}
		seg := pa.Unannotated[u]
		rows = append(rows, Row{
			Protein: pa.Protein,
			FID:     UnannotatedID,
			Domain:  UnannotatedID,
			Start:   seg.Start,
			End:     seg.End,
			Kind:    RowGap,
		})
		u++
	}
	return rows
}

// Result is the merged outcome of one annotation run over a single input.
type Result struct {
	Proteins []ProteinAnnotation
	Failed   []ChunkError
	Unmapped int
}

// DomainCount returns the number of accepted domain calls across all proteins.
func (r *Result) DomainCount() int {
	n := 0
	for _, pa := range r.Proteins {
		n += len(pa.Domains)
	}
	return n
}

// UnannotatedCount returns the number of reported unannotated segments.
func (r *Result) UnannotatedCount() int {
	n := 0
	for _, pa := range r.Proteins {
		n += len(pa.Unannotated)
	}
	return n
}

// Summary aggregates run counters across inputs for the final report.
type Summary struct {
	Inputs       int
	Proteins     int
	Domains      int
	Unannotated  int
	LinesRead    int
	LinesSkipped int
	ChunksFailed int
	Unmapped     int
	SinksWritten int
	SinksFailed  int
}

// Partial reports whether the run completed but with recovered failures.
func (s Summary) Partial() bool {
	return s.LinesSkipped > 0 || s.ChunksFailed > 0 || s.SinksFailed > 0
}
