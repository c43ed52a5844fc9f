package hmmer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AndreLecona/Dotate/internal/domain"
)

// fieldParser extracts typed columns from a split line, remembering the
// first conversion failure instead of erroring at every call site.
type fieldParser struct {
	fields []string
	reason string
}

func (p *fieldParser) Int(i int, name string) int {
	v, err := strconv.Atoi(p.fields[i])
	if err != nil && p.reason == "" {
		p.reason = fmt.Sprintf("%s: non-numeric value %q", name, p.fields[i])
	}
	return v
}

func (p *fieldParser) Float(i int, name string) float64 {
	v, err := strconv.ParseFloat(p.fields[i], 64)
	if err != nil && p.reason == "" {
		p.reason = fmt.Sprintf("%s: non-numeric value %q", name, p.fields[i])
	}
	return v
}

// ParseLine converts one data line of a domain table into a Hit. The fixed
// columns are whitespace-separated; everything past the acc column is the
// free-text description. Malformed lines yield a *domain.ParseError.
func ParseLine(line string, lineno int, layout Layout) (domain.Hit, error) {
	fields := strings.Fields(line)
	if len(fields) < minFields {
		return domain.Hit{}, &domain.ParseError{
			Line:   lineno,
			Reason: fmt.Sprintf("expected at least %d fields, got %d", minFields, len(fields)),
		}
	}

	p := &fieldParser{fields: fields}

	targetName := fields[0]
	targetAcc := fields[1]
	targetLen := p.Int(2, "tlen")
	queryName := fields[3]
	queryAcc := fields[4]
	queryLen := p.Int(5, "qlen")

	h := domain.Hit{
		SeqEvalue: p.Float(6, "full-sequence E-value"),
		SeqScore:  p.Float(7, "full-sequence score"),
		SeqBias:   p.Float(8, "full-sequence bias"),
		DomIndex:  p.Int(9, "domain index"),
		DomTotal:  p.Int(10, "domain count"),
		CEvalue:   p.Float(11, "c-Evalue"),
		IEvalue:   p.Float(12, "i-Evalue"),
		Score:     p.Float(13, "domain score"),
		Bias:      p.Float(14, "domain bias"),
		HMMFrom:   p.Int(15, "hmm from"),
		HMMTo:     p.Int(16, "hmm to"),
		AliFrom:   p.Int(17, "ali from"),
		AliTo:     p.Int(18, "ali to"),
		EnvFrom:   p.Int(19, "env from"),
		EnvTo:     p.Int(20, "env to"),
		Acc:       p.Float(21, "acc"),
	}
	if len(fields) > minFields {
		h.Description = strings.Join(fields[minFields:], " ")
	}

	switch layout {
	case LayoutScan:
		h.Protein, h.ProteinAcc, h.ProteinLen = queryName, queryAcc, queryLen
		h.Domain, h.DomainAcc, h.HMMLen = targetName, targetAcc, targetLen
	default:
		h.Protein, h.ProteinAcc, h.ProteinLen = targetName, targetAcc, targetLen
		h.Domain, h.DomainAcc, h.HMMLen = queryName, queryAcc, queryLen
	}

	if p.reason == "" {
		p.reason = validate(h)
	}
	if p.reason != "" {
		return domain.Hit{}, &domain.ParseError{Line: lineno, Reason: p.reason}
	}

	h.HMMCov = float64(h.HMMTo-h.HMMFrom+1) / float64(h.HMMLen)
	h.DomainCov = float64(h.AliTo-h.AliFrom+1) / float64(h.EnvTo-h.EnvFrom+1)
	return h, nil
}

// validate checks the structural invariants a well-formed row satisfies.
func validate(h domain.Hit) string {
	switch {
	case h.ProteinLen <= 0:
		return fmt.Sprintf("non-positive protein length %d", h.ProteinLen)
	case h.HMMLen <= 0:
		return fmt.Sprintf("non-positive profile length %d", h.HMMLen)
	case h.IEvalue < 0:
		return fmt.Sprintf("negative i-Evalue %g", h.IEvalue)
	case h.HMMFrom <= 0 || h.AliFrom <= 0 || h.EnvFrom <= 0:
		return "non-positive coordinate"
	case h.HMMTo < h.HMMFrom:
		return fmt.Sprintf("inverted hmm coordinates %d-%d", h.HMMFrom, h.HMMTo)
	case h.AliTo < h.AliFrom:
		return fmt.Sprintf("inverted alignment coordinates %d-%d", h.AliFrom, h.AliTo)
	case h.EnvTo < h.EnvFrom:
		return fmt.Sprintf("inverted envelope coordinates %d-%d", h.EnvFrom, h.EnvTo)
	case h.AliFrom < h.EnvFrom || h.AliTo > h.EnvTo:
		return fmt.Sprintf("alignment %d-%d outside envelope %d-%d", h.AliFrom, h.AliTo, h.EnvFrom, h.EnvTo)
	case h.HMMTo-h.HMMFrom+1 > h.HMMLen:
		return fmt.Sprintf("hmm span %d-%d exceeds profile length %d", h.HMMFrom, h.HMMTo, h.HMMLen)
	}
	return ""
}
