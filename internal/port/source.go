package port

// SequenceSource resolves protein identifiers to residue sequences, for
// outputs that slice annotated regions out of the original FASTA.
type SequenceSource interface {
	Sequence(id string) (string, bool)
}
