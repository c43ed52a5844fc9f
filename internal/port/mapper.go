package port

// Mapper translates domain names to another nomenclature. Map returns the
// translated name and whether the input was actually known; implementations
// must return the input unchanged on a miss.
type Mapper interface {
	Map(name string) (string, bool)
}
