package ident

import "fmt"

// Generator produces globally unique event ids. Ids are assigned at publish
// time so clients can never spoof them and consumers can dedup on them.
type Generator interface {
	Generate() (string, error)
}

// New returns a generator for the configured scheme.
func New(scheme string) (Generator, error) {
	switch scheme {
	case "", "uuid":
		return NewUUIDGenerator(), nil
	case "ksuid":
		return NewKSUIDGenerator(), nil
	case "ulid":
		return NewULIDGenerator(), nil
	case "nanoid":
		return NewNanoIDGenerator(DefaultNanoIDSize, DefaultNanoIDAlphabet)
	default:
		return nil, fmt.Errorf("unknown id scheme: %s", scheme)
	}
}
