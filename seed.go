package sqlseed

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrIrreversible is returned when reverting a seed that has no Down step.
	ErrIrreversible = errors.New("sqlseed: seed has no down step")
	// ErrUnknownSeed is returned when a seed name is not registered.
	ErrUnknownSeed = errors.New("sqlseed: unknown seed")
)

// SeedFunc applies or reverts a seed through the supplied query interface.
type SeedFunc func(ctx context.Context, qi *QueryInterface) error

// Seed is a named pair of apply/revert steps. Seeds run in Name order, so
// names usually carry a timestamp prefix.
type Seed struct {
	Name string
	Up   SeedFunc
	Down SeedFunc
}

// Seeds is a registry of seeds keyed by name.
type Seeds struct {
	byName map[string]*Seed
}

// NewSeeds creates an empty registry.
func NewSeeds() *Seeds {
	return &Seeds{byName: make(map[string]*Seed)}
}

// Register adds a seed.
func (s *Seeds) Register(seed *Seed) error {
	if err := validateSeeds([]*Seed{seed}); err != nil {
		return err
	}
	if _, ok := s.byName[seed.Name]; ok {
		return fmt.Errorf("duplicate seed %s", seed.Name)
	}
	s.byName[seed.Name] = seed
	return nil
}

// MustRegister is like Register but panics on error.
func (s *Seeds) MustRegister(seeds ...*Seed) {
	for _, seed := range seeds {
		if err := s.Register(seed); err != nil {
			panic(err)
		}
	}
}

// Merge registers every seed of other.
func (s *Seeds) Merge(other *Seeds) error {
	if other == nil {
		return nil
	}
	for _, seed := range other.List() {
		if err := s.Register(seed); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the seed registered under name.
func (s *Seeds) Lookup(name string) (*Seed, bool) {
	seed, ok := s.byName[name]
	return seed, ok
}

// Len reports the number of registered seeds.
func (s *Seeds) Len() int {
	return len(s.byName)
}

// List returns all seeds sorted by name.
func (s *Seeds) List() []*Seed {
	list := make([]*Seed, 0, len(s.byName))
	for _, seed := range s.byName {
		list = append(list, seed)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Select returns the named seeds sorted by name.
func (s *Seeds) Select(names ...string) ([]*Seed, error) {
	picked := NewSeeds()
	for _, name := range names {
		seed, ok := s.byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSeed, name)
		}
		if _, dup := picked.byName[name]; dup {
			continue
		}
		picked.byName[name] = seed
	}
	return picked.List(), nil
}
