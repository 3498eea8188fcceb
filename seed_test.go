package sqlseed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func noop(context.Context, *QueryInterface) error { return nil }

func TestSeedsRegister(t *testing.T) {
	seeds := NewSeeds()
	require.NoError(t, seeds.Register(&Seed{Name: "002-b", Up: noop}))
	require.NoError(t, seeds.Register(&Seed{Name: "001-a", Up: noop, Down: noop}))

	require.Error(t, seeds.Register(&Seed{Name: "001-a", Up: noop}))
	require.Error(t, seeds.Register(&Seed{Up: noop}))
	require.Error(t, seeds.Register(&Seed{Name: "003-c"}))
	require.Error(t, seeds.Register(nil))

	list := seeds.List()
	require.Len(t, list, 2)
	require.Equal(t, "001-a", list[0].Name)
	require.Equal(t, "002-b", list[1].Name)
}

func TestSeedsMustRegisterPanics(t *testing.T) {
	seeds := NewSeeds()
	require.Panics(t, func() {
		seeds.MustRegister(&Seed{Name: "x", Up: noop}, &Seed{Name: "x", Up: noop})
	})
}

func TestSeedsSelect(t *testing.T) {
	seeds := NewSeeds()
	seeds.MustRegister(
		&Seed{Name: "001-a", Up: noop},
		&Seed{Name: "002-b", Up: noop},
		&Seed{Name: "003-c", Up: noop},
	)

	picked, err := seeds.Select("003-c", "001-a", "003-c")
	require.NoError(t, err)
	require.Len(t, picked, 2)
	require.Equal(t, "001-a", picked[0].Name)
	require.Equal(t, "003-c", picked[1].Name)

	_, err = seeds.Select("nope")
	require.ErrorIs(t, err, ErrUnknownSeed)
}

func TestSeedsMerge(t *testing.T) {
	base := DefaultSeeds()
	extra := NewSeeds()
	extra.MustRegister(&Seed{Name: "30000101000000-extra", Up: noop})

	require.NoError(t, base.Merge(extra))
	require.NoError(t, base.Merge(nil))
	require.Equal(t, 2, base.Len())
	require.Error(t, base.Merge(DefaultSeeds()))
}
