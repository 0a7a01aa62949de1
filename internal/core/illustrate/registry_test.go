package illustrate

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubProvider struct{ id string }

func (s stubProvider) ID() string       { return s.id }
func (s stubProvider) Configured() bool { return true }
func (s stubProvider) ToIllustration(ctx context.Context, img image.Image, opts Options) (image.Image, error) {
	return img, nil
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry(stubProvider{id: "deapi"}, stubProvider{id: "other"})

	p, err := r.Get("deapi")
	require.NoError(t, err)
	require.Equal(t, "deapi", p.ID())

	_, err = r.Get("missing")
	require.Error(t, err)

	require.ElementsMatch(t, []string{"deapi", "other"}, r.IDs())
}
