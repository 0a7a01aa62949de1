package illustrate

import (
	"context"
	"fmt"
	"image"
)

// Options tune a single photo-to-illustration conversion.
type Options struct {
	// Prompt overrides the default prompt when non-empty.
	Prompt string
	// IsPerson selects the portrait-optimized default prompt.
	IsPerson bool
	// GuidanceScale is the CFG scale for generation.
	GuidanceScale float64
}

// Provider converts a photo into a stylized illustration.
type Provider interface {
	// ID is the provider identifier used in settings (e.g. "deapi").
	ID() string
	// Configured reports whether the provider has the credentials it needs.
	Configured() bool
	// ToIllustration converts the photo. A nil error with a non-nil image is
	// the only success; any failure is surfaced as an error and the caller
	// falls back to the original photo.
	ToIllustration(ctx context.Context, img image.Image, opts Options) (image.Image, error)
}

// Registry maps provider ids to implementations. It is built once at
// startup and passed by reference to whoever needs lookup.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[p.ID()] = p
	}
	return &Registry{providers: m}
}

// Get returns the provider registered under id.
func (r *Registry) Get(id string) (Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("unknown illustration provider: %s", id)
	}
	return p, nil
}

// IDs lists the registered provider ids.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	return ids
}
