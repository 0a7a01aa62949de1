package illustrate

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default prompts tuned for person/portrait photos to produce editorial-style
// illustrations that hold up on e-ink displays (good contrast, clean lines).
const (
	personPrompt = "Transform this portrait photo into a high-quality professional graphic illustration. " +
		"Preserve the subject's identity, facial structure, proportions, and expression with high accuracy. " +
		"Style: modern editorial illustration, clean vector-like linework, smooth contours, " +
		"flat color blocks with minimal gradients, bold yet controlled color palette. " +
		"High contrast between subject and background, strong edge definition. " +
		"Optimize for print and e-ink displays: limited colors, clear shapes, no visual noise. " +
		"Soft, simple background or solid neutral backdrop. " +
		"No photorealism, no painterly textures, no blur, no heavy shading, no background clutter."

	genericPrompt = "Transform this image into a clean, professional graphic illustration. " +
		"Style: modern editorial illustration, crisp linework, flat color areas, " +
		"minimal gradients, simplified geometry. " +
		"High contrast, strong silhouettes, and clear visual hierarchy. " +
		"Optimize for print and e-ink displays: limited color palette, bold shapes, no noise. " +
		"No photorealism, no complex textures, no cluttered background."
)

// Prompts holds the prompt text used for conversions, optionally overridden
// from a YAML file.
type Prompts struct {
	Person  string `yaml:"person"`
	Generic string `yaml:"generic"`
}

// DefaultPrompts returns the built-in prompt set.
func DefaultPrompts() Prompts {
	return Prompts{Person: personPrompt, Generic: genericPrompt}
}

// LoadPrompts reads prompt overrides from a YAML file. Missing fields keep
// their defaults. An empty path returns the defaults.
func LoadPrompts(path string) (Prompts, error) {
	p := DefaultPrompts()
	if path == "" {
		return p, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read prompts file: %w", err)
	}
	var override Prompts
	if err := yaml.Unmarshal(b, &override); err != nil {
		return p, fmt.Errorf("parse prompts file: %w", err)
	}
	if override.Person != "" {
		p.Person = override.Person
	}
	if override.Generic != "" {
		p.Generic = override.Generic
	}
	return p, nil
}

// For returns the best prompt for the given image type.
func (p Prompts) For(isPerson bool) string {
	if isPerson {
		return p.Person
	}
	return p.Generic
}
