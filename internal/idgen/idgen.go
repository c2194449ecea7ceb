package idgen

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"text/template"

	"github.com/google/uuid"
)

const (
	defaultEventTemplate       = "evt_{{uuidv4}}"
	defaultDeliveryTemplate    = "dlv_{{uuidv4}}"
	defaultSourceTemplate      = "src_{{uuidv4}}"
	defaultDestinationTemplate = "dst_{{uuidv4}}"
	defaultRuleTemplate        = "rul_{{uuidv4}}"
)

var (
	eventGenerator       *IDGenerator
	deliveryGenerator    *IDGenerator
	sourceGenerator      *IDGenerator
	destinationGenerator *IDGenerator
	ruleGenerator        *IDGenerator
)

func init() {
	eventGenerator, _ = NewIDGenerator(defaultEventTemplate)
	deliveryGenerator, _ = NewIDGenerator(defaultDeliveryTemplate)
	sourceGenerator, _ = NewIDGenerator(defaultSourceTemplate)
	destinationGenerator, _ = NewIDGenerator(defaultDestinationTemplate)
	ruleGenerator, _ = NewIDGenerator(defaultRuleTemplate)
}

// IDGenerator generates IDs based on a template
type IDGenerator struct {
	template *template.Template
}

// NewIDGenerator creates a new ID generator with the given template string
func NewIDGenerator(templateStr string) (*IDGenerator, error) {
	if templateStr == "" {
		templateStr = "{{uuidv4}}"
	}

	// Create template with custom functions
	tmpl := template.New("id").Funcs(template.FuncMap{
		"uuidv4": func() string {
			return uuid.New().String()
		},
		"uuidv7": func() string {
			id, err := uuid.NewV7()
			if err != nil {
				// Fallback to v4 if v7 generation fails
				return uuid.New().String()
			}
			return id.String()
		},
		"nanoid": func() string {
			return generateNanoid(21) // default size of 21
		},
	})

	// Parse template
	parsed, err := tmpl.Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ID template: %w", err)
	}

	return &IDGenerator{template: parsed}, nil
}

// Generate generates a new ID using the template
func (g *IDGenerator) Generate() (string, error) {
	var buf bytes.Buffer
	if err := g.template.Execute(&buf, nil); err != nil {
		return "", fmt.Errorf("failed to generate ID: %w", err)
	}
	return buf.String(), nil
}

// generateNanoid generates a nanoid-like ID
// This is a simplified implementation inspired by nanoid
// Uses URL-safe base64 alphabet
func generateNanoid(size int) string {
	// URL-safe alphabet (A-Za-z0-9_-)
	const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	bytes := make([]byte, size)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to UUID if random generation fails
		return uuid.New().String()
	}

	// Map random bytes to alphabet
	result := make([]byte, size)
	for i := 0; i < size; i++ {
		result[i] = alphabet[int(bytes[i])%len(alphabet)]
	}

	return string(result)
}

// IDTemplateConfig contains ID generation templates for different entity types
type IDTemplateConfig struct {
	Event       string
	Delivery    string
	Source      string
	Destination string
	Rule        string
}

// Configure configures all ID generators based on the provided config.
// This should be called once at application startup before any concurrent usage.
func Configure(cfg IDTemplateConfig) error {
	for _, entry := range []struct {
		name     string
		template string
		target   **IDGenerator
	}{
		{"event", cfg.Event, &eventGenerator},
		{"delivery", cfg.Delivery, &deliveryGenerator},
		{"source", cfg.Source, &sourceGenerator},
		{"destination", cfg.Destination, &destinationGenerator},
		{"rule", cfg.Rule, &ruleGenerator},
	} {
		if entry.template == "" {
			continue
		}
		gen, err := NewIDGenerator(entry.template)
		if err != nil {
			return fmt.Errorf("failed to configure %s ID generator: %w", entry.name, err)
		}
		*entry.target = gen
	}

	return nil
}

// Event generates an event ID using the configured generator.
// Defaults to a prefixed UUID v4 if not configured via Configure().
func Event() string {
	return generate(eventGenerator)
}

// Delivery generates a delivery ID using the configured generator.
func Delivery() string {
	return generate(deliveryGenerator)
}

// Source generates a source ID using the configured generator.
func Source() string {
	return generate(sourceGenerator)
}

// Destination generates a destination ID using the configured generator.
func Destination() string {
	return generate(destinationGenerator)
}

// Rule generates a destination rule ID using the configured generator.
func Rule() string {
	return generate(ruleGenerator)
}

func generate(g *IDGenerator) string {
	id, err := g.Generate()
	if err != nil {
		// Fallback to UUID v4 on error
		return uuid.New().String()
	}

	return id
}
