package models

import (
	"errors"
	"net/url"
	"time"

	"github.com/webhookhub/webhookhub/internal/idgen"
)

var (
	ErrInvalidTargetURL = errors.New("validation failed: target_url must be an absolute http or https URL")
	ErrNoRules          = errors.New("validation failed: at least one rule is required")
	ErrInvalidRule      = errors.New("validation failed: rule requires source_name and event_type")
)

// Destination is an outbound webhook receiver. Deliveries fan out to a
// destination only through its rules.
type Destination struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	TargetURL string            `json:"target_url"`
	Active    bool              `json:"active"`
	CreatedAt time.Time         `json:"created_at"`
	Rules     []DestinationRule `json:"rules"`
}

// DestinationRule subscribes a destination to one (source, event type) pair.
// Matching is exact, no wildcards.
type DestinationRule struct {
	ID            string `json:"id"`
	DestinationID string `json:"destination_id"`
	SourceName    string `json:"source_name"`
	EventType     string `json:"event_type"`
}

// NewDestination builds a destination with its rules, assigning IDs. A
// destination cannot exist without at least one rule.
func NewDestination(name, targetURL string, rules []DestinationRule) (*Destination, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ValidateTargetURL(targetURL); err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, ErrNoRules
	}
	destination := &Destination{
		ID:        idgen.Destination(),
		Name:      name,
		TargetURL: targetURL,
		Active:    true,
		CreatedAt: time.Now(),
	}
	for _, rule := range rules {
		if rule.SourceName == "" || rule.EventType == "" {
			return nil, ErrInvalidRule
		}
		rule.ID = idgen.Rule()
		rule.DestinationID = destination.ID
		destination.Rules = append(destination.Rules, rule)
	}
	return destination, nil
}

func ValidateTargetURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidTargetURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidTargetURL
	}
	if parsed.Host == "" {
		return ErrInvalidTargetURL
	}
	return nil
}
