package models

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/webhookhub/webhookhub/internal/idgen"
)

const MaxNameLength = 100

var (
	ErrMissingName = errors.New("validation failed: name is required")
	ErrNameTooLong = fmt.Errorf("validation failed: name exceeds %d characters", MaxNameLength)
)

// Source is an inbound webhook provider. HMACSecret is generated once at
// creation, returned exactly once, and never serialized afterwards.
type Source struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	HMACSecret string    `json:"-"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewSource(name string) (*Source, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	secret, err := GenerateSecret()
	if err != nil {
		return nil, err
	}
	return &Source{
		ID:         idgen.Source(),
		Name:       name,
		HMACSecret: secret,
		Active:     true,
		CreatedAt:  time.Now(),
	}, nil
}

func ValidateName(name string) error {
	if name == "" {
		return ErrMissingName
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// GenerateSecret returns 32 random bytes as 64 lowercase hex characters.
// The hex string itself is the HMAC key.
func GenerateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
