// Package cursor provides opaque, versioned pagination cursors. A cursor is
// scoped to a resource so tokens from one list endpoint cannot be replayed
// against another.
package cursor

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var (
	// ErrInvalidCursor indicates the cursor is malformed or cannot be decoded.
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrVersionMismatch indicates the cursor was minted by a different codec version.
	ErrVersionMismatch = errors.New("cursor version mismatch")
)

// Codec mints and parses cursors for one resource. The wire format is
// {resource}v{version:02d}:{position}, base62 encoded so the token is
// URL-safe and opaque.
type Codec struct {
	Resource string
	Version  int
}

// Encode wraps a position value into an opaque cursor token.
func (c Codec) Encode(position string) string {
	raw := fmt.Sprintf("%sv%02d:%s", c.Resource, c.Version, position)
	return Base62Encode(raw)
}

// Decode unwraps a cursor token back into its position value. An empty token
// decodes to an empty position. Tokens minted for another resource return
// ErrInvalidCursor; tokens minted by another version of the same resource
// return ErrVersionMismatch.
func (c Codec) Decode(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	raw, err := Base62Decode(encoded)
	if err != nil {
		return "", err
	}

	prefix := fmt.Sprintf("%sv%02d:", c.Resource, c.Version)
	if !strings.HasPrefix(raw, prefix) {
		if strings.HasPrefix(raw, c.Resource+"v") {
			return "", fmt.Errorf("%w: expected version %02d", ErrVersionMismatch, c.Version)
		}
		return "", ErrInvalidCursor
	}

	return raw[len(prefix):], nil
}

// Base62Encode encodes a string to base62 (alphabet 0-9a-zA-Z).
func Base62Encode(s string) string {
	if s == "" {
		return ""
	}
	num := new(big.Int)
	num.SetBytes([]byte(s))
	return num.Text(62)
}

// Base62Decode decodes a base62 string.
func Base62Decode(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	num := new(big.Int)
	num, ok := num.SetString(s, 62)
	if !ok {
		return "", ErrInvalidCursor
	}
	return string(num.Bytes()), nil
}
