package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

type SigningAlgorithm interface {
	Sign(key string, content []byte, encoder Encoder) string
	Name() string
}

type Encoder interface {
	Encode([]byte) string
}

type HexEncoder struct{}

func (e HexEncoder) Encode(b []byte) string {
	return hex.EncodeToString(b)
}

type Base64Encoder struct{}

func (e Base64Encoder) Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

type HmacSHA256 struct{}

func (h HmacSHA256) Name() string {
	return "hmac-sha256"
}

func (h HmacSHA256) Sign(key string, content []byte, encoder Encoder) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(content)
	return encoder.Encode(mac.Sum(nil))
}

// Sign computes the hub signature for a payload: HMAC-SHA256 over the raw
// body, lowercase hex. The secret string itself is the key; its hex
// characters are used as ASCII bytes, never hex-decoded.
func Sign(secret string, body []byte) string {
	return HmacSHA256{}.Sign(secret, body, HexEncoder{})
}

// Verify recomputes the signature and compares it to the provided value in
// constant time. Case of the provided hex is ignored. An empty signature
// never verifies.
func Verify(secret string, body []byte, provided string) bool {
	if provided == "" {
		return false
	}
	expected := Sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(provided)))
}
