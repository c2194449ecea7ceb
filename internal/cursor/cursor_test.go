package cursor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webhookhub/webhookhub/internal/cursor"
)

func TestBase62Encode(t *testing.T) {
	t.Run("encodes string to base62", func(t *testing.T) {
		// Verified against Go's big.Int.Text(62) which uses alphabet: 0-9a-zA-Z
		encoded := cursor.Base62Encode("the quick brown fox jumps over the lazy dog")
		assert.Equal(t, "b6QPtm6Z5XFM81QySyltRRVYvv0ELEGBENK9XUgI4iciqMTErk0ea0kd2n", encoded)
	})

	t.Run("round-trips through encode/decode", func(t *testing.T) {
		original := "the quick brown fox jumps over the lazy dog"
		encoded := cursor.Base62Encode(original)
		decoded, err := cursor.Base62Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, original, decoded)
	})

	t.Run("empty string returns empty", func(t *testing.T) {
		assert.Empty(t, cursor.Base62Encode(""))
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, cursor.Base62Encode("test"), cursor.Base62Encode("test"))
		assert.NotEqual(t, cursor.Base62Encode("test1"), cursor.Base62Encode("test2"))
	})
}

func TestBase62Decode(t *testing.T) {
	t.Run("empty string returns empty", func(t *testing.T) {
		decoded, err := cursor.Base62Decode("")
		require.NoError(t, err)
		assert.Empty(t, decoded)
	})

	t.Run("invalid base62 returns error", func(t *testing.T) {
		_, err := cursor.Base62Decode("!!!invalid!!!")
		require.ErrorIs(t, err, cursor.ErrInvalidCursor)
	})
}

func TestCodecRoundtrip(t *testing.T) {
	testCases := []struct {
		codec    cursor.Codec
		position string
	}{
		{cursor.Codec{Resource: "evt", Version: 1}, "simple"},
		{cursor.Codec{Resource: "dlv", Version: 1}, "1234567890_dlv_abc"},
		{cursor.Codec{Resource: "evt", Version: 99}, "max_version"},
		{cursor.Codec{Resource: "x", Version: 1}, "short_resource"},
		{cursor.Codec{Resource: "evt", Version: 1}, "position:with:colons"},
		{cursor.Codec{Resource: "evt", Version: 1}, "unicode-émoji-🎉"},
	}

	for _, tc := range testCases {
		t.Run(tc.codec.Resource+"_"+tc.position, func(t *testing.T) {
			encoded := tc.codec.Encode(tc.position)
			assert.NotContains(t, encoded, ":", "token must stay opaque")
			decoded, err := tc.codec.Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, tc.position, decoded)
		})
	}
}

func TestCodecDecode(t *testing.T) {
	events := cursor.Codec{Resource: "evt", Version: 1}

	t.Run("empty token decodes to empty position", func(t *testing.T) {
		position, err := events.Decode("")
		require.NoError(t, err)
		assert.Empty(t, position)
	})

	t.Run("wrong resource returns ErrInvalidCursor", func(t *testing.T) {
		deliveries := cursor.Codec{Resource: "dlv", Version: 1}
		_, err := deliveries.Decode(events.Encode("position"))
		require.ErrorIs(t, err, cursor.ErrInvalidCursor)
	})

	t.Run("wrong version returns ErrVersionMismatch", func(t *testing.T) {
		v2 := cursor.Codec{Resource: "evt", Version: 2}
		_, err := v2.Decode(events.Encode("position"))
		require.ErrorIs(t, err, cursor.ErrVersionMismatch)
		assert.Contains(t, err.Error(), "02")
	})

	t.Run("invalid base62 returns ErrInvalidCursor", func(t *testing.T) {
		_, err := events.Decode("!!!invalid!!!")
		require.ErrorIs(t, err, cursor.ErrInvalidCursor)
	})

	t.Run("unscoped garbage returns ErrInvalidCursor", func(t *testing.T) {
		_, err := events.Decode(cursor.Base62Encode("garbage"))
		require.ErrorIs(t, err, cursor.ErrInvalidCursor)
	})
}
