package payload

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := NewCodec("payload-signing-secret")
	grantID := uuid.New().String()

	for _, method := range []string{MethodQR, MethodURL} {
		t.Run(method, func(t *testing.T) {
			encoded, err := codec.Encode(grantID, method)
			require.NoError(t, err)
			assert.NotContains(t, encoded, grantID, "payload must be opaque")

			decoded, err := codec.Decode(encoded, method)
			require.NoError(t, err)
			assert.Equal(t, grantID, decoded)
		})
	}
}

func TestEncodeRejectsUnknownMethod(t *testing.T) {
	codec := NewCodec("payload-signing-secret")
	_, err := codec.Encode(uuid.New().String(), "carrier-pigeon")
	assert.Error(t, err)
}

func TestDecodeRejectsMethodMismatch(t *testing.T) {
	codec := NewCodec("payload-signing-secret")
	grantID := uuid.New().String()

	qrPayload, err := codec.Encode(grantID, MethodQR)
	require.NoError(t, err)

	_, err = codec.Decode(qrPayload, MethodURL)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestDecodeRejectsTampering(t *testing.T) {
	codec := NewCodec("payload-signing-secret")
	grantID := uuid.New().String()

	encoded, err := codec.Encode(grantID, MethodQR)
	require.NoError(t, err)

	// Flip a character in the encoded payload
	tampered := []byte(encoded)
	if tampered[10] == 'A' {
		tampered[10] = 'B'
	} else {
		tampered[10] = 'A'
	}
	_, err = codec.Decode(string(tampered), MethodQR)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestDecodeRejectsWrongSecret(t *testing.T) {
	grantID := uuid.New().String()

	encoded, err := NewCodec("secret-one").Encode(grantID, MethodURL)
	require.NoError(t, err)

	_, err = NewCodec("secret-two").Decode(encoded, MethodURL)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	codec := NewCodec("payload-signing-secret")

	for _, input := range []string{"", "!!!not-base64!!!", "YWJj", "YS5iLmMuZA"} {
		_, err := codec.Decode(input, MethodQR)
		assert.ErrorIs(t, err, ErrInvalidPayload, "input %q", input)
	}
}

func TestShareURL(t *testing.T) {
	codec := NewCodec("payload-signing-secret")
	grantID := uuid.New().String()

	link, err := codec.ShareURL("http://localhost:8080/", grantID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "http://localhost:8080/share/"))

	encoded := strings.TrimPrefix(link, "http://localhost:8080/share/")
	decoded, err := codec.Decode(encoded, MethodURL)
	require.NoError(t, err)
	assert.Equal(t, grantID, decoded)
}
