package crypto

import (
	"encoding/base64"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestNewSignerDerivesAddress(t *testing.T) {
	s, err := NewSigner(testKeyHex)
	require.NoError(t, err)

	assert.True(t, len(s.Address()) > 4)
	assert.Equal(t, "eth|", s.Address()[:4])
	assert.NotEmpty(t, s.PublicKey())

	_, err = NewSigner("not-hex")
	assert.Error(t, err)
}

func TestCanonicalJSONSortsKeysRecursively(t *testing.T) {
	payload := map[string]any{
		"zeta": 1,
		"alpha": map[string]any{
			"b": "2",
			"a": []any{map[string]any{"y": 1, "x": 2}},
		},
		"signature": "should-be-dropped",
	}

	got, err := canonicalJSON(payload)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":{"a":[{"x":2,"y":1}],"b":"2"},"zeta":1}`, string(got))
}

func TestSignPayloadRoundTrip(t *testing.T) {
	s, err := NewSigner(testKeyHex)
	require.NoError(t, err)

	payload := map[string]any{
		"tokenIn":  "GALA|Unit|none|none",
		"tokenOut": "GUSDC|Unit|none|none",
		"amountIn": "100",
		"fee":      10000,
	}

	signed, err := s.SignPayload(payload)
	require.NoError(t, err)

	// Original payload is not mutated.
	_, present := payload["signature"]
	assert.False(t, present)

	sigB64, ok := signed["signature"].(string)
	require.True(t, ok)
	assert.Equal(t, s.PublicKey(), signed["signerPublicKey"])

	// Recover the public key from the signature and confirm it matches.
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	require.NoError(t, err)
	require.Len(t, sig, 65)

	recoverable := make([]byte, 65)
	copy(recoverable, sig)
	if recoverable[64] >= 27 {
		recoverable[64] -= 27
	}

	canonical, err := canonicalJSON(payload)
	require.NoError(t, err)
	digest := ethcrypto.Keccak256(canonical)

	pub, err := ethcrypto.SigToPub(digest, recoverable)
	require.NoError(t, err)
	assert.Equal(t, s.PublicKey(), base64.StdEncoding.EncodeToString(ethcrypto.CompressPubkey(pub)))
}

func TestSignPayloadDeterministicDigest(t *testing.T) {
	// Two payloads with the same content in different key orders must
	// canonicalise identically.
	a := map[string]any{"x": 1, "y": "2"}
	b := map[string]any{"y": "2", "x": 1}

	ca, err := canonicalJSON(a)
	require.NoError(t, err)
	cb, err := canonicalJSON(b)
	require.NoError(t, err)
	assert.Equal(t, ca, cb)
}
