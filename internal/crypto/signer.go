package crypto

import (
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Signer produces GalaChain payload signatures. GalaChain authenticates DTOs
// by hashing a canonical JSON serialisation of the payload with keccak256 and
// signing the digest with secp256k1. The signature travels inside the payload
// as a base64 field alongside the signer's public key.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    string // "eth|<hex address without 0x>"
	publicKey  string // base64-encoded compressed public key
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key (with
// or without 0x prefix).
func NewSigner(privateKeyHex string) (*Signer, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}

	ethAddr := ethcrypto.PubkeyToAddress(pk.PublicKey)

	return &Signer{
		privateKey: pk,
		address:    "eth|" + strings.TrimPrefix(ethAddr.Hex(), "0x"),
		publicKey:  base64.StdEncoding.EncodeToString(ethcrypto.CompressPubkey(&pk.PublicKey)),
	}, nil
}

// Address returns the GalaChain wallet alias ("eth|<address>") derived from
// the signer's key.
func (s *Signer) Address() string { return s.address }

// PublicKey returns the base64-encoded compressed secp256k1 public key.
func (s *Signer) PublicKey() string { return s.publicKey }

// SignPayload canonicalises payload, signs its keccak256 digest, and returns
// a copy of the payload with "signature" and "signerPublicKey" fields set,
// ready for submission to the bundle endpoint.
//
// Canonical form: JSON with object keys sorted recursively and no
// insignificant whitespace, excluding any pre-existing "signature" field.
func (s *Signer) SignPayload(payload map[string]any) (map[string]any, error) {
	canonical, err := canonicalJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: canonicalising payload: %w", err)
	}

	digest := ethcrypto.Keccak256(canonical)

	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: signing: %w", err)
	}
	// The chain expects the recovery byte in {27,28}.
	if sig[64] < 27 {
		sig[64] += 27
	}

	signed := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		signed[k] = v
	}
	signed["signature"] = base64.StdEncoding.EncodeToString(sig)
	signed["signerPublicKey"] = s.publicKey

	return signed, nil
}

// canonicalJSON serialises v as compact JSON with all object keys sorted,
// dropping any top-level "signature" field.
func canonicalJSON(v map[string]any) ([]byte, error) {
	filtered := make(map[string]any, len(v))
	for k, val := range v {
		if k == "signature" {
			continue
		}
		filtered[k] = val
	}
	var sb strings.Builder
	if err := writeCanonical(&sb, filtered); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

func writeCanonical(sb *strings.Builder, v any) error {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			sb.Write(kb)
			sb.WriteByte(':')
			if err := writeCanonical(sb, t[k]); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
		return nil
	case []any:
		sb.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := writeCanonical(sb, e); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
		return nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		sb.Write(b)
		return nil
	}
}
