// Package jws decodes and verifies compact JSON Web Signatures as used by
// App Store Server Notifications V2.
package jws

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"iap-gateway/internal/models"
)

var segmentEncoding = base64.RawURLEncoding.Strict()

// Token is a structurally decoded compact JWS. It carries no trust on its own;
// pass it to a Verifier before relying on any claim.
type Token struct {
	header       models.Attributes
	claims       models.Attributes
	signature    []byte
	raw          string
	signingInput string
}

// Parse splits a compact token into header, claims and signature.
func Parse(token string) (*Token, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, malformed("token", fmt.Errorf("expected 3 segments, got %d", len(parts)))
	}

	header, err := decodeObjectSegment(parts[0])
	if err != nil {
		return nil, malformed("header", err)
	}
	claims, err := decodeObjectSegment(parts[1])
	if err != nil {
		return nil, malformed("claims", err)
	}
	signature, err := decodeSegment(parts[2])
	if err != nil {
		return nil, malformed("signature", err)
	}
	if len(signature) == 0 {
		return nil, malformed("signature", errors.New("empty signature"))
	}

	return &Token{
		header:       header,
		claims:       claims,
		signature:    signature,
		raw:          token,
		signingInput: parts[0] + "." + parts[1],
	}, nil
}

// Encode is the inverse of Parse: it serialises header and claims as JSON and
// joins the three base64url segments.
func Encode(header, claims map[string]any, signature []byte) (string, error) {
	h, err := encodeObjectSegment(header)
	if err != nil {
		return "", fmt.Errorf("encode header: %w", err)
	}
	c, err := encodeObjectSegment(claims)
	if err != nil {
		return "", fmt.Errorf("encode claims: %w", err)
	}
	return h + "." + c + "." + segmentEncoding.EncodeToString(signature), nil
}

// Header returns a copy of the protected header.
func (t *Token) Header() map[string]any {
	return t.header.Clone()
}

// Claims returns a copy of the claims.
func (t *Token) Claims() map[string]any {
	return t.claims.Clone()
}

// Attributes exposes the claims through typed accessors without copying.
// Callers must not modify the returned map.
func (t *Token) Attributes() models.Attributes {
	return t.claims
}

// HeaderAttributes is the header counterpart of Attributes.
func (t *Token) HeaderAttributes() models.Attributes {
	return t.header
}

func (t *Token) Signature() []byte {
	out := make([]byte, len(t.signature))
	copy(out, t.signature)
	return out
}

func (t *Token) Raw() string {
	return t.raw
}

// SigningInput is the first two segments exactly as received.
func (t *Token) SigningInput() string {
	return t.signingInput
}

// Algorithm returns the header "alg" value, or "" when absent.
func (t *Token) Algorithm() string {
	alg, _ := t.header.String("alg")
	return alg
}

// Claim returns a single claim value.
func (t *Token) Claim(name string) (any, bool) {
	v, ok := t.claims[name]
	return v, ok
}

func (t *Token) String() string {
	return t.raw
}

func decodeSegment(segment string) ([]byte, error) {
	if strings.ContainsAny(segment, "+/") {
		return nil, errors.New("segment is not base64url")
	}
	return segmentEncoding.DecodeString(strings.TrimRight(segment, "="))
}

func decodeObjectSegment(segment string) (models.Attributes, error) {
	data, err := decodeSegment(segment)
	if err != nil {
		return nil, err
	}
	return models.DecodeAttributes(data)
}

func encodeObjectSegment(obj map[string]any) (string, error) {
	if obj == nil {
		obj = map[string]any{}
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	return segmentEncoding.EncodeToString(data), nil
}
