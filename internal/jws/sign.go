package jws

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"iap-gateway/internal/models"
)

// Sign produces a compact token over header and claims. The "alg" header is
// always set from method; "typ" defaults to JWT.
func Sign(header, claims map[string]any, method jwt.SigningMethod, key any) (string, error) {
	h := models.Attributes(header).Clone()
	if h == nil {
		h = map[string]any{}
	}
	h["alg"] = method.Alg()
	if _, ok := h["typ"]; !ok {
		h["typ"] = "JWT"
	}

	hs, err := encodeObjectSegment(h)
	if err != nil {
		return "", fmt.Errorf("encode header: %w", err)
	}
	cs, err := encodeObjectSegment(claims)
	if err != nil {
		return "", fmt.Errorf("encode claims: %w", err)
	}

	signingInput := hs + "." + cs
	sig, err := method.Sign(signingInput, key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signingInput + "." + segmentEncoding.EncodeToString(sig), nil
}
