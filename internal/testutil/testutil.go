// Package testutil builds signed App Store payloads and Google Play push
// bodies for tests.
package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	leafMarker         = asn1.ObjectIdentifier{1, 2, 840, 113635, 100, 6, 11, 1}
	intermediateMarker = asn1.ObjectIdentifier{1, 2, 840, 113635, 100, 6, 2, 1}
)

// CertificateChain is a throwaway root → intermediate → leaf chain shaped
// like the one Apple embeds in x5c headers.
type CertificateChain struct {
	Roots   *x509.CertPool
	RootPEM []byte
	LeafKey *ecdsa.PrivateKey
	X5C     []string
}

// NewCertificateChain generates a fresh chain valid for one day around now.
func NewCertificateChain(t testing.TB) *CertificateChain {
	t.Helper()

	rootKey := newKey(t)
	rootTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test Root CA G3", Organization: []string{"Test Inc."}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
	}
	rootDER := createCert(t, rootTmpl, rootTmpl, &rootKey.PublicKey, rootKey)
	root := parseCert(t, rootDER)

	interKey := newKey(t)
	interTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(2),
		Subject:               pkix.Name{CommonName: "Test WWDR CA G6"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		ExtraExtensions:       []pkix.Extension{{Id: intermediateMarker, Value: []byte{0x05, 0x00}}},
	}
	interDER := createCert(t, interTmpl, root, &interKey.PublicKey, rootKey)
	inter := parseCert(t, interDER)

	leafKey := newKey(t)
	leafTmpl := &x509.Certificate{
		SerialNumber:    big.NewInt(3),
		Subject:         pkix.Name{CommonName: "Test Store Signing"},
		NotBefore:       time.Now().Add(-time.Hour),
		NotAfter:        time.Now().Add(24 * time.Hour),
		KeyUsage:        x509.KeyUsageDigitalSignature,
		ExtraExtensions: []pkix.Extension{{Id: leafMarker, Value: []byte{0x05, 0x00}}},
	}
	leafDER := createCert(t, leafTmpl, inter, &leafKey.PublicKey, interKey)

	roots := x509.NewCertPool()
	roots.AddCert(root)

	return &CertificateChain{
		Roots:   roots,
		RootPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: rootDER}),
		LeafKey: leafKey,
		X5C: []string{
			base64.StdEncoding.EncodeToString(leafDER),
			base64.StdEncoding.EncodeToString(interDER),
			base64.StdEncoding.EncodeToString(rootDER),
		},
	}
}

// Sign returns an ES256 compact token carrying the chain in its x5c header.
func (c *CertificateChain) Sign(t testing.TB, claims map[string]any) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims(claims))
	token.Header["x5c"] = c.X5C
	signed, err := token.SignedString(c.LeafKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// SignedPayload builds a V2 notification token with nested transaction and
// renewal tokens. Nil claim maps leave the nested token out.
func (c *CertificateChain) SignedPayload(t testing.TB, notificationType, subtype, bundleID string, transaction, renewal map[string]any) string {
	t.Helper()

	data := map[string]any{
		"bundleId":    bundleID,
		"environment": "Sandbox",
	}
	if transaction != nil {
		data["signedTransactionInfo"] = c.Sign(t, transaction)
	}
	if renewal != nil {
		data["signedRenewalInfo"] = c.Sign(t, renewal)
	}

	claims := map[string]any{
		"notificationType": notificationType,
		"notificationUUID": "8f1c2c3e-2f1a-4c7b-9d65-4e4a0c1b2d3e",
		"version":          "2.0",
		"signedDate":       time.Now().UnixMilli(),
		"data":             data,
	}
	if subtype != "" {
		claims["subtype"] = subtype
	}
	return c.Sign(t, claims)
}

// SignHS256 signs claims with a shared secret.
func SignHS256(t testing.TB, claims map[string]any, secret []byte) string {
	t.Helper()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims)).SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// SignedPayloadBody wraps a token the way Apple posts it.
func SignedPayloadBody(t testing.TB, token string) []byte {
	t.Helper()
	return mustJSON(t, map[string]string{"signedPayload": token})
}

// GooglePushBody wraps a developer notification in a Pub/Sub push envelope.
func GooglePushBody(t testing.TB, notification map[string]any) []byte {
	t.Helper()

	data := base64.StdEncoding.EncodeToString(mustJSON(t, notification))
	return mustJSON(t, map[string]any{
		"message": map[string]any{
			"data":        data,
			"messageId":   "136969346945",
			"publishTime": "2024-01-01T00:00:00.000Z",
		},
		"subscription": "projects/test/subscriptions/play-rtdn",
	})
}

func mustJSON(t testing.TB, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func newKey(t testing.TB) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func createCert(t testing.TB, tmpl, parent *x509.Certificate, pub *ecdsa.PublicKey, signer *ecdsa.PrivateKey) []byte {
	t.Helper()
	der, err := x509.CreateCertificate(rand.Reader, tmpl, parent, pub, signer)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	return der
}

func parseCert(t testing.TB, der []byte) *x509.Certificate {
	t.Helper()
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}
	return cert
}
