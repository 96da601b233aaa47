package jws

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// KeyResolver finds the key that should have signed a token.
type KeyResolver interface {
	ResolveKey(ctx context.Context, token *Token) (any, error)
}

// KeyResolverFunc adapts a function to KeyResolver.
type KeyResolverFunc func(ctx context.Context, token *Token) (any, error)

func (f KeyResolverFunc) ResolveKey(ctx context.Context, token *Token) (any, error) {
	return f(ctx, token)
}

// StaticKeyResolver always returns the configured key. Use it for HMAC
// secrets ([]byte) or a pinned public key.
type StaticKeyResolver struct {
	Key any
}

func (r StaticKeyResolver) ResolveKey(ctx context.Context, token *Token) (any, error) {
	if r.Key == nil {
		return nil, errors.New("no static key configured")
	}
	return r.Key, nil
}

var (
	// Apple marks the leaf and the WWDR intermediate of App Store signing
	// certificates with these extensions.
	oidAppStoreLeafMarker         = asn1.ObjectIdentifier{1, 2, 840, 113635, 100, 6, 11, 1}
	oidAppStoreIntermediateMarker = asn1.ObjectIdentifier{1, 2, 840, 113635, 100, 6, 2, 1}
)

// maxVerifiedChains bounds the verified-chain cache.
const maxVerifiedChains = 32

// CertificateChainResolver App Store 证书链解析器
// 从 JWS header 的 x5c 中解析证书链，验证到受信任根证书后返回叶子证书公钥。
// 只缓存已经验证通过的证书链，未验证的 x5c 不会进入缓存
type CertificateChainResolver struct {
	roots          *x509.CertPool
	requireMarkers bool
	now            func() time.Time

	verified map[[sha256.Size]byte]verifiedChain
	mutex    sync.RWMutex
}

type verifiedChain struct {
	key      *ecdsa.PublicKey
	notAfter time.Time
}

// ChainOption configures a CertificateChainResolver.
type ChainOption func(*CertificateChainResolver)

// WithMarkerOIDs toggles the Apple marker extension check
func WithMarkerOIDs(required bool) ChainOption {
	return func(r *CertificateChainResolver) {
		r.requireMarkers = required
	}
}

// WithChainClock sets the time used for certificate validity checks
func WithChainClock(now func() time.Time) ChainOption {
	return func(r *CertificateChainResolver) {
		r.now = now
	}
}

// NewCertificateChainResolver 创建证书链解析器，roots 为空时拒绝所有 token
func NewCertificateChainResolver(roots *x509.CertPool, opts ...ChainOption) *CertificateChainResolver {
	r := &CertificateChainResolver{
		roots:          roots,
		requireMarkers: true,
		now:            time.Now,
		verified:       make(map[[sha256.Size]byte]verifiedChain),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadRootsFromPEM 从 PEM 数据加载根证书
func LoadRootsFromPEM(data []byte) (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, errors.New("no certificates found in PEM data")
	}
	return pool, nil
}

// LoadRootsFromFile 从文件加载根证书，支持 PEM 和 DER（Apple 官网下载的 .cer 为 DER）
func LoadRootsFromFile(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read root certificate: %w", err)
	}
	if pool, err := LoadRootsFromPEM(data); err == nil {
		return pool, nil
	}

	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse root certificate: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AddCert(cert)
	return pool, nil
}

// ResolveKey 验证 x5c 证书链并返回叶子证书的 ECDSA 公钥
func (r *CertificateChainResolver) ResolveKey(ctx context.Context, token *Token) (any, error) {
	encoded, err := x5c(token)
	if err != nil {
		return nil, err
	}

	fingerprint := chainFingerprint(encoded)
	if key, ok := r.cached(fingerprint); ok {
		return key, nil
	}

	certChain := make([]*x509.Certificate, 0, len(encoded))
	for i, entry := range encoded {
		der, err := base64.StdEncoding.DecodeString(entry)
		if err != nil {
			return nil, fmt.Errorf("x5c entry %d is not base64: %w", i, err)
		}
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("x5c entry %d: %w", i, err)
		}
		certChain = append(certChain, cert)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := r.verifyCertificateChain(certChain); err != nil {
		return nil, fmt.Errorf("failed to verify certificate chain: %w", err)
	}

	publicKey, ok := certChain[0].PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("certificate does not contain ECDSA public key")
	}
	r.remember(fingerprint, verifiedChain{key: publicKey, notAfter: earliestExpiry(certChain)})
	return publicKey, nil
}

// x5c 读取 header 中的证书链
func x5c(token *Token) ([]string, error) {
	raw, ok := token.HeaderAttributes().Slice("x5c")
	if !ok || len(raw) == 0 {
		return nil, errors.New("missing x5c header")
	}

	chain := make([]string, 0, len(raw))
	for i, item := range raw {
		s, ok := item.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("x5c entry %d is not a string", i)
		}
		chain = append(chain, s)
	}
	return chain, nil
}

func chainFingerprint(encoded []string) [sha256.Size]byte {
	h := sha256.New()
	for _, entry := range encoded {
		h.Write([]byte(entry))
		h.Write([]byte{0})
	}
	var sum [sha256.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

func earliestExpiry(certChain []*x509.Certificate) time.Time {
	notAfter := certChain[0].NotAfter
	for _, cert := range certChain[1:] {
		if cert.NotAfter.Before(notAfter) {
			notAfter = cert.NotAfter
		}
	}
	return notAfter
}

// cached 返回仍在有效期内的已验证公钥
func (r *CertificateChainResolver) cached(fingerprint [sha256.Size]byte) (*ecdsa.PublicKey, bool) {
	r.mutex.RLock()
	entry, ok := r.verified[fingerprint]
	r.mutex.RUnlock()
	if !ok || !r.now().Before(entry.notAfter) {
		return nil, false
	}
	return entry.key, true
}

// remember 缓存已验证的证书链，超过上限时整体清空
func (r *CertificateChainResolver) remember(fingerprint [sha256.Size]byte, entry verifiedChain) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if len(r.verified) >= maxVerifiedChains {
		r.verified = make(map[[sha256.Size]byte]verifiedChain)
	}
	r.verified[fingerprint] = entry
}

// CachedChains 返回缓存中已验证证书链的数量
func (r *CertificateChainResolver) CachedChains() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.verified)
}

// verifyCertificateChain 验证证书链到受信任根证书
func (r *CertificateChainResolver) verifyCertificateChain(certChain []*x509.Certificate) error {
	if len(certChain) == 0 {
		return errors.New("empty certificate chain")
	}
	if r.roots == nil {
		return errors.New("no trusted root certificates configured")
	}

	intermediates := x509.NewCertPool()
	for _, cert := range certChain[1:] {
		intermediates.AddCert(cert)
	}

	leaf := certChain[0]
	if _, err := leaf.Verify(x509.VerifyOptions{
		Roots:         r.roots,
		Intermediates: intermediates,
		CurrentTime:   r.now(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}); err != nil {
		return err
	}

	if !r.requireMarkers {
		return nil
	}
	if !hasExtension(leaf, oidAppStoreLeafMarker) {
		return errors.New("leaf certificate is not an App Store signing certificate")
	}
	if len(certChain) > 1 && !hasExtension(certChain[1], oidAppStoreIntermediateMarker) {
		return errors.New("intermediate certificate is not an Apple WWDR certificate")
	}
	return nil
}

func hasExtension(cert *x509.Certificate, oid asn1.ObjectIdentifier) bool {
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(oid) {
			return true
		}
	}
	return false
}

// ClearCache 清除证书缓存
func (r *CertificateChainResolver) ClearCache() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.verified = make(map[[sha256.Size]byte]verifiedChain)
}
