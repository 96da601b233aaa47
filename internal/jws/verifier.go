package jws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"iap-gateway/internal/models"
)

// Verifier decides whether a parsed token can be trusted. A nil error means
// accepted; every failure wraps ErrSignatureRejected.
type Verifier interface {
	Verify(ctx context.Context, token *Token) error
}

// Accepts is the boolean form of Verify.
func Accepts(ctx context.Context, v Verifier, token *Token) bool {
	return v != nil && v.Verify(ctx, token) == nil
}

const defaultVerifyTimeout = 5 * time.Second

// SignatureVerifier checks the token signature with a key obtained from a
// KeyResolver, then the configured claim constraints.
type SignatureVerifier struct {
	resolver       KeyResolver
	algorithms     map[string]bool
	requiredClaims []string
	timeout        time.Duration
	now            func() time.Time
}

// Option configures a SignatureVerifier.
type Option func(*SignatureVerifier)

// WithAlgorithms replaces the accepted "alg" values (default ES256).
func WithAlgorithms(algs ...string) Option {
	return func(v *SignatureVerifier) {
		v.algorithms = make(map[string]bool, len(algs))
		for _, alg := range algs {
			v.algorithms[alg] = true
		}
	}
}

// WithRequiredClaims rejects tokens missing any of the named claims.
func WithRequiredClaims(names ...string) Option {
	return func(v *SignatureVerifier) {
		v.requiredClaims = append(v.requiredClaims, names...)
	}
}

// WithTimeout bounds key resolution. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(v *SignatureVerifier) {
		v.timeout = d
	}
}

// WithClock sets the time source for exp/nbf checks.
func WithClock(now func() time.Time) Option {
	return func(v *SignatureVerifier) {
		v.now = now
	}
}

func NewSignatureVerifier(resolver KeyResolver, opts ...Option) *SignatureVerifier {
	v := &SignatureVerifier{
		resolver:   resolver,
		algorithms: map[string]bool{jwt.SigningMethodES256.Alg(): true},
		timeout:    defaultVerifyTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify fails closed: anything short of a matching signature over the
// received signing input is a rejection.
func (v *SignatureVerifier) Verify(ctx context.Context, token *Token) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = reject("verification panicked", fmt.Errorf("%v", r))
		}
	}()

	if token == nil {
		return reject("nil token", nil)
	}
	if v.resolver == nil {
		return reject("no key resolver configured", nil)
	}

	alg := token.Algorithm()
	if !v.algorithms[alg] {
		return reject(fmt.Sprintf("algorithm %q not accepted", alg), nil)
	}
	method := jwt.GetSigningMethod(alg)
	if method == nil {
		return reject(fmt.Sprintf("algorithm %q not supported", alg), nil)
	}

	key, err := v.resolveKey(ctx, token)
	if err != nil {
		return reject("key resolution failed", err)
	}
	if key == nil {
		return reject("no verification key", nil)
	}

	if err := method.Verify(token.SigningInput(), token.Signature(), key); err != nil {
		return reject("signature mismatch", err)
	}

	return v.checkClaims(token.Attributes())
}

// resolveKey runs the resolver under the verifier timeout. A resolver that
// ignores its context is abandoned once the deadline passes.
func (v *SignatureVerifier) resolveKey(ctx context.Context, token *Token) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	type result struct {
		key any
		err error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("key resolver panicked: %v", r)}
			}
		}()
		key, err := v.resolver.ResolveKey(ctx, token)
		done <- result{key: key, err: err}
	}()

	select {
	case r := <-done:
		return r.key, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (v *SignatureVerifier) checkClaims(claims models.Attributes) error {
	for _, name := range v.requiredClaims {
		if !claims.Has(name) {
			return reject(fmt.Sprintf("missing required claim %q", name), nil)
		}
	}

	now := v.now().Unix()
	if claims.Has("exp") {
		exp, ok := claims.Int64("exp")
		if !ok {
			return reject("invalid exp claim", nil)
		}
		if now >= exp {
			return reject("token expired", jwt.ErrTokenExpired)
		}
	}
	if claims.Has("nbf") {
		nbf, ok := claims.Int64("nbf")
		if !ok {
			return reject("invalid nbf claim", nil)
		}
		if now < nbf {
			return reject("token not valid yet", jwt.ErrTokenNotValidYet)
		}
	}
	return nil
}

// IsRejected reports whether err is a verification rejection.
func IsRejected(err error) bool {
	return errors.Is(err, ErrSignatureRejected)
}
