// Command jwsgen signs a JSON claims file as a compact JWS, for posting
// hand-built notifications to a local gateway.
//
//	jwsgen -claims payload.json -alg HS256 -secret dev
//	jwsgen -claims payload.json -alg ES256 -key leaf.key -chain chain.pem
package main

import (
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"iap-gateway/internal/jws"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	claimsPath := flag.String("claims", "-", "claims JSON file, - for stdin")
	alg := flag.String("alg", "ES256", "signing algorithm: ES256 or HS256")
	secret := flag.String("secret", "", "HS256 shared secret")
	keyPath := flag.String("key", "", "ES256 private key (PEM)")
	chainPath := flag.String("chain", "", "PEM certificates for the x5c header, leaf first")
	wrap := flag.Bool("wrap", false, "print an App Store body {\"signedPayload\": ...} instead of the bare token")
	flag.Parse()

	token, err := run(*claimsPath, *alg, *secret, *keyPath, *chainPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "jwsgen:", err)
		os.Exit(1)
	}

	if *wrap {
		body, _ := json.Marshal(map[string]string{"signedPayload": token})
		fmt.Println(string(body))
		return
	}
	fmt.Println(token)
}

func run(claimsPath, alg, secret, keyPath, chainPath string) (string, error) {
	claims, err := readClaims(claimsPath)
	if err != nil {
		return "", err
	}

	switch alg {
	case "HS256":
		if secret == "" {
			return "", errors.New("-secret is required for HS256")
		}
		return jws.Sign(nil, claims, jwt.SigningMethodHS256, []byte(secret))
	case "ES256":
		if keyPath == "" {
			return "", errors.New("-key is required for ES256")
		}
		keyPEM, err := os.ReadFile(keyPath)
		if err != nil {
			return "", err
		}
		key, err := jwt.ParseECPrivateKeyFromPEM(keyPEM)
		if err != nil {
			return "", fmt.Errorf("parse key: %w", err)
		}

		header := map[string]any{}
		if chainPath != "" {
			chain, err := readChain(chainPath)
			if err != nil {
				return "", err
			}
			header["x5c"] = chain
		}
		return jws.Sign(header, claims, jwt.SigningMethodES256, key)
	default:
		return "", fmt.Errorf("unsupported algorithm %q", alg)
	}
}

func readClaims(path string) (map[string]any, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var claims map[string]any
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&claims); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}
	return claims, nil
}

// readChain returns the certificates as base64 DER, the x5c encoding.
func readChain(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var chain []string
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type == "CERTIFICATE" {
			chain = append(chain, base64.StdEncoding.EncodeToString(block.Bytes))
		}
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("no certificates in %s", path)
	}
	return chain, nil
}
