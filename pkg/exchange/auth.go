package exchange

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"strconv"
	"time"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

// Signer signs exchange REST requests with RSA-PSS (SHA-256, MGF1-SHA-256,
// maximum salt length) over timestamp_ms || method || path || body,
// the way the exchange's API key auth scheme requires.
type Signer struct {
	apiKeyID   string
	privateKey *rsa.PrivateKey
}

// NewSigner loads a PEM-encoded PKCS#1 or PKCS#8 RSA private key.
func NewSigner(apiKeyID string, pemKey []byte) (*Signer, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, model.NewError(model.CodeBadInput, "no PEM block found in private key")
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		parsed, err2 := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err2 != nil {
			return nil, model.NewError(model.CodeBadInput, "parse private key: %v / %v", err, err2)
		}
		rsaKey, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, model.NewError(model.CodeBadInput, "private key is not RSA")
		}
		key = rsaKey
	}

	return &Signer{apiKeyID: apiKeyID, privateKey: key}, nil
}

// AuthHeaders signs method+path+body at the given timestamp and returns the
// headers the exchange expects on every authenticated REST request.
func (s *Signer) AuthHeaders(method, path string, body []byte, at time.Time) (map[string]string, error) {
	timestampMs := strconv.FormatInt(at.UnixMilli(), 10)

	message := timestampMs + method + path + string(body)
	digest := sha256.Sum256([]byte(message))

	signature, err := rsa.SignPSS(rand.Reader, s.privateKey, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return nil, model.NewError(model.CodeAuthFailure, "sign request: %v", err)
	}

	return map[string]string{
		"KALSHI-ACCESS-KEY":       s.apiKeyID,
		"KALSHI-ACCESS-SIGNATURE": base64.StdEncoding.EncodeToString(signature),
		"KALSHI-ACCESS-TIMESTAMP": timestampMs,
	}, nil
}
