package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"
	"time"

	"github.com/goliatone/go-webhook-ingest/core"
)

const SignaturePrefix = "sha256="

// SignatureVerifier checks the HMAC-SHA256 signature of a raw body and the
// freshness of the declared timestamp. It holds no mutable state and is safe
// for concurrent use.
type SignatureVerifier struct {
	Secret    []byte
	Tolerance time.Duration
	Now       func() time.Time
}

func NewSignatureVerifier(secret string, tolerance time.Duration) SignatureVerifier {
	return SignatureVerifier{
		Secret:    []byte(secret),
		Tolerance: tolerance,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// VerifierFromConfig builds a verifier from the webhook section of the
// service configuration. A non-positive tolerance falls back to 300s.
func VerifierFromConfig(cfg core.WebhookConfig) SignatureVerifier {
	return NewSignatureVerifier(cfg.Secret, cfg.Tolerance())
}

// Verify runs the signature and timestamp checks independently. A valid
// signature on a stale timestamp still fails.
func (v SignatureVerifier) Verify(rawBody []byte, signatureHeader string, declaredTimestamp int64) error {
	signatureErr := v.VerifySignature(rawBody, signatureHeader)
	timestampErr := v.VerifyTimestamp(declaredTimestamp)
	if signatureErr != nil {
		return signatureErr
	}
	return timestampErr
}

func (v SignatureVerifier) VerifySignature(rawBody []byte, signatureHeader string) error {
	provided := strings.TrimSpace(signatureHeader)
	if provided == "" {
		return core.MissingSignatureError()
	}
	if len(v.Secret) == 0 {
		return core.InvalidSignatureError("signing secret is not configured")
	}
	if len(rawBody) == 0 {
		return core.InvalidSignatureError("empty body")
	}
	provided = strings.TrimSpace(strings.TrimPrefix(provided, SignaturePrefix))

	expected := ExpectedSignature(v.Secret, rawBody)
	expectedDigest := sha256.Sum256([]byte(expected))
	providedDigest := sha256.Sum256([]byte(provided))
	if subtle.ConstantTimeCompare(expectedDigest[:], providedDigest[:]) != 1 {
		return core.InvalidSignatureError("digest mismatch")
	}
	return nil
}

func (v SignatureVerifier) VerifyTimestamp(declaredTimestamp int64) error {
	tolerance := int64(v.tolerance() / time.Second)
	now := v.now().Unix()
	delta := now - declaredTimestamp
	if delta < 0 {
		delta = -delta
	}
	if delta > tolerance {
		return core.StaleTimestampError(declaredTimestamp, now, tolerance)
	}
	return nil
}

func (v SignatureVerifier) tolerance() time.Duration {
	if v.Tolerance <= 0 {
		return core.DefaultToleranceSeconds * time.Second
	}
	return v.Tolerance
}

func (v SignatureVerifier) now() time.Time {
	if v.Now == nil {
		return time.Now().UTC()
	}
	return v.Now()
}

// Verify is the stateless form of SignatureVerifier.Verify.
func Verify(
	rawBody []byte,
	signatureHeader string,
	secret []byte,
	declaredTimestamp int64,
	toleranceSeconds int64,
	now time.Time,
) error {
	verifier := SignatureVerifier{
		Secret:    secret,
		Tolerance: time.Duration(toleranceSeconds) * time.Second,
		Now: func() time.Time {
			return now
		},
	}
	return verifier.Verify(rawBody, signatureHeader, declaredTimestamp)
}

// ExpectedSignature returns base64(HMAC-SHA256(secret, body)).
func ExpectedSignature(secret []byte, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Sign returns the header value a sender attaches to body.
func Sign(secret []byte, body []byte) string {
	return SignaturePrefix + ExpectedSignature(secret, body)
}
