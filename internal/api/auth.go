package api

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"token-launchpad/internal/observability"
)

// Headers of a signed request. The signature covers SigningMessage.
const (
	SignatureHeader = "X-Signature"
	TimestampHeader = "X-Timestamp"
	NonceHeader     = "X-Nonce"
)

const (
	// DefaultMaxSkew is how far a request timestamp may sit from the server clock.
	DefaultMaxSkew = 5 * time.Minute
	maxNonceLen    = 128
)

var (
	errBadSignature = errors.New("invalid signature")
	errReplayed     = errors.New("request already processed")
)

// SigningMessage is the byte string a wallet signs for a request. Binding
// the method and path ties the signature to one route and pool.
func SigningMessage(method, path string, timestamp int64, nonce string, body []byte) []byte {
	var b strings.Builder
	b.Grow(len(method) + len(path) + len(nonce) + len(body) + 24)
	b.WriteString(method)
	b.WriteByte('\n')
	b.WriteString(path)
	b.WriteByte('\n')
	b.WriteString(strconv.FormatInt(timestamp, 10))
	b.WriteByte('\n')
	b.WriteString(nonce)
	b.WriteByte('\n')
	b.Write(body)
	return []byte(b.String())
}

// SignRequest returns the value of SignatureHeader for a request.
func SignRequest(key ed25519.PrivateKey, method, path string, timestamp int64, nonce string, body []byte) string {
	return base58.Encode(ed25519.Sign(key, SigningMessage(method, path, timestamp, nonce, body)))
}

// authenticate checks that r was signed by signer within the skew window
// and that its nonce has not been seen before.
func (s *Server) authenticate(r *http.Request, signer string, body []byte) error {
	ts, err := strconv.ParseInt(r.Header.Get(TimestampHeader), 10, 64)
	if err != nil {
		observability.RecordAuthRejection("timestamp")
		return fmt.Errorf("%w: missing or malformed %s header", errBadSignature, TimestampHeader)
	}
	nonce := r.Header.Get(NonceHeader)
	if nonce == "" || len(nonce) > maxNonceLen {
		observability.RecordAuthRejection("nonce")
		return fmt.Errorf("%w: %s header must hold 1-%d bytes", errBadSignature, NonceHeader, maxNonceLen)
	}
	skew := s.clock().Sub(time.Unix(ts, 0))
	if skew > s.maxSkew || skew < -s.maxSkew {
		observability.RecordAuthRejection("stale")
		return fmt.Errorf("%w: timestamp %d outside the %v window", errBadSignature, ts, s.maxSkew)
	}

	msg := SigningMessage(r.Method, r.URL.Path, ts, nonce, body)
	if err := verifySignature(signer, msg, r.Header.Get(SignatureHeader)); err != nil {
		observability.RecordAuthRejection("signature")
		return err
	}

	// A nonce outlives the window on both sides of the clock.
	fresh, err := s.nonces.Claim(r.Context(), signer+":"+nonce, 2*s.maxSkew)
	if err != nil {
		return fmt.Errorf("claim nonce: %w", err)
	}
	if !fresh {
		observability.RecordAuthRejection("replay")
		return fmt.Errorf("%w: nonce %q reused", errReplayed, nonce)
	}
	return nil
}

// verifySignature checks that signature is signer's ed25519 signature of msg.
func verifySignature(signer string, msg []byte, signature string) error {
	if signature == "" {
		return fmt.Errorf("%w: missing %s header", errBadSignature, SignatureHeader)
	}
	pub, err := base58.Decode(signer)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: signer %q is not a public key", errBadSignature, signer)
	}
	sig, err := base58.Decode(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("%w: malformed signature", errBadSignature)
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), msg, sig) {
		return fmt.Errorf("%w: does not match %s", errBadSignature, signer)
	}
	return nil
}
