// Package signature implements Frame.io's v0 webhook signing scheme:
// HMAC-SHA256 over "v0:<timestamp>:<body>" with a freshness window on the
// timestamp header.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"
)

const (
	// TimestampHeader carries the Unix time (seconds) the request was signed.
	TimestampHeader = "X-Frameio-Request-Timestamp"
	// SignatureHeader carries the hex digest, prefixed with the scheme version.
	SignatureHeader = "X-Frameio-Signature"

	// Tolerance is the maximum allowed skew between the signed timestamp
	// and the current time, in either direction.
	Tolerance = 300 * time.Second

	prefix = "v0="
)

// Sign computes the v0 signature for a timestamp and raw body.
func Sign(timestamp int64, body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:"))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte(":"))
	mac.Write(body)
	return prefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the signature headers against the raw request body. It fails
// closed: any missing header, malformed timestamp, stale timestamp, or digest
// mismatch returns false.
func Verify(h http.Header, body []byte, secret string) bool {
	return verifyAt(h, body, secret, time.Now())
}

func verifyAt(h http.Header, body []byte, secret string, now time.Time) bool {
	tsHeader := h.Get(TimestampHeader)
	sigHeader := h.Get(SignatureHeader)
	if tsHeader == "" || sigHeader == "" || secret == "" {
		return false
	}

	ts, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		return false
	}

	skew := now.Unix() - ts
	if skew < 0 {
		skew = -skew
	}
	if skew > int64(Tolerance.Seconds()) {
		return false
	}

	expected := Sign(ts, body, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(sigHeader)) == 1
}

// Timestamp parses the request-timestamp header. Returns 0 when absent or
// malformed; callers verify the signature first, so this only runs on
// requests whose timestamp already parsed.
func Timestamp(h http.Header) int64 {
	ts, err := strconv.ParseInt(h.Get(TimestampHeader), 10, 64)
	if err != nil {
		return 0
	}
	return ts
}
