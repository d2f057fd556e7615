package security

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprinter derives a stable, non-reversible visitor identifier from
// request metadata. Raw IP addresses are never stored in view events.
type Fingerprinter struct {
	key []byte
}

// NewFingerprinter returns a keyed fingerprinter. blake2b keys are limited to 64 bytes.
func NewFingerprinter(secret string) *Fingerprinter {
	key := []byte(secret)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum512(key)
		key = sum[:]
	}
	return &Fingerprinter{key: key}
}

// Visitor returns a 32 hex character fingerprint for ip + user agent
func (f *Fingerprinter) Visitor(ip, userAgent string) string {
	h, err := blake2b.New(16, f.key)
	if err != nil {
		// Only returned for oversized keys, which NewFingerprinter prevents
		panic(err)
	}
	h.Write([]byte(ip))
	h.Write([]byte{0})
	h.Write([]byte(userAgent))
	return hex.EncodeToString(h.Sum(nil))
}
