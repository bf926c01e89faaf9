package driver

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest identifies a verification job: the file contents together with
// the options that change its verdict.
type Digest [sha256.Size]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// IsZero reports whether d was never computed.
func (d Digest) IsZero() bool { return d == Digest{} }

// digestOf hashes data followed by one byte per verdict-relevant flag.
func digestOf(data []byte, flags ...bool) Digest {
	h := sha256.New()
	_, _ = h.Write(data)
	for _, f := range flags {
		b := byte(0)
		if f {
			b = 1
		}
		_, _ = h.Write([]byte{b})
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
