package object

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
)

// Algorithm selects the digest used for content addressing. A repository
// picks one at init time and keeps it for life: mixing digests inside a
// single store would split the hash namespace.
type Algorithm string

const (
	SHA1    Algorithm = "sha1"
	SHA256  Algorithm = "sha256"
	BLAKE2b Algorithm = "blake2b"
)

// ParseAlgorithm validates a digest name from configuration.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case SHA1, SHA256, BLAKE2b:
		return Algorithm(name), nil
	default:
		return "", fmt.Errorf("unknown digest algorithm %q", name)
	}
}

// Size returns the digest width in bytes.
func (a Algorithm) Size() int {
	if a == SHA1 {
		return sha1.Size
	}
	return sha256.Size
}

// HexLen returns the length of a hex-encoded Hash under this algorithm.
func (a Algorithm) HexLen() int { return 2 * a.Size() }

func (a Algorithm) newHash() hash.Hash {
	switch a {
	case SHA1:
		return sha1.New()
	case BLAKE2b:
		h, err := blake2b.New256(nil)
		if err != nil {
			// Unreachable: New256 only fails for oversized keys.
			panic(err)
		}
		return h
	default:
		return sha256.New()
	}
}

// HashBytes computes the raw digest of data as a lowercase hex Hash.
func (a Algorithm) HashBytes(data []byte) Hash {
	h := a.newHash()
	h.Write(data)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}

// HashObject computes the digest of the envelope "kind len\0body". The
// kind tag keeps a blob whose bytes mimic a tree encoding from colliding
// in meaning with an actual tree.
func (a Algorithm) HashObject(kind Kind, body []byte) Hash {
	h := a.newHash()
	fmt.Fprintf(h, "%s %d\x00", kind, len(body))
	h.Write(body)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}
