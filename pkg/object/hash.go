package object

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// HashBytes computes the raw Keccak-256 hash of data and returns it as a
// lowercase hex-encoded Hash.
func HashBytes(data []byte) Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}

// HashObject computes the Keccak-256 of the envelope "type len\0content",
// so identical bytes stored under different types get distinct digests.
func HashObject(objType ObjectType, data []byte) Hash {
	header := fmt.Sprintf("%s %d\x00", objType, len(data))
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(header))
	h.Write(data)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}
