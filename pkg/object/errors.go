package object

import (
	"errors"
	"fmt"
)

// NotFoundError reports that no object exists under the requested digest.
// It is recoverable: the sync layer reacts to it by fetching the object
// from a peer, so it must stay distinguishable from corruption.
type NotFoundError struct {
	Hash Hash
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("object %s: not found", e.Hash)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// CorruptObjectError reports that stored bytes failed digest or schema
// verification. It is fatal for the object and never auto-repaired.
type CorruptObjectError struct {
	Hash   Hash
	Reason string
}

func (e *CorruptObjectError) Error() string {
	return fmt.Sprintf("object %s: corrupt: %s", e.Hash, e.Reason)
}

// IsCorrupt reports whether err is (or wraps) a CorruptObjectError.
func IsCorrupt(err error) bool {
	var ce *CorruptObjectError
	return errors.As(err, &ce)
}
