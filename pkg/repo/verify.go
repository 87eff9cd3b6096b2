package repo

import (
	"fmt"
	"strings"

	"github.com/orbitlab/orbit/pkg/object"
)

// Verify checks the integrity of every object reachable from the
// repository's refs and HEAD. Every reachable object is read back and its
// digest re-computed; missing and corrupt objects are collected rather
// than aborting on the first problem.
func (r *Repo) Verify() (*object.VerifyReport, error) {
	refs, err := r.ListRefs()
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	var roots []object.Hash
	for _, h := range refs {
		roots = append(roots, h)
	}

	head, err := r.Head()
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	if !strings.HasPrefix(head, "refs/") && head != "" {
		roots = append(roots, object.Hash(head))
	}

	return r.Store.Verify(roots), nil
}
