package object

import "sort"

// VerifyIssue records one object that failed verification.
type VerifyIssue struct {
	Hash Hash
	Err  error
}

// VerifyReport summarizes a store verification walk.
type VerifyReport struct {
	Checked int           // objects read and digest-verified
	Missing []Hash        // referenced but absent from the store
	Corrupt []VerifyIssue // present but unreadable or digest-mismatched
}

// OK reports whether the walk found no problems.
func (r *VerifyReport) OK() bool {
	return len(r.Missing) == 0 && len(r.Corrupt) == 0
}

// Verify walks the object graph from roots, reading every reachable object.
// Reading forces digest verification, so tampered or truncated objects
// surface as corrupt. Unlike ReachableSet, a bad object does not stop the
// walk: its subgraph is simply not explored and the issue is recorded.
func (s *Store) Verify(roots []Hash) *VerifyReport {
	roots = uniqueNormalizedHashes(roots)
	report := &VerifyReport{}
	seen := make(map[Hash]struct{}, len(roots))

	stack := append(make([]Hash, 0, len(roots)), roots...)
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}

		if !s.Has(h) {
			report.Missing = append(report.Missing, h)
			continue
		}

		objType, data, err := s.Read(h)
		if err != nil {
			report.Corrupt = append(report.Corrupt, VerifyIssue{Hash: h, Err: err})
			continue
		}
		report.Checked++

		refs, err := referencedHashes(objType, data)
		if err != nil {
			report.Corrupt = append(report.Corrupt, VerifyIssue{Hash: h, Err: err})
			continue
		}
		stack = append(stack, refs...)
	}

	sort.Slice(report.Missing, func(i, j int) bool {
		return report.Missing[i] < report.Missing[j]
	})
	sort.Slice(report.Corrupt, func(i, j int) bool {
		return report.Corrupt[i].Hash < report.Corrupt[j].Hash
	})
	return report
}
