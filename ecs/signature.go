package ecs

import (
	"sort"
	"strconv"
	"strings"
)

// Signature is the canonical set of TypeIds a Node requires: deduplicated and
// sorted ascending, so [A,B] and [B,A] produce the same signature.
type Signature []TypeId

// newSignature canonicalizes a list of ids. The input slice is not modified.
func newSignature(ids []TypeId) Signature {
	sig := make(Signature, 0, len(ids))
	sig = append(sig, ids...)
	sort.Slice(sig, func(i, j int) bool { return sig[i] < sig[j] })

	// Dedupe in place; the slice is already sorted.
	out := sig[:0]
	for i, id := range sig {
		if i == 0 || id != sig[i-1] {
			out = append(out, id)
		}
	}
	return out
}

// Key returns the canonical cache key for this signature. Distinct
// signatures always produce distinct keys.
func (s Signature) Key() string {
	var b strings.Builder
	for i, id := range s {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(int(id)))
	}
	return b.String()
}

// Contains reports whether the signature requires the given id.
func (s Signature) Contains(id TypeId) bool {
	for _, t := range s {
		if t == id {
			return true
		}
	}
	return false
}

func (s Signature) String() string { return "Signature(" + s.Key() + ")" }
