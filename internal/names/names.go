// Package names sanitizes client-supplied filenames and resolves them to
// collision-free names within the uploads namespace.
package names

import (
	"fmt"
	"path"
	"strings"
)

// fallbackName is used when sanitization leaves nothing usable.
const fallbackName = "file"

// Namespace is the advisory existence probe against the uploads directory.
// Existence checks are advisory only: the final uniqueness guarantee comes
// from the store's atomic create-if-absent publish, not from this probe.
type Namespace interface {
	Exists(name string) (bool, error)
}

// Sanitize normalizes a client filename into the safe namespace alphabet:
// path-traversal sequences are stripped, every character outside
// [a-z0-9.-] becomes an underscore, and the result is lower-cased.
// Sanitize is idempotent: sanitizing an already-sanitized name is a no-op.
func Sanitize(name string) string {
	name = strings.ToLower(name)

	// Strip traversal sequences before the character map so "..%2F"-style
	// smuggling cannot reassemble after separators are rewritten.
	for _, seq := range []string{"../", `..\`} {
		name = strings.ReplaceAll(name, seq, "")
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	out := strings.Trim(b.String(), ".")
	if out == "" {
		return fallbackName
	}
	return out
}

// Resolver derives collision-free names for one request. It layers a
// per-request reservation set over the namespace probe so that two parts
// carrying the same original filename within a single request cannot resolve
// to the same name before either is written.
type Resolver struct {
	ns       Namespace
	reserved map[string]struct{}
}

// NewResolver creates a Resolver scoped to one request.
func NewResolver(ns Namespace) *Resolver {
	return &Resolver{
		ns:       ns,
		reserved: make(map[string]struct{}),
	}
}

// Resolve sanitizes name and probes the namespace for it; when taken, it
// derives "{stem}_{counter}{ext}" candidates with counter incrementing from
// 1, re-sanitizing each, until an unused name is found. The winning name is
// reserved for the remainder of the request. Termination is guaranteed:
// every candidate is syntactically distinct and the namespace is finite.
func (r *Resolver) Resolve(name string) (string, error) {
	base := Sanitize(name)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	candidate := base
	for counter := 1; ; counter++ {
		taken, err := r.taken(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			r.reserved[candidate] = struct{}{}
			return candidate, nil
		}
		candidate = Sanitize(fmt.Sprintf("%s_%d%s", stem, counter, ext))
	}
}

// Reserve marks an additional name as taken for this request. The upload
// pipeline calls this when a concurrent request wins a publish race so the
// next Resolve skips the lost candidate.
func (r *Resolver) Reserve(name string) {
	r.reserved[name] = struct{}{}
}

func (r *Resolver) taken(name string) (bool, error) {
	if _, ok := r.reserved[name]; ok {
		return true, nil
	}
	exists, err := r.ns.Exists(name)
	if err != nil {
		return false, fmt.Errorf("probing uploads namespace for %q: %w", name, err)
	}
	return exists, nil
}
