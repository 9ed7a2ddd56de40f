package tree

import (
	"fmt"
	"strings"

	"github.com/aretw0/firestream/pkg/domain"
)

// Root is the canonical path of the database root.
const Root = "/"

// Clean returns the canonical form of p: a leading slash, no trailing slash,
// no empty segments. "" and "/" both clean to Root.
func Clean(p string) string {
	segs := Split(p)
	if len(segs) == 0 {
		return Root
	}
	return "/" + strings.Join(segs, "/")
}

// Split returns the key segments of p.
func Split(p string) []string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// Join appends the relative path rel to base.
func Join(base, rel string) string {
	return Clean(base + "/" + rel)
}

// Parent returns the parent of p. The parent of Root is Root.
func Parent(p string) string {
	segs := Split(p)
	if len(segs) == 0 {
		return Root
	}
	return Clean(strings.Join(segs[:len(segs)-1], "/"))
}

// Base returns the last key of p, or "" for Root.
func Base(p string) string {
	segs := Split(p)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// IsAncestor reports whether a is p itself or one of its ancestors.
func IsAncestor(a, p string) bool {
	a, p = Clean(a), Clean(p)
	if a == Root || a == p {
		return true
	}
	return strings.HasPrefix(p, a+"/")
}

// Related reports whether a change at one path can affect the other.
func Related(a, b string) bool {
	return IsAncestor(a, b) || IsAncestor(b, a)
}

const forbidden = ".$#[]"

// Validate rejects keys containing characters the database reserves.
func Validate(p string) error {
	for _, s := range Split(p) {
		if strings.ContainsAny(s, forbidden) {
			return fmt.Errorf("%w: key %q in %q", domain.ErrInvalidPath, s, p)
		}
	}
	return nil
}
