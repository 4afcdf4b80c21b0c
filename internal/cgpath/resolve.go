// Package cgpath resolves a client-supplied, requestor-relative cgroup path
// into an absolute host path, rejecting any attempt to escape the
// requestor's own cgroup subtree (spec.md §4.3).
package cgpath

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// PathMax mirrors the platform PATH_MAX the original source budgets
// against. Open Question (c) in spec.md §9 is resolved here: every
// concatenation budgets PathMax minus the longest suffix that will still
// be appended after it, rather than the original's inconsistent
// PATH_MAX+2 / PATH_MAX-8.
const PathMax = 4096

// longestSuffix is the longest fixed string cgroupd ever appends to a
// resolved directory path before opening it: "/cgroup.procs" plus a NUL.
const longestSuffix = len("/cgroup.procs") + 1

// ErrMalformed is returned for any client path spec.md §3/§4.3 reject
// before any filesystem access is attempted.
var ErrMalformed = errors.New("cgpath: malformed client path")

// ErrEscape is returned when a client path's canonical resolution would
// leave the requestor's own cgroup subtree.
var ErrEscape = errors.New("cgpath: path escapes requestor cgroup")

// ErrTooLong is returned when a resolved path would exceed the platform
// path length budget.
var ErrTooLong = errors.New("cgpath: path too long")

// NormalizeClientPath applies the syntactic rules of spec.md §3/§4.3:
// reject a leading '/' or '.', reject any '..' segment, reject non-UTF-8 or
// NUL bytes (Open Question (a)), and collapse runs of '/'. It does not
// touch the filesystem.
func NormalizeClientPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}

	if !utf8.ValidString(p) {
		return "", fmt.Errorf("%w: not valid UTF-8", ErrMalformed)
	}

	if strings.ContainsRune(p, 0) {
		return "", fmt.Errorf("%w: contains NUL", ErrMalformed)
	}

	if p[0] == '/' || p[0] == '.' {
		return "", fmt.Errorf("%w: begins with / or .", ErrMalformed)
	}

	collapsed := collapseSlashes(p)

	for _, seg := range strings.Split(collapsed, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: contains ..", ErrMalformed)
		}
	}

	return collapsed, nil
}

func collapseSlashes(p string) string {
	var b strings.Builder
	b.Grow(len(p))

	prevSlash := false
	for _, r := range p {
		if r == '/' {
			if prevSlash {
				continue
			}

			prevSlash = true
		} else {
			prevSlash = false
		}

		b.WriteRune(r)
	}

	return b.String()
}

// Resolve joins base (the requestor's own absolute cgroup directory for a
// controller) with a client-supplied relative path, canonicalizes the
// result, and verifies it remains a prefix-descendant of base. It never
// follows a symlink whose target lies outside base.
//
// Resolve applies NormalizeClientPath to clientPath itself before touching
// the filesystem, so the syntactic rejection always comes before
// canonicalization (spec.md §9); callers may pass the raw client path.
func Resolve(base, clientPath string) (string, error) {
	norm, err := NormalizeClientPath(clientPath)
	if err != nil {
		return "", err
	}

	if len(base)+1+len(norm)+longestSuffix > PathMax {
		return "", ErrTooLong
	}

	candidate := base
	if norm != "" {
		candidate = filepath.Join(base, norm)
	}

	candidate = filepath.Clean(candidate)
	cleanBase := filepath.Clean(base)

	real, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		// The target doesn't exist yet (e.g. about to be created by
		// CREATE): canonicalize as far as the deepest existing
		// ancestor and re-append the remainder, so a symlink planted
		// in an existing ancestor is still caught.
		real, err = resolveNonexistent(candidate)
		if err != nil {
			return "", err
		}
	}

	if !isPrefixDescendant(real, cleanBase) {
		return "", ErrEscape
	}

	return real, nil
}

// resolveNonexistent canonicalizes the longest existing ancestor of p via
// EvalSymlinks and re-joins the non-existent remainder.
func resolveNonexistent(p string) (string, error) {
	dir, base := filepath.Split(p)
	dir = filepath.Clean(dir)

	if dir == p {
		// Reached the root without finding anything that exists.
		return p, nil
	}

	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		real, err = resolveNonexistent(dir)
		if err != nil {
			return "", err
		}
	}

	return filepath.Join(real, base), nil
}

// isPrefixDescendant reports whether real is base itself or a path
// component-wise descendant of base.
func isPrefixDescendant(real, base string) bool {
	if real == base {
		return true
	}

	prefix := base
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}

	return strings.HasPrefix(real, prefix)
}

// RelativeTo returns the suffix of real relative to base, reporting "/"
// for the root case, matching get_pid_cgroup_main's output convention.
func RelativeTo(real, base string) string {
	cleanBase := filepath.Clean(base)
	if real == cleanBase {
		return "/"
	}

	rel := strings.TrimPrefix(real, cleanBase+string(filepath.Separator))
	return rel
}
