package cgops

import (
	"fmt"
	"os"
	"sort"

	"github.com/fvbommel/sortorder"

	"github.com/canonical/cgroupd/internal/access"
	"github.com/canonical/cgroupd/internal/cgpath"
)

// Remove implements spec.md §4.5 REMOVE. It returns 2 if the target existed
// and was removed, 1 if it did not exist to begin with.
func (e *Executor) Remove(controller, cgroup string, recursive bool, r Cred) (int, error) {
	base, err := e.requestorBase(controller, r.Pid)
	if err != nil {
		return 0, err
	}

	target, err := cgpath.Resolve(base, cgroup)
	if err != nil {
		return 0, err
	}

	if !dirExists(target) {
		return 1, nil
	}

	parent := parentOf(target, base)
	if !access.MayAccess(r.Pid, r.Uid, r.Gid, base, parent, access.Write) {
		return 0, fmt.Errorf("cgops: remove: no write access to %s", parent)
	}

	if !recursive {
		if err := os.Remove(target); err != nil {
			return 0, fmt.Errorf("cgops: remove %s: %w", target, err)
		}

		return 2, nil
	}

	if err := removeRecursive(target); err != nil {
		return 0, err
	}

	return 2, nil
}

func parentOf(target, base string) string {
	if target == base {
		return base
	}

	idx := len(target) - 1
	for idx > 0 && target[idx] != '/' {
		idx--
	}

	if idx <= 0 {
		return base
	}

	return target[:idx]
}

// removeRecursive performs a post-order traversal, recursing only into
// subdirectories (cgroup's pseudo-files disappear with their directory), in
// a deterministic natural-sort order of entry names. Any failure aborts the
// traversal; directories removed before the failure stay removed
// (spec.md §5: REMOVE's recursive mode is best-effort).
func removeRecursive(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("cgops: readdir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	isDir := make(map[string]bool, len(entries))
	for _, ent := range entries {
		names = append(names, ent.Name())
		isDir[ent.Name()] = ent.IsDir()
	}

	sort.Slice(names, func(i, j int) bool { return sortorder.NaturalLess(names[i], names[j]) })

	for _, name := range names {
		if !isDir[name] {
			continue
		}

		if err := removeRecursive(dir + "/" + name); err != nil {
			return err
		}
	}

	if err := os.Remove(dir); err != nil {
		return fmt.Errorf("cgops: remove %s: %w", dir, err)
	}

	return nil
}
