package cgops

import (
	"fmt"
	"os"
	"strings"

	"github.com/canonical/cgroupd/internal/access"
	"github.com/canonical/cgroupd/internal/cgpath"
)

// Create implements spec.md §4.5 CREATE. It returns 2 if every component of
// cgroup already existed, 1 if any component was freshly created.
func (e *Executor) Create(controller, cgroup string, r Cred) (int, error) {
	norm, err := cgpath.NormalizeClientPath(cgroup)
	if err != nil {
		return 0, err
	}

	base, err := e.requestorBase(controller, r.Pid)
	if err != nil {
		return 0, err
	}

	if norm == "" {
		return 2, nil
	}

	// Escape gate: reject up front if the fully resolved target would
	// leave base, before mutating anything.
	if _, err := cgpath.Resolve(base, norm); err != nil {
		return 0, err
	}

	anyCreated := false
	dir := base

	for _, comp := range strings.Split(norm, "/") {
		path := dir + "/" + comp

		if dirExists(path) {
			if !access.MayAccess(r.Pid, r.Uid, r.Gid, base, path, access.Read) {
				return 0, fmt.Errorf("cgops: create: no read access to %s", path)
			}

			dir = path
			continue
		}

		if !access.MayAccess(r.Pid, r.Uid, r.Gid, base, dir, access.Write) {
			return 0, fmt.Errorf("cgops: create: no write access to %s", dir)
		}

		if err := os.Mkdir(path, 0o755); err != nil {
			return 0, fmt.Errorf("cgops: mkdir %s: %w", path, err)
		}

		if err := chownCgroupPath(path, r.Uid, r.Gid); err != nil {
			os.Remove(path)
			return 0, err
		}

		anyCreated = true
		dir = path
	}

	if anyCreated {
		return 1, nil
	}

	return 2, nil
}
