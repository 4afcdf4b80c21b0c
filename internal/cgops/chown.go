package cgops

import (
	"fmt"

	"github.com/canonical/cgroupd/internal/access"
	"github.com/canonical/cgroupd/internal/cgpath"
)

// Chown implements spec.md §4.5 CHOWN: changes ownership of cgroup, its
// tasks file, and its cgroup.procs file to (V.Uid, V.Gid). The caller is
// responsible for having already enforced the connection-level guards of
// spec.md §4.2 (peer in the daemon's pid and user namespaces, peer's host
// uid mapped to 0 within its own user namespace) before this is reached;
// MovePid, by contrast, gates on a per-call predicate because may_move
// depends on both R and V's identities rather than on the connection alone.
func (e *Executor) Chown(controller, cgroup string, r, v Cred) error {
	base, err := e.requestorBase(controller, r.Pid)
	if err != nil {
		return err
	}

	target, err := cgpath.Resolve(base, cgroup)
	if err != nil {
		return err
	}

	if !access.MayAccess(r.Pid, r.Uid, r.Gid, base, target, access.Read|access.Write) {
		return fmt.Errorf("cgops: chown: no read+write access to %s", target)
	}

	if err := chownCgroupPath(target, v.Uid, v.Gid); err != nil {
		return err
	}

	return nil
}
