package cgops

import (
	"fmt"
	"os"

	"github.com/canonical/cgroupd/internal/access"
	"github.com/canonical/cgroupd/internal/cgpath"
	"github.com/canonical/cgroupd/internal/identity"
)

// MovePid implements spec.md §4.5 MOVE_PID: gated by may_move(R, V), it
// writes V.Pid followed by a newline into cgroup/tasks under R's own
// cgroup for controller.
func (e *Executor) MovePid(controller, cgroup string, r Cred, v Cred) error {
	if !identity.MayMove(r.Pid, r.Uid, v.Pid) {
		return fmt.Errorf("cgops: move_pid: requestor %d may not move pid %d", r.Pid, v.Pid)
	}

	base, err := e.requestorBase(controller, r.Pid)
	if err != nil {
		return err
	}

	target, err := cgpath.Resolve(base, cgroup)
	if err != nil {
		return err
	}

	if !access.MayAccess(r.Pid, r.Uid, r.Gid, base, target, access.Read) {
		return fmt.Errorf("cgops: move_pid: no read access to %s", target)
	}

	tasksPath := target + "/tasks"
	if !access.MayAccess(r.Pid, r.Uid, r.Gid, base, tasksPath, access.Write) {
		return fmt.Errorf("cgops: move_pid: no write access to %s", tasksPath)
	}

	f, err := os.OpenFile(tasksPath, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("cgops: move_pid: open %s: %w", tasksPath, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%d\n", v.Pid); err != nil {
		return fmt.Errorf("cgops: move_pid: write %s: %w", tasksPath, err)
	}

	return nil
}
