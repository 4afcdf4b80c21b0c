package cgops

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/canonical/cgroupd/internal/access"
	"github.com/canonical/cgroupd/internal/cgpath"
)

// GetPid implements spec.md §4.5 GET_PID: resolves V's own cgroup for
// controller, requires it to be a descendant of R's cgroup for the same
// controller, and returns the relative path (spec.md §4.3).
func (e *Executor) GetPid(controller string, r, v Cred) (string, error) {
	rBase, err := e.requestorBase(controller, r.Pid)
	if err != nil {
		return "", err
	}

	vBase, err := e.requestorBase(controller, v.Pid)
	if err != nil {
		return "", err
	}

	if !isDescendant(vBase, rBase) {
		return "", fmt.Errorf("cgops: get_pid: %s is not a descendant of %s", vBase, rBase)
	}

	return cgpath.RelativeTo(vBase, rBase), nil
}

func isDescendant(path, base string) bool {
	if path == base {
		return true
	}

	return strings.HasPrefix(path, base+"/")
}

// GetTasks implements spec.md §4.5 GET_TASKS: parses directory/tasks as one
// decimal pid per line. The caller (the broker) is responsible for
// reporting each pid back to the client through a credential datagram
// rather than as plain bytes, per spec.md §4.1.
func (e *Executor) GetTasks(controller, cgroup string, r Cred) ([]int32, error) {
	base, err := e.requestorBase(controller, r.Pid)
	if err != nil {
		return nil, err
	}

	dir, err := cgpath.Resolve(base, cgroup)
	if err != nil {
		return nil, err
	}

	if !access.MayAccess(r.Pid, r.Uid, r.Gid, base, dir, access.Read) {
		return nil, fmt.Errorf("cgops: get_tasks: no read access to %s", dir)
	}

	path := dir + "/tasks"
	if !access.MayAccess(r.Pid, r.Uid, r.Gid, base, path, access.Read) {
		return nil, fmt.Errorf("cgops: get_tasks: no read access to %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cgops: get_tasks: open %s: %w", path, err)
	}
	defer f.Close()

	var pids []int32
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		pid, err := strconv.ParseInt(line, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("cgops: get_tasks: malformed pid %q in %s", line, path)
		}

		pids = append(pids, int32(pid))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cgops: get_tasks: scan %s: %w", path, err)
	}

	return pids, nil
}
