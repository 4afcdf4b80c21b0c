// Package cgops implements the seven cgroup operation executors of
// spec.md §4.5 (CREATE, REMOVE, MOVE_PID, CHOWN, GET_PID, GET_VALUE/
// SET_VALUE, GET_TASKS), each gated by the path resolver (internal/cgpath)
// and the access-check engine (internal/access).
package cgops

import (
	"errors"
	"fmt"
	"os"

	"github.com/canonical/cgroupd/internal/access"
	"github.com/canonical/cgroupd/internal/cgpath"
)

// Cred is a kernel-attested (pid, uid, gid) triple, the requestor or
// victim role of a request context (spec.md §3).
type Cred struct {
	Pid int32
	Uid uint32
	Gid uint32
}

// Executor binds the cgroup root and the pid->cgroup lookup every
// operation needs to resolve a requestor's own cgroup.
type Executor struct {
	Root   string
	Lookup cgpath.PidCgroupLookup
}

// NewExecutor constructs an Executor. lookup is cgpath.ProcPidCgroup in
// production; tests inject a fake that doesn't require a real mounted
// cgroup hierarchy.
func NewExecutor(root string, lookup cgpath.PidCgroupLookup) *Executor {
	return &Executor{Root: root, Lookup: lookup}
}

func (e *Executor) requestorBase(controller string, pid int32) (string, error) {
	base, err := e.Lookup(e.Root, controller, pid)
	if err != nil {
		return "", fmt.Errorf("cgops: locate requestor cgroup: %w", err)
	}

	return base, nil
}

func dirExists(path string) bool {
	st, err := os.Lstat(path)
	return err == nil && st.IsDir()
}

// chownCgroupPath changes ownership of dir and, best-effort, its tasks and
// cgroup.procs control files (spec.md §4.5: "only those three"). A missing
// control file is tolerated: real cgroupfs populates them as soon as the
// directory is created, but a directory that isn't backed by cgroupfs
// (e.g. in tests) won't have them.
func chownCgroupPath(dir string, uid, gid uint32) error {
	if err := os.Chown(dir, int(uid), int(gid)); err != nil {
		return fmt.Errorf("cgops: chown %s: %w", dir, err)
	}

	for _, name := range []string{"tasks", "cgroup.procs"} {
		path := dir + "/" + name
		if err := os.Chown(path, int(uid), int(gid)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("cgops: chown %s: %w", path, err)
		}
	}

	return nil
}
