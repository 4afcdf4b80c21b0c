package identity

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/syndtr/gocapability/capability"
)

// processOwnerUID reads the real uid of pid from /proc/<pid>/status.
func processOwnerUID(pid int32) (uint32, error) {
	path := fmt.Sprintf("/proc/%d/status", pid)

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("identity: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		rest, found := strings.CutPrefix(line, "Uid:")
		if !found {
			continue
		}

		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return 0, fmt.Errorf("identity: malformed Uid line in %s", path)
		}

		uid, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			return 0, fmt.Errorf("identity: malformed Uid line in %s: %w", path, err)
		}

		return uint32(uid), nil
	}

	return 0, fmt.Errorf("identity: no Uid line in %s", path)
}

// hasSysAdmin reports whether pid currently holds effective CAP_SYS_ADMIN,
// the generalization of "privileged" the original may_move_pid left as
// "uid 0 only". A process holding CAP_SYS_ADMIN can already reconfigure
// cgroups via other means, so treating it as privileged here doesn't widen
// what the daemon itself allows.
func hasSysAdmin(pid int32) bool {
	caps, err := capability.NewPid2(int(pid))
	if err != nil {
		return false
	}

	if err := caps.Load(); err != nil {
		return false
	}

	return caps.Get(capability.EFFECTIVE, capability.CAP_SYS_ADMIN)
}

// MayMove reports whether a requestor (pid=rpid, uid=ruid) may move a
// victim process (pid=vpid) between cgroups, per spec.md §4.5's
// may_move(R.pid, R.uid, V.pid): true when R owns V, or R is privileged
// with respect to V in the standard Unix sense.
func MayMove(rpid int32, ruid uint32, vpid int32) bool {
	if ruid == 0 {
		return true
	}

	if vOwner, err := processOwnerUID(vpid); err == nil && vOwner == ruid {
		return true
	}

	return hasSysAdmin(rpid)
}
