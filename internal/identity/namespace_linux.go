// Package identity translates host-scoped credentials into a peer's
// namespaces and back, and answers the two namespace-membership questions
// the dispatcher's executors gate privileged operations on (spec.md §4.2).
package identity

import (
	"fmt"
	"os"
)

// NamespaceIDs caches the daemon's own pid- and user-namespace identifiers,
// read once at startup (spec.md §3, "process-wide state"). A zero value
// (empty string) in either field means the kernel doesn't expose namespace
// introspection on this host, in which case every membership check answers
// true, matching the original's setns_{pid,user}_supported fallback.
type NamespaceIDs struct {
	PidNS  string
	UserNS string
}

// LoadNamespaceIDs reads /proc/self/ns/{pid,user} once. Call this at daemon
// startup; the result is immutable configuration from then on (spec.md §9,
// "Global state re-shaped").
func LoadNamespaceIDs() NamespaceIDs {
	var ids NamespaceIDs

	if link, err := os.Readlink("/proc/self/ns/pid"); err == nil {
		ids.PidNS = link
	}

	if link, err := os.Readlink("/proc/self/ns/user"); err == nil {
		ids.UserNS = link
	}

	return ids
}

func readNsLink(pid int32, ns string) (string, error) {
	path := fmt.Sprintf("/proc/%d/ns/%s", pid, ns)

	link, err := os.Readlink(path)
	if err != nil {
		return "", fmt.Errorf("identity: read %s: %w", path, err)
	}

	return link, nil
}

// SamePidNS reports whether pid shares the daemon's pid namespace.
func (ids NamespaceIDs) SamePidNS(pid int32) bool {
	if ids.PidNS == "" {
		return true
	}

	link, err := readNsLink(pid, "pid")
	if err != nil {
		return false
	}

	return link == ids.PidNS
}

// SameUserNS reports whether pid shares the daemon's user namespace.
func (ids NamespaceIDs) SameUserNS(pid int32) bool {
	if ids.UserNS == "" {
		return true
	}

	link, err := readNsLink(pid, "user")
	if err != nil {
		return false
	}

	return link == ids.UserNS
}
