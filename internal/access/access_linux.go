// Package access implements the discretionary access-check engine
// (spec.md §4.4): "would a process with these credentials be permitted to
// open this path with this mode under ordinary Unix semantics?" using the
// credentials recorded in the request context, never the daemon's own.
package access

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Mode is the access the caller wants to exercise on a path.
type Mode int

// Modes mirror O_RDONLY/O_WRONLY/O_RDWR.
const (
	Read Mode = 1 << iota
	Write
)

const (
	sUserRead  = 0o400
	sUserWrite = 0o200
	sUserExec  = 0o100
	sGroupRead = 0o040
	sGrpWrite  = 0o020
	sGrpExec   = 0o010
	sOthRead   = 0o004
	sOthWrite  = 0o002
	sOthExec   = 0o001
)

// supplementaryGroups reads the Groups: line of /proc/<pid>/status.
func supplementaryGroups(pid int32) ([]uint32, error) {
	path := fmt.Sprintf("/proc/%d/status", pid)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("access: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		rest, found := strings.CutPrefix(scanner.Text(), "Groups:")
		if !found {
			continue
		}

		var groups []uint32
		for _, field := range strings.Fields(rest) {
			g, err := strconv.ParseUint(field, 10, 32)
			if err != nil {
				continue
			}

			groups = append(groups, uint32(g))
		}

		return groups, nil
	}

	return nil, nil
}

func modeAllowsBits(want Mode, readBit, writeBit uint32, perm uint32) bool {
	if want&Read != 0 && perm&readBit == 0 {
		return false
	}

	if want&Write != 0 && perm&writeBit == 0 {
		return false
	}

	return true
}

// statPerm checks uid/gid/supplementary-groups against a single file's
// owner/group/permission bits for the requested mode, mirroring kernel DAC.
func statPerm(uid, gid uint32, groups []uint32, st *unix.Stat_t, want Mode) bool {
	perm := uint32(st.Mode & 0o777)

	if uid == 0 {
		return true
	}

	if st.Uid == uid {
		return modeAllowsBits(want, sUserRead, sUserWrite, perm)
	}

	inGroup := st.Gid == gid
	if !inGroup {
		for _, g := range groups {
			if g == st.Gid {
				inGroup = true
				break
			}
		}
	}

	if inGroup {
		return modeAllowsBits(want, sGroupRead, sGrpWrite, perm)
	}

	return modeAllowsBits(want, sOthRead, sOthWrite, perm)
}

func canTraverse(uid, gid uint32, groups []uint32, st *unix.Stat_t) bool {
	perm := uint32(st.Mode & 0o777)

	if uid == 0 {
		return true
	}

	if st.Uid == uid {
		return perm&sUserExec != 0
	}

	inGroup := st.Gid == gid
	if !inGroup {
		for _, g := range groups {
			if g == st.Gid {
				inGroup = true
				break
			}
		}
	}

	if inGroup {
		return perm&sGrpExec != 0
	}

	return perm&sOthExec != 0
}

// MayAccess reports whether a process with credentials (uid, gid, and pid's
// supplementary groups) could open path with the requested mode under
// ordinary Unix DAC semantics. It uses the real filesystem permissions of
// path and every intermediate directory between floor and path's parent
// (spec.md §4.4: "Intermediate directories leading to path must also be
// traversable by the caller").
//
// floor is the ancestor the walk starts below: floor itself and the
// directories above it are not checked. Every executor passes the
// requestor's own cgroup directory as floor, so the directories between
// the controller root and the requestor's cgroup are not checked either.
func MayAccess(pid int32, uid, gid uint32, floor, path string, want Mode) bool {
	groups, err := supplementaryGroups(pid)
	if err != nil {
		return false
	}

	if !checkTraversal(uid, gid, groups, floor, path) {
		return false
	}

	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return false
	}

	return statPerm(uid, gid, groups, &st, want)
}

// checkTraversal verifies every directory strictly between floor and path
// (path's parent included) grants execute permission to the caller.
func checkTraversal(uid, gid uint32, groups []uint32, floor, path string) bool {
	components := intermediateDirs(floor, path)

	for _, dir := range components {
		var st unix.Stat_t
		if err := unix.Lstat(dir, &st); err != nil {
			return false
		}

		if !canTraverse(uid, gid, groups, &st) {
			return false
		}
	}

	return true
}

// intermediateDirs lists the directories strictly between floor and path
// (exclusive of floor, exclusive of path itself), in descent order.
func intermediateDirs(floor, path string) []string {
	if len(path) <= len(floor) {
		return nil
	}

	rel := path[len(floor):]
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		return nil
	}

	parts := strings.Split(rel, "/")
	if len(parts) <= 1 {
		return nil
	}

	parts = parts[:len(parts)-1]

	var dirs []string
	cur := floor
	for _, p := range parts {
		cur = cur + "/" + p
		dirs = append(dirs, cur)
	}

	return dirs
}
