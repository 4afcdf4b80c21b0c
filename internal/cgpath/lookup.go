package cgpath

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PidCgroupLookup resolves the absolute on-disk cgroup directory a process
// currently sits in for a given controller. The production implementation
// reads /proc/<pid>/cgroup; tests substitute a fake to avoid depending on a
// real mounted cgroup hierarchy (spec.md §8's tests run without one).
type PidCgroupLookup func(root, controller string, pid int32) (string, error)

// ProcPidCgroup is the production PidCgroupLookup: it reads
// /proc/<pid>/cgroup (compute_pid_cgroup in the original source) and joins
// the matching hierarchy's path onto root/controller.
func ProcPidCgroup(root, controller string, pid int32) (string, error) {
	path := fmt.Sprintf("/proc/%d/cgroup", pid)

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("cgpath: open %s: %w", path, err)
	}
	defer f.Close()

	rel, err := parseProcCgroup(f, controller)
	if err != nil {
		return "", err
	}

	return filepath.Join(root, controller, rel), nil
}

// parseProcCgroup scans the lines of a /proc/<pid>/cgroup file, each shaped
// "hierarchy-id:controller-list:path", and returns the path for the
// hierarchy whose controller-list contains controller (cgroup v1) or that
// is the single unified hierarchy (cgroup v2, controller-list empty).
func parseProcCgroup(r *os.File, controller string) (string, error) {
	scanner := bufio.NewScanner(r)
	var unifiedPath string
	haveUnified := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.SplitN(line, ":", 3)
		if len(fields) != 3 {
			continue
		}

		controllers := fields[1]
		path := fields[2]

		if controllers == "" {
			unifiedPath = path
			haveUnified = true
			continue
		}

		for _, c := range strings.Split(controllers, ",") {
			if c == controller {
				return path, nil
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("cgpath: scan cgroup file: %w", err)
	}

	if haveUnified {
		return unifiedPath, nil
	}

	return "", fmt.Errorf("cgpath: controller %q not found", controller)
}
