package cgops

import (
	"fmt"
	"os"

	"github.com/canonical/cgroupd/internal/access"
	"github.com/canonical/cgroupd/internal/cgpath"
)

// GetValue implements spec.md §4.5 GET_VALUE: reads directory/key verbatim,
// including any trailing newline.
func (e *Executor) GetValue(controller, cgroup, key string, r Cred) (string, error) {
	base, err := e.requestorBase(controller, r.Pid)
	if err != nil {
		return "", err
	}

	dir, err := cgpath.Resolve(base, cgroup)
	if err != nil {
		return "", err
	}

	if !access.MayAccess(r.Pid, r.Uid, r.Gid, base, dir, access.Read) {
		return "", fmt.Errorf("cgops: get_value: no read access to %s", dir)
	}

	path := dir + "/" + key
	if !access.MayAccess(r.Pid, r.Uid, r.Gid, base, path, access.Read) {
		return "", fmt.Errorf("cgops: get_value: no read access to %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cgops: get_value: read %s: %w", path, err)
	}

	return string(data), nil
}

// SetValue implements spec.md §4.5 SET_VALUE: writes value to
// directory/key in a single write, with no newline appended.
func (e *Executor) SetValue(controller, cgroup, key, value string, r Cred) error {
	base, err := e.requestorBase(controller, r.Pid)
	if err != nil {
		return err
	}

	dir, err := cgpath.Resolve(base, cgroup)
	if err != nil {
		return err
	}

	if !access.MayAccess(r.Pid, r.Uid, r.Gid, base, dir, access.Read) {
		return fmt.Errorf("cgops: set_value: no read access to %s", dir)
	}

	path := dir + "/" + key
	if !access.MayAccess(r.Pid, r.Uid, r.Gid, base, path, access.Read|access.Write) {
		return fmt.Errorf("cgops: set_value: no read+write access to %s", path)
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("cgops: set_value: open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(value); err != nil {
		return fmt.Errorf("cgops: set_value: write %s: %w", path, err)
	}

	return nil
}
