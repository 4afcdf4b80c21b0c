package cgops

import (
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChown(t *testing.T) {
	if os.Getuid() != 0 {
		t.Skip("chown to an arbitrary uid requires root")
	}

	root := t.TempDir()
	base := root + "/memory/user/1000"
	require.NoError(t, os.MkdirAll(base+"/a", 0o755))
	require.NoError(t, os.WriteFile(base+"/a/tasks", nil, 0o644))
	require.NoError(t, os.WriteFile(base+"/a/cgroup.procs", nil, 0o644))

	exec := NewExecutor(root, fixedLookup(base))
	r := selfCred(t)
	v := Cred{Pid: r.Pid, Uid: 1000, Gid: 1000}

	err := exec.Chown("memory", "a", r, v)
	require.NoError(t, err)

	st, err := os.Stat(base + "/a")
	require.NoError(t, err)
	require.Equal(t, uint32(1000), st.Sys().(*syscall.Stat_t).Uid)
}
