package cgops

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pidKeyedLookup(byPid map[int32]string) func(root, controller string, pid int32) (string, error) {
	return func(root, controller string, pid int32) (string, error) {
		return byPid[pid], nil
	}
}

func TestGetPidDescendant(t *testing.T) {
	root := t.TempDir()
	rBase := root + "/memory/user/1000"
	vBase := rBase + "/a/b"
	require.NoError(t, os.MkdirAll(vBase, 0o755))

	r := selfCred(t)
	v := Cred{Pid: r.Pid + 1}

	exec := NewExecutor(root, pidKeyedLookup(map[int32]string{r.Pid: rBase, v.Pid: vBase}))

	rel, err := exec.GetPid("memory", r, v)
	require.NoError(t, err)
	assert.Equal(t, "a/b", rel)
}

func TestGetPidRejectsNonDescendant(t *testing.T) {
	root := t.TempDir()
	rBase := root + "/memory/user/1000"
	vBase := root + "/memory/user/2000"
	require.NoError(t, os.MkdirAll(rBase, 0o755))
	require.NoError(t, os.MkdirAll(vBase, 0o755))

	r := selfCred(t)
	v := Cred{Pid: r.Pid + 1}

	exec := NewExecutor(root, pidKeyedLookup(map[int32]string{r.Pid: rBase, v.Pid: vBase}))

	_, err := exec.GetPid("memory", r, v)
	assert.Error(t, err)
}

func TestGetTasks(t *testing.T) {
	root := t.TempDir()
	base := root + "/memory/user/1000"
	require.NoError(t, os.MkdirAll(base+"/a", 0o755))
	require.NoError(t, os.WriteFile(base+"/a/tasks", []byte("100\n200\n"), 0o644))

	exec := NewExecutor(root, fixedLookup(base))

	pids, err := exec.GetTasks("memory", "a", selfCred(t))
	require.NoError(t, err)
	assert.Equal(t, []int32{100, 200}, pids)
}
