package cgops

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSetValue(t *testing.T) {
	root := t.TempDir()
	base := root + "/memory/user/1000"
	require.NoError(t, os.MkdirAll(base+"/a", 0o755))
	require.NoError(t, os.WriteFile(base+"/a/memory.limit_in_bytes", []byte("4096\n"), 0o644))

	exec := NewExecutor(root, fixedLookup(base))
	r := selfCred(t)

	val, err := exec.GetValue("memory", "a", "memory.limit_in_bytes", r)
	require.NoError(t, err)
	assert.Equal(t, "4096\n", val)

	err = exec.SetValue("memory", "a", "memory.limit_in_bytes", "8192", r)
	require.NoError(t, err)

	data, err := os.ReadFile(base + "/a/memory.limit_in_bytes")
	require.NoError(t, err)
	assert.Equal(t, "8192", string(data))
}
