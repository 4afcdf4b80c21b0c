package broker

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/cgroupd/internal/cgops"
	"github.com/canonical/cgroupd/internal/identity"
	"github.com/canonical/cgroupd/internal/reqproto"
)

func TestExecuteGetValueRoundTrip(t *testing.T) {
	root := t.TempDir()
	base := root + "/memory/user/1000"
	require.NoError(t, os.MkdirAll(base, 0o755))
	require.NoError(t, os.WriteFile(base+"/memory.limit_in_bytes", []byte("1048576\n"), 0o644))

	d := &Dispatcher{
		Exec: cgops.NewExecutor(root, func(root, controller string, pid int32) (string, error) { return base, nil }),
	}

	ctx := NewContext(reqproto.Header{
		Method: reqproto.MethodGetValue, Controller: "memory", Cgroup: "", Key: "memory.limit_in_bytes",
	})
	ctx.R = cgops.Cred{Pid: int32(os.Getpid()), Uid: uint32(os.Getuid()), Gid: uint32(os.Getgid())}

	rep, err := d.execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, append([]byte("1048576\n"), 0), rep.bytes)
}

func TestExecuteChownRejectsDifferentPidNS(t *testing.T) {
	root := t.TempDir()

	d := &Dispatcher{
		Exec: cgops.NewExecutor(root, func(root, controller string, pid int32) (string, error) { return root, nil }),
		NS:   identity.NamespaceIDs{PidNS: "pid:[nonexistent]"},
	}

	ctx := NewContext(reqproto.Header{Method: reqproto.MethodChown, Controller: "memory"})
	ctx.R = cgops.Cred{Pid: int32(os.Getpid())}

	rep, err := d.execute(ctx)
	assert.Error(t, err)
	assert.Equal(t, []byte{reqproto.ByteFail}, rep.bytes)
}
