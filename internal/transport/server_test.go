package transport

import (
	"bufio"
	"encoding/json"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/cgroupd/internal/broker"
	"github.com/canonical/cgroupd/internal/cgops"
	"github.com/canonical/cgroupd/internal/identity"
	"github.com/canonical/cgroupd/internal/reqproto"
	"github.com/canonical/cgroupd/internal/sockcred"
)

func TestEnsureCgroupRoot(t *testing.T) {
	root := t.TempDir()

	dir, err := EnsureCgroupRoot(root)
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, root+"/"+SocketSubdir, dir)
}

func TestServerPingEndToEnd(t *testing.T) {
	sockPath := t.TempDir() + "/cgroupd.sock"

	exec := cgops.NewExecutor(t.TempDir(), func(root, controller string, pid int32) (string, error) { return root, nil })
	srv := &Server{
		SocketPath: sockPath,
		Dispatcher: &broker.Dispatcher{Exec: exec, NS: identity.NamespaceIDs{}},
	}

	go srv.ListenAndServe()
	defer srv.Close()

	waitForSocket(t, sockPath)

	conn, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: sockPath, Net: "unix"})
	require.NoError(t, err)
	defer conn.Close()

	header, err := json.Marshal(reqproto.Header{Method: reqproto.MethodPing})
	require.NoError(t, err)

	_, err = conn.Write(append(header, '\n'))
	require.NoError(t, err)

	// Plain variant (the header's zero-value Scm field): the dispatcher
	// attests R via SO_PEERCRED on the connection itself, so no
	// credential datagram follows the header.
	buf := make([]byte, 1)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, reqproto.ByteSuccess, buf[0])
}

func TestServerScmVariantEndToEnd(t *testing.T) {
	sockPath := t.TempDir() + "/cgroupd.sock"

	exec := cgops.NewExecutor(t.TempDir(), func(root, controller string, pid int32) (string, error) { return root, nil })
	srv := &Server{
		SocketPath: sockPath,
		Dispatcher: &broker.Dispatcher{Exec: exec, NS: identity.NamespaceIDs{}},
	}

	go srv.ListenAndServe()
	defer srv.Close()

	waitForSocket(t, sockPath)

	conn, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: sockPath, Net: "unix"})
	require.NoError(t, err)
	defer conn.Close()

	header, err := json.Marshal(reqproto.Header{Method: reqproto.MethodGetPidCgroup, Scm: true, Controller: "memory"})
	require.NoError(t, err)

	_, err = conn.Write(append(header, '\n'))
	require.NoError(t, err)

	self := sockcred.Cred{Pid: int32(os.Getpid()), Uid: uint32(os.Getuid()), Gid: uint32(os.Getgid())}

	// Scm variant: a datagram attests R, then the dispatcher kicks for a
	// second datagram attesting V.
	require.NoError(t, sockcred.SendCred(conn, self))

	kick := make([]byte, 1)
	_, err = conn.Read(kick)
	require.NoError(t, err)

	require.NoError(t, sockcred.SendCred(conn, self))

	reply := bufio.NewReader(conn)
	s, err := reply.ReadString(0)
	require.NoError(t, err)
	assert.Equal(t, "/", s[:len(s)-1])
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()

	for i := 0; i < 100; i++ {
		if _, err := os.Stat(path); err == nil {
			return
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("socket %s never appeared", path)
}
