package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/strategy"

	"github.com/canonical/cgroupd/internal/reqproto"
	"github.com/canonical/cgroupd/internal/sockcred"
)

// Client is a thin wire-level client for cgroupd, covering the nine
// logical methods of spec.md §6's request surface, ping included. It exists to
// exercise the daemon end-to-end, the role the original's standalone test
// client plays as an explicitly named collaborator (spec.md §1).
type Client struct {
	SocketPath string
	Scm        bool
}

func (c *Client) dial() (*net.UnixConn, error) {
	var conn *net.UnixConn

	err := retry.Retry(func(attempt uint) error {
		dialed, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: c.SocketPath, Net: "unix"})
		if err != nil {
			return fmt.Errorf("dial %s: %w", c.SocketPath, err)
		}

		conn = dialed
		return nil
	}, strategy.Limit(3), strategy.Backoff(func(attempt uint) time.Duration {
		return time.Duration(attempt+1) * 50 * time.Millisecond
	}))

	return conn, err
}

// selfCred is the identity the client attests as the requestor, R.
func selfCred() sockcred.Cred {
	return sockcred.Cred{Pid: int32(os.Getpid()), Uid: uint32(os.Getuid()), Gid: uint32(os.Getgid())}
}

// call performs the full client side of the state machine for a single
// request: send the header, attest R, optionally kick/attest V, and leave
// conn positioned to read the reply.
func (c *Client) call(h reqproto.Header, victim sockcred.Cred) (*net.UnixConn, error) {
	h.Scm = c.Scm

	if !c.Scm {
		h.PlainVictimPid = uint32(victim.Pid)
		h.PlainVictimUid = victim.Uid
		h.PlainVictimGid = victim.Gid
	}

	conn, err := c.dial()
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(h)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("encode header: %w", err)
	}

	if _, err := conn.Write(append(encoded, '\n')); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}

	// Plain variant: the daemon reads R straight off the connection via
	// SO_PEERCRED, so no credential datagram is sent for it.
	if c.Scm {
		if err := sockcred.SendCred(conn, selfCred()); err != nil {
			conn.Close()
			return nil, fmt.Errorf("attest requestor: %w", err)
		}
	}

	if h.Method.NeedsTwoCreds() && c.Scm {
		kick := make([]byte, 1)
		if _, err := conn.Read(kick); err != nil {
			conn.Close()
			return nil, fmt.Errorf("await kick: %w", err)
		}

		if err := sockcred.SendCred(conn, victim); err != nil {
			conn.Close()
			return nil, fmt.Errorf("attest victim: %w", err)
		}
	}

	return conn, nil
}

func readByteReply(conn *net.UnixConn) (byte, error) {
	defer conn.Close()

	buf := make([]byte, 1)
	if _, err := conn.Read(buf); err != nil {
		return 0, fmt.Errorf("read reply: %w", err)
	}

	return buf[0], nil
}

func readStringReply(conn *net.UnixConn) (string, bool, error) {
	defer conn.Close()

	r := bufio.NewReader(conn)
	s, err := r.ReadString(0)
	if err != nil {
		return "", false, nil
	}

	return s[:len(s)-1], true, nil
}

func readTasksReply(conn *net.UnixConn) ([]int32, error) {
	defer conn.Close()

	var countBuf [4]byte
	if _, err := conn.Read(countBuf[:]); err != nil {
		return nil, fmt.Errorf("read task count: %w", err)
	}

	count := binary.LittleEndian.Uint32(countBuf[:])

	pids := make([]int32, 0, count)
	for i := uint32(0); i < count; i++ {
		cred, err := sockcred.ReadCred(conn)
		if err != nil {
			return nil, fmt.Errorf("read task %d: %w", i, err)
		}

		pids = append(pids, cred.Pid)
	}

	return pids, nil
}

// Ping sends a single integer and checks for a success reply.
func (c *Client) Ping(value int32) error {
	conn, err := c.call(reqproto.Header{Method: reqproto.MethodPing, PingValue: value}, sockcred.Cred{})
	if err != nil {
		return err
	}

	b, err := readByteReply(conn)
	if err != nil {
		return err
	}

	if b != reqproto.ByteSuccess {
		return fmt.Errorf("ping failed")
	}

	return nil
}

// Create calls CREATE and reports spec.md §4.1's three-way outcome.
func (c *Client) Create(controller, cgroup string) (byte, error) {
	conn, err := c.call(reqproto.Header{Method: reqproto.MethodCreate, Controller: controller, Cgroup: cgroup}, sockcred.Cred{})
	if err != nil {
		return 0, err
	}

	return readByteReply(conn)
}

// Remove calls REMOVE.
func (c *Client) Remove(controller, cgroup string, recursive bool) (byte, error) {
	h := reqproto.Header{Method: reqproto.MethodRemove, Controller: controller, Cgroup: cgroup, Recursive: recursive}
	conn, err := c.call(h, sockcred.Cred{})
	if err != nil {
		return 0, err
	}

	return readByteReply(conn)
}

// MovePid calls MOVE_PID for victim.
func (c *Client) MovePid(controller, cgroup string, victim sockcred.Cred) (byte, error) {
	conn, err := c.call(reqproto.Header{Method: reqproto.MethodMovePid, Controller: controller, Cgroup: cgroup}, victim)
	if err != nil {
		return 0, err
	}

	return readByteReply(conn)
}

// Chown calls CHOWN for victim.
func (c *Client) Chown(controller, cgroup string, victim sockcred.Cred) (byte, error) {
	conn, err := c.call(reqproto.Header{Method: reqproto.MethodChown, Controller: controller, Cgroup: cgroup}, victim)
	if err != nil {
		return 0, err
	}

	return readByteReply(conn)
}

// GetPidCgroup calls GET_PID for victim, returning victim's cgroup path
// relative to the caller's own.
func (c *Client) GetPidCgroup(controller string, victim sockcred.Cred) (string, error) {
	conn, err := c.call(reqproto.Header{Method: reqproto.MethodGetPidCgroup, Controller: controller}, victim)
	if err != nil {
		return "", err
	}

	s, ok, err := readStringReply(conn)
	if err != nil {
		return "", err
	}

	if !ok {
		return "", fmt.Errorf("getPidCgroup failed")
	}

	return s, nil
}

// GetValue calls GET_VALUE.
func (c *Client) GetValue(controller, cgroup, key string) (string, error) {
	h := reqproto.Header{Method: reqproto.MethodGetValue, Controller: controller, Cgroup: cgroup, Key: key}
	conn, err := c.call(h, sockcred.Cred{})
	if err != nil {
		return "", err
	}

	s, ok, err := readStringReply(conn)
	if err != nil {
		return "", err
	}

	if !ok {
		return "", fmt.Errorf("getValue failed")
	}

	return s, nil
}

// SetValue calls SET_VALUE.
func (c *Client) SetValue(controller, cgroup, key, value string) (byte, error) {
	h := reqproto.Header{Method: reqproto.MethodSetValue, Controller: controller, Cgroup: cgroup, Key: key, Value: value}
	conn, err := c.call(h, sockcred.Cred{})
	if err != nil {
		return 0, err
	}

	return readByteReply(conn)
}

// GetTasks calls GET_TASKS.
func (c *Client) GetTasks(controller, cgroup string) ([]int32, error) {
	h := reqproto.Header{Method: reqproto.MethodGetTasks, Controller: controller, Cgroup: cgroup}
	conn, err := c.call(h, sockcred.Cred{})
	if err != nil {
		return nil, err
	}

	return readTasksReply(conn)
}
