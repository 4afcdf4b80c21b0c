// Package sockcred implements the kernel-attested credential exchange used
// by the dispatcher's state machine (spec.md §4.1): enabling SO_PASSCRED on
// a unix socket, reading SO_PEERCRED directly, and sending/receiving
// SCM_CREDENTIALS ancillary data.
//
// The wire shape mirrors how github.com/canonical/lxd/devlxd.go's
// DevLxdDialer attaches a struct ucred to an outgoing unix socket write;
// this package adds the daemon-side counterpart (reading it back) that the
// example pack didn't retain a full copy of.
package sockcred

import (
	"errors"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// Cred is a kernel-attested (pid, uid, gid) triple.
type Cred struct {
	Pid int32
	Uid uint32
	Gid uint32
}

// ErrNoCreds is returned when a datagram carried no ancillary credentials.
var ErrNoCreds = errors.New("sockcred: no credentials in ancillary data")

// EnablePassCred turns on SO_PASSCRED on conn so that subsequent reads can
// carry SCM_CREDENTIALS ancillary data sent by the peer.
func EnablePassCred(conn *net.UnixConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("sockcred: get raw conn: %w", err)
	}

	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_PASSCRED, 1)
	})
	if err != nil {
		return fmt.Errorf("sockcred: control: %w", err)
	}

	if sockErr != nil {
		return fmt.Errorf("sockcred: setsockopt SO_PASSCRED: %w", sockErr)
	}

	return nil
}

// PeerCred reads the kernel-attested credentials of whoever is on the other
// end of conn via getsockopt(SO_PEERCRED). This is the "plain" variant's
// single-shot attestation: no handshake, the peer IS whoever dialed us.
func PeerCred(conn *net.UnixConn) (Cred, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return Cred{}, fmt.Errorf("sockcred: get raw conn: %w", err)
	}

	var ucred *unix.Ucred
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		ucred, sockErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return Cred{}, fmt.Errorf("sockcred: control: %w", err)
	}

	if sockErr != nil {
		return Cred{}, fmt.Errorf("sockcred: getsockopt SO_PEERCRED: %w", sockErr)
	}

	return Cred{Pid: ucred.Pid, Uid: ucred.Uid, Gid: ucred.Gid}, nil
}

// Kick writes a single byte to conn, prompting the peer to send a
// credential-bearing datagram (spec.md §4.1's "kick").
func Kick(conn *net.UnixConn) error {
	_, err := conn.Write([]byte{'1'})
	if err != nil {
		return fmt.Errorf("sockcred: kick: %w", err)
	}

	return nil
}

// ReadCred reads one datagram off conn and returns the SCM_CREDENTIALS
// ancillary data attached to it. The caller must have called
// EnablePassCred first.
func ReadCred(conn *net.UnixConn) (Cred, error) {
	buf := make([]byte, 1)
	oob := make([]byte, unix.CmsgSpace(unix.SizeofUcred))

	_, oobn, _, _, err := conn.ReadMsgUnix(buf, oob)
	if err != nil {
		return Cred{}, fmt.Errorf("sockcred: read msg: %w", err)
	}

	if oobn == 0 {
		return Cred{}, ErrNoCreds
	}

	scms, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return Cred{}, fmt.Errorf("sockcred: parse control message: %w", err)
	}

	if len(scms) == 0 {
		return Cred{}, ErrNoCreds
	}

	ucred, err := unix.ParseUnixCredentials(&scms[0])
	if err != nil {
		return Cred{}, fmt.Errorf("sockcred: parse unix credentials: %w", err)
	}

	return Cred{Pid: ucred.Pid, Uid: ucred.Uid, Gid: ucred.Gid}, nil
}

// SendCred writes a credential-bearing datagram carrying cred to conn. Used
// both by a client attesting itself (the movePid/chown victim exchange) and
// by the daemon attesting pids back to the client for getTasks, so the
// kernel re-validates each reported pid.
func SendCred(conn *net.UnixConn, cred Cred) error {
	ucred := &unix.Ucred{Pid: cred.Pid, Uid: cred.Uid, Gid: cred.Gid}
	oob := unix.UnixCredentials(ucred)

	_, _, err := conn.WriteMsgUnix([]byte{'p'}, oob, nil)
	if err != nil {
		return fmt.Errorf("sockcred: send cred: %w", err)
	}

	return nil
}
