package broker

import (
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/canonical/cgroupd/internal/cgops"
	"github.com/canonical/cgroupd/internal/identity"
	"github.com/canonical/cgroupd/internal/reqproto"
	"github.com/canonical/cgroupd/internal/sockcred"
)

// Dispatcher binds one cgops.Executor and the daemon's cached namespace
// identifiers to the credential-exchange state machine. One Dispatcher is
// shared read-only across every connection; it holds no per-request state
// itself (spec.md §5: "no cross-request shared mutable state").
type Dispatcher struct {
	Exec *cgops.Executor
	NS   identity.NamespaceIDs
}

// Serve drives a single request's state machine to completion: AWAIT_R,
// optionally KICK and AWAIT_V, EXECUTE, REPLY. Once EXECUTE is reached it
// writes exactly one reply and returns the error that produced a negative
// reply, if any, for the caller to log. A transport-level error before
// EXECUTE (enabling SO_PASSCRED, a credential read failure) is returned
// directly without a reply being written; an error writing the reply is
// returned in place of the executor's error.
func (d *Dispatcher) Serve(conn *net.UnixConn, h reqproto.Header) error {
	entry := logrus.WithFields(logrus.Fields{
		"request": uuid.New().String(),
		"method":  h.Method,
	})

	if err := sockcred.EnablePassCred(conn); err != nil {
		entry.WithError(err).Error("enable SO_PASSCRED")
		return err
	}

	ctx := NewContext(h)

	if err := d.awaitR(conn, ctx); err != nil {
		entry.WithError(err).Warn("await requestor credentials")
		return err
	}

	entry = entry.WithFields(logrus.Fields{"r.pid": ctx.R.Pid, "r.uid": ctx.R.Uid, "r.gid": ctx.R.Gid})

	if h.Method.NeedsTwoCreds() {
		if err := d.awaitV(conn, ctx); err != nil {
			entry.WithError(err).Warn("await victim credentials")
			return err
		}

		entry = entry.WithFields(logrus.Fields{"v.pid": ctx.V.Pid, "v.uid": ctx.V.Uid, "v.gid": ctx.V.Gid})
	}

	ctx.step = stepExecute
	reply, execErr := d.execute(ctx)
	if execErr != nil {
		entry.WithError(execErr).Info("request failed")
	}

	ctx.step = stepReply
	if err := reply.writeTo(conn); err != nil {
		entry.WithError(err).Error("write reply")
		return err
	}

	return execErr
}

func (d *Dispatcher) awaitR(conn *net.UnixConn, ctx *Context) error {
	var cred sockcred.Cred
	var err error

	if ctx.Header.Scm {
		cred, err = sockcred.ReadCred(conn)
	} else {
		// Plain variant: R is whoever is on the other end of the
		// connection itself, read once via SO_PEERCRED; no datagram
		// handshake (spec.md §4.1/§6).
		cred, err = sockcred.PeerCred(conn)
	}

	if err != nil {
		return fmt.Errorf("broker: await R: %w", err)
	}

	ctx.R = fromSockcred(cred)
	ctx.step = stepAwaitV

	return nil
}

func (d *Dispatcher) awaitV(conn *net.UnixConn, ctx *Context) error {
	if !ctx.Header.Scm {
		// Plain variant: the victim is named by value in the header,
		// never kernel-attested (spec.md §6, the "plain" request
		// surface variant).
		ctx.V = cgops.Cred{
			Pid: int32(ctx.Header.PlainVictimPid),
			Uid: ctx.Header.PlainVictimUid,
			Gid: ctx.Header.PlainVictimGid,
		}

		return nil
	}

	if err := sockcred.Kick(conn); err != nil {
		return fmt.Errorf("broker: kick for V: %w", err)
	}

	cred, err := sockcred.ReadCred(conn)
	if err != nil {
		return fmt.Errorf("broker: await V: %w", err)
	}

	ctx.V = fromSockcred(cred)

	return nil
}
