// Package broker implements the credential-exchange state machine that
// binds transport events to cgroup operation executors (spec.md §4.1,
// "Dispatcher and credential-exchange state machine").
package broker

import (
	"github.com/canonical/cgroupd/internal/cgops"
	"github.com/canonical/cgroupd/internal/reqproto"
	"github.com/canonical/cgroupd/internal/sockcred"
)

// step names the credential-exchange state machine's positions, in the
// order spec.md §4.1 describes them.
type step int

const (
	stepAwaitR step = iota
	stepAwaitV
	stepExecute
	stepReply
)

// Context is a single request's state: the decoded header, the two
// credential roles, and the step counter the state machine advances
// through. One Context is created per accepted connection and is owned
// exclusively by the goroutine driving that connection (spec.md §3,
// "Request context").
type Context struct {
	Header reqproto.Header

	R cgops.Cred
	V cgops.Cred

	step step
}

// NewContext allocates a request context for a freshly decoded header.
func NewContext(h reqproto.Header) *Context {
	return &Context{Header: h, step: stepAwaitR}
}

func fromSockcred(c sockcred.Cred) cgops.Cred {
	return cgops.Cred{Pid: c.Pid, Uid: c.Uid, Gid: c.Gid}
}
