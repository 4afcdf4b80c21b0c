package broker

import (
	"fmt"

	"github.com/canonical/cgroupd/internal/identity"
	"github.com/canonical/cgroupd/internal/reqproto"
)

// execute runs the executor for ctx.Header.Method and encodes the result,
// per spec.md §4.1's reply table. The returned error is nil exactly when
// the reply is a success code; it is always non-nil alongside a failure
// reply, for the caller to log.
func (d *Dispatcher) execute(ctx *Context) (reply, error) {
	h := ctx.Header

	switch h.Method {
	case reqproto.MethodPing:
		return byteReply(reqproto.ByteSuccess), nil

	case reqproto.MethodCreate:
		existed, err := d.Exec.Create(h.Controller, h.Cgroup, ctx.R)
		if err != nil {
			return byteReply(reqproto.ByteFail), err
		}

		if existed == 2 {
			return byteReply(reqproto.ByteExistedOrKeep), nil
		}

		return byteReply(reqproto.ByteSuccess), nil

	case reqproto.MethodRemove:
		existed, err := d.Exec.Remove(h.Controller, h.Cgroup, h.Recursive, ctx.R)
		if err != nil {
			return byteReply(reqproto.ByteFail), err
		}

		if existed == 2 {
			return byteReply(reqproto.ByteExistedOrKeep), nil
		}

		return byteReply(reqproto.ByteSuccess), nil

	case reqproto.MethodMovePid:
		if err := d.Exec.MovePid(h.Controller, h.Cgroup, ctx.R, ctx.V); err != nil {
			return byteReply(reqproto.ByteFail), err
		}

		return byteReply(reqproto.ByteSuccess), nil

	case reqproto.MethodChown:
		if err := d.guardChown(ctx); err != nil {
			return byteReply(reqproto.ByteFail), err
		}

		if err := d.Exec.Chown(h.Controller, h.Cgroup, ctx.R, ctx.V); err != nil {
			return byteReply(reqproto.ByteFail), err
		}

		return byteReply(reqproto.ByteSuccess), nil

	case reqproto.MethodGetPidCgroup:
		if !d.NS.SamePidNS(ctx.R.Pid) {
			err := fmt.Errorf("broker: getPidCgroup: peer %d not in daemon pid namespace", ctx.R.Pid)
			return stringReply("", false), err
		}

		rel, err := d.Exec.GetPid(h.Controller, ctx.R, ctx.V)
		if err != nil {
			return stringReply("", false), err
		}

		return stringReply(rel, true), nil

	case reqproto.MethodGetValue:
		val, err := d.Exec.GetValue(h.Controller, h.Cgroup, h.Key, ctx.R)
		if err != nil {
			return stringReply("", false), err
		}

		return stringReply(val, true), nil

	case reqproto.MethodSetValue:
		if err := d.Exec.SetValue(h.Controller, h.Cgroup, h.Key, h.Value, ctx.R); err != nil {
			return byteReply(reqproto.ByteFail), err
		}

		return byteReply(reqproto.ByteSuccess), nil

	case reqproto.MethodGetTasks:
		pids, err := d.Exec.GetTasks(h.Controller, h.Cgroup, ctx.R)
		if err != nil {
			return tasksReply(nil), err
		}

		return tasksReply(pids), nil

	default:
		return byteReply(reqproto.ByteFail), fmt.Errorf("broker: unknown method %q", h.Method)
	}
}

// guardChown enforces the namespace and root-in-own-userns preconditions
// spec.md §4.2 assigns to CHOWN specifically, ahead of the executor call.
func (d *Dispatcher) guardChown(ctx *Context) error {
	if !d.NS.SamePidNS(ctx.R.Pid) {
		return fmt.Errorf("broker: chown: peer %d not in daemon pid namespace", ctx.R.Pid)
	}

	if !d.NS.SameUserNS(ctx.R.Pid) {
		return fmt.Errorf("broker: chown: peer %d not in daemon user namespace", ctx.R.Pid)
	}

	if !identity.IsRootInOwnUserNS(ctx.R.Uid, ctx.R.Pid) {
		return fmt.Errorf("broker: chown: peer %d is not root in its own user namespace", ctx.R.Pid)
	}

	return nil
}
