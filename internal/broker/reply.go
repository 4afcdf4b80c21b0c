package broker

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/canonical/cgroupd/internal/sockcred"
)

// reply is the encoded result of EXECUTE, ready to be written to the
// client socket per the table in spec.md §4.1. Exactly one of bytes or
// pids is meaningful for a given request kind.
type reply struct {
	bytes []byte  // byte or NUL-terminated string replies; nil means a zero-length write
	pids  []int32 // GET_TASKS only: reported via credential datagrams, not bytes
	tasks bool
}

func byteReply(b byte) reply {
	return reply{bytes: []byte{b}}
}

func stringReply(s string, ok bool) reply {
	if !ok {
		return reply{bytes: []byte{}}
	}

	return reply{bytes: append([]byte(s), 0)}
}

func tasksReply(pids []int32) reply {
	return reply{tasks: true, pids: pids}
}

// writeTo writes the reply to conn. For GET_TASKS, it writes a 32-bit
// little-endian count followed by one credential datagram per pid, each
// carrying that pid with uid/gid zeroed (spec.md §4.1's table), so the
// kernel re-attests every reported pid on its way out.
func (r reply) writeTo(conn *net.UnixConn) error {
	if r.tasks {
		var countBuf [4]byte
		binary.LittleEndian.PutUint32(countBuf[:], uint32(len(r.pids)))

		if _, err := conn.Write(countBuf[:]); err != nil {
			return fmt.Errorf("broker: write task count: %w", err)
		}

		for _, pid := range r.pids {
			cred := sockcred.Cred{Pid: pid, Uid: 0, Gid: 0}
			if err := sockcred.SendCred(conn, cred); err != nil {
				return fmt.Errorf("broker: send task pid %d: %w", pid, err)
			}
		}

		return nil
	}

	if _, err := conn.Write(r.bytes); err != nil {
		return fmt.Errorf("broker: write reply: %w", err)
	}

	return nil
}
