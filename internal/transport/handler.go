package transport

import (
	"encoding/json"
	"fmt"
	"net"

	log "github.com/sirupsen/logrus"

	"github.com/canonical/cgroupd/internal/reqproto"
)

// handle decodes one request header off conn and hands the connection to
// the dispatcher. Exactly one request is served per connection: a fresh
// connection is the client's unit of request context, matching spec.md
// §3's "created on transport accept ... destroyed after the final reply".
func (s *Server) handle(conn *net.UnixConn) {
	defer conn.Close()

	header, err := readHeader(conn)
	if err != nil {
		log.WithError(err).Warn("read request header")
		return
	}

	if err := s.Dispatcher.Serve(conn, header); err != nil {
		log.WithError(err).WithField("method", header.Method).Info("request did not complete successfully")
	}
}

// readHeader reads a single newline-terminated JSON frame a byte at a
// time. A buffered reader would risk swallowing the ancillary credential
// data attached to the client's very next write, so framing is done
// byte-by-byte instead.
func readHeader(conn *net.UnixConn) (reqproto.Header, error) {
	var line []byte
	buf := make([]byte, 1)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			return reqproto.Header{}, fmt.Errorf("transport: read header: %w", err)
		}

		if n == 0 {
			continue
		}

		if buf[0] == '\n' {
			break
		}

		line = append(line, buf[0])

		if len(line) > 64*1024 {
			return reqproto.Header{}, fmt.Errorf("transport: request header too long")
		}
	}

	var h reqproto.Header
	if err := json.Unmarshal(line, &h); err != nil {
		return reqproto.Header{}, fmt.Errorf("transport: decode header: %w", err)
	}

	return h, nil
}
