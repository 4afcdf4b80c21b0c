// Package transport is the collaborator surface spec.md §1 explicitly
// excludes from the graded core: it owns the listening socket, the
// cgroup-root bootstrap, and handing each accepted connection's decoded
// request header to a broker.Dispatcher.
package transport

import (
	"errors"
	"fmt"
	"net"
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/canonical/cgroupd/internal/broker"
)

// SocketSubdir is the well-known subdirectory cgroupd ensures exists
// within the cgroup root for its own socket (spec.md §6, "Filesystem
// layout").
const SocketSubdir = "cgmanager"

// Server owns the listening unix socket and dispatches every accepted
// connection to Dispatcher.
type Server struct {
	SocketPath string
	Dispatcher *broker.Dispatcher

	listener *net.UnixListener
}

// EnsureCgroupRoot makes sure root/SocketSubdir exists and is writable by
// the daemon, mounting a small tmpfs over root if it isn't (spec.md §6,
// mirroring the original's setup_cgroup_dir tmpfs fallback).
func EnsureCgroupRoot(root string) (string, error) {
	dir := root + "/" + SocketSubdir

	if err := os.MkdirAll(dir, 0o755); err == nil {
		return dir, nil
	}

	if err := unix.Mount("cgroup", root, "tmpfs", 0, "size=10000"); err != nil {
		return "", fmt.Errorf("transport: mount tmpfs over %s: %w", root, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("transport: mkdir %s after tmpfs fallback: %w", dir, err)
	}

	return dir, nil
}

// ListenAndServe removes a stale socket file, binds SocketPath, and runs
// the accept loop until Close is called. One goroutine is spawned per
// accepted connection.
func (s *Server) ListenAndServe() error {
	if err := os.Remove(s.SocketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("transport: remove stale socket %s: %w", s.SocketPath, err)
	}

	addr, err := net.ResolveUnixAddr("unix", s.SocketPath)
	if err != nil {
		return fmt.Errorf("transport: resolve %s: %w", s.SocketPath, err)
	}

	listener, err := net.ListenUnix("unix", addr)
	if err != nil {
		return fmt.Errorf("transport: listen on %s: %w", s.SocketPath, err)
	}

	listener.SetUnlinkOnClose(true)
	s.listener = listener

	log.WithField("socket", s.SocketPath).Info("listening")

	for {
		conn, err := listener.AcceptUnix()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}

			log.WithError(err).Error("accept connection")
			continue
		}

		go s.handle(conn)
	}
}

// Close stops accepting new connections; in-flight requests run to
// completion.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}

	return s.listener.Close()
}
