package main

import (
	"fmt"
	"os"
	"syscall"
)

// daemonizeEnv marks a re-exec'd child as already detached, so it runs the
// daemon loop in place instead of forking again.
const daemonizeEnv = "CGROUPD_DAEMONIZED"

// daemonize detaches the process into the background. Go's runtime
// forbids a bare fork() once multiple OS threads are running, so this
// re-execs the binary with Setsid in its SysProcAttr rather than forking
// in place; no daemonization library appears anywhere in the reference
// corpus, so this is hand-rolled on top of syscall/os directly.
func daemonize() error {
	if os.Getenv(daemonizeEnv) == "1" {
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("find executable: %w", err)
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	proc, err := os.StartProcess(exe, os.Args, &os.ProcAttr{
		Env:   append(os.Environ(), daemonizeEnv+"=1"),
		Files: []*os.File{devNull, devNull, devNull},
		Sys:   &syscall.SysProcAttr{Setsid: true},
	})
	if err != nil {
		return fmt.Errorf("start detached process: %w", err)
	}

	if err := proc.Release(); err != nil {
		return fmt.Errorf("release detached process: %w", err)
	}

	os.Exit(0)
	return nil
}
