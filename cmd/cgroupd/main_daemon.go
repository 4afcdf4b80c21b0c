package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/canonical/cgroupd/internal/broker"
	"github.com/canonical/cgroupd/internal/cgops"
	"github.com/canonical/cgroupd/internal/cgpath"
	"github.com/canonical/cgroupd/internal/identity"
	"github.com/canonical/cgroupd/internal/transport"
)

func run(global *cmdGlobal) error {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stdout)

	cfg, err := loadConfig(global.flagConfig)
	if err != nil {
		return err
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("cgroupd: invalid log level %q: %w", cfg.LogLevel, err)
	}

	log.SetLevel(level)

	if global.flagDaemon {
		if err := daemonize(); err != nil {
			return fmt.Errorf("cgroupd: daemonize: %w", err)
		}
	}

	if _, err := transport.EnsureCgroupRoot(cfg.CgroupRoot); err != nil {
		return err
	}

	ns := identity.LoadNamespaceIDs()
	log.WithFields(log.Fields{"pidns": ns.PidNS, "userns": ns.UserNS}).Info("namespace identifiers loaded")

	exec := cgops.NewExecutor(cfg.CgroupRoot, cgpath.ProcPidCgroup)

	srv := &transport.Server{
		SocketPath: cfg.SocketPath,
		Dispatcher: &broker.Dispatcher{Exec: exec, NS: ns},
	}

	return srv.ListenAndServe()
}
