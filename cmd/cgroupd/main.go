package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/canonical/cgroupd/internal/version"
)

type cmdGlobal struct {
	flagHelp    bool
	flagVersion bool
	flagDaemon  bool
	flagConfig  string
}

func main() {
	global := &cmdGlobal{}

	app := &cobra.Command{}
	app.Use = "cgroupd"
	app.Short = "Cgroup management broker"
	app.Long = `Description:
  Cgroup management broker

  cgroupd is a privileged local daemon that brokers cgroup creation,
  removal, process migration, attribute access, and ownership changes on
  behalf of unprivileged, possibly namespaced clients connecting over a
  local unix socket.
`
	app.SilenceUsage = true
	app.CompletionOptions = cobra.CompletionOptions{DisableDefaultCmd: true}
	app.RunE = func(cmd *cobra.Command, args []string) error {
		return run(global)
	}

	app.PersistentFlags().BoolVar(&global.flagVersion, "version", false, "Print version number")
	app.PersistentFlags().BoolVarP(&global.flagHelp, "help", "h", false, "Print help")
	app.PersistentFlags().BoolVar(&global.flagDaemon, "daemon", false, "Detach and run as a background daemon")
	app.PersistentFlags().StringVar(&global.flagConfig, "config", "", "Path to an optional YAML config file")

	app.SetVersionTemplate("{{.Version}}\n")
	app.Version = version.Version

	if err := app.Execute(); err != nil {
		os.Exit(1)
	}
}
