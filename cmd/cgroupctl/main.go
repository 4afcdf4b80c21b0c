package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/canonical/cgroupd/internal/version"
)

func main() {
	client := &Client{}

	app := &cobra.Command{
		Use:   "cgroupctl",
		Short: "Exercise a running cgroupd over its unix socket",
	}
	app.SilenceUsage = true
	app.CompletionOptions = cobra.CompletionOptions{DisableDefaultCmd: true}
	app.Version = version.Version

	app.PersistentFlags().StringVar(&client.SocketPath, "socket", "/sys/fs/cgroup/cgmanager/sock", "Path to the cgroupd socket")
	app.PersistentFlags().BoolVar(&client.Scm, "scm", false, "Use the two-datagram credential handshake instead of the plain variant")

	for _, cmd := range commands(client) {
		app.AddCommand(cmd)
	}

	if err := app.Execute(); err != nil {
		os.Exit(1)
	}
}
