package main

import (
	"fmt"
	"strconv"

	"github.com/mattn/go-colorable"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/canonical/cgroupd/internal/reqproto"
	"github.com/canonical/cgroupd/internal/sockcred"
)

// stdout is wrapped through go-colorable so ANSI pass/fail coloring
// degrades gracefully on terminals that need it translated.
var stdout = colorable.NewColorableStdout()

func printResult(ok bool, format string, args ...interface{}) {
	color := "\x1b[32m"
	label := "OK"
	if !ok {
		color = "\x1b[31m"
		label = "FAIL"
	}

	fmt.Fprintf(stdout, "%s[%s]\x1b[0m "+format+"\n", append([]interface{}{color, label}, args...)...)
}

func victimFromFlags(pid, uid, gid int32) sockcred.Cred {
	return sockcred.Cred{Pid: pid, Uid: uint32(uid), Gid: uint32(gid)}
}

func commands(client *Client) []*cobra.Command {
	return []*cobra.Command{
		cmdPing(client),
		cmdCreate(client),
		cmdRemove(client),
		cmdMovePid(client),
		cmdChown(client),
		cmdGetPidCgroup(client),
		cmdGetValue(client),
		cmdSetValue(client),
		cmdGetTasks(client),
	}
}

func cmdPing(c *Client) *cobra.Command {
	var value int

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that cgroupd is alive",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.Ping(int32(value))
			printResult(err == nil, "ping")
			return err
		},
	}

	cmd.Flags().IntVar(&value, "value", 0, "Value to send")
	return cmd
}

func cmdCreate(c *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <controller> <cgroup>",
		Short: "Create a cgroup, component by component",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := c.Create(args[0], args[1])
			printResult(b != reqproto.ByteFail, "create %s %s -> %q", args[0], args[1], b)
			return err
		},
	}

	return cmd
}

func cmdRemove(c *Client) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "remove <controller> <cgroup>",
		Short: "Remove a cgroup",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := c.Remove(args[0], args[1], recursive)
			printResult(b != reqproto.ByteFail, "remove %s %s -> %q", args[0], args[1], b)
			return err
		},
	}

	cmd.Flags().BoolVar(&recursive, "recursive", false, "Remove subdirectories too")
	return cmd
}

func cmdMovePid(c *Client) *cobra.Command {
	var victimPid, victimUid, victimGid int

	cmd := &cobra.Command{
		Use:   "move-pid <controller> <cgroup>",
		Short: "Move a victim process's pid into a cgroup's tasks file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := victimFromFlags(int32(victimPid), int32(victimUid), int32(victimGid))
			b, err := c.MovePid(args[0], args[1], v)
			printResult(b == reqproto.ByteSuccess, "move-pid %s %s pid=%d -> %q", args[0], args[1], victimPid, b)
			return err
		},
	}

	addVictimFlags(cmd, &victimPid, &victimUid, &victimGid)
	return cmd
}

func cmdChown(c *Client) *cobra.Command {
	var victimPid, victimUid, victimGid int

	cmd := &cobra.Command{
		Use:   "chown <controller> <cgroup>",
		Short: "Change ownership of a cgroup directory to a victim uid/gid",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := victimFromFlags(int32(victimPid), int32(victimUid), int32(victimGid))
			b, err := c.Chown(args[0], args[1], v)
			printResult(b == reqproto.ByteSuccess, "chown %s %s -> uid=%d gid=%d -> %q", args[0], args[1], victimUid, victimGid, b)
			return err
		},
	}

	addVictimFlags(cmd, &victimPid, &victimUid, &victimGid)
	return cmd
}

func cmdGetPidCgroup(c *Client) *cobra.Command {
	var victimPid int

	cmd := &cobra.Command{
		Use:   "get-pid-cgroup <controller>",
		Short: "Report a victim pid's cgroup relative to the caller's own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := victimFromFlags(int32(victimPid), 0, 0)
			rel, err := c.GetPidCgroup(args[0], v)
			printResult(err == nil, "get-pid-cgroup %s pid=%d -> %q", args[0], victimPid, rel)
			return err
		},
	}

	cmd.Flags().IntVar(&victimPid, "victim-pid", 0, "Victim process pid")
	return cmd
}

func cmdGetValue(c *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get-value <controller> <cgroup> <key>",
		Short: "Read a controller attribute file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			val, err := c.GetValue(args[0], args[1], args[2])
			printResult(err == nil, "get-value %s %s %s -> %q", args[0], args[1], args[2], val)
			return err
		},
	}

	return cmd
}

func cmdSetValue(c *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-value <controller> <cgroup> <key> <value>",
		Short: "Write a controller attribute file",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := c.SetValue(args[0], args[1], args[2], args[3])
			printResult(b == reqproto.ByteSuccess, "set-value %s %s %s %s -> %q", args[0], args[1], args[2], args[3], b)
			return err
		},
	}

	return cmd
}

func cmdGetTasks(c *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get-tasks <controller> <cgroup>",
		Short: "List the pids currently in a cgroup's tasks file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pids, err := c.GetTasks(args[0], args[1])
			if err != nil {
				printResult(false, "get-tasks %s %s", args[0], args[1])
				return err
			}

			table := tablewriter.NewWriter(stdout)
			table.SetHeader([]string{"pid"})
			for _, pid := range pids {
				table.Append([]string{strconv.Itoa(int(pid))})
			}
			table.Render()

			return nil
		},
	}

	return cmd
}

func addVictimFlags(cmd *cobra.Command, pid, uid, gid *int) {
	cmd.Flags().IntVar(pid, "victim-pid", 0, "Victim process pid")
	cmd.Flags().IntVar(uid, "victim-uid", 0, "Victim uid")
	cmd.Flags().IntVar(gid, "victim-gid", 0, "Victim gid")
}
