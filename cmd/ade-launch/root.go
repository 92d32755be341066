package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xADE/ade-launchd/client/launch"
)

type options struct {
	socket   string
	mode     string
	limit    int
	pos      int
	action   int
	terminal bool
}

func (o *options) dial() (*launch.Client, error) {
	if o.socket != "" {
		return launch.Dial(o.socket)
	}
	return launch.NewClient()
}

// session connects and applies the mode and query shared by search and run.
func (o *options) session(args []string) (*launch.Client, error) {
	c, err := o.dial()
	if err != nil {
		return nil, err
	}
	if o.mode != "" {
		if err := c.SetMode(o.mode); err != nil {
			c.Close()
			return nil, err
		}
	}
	if err := c.Query(strings.Join(args, " ")); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "ade-launch",
		Short:         "Search and launch applications through ade-launchd",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.socket, "socket", "", "daemon socket (default $ADE_LAUNCHD_SOCK)")

	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newModesCmd(opts))
	cmd.AddCommand(newReindexCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newInteractiveCmd(opts))
	return cmd
}

func newSearchCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "List the results for a query",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.session(args)
			if err != nil {
				return err
			}
			defer c.Close()

			results, err := c.List(opts.limit)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", r.Pos, r.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "", "launcher alias to search in")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "maximum number of results")
	return cmd
}

func newRunCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [query...]",
		Short: "Launch a result of a query",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.session(args)
			if err != nil {
				return err
			}
			defer c.Close()

			var pid int
			if opts.action >= 0 {
				pid, err = c.RunAction(opts.pos, opts.action)
			} else {
				pid, err = c.Run(opts.pos, opts.terminal)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "started pid %d\n", pid)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "", "launcher alias to search in")
	cmd.Flags().IntVarP(&opts.pos, "pos", "p", 0, "result position to launch")
	cmd.Flags().IntVarP(&opts.action, "action", "a", -1, "action index of the result")
	cmd.Flags().BoolVarP(&opts.terminal, "terminal", "t", false, "run inside the terminal")
	return cmd
}

func newModesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List launcher aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.dial()
			if err != nil {
				return err
			}
			defer c.Close()

			modes, err := c.Modes()
			if err != nil {
				return err
			}
			for _, m := range modes {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", m.Alias, m.Name)
			}
			return nil
		},
	}
}

func newReindexCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the daemon's candidate list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.dial()
			if err != nil {
				return err
			}
			defer c.Close()

			n, err := c.Reindex()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d candidates\n", n)
			return nil
		},
	}
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.dial()
			if err != nil {
				return err
			}
			defer c.Close()

			status, err := c.Status()
			if err != nil {
				return err
			}
			for _, key := range []string{"candidates", "modes", "sessions"} {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", key, status[key])
			}
			return nil
		},
	}
}
