package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xADE/ade-launchd/client/launch"
)

func newInteractiveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Send raw protocol commands",
		Long: `Each line is "command [values...]". Numbers and t/f are sent as they
are, everything else as a string; a value starting with " keeps its spaces.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.dial()
			if err != nil {
				return err
			}
			defer c.Close()
			return runInteractive(c, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runInteractive(c *launch.Client, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, "Interactive mode. Type commands or 'exit' to quit.")
	fmt.Fprint(out, "> ")

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			break
		}
		name, values := splitLine(line)
		if name == "" {
			fmt.Fprint(out, "> ")
			continue
		}

		resp, err := c.Call(name, values...)
		var serr *launch.ServerError
		switch {
		case errors.As(err, &serr):
			fmt.Fprintf(out, "error: %s: %s\n", serr.Kind, serr.Desc)
		case err != nil:
			return err
		default:
			printResponse(out, resp)
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

// splitLine splits an interactive line into the command and its formatted
// values. A quoted value runs to the end of the line.
func splitLine(line string) (string, []string) {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	var values []string
	for rest = strings.TrimSpace(rest); rest != ""; rest = strings.TrimSpace(rest) {
		if strings.HasPrefix(rest, `"`) {
			values = append(values, rest)
			break
		}
		var field string
		field, rest, _ = strings.Cut(rest, " ")
		values = append(values, launch.FormatArgument(field))
	}
	return name, values
}

func printResponse(out io.Writer, resp *launch.Response) {
	for _, key := range slices.Sorted(maps.Keys(resp.Attrs)) {
		if key == "cmd" || key == "lines" {
			continue
		}
		fmt.Fprintf(out, "%s: %s\n", key, resp.Attrs[key])
	}
	for _, line := range resp.Lines {
		fmt.Fprintln(out, line)
	}
}
