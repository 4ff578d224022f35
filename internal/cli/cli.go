package cli

import (
	"fmt"
	"io"
)

const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// Streams bundles the process's standard streams.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

type Command struct {
	Name    string
	Summary string
	Run     func(args []string, s Streams) int
}

var commands []*Command

func init() {
	commands = []*Command{
		{Name: "ask", Summary: "Index the corpus and answer questions interactively", Run: runAsk},
		{Name: "eval", Summary: "Run the evaluation battery and write a JSON report", Run: runEval},
		{Name: "serve", Summary: "Index the corpus and serve the HTTP API", Run: runServe},
	}
}

// Run dispatches args to a subcommand and returns the process exit code.
func Run(args []string, s Streams) int {
	if len(args) == 0 {
		printUsage(s.Out)
		return ExitUsage
	}
	if isHelpArg(args[0]) {
		printUsage(s.Out)
		return ExitOK
	}
	cmd := findCommand(args[0])
	if cmd == nil {
		fmt.Fprintf(s.Err, "Unknown command: %s\n\n", args[0])
		printUsage(s.Err)
		return ExitUsage
	}
	return cmd.Run(args[1:], s)
}

func findCommand(name string) *Command {
	for _, cmd := range commands {
		if cmd.Name == name {
			return cmd
		}
	}
	return nil
}

func isHelpArg(arg string) bool {
	switch arg {
	case "-h", "--help", "help":
		return true
	default:
		return false
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  policyqa <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-6s %s\n", cmd.Name, cmd.Summary)
	}
	fmt.Fprintln(w, "\nUse \"policyqa <command> --help\" for more information.")
}
