package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"policyqa/internal/domain"
	"policyqa/internal/tui"
)

// isTerminal is swapped in tests.
var isTerminal = defaultIsTerminal

func defaultIsTerminal(w io.Writer) bool {
	if file, ok := w.(*os.File); ok {
		return term.IsTerminal(int(file.Fd()))
	}
	if fder, ok := w.(interface{ Fd() uintptr }); ok {
		return term.IsTerminal(int(fder.Fd()))
	}
	return false
}

func runAsk(args []string, s Streams) int {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.SetOutput(s.Err)
	var common commonFlags
	common.register(fs)
	plain := fs.Bool("plain", false, "Use the line-mode prompt even on a terminal")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	ctx := context.Background()
	a, err := bootstrap(ctx, &common)
	if err != nil {
		fmt.Fprintf(s.Err, "ask: %v\n", err)
		return ExitError
	}
	defer a.logger.Sync()

	if !*plain && isTerminal(s.Out) {
		p := tea.NewProgram(tui.New(ctx, a.pipeline, a.overview), tea.WithInput(s.In), tea.WithOutput(s.Out))
		if _, err := p.Run(); err != nil {
			fmt.Fprintf(s.Err, "ask: %v\n", err)
			return ExitError
		}
		return ExitOK
	}
	if err := repl(ctx, a.pipeline, s.In, s.Out); err != nil {
		fmt.Fprintf(s.Err, "ask: %v\n", err)
		return ExitError
	}
	return ExitOK
}

// repl reads one question per line until EOF, "exit" or "quit".
func repl(ctx context.Context, asker domain.Asker, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "System ready. Ask questions!")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "Your question (type 'exit' to quit): ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		q := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(q) {
		case "exit", "quit":
			return nil
		case "":
			continue
		}
		res, err := asker.Ask(ctx, q)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		printResult(out, res)
	}
}

func printResult(w io.Writer, r domain.AnswerResult) {
	rule := strings.Repeat("=", 60)
	sources := "None"
	if len(r.Sources) > 0 {
		sources = strings.Join(r.Sources, ", ")
	}
	fmt.Fprintf(w, "\n%s\nANSWER\n%s\n%s\n%s\n", rule, rule, r.Answer, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Confidence: %s\n", r.Confidence)
	fmt.Fprintf(w, "Sources: %s\n", sources)
	fmt.Fprintf(w, "Documents Retrieved: %d\n%s\n", r.Retrieval.NumDocsRetrieved, rule)
}
