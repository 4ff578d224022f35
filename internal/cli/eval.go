package cli

import (
	"context"
	"flag"
	"fmt"

	"go.uber.org/zap"

	"policyqa/internal/evaluator"
)

func runEval(args []string, s Streams) int {
	fs := flag.NewFlagSet("eval", flag.ContinueOnError)
	fs.SetOutput(s.Err)
	var common commonFlags
	common.register(fs)
	out := fs.String("out", "", "Report path (overrides evaluation.output)")
	casesFile := fs.String("cases", "", "YAML or JSON battery (overrides evaluation.cases_file)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	ctx := context.Background()
	a, err := bootstrap(ctx, &common)
	if err != nil {
		fmt.Fprintf(s.Err, "eval: %v\n", err)
		return ExitError
	}
	defer a.logger.Sync()

	path := a.cfg.Evaluation.Output
	if *out != "" {
		path = *out
	}
	cases := evaluator.DefaultBattery()
	source := a.cfg.Evaluation.CasesFile
	if *casesFile != "" {
		source = *casesFile
	}
	if source != "" {
		cases, err = evaluator.LoadCases(source)
		if err != nil {
			fmt.Fprintf(s.Err, "eval: %v\n", err)
			return ExitError
		}
	}

	report := evaluator.Run(ctx, a.pipeline, cases)
	if err := evaluator.WriteReport(path, report); err != nil {
		fmt.Fprintf(s.Err, "eval: %v\n", err)
		return ExitError
	}
	sum := evaluator.Summarize(report)
	a.logger.Info("evaluation finished",
		zap.String("report", path), zap.Int("pass", sum.Pass), zap.Int("partial", sum.Partial), zap.Int("fail", sum.Fail))
	for _, rec := range report.Results {
		fmt.Fprintf(s.Out, "%-8s %-7s %-13s %s\n", rec.Score, rec.Confidence, rec.Expected, rec.Question)
	}
	fmt.Fprintf(s.Out, "\n%d questions: %d pass, %d partial, %d fail\n", report.Total, sum.Pass, sum.Partial, sum.Fail)
	fmt.Fprintf(s.Out, "Report written to %s\n", path)
	return ExitOK
}
