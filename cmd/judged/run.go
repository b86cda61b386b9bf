package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/itstheanurag/codejudge/internal/evaluation"
	"github.com/itstheanurag/codejudge/internal/harness"
	"github.com/itstheanurag/codejudge/internal/server"
	"github.com/itstheanurag/codejudge/internal/store"
	"github.com/spf13/cobra"
)

// errNotAccepted makes the process exit with status 2 without logging.
var errNotAccepted = errors.New("solution not accepted")

type runArgs struct {
	problem  string
	language string
	file     string
	all      bool
}

var runOpts runArgs

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Judge a local solution against a TOML problem fixture",
	Example: `  judged run --problem two-sum.toml --lang python --file solution.py
  judged run --problem two-sum.toml --lang java --file Solution.java --all`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		res, err := dryRun(ctx, runOpts)
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), res)
		if res.Status != evaluation.StatusAccepted {
			return errNotAccepted
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runOpts.problem, "problem", "", "problem fixture (TOML)")
	runCmd.Flags().StringVar(&runOpts.language, "lang", "", "submission language")
	runCmd.Flags().StringVar(&runOpts.file, "file", "", "solution source file")
	runCmd.Flags().BoolVar(&runOpts.all, "all", false, "run every test case, not only the samples")
	_ = runCmd.MarkFlagRequired("problem")
	_ = runCmd.MarkFlagRequired("lang")
	_ = runCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(runCmd)
}

func dryRun(ctx context.Context, opts runArgs) (*evaluation.Result, error) {
	fx, err := store.LoadFixture(opts.problem)
	if err != nil {
		return nil, err
	}
	code, err := os.ReadFile(opts.file)
	if err != nil {
		return nil, fmt.Errorf("failed to read solution: %w", err)
	}

	mem := store.NewMemory()
	mem.Load(fx)

	mgr, registry, err := server.NewSandbox(conf, &logger)
	if err != nil {
		return nil, err
	}
	defer mgr.Close()

	if conf.Docker.PullImages {
		if err := mgr.EnsureImages(ctx); err != nil {
			return nil, err
		}
	}

	svc := evaluation.NewService(
		evaluation.Stores{Problems: mem, TestCases: mem, Submissions: mem, Progress: mem},
		mgr, registry, harness.NewRegistry(), conf.Limits, &logger,
		evaluation.WithParallelism(conf.Worker.Parallelism),
	)
	return svc.DryRun(ctx, evaluation.DryRunRequest{
		ProblemID: fx.ID,
		Language:  opts.language,
		Code:      string(code),
		All:       opts.all,
	})
}

func printReport(w io.Writer, res *evaluation.Result) {
	for i, tr := range res.Tests {
		mark := "PASS"
		if !tr.Passed {
			mark = "FAIL"
		}
		fmt.Fprintf(w, "case %d: %s %s (%d ms, %d KB)\n", i+1, mark, tr.Verdict, tr.RuntimeMs, tr.MemoryKb)
		if tr.Passed {
			continue
		}
		fmt.Fprintf(w, "  input:    %q\n", tr.Input)
		fmt.Fprintf(w, "  expected: %q\n", tr.Expected)
		fmt.Fprintf(w, "  actual:   %q\n", tr.Actual)
		if tr.Error != "" {
			fmt.Fprintf(w, "  error:    %s\n", tr.Error)
		}
	}
	fmt.Fprintf(w, "%s: %d/%d passed, max %d ms, %d KB\n",
		res.Status, res.Passed, res.Total, res.MaxRuntimeMs, res.MaxMemoryKb)
}
