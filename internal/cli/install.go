package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"tfvm/internal/install"
	"tfvm/internal/manager"
	"tfvm/internal/tui"
)

func newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install [EXPR...]",
		Short: "Install the versions matching each expression (default: the target)",
		Long: "Resolve each version expression against the published releases and install the\n" +
			"result. Expressions are handled one after another; without any, the configured\n" +
			"target is installed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, manager.ActionInstall, args)
		},
	}
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove [EXPR...]",
		Aliases: []string{"uninstall"},
		Short:   "Remove the versions matching each expression (default: the target)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, manager.ActionRemove, args)
		},
	}
}

func batchVerb(action manager.Action) string {
	if action == manager.ActionRemove {
		return "Removing"
	}
	return "Installing"
}

// runBatch resolves and applies action to every expression in order. An
// empty list stands for the configured target. Failures do not stop the
// batch; they are reported per row and turned into one error at the end.
func runBatch(cmd *cobra.Command, action manager.Action, exprs []string) error {
	if len(exprs) == 0 {
		exprs = []string{""}
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	var reporter *tui.Reporter
	mgr, err := newManager(cmd, install.WithReporter(func(v string, stage install.Stage) {
		reporter.Stage(v, stage)
	}))
	if err != nil {
		return err
	}
	labels := make([]string, len(exprs))
	for i, expr := range exprs {
		labels[i] = expr
		if expr == "" {
			labels[i] = tui.NonEmptyOrDash(mgr.Config().Version)
		}
	}

	errs := make([]error, len(exprs))
	work := func(send func(tea.Msg)) {
		reporter = tui.NewReporter(action, send)
		for i, expr := range exprs {
			if ctx.Err() != nil {
				errs[i] = ctx.Err()
				reporter.Finish(i, manager.Result{}, errs[i])
				continue
			}
			reporter.Begin(i)
			var res manager.Result
			res, errs[i] = mgr.Apply(ctx, action, expr)
			reporter.Finish(i, res, errs[i])
		}
	}

	out := cmd.OutOrStdout()
	model := tui.NewBatchModel(batchVerb(action), labels)
	var final tui.BatchModel

	switch tui.DetectMode(out, noProgress, outputJSON) {
	case tui.ModeTUI:
		final, err = tui.RunWithWork(out, model, work, cancel)
		if final.Interrupted() {
			return fmt.Errorf("%s interrupted", action)
		}
	case tui.ModeJSON:
		final, err = tui.RunPlain(io.Discard, model, work)
		if err == nil {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			err = enc.Encode(final.Jobs())
		}
	default:
		final, err = tui.RunPlain(out, model, work)
	}
	if err != nil {
		return err
	}

	if failed := final.Failed(); failed > 0 {
		if len(exprs) == 1 {
			return errs[0]
		}
		return fmt.Errorf("%d of %d %s operations failed: %w", failed, len(exprs), action, errors.Join(errs...))
	}
	return nil
}
