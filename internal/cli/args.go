package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tfvm/internal/command"
)

var (
	argsRevision string
	argsSet      []string
	argsEnv      []string
)

func newArgsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "args SUBCOMMAND [OPERANDS...]",
		Short: "Print the command line for a subcommand of the selected version",
		Long: "Render the argument list for SUBCOMMAND using the flag table of the selected\n" +
			"version's revision. Flags are given with --set name=value; a bare name turns a\n" +
			"switch on. Operands follow the flags.",
		Example: "  tfvm args plan --set out=plan.out --set detailed_exitcode stacks/demo",
		Args:    cobra.MinimumNArgs(1),
		RunE:    runArgs,
	}
	cmd.Flags().StringVar(&argsRevision, "revision", "", "Flag table revision (default: from the selected version)")
	cmd.Flags().StringArrayVar(&argsSet, "set", nil, "Flag assignment name=value (repeatable)")
	cmd.Flags().StringArrayVar(&argsEnv, "env", nil, "Environment assignment NAME=value for the run (repeatable)")
	return cmd
}

type argsOutput struct {
	Revision command.Revision `json:"revision"`
	Binary   string           `json:"binary,omitempty"`
	Args     []string         `json:"args"`
	Env      []string         `json:"env,omitempty"`
}

func runArgs(cmd *cobra.Command, args []string) error {
	mgr, err := newManager(cmd)
	if err != nil {
		return err
	}

	result := argsOutput{Revision: command.Revision(argsRevision)}
	if sel, err := mgr.Current(); err == nil {
		result.Binary = sel.Path
		if result.Revision == "" {
			if result.Revision, err = command.RevisionFor(sel.Version); err != nil {
				return err
			}
		}
	} else if result.Revision == "" {
		return fmt.Errorf("pick a revision with --revision: %w", err)
	}

	flags, err := command.ParseAssignments(argsSet)
	if err != nil {
		return err
	}
	env, err := parseEnv(argsEnv)
	if err != nil {
		return err
	}
	opts := command.Options{Flags: flags, Environment: env}

	result.Args, err = command.Args(result.Revision, args[0], opts, args[1:]...)
	if err != nil {
		return err
	}
	result.Env = opts.Env()

	out := cmd.OutOrStdout()
	if outputJSON {
		return json.NewEncoder(out).Encode(result)
	}

	line := make([]string, 0, len(result.Env)+len(result.Args)+1)
	for _, kv := range result.Env {
		line = append(line, shellQuote(kv))
	}
	binary := result.Binary
	if binary == "" {
		binary = mgr.Config().Tool
	}
	line = append(line, shellQuote(binary))
	for _, arg := range result.Args {
		line = append(line, shellQuote(arg))
	}
	fmt.Fprintln(out, strings.Join(line, " "))
	return nil
}

// parseEnv reads NAME=value pairs; unlike flags, a value is required.
func parseEnv(pairs []string) (map[string]string, error) {
	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid environment assignment %q, want NAME=value", pair)
		}
		env[strings.TrimSpace(name)] = value
	}
	return env, nil
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n\"'\\$`") {
		return s
	}
	return strconv.Quote(s)
}
