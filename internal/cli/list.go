package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tfvm/internal/tui"
)

var (
	listRemote   bool
	resolveLocal bool
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List installed versions, or published ones with --remote",
		Args:    cobra.NoArgs,
		RunE:    runList,
	}
	cmd.Flags().BoolVar(&listRemote, "remote", false, "List published releases, marking installed ones")
	return cmd
}

func newLatestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Print the newest published version",
		Args:  cobra.NoArgs,
		RunE:  runLatest,
	}
}

func newWhichCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "which",
		Short: "Print the path of the binary that would run",
		Args:  cobra.NoArgs,
		RunE:  runWhich,
	}
}

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve EXPR",
		Short: "Print the version an expression resolves to",
		Args:  cobra.ExactArgs(1),
		RunE:  runResolve,
	}
	cmd.Flags().BoolVar(&resolveLocal, "local", false, "Resolve against installed versions only")
	return cmd
}

type listEntry struct {
	Version   string `json:"version"`
	Installed bool   `json:"installed"`
	Selected  bool   `json:"selected"`
	Path      string `json:"path,omitempty"`
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	mgr, err := newManager(cmd)
	if err != nil {
		return err
	}

	var versions []string
	if listRemote {
		status := tui.StartStatus(cmd.ErrOrStderr(), "Fetching releases...")
		versions, err = mgr.Versions(ctx, false)
		status.Stop()
	} else {
		versions, err = mgr.Versions(ctx, true)
	}
	if err != nil {
		return err
	}

	manifest := mgr.Inventory().Manifest()
	selected := ""
	if sel, err := mgr.Current(); err == nil {
		selected = sel.Version
	}

	entries := make([]listEntry, 0, len(versions))
	for _, v := range versions {
		path, installed := manifest[v]
		entries = append(entries, listEntry{
			Version:   v,
			Installed: installed,
			Selected:  v == selected,
			Path:      path,
		})
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		return json.NewEncoder(out).Encode(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "no %s versions installed in %s\n", mgr.Config().Tool, mgr.Inventory().Dir())
		return nil
	}
	writeVersionList(out, entries, listRemote)
	return nil
}

// writeVersionList prints one version per line, the selected one starred.
// Remote listings also tag installed versions.
func writeVersionList(out io.Writer, entries []listEntry, remote bool) {
	for _, e := range entries {
		line := "  " + e.Version
		if e.Selected {
			line = tui.SelectedStyle.Render("* " + e.Version)
		}
		if remote && e.Installed {
			line += " " + tui.InstalledStyle.Render("(installed)")
		}
		fmt.Fprintln(out, line)
	}
}

func runLatest(cmd *cobra.Command, _ []string) error {
	mgr, err := newManager(cmd)
	if err != nil {
		return err
	}

	status := tui.StartStatus(cmd.ErrOrStderr(), "Fetching latest release...")
	latest, err := mgr.Latest(commandContext(cmd))
	status.Stop()
	if err != nil {
		return err
	}

	if outputJSON {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": latest})
	}
	fmt.Fprintln(cmd.OutOrStdout(), latest)
	return nil
}

func runWhich(cmd *cobra.Command, _ []string) error {
	mgr, err := newManager(cmd)
	if err != nil {
		return err
	}
	sel, err := mgr.Current()
	if err != nil {
		return err
	}

	if outputJSON {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(sel)
	}
	fmt.Fprintln(cmd.OutOrStdout(), sel.Path)
	return nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	mgr, err := newManager(cmd)
	if err != nil {
		return err
	}

	var resolved string
	if resolveLocal {
		resolved, err = mgr.ResolveLocal(args[0])
	} else {
		status := tui.StartStatus(cmd.ErrOrStderr(), "Resolving "+args[0]+"...")
		resolved, err = mgr.Resolve(commandContext(cmd), args[0])
		status.Stop()
	}
	if err != nil {
		return err
	}

	if outputJSON {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
			"expression": args[0],
			"version":    resolved,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), resolved)
	return nil
}
