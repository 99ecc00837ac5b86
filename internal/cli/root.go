package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"tfvm/internal/config"
	"tfvm/internal/install"
	"tfvm/internal/logx"
	"tfvm/internal/manager"
	"tfvm/internal/paths"
	"tfvm/internal/releases"
)

// Version is the build version, set with -ldflags "-X tfvm/internal/cli.Version=...".
var Version = "dev"

var (
	configPath string
	outputJSON bool
	noProgress bool
)

// Execute runs the root cobra command.
func Execute() {
	userAgent := "tfvm/" + Version
	releases.UserAgent = userAgent
	install.UserAgent = userAgent

	// An interrupt cancels the command so installs release their lock
	// before the process exits.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tfvm",
		Short:         "Install, select and drive versions of terraform",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to the config file (default "+paths.DefaultConfigFile()+")")
	flags.String("tool", config.DefaultTool, "Name of the managed tool")
	flags.String("target", "", "Version expression to use, e.g. \"~> 0.12.0\"")
	flags.String("install-dir", paths.DefaultInstallDir(), "Directory holding installed binaries")
	flags.String("downloads-url", config.DefaultDownloadsURL, "Page listing the latest release")
	flags.String("releases-url", config.DefaultReleasesURL, "Release index and download base URL")
	flags.Duration("timeout", config.DefaultTimeout, "Timeout for remote catalog fetches")
	flags.String("log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	flags.BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")
	flags.BoolVar(&noProgress, "no-progress", false, "Disable interactive progress output")

	cmd.AddCommand(newInstallCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newLatestCmd())
	cmd.AddCommand(newWhichCmd())
	cmd.AddCommand(newResolveCmd())
	cmd.AddCommand(newArgsCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadConfig layers the config file, environment and flags of cmd. Values
// the config discarded are logged as warnings.
func loadConfig(cmd *cobra.Command) (*config.Config, *log.Logger, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	logger := logx.New(cmd.ErrOrStderr(), cfg.LogLevel)
	for _, finding := range cfg.Findings() {
		logger.Warn(finding.Message, "key", finding.Key)
	}
	logger.Debug("config loaded", "tool", cfg.Tool, "install_dir", cfg.InstallDir, "target", cfg.Version)
	return cfg, logger, nil
}

// newManager loads the configuration and builds a manager over it. Installer
// options, such as a progress reporter, are passed through.
func newManager(cmd *cobra.Command, opts ...install.Option) (*manager.Manager, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return manager.New(cfg,
		manager.WithInstaller(install.New(cfg, opts...)),
		manager.WithLogger(logger),
	), nil
}
