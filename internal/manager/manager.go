package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"tfvm/internal/config"
	"tfvm/internal/expression"
	"tfvm/internal/install"
	"tfvm/internal/inventory"
	"tfvm/internal/logx"
	"tfvm/internal/releases"
	"tfvm/internal/resolver"
	"tfvm/internal/version"
)

var ErrToolNotInstalled = errors.New("tool not installed")

// Remote lists published versions.
type Remote interface {
	Versions(ctx context.Context) (version.Catalog, error)
	Latest(ctx context.Context) (string, error)
}

// Installer places and deletes the binary of one concrete version.
type Installer interface {
	Install(ctx context.Context, v string) (bool, error)
	Remove(ctx context.Context, v string) (bool, error)
}

// Option configures a Manager.
type Option func(*Manager)

func WithRemote(r Remote) Option {
	return func(m *Manager) { m.remote = r }
}

func WithInstaller(i Installer) Option {
	return func(m *Manager) { m.installer = i }
}

func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Manager answers which version of the tool to use and where its binary is,
// and installs or removes versions on request.
type Manager struct {
	cfg       *config.Config
	inventory *inventory.Inventory
	remote    Remote
	installer Installer
	logger    *log.Logger
}

// New builds a manager over cfg. Without options it talks to the configured
// release index and installs into cfg.InstallDir.
func New(cfg *config.Config, opts ...Option) *Manager {
	m := &Manager{
		cfg:       cfg,
		inventory: inventory.New(cfg.InstallDir, cfg.Tool),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.remote == nil {
		m.remote = releases.NewClient(cfg)
	}
	if m.installer == nil {
		m.installer = install.New(cfg)
	}
	if m.logger == nil {
		m.logger = logx.New(os.Stderr, cfg.LogLevel)
	}
	return m
}

// Config returns the configuration the manager was built with.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// Inventory returns the local inventory.
func (m *Manager) Inventory() *inventory.Inventory {
	return m.inventory
}

// Selection is the version picked for use and its binary.
type Selection struct {
	Version string `json:"version"`
	Path    string `json:"path"`
}

// Current selects the binary to run. With a target configured the target is
// resolved against the installed versions and must be installed; otherwise
// the highest installed version wins.
func (m *Manager) Current() (Selection, error) {
	if target := m.cfg.Version; target != "" {
		v, err := m.ResolveLocal(target)
		if err != nil {
			return Selection{}, err
		}
		path, err := m.inventory.Validate(v)
		if err != nil {
			return Selection{}, err
		}
		return Selection{Version: v, Path: path}, nil
	}

	latest, ok := m.inventory.Latest()
	if !ok {
		return Selection{}, fmt.Errorf("%w: no %s binaries in %s", ErrToolNotInstalled, m.cfg.Tool, m.inventory.Dir())
	}
	path, _ := m.inventory.Lookup(latest)
	return Selection{Version: latest, Path: path}, nil
}

// Binary returns the path of the binary to run.
func (m *Manager) Binary() (string, error) {
	sel, err := m.Current()
	if err != nil {
		return "", err
	}
	return sel.Path, nil
}

// Resolve picks one concrete version for expr using the published releases.
// When the release index cannot be read the installed versions are used.
func (m *Manager) Resolve(ctx context.Context, expr string) (string, error) {
	parsed, err := expression.Parse(expr)
	if err != nil {
		return "", err
	}
	if parsed.Kind == expression.Equality {
		return resolver.Resolve(parsed, nil)
	}
	raw, err := m.Versions(ctx, false)
	if err != nil {
		return "", err
	}
	return resolver.Resolve(parsed, version.NewCatalog(raw))
}

// ResolveLocal picks one concrete version for expr among installed versions.
func (m *Manager) ResolveLocal(expr string) (string, error) {
	parsed, err := expression.Parse(expr)
	if err != nil {
		return "", err
	}
	if parsed.Kind == expression.Equality {
		return resolver.Resolve(parsed, nil)
	}
	return resolver.Resolve(parsed, m.inventory.Catalog())
}

// Latest returns the newest published version. Fetch failures are returned.
func (m *Manager) Latest(ctx context.Context) (string, error) {
	latest, err := m.remote.Latest(ctx)
	if err != nil {
		return "", fmt.Errorf("latest %s release: %w", m.cfg.Tool, err)
	}
	return latest, nil
}

// Versions lists installed versions, or published ones when local is false.
// A failed remote listing is logged and replaced by the installed versions;
// only cancellation of ctx itself is returned as an error.
func (m *Manager) Versions(ctx context.Context, local bool) ([]string, error) {
	if local {
		return m.inventory.Versions(), nil
	}

	catalog, err := m.remote.Versions(ctx)
	if err == nil {
		return catalog.Strings(), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	m.logger.Warn("failed to retrieve releases", "url", m.cfg.ReleasesURL, "err", err)
	m.logger.Warn("falling back to local inventory", "dir", m.inventory.Dir())
	return m.inventory.Versions(), nil
}

// Action is what Apply does with a resolved version.
type Action int

const (
	ActionInstall Action = iota
	ActionRemove
)

func (a Action) String() string {
	if a == ActionRemove {
		return "remove"
	}
	return "install"
}

// Result describes one Apply call.
type Result struct {
	Expression string `json:"expression"`
	Version    string `json:"version"`
	Path       string `json:"path"`
	Changed    bool   `json:"changed"`
}

// Apply resolves expr, or the configured target when expr is empty, against
// the published releases and installs or removes that version.
func (m *Manager) Apply(ctx context.Context, action Action, expr string) (Result, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		expr = m.cfg.Version
	}
	if expr == "" {
		return Result{}, fmt.Errorf("%w: no version given and no target configured", expression.ErrInvalidExpression)
	}

	res := Result{Expression: expr}
	v, err := m.Resolve(ctx, expr)
	if err != nil {
		return res, err
	}
	res.Version = v
	res.Path = m.inventory.PathFor(v)

	switch action {
	case ActionRemove:
		res.Changed, err = m.installer.Remove(ctx, v)
	default:
		res.Changed, err = m.installer.Install(ctx, v)
	}
	if err != nil {
		return res, fmt.Errorf("%s %s %s: %w", action, m.cfg.Tool, v, err)
	}
	m.logger.Info(action.String(), "version", v, "changed", res.Changed, "path", res.Path)
	return res, nil
}

// Install resolves expr and installs the result.
func (m *Manager) Install(ctx context.Context, expr string) (bool, error) {
	res, err := m.Apply(ctx, ActionInstall, expr)
	return res.Changed, err
}

// Remove resolves expr and removes the result.
func (m *Manager) Remove(ctx context.Context, expr string) (bool, error) {
	res, err := m.Apply(ctx, ActionRemove, expr)
	return res.Changed, err
}
