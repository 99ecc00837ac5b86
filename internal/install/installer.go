package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"time"

	"tfvm/internal/config"
	"tfvm/internal/inventory"
	"tfvm/internal/paths"
)

const (
	// maxChecksumBytes bounds the SHA256SUMS download.
	maxChecksumBytes = 1 << 20

	// DefaultStaleLockAge is how old a lock file must be before it is taken
	// to belong to a process that died without releasing it.
	DefaultStaleLockAge = 15 * time.Minute
)

// UserAgent is sent with every request; the CLI sets it from the build version.
var UserAgent = "tfvm/dev"

var (
	ErrInvalidVersion = errors.New("not a concrete version")

	concreteVersion = regexp.MustCompile(`^\d+\.\d+\.\d+(?:-\w+)?$`)
)

// Stage names one step of an install or removal, for progress reporting.
type Stage string

const (
	StageWaiting     Stage = "waiting for lock"
	StageDownloading Stage = "downloading"
	StageVerifying   Stage = "verifying"
	StageExtracting  Stage = "extracting"
	StageInstalled   Stage = "installed"
	StageRemoved     Stage = "removed"
)

// Option configures an Installer.
type Option func(*Installer)

// WithHTTPClient replaces the HTTP client used for downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(i *Installer) {
		i.client = c
	}
}

// WithPlatform overrides the os/arch pair used to pick the release archive.
func WithPlatform(goos, goarch string) Option {
	return func(i *Installer) {
		i.goos = goos
		i.goarch = goarch
	}
}

// WithReporter registers a callback invoked as each version moves through
// the install stages.
func WithReporter(fn func(version string, stage Stage)) Option {
	return func(i *Installer) {
		i.report = fn
	}
}

// WithStaleLockAge sets the age after which an abandoned lock file is removed.
func WithStaleLockAge(d time.Duration) Option {
	return func(i *Installer) {
		i.staleLockAge = d
	}
}

// Installer places release binaries into the install directory and removes
// them again. Binaries are stored as "<dir>/<tool>-<version>".
type Installer struct {
	tool        string
	dir         string
	releasesURL string
	goos        string
	goarch      string
	client      *http.Client
	inventory   *inventory.Inventory
	report      func(string, Stage)

	staleLockAge time.Duration
}

// New builds an installer for cfg's tool, install directory and release URL.
func New(cfg *config.Config, opts ...Option) *Installer {
	i := &Installer{
		tool:        cfg.Tool,
		dir:         cfg.InstallDir,
		releasesURL: cfg.ReleasesURL,
		goos:        runtime.GOOS,
		goarch:      runtime.GOARCH,
		client:      &http.Client{Timeout: 10 * time.Minute},
		inventory:   inventory.New(cfg.InstallDir, cfg.Tool),

		staleLockAge: DefaultStaleLockAge,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// ArchiveName is the release archive for version v on the configured platform.
func (i *Installer) ArchiveName(v string) string {
	return fmt.Sprintf("%s_%s_%s_%s.zip", i.tool, v, i.goos, i.goarch)
}

// Install downloads version v, verifies it against the published SHA256SUMS
// and places the binary. An existing binary for v is replaced.
func (i *Installer) Install(ctx context.Context, v string) (bool, error) {
	if !concreteVersion.MatchString(v) {
		return false, fmt.Errorf("%w: %q", ErrInvalidVersion, v)
	}
	if err := os.MkdirAll(i.dir, 0o755); err != nil {
		return false, fmt.Errorf("prepare install dir: %w", err)
	}

	i.progress(v, StageWaiting)
	unlock, err := i.acquireLock(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()

	base := i.releasesURL + "/" + v + "/"
	archiveName := i.ArchiveName(v)
	sumsName := fmt.Sprintf("%s_%s_SHA256SUMS", i.tool, v)

	i.progress(v, StageDownloading)
	sums, err := i.fetchChecksums(ctx, base+sumsName)
	if err != nil {
		return false, err
	}
	expected, ok := sums[archiveName]
	if !ok {
		return false, fmt.Errorf("%w: %s in %s", ErrAssetNotFound, archiveName, sumsName)
	}

	archivePath, err := i.download(ctx, base+archiveName)
	if err != nil {
		return false, err
	}
	defer func() { _ = os.Remove(archivePath) }()

	i.progress(v, StageVerifying)
	if err := verifyChecksum(archivePath, archiveName, expected); err != nil {
		return false, err
	}

	i.progress(v, StageExtracting)
	binaryPath, err := extractBinary(archivePath, i.binaryName(), i.dir)
	if err != nil {
		return false, err
	}
	placed := false
	defer func() {
		if !placed {
			_ = os.Remove(binaryPath)
		}
	}()

	if runtime.GOOS != "windows" {
		if err := os.Chmod(binaryPath, 0o755); err != nil {
			return false, fmt.Errorf("chmod %s: %w", binaryPath, err)
		}
	}
	dest := i.inventory.PathFor(v)
	if err := os.Rename(binaryPath, dest); err != nil {
		return false, fmt.Errorf("place binary %s: %w", dest, err)
	}
	placed = true

	i.progress(v, StageInstalled)
	return true, nil
}

// Remove deletes the binary for v. It reports false when nothing was
// installed for v.
func (i *Installer) Remove(ctx context.Context, v string) (bool, error) {
	if !concreteVersion.MatchString(v) {
		return false, fmt.Errorf("%w: %q", ErrInvalidVersion, v)
	}
	if ok, _ := paths.DirExists(i.dir); !ok {
		return false, nil
	}

	i.progress(v, StageWaiting)
	unlock, err := i.acquireLock(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()

	dest := i.inventory.PathFor(v)
	if err := os.Remove(dest); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("remove %s: %w", dest, err)
	}
	i.progress(v, StageRemoved)
	return true, nil
}

func (i *Installer) binaryName() string {
	if i.goos == "windows" {
		return i.tool + ".exe"
	}
	return i.tool
}

func (i *Installer) progress(v string, stage Stage) {
	if i.report != nil {
		i.report(v, stage)
	}
}

// acquireLock serialises installs of one tool across processes with an
// O_EXCL lock file in the install directory. A lock file older than
// staleLockAge is removed and the lock retried.
func (i *Installer) acquireLock(ctx context.Context) (func(), error) {
	lockPath := filepath.Join(i.dir, fmt.Sprintf(".%s.lock", i.tool))
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_ = f.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if info, statErr := os.Stat(lockPath); statErr == nil && i.staleLockAge > 0 && time.Since(info.ModTime()) > i.staleLockAge {
			if rmErr := os.Remove(lockPath); rmErr == nil || errors.Is(rmErr, os.ErrNotExist) {
				continue
			}
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock %s: %w", lockPath, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (i *Installer) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}
	return resp, nil
}

func (i *Installer) fetchChecksums(ctx context.Context, url string) (map[string]string, error) {
	resp, err := i.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	sums, err := parseChecksums(io.LimitReader(resp.Body, maxChecksumBytes))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return sums, nil
}

// download streams url into a temp file inside the install directory so the
// final rename stays on one filesystem.
func (i *Installer) download(ctx context.Context, url string) (string, error) {
	resp, err := i.get(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	tmpFile, err := os.CreateTemp(i.dir, ".download-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		tmpFile.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return tmpPath, nil
}
