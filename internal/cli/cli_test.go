package cli

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"tfvm/internal/command"
)

// isolate points the config file and every TFVM_* variable away from the
// user's environment and returns an install directory holding the given
// placeholder binaries.
func isolate(t *testing.T, installed ...string) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"TOOL", "VERSION", "DOWNLOADS_URL", "RELEASES_URL", "TIMEOUT", "LOG_LEVEL"} {
		t.Setenv("TFVM_"+key, "")
	}

	dir := t.TempDir()
	t.Setenv("TFVM_INSTALL_DIR", dir)
	for _, v := range installed {
		if err := os.WriteFile(binaryPath(dir, v), []byte(v), 0o755); err != nil {
			t.Fatalf("write binary: %v", err)
		}
	}
	return dir
}

func binaryPath(dir, v string) string {
	name := "terraform-" + v
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(dir, name)
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// releaseSite serves a release index at /terraform, a downloads page at
// /downloads.html and a zip plus SHA256SUMS for each release on this
// platform.
type releaseSite struct {
	srv      *httptest.Server
	archives map[string][]byte
}

func newReleaseSite(t *testing.T, versions ...string) *releaseSite {
	t.Helper()
	site := &releaseSite{archives: map[string][]byte{}}
	binary := "terraform"
	if runtime.GOOS == "windows" {
		binary += ".exe"
	}
	for _, v := range versions {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		w, err := zw.Create(binary)
		if err != nil {
			t.Fatalf("zip: %v", err)
		}
		fmt.Fprintf(w, "#!/bin/sh\necho Terraform v%s\n", v)
		if err := zw.Close(); err != nil {
			t.Fatalf("zip: %v", err)
		}
		site.archives[v] = buf.Bytes()
	}

	site.srv = httptest.NewServer(http.HandlerFunc(site.serve))
	t.Cleanup(site.srv.Close)
	return site
}

func (s *releaseSite) releasesURL() string  { return s.srv.URL + "/terraform" }
func (s *releaseSite) downloadsURL() string { return s.srv.URL + "/downloads.html" }

func (s *releaseSite) archiveName(v string) string {
	return fmt.Sprintf("terraform_%s_%s_%s.zip", v, runtime.GOOS, runtime.GOARCH)
}

func (s *releaseSite) serve(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/terraform":
		for v := range s.archives {
			fmt.Fprintf(w, "<li><a href=\"/terraform/%s/\">terraform_%s</a></li>\n", v, v)
		}
		return
	case "/downloads.html":
		for v := range s.archives {
			fmt.Fprintf(w, "<a href=\"%s/%s/%s\">download</a>\n", s.releasesURL(), v, s.archiveName(v))
		}
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/terraform/"), "/")
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	archive, ok := s.archives[parts[0]]
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch parts[1] {
	case fmt.Sprintf("terraform_%s_SHA256SUMS", parts[0]):
		sum := sha256.Sum256(archive)
		fmt.Fprintf(w, "%s  %s\n", hex.EncodeToString(sum[:]), s.archiveName(parts[0]))
	case s.archiveName(parts[0]):
		_, _ = w.Write(archive)
	default:
		http.NotFound(w, r)
	}
}

func (s *releaseSite) flags() []string {
	return []string{"--releases-url", s.releasesURL(), "--downloads-url", s.downloadsURL()}
}

func TestWhichPrintsHighestInstalled(t *testing.T) {
	dir := isolate(t, "0.11.14", "0.12.2")

	stdout, _, err := execute(t, "which")
	if err != nil {
		t.Fatalf("which returned error: %v", err)
	}
	if got := strings.TrimSpace(stdout); got != binaryPath(dir, "0.12.2") {
		t.Fatalf("which = %q, want %q", got, binaryPath(dir, "0.12.2"))
	}
}

func TestWhichHonoursTarget(t *testing.T) {
	dir := isolate(t, "0.11.13", "0.11.14", "0.12.2")

	stdout, _, err := execute(t, "which", "--target", "~> 0.11.0")
	if err != nil {
		t.Fatalf("which returned error: %v", err)
	}
	if got := strings.TrimSpace(stdout); got != binaryPath(dir, "0.11.14") {
		t.Fatalf("which = %q", got)
	}

	t.Setenv("TFVM_VERSION", "0.11.13")
	stdout, _, err = execute(t, "which", "--json")
	if err != nil {
		t.Fatalf("which returned error: %v", err)
	}
	var sel struct {
		Version string `json:"version"`
		Path    string `json:"path"`
	}
	if err := json.Unmarshal([]byte(stdout), &sel); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sel.Version != "0.11.13" {
		t.Fatalf("selected %q, want 0.11.13", sel.Version)
	}
}

func TestWhichWithoutInstallations(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, "which")
	if err == nil || !strings.Contains(err.Error(), "tool not installed") {
		t.Fatalf("expected not-installed error, got %v", err)
	}
}

func TestMalformedTargetFails(t *testing.T) {
	isolate(t, "0.11.14", "0.12.2")
	t.Setenv("TFVM_VERSION", "~> 0.x")

	stdout, _, err := execute(t, "which")
	if err == nil || !strings.Contains(err.Error(), "unparseable version") {
		t.Fatalf("expected unparseable version error, got %v (stdout %q)", err, stdout)
	}

	_, _, err = execute(t, "install", "--no-progress")
	if err == nil || !strings.Contains(err.Error(), "unparseable version") {
		t.Fatalf("expected unparseable version error from install, got %v", err)
	}

	stdout, _, err = execute(t, "config", "validate")
	if err == nil {
		t.Fatalf("expected config validate to fail")
	}
	if !strings.Contains(stdout, "~> 0.x") {
		t.Errorf("expected the target in the report, got %q", stdout)
	}
}

func TestListLocalMarksSelected(t *testing.T) {
	isolate(t, "0.11.14", "0.12.2")

	stdout, _, err := execute(t, "list")
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(stdout, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", stdout)
	}
	if !strings.Contains(lines[0], "0.11.14") || strings.Contains(lines[0], "*") {
		t.Errorf("unexpected first line %q", lines[0])
	}
	if !strings.Contains(lines[1], "* 0.12.2") {
		t.Errorf("expected selected marker on %q", lines[1])
	}
}

func TestListLocalEmpty(t *testing.T) {
	isolate(t)

	stdout, stderr, err := execute(t, "list")
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if stdout != "" {
		t.Errorf("expected no output, got %q", stdout)
	}
	if !strings.Contains(stderr, "no terraform versions installed") {
		t.Errorf("expected hint on stderr, got %q", stderr)
	}
}

func TestListRemoteJSON(t *testing.T) {
	dir := isolate(t, "0.12.2")
	site := newReleaseSite(t, "0.11.14", "0.12.2", "0.13.0-beta1")

	args := append([]string{"list", "--remote", "--json"}, site.flags()...)
	stdout, _, err := execute(t, args...)
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}

	var entries []listEntry
	if err := json.Unmarshal([]byte(stdout), &entries); err != nil {
		t.Fatalf("decode %q: %v", stdout, err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %+v", entries)
	}
	want := []listEntry{
		{Version: "0.11.14"},
		{Version: "0.12.2", Installed: true, Selected: true, Path: binaryPath(dir, "0.12.2")},
		{Version: "0.13.0-beta1"},
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestListRemoteFallsBackToInventory(t *testing.T) {
	isolate(t, "0.11.14")
	site := newReleaseSite(t)

	args := append([]string{"list", "--remote"}, site.flags()...)
	stdout, stderr, err := execute(t, args...)
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if !strings.Contains(stdout, "0.11.14") {
		t.Errorf("expected local version in output, got %q", stdout)
	}
	if !strings.Contains(stderr, "failed to retrieve releases") || !strings.Contains(stderr, "falling back to local inventory") {
		t.Errorf("expected fallback warnings, got %q", stderr)
	}
}

func TestLatest(t *testing.T) {
	isolate(t)
	site := newReleaseSite(t, "0.11.14", "0.12.2")

	args := append([]string{"latest"}, site.flags()...)
	stdout, _, err := execute(t, args...)
	if err != nil {
		t.Fatalf("latest returned error: %v", err)
	}
	if got := strings.TrimSpace(stdout); got != "0.12.2" {
		t.Fatalf("latest = %q", got)
	}
}

func TestLatestFailurePropagates(t *testing.T) {
	isolate(t)
	site := newReleaseSite(t)

	args := append([]string{"latest"}, site.flags()...)
	if _, _, err := execute(t, args...); err == nil {
		t.Fatal("expected an error for a page without releases")
	}
}

func TestResolve(t *testing.T) {
	isolate(t, "0.11.13")
	site := newReleaseSite(t, "0.11.13", "0.11.14", "0.12.2")

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"resolve", "~> 0.11.0"}, "0.11.14"},
		{[]string{"resolve", ">= 0.11, < 0.12"}, "0.11.14"},
		{[]string{"resolve", "0.10.0"}, "0.10.0"},
		{[]string{"resolve", "--local", "~> 0.11.0"}, "0.11.13"},
	}
	for _, tt := range tests {
		stdout, _, err := execute(t, append(tt.args, site.flags()...)...)
		if err != nil {
			t.Fatalf("%v returned error: %v", tt.args, err)
		}
		if got := strings.TrimSpace(stdout); got != tt.want {
			t.Errorf("%v = %q, want %q", tt.args, got, tt.want)
		}
	}

	if _, _, err := execute(t, append([]string{"resolve", "> 5.0.0"}, site.flags()...)...); err == nil {
		t.Error("expected an unresolvable expression to fail")
	}
}

func TestInstallAndRemovePlain(t *testing.T) {
	dir := isolate(t)
	site := newReleaseSite(t, "0.11.14", "0.12.2")

	args := append([]string{"install", "--no-progress", "~> 0.11.0", "0.12.2"}, site.flags()...)
	stdout, _, err := execute(t, args...)
	if err != nil {
		t.Fatalf("install returned error: %v", err)
	}
	for _, want := range []string{"EXPRESSION", "~> 0.11.0", "0.11.14", "installed", binaryPath(dir, "0.12.2")} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in output:\n%s", want, stdout)
		}
	}
	data, err := os.ReadFile(binaryPath(dir, "0.11.14"))
	if err != nil {
		t.Fatalf("read installed binary: %v", err)
	}
	if !strings.Contains(string(data), "Terraform v0.11.14") {
		t.Errorf("unexpected binary content %q", data)
	}

	args = append([]string{"remove", "--no-progress", "0.11.14"}, site.flags()...)
	stdout, _, err = execute(t, args...)
	if err != nil {
		t.Fatalf("remove returned error: %v", err)
	}
	if !strings.Contains(stdout, "removed") {
		t.Errorf("expected removed status:\n%s", stdout)
	}
	if _, err := os.Stat(binaryPath(dir, "0.11.14")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected binary to be gone, stat err = %v", err)
	}

	stdout, _, err = execute(t, args...)
	if err != nil {
		t.Fatalf("second remove returned error: %v", err)
	}
	if !strings.Contains(stdout, "unchanged") {
		t.Errorf("expected unchanged status:\n%s", stdout)
	}
}

func TestInstallDefaultsToTarget(t *testing.T) {
	dir := isolate(t)
	site := newReleaseSite(t, "0.12.2")
	t.Setenv("TFVM_VERSION", "0.12.2")

	args := append([]string{"install", "--no-progress"}, site.flags()...)
	if _, _, err := execute(t, args...); err != nil {
		t.Fatalf("install returned error: %v", err)
	}
	if _, err := os.Stat(binaryPath(dir, "0.12.2")); err != nil {
		t.Fatalf("expected target to be installed: %v", err)
	}
}

func TestInstallWithoutExpressionOrTarget(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, "install", "--no-progress")
	if err == nil || !strings.Contains(err.Error(), "no target configured") {
		t.Fatalf("expected missing target error, got %v", err)
	}
}

func TestInstallJSONReportsFailures(t *testing.T) {
	isolate(t)
	site := newReleaseSite(t, "0.12.2")

	args := append([]string{"install", "--json", "0.12.2", "9.9.9"}, site.flags()...)
	stdout, _, err := execute(t, args...)
	if err == nil || !strings.Contains(err.Error(), "1 of 2 install operations failed") {
		t.Fatalf("expected batch failure, got %v", err)
	}

	var jobs []struct {
		Expression string `json:"expression"`
		Version    string `json:"version"`
		Status     string `json:"status"`
		Error      string `json:"error"`
	}
	if err := json.Unmarshal([]byte(stdout), &jobs); err != nil {
		t.Fatalf("decode %q: %v", stdout, err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %+v", jobs)
	}
	if jobs[0].Status != "installed" {
		t.Errorf("first job = %+v", jobs[0])
	}
	if jobs[1].Status != "error" || jobs[1].Version != "9.9.9" || jobs[1].Error == "" {
		t.Errorf("second job = %+v", jobs[1])
	}
}

func TestArgsUsesSelectedRevision(t *testing.T) {
	dir := isolate(t, "0.12.2")

	stdout, _, err := execute(t, "args", "show", "--set", "json", "plan.out")
	if err != nil {
		t.Fatalf("args returned error: %v", err)
	}
	want := binaryPath(dir, "0.12.2") + " show -json plan.out"
	if !strings.Contains(stdout, want) {
		t.Fatalf("args = %q, want %q", stdout, want)
	}
}

func TestArgsExplicitRevision(t *testing.T) {
	isolate(t, "0.12.2")

	_, _, err := execute(t, "args", "--revision", "rev011", "show", "--set", "json")
	if !errors.Is(err, command.ErrUnsupportedOption) {
		t.Fatalf("expected unsupported option, got %v", err)
	}

	stdout, _, err := execute(t, "args", "--json", "--revision", "rev011", "--env", "TF_LOG=debug",
		"plan", "--set", "out=plan.out", "--set", "detailed_exitcode")
	if err != nil {
		t.Fatalf("args returned error: %v", err)
	}
	var got argsOutput
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("decode %q: %v", stdout, err)
	}
	if got.Revision != command.Rev011 {
		t.Errorf("revision = %q", got.Revision)
	}
	if strings.Join(got.Args, " ") != "plan -detailed-exitcode -out=plan.out" {
		t.Errorf("args = %q", got.Args)
	}
	if len(got.Env) != 1 || got.Env[0] != "TF_LOG=debug" {
		t.Errorf("env = %q", got.Env)
	}
}

func TestArgsNeedsRevisionWithoutInstallations(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, "args", "plan")
	if err == nil || !strings.Contains(err.Error(), "--revision") {
		t.Fatalf("expected revision hint, got %v", err)
	}

	stdout, _, err := execute(t, "args", "--revision", "rev014", "version")
	if err != nil {
		t.Fatalf("args returned error: %v", err)
	}
	if strings.TrimSpace(stdout) != "terraform version" {
		t.Fatalf("args = %q", stdout)
	}
}

func TestConfigShow(t *testing.T) {
	dir := isolate(t)

	stdout, _, err := execute(t, "config", "show", "--tool", "tofu", "--timeout", "5s")
	if err != nil {
		t.Fatalf("config show returned error: %v", err)
	}
	for _, want := range []string{"tool: tofu", "install_dir: " + dir, "timeout: 5s", "log_level: warn"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in:\n%s", want, stdout)
		}
	}
}

func TestConfigFileAndFindings(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "tool: terraform\nreleases_url: ftp://mirror.example.com/terraform\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	stdout, _, err := execute(t, "config", "validate", "--config", path)
	if err != nil {
		t.Fatalf("config validate returned error: %v", err)
	}
	if !strings.Contains(stdout, "releases_url") || !strings.Contains(stdout, "ftp://mirror.example.com/terraform") {
		t.Errorf("expected releases_url finding, got %q", stdout)
	}

	stdout, stderr, err := execute(t, "config", "show", "--config", path)
	if err != nil {
		t.Fatalf("config show returned error: %v", err)
	}
	if !strings.Contains(stdout, "releases_url: https://releases.hashicorp.com/terraform") {
		t.Errorf("expected default releases_url, got:\n%s", stdout)
	}
	if !strings.Contains(stderr, "releases_url") {
		t.Errorf("expected a logged warning, got %q", stderr)
	}
}

func TestConfigMalformedFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("tool: [unclosed"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, err := execute(t, "config", "show", "--config", path); err == nil {
		t.Fatal("expected malformed config to fail")
	}
}

func TestShellQuote(t *testing.T) {
	tests := map[string]string{
		"-out=plan.out":   "-out=plan.out",
		"":                `""`,
		"my stack":        `"my stack"`,
		"-var=name=$USER": `"-var=name=$USER"`,
	}
	for in, want := range tests {
		if got := shellQuote(in); got != want {
			t.Errorf("shellQuote(%q) = %q, want %q", in, got, want)
		}
	}
}
