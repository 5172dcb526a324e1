package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cjeanneret/remocam/internal/config"
)

// fastTimings sets every sequence delay to 1 ms.
const fastTimings = `
timings:
  release_hold_ms: 1
  half_press_hold_ms: 1
  af_lock_settle_ms: 1
  af_release_settle_ms: 1
  priority_settle_ms: 1
  half_press_settle_ms: 1
  full_press_hold_ms: 1
  release_settle_ms: 1
  continuous_settle_ms: 1
  continuous_hold_ms: 1
  get_settle_ms: 1
  set_settle_ms: 1
  wait_poll_ms: 1
`

// writeConfig creates configs/test.yaml for the simulator, saving into a
// temporary directory, and returns the config path and the save dir.
func writeConfig(t *testing.T, extra string) (string, string) {
	t.Helper()
	root := t.TempDir()
	saveDir := filepath.Join(root, "shots")
	if err := os.Mkdir(saveDir, 0o755); err != nil {
		t.Fatal(err)
	}
	cfgDir := filepath.Join(root, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := fmt.Sprintf("device:\n  transport: sim\n  save_dir: %s\n  release_after_download: true\n%s%s", saveDir, fastTimings, extra)
	path := filepath.Join(cfgDir, "test.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return path, saveDir
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// ---------- usage ----------

func TestRun_Usage(t *testing.T) {
	cases := map[string][]string{
		"no command":      nil,
		"unknown command": {"frobnicate"},
		"bad flag":        {"-nope", "capture"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			if code, _, _ := runCLI(t, args...); code != exitUsage {
				t.Errorf("exit code = %d, want %d", code, exitUsage)
			}
		})
	}
}

func TestRun_Help(t *testing.T) {
	code, _, stderr := runCLI(t, "-h")
	if code != exitOK {
		t.Errorf("exit code = %d, want %d", code, exitOK)
	}
	if !strings.Contains(stderr, "journal [-kind k] <file>") {
		t.Errorf("help should list the commands, got:\n%s", stderr)
	}
}

func TestRun_RejectsConfigOutsideConfigsDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if code, _, _ := runCLI(t, "-config", path, "get", "-prop", "FNumber"); code != exitFailure {
		t.Errorf("exit code = %d, want %d", code, exitFailure)
	}
}

// ---------- capture ----------

func TestRun_CaptureDownloadsAndJournals(t *testing.T) {
	jpath := filepath.Join(t.TempDir(), "events.cbor")
	cfgPath, saveDir := writeConfig(t, "journal:\n  path: "+jpath+"\n")

	code, stdout, stderr := runCLI(t, "-config", cfgPath, "capture")
	if code != exitOK {
		t.Fatalf("capture exit code = %d, stderr:\n%s", code, stderr)
	}
	want := filepath.Join(saveDir, "DSC00001.JPG")
	if !strings.Contains(stdout, "downloaded "+want) {
		t.Errorf("stdout = %q, want the downloaded path %s", stdout, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("downloaded file: %v", err)
	}

	code, stdout, stderr = runCLI(t, "-config", cfgPath, "journal", "-kind", "download-complete", jpath)
	if code != exitOK {
		t.Fatalf("journal exit code = %d, stderr:\n%s", code, stderr)
	}
	if !strings.Contains(stdout, "DSC00001.JPG") {
		t.Errorf("journal should list the download, got:\n%s", stdout)
	}
	if strings.Contains(stdout, "property-changed") {
		t.Error("kind filter should drop other records")
	}
}

func TestRun_CaptureDir(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")
	dir := t.TempDir()

	code, _, stderr := runCLI(t, "-config", cfgPath, "capture", "-dir", dir)
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "DSC00001.JPG")); err != nil {
		t.Errorf("-dir should override save_dir: %v", err)
	}
}

func TestRun_CaptureWithoutWaiting(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")
	data, _ := os.ReadFile(cfgPath)
	data = bytes.Replace(data, []byte("release_after_download: true"), []byte("release_after_download: false"), 1)
	if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
		t.Fatal(err)
	}

	code, stdout, _ := runCLI(t, "-config", cfgPath, "capture")
	if code != exitOK || !strings.Contains(stdout, "shot taken") {
		t.Errorf("exit code = %d, stdout = %q", code, stdout)
	}
}

func TestRun_ConnectFailure(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")
	data, _ := os.ReadFile(cfgPath)
	data = bytes.Replace(data, []byte("transport: sim"), []byte("transport: usb"), 1)
	if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
		t.Fatal(err)
	}

	code, _, stderr := runCLI(t, "-config", cfgPath, "capture")
	if code != exitFailure {
		t.Errorf("exit code = %d, want %d", code, exitFailure)
	}
	if !strings.Contains(stderr, `unknown transport "usb"`) {
		t.Errorf("stderr = %q", stderr)
	}
}

// ---------- get / set ----------

func TestRun_GetSet(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")

	code, stdout, stderr := runCLI(t, "-config", cfgPath, "get", "-prop", "fnumber")
	if code != exitOK {
		t.Fatalf("get exit code = %d, stderr:\n%s", code, stderr)
	}
	if stdout != "FNumber = F5.6\n" {
		t.Errorf("get stdout = %q", stdout)
	}

	code, stdout, stderr = runCLI(t, "-config", cfgPath, "set", "-prop", "FNumber", "-value", "F8.0")
	if code != exitOK {
		t.Fatalf("set exit code = %d, stderr:\n%s", code, stderr)
	}
	if stdout != "FNumber <- F8.0\n" {
		t.Errorf("set stdout = %q", stdout)
	}
}

func TestRun_GetSetErrors(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")
	cases := []struct {
		name string
		args []string
		code int
	}{
		{"get without prop", []string{"get"}, exitUsage},
		{"set without value", []string{"set", "-prop", "FNumber"}, exitUsage},
		{"unknown prop", []string{"get", "-prop", "Bogus"}, exitFailure},
		{"bad value", []string{"set", "-prop", "FocusMode", "-value", "sideways"}, exitFailure},
		{"stray args", []string{"capture", "now"}, exitUsage},
		{"journal without file", []string{"journal"}, exitUsage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"-config", cfgPath}, tc.args...)
			if code, _, _ := runCLI(t, args...); code != tc.code {
				t.Errorf("exit code = %d, want %d", code, tc.code)
			}
		})
	}
}

// ---------- serve ----------

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// waitServing polls GET /state until the server answers.
func waitServing(t *testing.T, port int) {
	t.Helper()
	url := fmt.Sprintf("http://127.0.0.1:%d/state", port)
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("GET /state = %d", resp.StatusCode)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not come up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRun_Serve(t *testing.T) {
	port := freePort(t)
	cfgPath, _ := writeConfig(t, "trigger:\n  enabled: true\n  mock_gpio: true\n  input_pin: 17\n  busy_pin: 27\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan int, 1)
	var stdout, stderr bytes.Buffer
	go func() {
		done <- run(ctx, []string{"-config", cfgPath, "serve", "-web", fmt.Sprint(port)}, &stdout, &stderr)
	}()
	waitServing(t, port)

	cancel()
	select {
	case code := <-done:
		if code != exitOK {
			t.Errorf("serve exit code = %d", code)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestRun_ServeExitsAfterDownload(t *testing.T) {
	port := freePort(t)
	cfgPath, saveDir := writeConfig(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan int, 1)
	var stdout, stderr bytes.Buffer
	go func() {
		done <- run(ctx, []string{"-config", cfgPath, "serve", "-web", fmt.Sprint(port)}, &stdout, &stderr)
	}()
	waitServing(t, port)

	resp, err := http.Post(fmt.Sprintf("http://127.0.0.1:%d/capture", port), "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("POST /capture = %d", resp.StatusCode)
	}

	select {
	case code := <-done:
		if code != exitOK {
			t.Errorf("serve exit code = %d", code)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve kept running after the download")
	}
	if _, err := os.Stat(filepath.Join(saveDir, "DSC00001.JPG")); err != nil {
		t.Errorf("downloaded file: %v", err)
	}
}

// ---------- helpers ----------

func TestTimingsFromConfig(t *testing.T) {
	got := timingsFromConfig(config.TimingsConfig{FullPressHoldMs: 1500, WBStandbyAttempts: 3})
	if got.FullPressHold != 1500*time.Millisecond {
		t.Errorf("FullPressHold = %v, want 1.5s", got.FullPressHold)
	}
	if got.WBStandbyAttempts != 3 {
		t.Errorf("WBStandbyAttempts = %d, want 3", got.WBStandbyAttempts)
	}
	if got.ReleaseHold != 0 {
		t.Errorf("unset ReleaseHold = %v, want 0 (device default)", got.ReleaseHold)
	}
}

func TestWebPortFlag(t *testing.T) {
	w := &webPortFlag{defaultPort: 8080}
	if w.port() != 8080 {
		t.Errorf("unset port = %d, want 8080", w.port())
	}
	if err := w.Set(""); err != nil || w.port() != 8080 {
		t.Errorf("-web= should select the default, got %d (%v)", w.port(), err)
	}
	if err := w.Set("8980"); err != nil || w.port() != 8980 || w.String() != "8980" {
		t.Errorf("-web 8980 = %d (%v)", w.port(), err)
	}
	for _, bad := range []string{"0", "-1", "65536", "abc"} {
		if err := w.Set(bad); err == nil {
			t.Errorf("Set(%q) should fail", bad)
		}
	}
}
