package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	cmd := rootCmd()

	for _, name := range []string{"run", "fetch", "icons"} {
		sub, _, err := cmd.Find([]string{name})
		if err != nil || sub.Name() != name {
			t.Errorf("subcommand %s missing: %v", name, err)
		}
	}
	if f := cmd.PersistentFlags().Lookup("config"); f == nil || f.DefValue != DEFAULT_CONFIG_PATH {
		t.Error("--config flag missing or wrong default")
	}
}

func TestIconsCommand(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "alerter.toml")
	content := "[icons]\ndir = \"" + filepath.ToSlash(filepath.Join(dir, "icons")) + "\"\n"
	if err := os.WriteFile(config, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"icons", "--config", config})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("icons: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("listed %d icons; want 6:\n%s", len(lines), out.String())
	}
	if !strings.Contains(out.String(), "Yeowch! Seafood soup!") || !strings.Contains(lines[0], "32x32") {
		t.Errorf("unexpected listing:\n%s", out.String())
	}
}

func TestFetchCommand(t *testing.T) {
	status := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"motd":"Hello","alert":"","connection-status":"backup"}`))
	}))
	defer status.Close()
	sleep := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("awake"))
	}))
	defer sleep.Close()

	dir := t.TempDir()
	config := filepath.Join(dir, "alerter.toml")
	content := "[poll]\n" +
		"status_endpoint = \"" + status.URL + "/api/messages\"\n" +
		"sleep_endpoint = \"" + sleep.URL + "/am-i-sleeping\"\n" +
		"ping_host = \"127.0.0.1\"\n" +
		"ping_attempts = 1\n" +
		"ping_timeout_ms = 200\n" +
		"ping_privileged = false\n"
	if err := os.WriteFile(config, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"fetch", "-c", config})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	var snap StatusSnapshot
	if err := json.Unmarshal(out.Bytes(), &snap); err != nil {
		t.Fatalf("fetch output is not JSON: %v\n%s", err, out.String())
	}
	if !snap.Connectivity.Failover {
		t.Errorf("connection-status backup should mean failover: %+v", snap.Connectivity)
	}
}

func TestLoadConfigErrorFailsCommand(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"icons", "--config", filepath.Join(t.TempDir(), "missing.toml")})
	if err := cmd.Execute(); err == nil {
		t.Error("a missing explicit config should fail the command")
	}
}
