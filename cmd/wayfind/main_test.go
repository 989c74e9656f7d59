package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matijazezelj/wayfind/internal/building"
	"github.com/matijazezelj/wayfind/internal/config"
	"github.com/matijazezelj/wayfind/internal/navigation"
	"github.com/matijazezelj/wayfind/internal/wayfinder"
	"github.com/matijazezelj/wayfind/pkg/models"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"DEBUG", slog.LevelDebug, false},
		{"Error", slog.LevelError, false},
		{"invalid", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := parseLogLevel(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseLogLevel(%q) expected error", tt.input)
			}
		} else {
			if err != nil {
				t.Errorf("parseLogLevel(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.input); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseBlockFlags(t *testing.T) {
	got, err := parseBlockFlags([]string{"A~B", "C~D, E~F"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[2] != (models.BlockedEdge{From: "E", To: "F"}) {
		t.Errorf("parseBlockFlags = %+v", got)
	}

	if _, err := parseBlockFlags([]string{"A-B"}); err == nil {
		t.Error("expected error for a malformed connection")
	}
	if got, _ := parseBlockFlags(nil); got != nil {
		t.Errorf("no flags should give nil, got %v", got)
	}
}

func TestPrintRoute(t *testing.T) {
	r := &wayfinder.RouteResult{
		Path:     []string{"A", "B", "C"},
		Distance: 12.5,
		Heading:  "Head north — 5m",
		Directions: []navigation.Step{
			{Text: "Turn left", NodeID: "B", Type: navigation.StepLeft, Distance: 7.5},
			{Text: "You have arrived at C", NodeID: "C", Type: navigation.StepArrive},
		},
		Guidance: []navigation.Step{
			{Text: "Start", NodeID: "A", Type: navigation.StepStart, Distance: 5},
		},
	}

	var buf bytes.Buffer
	printRoute(&buf, r, false)
	out := buf.String()
	for _, want := range []string{"Route: A → C (12.5 m, 3 places)", "Head north", "1. Turn left (7.5 m)", "2. You have arrived at C"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	printRoute(&buf, r, true)
	if !strings.Contains(buf.String(), "1. Start (5.0 m) [start]") {
		t.Errorf("guidance output = %s", buf.String())
	}
}

func TestPrintImpact(t *testing.T) {
	f := building.Default()
	b, err := f.Build()
	if err != nil {
		t.Fatal(err)
	}
	res := &navigation.ImpactResult{
		Blocked:        2,
		CutOff:         []string{"NODE_NC_E", "NODE_EW_MID"},
		ReachableNodes: 23,
	}

	var buf bytes.Buffer
	printImpact(&buf, b, res)
	out := buf.String()
	for _, want := range []string{"(standard)", "Blocked connections: 2", "Places cut off: 2", "├── NODE_NC_E (North corridor east, intersection)", "└── NODE_EW_MID"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

// writeTestConfig points the CLI at a fresh sqlite database.
func TestNewAlerter_Backends(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg := &config.Config{}
	if got := newAlerter(cfg, logger).Len(); got != 0 {
		t.Errorf("no backends enabled: Len = %d, want 0", got)
	}

	cfg.Alerts.Stdout.Enabled = true
	cfg.Alerts.Webhook.Enabled = true
	cfg.Alerts.Webhook.URL = "http://example.com/hook"
	if got := newAlerter(cfg, logger).Len(); got != 2 {
		t.Errorf("stdout and webhook enabled: Len = %d, want 2", got)
	}
	if !strings.Contains(buf.String(), "backends=2") {
		t.Errorf("backend count not logged: %q", buf.String())
	}
}

func writeTestConfig(t *testing.T) (cfgPath, dir string) {
	t.Helper()
	dir = t.TempDir()
	cfgPath = filepath.Join(dir, "wayfind.yaml")
	content := "storage:\n  path: " + filepath.Join(dir, "wayfind.db") + "\nalerts:\n  stdout:\n    enabled: false\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return cfgPath, dir
}

func runCLI(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfgPath, "--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	out, err := runCLI(t, cfgPath, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "wayfind dev") {
		t.Errorf("version output = %q", out)
	}
}

func TestCompletionCmd(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		out, err := runCLI(t, cfgPath, "completion", shell)
		if err != nil {
			t.Errorf("completion %s: %v", shell, err)
		}
		if !strings.Contains(out, "wayfind") {
			t.Errorf("completion %s output should mention wayfind", shell)
		}
	}
	if _, err := runCLI(t, cfgPath, "completion", "tcsh"); err == nil {
		t.Error("expected error for an unsupported shell")
	}
}

func TestInvalidLogFormat(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	if _, err := runCLI(t, cfgPath, "--log-format", "xml", "version"); err == nil {
		t.Error("expected error for an invalid log format")
	}
}

func TestBuildingShow_SeedsEmptyStore(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	out, err := runCLI(t, cfgPath, "building", "show")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Places:         25", "Connections:    26", fmt.Sprintf("  %-20s %d", "exit", 2)} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestBuildingImportFile(t *testing.T) {
	cfgPath, dir := writeTestConfig(t)
	file := filepath.Join(dir, "kiosk.yaml")
	doc := `name: Kiosk
nodes:
  - {id: hall, x: 0, y: 0, type: intersection}
  - {id: out, x: 5, y: 0, type: exit}
edges:
  - {from: hall, to: out, type: door, accessible: true}
`
	if err := os.WriteFile(file, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, cfgPath, "building", "import", file)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `Imported "Kiosk": 2 nodes, 1 edges`) {
		t.Errorf("import output = %q", out)
	}

	out, err = runCLI(t, cfgPath, "building", "nodes", "--type", "exit")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "out") || strings.Contains(out, "NODE_EXIT_C") {
		t.Errorf("nodes output = %q", out)
	}

	if _, err := runCLI(t, cfgPath, "building", "import", filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestRouteCmd(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	out, err := runCLI(t, cfgPath, "route", "NODE_NC_W", "NODE_SC_SE")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Route: NODE_NC_W → NODE_SC_SE (54.0 m") {
		t.Errorf("route output = %q", out)
	}

	out, err = runCLI(t, cfgPath, "route", "NODE_NC_W", "NODE_SC_SE", "--block", "NODE_EW_MID~NODE_NC_E")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "(54.0 m") {
		t.Errorf("blocked route should detour: %q", out)
	}

	out, err = runCLI(t, cfgPath, "route", "NODE_NC_W", "NODE_EXIT_C", "--accessible")
	if err == nil {
		t.Fatal("expected error when no accessible path exists")
	}
	if !strings.Contains(out, "No route:") {
		t.Errorf("output = %q", out)
	}
}

func TestEvacuateCmd(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	out, err := runCLI(t, cfgPath, "evacuate", "NODE_NC_W", "--accessible")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Nearest safe target: NODE_REFUGE_1 (refuge area)") {
		t.Errorf("evacuate output = %q", out)
	}
}

func TestHazardCommands(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	out, err := runCLI(t, cfgPath, "hazard", "add", "NODE_NC_3", "NODE_NC_E", "--reason", "smoke")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Hazard 1 declared on NODE_NC_3~NODE_NC_E") {
		t.Errorf("add output = %q", out)
	}
	if _, err := runCLI(t, cfgPath, "hazard", "add", "NODE_EW_MID", "NODE_NC_E"); err != nil {
		t.Fatal(err)
	}

	out, err = runCLI(t, cfgPath, "hazard", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "smoke") || !strings.Contains(out, "NODE_EW_MID") {
		t.Errorf("list output = %q", out)
	}

	out, err = runCLI(t, cfgPath, "impact")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Places cut off: 1") || !strings.Contains(out, "NODE_NC_E") {
		t.Errorf("impact output = %q", out)
	}

	out, err = runCLI(t, cfgPath, "building", "export", "--format", "mermaid")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "-. blocked .-") {
		t.Errorf("export should mark hazards as blocked: %q", out)
	}

	if _, err := runCLI(t, cfgPath, "hazard", "clear", "1"); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, cfgPath, "hazard", "clear", "1"); err == nil {
		t.Error("clearing an unknown hazard should fail")
	}

	out, err = runCLI(t, cfgPath, "hazard", "clear-all", "--force")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Cleared 1 hazards") {
		t.Errorf("clear-all output = %q", out)
	}

	out, _ = runCLI(t, cfgPath, "hazard", "list")
	if !strings.Contains(out, "No active hazards.") {
		t.Errorf("list output = %q", out)
	}
}

func TestHazardAdd_UnknownConnection(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	if _, err := runCLI(t, cfgPath, "hazard", "add", "NODE_NC_W", "NODE_SC_SE"); err == nil {
		t.Error("expected error for places that are not connected")
	}
}

func TestDBStatsAndBackup(t *testing.T) {
	cfgPath, dir := writeTestConfig(t)
	if _, err := runCLI(t, cfgPath, "building", "import"); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, cfgPath, "db", "stats")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Nodes: 25", "Edges: 26", "Imports: 1 total", "completed"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}

	dst := filepath.Join(dir, "backups", "wayfind.db")
	out, err = runCLI(t, cfgPath, "db", "backup", dst)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Backed up") {
		t.Errorf("backup output = %q", out)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Errorf("backup file missing: %v", err)
	}

	if _, err := runCLI(t, cfgPath, "db", "backup", dst, "--force"); err != nil {
		t.Errorf("forced overwrite: %v", err)
	}
}

func TestBuildingSync_RequiresMemgraph(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	_, err := runCLI(t, cfgPath, "building", "sync")
	if err == nil || !strings.Contains(err.Error(), "memgraph is not enabled") {
		t.Errorf("err = %v", err)
	}
}
