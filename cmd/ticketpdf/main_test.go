package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testConfigTOML = `
[api]
url = "https://api.example.com/v2"
token_env = "TICKETPDF_TEST_TOKEN"

[board]
id = "12345"
status_label_required = "Resolved"

[board.columns]
status = "status95"
open_date = "date4"
close_date = "date_closed"
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(testConfigTOML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	output, err := execute(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(output, target) {
		t.Fatalf("output %q does not name the target", output)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("sample not written: %v", err)
	}
	if !strings.Contains(string(data), "[board.columns]") {
		t.Fatalf("sample missing column mapping section")
	}

	if _, err := execute(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}
}

func TestConfigValidate(t *testing.T) {
	path := writeTestConfig(t)

	output, err := execute(t, "--config", path, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(output, "Configuration is valid.") {
		t.Fatalf("unexpected output %q", output)
	}
	if !strings.Contains(output, "TICKETPDF_TEST_TOKEN is not set") {
		t.Fatalf("expected missing-token note, got %q", output)
	}
}

func TestConfigValidateRejectsIncomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[api]\nurl = \"https://api.example.com\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := execute(t, "--config", path, "config", "validate"); err == nil {
		t.Fatal("expected validation error for incomplete config")
	}
}

func TestConfigPath(t *testing.T) {
	output, err := execute(t, "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if !strings.Contains(output, "config.toml") {
		t.Fatalf("unexpected output %q", output)
	}
}

func TestRunRequiresMonthFlag(t *testing.T) {
	path := writeTestConfig(t)

	_, err := execute(t, "--config", path, "run")
	if err == nil {
		t.Fatal("expected error without --month")
	}
	if !strings.Contains(err.Error(), "month") {
		t.Fatalf("error %q does not mention month", err)
	}
}

func TestRunRequiresToken(t *testing.T) {
	path := writeTestConfig(t)
	t.Setenv("TICKETPDF_TEST_TOKEN", "")

	_, err := execute(t, "--config", path, "run", "--month", "2024-06")
	if err == nil {
		t.Fatal("expected error without token")
	}
	if !strings.Contains(err.Error(), "TICKETPDF_TEST_TOKEN") {
		t.Fatalf("error %q does not name the token variable", err)
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"#", "Ticket"},
		[][]string{{"1", "Ticket-A"}, {"2"}},
		[]columnAlignment{alignRight, alignLeft},
	)
	if !strings.Contains(out, "Ticket-A") {
		t.Fatalf("table output missing row: %s", out)
	}
	if !strings.Contains(out, "Ticket") {
		t.Fatalf("table output missing header: %s", out)
	}
}
