package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/veil-sh/veil/internal/db"
	"github.com/veil-sh/veil/internal/detect"
	"github.com/veil-sh/veil/internal/ops"
)

// setupTestApp creates a CLI app backed by a temporary database and a
// temporary session directory.
func setupTestApp(t *testing.T) (*cli.App, *sql.DB, string) {
	t.Helper()
	baseDir := t.TempDir()
	database, err := db.Init(baseDir)
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	det := detect.NewWithRecognizer(detect.LexicalRecognizer{})
	return newCLIApp(database, det, baseDir), database, baseDir
}

// runApp runs the app with the given args, capturing stdout.
func runApp(t *testing.T, app *cli.App, args ...string) (string, error) {
	t.Helper()
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := app.Run(append([]string{"veil"}, args...))

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	return buf.String(), err
}

// runAppWithStdin runs the app with the given stdin content piped in.
func runAppWithStdin(t *testing.T, app *cli.App, stdin string, args ...string) (string, error) {
	t.Helper()
	oldStdin := os.Stdin
	stdinR, stdinW, _ := os.Pipe()
	os.Stdin = stdinR
	go func() {
		_, _ = stdinW.WriteString(stdin)
		stdinW.Close()
	}()
	defer func() { os.Stdin = oldStdin }()

	return runApp(t, app, args...)
}

// loginTestUser registers and logs in a user, leaving a persisted session.
func loginTestUser(t *testing.T, app *cli.App) {
	t.Helper()
	if _, err := runApp(t, app, "register", "-u", "tester", "-p", "password123"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := runApp(t, app, "login", "-u", "tester", "-p", "password123"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
}

// TestCLIRegisterLogin tests account creation and session persistence.
func TestCLIRegisterLogin(t *testing.T) {
	app, _, baseDir := setupTestApp(t)

	out, err := runApp(t, app, "register", "-u", "tester", "-p", "password123")
	if err != nil {
		t.Fatalf("register command failed: %v", err)
	}
	var reg ops.RegisterOutput
	if err := json.Unmarshal([]byte(out), &reg); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if reg.UserID == 0 {
		t.Error("expected non-zero user id")
	}
	if reg.Username != "tester" {
		t.Errorf("expected username=tester, got %s", reg.Username)
	}

	if _, err := runApp(t, app, "login", "-u", "tester", "-p", "password123"); err != nil {
		t.Fatalf("login command failed: %v", err)
	}
	s, err := loadSession(baseDir)
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if s.UserID != reg.UserID {
		t.Errorf("expected session user %d, got %d", reg.UserID, s.UserID)
	}

	t.Run("wrong password", func(t *testing.T) {
		_, err := runApp(t, app, "login", "-u", "tester", "-p", "wrong-password")
		if err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("logout clears session", func(t *testing.T) {
		if _, err := runApp(t, app, "logout"); err != nil {
			t.Fatalf("logout command failed: %v", err)
		}
		s, err := loadSession(baseDir)
		if err != nil {
			t.Fatalf("failed to load session: %v", err)
		}
		if s.UserID != 0 {
			t.Errorf("expected cleared session, got user %d", s.UserID)
		}
	})
}

// TestCLIProjectLifecycle tests project create, list, and select.
func TestCLIProjectLifecycle(t *testing.T) {
	app, _, baseDir := setupTestApp(t)
	loginTestUser(t, app)

	out, err := runApp(t, app, "project", "create", "-n", "acme-review")
	if err != nil {
		t.Fatalf("project create failed: %v", err)
	}
	var created ops.CreateProjectOutput
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if created.Project.Name != "acme-review" {
		t.Errorf("expected name=acme-review, got %s", created.Project.Name)
	}

	s, err := loadSession(baseDir)
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if s.ProjectID != created.Project.ID {
		t.Errorf("expected active project %d, got %d", created.Project.ID, s.ProjectID)
	}

	t.Run("list", func(t *testing.T) {
		out, err := runApp(t, app, "project", "list")
		if err != nil {
			t.Fatalf("project list failed: %v", err)
		}
		var listed ops.ListProjectsOutput
		if err := json.Unmarshal([]byte(out), &listed); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if len(listed.Projects) != 1 {
			t.Errorf("expected 1 project, got %d", len(listed.Projects))
		}
	})

	t.Run("select by name", func(t *testing.T) {
		if _, err := runApp(t, app, "project", "create", "-n", "second"); err != nil {
			t.Fatalf("project create failed: %v", err)
		}
		out, err := runApp(t, app, "project", "select", "--name=acme-review")
		if err != nil {
			t.Fatalf("project select failed: %v", err)
		}
		var selected ops.SelectProjectOutput
		if err := json.Unmarshal([]byte(out), &selected); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if selected.Project.ID != created.Project.ID {
			t.Errorf("expected project %d, got %d", created.Project.ID, selected.Project.ID)
		}
	})

	t.Run("table output", func(t *testing.T) {
		out, err := runApp(t, app, "project", "list", "--output=table")
		if err != nil {
			t.Fatalf("project list failed: %v", err)
		}
		if !strings.Contains(out, "acme-review") {
			t.Errorf("table output missing project name:\n%s", out)
		}
	})
}

// TestCLINames tests known-name list management.
func TestCLINames(t *testing.T) {
	app, _, _ := setupTestApp(t)
	loginTestUser(t, app)
	if _, err := runApp(t, app, "project", "create", "-n", "acme-review"); err != nil {
		t.Fatalf("project create failed: %v", err)
	}

	out, err := runApp(t, app, "names", "add", "--scope=project", "Ryan Chen", "Priya")
	if err != nil {
		t.Fatalf("names add failed: %v", err)
	}
	var added ops.AddNamesOutput
	if err := json.Unmarshal([]byte(out), &added); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if added.Added != 2 {
		t.Errorf("expected added=2, got %d", added.Added)
	}

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "names.txt")
		if err := os.WriteFile(path, []byte("Acme Corp\nDataBridge\n"), 0644); err != nil {
			t.Fatal(err)
		}
		out, err := runApp(t, app, "names", "add", "--scope=user", "--from-file="+path)
		if err != nil {
			t.Fatalf("names add failed: %v", err)
		}
		var added ops.AddNamesOutput
		if err := json.Unmarshal([]byte(out), &added); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if added.Added != 2 {
			t.Errorf("expected added=2, got %d", added.Added)
		}
	})

	t.Run("list and delete", func(t *testing.T) {
		if _, err := runApp(t, app, "names", "delete", "--scope=project", "Priya"); err != nil {
			t.Fatalf("names delete failed: %v", err)
		}
		out, err := runApp(t, app, "names", "list", "--scope=project")
		if err != nil {
			t.Fatalf("names list failed: %v", err)
		}
		var listed ops.ListNamesOutput
		if err := json.Unmarshal([]byte(out), &listed); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if len(listed.Names) != 1 || listed.Names[0] != "Ryan Chen" {
			t.Errorf("expected [Ryan Chen], got %v", listed.Names)
		}
	})
}

// TestCLIObscureRestoreText tests the stdin text pipeline end to end.
func TestCLIObscureRestoreText(t *testing.T) {
	app, _, _ := setupTestApp(t)
	loginTestUser(t, app)
	if _, err := runApp(t, app, "project", "create", "-n", "acme-review"); err != nil {
		t.Fatalf("project create failed: %v", err)
	}

	original := "Ryan Chen reviewed the draft."
	out, err := runAppWithStdin(t, app, original, "obscure-text")
	if err != nil {
		t.Fatalf("obscure-text command failed: %v", err)
	}
	var obscured ops.ObscureTextOutput
	if err := json.Unmarshal([]byte(out), &obscured); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if !strings.Contains(obscured.Text, "Person_001") {
		t.Errorf("expected pseudonym in output, got %q", obscured.Text)
	}
	if obscured.RunID == "" {
		t.Error("expected non-empty run id")
	}

	out, err = runAppWithStdin(t, app, obscured.Text, "restore-text")
	if err != nil {
		t.Fatalf("restore-text command failed: %v", err)
	}
	var restored ops.RestoreTextOutput
	if err := json.Unmarshal([]byte(out), &restored); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if restored.Text != original {
		t.Errorf("round trip mismatch: got %q, want %q", restored.Text, original)
	}
}

// TestCLIObscureFiles tests the file batch command.
func TestCLIObscureFiles(t *testing.T) {
	app, _, _ := setupTestApp(t)
	loginTestUser(t, app)
	if _, err := runApp(t, app, "project", "create", "-n", "acme-review"); err != nil {
		t.Fatalf("project create failed: %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "memo.txt")
	if err := os.WriteFile(path, []byte("Ryan Chen reviewed the draft."), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := runApp(t, app, "obscure", path)
	if err != nil {
		t.Fatalf("obscure command failed: %v", err)
	}
	var output ops.ObscureFilesOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if output.Succeeded != 1 || output.Failed != 0 {
		t.Fatalf("expected 1 success, got %d/%d", output.Succeeded, output.Failed)
	}

	obscuredPath := filepath.Join(dir, "Obscured_memo.txt")
	data, err := os.ReadFile(obscuredPath)
	if err != nil {
		t.Fatalf("obscured file not written: %v", err)
	}
	if !strings.Contains(string(data), "Person_001") {
		t.Errorf("obscured file content = %q", data)
	}
}

// TestCLIMappingsAndHistory tests the audit listing commands.
func TestCLIMappingsAndHistory(t *testing.T) {
	app, _, _ := setupTestApp(t)
	loginTestUser(t, app)
	if _, err := runApp(t, app, "project", "create", "-n", "acme-review"); err != nil {
		t.Fatalf("project create failed: %v", err)
	}
	if _, err := runAppWithStdin(t, app, "Ryan Chen reviewed the draft.", "obscure-text"); err != nil {
		t.Fatalf("obscure-text command failed: %v", err)
	}

	out, err := runApp(t, app, "mappings")
	if err != nil {
		t.Fatalf("mappings command failed: %v", err)
	}
	var mappings ops.ListMappingsOutput
	if err := json.Unmarshal([]byte(out), &mappings); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if len(mappings.Mappings) != 1 {
		t.Errorf("expected 1 mapping, got %d", len(mappings.Mappings))
	}

	out, err = runApp(t, app, "history", "--output=table")
	if err != nil {
		t.Fatalf("history command failed: %v", err)
	}
	if !strings.Contains(out, "Run") {
		t.Errorf("table output missing header:\n%s", out)
	}
}

// TestCLIErrorHandling tests error handling in CLI commands.
func TestCLIErrorHandling(t *testing.T) {
	app, _, _ := setupTestApp(t)

	t.Run("project create without login returns error", func(t *testing.T) {
		_, err := runApp(t, app, "project", "create", "-n", "unauthorized")
		if err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("obscure-text without project returns error", func(t *testing.T) {
		loginTestUser(t, app)
		_, err := runAppWithStdin(t, app, "some text", "obscure-text")
		if err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("names delete requires exactly one name", func(t *testing.T) {
		_, err := runApp(t, app, "names", "delete", "--scope=user", "a", "b")
		if err == nil {
			t.Error("expected error, got nil")
		}
	})
}

// TestSessionRoundTrip tests the session persistence helpers.
func TestSessionRoundTrip(t *testing.T) {
	baseDir := t.TempDir()

	s, err := loadSession(baseDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.UserID != 0 || s.ProjectID != 0 {
		t.Errorf("expected zero session, got %+v", s)
	}

	want := ops.Session{UserID: 7, ProjectID: 3}
	if err := saveSession(baseDir, want); err != nil {
		t.Fatalf("saveSession failed: %v", err)
	}
	got, err := loadSession(baseDir)
	if err != nil {
		t.Fatalf("loadSession failed: %v", err)
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	if err := clearSession(baseDir); err != nil {
		t.Fatalf("clearSession failed: %v", err)
	}
	if err := clearSession(baseDir); err != nil {
		t.Errorf("clearSession on missing file failed: %v", err)
	}
}

// TestParseID tests the parseID helper function.
func TestParseID(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    int64
		expectError bool
	}{
		{
			name:     "valid id",
			input:    "42",
			expected: 42,
		},
		{
			name:        "zero",
			input:       "0",
			expectError: true,
		},
		{
			name:        "negative",
			input:       "-3",
			expectError: true,
		},
		{
			name:        "not a number",
			input:       "abc",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseID(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

// TestIsCLIMode tests the isCLIMode function.
func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{
			name:     "no args",
			args:     []string{"veil"},
			expected: false,
		},
		{
			name:     "obscure command",
			args:     []string{"veil", "obscure"},
			expected: true,
		},
		{
			name:     "project command",
			args:     []string{"veil", "project"},
			expected: true,
		},
		{
			name:     "help flag",
			args:     []string{"veil", "--help"},
			expected: true,
		},
		{
			name:     "version flag",
			args:     []string{"veil", "--version"},
			expected: true,
		},
		{
			name:     "unknown arg defaults to MCP",
			args:     []string{"veil", "--unknown"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			result := isCLIMode()

			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

// TestIsHelpOrVersion tests the isHelpOrVersion function.
func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{
			name:     "no args",
			args:     []string{"veil"},
			expected: false,
		},
		{
			name:     "help flag",
			args:     []string{"veil", "--help"},
			expected: true,
		},
		{
			name:     "help subcommand",
			args:     []string{"veil", "help"},
			expected: true,
		},
		{
			name:     "version flag",
			args:     []string{"veil", "-v"},
			expected: true,
		},
		{
			name:     "obscure command is not help",
			args:     []string{"veil", "obscure"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			result := isHelpOrVersion()

			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}
