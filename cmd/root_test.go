// File: cmd/root_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fengtianyu/courtdash/internal/observability"
)

// writeTestConfig points logger and diagnostics output into the test's temp
// dir so runs leave no files behind in the working directory.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "logger:\n" +
		"  level: error\n" +
		"  log_file: " + filepath.Join(dir, "test.log") + "\n" +
		"diagnostics:\n" +
		"  dir: " + dir + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRootCmdVersionFlag(t *testing.T) {
	rootCmd := NewRootCommand()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"--version"})

	err := rootCmd.ExecuteContext(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out.String(), Version)
}

func TestRootCmdNoArgsShowsHelp(t *testing.T) {
	rootCmd := NewRootCommand()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{})

	err := rootCmd.ExecuteContext(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "release instant")
}

func TestRunCmdRequiresCredentials(t *testing.T) {
	observability.ResetForTest()
	t.Setenv("BOOKING_USERNAME", "")
	t.Setenv("BOOKING_PASSWORD", "")

	rootCmd := NewRootCommand()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"run", "--config", writeTestConfig(t)})

	err := rootCmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOOKING_USERNAME")
}

func TestRunCmdRejectsBadTargetTime(t *testing.T) {
	observability.ResetForTest()
	t.Setenv("BOOKING_USERNAME", "user")
	t.Setenv("BOOKING_PASSWORD", "pass")

	rootCmd := NewRootCommand()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"run", "--config", writeTestConfig(t), "--target-time", "8am"})

	err := rootCmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target_time")
}

func TestUnknownCommand(t *testing.T) {
	rootCmd := NewRootCommand()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"teleport"})

	err := rootCmd.ExecuteContext(context.Background())
	require.Error(t, err)
}
