package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainmocks "mutago.dev/pkg/mutago/internal/domain/mocks"
	m "mutago.dev/pkg/mutago/internal/model"
)

// resetConfig gives the test a fresh viper instance with the CLI defaults, so
// flags set by earlier tests do not leak into flag defaults.
func resetConfig(t *testing.T) {
	t.Helper()

	logger := slog.Default()

	viper.Reset()
	initConfig()
	viper.SetDefault(logFilenameKey, filepath.Join(t.TempDir(), "mutago.log"))

	t.Cleanup(func() {
		viper.Reset()
		initConfig()
		slog.SetDefault(logger)
	})
}

// newTestCLI returns a root command carrying subcommands and a mock workflow
// installed in place of the real one.
func newTestCLI(t *testing.T, subcommands ...*cobra.Command) (*cobra.Command, *domainmocks.MockWorkflow) {
	t.Helper()

	resetConfig(t)

	mockWorkflow := domainmocks.NewMockWorkflow(t)
	originalWorkflow := workflow
	workflow = mockWorkflow
	t.Cleanup(func() { workflow = originalWorkflow })

	cmd := newRootCmd()
	cmd.AddCommand(subcommands...)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	return cmd, mockWorkflow
}

func TestParsePaths(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []m.Path
	}{
		{"empty", []string{}, []m.Path{}},
		{"single", []string{"./..."}, []m.Path{m.Path("./...")}},
		{
			"multiple",
			[]string{"./cmd", "./pkg", "./internal"},
			[]m.Path{m.Path("./cmd"), m.Path("./pkg"), m.Path("./internal")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parsePaths(tt.args)
			require.Len(t, got, len(tt.want))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRootCmd(t *testing.T) {
	resetConfig(t)

	cmd := newRootCmd()
	assert.Equal(t, "mutago", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.Equal(t, rootLongDescription, cmd.Long)

	for _, name := range []string{outputFlagName, excludeFlagName, logFileFlagName, verboseFlagName} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}

	assert.Equal(t, defaultReportsDir, cmd.PersistentFlags().Lookup(outputFlagName).DefValue)
}

func TestRootCmd_HelpOutput(t *testing.T) {
	resetConfig(t)

	cmd := newRootCmd()
	output := &bytes.Buffer{}
	cmd.SetOut(output)
	cmd.SetErr(&bytes.Buffer{})

	cmd.SetArgs([]string{})
	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, output.String(), "Usage:")
	assert.Contains(t, output.String(), "Supports Go-style path patterns")
}

func TestRootCmd_ConfigFromEnvironment(t *testing.T) {
	t.Setenv("MUTAGO_OUTPUT", "env-reports")
	t.Setenv("MUTAGO_RUN_ORDER", "3")

	resetConfig(t)

	assert.Equal(t, "env-reports", viper.GetString(outputFlagName))
	assert.Equal(t, 3, viper.GetInt(orderConfigKey))
}

func TestInit(t *testing.T) {
	assert.NotNil(t, ui)
	assert.NotNil(t, goFileAdapter)
	assert.NotNil(t, fsAdapter)
	assert.NotNil(t, reportStore)
	assert.NotNil(t, testAdapter)
	assert.NotNil(t, loader)
	assert.NotNil(t, orchestrator)
	assert.NotNil(t, workflow)

	names := make([]string, 0)
	for _, sub := range rootCmd.Commands() {
		names = append(names, sub.Name())
	}

	assert.Subset(t, names, []string{"run", "list", "view", "init", "version"})
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, exitOK},
		{"plain error", errors.New("boom"), exitFailure},
		{"survivors", &exitError{code: exitSurvivors}, exitSurvivors},
		{"wrapped", fmt.Errorf("run: %w", &exitError{code: exitLoadError, err: errors.New("no module")}), exitLoadError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestExitError_Message(t *testing.T) {
	assert.Equal(t, "exit status 2", (&exitError{code: 2}).Error())

	cause := errors.New("tests fail")
	err := &exitError{code: exitBaselineFailure, err: cause}
	assert.Equal(t, "tests fail", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestExecute(t *testing.T) {
	originalRootCmd := rootCmd
	defer func() { rootCmd = originalRootCmd }()

	mockCmd := &cobra.Command{
		Use: "test",
		RunE: func(_ *cobra.Command, _ []string) error {
			return nil
		},
	}
	mockCmd.SetOut(&bytes.Buffer{})
	mockCmd.SetErr(&bytes.Buffer{})
	mockCmd.SetArgs([]string{})

	rootCmd = mockCmd

	// returns without exiting when the command succeeds
	Execute()
}

func TestExecute_ProcessLevel_Success(t *testing.T) {
	if os.Getenv("TEST_EXECUTE_SUBPROCESS") == "1" {
		rootCmd = &cobra.Command{
			Use: "test",
			RunE: func(_ *cobra.Command, _ []string) error {
				fmt.Println("success")
				return nil
			},
		}
		rootCmd.SetArgs([]string{})

		Execute()

		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestExecute_ProcessLevel_Success")
	cmd.Env = append(os.Environ(), "TEST_EXECUTE_SUBPROCESS=1")
	output, err := cmd.CombinedOutput()

	require.NoError(t, err, "output: %s", output)
	assert.Contains(t, string(output), "success")
}

func TestExecute_ProcessLevel_ExitCodes(t *testing.T) {
	if code := os.Getenv("TEST_EXECUTE_EXIT_CODE"); code != "" {
		var want int

		_, _ = fmt.Sscanf(code, "%d", &want)

		rootCmd = &cobra.Command{
			Use:           "test",
			SilenceErrors: true,
			RunE: func(_ *cobra.Command, _ []string) error {
				if want == exitFailure {
					return errors.New("command failed")
				}

				return &exitError{code: want}
			},
		}
		rootCmd.SetArgs([]string{})

		Execute()

		return
	}

	for _, want := range []int{exitFailure, exitSurvivors, exitBaselineFailure, exitLoadError} {
		t.Run(fmt.Sprint(want), func(t *testing.T) {
			cmd := exec.Command(os.Args[0], "-test.run=^TestExecute_ProcessLevel_ExitCodes$")
			cmd.Env = append(os.Environ(), fmt.Sprintf("TEST_EXECUTE_EXIT_CODE=%d", want))
			_, err := cmd.CombinedOutput()

			var exitErr *exec.ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, want, exitErr.ExitCode())
		})
	}
}
