package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	m "mutago.dev/pkg/mutago/internal/model"
)

// ReportFile is the name of the run report inside a report directory.
const ReportFile = "report.yaml"

// ReportStore persists run reports.
type ReportStore interface {
	SaveReport(ctx context.Context, dir m.Path, report m.RunReport) (m.Path, error)
	LoadReport(ctx context.Context, dir m.Path) (m.RunReport, error)
}

// LocalReportStore writes reports as YAML files on disk.
type LocalReportStore struct{}

// NewLocalReportStore constructs a LocalReportStore.
func NewLocalReportStore() *LocalReportStore {
	return &LocalReportStore{}
}

// SaveReport writes report to dir/report.yaml and returns the file path.
func (s *LocalReportStore) SaveReport(ctx context.Context, dir m.Path, report m.RunReport) (m.Path, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(string(dir), 0o750); err != nil {
		slog.Error("Failed to create report directory", "path", dir, "error", err)
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		slog.Error("Failed to encode report", "run", report.RunID, "error", err)
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	path := filepath.Join(string(dir), ReportFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		slog.Error("Failed to write report", "path", path, "error", err)
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return m.Path(path), nil
}

// LoadReport reads dir/report.yaml. dir may also name the file itself.
func (s *LocalReportStore) LoadReport(ctx context.Context, dir m.Path) (m.RunReport, error) {
	if err := ctx.Err(); err != nil {
		return m.RunReport{}, err
	}

	path := string(dir)
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, ReportFile)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return m.RunReport{}, fmt.Errorf("failed to read report: %w", err)
	}

	var report m.RunReport
	if err := yaml.Unmarshal(data, &report); err != nil {
		slog.Error("Failed to decode report", "path", path, "error", err)
		return m.RunReport{}, fmt.Errorf("failed to decode report %s: %w", path, err)
	}

	return report, nil
}
