package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/mahafpc/fpo-ledger/internal/jobs"
	"github.com/mahafpc/fpo-ledger/internal/records"
	"github.com/mahafpc/fpo-ledger/internal/reports"
	"github.com/mahafpc/fpo-ledger/internal/reports/export"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ArchiveReports is the report surface the archive job reads from.
type ArchiveReports interface {
	Dashboard(ctx context.Context, req reports.Request) (reports.Dashboard, error)
	Valuation(ctx context.Context, req reports.Request) (reports.Valuation, error)
}

// PeriodArchiveJob writes one workbook per month holding the period
// summary, the farmer ledger and the inventory valuation.
type PeriodArchiveJob struct {
	Reports ArchiveReports
	Dir     string
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewPeriodArchiveJob wires dependencies for the archive handler.
func NewPeriodArchiveJob(rep ArchiveReports, dir string, logger *slog.Logger, metrics *jobmetrics.Metrics) *PeriodArchiveJob {
	return &PeriodArchiveJob{
		Reports: rep,
		Dir:     dir,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskPeriodArchive tasks.
func (j *PeriodArchiveJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Reports == nil {
		return errors.New("period archive: handler not configured")
	}
	var payload PeriodArchivePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("period archive: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	window, err := payload.window(j.now())
	if err != nil {
		return fmt.Errorf("period archive: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskPeriodArchive)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	path, err := j.Archive(ctx, window)
	if err != nil {
		j.logger().Error("period archive failed", slog.String("window", window.String()), slog.Any("error", err))
		return err
	}
	j.logger().Info("period archived", slog.String("window", window.String()), slog.String("path", path))
	return nil
}

// Archive builds the reports for window and writes them to a new file in
// Dir. The file appears under its final name only once fully written.
func (j *PeriodArchiveJob) Archive(ctx context.Context, window records.TimeWindow) (string, error) {
	req := reports.Request{Window: window}
	dash, err := j.Reports.Dashboard(ctx, req)
	if err != nil {
		return "", fmt.Errorf("period archive: dashboard: %w", err)
	}
	val, err := j.Reports.Valuation(ctx, req)
	if err != nil {
		return "", fmt.Errorf("period archive: valuation: %w", err)
	}

	tables := export.PeriodTables(dash.Period)
	tables = append(tables, export.LedgerTables(dash.Ledger)...)
	tables = append(tables, export.ValuationTable(val))

	if err := os.MkdirAll(j.Dir, 0o755); err != nil {
		return "", fmt.Errorf("period archive: %w", err)
	}
	name := fmt.Sprintf("period-%s-%s.xlsx", window.Start.Format(records.MonthLayout), uuid.NewString()[:8])
	final := filepath.Join(j.Dir, name)

	tmp, err := os.CreateTemp(j.Dir, ".archive-*.xlsx")
	if err != nil {
		return "", fmt.Errorf("period archive: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := export.WriteXLSX(tmp, tables...); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("period archive: write: %w", err)
	}
	info, err := tmp.Stat()
	if err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("period archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("period archive: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", fmt.Errorf("period archive: %w", err)
	}
	j.metrics().ObserveArchive(info.Size())
	return final, nil
}

func (j *PeriodArchiveJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *PeriodArchiveJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *PeriodArchiveJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
