package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mahafpc/fpo-ledger/internal/records"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPeriodArchive writes a month's reports to the archive directory.
	TaskPeriodArchive = "report:period-archive"
)

// PeriodArchivePayload names the month to archive. An empty Month means the
// calendar month before the one the task runs in.
type PeriodArchivePayload struct {
	Month string `json:"month,omitempty"`
}

// NewPeriodArchiveTask constructs an archive task for month ("2006-01" or "").
func NewPeriodArchiveTask(month string) (*asynq.Task, error) {
	body, err := json.Marshal(PeriodArchivePayload{Month: month})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPeriodArchive, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// window resolves the payload against now.
func (p PeriodArchivePayload) window(now time.Time) (records.TimeWindow, error) {
	if p.Month != "" {
		return records.ParseMonth(p.Month)
	}
	prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return records.MonthWindow(prev.Year(), prev.Month()), nil
}
