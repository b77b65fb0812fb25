// Package cleanup purges expired credentials on a cron schedule.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wordaddict/finance-sub001/internal/metrics"
)

const jobName = "cleanup"

// PurgeFunc deletes rows that are no longer usable at now and reports how many went.
type PurgeFunc func(ctx context.Context, now time.Time) (int64, error)

type Task struct {
	Name  string
	Purge PurgeFunc
}

type Job struct {
	tasks   []Task
	metrics *metrics.Metrics
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewJob(tasks []Task, m *metrics.Metrics, logger *slog.Logger) *Job {
	return &Job{
		tasks:   tasks,
		metrics: m,
		logger:  logger,
		timeout: 5 * time.Minute,
		now:     time.Now,
	}
}

// Run executes every task once. A failing task does not stop the others.
func (j *Job) Run(ctx context.Context) (map[string]int64, error) {
	start := time.Now()
	now := j.now()
	purged := make(map[string]int64, len(j.tasks))

	var errs []error
	for _, t := range j.tasks {
		n, err := t.Purge(ctx, now)
		if err != nil {
			j.logger.Error("cleanup task failed", "task", t.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
			continue
		}
		purged[t.Name] = n
		j.logger.Info("cleanup task finished", "task", t.Name, "purged", n)
	}

	err := errors.Join(errs...)
	j.metrics.ObserveJob(jobName, time.Since(start), err)
	return purged, err
}

// Schedule registers the job on a new cron runner. The caller starts and stops it.
func (j *Job) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		defer cancel()
		_, _ = j.Run(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", spec, err)
	}
	return c, nil
}
