package generation

import (
	"context"
	"time"

	"github.com/reelforge/server/internal/shared/logger"
	"github.com/reelforge/server/internal/shared/metrics"
)

// Poller drives a task to a terminal state by repeatedly querying the
// provider pool. It holds no task state of its own: each round
// re-derives everything from the remote side, so polling the same id
// from several callers is safe.
type Poller struct {
	interval time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// NewPoller creates a poller with the given round interval.
func NewPoller(interval time.Duration, log *logger.Logger, m *metrics.Metrics) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{
		interval: interval,
		sleep:    sleepContext,
		now:      time.Now,
		log:      log,
		metrics:  m,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Poll queries every client in order each round until a terminal status
// is observed or the deadline expires. A succeeded or failed status
// returns immediately; per-client errors only fail that client for the
// round. Deadline expiry returns timed_out carrying the last transport
// error observed.
func (p *Poller) Poll(ctx context.Context, clients []ProviderClient, taskID string, deadline time.Duration) *Task {
	task := &Task{ID: taskID, Status: StatusPending}
	start := p.now()
	var lastErr error

	for {
		view := p.round(ctx, clients, taskID, &lastErr)
		if view != nil {
			switch view.Status {
			case StatusSucceeded:
				task.Status = StatusSucceeded
				task.VideoURL = view.VideoURL
				return task
			case StatusFailed:
				task.Status = StatusFailed
				task.Error = view.Detail
				return task
			default:
				task.Status = view.Status
			}
		}

		// Stop once the next round could not start before the
		// deadline; overshoot stays below one interval.
		if p.now().Sub(start)+p.interval > deadline {
			task.Status = StatusTimedOut
			if lastErr != nil {
				task.Error = lastErr.Error()
			}
			return task
		}

		if err := p.sleep(ctx, p.interval); err != nil {
			task.Status = StatusTimedOut
			task.Error = err.Error()
			return task
		}
	}
}

// round queries each client in order and returns the first view that
// parses. Errors are recorded into lastErr and swallowed.
func (p *Poller) round(ctx context.Context, clients []ProviderClient, taskID string, lastErr *error) *TaskView {
	if p.metrics != nil {
		p.metrics.PollRoundsTotal.Inc()
	}
	for _, client := range clients {
		view, err := client.GetTask(ctx, taskID)
		if err != nil {
			*lastErr = err
			p.log.Debug("poll round client failed",
				logger.String("endpoint", client.Endpoint()),
				logger.String("task_id", taskID),
				logger.Err(err),
			)
			continue
		}
		return view
	}
	return nil
}
