package retrieval

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/models"
)

const (
	// DefaultPoolSize is the download worker count per run.
	DefaultPoolSize = 3

	// DefaultProgressDelay paces consecutive progress emissions for
	// slow consumers. It never throttles the download workers.
	DefaultProgressDelay = 50 * time.Millisecond
)

// Dispatcher fans a run plan out over a fixed-size worker pool and
// folds completions back into an ordered progress stream. Progress is
// counted in successes only; failures move the run forward without
// raising the count.
type Dispatcher struct {
	executor      *Executor
	poolSize      int
	progressDelay time.Duration
	logger        arbor.ILogger
}

// NewDispatcher creates a new dispatcher over the executor
func NewDispatcher(executor *Executor, poolSize int, progressDelay time.Duration, logger arbor.ILogger) *Dispatcher {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	return &Dispatcher{
		executor:      executor,
		poolSize:      poolSize,
		progressDelay: progressDelay,
		logger:        logger,
	}
}

type taskResult struct {
	task models.DocumentTask
	err  error
}

// Run executes every task in the plan and emits the progress stream:
// TOTAL once, PROGRESS per finished task, then one terminal COMPLETE.
// An empty plan short-circuits to a "no files" status and a zero
// summary. A context cancellation returns the partial summary with
// ctx's error; no terminal event is emitted in that case.
func (d *Dispatcher) Run(ctx context.Context, plan *models.RunPlan, emit func(models.ProgressEvent)) (*models.RunSummary, []models.TaskFailure, error) {
	if plan.IsEmpty() {
		emit(models.StatusEvent("No files found in the specified year range"))
		emit(models.CompleteEvent(0, 0, ""))
		return &models.RunSummary{}, nil, nil
	}

	total := len(plan.Tasks)
	emit(models.TotalEvent(total))

	jobs := make(chan models.DocumentTask, total)
	results := make(chan taskResult, total)

	var wg sync.WaitGroup
	for i := 0; i < d.poolSize; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case task, ok := <-jobs:
					if !ok {
						return
					}
					err := d.executor.Execute(ctx, &task)
					results <- taskResult{task: task, err: err}
				}
			}
		}()
	}

	for _, task := range plan.Tasks {
		jobs <- task
	}
	close(jobs)

	completed := 0
	var failures []models.TaskFailure
	startTime := time.Now()

	var runErr error
collect:
	for finished := 0; finished < total; finished++ {
		// Cancellation wins over results already queued
		if runErr = ctx.Err(); runErr != nil {
			break collect
		}
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break collect
		case result := <-results:
			if result.err != nil {
				failures = append(failures, models.TaskFailure{
					SourceURL:   result.task.SourceURL,
					Destination: result.task.Destination,
					Reason:      result.err.Error(),
				})
				if d.logger != nil {
					d.logger.Warn().
						Err(result.err).
						Str("url", result.task.SourceURL).
						Msg("Document download failed")
				}
			} else {
				completed++
			}

			emit(models.ProgressTick(completed, total, etaSeconds(startTime, completed, total)))
			time.Sleep(d.progressDelay)
		}
	}

	wg.Wait()

	summary := &models.RunSummary{
		Completed:   completed,
		Total:       total,
		ArchiveRoot: plan.ArchiveRoot,
	}
	if runErr != nil {
		return summary, failures, runErr
	}

	emit(models.CompleteEvent(completed, total, plan.ArchiveRoot))

	if d.logger != nil {
		d.logger.Info().
			Int("completed", completed).
			Int("total", total).
			Str("archive_root", plan.ArchiveRoot).
			Msg("Run dispatch finished")
	}

	return summary, failures, nil
}

// etaSeconds projects remaining seconds from the observed average
// time per success, truncated. Zero until the first success lands.
func etaSeconds(start time.Time, completed, total int) int {
	if completed <= 0 {
		return 0
	}
	avg := time.Since(start) / time.Duration(completed)
	remaining := time.Duration(total-completed) * avg
	return int(remaining.Seconds())
}
