package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgallion1/lexsum/internal/errhandler"
)

// Worker processes a single document job.
type Worker struct {
	proc       Processor
	log        *slog.Logger
	onComplete func(job *Job, out *Outcome)
}

func NewWorker(proc Processor, log *slog.Logger, onComplete func(job *Job, out *Outcome)) *Worker {
	return &Worker{proc: proc, log: log, onComplete: onComplete}
}

// Process runs the pipeline for a job and records the outcome on it.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)
	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked", "panic", fmt.Sprint(r))
			job.Fail(errhandler.MessageFor(errhandler.System("process_job", fmt.Sprintf("panic: %v", r))))
		}
	}()

	job.SetStatus(StatusRunning)
	up := job.TakeUpload()
	out, err := w.proc.Process(ctx, up, job.Params, job)
	if err != nil {
		var f *Failure
		if errors.As(err, &f) {
			job.Fail(f.Message)
		} else {
			job.Fail(errhandler.MessageFor(err))
		}
		log.Warn("job failed", "error", err)
		return
	}

	job.Complete(out)
	if w.onComplete != nil {
		w.onComplete(job, out)
	}
	log.Info("job completed", "words", out.Result.WordCount, "warnings", len(out.Warnings))
}
