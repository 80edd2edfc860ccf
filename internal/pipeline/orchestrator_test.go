package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/lexsum/internal/config"
	"github.com/dgallion1/lexsum/internal/errhandler"
	"github.com/dgallion1/lexsum/internal/summarizer"
)

type fakeProcessor struct {
	block   chan struct{}
	err     error
	panicOn string
}

func (f *fakeProcessor) Process(ctx context.Context, up Upload, params summarizer.Params, obs Observer) (*Outcome, error) {
	if f.panicOn != "" && up.Filename == f.panicOn {
		panic("reader state corrupted")
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	obs.OnStage(StageSummarizing, "Generating AI summary...", 45)
	if f.err != nil {
		return nil, f.err
	}
	obs.OnStage(StageDone, "Processing complete!", 100)
	return &Outcome{Result: &summarizer.Result{Summary: "ok " + up.Filename}, Warnings: []string{}}, nil
}

func testConfig(workers, queue int) config.Config {
	return config.Config{WorkerCount: workers, MaxQueueSize: queue, JobTTL: time.Hour}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitForStatus(t *testing.T, job *Job, want JobStatus) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := job.Snapshot()
		if snap.Status == want {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach %q, last %q", job.ID, want, job.Snapshot().Status)
	return JobSnapshot{}
}

func TestOrchestrator_CompletesJob(t *testing.T) {
	o := NewOrchestrator(testConfig(2, 4), &fakeProcessor{}, discardLogger())

	var mu sync.Mutex
	var completed []string
	o.OnComplete(func(job *Job, out *Outcome) {
		mu.Lock()
		completed = append(completed, job.SessionID)
		mu.Unlock()
	})
	o.Start(context.Background())

	job := NewJob("sess-1", Upload{Filename: "lease.txt", Data: []byte("data")}, summarizer.Params{})
	if err := o.Submit(job); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if o.GetJob(job.ID) != job {
		t.Fatal("expected job to be retrievable")
	}

	snap := waitForStatus(t, job, StatusCompleted)
	if snap.Progress != 100 || snap.Stage != StageDone {
		t.Errorf("expected done at 100%%, got %q at %d", snap.Stage, snap.Progress)
	}
	if snap.Result == nil || snap.Result.Summary != "ok lease.txt" {
		t.Errorf("unexpected result %+v", snap.Result)
	}

	// Stop waits for the worker, so the hook has run.
	o.Stop()
	mu.Lock()
	defer mu.Unlock()
	if len(completed) != 1 || completed[0] != "sess-1" {
		t.Errorf("expected completion hook for sess-1, got %v", completed)
	}
}

func TestOrchestrator_FailedJobCarriesMessage(t *testing.T) {
	failure := &Failure{
		Stage:   StageSummarizing,
		Message: errhandler.UserMessage{Title: "AI Service Temporarily Unavailable"},
		Err:     errors.New("boom"),
	}
	o := NewOrchestrator(testConfig(1, 1), &fakeProcessor{err: failure}, discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("s", Upload{Filename: "lease.txt"}, summarizer.Params{})
	if err := o.Submit(job); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	snap := waitForStatus(t, job, StatusFailed)
	if snap.Error == nil || snap.Error.Title != "AI Service Temporarily Unavailable" {
		t.Errorf("expected failure message, got %+v", snap.Error)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	// No workers started: the queue only fills.
	o := NewOrchestrator(testConfig(1, 1), &fakeProcessor{}, discardLogger())

	first := NewJob("s", Upload{Filename: "a.txt"}, summarizer.Params{})
	if err := o.Submit(first); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected depth 1, got %d", o.QueueDepth())
	}

	second := NewJob("s", Upload{Filename: "b.txt", Data: []byte("confidential lease text")}, summarizer.Params{})
	if err := o.Submit(second); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	snap := second.Snapshot()
	if snap.Status != StatusFailed || snap.Error == nil {
		t.Errorf("expected rejected job failed with a message, got %q %+v", snap.Status, snap.Error)
	}
	if o.GetJob(second.ID) != nil {
		t.Error("rejected job should not be stored")
	}
	if o.JobCount() != 1 {
		t.Errorf("expected only the queued job stored, got %d", o.JobCount())
	}
	if data := second.TakeUpload().Data; len(data) != 0 {
		t.Errorf("rejected job still holds %d upload bytes", len(data))
	}
}

func TestOrchestrator_SubmitAfterStop(t *testing.T) {
	o := NewOrchestrator(testConfig(1, 1), &fakeProcessor{block: make(chan struct{})}, discardLogger())
	o.Start(context.Background())
	o.Stop()
	o.Stop()

	err := o.Submit(NewJob("s", Upload{Filename: "a.txt"}, summarizer.Params{}))
	if !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
}

func TestOrchestrator_PanickingJobFailsAndWorkerSurvives(t *testing.T) {
	o := NewOrchestrator(testConfig(1, 4), &fakeProcessor{panicOn: "broken.pdf"}, discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	bad := NewJob("s", Upload{Filename: "broken.pdf", Data: []byte("%PDF-")}, summarizer.Params{})
	if err := o.Submit(bad); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	snap := waitForStatus(t, bad, StatusFailed)
	if snap.Error == nil || snap.Error.Title != "System Error" {
		t.Errorf("expected system error message, got %+v", snap.Error)
	}

	good := NewJob("s", Upload{Filename: "lease.txt", Data: []byte("data")}, summarizer.Params{})
	if err := o.Submit(good); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForStatus(t, good, StatusCompleted)
}
