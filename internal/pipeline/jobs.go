package pipeline

import (
	"sync"
	"time"

	"github.com/dgallion1/lexsum/internal/document"
	"github.com/dgallion1/lexsum/internal/errhandler"
	"github.com/dgallion1/lexsum/internal/summarizer"
	"github.com/google/uuid"
)

// JobStatus represents the state of an async summarization job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Job tracks the state of a single queued document. It implements
// Observer so the pipeline can report progress into it.
type Job struct {
	mu sync.Mutex

	ID        string            `json:"job_id"`
	SessionID string            `json:"session_id"`
	Status    JobStatus         `json:"status"`
	Stage     Stage             `json:"stage"`
	Message   string            `json:"message"`
	Progress  int               `json:"progress"`
	Filename  string            `json:"filename"`
	Params    summarizer.Params `json:"params"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	upload   Upload
	warnings []string
	outcome  *Outcome
	failure  *errhandler.UserMessage
}

// NewJob creates a queued job for up.
func NewJob(sessionID string, up Upload, params summarizer.Params) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Status:    StatusQueued,
		Stage:     StageIdle,
		Message:   "Queued",
		Filename:  up.Filename,
		Params:    params,
		CreatedAt: now,
		UpdatedAt: now,
		upload:    up,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of stored jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs and returns how many were removed.
func (s *JobStore) Cleanup() int {
	return s.Sweep(time.Now())
}

// Sweep removes jobs last updated more than the TTL before now.
func (s *JobStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, job := range s.jobs {
		if now.Sub(job.updatedAt()) > s.ttl {
			delete(s.jobs, id)
			n++
		}
	}
	return n
}

// ClearAll drops every job and releases any upload bytes still held by
// queued jobs. Workers holding a job finish it, but it can no longer be
// polled.
func (s *JobStore) ClearAll() int {
	s.mu.Lock()
	jobs := s.jobs
	s.jobs = make(map[string]*Job)
	s.mu.Unlock()
	for _, job := range jobs {
		job.TakeUpload()
	}
	return len(jobs)
}

func (j *Job) updatedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.UpdatedAt = time.Now()
}

// OnStage records a stage change reported by the pipeline.
func (j *Job) OnStage(stage Stage, message string, progress int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Stage = stage
	j.Message = message
	j.Progress = max(0, min(100, progress))
	j.UpdatedAt = time.Now()
}

// OnWarning records a non-fatal processing warning.
func (j *Job) OnWarning(message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.warnings = append(j.warnings, message)
	j.UpdatedAt = time.Now()
}

// Complete stores the outcome and marks the job completed.
func (j *Job) Complete(out *Outcome) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.outcome = out
	j.Status = StatusCompleted
	j.UpdatedAt = time.Now()
}

// Fail stores the user message and marks the job failed.
func (j *Job) Fail(msg errhandler.UserMessage) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.failure = &msg
	j.Status = StatusFailed
	j.Message = msg.Title
	j.UpdatedAt = time.Now()
}

// TakeUpload returns the upload and drops the job's reference to the
// file bytes.
func (j *Job) TakeUpload() Upload {
	j.mu.Lock()
	defer j.mu.Unlock()
	up := j.upload
	j.upload = Upload{Filename: up.Filename}
	return up
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string                  `json:"job_id"`
	SessionID string                  `json:"session_id"`
	Status    JobStatus               `json:"status"`
	Stage     Stage                   `json:"stage"`
	Message   string                  `json:"message"`
	Progress  int                     `json:"progress"`
	Filename  string                  `json:"filename"`
	Warnings  []string                `json:"warnings"`
	Result    *summarizer.Result      `json:"result,omitempty"`
	Metadata  *document.Metadata      `json:"metadata,omitempty"`
	Error     *errhandler.UserMessage `json:"error,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	warnings := append([]string{}, j.warnings...)
	snap := JobSnapshot{
		ID:        j.ID,
		SessionID: j.SessionID,
		Status:    j.Status,
		Stage:     j.Stage,
		Message:   j.Message,
		Progress:  j.Progress,
		Filename:  j.Filename,
		Warnings:  warnings,
		Error:     j.failure,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	if j.outcome != nil {
		snap.Result = j.outcome.Result
		meta := j.outcome.Metadata
		snap.Metadata = &meta
	}
	return snap
}
