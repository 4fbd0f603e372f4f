package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of an async conversion job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusConverting JobStatus = "converting"
	StatusStoring    JobStatus = "storing"
	StatusCompleted  JobStatus = "completed"
	StatusReused     JobStatus = "reused"
	StatusFailed     JobStatus = "failed"
)

// Done reports whether the job reached a final state.
func (s JobStatus) Done() bool {
	return s == StatusCompleted || s == StatusReused || s == StatusFailed
}

// Job tracks the state of a single document conversion.
type Job struct {
	mu sync.Mutex

	ID       string    `json:"job_id"`
	BatchID  string    `json:"batch_id,omitempty"`
	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`

	ContentHash  string    `json:"content_hash,omitempty"`
	ConversionID string    `json:"conversion_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Internal: not serialized.
	opts     Options
	fileData []byte
	result   *Result
	errors   []string
}

// NewJob creates a queued job holding the raw file.
func NewJob(filename string, data []byte, opts Options) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.New().String(),
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  filename,
		CreatedAt: now,
		UpdatedAt: now,
		opts:      opts,
		fileData:  data,
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

func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes jobs not updated within the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// SetResult stores the conversion result and drops the raw file.
func (j *Job) SetResult(res *Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = res
	j.ContentHash = res.ContentHash
	j.fileData = nil
	j.UpdatedAt = time.Now()
}

func (j *Job) SetConversionID(id string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ConversionID = id
}

func (j *Job) Result() *Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID           string    `json:"job_id"`
	BatchID      string    `json:"batch_id,omitempty"`
	Status       JobStatus `json:"status"`
	Phase        string    `json:"phase"`
	Filename     string    `json:"filename"`
	ContentHash  string    `json:"content_hash,omitempty"`
	ConversionID string    `json:"conversion_id,omitempty"`
	Outcome      Status    `json:"outcome,omitempty"`
	Errors       []string  `json:"errors"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.errors...)
	snap := JobSnapshot{
		ID:           j.ID,
		BatchID:      j.BatchID,
		Status:       j.Status,
		Phase:        j.Phase,
		Filename:     j.Filename,
		ContentHash:  j.ContentHash,
		ConversionID: j.ConversionID,
		Errors:       errs,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
	if j.result != nil {
		snap.Outcome = j.result.Status
	}
	return snap
}
