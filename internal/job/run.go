// Package job provides the generation Run aggregate and the GenerateService
// that orchestrates synthesis, stitching and timestamp estimation for one
// script.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/job/id"
	"github.com/PandAAAH18/ROBLOX-RANT-GENERATOR/internal/timing"
)

// Status represents the current state of a generation Run. The run is the
// unit of failure: a single sentence error fails the whole run.
type Status string

const (
	// StatusInQueue indicates the run has been accepted but not started.
	StatusInQueue Status = "IN_QUEUE"
	// StatusRunning indicates the run is generating audio.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates the run finished successfully.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the run encountered an error.
	StatusFailed Status = "FAILED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusInQueue:   {StatusRunning, StatusFailed},
	StatusRunning:   {StatusCompleted, StatusFailed},
	StatusCompleted: {},
	StatusFailed:    {},
}

func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Run represents one audio generation run over a full script.
type Run struct {
	mu sync.RWMutex

	// ID is the unique identifier for this run.
	ID string
	// Status is the current run state.
	Status Status
	// SentenceCount is the number of sentences in the script.
	SentenceCount int
	// Completed is the number of sentences synthesized so far.
	Completed int
	// Error contains any error message if the run failed.
	Error string
	// AudioPath is the local path of the combined narration audio.
	AudioPath string
	// DocumentPath is the local path of the serialized timing document.
	DocumentPath string
	// AudioURL is the S3 URL of the audio if it was uploaded.
	AudioURL string
	// DocumentURL is the S3 URL of the timing document if uploaded.
	DocumentURL string
	// Document is the timing document produced by the run.
	Document *timing.Document
	// CreatedAt is when the run was created.
	CreatedAt time.Time
	// UpdatedAt is when the run was last updated.
	UpdatedAt time.Time
	// StartedAt is when generation started.
	StartedAt time.Time
	// CompletedAt is when generation finished.
	CompletedAt time.Time
}

// NewRun creates a new Run with a generated ID and initial IN_QUEUE status.
func NewRun() *Run {
	now := time.Now()
	return &Run{
		ID:        id.Generate(),
		Status:    StatusInQueue,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewRunWithID creates a new Run with the specified ID.
// Useful for testing or when the ID is generated externally.
func NewRunWithID(runID string) *Run {
	now := time.Now()
	return &Run{
		ID:        runID,
		Status:    StatusInQueue,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the run status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (r *Run) TransitionTo(status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !canTransition(r.Status, status) {
		return ErrInvalidTransition
	}

	r.Status = status
	r.UpdatedAt = time.Now()

	switch status {
	case StatusRunning:
		r.StartedAt = r.UpdatedAt
	case StatusCompleted, StatusFailed:
		r.CompletedAt = r.UpdatedAt
	}

	return nil
}

// Start transitions the run from IN_QUEUE to RUNNING.
func (r *Run) Start() error {
	return r.TransitionTo(StatusRunning)
}

// Complete transitions the run to COMPLETED.
func (r *Run) Complete() error {
	return r.TransitionTo(StatusCompleted)
}

// Fail transitions the run to FAILED with an error message.
func (r *Run) Fail(errMsg string) error {
	r.mu.Lock()
	r.Error = errMsg
	r.mu.Unlock()
	return r.TransitionTo(StatusFailed)
}

// GetStatus returns the current run status (thread-safe).
func (r *Run) GetStatus() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status
}

// MarkSentenceDone increments the completed sentence counter.
func (r *Run) MarkSentenceDone() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Completed < r.SentenceCount {
		r.Completed++
	}
	r.UpdatedAt = time.Now()
}

// SetResult records the run's final artifacts.
func (r *Run) SetResult(audioPath, documentPath string, doc *timing.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.AudioPath = audioPath
	r.DocumentPath = documentPath
	r.Document = doc
	r.UpdatedAt = time.Now()
}

// SetUploads records the S3 URLs of uploaded artifacts.
func (r *Run) SetUploads(audioURL, documentURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.AudioURL = audioURL
	r.DocumentURL = documentURL
	r.UpdatedAt = time.Now()
}

// IsTerminal returns true if the run is in a terminal state.
func (r *Run) IsTerminal() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// Clone creates a deep copy of the run for safe reads.
func (r *Run) Clone() *Run {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var doc *timing.Document
	if r.Document != nil {
		d := *r.Document
		d.Sentences = make([]timing.Sentence, len(r.Document.Sentences))
		copy(d.Sentences, r.Document.Sentences)
		doc = &d
	}

	return &Run{
		ID:            r.ID,
		Status:        r.Status,
		SentenceCount: r.SentenceCount,
		Completed:     r.Completed,
		Error:         r.Error,
		AudioPath:     r.AudioPath,
		DocumentPath:  r.DocumentPath,
		AudioURL:      r.AudioURL,
		DocumentURL:   r.DocumentURL,
		Document:      doc,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		StartedAt:     r.StartedAt,
		CompletedAt:   r.CompletedAt,
	}
}
