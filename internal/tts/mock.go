package tts

import (
	"context"
	"os"
	"sync"
)

// MockEngine is an Engine for tests. It records every request and writes a
// fixed payload to the output path, or returns the configured error.
type MockEngine struct {
	mu sync.Mutex

	// Payload is written to each request's output path. Defaults to a
	// short fake MP3 header when nil.
	Payload []byte
	// Err, when set, is returned for every request.
	Err error
	// FailText, when non-empty, fails only requests with this exact text.
	FailText string

	requests []Request
}

// Synthesize implements Engine.
func (m *MockEngine) Synthesize(_ context.Context, req Request) error {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	if m.FailText != "" && req.Text == m.FailText {
		return ErrEmptyAudio
	}

	payload := m.Payload
	if payload == nil {
		payload = []byte("ID3mockaudio")
	}
	return os.WriteFile(req.OutputPath, payload, 0600)
}

// Requests returns a copy of the recorded requests.
func (m *MockEngine) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

var _ Engine = (*MockEngine)(nil)
