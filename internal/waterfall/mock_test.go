package waterfall

import (
	"context"
	"sync"

	"github.com/sells-group/market-scout/internal/model"
)

// stubConnector replays a scripted sequence of responses, one per Query call.
// When the script runs out the last step repeats.
type stubStep struct {
	snippets []model.RawSnippet
	err      error
}

type stubConnector struct {
	mu      sync.Mutex
	service string
	script  []stubStep
	calls   int
}

func newStub(service string, script ...stubStep) *stubConnector {
	return &stubConnector{service: service, script: script}
}

func (s *stubConnector) Service() string { return s.service }

func (s *stubConnector) Query(_ context.Context, _ string, _ int) ([]model.RawSnippet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	step := s.script[len(s.script)-1]
	if s.calls < len(s.script) {
		step = s.script[s.calls]
	}
	s.calls++
	return step.snippets, step.err
}

func (s *stubConnector) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func snippet(service, text string) model.RawSnippet {
	return model.RawSnippet{Service: service, Text: text}
}
