package modelgen

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// StubProvider stands in for the reconstruction service when none is
// configured. Every task reports running until it has been polled
// pollsToComplete times, then completes with a stub model url.
type StubProvider struct {
	mu              sync.Mutex
	pollsToComplete int
	polls           map[string]int
}

func NewStubProvider(pollsToComplete int) *StubProvider {
	if pollsToComplete < 1 {
		pollsToComplete = 1
	}
	return &StubProvider{
		pollsToComplete: pollsToComplete,
		polls:           make(map[string]int),
	}
}

func (s *StubProvider) Submit(_ context.Context, imagePath string) (string, error) {
	if imagePath == "" {
		return "", ErrEmptyImagePath
	}
	id := "stub-" + uuid.New().String()
	s.mu.Lock()
	s.polls[id] = 0
	s.mu.Unlock()
	return id, nil
}

func (s *StubProvider) Poll(_ context.Context, providerJobID string) (PollResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.polls[providerJobID]
	if !ok {
		// tasks do not survive a restart of the stub
		return PollResult{Status: ProviderFailed, Reason: "unknown task " + providerJobID}, nil
	}
	n++
	s.polls[providerJobID] = n
	if n < s.pollsToComplete {
		return PollResult{Status: ProviderRunning}, nil
	}
	return PollResult{
		Status:   ProviderCompleted,
		ModelURL: fmt.Sprintf("stub://models/%s.glb", providerJobID),
	}, nil
}
