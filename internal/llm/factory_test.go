package llm

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/horizon/internal/model"
	"github.com/ppiankov/horizon/internal/worker"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		wantName string
		wantErr  bool
	}{
		{"openai", "openai", false},
		{"OpenAI", "openai", false},
		{"anthropic", "anthropic", false},
		{"claude", "anthropic", false},
		{"ollama", "ollama", false},
		{"gemini", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: tt.provider, APIKey: "k", Model: "m"})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("expected %s, got %s", tt.wantName, p.Name())
			}
		})
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.APIKey = "secret"
	cfg.HTTP.HTTPSProxy = "http://proxy:8080"

	got := ConfigFromModel(cfg)
	if got.Provider != "openai" || got.APIKey != "secret" || got.HTTPSProxy != "http://proxy:8080" {
		t.Errorf("unexpected config: %+v", got)
	}
	if got.Timeout != cfg.LLM.Timeout {
		t.Errorf("expected timeout %d, got %d", cfg.LLM.Timeout, got.Timeout)
	}
}

type slowProvider struct {
	current, peak int32
	mu            sync.Mutex
}

func (s *slowProvider) Name() string { return "slow" }

func (s *slowProvider) IsAvailable(ctx context.Context) bool { return true }

func (s *slowProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	n := atomic.AddInt32(&s.current, 1)
	s.mu.Lock()
	if n > s.peak {
		s.peak = n
	}
	s.mu.Unlock()
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(&s.current, -1)
	return &CompletionResponse{Text: "ok"}, nil
}

func TestThrottledProvider_SharesCap(t *testing.T) {
	inner := &slowProvider{}
	throttle := worker.NewThrottle("llm", 2, 0, 0)
	p := NewThrottledProvider(inner, throttle)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Complete(context.Background(), CompletionRequest{Prompt: "x"}); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if inner.peak > 2 {
		t.Errorf("expected at most 2 concurrent completions, got %d", inner.peak)
	}
	if p.Name() != "slow" {
		t.Errorf("expected wrapped name, got %s", p.Name())
	}
}
