package resilience

import (
	"context"
	"testing"
	"time"
)

func TestDefaultTimeoutConfig(t *testing.T) {
	config := DefaultTimeoutConfig()

	if config.HTTPHandler <= config.Initiate {
		t.Errorf("HTTPHandler (%v) must be > Initiate (%v)", config.HTTPHandler, config.Initiate)
	}
	if config.Initiate <= config.StatusFetch {
		t.Errorf("Initiate (%v) must be > StatusFetch (%v)", config.Initiate, config.StatusFetch)
	}
	if config.StatusFetch <= config.TunnelLookup {
		t.Errorf("StatusFetch (%v) must be > TunnelLookup (%v)", config.StatusFetch, config.TunnelLookup)
	}

	if config.Initiate != 30*time.Second {
		t.Errorf("Expected Initiate = 30s, got %v", config.Initiate)
	}
	if config.StatusFetch != 5*time.Second {
		t.Errorf("Expected StatusFetch = 5s, got %v", config.StatusFetch)
	}
	if config.TunnelLookup != 3*time.Second {
		t.Errorf("Expected TunnelLookup = 3s, got %v", config.TunnelLookup)
	}
}

func TestTestTimeoutConfig(t *testing.T) {
	config := TestTimeoutConfig()

	if config.HTTPHandler <= config.Initiate || config.Initiate <= config.StatusFetch {
		t.Errorf("hierarchy must be preserved in test config: %+v", config)
	}
}

func TestContextCreators(t *testing.T) {
	config := DefaultTimeoutConfig()

	tests := []struct {
		name    string
		create  func(context.Context) (context.Context, context.CancelFunc)
		timeout time.Duration
	}{
		{"handler", config.HandlerContext, config.HTTPHandler},
		{"shutdown", config.ShutdownContext, config.Shutdown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.create(context.Background())
			defer cancel()

			deadline, ok := ctx.Deadline()
			if !ok {
				t.Fatal("expected a deadline")
			}
			remaining := time.Until(deadline)
			if remaining > tt.timeout || remaining < tt.timeout-time.Second {
				t.Errorf("remaining = %v, want about %v", remaining, tt.timeout)
			}
		})
	}
}

func TestContextCancellationPropagation(t *testing.T) {
	config := DefaultTimeoutConfig()

	parent, cancelParent := context.WithCancel(context.Background())
	child, cancel := config.HandlerContext(parent)
	defer cancel()

	cancelParent()

	select {
	case <-child.Done():
	case <-time.After(time.Second):
		t.Fatal("child context was not cancelled with its parent")
	}
}

func TestShorterParentDeadlineWins(t *testing.T) {
	config := DefaultTimeoutConfig()

	parent, cancelParent := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancelParent()

	child, cancel := config.HandlerContext(parent)
	defer cancel()

	deadline, _ := child.Deadline()
	if time.Until(deadline) > 100*time.Millisecond {
		t.Errorf("child deadline must not outlive the parent's")
	}
}
