// Package notifier provides notification dispatching for triggered alerts.
package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/scriptflow/scriptflow/internal/models"
)

// ChannelEmail and ChannelInternal are the built-in notifier names.
const (
	ChannelEmail    = "email"
	ChannelInternal = "internal"
)

// Event describes one alert trigger to be delivered.
type Event struct {
	// Alert is the rule that fired.
	Alert *models.Alert

	// MatchedCount is the number of log records matched in the window.
	MatchedCount int64

	// WindowStart and WindowEnd bound the evaluated interval.
	WindowStart time.Time
	WindowEnd   time.Time

	// Sample holds up to models.MaxSampleLogs matched records.
	Sample []*models.LogRecord
}

// Notifier is the interface for a single notification channel.
type Notifier interface {
	// Name returns the channel name (e.g. "email", "internal").
	Name() string
	// Send delivers one trigger event.
	Send(ctx context.Context, ev *Event) error
	// Close releases any resources.
	Close() error
}

// Dispatcher routes trigger events to the channels each alert opted
// into. Delivery failures never propagate as panics or block callers;
// they come back as a joined error for the history record.
type Dispatcher struct {
	mu          sync.RWMutex
	notifiers   map[string]Notifier
	rateLimiter *RateLimiter
}

// NewDispatcher creates a dispatcher with default rate limiting.
func NewDispatcher() *Dispatcher {
	return NewDispatcherWithRateLimit(DefaultRateLimitConfig())
}

// NewDispatcherWithRateLimit creates a dispatcher with custom rate
// limit configuration.
func NewDispatcherWithRateLimit(config RateLimitConfig) *Dispatcher {
	return &Dispatcher{
		notifiers:   make(map[string]Notifier),
		rateLimiter: NewRateLimiter(config),
	}
}

// Register adds a notifier to the dispatcher.
func (d *Dispatcher) Register(n Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiers[n.Name()] = n
}

// Unregister removes a notifier from the dispatcher.
func (d *Dispatcher) Unregister(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.notifiers, name)
}

// ErrRateLimited is returned when a notification is dropped due to rate
// limiting.
var ErrRateLimited = fmt.Errorf("notification rate limited")

// Dispatch sends the event to every channel the alert opted into.
// It reports whether at least one channel delivered, plus an error
// covering any channel that failed.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *Event) (bool, error) {
	channels := requestedChannels(ev.Alert)
	if len(channels) == 0 {
		return false, nil
	}

	if d.rateLimiter != nil && !d.rateLimiter.Allow() {
		return false, ErrRateLimited
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	sent := false
	var errs []error
	for _, name := range channels {
		n, ok := d.notifiers[name]
		if !ok {
			errs = append(errs, fmt.Errorf("%s: channel not configured", name))
			continue
		}
		if err := n.Send(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		sent = true
	}

	if len(errs) > 0 {
		return sent, fmt.Errorf("notification errors: %v", errs)
	}
	return sent, nil
}

// Close closes every registered notifier.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for _, n := range d.notifiers {
		if err := n.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close notifiers: %v", errs)
	}
	return nil
}

func requestedChannels(alert *models.Alert) []string {
	var out []string
	if alert.NotifyEmail {
		out = append(out, ChannelEmail)
	}
	if alert.NotifyInternal {
		out = append(out, ChannelInternal)
	}
	return out
}
