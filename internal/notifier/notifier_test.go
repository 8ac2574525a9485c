package notifier

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/scriptflow/scriptflow/internal/models"
)

type fakeNotifier struct {
	name  string
	calls int
	fail  bool
}

func (f *fakeNotifier) Name() string { return f.name }
func (f *fakeNotifier) Close() error { return nil }
func (f *fakeNotifier) Send(context.Context, *Event) error {
	f.calls++
	if f.fail {
		return fmt.Errorf("boom")
	}
	return nil
}

func testEvent(mod func(*models.Alert)) *Event {
	a := models.NewAlert("muitos erros", "severity=error", 5, 10)
	a.ID = "alert-1"
	a.NotifyInternal = true
	if mod != nil {
		mod(a)
	}
	return &Event{
		Alert:        a,
		MatchedCount: 7,
		WindowStart:  time.Now().Add(-10 * time.Minute),
		WindowEnd:    time.Now(),
	}
}

func TestDispatcherRouting(t *testing.T) {
	email := &fakeNotifier{name: ChannelEmail}
	internal := &fakeNotifier{name: ChannelInternal}

	d := NewDispatcherWithRateLimit(RateLimitConfig{Enabled: false})
	d.Register(email)
	d.Register(internal)

	// Internal only.
	sent, err := d.Dispatch(context.Background(), testEvent(nil))
	if err != nil || !sent {
		t.Fatalf("dispatch = %v, %v", sent, err)
	}
	if email.calls != 0 || internal.calls != 1 {
		t.Errorf("calls email=%d internal=%d", email.calls, internal.calls)
	}

	// Both channels.
	sent, err = d.Dispatch(context.Background(), testEvent(func(a *models.Alert) {
		a.NotifyEmail = true
		a.EmailRecipients = []string{"ops@empresa.com"}
	}))
	if err != nil || !sent {
		t.Fatalf("dispatch = %v, %v", sent, err)
	}
	if email.calls != 1 || internal.calls != 2 {
		t.Errorf("calls email=%d internal=%d", email.calls, internal.calls)
	}

	// No channels requested.
	sent, err = d.Dispatch(context.Background(), testEvent(func(a *models.Alert) {
		a.NotifyInternal = false
	}))
	if err != nil || sent {
		t.Errorf("dispatch with no channels = %v, %v", sent, err)
	}
}

func TestDispatcherPartialFailure(t *testing.T) {
	email := &fakeNotifier{name: ChannelEmail, fail: true}
	internal := &fakeNotifier{name: ChannelInternal}

	d := NewDispatcherWithRateLimit(RateLimitConfig{Enabled: false})
	d.Register(email)
	d.Register(internal)

	sent, err := d.Dispatch(context.Background(), testEvent(func(a *models.Alert) {
		a.NotifyEmail = true
		a.EmailRecipients = []string{"ops@empresa.com"}
	}))
	if !sent {
		t.Error("internal channel succeeded, sent should be true")
	}
	if err == nil || !strings.Contains(err.Error(), "email") {
		t.Errorf("err = %v, want email failure reported", err)
	}
}

func TestDispatcherMissingChannel(t *testing.T) {
	d := NewDispatcherWithRateLimit(RateLimitConfig{Enabled: false})

	sent, err := d.Dispatch(context.Background(), testEvent(nil))
	if sent {
		t.Error("nothing registered, sent should be false")
	}
	if err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Errorf("err = %v, want unconfigured channel error", err)
	}
}

func TestDispatcherRateLimit(t *testing.T) {
	internal := &fakeNotifier{name: ChannelInternal}
	d := NewDispatcherWithRateLimit(RateLimitConfig{MaxPerWindow: 2, Window: time.Minute, Enabled: true})
	d.Register(internal)

	for i := 0; i < 2; i++ {
		if _, err := d.Dispatch(context.Background(), testEvent(nil)); err != nil {
			t.Fatalf("dispatch %d: %v", i, err)
		}
	}
	sent, err := d.Dispatch(context.Background(), testEvent(nil))
	if sent || err != ErrRateLimited {
		t.Errorf("third dispatch = %v, %v, want rate limited", sent, err)
	}
	if internal.calls != 2 {
		t.Errorf("calls = %d, want 2", internal.calls)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxPerWindow: 3, Window: time.Minute, Enabled: true})

	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Fatalf("Allow() %d = false", i)
		}
	}
	if rl.Allow() {
		t.Error("fourth Allow() should fail")
	}
	if rl.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", rl.Dropped())
	}

	rl.Reset()
	if !rl.Allow() {
		t.Error("Allow() after Reset should succeed")
	}

	disabled := NewRateLimiter(RateLimitConfig{MaxPerWindow: 1, Enabled: false})
	for i := 0; i < 10; i++ {
		if !disabled.Allow() {
			t.Fatal("disabled limiter should always allow")
		}
	}
}

func TestRenderBody(t *testing.T) {
	ev := testEvent(func(a *models.Alert) {
		a.CustomMessage = "verificar o banco"
	})
	ev.Sample = []*models.LogRecord{
		{Timestamp: time.Now(), Severity: models.SeverityError, Message: "timeout"},
	}

	body := renderBody(ev)
	for _, want := range []string{"muitos erros", "severity=error", "7", "verificar o banco", "timeout"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}
