package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/scriptflow/scriptflow/internal/models"
)

func setupTestDB(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "scriptflow-test-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}

	store := NewSQLiteStorage(filepath.Join(tmpDir, "test.db"))
	if err := store.Open(); err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("open database: %v", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		os.RemoveAll(tmpDir)
		t.Fatalf("migrate database: %v", err)
	}

	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}
	return store, cleanup
}

func testAlert(name string) *models.Alert {
	a := models.NewAlert(name, "severity=error", 5, 10)
	a.ID = uuid.New().String()
	a.NotifyInternal = true
	return a
}

func TestSQLiteAlerts_CRUD(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	alert := testAlert("muitos erros")
	alert.EmailRecipients = []string{"ops@empresa.com"}
	alert.NotifyEmail = true

	if err := store.Alerts().Create(ctx, alert); err != nil {
		t.Fatalf("create alert: %v", err)
	}

	got, err := store.Alerts().GetByID(ctx, alert.ID)
	if err != nil {
		t.Fatalf("get alert: %v", err)
	}
	if got == nil {
		t.Fatal("alert not found after create")
	}
	if got.Name != alert.Name || got.ConditionQuery != alert.ConditionQuery {
		t.Errorf("got %+v, want %+v", got, alert)
	}
	if got.Threshold != 5 || got.TimeWindowMinutes != 10 {
		t.Errorf("threshold/window = %d/%d", got.Threshold, got.TimeWindowMinutes)
	}
	if !got.NotifyEmail || len(got.EmailRecipients) != 1 {
		t.Errorf("notification routing lost: %+v", got)
	}
	if got.Status != models.AlertStatusActive {
		t.Errorf("status = %q, want active", got.Status)
	}

	got.Name = "erros demais"
	got.Threshold = 3
	got.UpdatedAt = time.Now()
	if err := store.Alerts().Update(ctx, got); err != nil {
		t.Fatalf("update alert: %v", err)
	}
	got2, _ := store.Alerts().GetByID(ctx, alert.ID)
	if got2.Name != "erros demais" || got2.Threshold != 3 {
		t.Errorf("update not persisted: %+v", got2)
	}

	if err := store.Alerts().Delete(ctx, alert.ID); err != nil {
		t.Fatalf("delete alert: %v", err)
	}
	got3, err := store.Alerts().GetByID(ctx, alert.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got3 != nil {
		t.Error("alert still present after delete")
	}
}

func TestSQLiteAlerts_NotFound(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	got, err := store.Alerts().GetByID(ctx, "missing")
	if err != nil {
		t.Fatalf("get missing alert: %v", err)
	}
	if got != nil {
		t.Error("expected nil for missing alert")
	}

	if err := store.Alerts().Delete(ctx, "missing"); err == nil {
		t.Error("delete of missing alert should error")
	}
	if err := store.Alerts().SetStatus(ctx, "missing", models.AlertStatusPaused); err == nil {
		t.Error("set status of missing alert should error")
	}
}

func TestSQLiteAlerts_ListByStatus(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	active := testAlert("ativo")
	paused := testAlert("pausado")
	paused.Status = models.AlertStatusPaused

	for _, a := range []*models.Alert{active, paused} {
		if err := store.Alerts().Create(ctx, a); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := store.Alerts().ListByStatus(ctx, models.AlertStatusActive)
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(got) != 1 || got[0].ID != active.ID {
		t.Errorf("ListByStatus(active) = %d alerts", len(got))
	}

	all, err := store.Alerts().List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List() = %d alerts, want 2", len(all))
	}
}

func TestSQLiteAlerts_RecordTrigger(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	alert := testAlert("gatilho")
	if err := store.Alerts().Create(ctx, alert); err != nil {
		t.Fatalf("create: %v", err)
	}

	at := time.Now().Truncate(time.Second)
	if err := store.Alerts().RecordTrigger(ctx, alert.ID, at); err != nil {
		t.Fatalf("record trigger: %v", err)
	}

	got, _ := store.Alerts().GetByID(ctx, alert.ID)
	if got.Status != models.AlertStatusTriggered {
		t.Errorf("status = %q, want triggered", got.Status)
	}
	if got.TriggerCount != 1 {
		t.Errorf("trigger count = %d, want 1", got.TriggerCount)
	}
	if got.LastTriggeredAt == nil || !got.LastTriggeredAt.Equal(at) {
		t.Errorf("last triggered at = %v, want %v", got.LastTriggeredAt, at)
	}

	// A triggered alert must be re-armed before it can fire again.
	if err := store.Alerts().RecordTrigger(ctx, alert.ID, at.Add(time.Minute)); !errors.Is(err, ErrAlertNotActive) {
		t.Errorf("record trigger on triggered alert: err = %v, want ErrAlertNotActive", err)
	}
	got, _ = store.Alerts().GetByID(ctx, alert.ID)
	if got.TriggerCount != 1 {
		t.Errorf("trigger count = %d, want 1", got.TriggerCount)
	}

	if err := store.Alerts().SetStatus(ctx, alert.ID, models.AlertStatusActive); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if err := store.Alerts().RecordTrigger(ctx, alert.ID, at.Add(time.Minute)); err != nil {
		t.Fatalf("second record trigger: %v", err)
	}
	got, _ = store.Alerts().GetByID(ctx, alert.ID)
	if got.TriggerCount != 2 {
		t.Errorf("trigger count = %d, want 2", got.TriggerCount)
	}
}

func TestSQLiteAlertHistory(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	alert := testAlert("historiado")
	if err := store.Alerts().Create(ctx, alert); err != nil {
		t.Fatalf("create alert: %v", err)
	}

	now := time.Now().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		h := &models.AlertHistory{
			ID:           uuid.New().String(),
			AlertID:      alert.ID,
			AlertName:    alert.Name,
			TriggeredAt:  now.Add(time.Duration(i) * time.Minute),
			MatchedCount: int64(10 + i),
			CreatedAt:    now,
			SampleLogs: []*models.LogRecord{
				{ID: uuid.New().String(), Message: "falha", Severity: models.SeverityError},
			},
		}
		if i == 2 {
			h.NotificationSent = true
		}
		if err := store.AlertHistory().Create(ctx, h); err != nil {
			t.Fatalf("create history: %v", err)
		}
	}

	entries, total, err := store.AlertHistory().ListByAlert(ctx, alert.ID, 2, 0)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	// Newest first.
	if !entries[0].TriggeredAt.After(entries[1].TriggeredAt) {
		t.Error("history not ordered newest first")
	}
	if !entries[0].NotificationSent {
		t.Error("notification_sent lost on newest entry")
	}
	if len(entries[0].SampleLogs) != 1 || entries[0].SampleLogs[0].Message != "falha" {
		t.Errorf("sample logs lost: %+v", entries[0].SampleLogs)
	}

	deleted, err := store.AlertHistory().DeleteBefore(ctx, now.Add(90*time.Second))
	if err != nil {
		t.Fatalf("delete before: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
}

func TestSQLiteAlertHistory_SampleCap(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	alert := testAlert("amostras")
	if err := store.Alerts().Create(ctx, alert); err != nil {
		t.Fatalf("create alert: %v", err)
	}

	var samples []*models.LogRecord
	for i := 0; i < models.MaxSampleLogs+4; i++ {
		samples = append(samples, &models.LogRecord{ID: uuid.New().String()})
	}
	h := &models.AlertHistory{
		ID:          uuid.New().String(),
		AlertID:     alert.ID,
		AlertName:   alert.Name,
		TriggeredAt: time.Now(),
		CreatedAt:   time.Now(),
		SampleLogs:  samples,
	}
	if err := store.AlertHistory().Create(ctx, h); err != nil {
		t.Fatalf("create history: %v", err)
	}

	entries, _, err := store.AlertHistory().ListByAlert(ctx, alert.ID, 10, 0)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(entries[0].SampleLogs) != models.MaxSampleLogs {
		t.Errorf("stored %d samples, want %d", len(entries[0].SampleLogs), models.MaxSampleLogs)
	}
}

func TestSQLiteNotifications(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	personal := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    "user-1",
		Title:     "Alerta disparado",
		Body:      "5 erros em 10 minutos",
		CreatedAt: time.Now(),
	}
	broadcast := &models.Notification{
		ID:        uuid.New().String(),
		Title:     "Aviso geral",
		Body:      "manutenção programada",
		CreatedAt: time.Now().Add(time.Second),
	}
	other := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    "user-2",
		Title:     "outro",
		Body:      "x",
		CreatedAt: time.Now(),
	}

	for _, n := range []*models.Notification{personal, broadcast, other} {
		if err := store.Notifications().Create(ctx, n); err != nil {
			t.Fatalf("create notification: %v", err)
		}
	}

	// user-1 sees their own plus broadcasts, not user-2's.
	got, total, err := store.Notifications().ListForUser(ctx, "user-1", false, 10, 0)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if total != 2 || len(got) != 2 {
		t.Fatalf("total = %d, len = %d, want 2/2", total, len(got))
	}

	if err := store.Notifications().MarkRead(ctx, personal.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	got, _, _ = store.Notifications().ListForUser(ctx, "user-1", true, 10, 0)
	if len(got) != 1 || got[0].ID != broadcast.ID {
		t.Errorf("unread list = %+v", got)
	}

	if err := store.Notifications().MarkAllRead(ctx, "user-1"); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	_, total, _ = store.Notifications().ListForUser(ctx, "user-1", true, 10, 0)
	if total != 0 {
		t.Errorf("unread total = %d, want 0", total)
	}
}
