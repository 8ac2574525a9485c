// Package alerting evaluates alert rules against stored logs and
// dispatches notifications when thresholds are met.
package alerting

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/scriptflow/scriptflow/internal/metrics"
	"github.com/scriptflow/scriptflow/internal/models"
	"github.com/scriptflow/scriptflow/internal/notifier"
	"github.com/scriptflow/scriptflow/internal/query"
	"github.com/scriptflow/scriptflow/internal/storage"
)

// Evaluator runs threshold checks for active alerts. A triggered alert
// stays triggered until a user re-arms it; the evaluator never resets
// status on its own.
type Evaluator struct {
	alerts     storage.AlertRepository
	history    storage.AlertHistoryRepository
	logs       storage.LogRepository
	dispatcher *notifier.Dispatcher
}

// NewEvaluator creates an evaluator over the given stores and dispatcher.
func NewEvaluator(store storage.Storage, logs storage.LogRepository, dispatcher *notifier.Dispatcher) *Evaluator {
	return &Evaluator{
		alerts:     store.Alerts(),
		history:    store.AlertHistory(),
		logs:       logs,
		dispatcher: dispatcher,
	}
}

// EvaluateAll evaluates every active alert against the current time.
func (e *Evaluator) EvaluateAll(ctx context.Context) error {
	return e.EvaluateAllAt(ctx, time.Now())
}

// EvaluateAllAt evaluates every active alert at a specific time. One
// alert failing never stops the others; failures are aggregated into
// the returned error.
func (e *Evaluator) EvaluateAllAt(ctx context.Context, now time.Time) error {
	metrics.AlertEvaluationsTotal.Inc()

	alerts, err := e.alerts.ListByStatus(ctx, models.AlertStatusActive)
	if err != nil {
		return fmt.Errorf("list active alerts: %w", err)
	}

	var errs []error
	for _, alert := range alerts {
		triggered, err := e.evaluateAlert(ctx, alert, now)
		if err != nil {
			metrics.AlertEvaluationErrors.Inc()
			log.Printf("alert %s (%s): evaluation failed: %v", alert.ID, alert.Name, err)
			errs = append(errs, fmt.Errorf("alert %s: %w", alert.ID, err))
			continue
		}
		if triggered {
			log.Printf("alert %s (%s) triggered", alert.ID, alert.Name)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("evaluation errors: %v", errs)
	}
	return nil
}

// evaluateAlert checks one alert's condition over its trailing window.
// The window always bounds the count; a date directive inside the
// condition query is overridden for evaluation.
func (e *Evaluator) evaluateAlert(ctx context.Context, alert *models.Alert, now time.Time) (bool, error) {
	windowStart := now.Add(-alert.Window())

	pq := query.Parse(alert.ConditionQuery, now)
	pq.DateRange = &query.DateRange{Start: windowStart, End: now}

	count, err := e.logs.Count(ctx, pq, storage.SearchOptions{})
	if err != nil {
		return false, fmt.Errorf("count matches: %w", err)
	}

	// Strictly below threshold is a no-op: no status change, no
	// history, no notification.
	if count < int64(alert.Threshold) {
		return false, nil
	}

	if err := e.alerts.RecordTrigger(ctx, alert.ID, now); err != nil {
		// Lost the race to another evaluator pass; that pass owns the
		// notification and history row.
		if errors.Is(err, storage.ErrAlertNotActive) {
			return false, nil
		}
		return false, fmt.Errorf("record trigger: %w", err)
	}
	metrics.AlertsTriggeredTotal.Inc()

	sample, err := e.sampleLogs(ctx, pq)
	if err != nil {
		// A missing sample never blocks the trigger.
		log.Printf("alert %s: sample fetch failed: %v", alert.ID, err)
		sample = nil
	}

	ev := &notifier.Event{
		Alert:        alert,
		MatchedCount: count,
		WindowStart:  windowStart,
		WindowEnd:    now,
		Sample:       sample,
	}

	sent, dispatchErr := e.dispatcher.Dispatch(ctx, ev)
	if sent {
		metrics.NotificationsSentTotal.Inc()
	}
	if dispatchErr != nil {
		metrics.NotificationErrors.Inc()
		log.Printf("alert %s: notification failed: %v", alert.ID, dispatchErr)
	}

	history := &models.AlertHistory{
		ID:               uuid.New().String(),
		AlertID:          alert.ID,
		AlertName:        alert.Name,
		TriggeredAt:      now,
		MatchedCount:     count,
		NotificationSent: sent,
		SampleLogs:       sample,
		CreatedAt:        now,
	}
	if dispatchErr != nil {
		history.NotificationError = dispatchErr.Error()
	}

	if err := e.history.Create(ctx, history); err != nil {
		return true, fmt.Errorf("record history: %w", err)
	}

	return true, nil
}

func (e *Evaluator) sampleLogs(ctx context.Context, pq *query.ParsedQuery) ([]*models.LogRecord, error) {
	res, err := e.logs.Search(ctx, pq, storage.SearchOptions{Limit: models.MaxSampleLogs})
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}
