// Package alerts provides HTTP handlers for alert rule management.
package alerts

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/scriptflow/scriptflow/internal/api/middleware"
	"github.com/scriptflow/scriptflow/internal/models"
	"github.com/scriptflow/scriptflow/internal/storage"
)

// Response helpers
type errorResponse struct {
	Error errorBody `json:"error"`
}
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
type dataResponse struct {
	Data any `json:"data"`
}

const (
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeValidationFailed = "VALIDATION_FAILED"
	errCodeNotFound         = "NOT_FOUND"
	errCodeInternalError    = "INTERNAL_ERROR"
)

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dataResponse{Data: data}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonCreated(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(dataResponse{Data: data}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Response types
type AlertResponse struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Description       string     `json:"description,omitempty"`
	ConditionQuery    string     `json:"condition_query"`
	Threshold         int        `json:"threshold"`
	TimeWindowMinutes int        `json:"time_window_minutes"`
	Status            string     `json:"status"`
	NotifyEmail       bool       `json:"notify_email"`
	NotifyInternal    bool       `json:"notify_internal"`
	EmailRecipients   []string   `json:"email_recipients"`
	CustomMessage     string     `json:"custom_message,omitempty"`
	LastTriggeredAt   *time.Time `json:"last_triggered_at,omitempty"`
	TriggerCount      int64      `json:"trigger_count"`
	CreatedBy         string     `json:"created_by,omitempty"`
	CreatedAt         string     `json:"created_at"`
	UpdatedAt         string     `json:"updated_at"`
}

type HistoryResponse struct {
	ID                string              `json:"id"`
	AlertID           string              `json:"alert_id"`
	AlertName         string              `json:"alert_name"`
	TriggeredAt       string              `json:"triggered_at"`
	MatchedCount      int64               `json:"matched_count"`
	NotificationSent  bool                `json:"notification_sent"`
	NotificationError string              `json:"notification_error,omitempty"`
	SampleLogs        []*models.LogRecord `json:"sample_logs,omitempty"`
}

type HistoryListResponse struct {
	Items   []*HistoryResponse `json:"items"`
	Total   int64              `json:"total"`
	Page    int                `json:"page"`
	PerPage int                `json:"per_page"`
}

// Handler handles alert endpoints.
type Handler struct {
	storage storage.Storage
}

func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// Request types
type CreateRequest struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	ConditionQuery    string   `json:"condition_query"`
	Threshold         int      `json:"threshold"`
	TimeWindowMinutes int      `json:"time_window_minutes"`
	NotifyEmail       bool     `json:"notify_email"`
	NotifyInternal    bool     `json:"notify_internal"`
	EmailRecipients   []string `json:"email_recipients"`
	CustomMessage     string   `json:"custom_message"`
}

type UpdateRequest struct {
	Name              string    `json:"name,omitempty"`
	Description       *string   `json:"description,omitempty"`
	ConditionQuery    string    `json:"condition_query,omitempty"`
	Threshold         *int      `json:"threshold,omitempty"`
	TimeWindowMinutes *int      `json:"time_window_minutes,omitempty"`
	NotifyEmail       *bool     `json:"notify_email,omitempty"`
	NotifyInternal    *bool     `json:"notify_internal,omitempty"`
	EmailRecipients   *[]string `json:"email_recipients,omitempty"`
	CustomMessage     *string   `json:"custom_message,omitempty"`
}

// List returns all alerts, optionally filtered by status.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		alerts []*models.Alert
		err    error
	)
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status, vErr := ValidateStatus(statusStr)
		if vErr != nil {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, vErr.Error())
			return
		}
		alerts, err = h.storage.Alerts().ListByStatus(ctx, status)
	} else {
		alerts, err = h.storage.Alerts().List(ctx)
	}
	if err != nil {
		log.Printf("list alerts error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	resp := make([]*AlertResponse, len(alerts))
	for i, a := range alerts {
		resp[i] = alertToResponse(a)
	}
	jsonOK(w, resp)
}

// Create creates a new alert.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if err := ValidateName(req.Name); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	if err := ValidateCondition(req.ConditionQuery); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	if err := ValidateThreshold(req.Threshold); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	if err := ValidateWindow(req.TimeWindowMinutes); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	if req.NotifyEmail && len(req.EmailRecipients) == 0 {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "email notification requires at least one recipient")
		return
	}

	ctx := r.Context()
	now := time.Now()
	alert := &models.Alert{
		ID:                uuid.New().String(),
		Name:              strings.TrimSpace(req.Name),
		Description:       strings.TrimSpace(req.Description),
		ConditionQuery:    req.ConditionQuery,
		Threshold:         req.Threshold,
		TimeWindowMinutes: req.TimeWindowMinutes,
		Status:            models.AlertStatusActive,
		NotifyEmail:       req.NotifyEmail,
		NotifyInternal:    req.NotifyInternal,
		EmailRecipients:   req.EmailRecipients,
		CustomMessage:     req.CustomMessage,
		CreatedBy:         middleware.GetUserID(ctx),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if alert.EmailRecipients == nil {
		alert.EmailRecipients = []string{}
	}

	if err := h.storage.Alerts().Create(ctx, alert); err != nil {
		log.Printf("create alert error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("alert created: %s (%s)", alert.Name, alert.ID)
	jsonCreated(w, alertToResponse(alert))
}

// GetByID returns an alert by ID.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	alert, ok := h.fetchAlert(w, r)
	if !ok {
		return
	}
	jsonOK(w, alertToResponse(alert))
}

// Update updates an alert.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	alert, ok := h.fetchAlert(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	// Update fields if provided
	if req.Name != "" {
		if err := ValidateName(req.Name); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		alert.Name = strings.TrimSpace(req.Name)
	}
	if req.Description != nil {
		alert.Description = strings.TrimSpace(*req.Description)
	}
	if req.ConditionQuery != "" {
		if err := ValidateCondition(req.ConditionQuery); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		alert.ConditionQuery = req.ConditionQuery
	}
	if req.Threshold != nil {
		if err := ValidateThreshold(*req.Threshold); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		alert.Threshold = *req.Threshold
	}
	if req.TimeWindowMinutes != nil {
		if err := ValidateWindow(*req.TimeWindowMinutes); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		alert.TimeWindowMinutes = *req.TimeWindowMinutes
	}
	if req.NotifyEmail != nil {
		alert.NotifyEmail = *req.NotifyEmail
	}
	if req.NotifyInternal != nil {
		alert.NotifyInternal = *req.NotifyInternal
	}
	if req.EmailRecipients != nil {
		alert.EmailRecipients = *req.EmailRecipients
	}
	if req.CustomMessage != nil {
		alert.CustomMessage = *req.CustomMessage
	}
	if alert.NotifyEmail && len(alert.EmailRecipients) == 0 {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "email notification requires at least one recipient")
		return
	}

	alert.UpdatedAt = time.Now()

	ctx := r.Context()
	if err := h.storage.Alerts().Update(ctx, alert); err != nil {
		log.Printf("update alert error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("alert updated: %s (%s)", alert.Name, alert.ID)
	jsonOK(w, alertToResponse(alert))
}

// Delete deletes an alert.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	alert, ok := h.fetchAlert(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.storage.Alerts().Delete(ctx, alert.ID); err != nil {
		log.Printf("delete alert error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("alert deleted: %s (%s)", alert.Name, alert.ID)
	jsonNoContent(w)
}

// Pause suspends evaluation of an alert.
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, models.AlertStatusPaused)
}

// Resume re-arms an alert. This is the only path back to active after a
// trigger.
func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, models.AlertStatusActive)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, status models.AlertStatus) {
	alert, ok := h.fetchAlert(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.storage.Alerts().SetStatus(ctx, alert.ID, status); err != nil {
		log.Printf("set alert status error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	alert.Status = status

	log.Printf("alert %s: %s (%s)", status, alert.Name, alert.ID)
	jsonOK(w, alertToResponse(alert))
}

// History returns trigger history for one alert with pagination.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	alert, ok := h.fetchAlert(w, r)
	if !ok {
		return
	}

	page, perPage := paginationParams(r)
	offset := (page - 1) * perPage

	ctx := r.Context()
	histories, total, err := h.storage.AlertHistory().ListByAlert(ctx, alert.ID, perPage, offset)
	if err != nil {
		log.Printf("list alert history error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, historyListResponse(histories, total, page, perPage))
}

// GlobalHistory returns trigger history across all alerts.
func (h *Handler) GlobalHistory(w http.ResponseWriter, r *http.Request) {
	page, perPage := paginationParams(r)
	offset := (page - 1) * perPage

	ctx := r.Context()
	histories, total, err := h.storage.AlertHistory().List(ctx, perPage, offset)
	if err != nil {
		log.Printf("list alert history error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, historyListResponse(histories, total, page, perPage))
}

// fetchAlert loads the alert from the URL param, writing the error
// response itself when the alert cannot be served.
func (h *Handler) fetchAlert(w http.ResponseWriter, r *http.Request) (*models.Alert, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "alert id required")
		return nil, false
	}

	alert, err := h.storage.Alerts().GetByID(r.Context(), id)
	if err != nil {
		log.Printf("get alert error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return nil, false
	}
	if alert == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "alert not found")
		return nil, false
	}
	return alert, true
}

func paginationParams(r *http.Request) (page, perPage int) {
	page, perPage = 1, 50
	if p := r.URL.Query().Get("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	if pp := r.URL.Query().Get("per_page"); pp != "" {
		if v, err := strconv.Atoi(pp); err == nil && v > 0 && v <= 100 {
			perPage = v
		}
	}
	return page, perPage
}

func historyListResponse(histories []*models.AlertHistory, total int64, page, perPage int) HistoryListResponse {
	items := make([]*HistoryResponse, len(histories))
	for i, hist := range histories {
		items[i] = historyToResponse(hist)
	}
	return HistoryListResponse{
		Items:   items,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}
}

func alertToResponse(a *models.Alert) *AlertResponse {
	return &AlertResponse{
		ID:                a.ID,
		Name:              a.Name,
		Description:       a.Description,
		ConditionQuery:    a.ConditionQuery,
		Threshold:         a.Threshold,
		TimeWindowMinutes: a.TimeWindowMinutes,
		Status:            string(a.Status),
		NotifyEmail:       a.NotifyEmail,
		NotifyInternal:    a.NotifyInternal,
		EmailRecipients:   a.EmailRecipients,
		CustomMessage:     a.CustomMessage,
		LastTriggeredAt:   a.LastTriggeredAt,
		TriggerCount:      a.TriggerCount,
		CreatedBy:         a.CreatedBy,
		CreatedAt:         a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         a.UpdatedAt.Format(time.RFC3339),
	}
}

func historyToResponse(hist *models.AlertHistory) *HistoryResponse {
	return &HistoryResponse{
		ID:                hist.ID,
		AlertID:           hist.AlertID,
		AlertName:         hist.AlertName,
		TriggeredAt:       hist.TriggeredAt.Format(time.RFC3339),
		MatchedCount:      hist.MatchedCount,
		NotificationSent:  hist.NotificationSent,
		NotificationError: hist.NotificationError,
		SampleLogs:        hist.SampleLogs,
	}
}
