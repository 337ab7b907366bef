// Package httpapi exposes the timeline service over REST.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rpattn/fleetline/internal/domain"
	"github.com/rpattn/fleetline/internal/timeline"
	"github.com/rpattn/fleetline/pkg/validation"
)

// Handler routes work order timeline requests.
type Handler struct {
	service *timeline.Service
}

// NewHandler creates the REST handler over the timeline service.
func NewHandler(service *timeline.Service) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/healthz" {
		h.handleHealth(w, r)
		return
	}

	workOrderID, rest, ok := splitWorkOrderPath(r.URL.Path)
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	switch {
	case r.Method == http.MethodGet && rest == "timeline":
		h.handleListActivities(w, r, workOrderID)
	case r.Method == http.MethodGet && rest == "timeline/stats":
		h.handleStats(w, r, workOrderID)
	case r.Method == http.MethodGet && rest == "timeline/export":
		h.handleExport(w, r, workOrderID)
	case r.Method == http.MethodPost && rest == "notes":
		h.handleAddNote(w, r, workOrderID)
	case r.Method == http.MethodPost && rest == "activities":
		h.handleCreateActivity(w, r, workOrderID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// splitWorkOrderPath extracts the work order id and trailing route from paths
// like /api/work-orders/{id}/timeline.
func splitWorkOrderPath(path string) (workOrderID, rest string, ok bool) {
	const prefix = "/api/work-orders/"
	if !strings.HasPrefix(path, prefix) {
		return "", "", false
	}
	remainder := strings.TrimSuffix(strings.TrimPrefix(path, prefix), "/")
	idx := strings.Index(remainder, "/")
	if idx <= 0 {
		return "", "", false
	}
	return remainder[:idx], remainder[idx+1:], true
}

func (h *Handler) handleListActivities(w http.ResponseWriter, r *http.Request, workOrderID string) {
	filters, err := parseFilters(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	activities, err := h.service.GetActivities(r.Context(), workOrderID, filters)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activities": activities})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request, workOrderID string) {
	stats, err := h.service.GetActivityStats(r.Context(), workOrderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, workOrderID string) {
	filters, err := parseFilters(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	format := timeline.ExportFormat(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = timeline.FormatCSV
	}

	result, err := h.service.ExportTimeline(r.Context(), workOrderID, format, filters)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	_, _ = w.Write(result.Data)
}

type addNotePayload struct {
	Content string `json:"content"`
	UserID  string `json:"user_id"`
}

func (h *Handler) handleAddNote(w http.ResponseWriter, r *http.Request, workOrderID string) {
	defer r.Body.Close()
	var payload addNotePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	activity, err := h.service.AddNote(r.Context(), workOrderID, payload.Content, payload.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, activity)
}

type createActivityPayload struct {
	ActivityType string         `json:"activity_type"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	UserID       string         `json:"user_id"`
	UserName     string         `json:"user_name"`
	UserAvatar   string         `json:"user_avatar"`
	Metadata     map[string]any `json:"metadata"`
}

func (h *Handler) handleCreateActivity(w http.ResponseWriter, r *http.Request, workOrderID string) {
	defer r.Body.Close()
	var payload createActivityPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	activity, err := h.service.CreateActivity(r.Context(), domain.CreateActivityInput{
		WorkOrderID:  workOrderID,
		ActivityType: domain.ActivityType(payload.ActivityType),
		Title:        payload.Title,
		Description:  payload.Description,
		UserID:       payload.UserID,
		UserName:     payload.UserName,
		UserAvatar:   payload.UserAvatar,
		Metadata:     payload.Metadata,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, activity)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := h.service.HealthCheck(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// parseFilters reads the optional query filters shared by the list and export
// routes. An absent query yields nil filters.
func parseFilters(r *http.Request) (*domain.TimelineFilters, error) {
	query := r.URL.Query()
	filters := &domain.TimelineFilters{}
	present := false

	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("limit must be an integer")
		}
		filters.Limit = parsed
		present = true
	}
	if raw := strings.TrimSpace(query.Get("offset")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("offset must be an integer")
		}
		filters.Offset = parsed
		present = true
	}
	if raw := strings.TrimSpace(query.Get("search")); raw != "" {
		filters.SearchQuery = raw
		present = true
	}
	if values := splitCSV(query["type"]); len(values) > 0 {
		for _, v := range values {
			filters.ActivityTypes = append(filters.ActivityTypes, domain.ActivityType(v))
		}
		present = true
	}
	if values := splitCSV(query["technician"]); len(values) > 0 {
		filters.TechnicianIDs = values
		present = true
	}

	start := strings.TrimSpace(query.Get("start"))
	end := strings.TrimSpace(query.Get("end"))
	if start != "" || end != "" {
		startTime, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return nil, fmt.Errorf("start must be an RFC 3339 timestamp")
		}
		endTime, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return nil, fmt.Errorf("end must be an RFC 3339 timestamp")
		}
		filters.DateRange = &domain.DateRange{Start: startTime, End: endTime}
		present = true
	}

	if !present {
		return nil, nil
	}
	return filters, nil
}

func splitCSV(values []string) []string {
	var result []string
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
	}
	return result
}

type errorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeError maps service errors onto HTTP statuses: validation failures are
// the caller's fault, an unimplemented format is 501, everything else is a
// server-side failure.
func writeError(w http.ResponseWriter, err error) {
	code := timeline.ErrorCode(err)

	status := http.StatusInternalServerError
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
	case code == timeline.CodeNotImplemented:
		status = http.StatusNotImplemented
	}

	writeJSON(w, status, errorPayload{Error: err.Error(), Code: string(code)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
