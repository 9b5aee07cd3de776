package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ywatanabe/priocfg/internal/resolver"
	"github.com/ywatanabe/priocfg/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Handler wires resolver, value store, and journal dependencies into HTTP
// handlers.
type Handler struct {
	resolver *resolver.Resolver
	store    storage.Store
	journal  *resolver.Journal

	clock func() time.Time

	mu              sync.RWMutex
	valuesUpdatedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(res *resolver.Resolver, store storage.Store, journal *resolver.Journal, opts ...HandlerOption) *Handler {
	h := &Handler{
		resolver: res,
		store:    store,
		journal:  journal,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.valuesUpdatedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetValues(w http.ResponseWriter, r *http.Request) {
	_ = r
	values, err := h.store.Snapshot()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := valuesResponse{
		Values:    values,
		UpdatedAt: h.currentValuesUpdatedAt(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePutValues(w http.ResponseWriter, r *http.Request) {
	var req valuesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if len(req.Values) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid values", "values must contain at least one entry")
		return
	}

	if err := h.store.Replace(req.Values); err != nil {
		if errors.Is(err, storage.ErrInvalidValues) {
			writeError(w, http.StatusBadRequest, "Invalid values", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	h.markValuesUpdated()

	values, err := h.store.Snapshot()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := valuesResponse{
		Values:    values,
		UpdatedAt: h.currentValuesUpdatedAt(),
		Message:   "Configuration values updated successfully",
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if strings.TrimSpace(req.Key) == "" {
		writeError(w, http.StatusBadRequest, "Invalid request", "key must not be empty")
		return
	}

	target, err := resolver.ParseValueType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	direct, err := normalizeJSONValue(req.Direct, target)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", fmt.Sprintf("direct value: %v", err))
		return
	}
	def, err := normalizeJSONValue(req.Default, target)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", fmt.Sprintf("default value: %v", err))
		return
	}

	values, err := h.store.Snapshot()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	start := time.Now()
	result, resolveErr := h.resolver.Resolve(resolver.Request{
		Key:       req.Key,
		Direct:    direct,
		Config:    values,
		Default:   def,
		Type:      target,
		Sensitive: req.Sensitive,
	})
	elapsed := time.Since(start)

	if resolveErr != nil {
		var convErr *resolver.ConversionError
		switch {
		case errors.As(resolveErr, &convErr):
			writeError(w, http.StatusUnprocessableEntity, "Cannot convert value", convErr.Error())
		case errors.Is(resolveErr, resolver.ErrMissingValue):
			suggestion := fmt.Sprintf("Supply a default or set the %s environment variable", h.resolver.EnvKey(req.Key))
			writeError(w, http.StatusNotFound, "Value not found", resolveErr.Error(), suggestion)
		case errors.Is(resolveErr, resolver.ErrEmptyKey), errors.Is(resolveErr, resolver.ErrInvalidType):
			writeError(w, http.StatusBadRequest, "Invalid request", resolveErr.Error())
		default:
			writeInternalError(w, resolveErr)
		}
		return
	}

	resp := resolveResponse{
		Key:              result.Key,
		Value:            result.Value,
		Display:          result.Display,
		Source:           string(result.Source),
		Type:             string(target),
		ResolutionTimeMs: elapsed.Milliseconds(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetResolutions(w http.ResponseWriter, r *http.Request) {
	_ = r
	records := h.journal.Records()
	resp := resolutionsResponse{
		Resolutions: records,
		Count:       len(records),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDeleteResolutions(w http.ResponseWriter, r *http.Request) {
	_ = r
	h.journal.Clear()
	writeJSON(w, http.StatusOK, messageResponse{Message: "Resolution log cleared"})
}

// normalizeJSONValue lifts encoding/json's generic decoding onto the target
// type: JSON numbers arrive as float64, so integral floats become int for
// integer targets and homogeneous string arrays become []string for list
// targets.
func normalizeJSONValue(value any, target resolver.ValueType) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch target {
	case resolver.TypeInt:
		f, ok := value.(float64)
		if !ok {
			return value, nil
		}
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("expected an integer, got %v", f)
		}
		return int(f), nil
	case resolver.TypeList:
		items, ok := value.([]any)
		if !ok {
			return value, nil
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("list items must be strings, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return value, nil
}

func (h *Handler) currentValuesUpdatedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.valuesUpdatedAt
}

func (h *Handler) markValuesUpdated() {
	h.mu.Lock()
	h.valuesUpdatedAt = h.clock()
	h.mu.Unlock()
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type valuesRequest struct {
	Values map[string]any `json:"values"`
}

type resolveRequest struct {
	Key       string `json:"key"`
	Direct    any    `json:"direct,omitempty"`
	Default   any    `json:"default,omitempty"`
	Type      string `json:"type,omitempty"`
	Sensitive bool   `json:"sensitive,omitempty"`
}

type resolveResponse struct {
	Key              string `json:"key"`
	Value            any    `json:"value"`
	Display          string `json:"display"`
	Source           string `json:"source"`
	Type             string `json:"type"`
	ResolutionTimeMs int64  `json:"resolutionTimeMs"`
}

type valuesResponse struct {
	Values    map[string]any `json:"values"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Message   string         `json:"message,omitempty"`
}

type resolutionsResponse struct {
	Resolutions []resolver.Record `json:"resolutions"`
	Count       int               `json:"count"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
