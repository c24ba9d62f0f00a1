// Package api exposes a dao.Store over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jbweber/homelab/dao"
)

// MaxRequestSize bounds the size of request bodies
const MaxRequestSize = 10 * 1024 * 1024

// API serves the operations of a store
type API[T any] struct {
	store  dao.Store[T]
	logger *slog.Logger
}

// NewAPI creates an API over store
func NewAPI[T any](store dao.Store[T], logger *slog.Logger) *API[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &API[T]{store: store, logger: logger}
}

// RegisterRoutes registers all API endpoints to the given chi router.
func (a *API[T]) RegisterRoutes(r chi.Router) {
	r.Route("/api/v0/entities", func(r chi.Router) {
		r.Get("/", a.listHandler)
		r.Post("/", a.addHandler)
		r.Post("/batch", a.addAllHandler)
		r.Head("/{id}", a.existsHandler)
		r.Get("/{id}", a.getHandler)
		r.Put("/{id}", a.updateHandler)
		r.Delete("/{id}", a.deleteHandler)
	})
}

// AddResponse is the body returned when an entity is created
type AddResponse struct {
	ID int32 `json:"id"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

func (a *API[T]) listHandler(w http.ResponseWriter, r *http.Request) {
	m, err := a.store.GetMap(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	mappings := make([]dao.Mapping[T], 0, len(m))
	for id, value := range m {
		mappings = append(mappings, dao.Mapping[T]{ID: id, Value: value})
	}
	sort.Slice(mappings, func(i, j int) bool { return mappings[i].ID < mappings[j].ID })

	a.writeJSON(w, http.StatusOK, mappings)
}

func (a *API[T]) addHandler(w http.ResponseWriter, r *http.Request) {
	var value T
	if !a.decode(w, r, &value) {
		return
	}

	id, err := a.store.Add(r.Context(), value)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.writeJSON(w, http.StatusCreated, AddResponse{ID: id})
}

func (a *API[T]) addAllHandler(w http.ResponseWriter, r *http.Request) {
	var values []T
	if !a.decode(w, r, &values) {
		return
	}

	if err := a.store.AddAll(r.Context(), values); err != nil {
		a.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *API[T]) existsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := a.parseID(w, r)
	if !ok {
		return
	}

	exists, err := a.store.Exists(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if !exists {
		a.writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "entity not found"})
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *API[T]) getHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := a.parseID(w, r)
	if !ok {
		return
	}

	m, found, err := a.store.GetMapping(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if !found {
		a.writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "entity not found"})
		return
	}

	a.writeJSON(w, http.StatusOK, m)
}

func (a *API[T]) updateHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := a.parseID(w, r)
	if !ok {
		return
	}

	var value T
	if !a.decode(w, r, &value) {
		return
	}

	if err := a.store.Update(r.Context(), id, value); err != nil {
		a.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *API[T]) deleteHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := a.parseID(w, r)
	if !ok {
		return
	}

	if err := a.store.Delete(r.Context(), id); err != nil {
		a.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *API[T]) parseID(w http.ResponseWriter, r *http.Request) (int32, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		a.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid entity ID"})
		return 0, false
	}
	return int32(id), true
}

func (a *API[T]) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestSize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		a.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON"})
		return false
	}
	return true
}

// statusFor maps store errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, dao.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dao.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, dao.ErrInvalidEntity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, dao.ErrIDOverflow):
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

func (a *API[T]) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.logger.ErrorContext(r.Context(), "store operation failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	a.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (a *API[T]) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.logger.Warn("failed to write response", "error", err)
	}
}
