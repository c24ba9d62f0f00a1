// Package remote implements dao.Store as a client of the HTTP API served by
// package api.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jbweber/homelab/dao"
)

const entitiesPath = "/api/v0/entities"

// StatusError is returned when the server answers with an unexpected status
type StatusError struct {
	Code    int
	Message string
	kind    error
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server responded %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("server responded %d: %s", e.Code, e.Message)
}

// Unwrap exposes the dao sentinel matching the status, if any
func (e *StatusError) Unwrap() error {
	return e.kind
}

// statusError builds the error of a failed response. A 404 only means a
// missing entity when it comes from the entity api, which always answers
// with JSON; any other 404 points at a wrong base URL.
func statusError(code int, contentType string, body []byte) *StatusError {
	e := &StatusError{Code: code}

	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		e.Message = payload.Error
	} else {
		e.Message = strings.TrimSpace(string(body))
	}

	switch code {
	case http.StatusNotFound:
		if isJSON(contentType) {
			e.kind = dao.ErrNotFound
		}
	case http.StatusServiceUnavailable:
		e.kind = dao.ErrClosed
	case http.StatusUnprocessableEntity:
		e.kind = dao.ErrInvalidEntity
	case http.StatusInsufficientStorage:
		e.kind = dao.ErrIDOverflow
	}
	return e
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

// Store is a dao.Store that forwards every operation to a remote server
type Store[T any] struct {
	base   string
	client *http.Client

	mu     sync.RWMutex
	closed bool
}

var _ dao.Store[string] = (*Store[string])(nil)

type config struct {
	client *http.Client
}

// ClientOption configures the HTTP side of a Store
type ClientOption func(*config)

// WithHTTPClient sets the client used for requests
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *config) {
		c.client = client
	}
}

// New creates a store talking to the server at baseURL
func New[T any](baseURL string, opts ...ClientOption) (*Store[T], error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: missing host", baseURL)
	}

	c := config{client: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		opt(&c)
	}

	return &Store[T]{
		base:   strings.TrimRight(u.String(), "/") + entitiesPath,
		client: c.client,
	}, nil
}

// do sends one request. A non-nil in is sent as JSON and a non-nil out
// receives the decoded JSON response.
func (s *Store[T]) do(ctx context.Context, method, path string, in, out any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return dao.ErrClosed
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: %v", dao.ErrInvalidEntity, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.base+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, resp.Header.Get("Content-Type"), data)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", dao.ErrInvalidEntity, err)
		}
	}
	return nil
}

func idPath(id int32) string {
	return "/" + strconv.FormatInt(int64(id), 10)
}

// Exists asks the server whether id is stored
func (s *Store[T]) Exists(ctx context.Context, id int32) (bool, error) {
	err := s.do(ctx, http.MethodHead, idPath(id), nil, nil)
	if err != nil {
		if isAbsent(err) {
			return false, nil
		}
		return false, dao.Wrap("exists", err)
	}
	return true, nil
}

// Get fetches the entity stored under id
func (s *Store[T]) Get(ctx context.Context, id int32) (T, bool, error) {
	m, ok, err := s.getMapping(ctx, "get", id)
	return m.Value, ok, err
}

// GetMapping fetches the entity stored under id with its identifier
func (s *Store[T]) GetMapping(ctx context.Context, id int32) (dao.Mapping[T], bool, error) {
	return s.getMapping(ctx, "get mapping", id)
}

func (s *Store[T]) getMapping(ctx context.Context, op string, id int32) (dao.Mapping[T], bool, error) {
	var m dao.Mapping[T]
	if err := s.do(ctx, http.MethodGet, idPath(id), nil, &m); err != nil {
		if isAbsent(err) {
			return dao.Mapping[T]{}, false, nil
		}
		return dao.Mapping[T]{}, false, dao.Wrap(op, err)
	}
	return m, true, nil
}

// GetAll fetches every entity, ordered by identifier
func (s *Store[T]) GetAll(ctx context.Context) ([]T, error) {
	mappings, err := s.list(ctx, "get all")
	if err != nil {
		return nil, err
	}
	values := make([]T, 0, len(mappings))
	for _, m := range mappings {
		values = append(values, m.Value)
	}
	return values, nil
}

// GetMap fetches every entity keyed by identifier
func (s *Store[T]) GetMap(ctx context.Context) (map[int32]T, error) {
	mappings, err := s.list(ctx, "get map")
	if err != nil {
		return nil, err
	}
	m := make(map[int32]T, len(mappings))
	for _, mapping := range mappings {
		m[mapping.ID] = mapping.Value
	}
	return m, nil
}

func (s *Store[T]) list(ctx context.Context, op string) ([]dao.Mapping[T], error) {
	var mappings []dao.Mapping[T]
	if err := s.do(ctx, http.MethodGet, "", nil, &mappings); err != nil {
		return nil, dao.Wrap(op, err)
	}
	return mappings, nil
}

// Update replaces the entity stored under id
func (s *Store[T]) Update(ctx context.Context, id int32, value T) error {
	return dao.Wrap("update", s.do(ctx, http.MethodPut, idPath(id), value, nil))
}

// Add stores value on the server and returns the identifier it assigned
func (s *Store[T]) Add(ctx context.Context, value T) (int32, error) {
	var resp struct {
		ID int32 `json:"id"`
	}
	if err := s.do(ctx, http.MethodPost, "", value, &resp); err != nil {
		return 0, dao.Wrap("add", err)
	}
	return resp.ID, nil
}

// AddAll stores every value in a single request
func (s *Store[T]) AddAll(ctx context.Context, values []T) error {
	if values == nil {
		values = []T{}
	}
	return dao.Wrap("add all", s.do(ctx, http.MethodPost, "/batch", values, nil))
}

// Delete removes the entity stored under id
func (s *Store[T]) Delete(ctx context.Context, id int32) error {
	return dao.Wrap("delete", s.do(ctx, http.MethodDelete, idPath(id), nil, nil))
}

// Close drops idle connections. Later operations fail with dao.ErrClosed
// without reaching the server.
func (s *Store[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.client.CloseIdleConnections()
	}
	return nil
}

// isAbsent reports whether err is the api's answer for a missing entity
func isAbsent(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && errors.Is(se.kind, dao.ErrNotFound)
}
