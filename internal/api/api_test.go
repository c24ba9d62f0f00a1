package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/jbweber/homelab/dao"
	"github.com/jbweber/homelab/dao/internal/memory"
	"github.com/jbweber/homelab/dao/internal/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type person struct {
	Name string `json:"name"`
}

func setupTestAPI(t *testing.T) (http.Handler, *memory.Store[person]) {
	t.Helper()
	store := memory.New[person]()
	t.Cleanup(func() { _ = store.Close() })
	return NewRouter[person](store, nil, nil), store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAddHandler(t *testing.T) {
	h, store := setupTestAPI(t)

	w := do(t, h, "POST", "/api/v0/entities", `{"name":"Alice"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp AddResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int32(1), resp.ID)

	value, ok, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Alice", value.Name)
}

func TestAddHandler_InvalidJSON(t *testing.T) {
	h, _ := setupTestAPI(t)

	w := do(t, h, "POST", "/api/v0/entities", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid JSON", resp.Error)
}

func TestAddHandler_TooLarge(t *testing.T) {
	h, _ := setupTestAPI(t)

	body := `{"name":"` + strings.Repeat("x", MaxRequestSize) + `"}`
	w := do(t, h, "POST", "/api/v0/entities", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddAllHandler(t *testing.T) {
	h, store := setupTestAPI(t)

	w := do(t, h, "POST", "/api/v0/entities/batch", `[{"name":"Alice"},{"name":"Bob"}]`)
	require.Equal(t, http.StatusNoContent, w.Code)

	all, err := store.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListHandler_SortedByID(t *testing.T) {
	h, store := setupTestAPI(t)
	ctx := context.Background()
	for _, name := range []string{"c", "a", "b", "d"} {
		_, err := store.Add(ctx, person{Name: name})
		require.NoError(t, err)
	}
	require.NoError(t, store.Delete(ctx, 2))

	w := do(t, h, "GET", "/api/v0/entities", "")
	require.Equal(t, http.StatusOK, w.Code)

	var mappings []dao.Mapping[person]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mappings))
	require.Len(t, mappings, 3)
	assert.Equal(t, []int32{1, 3, 4}, []int32{mappings[0].ID, mappings[1].ID, mappings[2].ID})
	assert.Equal(t, "c", mappings[0].Value.Name)
}

func TestListHandler_Empty(t *testing.T) {
	h, _ := setupTestAPI(t)

	w := do(t, h, "GET", "/api/v0/entities", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestGetHandler(t *testing.T) {
	h, store := setupTestAPI(t)
	id, err := store.Add(context.Background(), person{Name: "Bob"})
	require.NoError(t, err)

	w := do(t, h, "GET", "/api/v0/entities/1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var m dao.Mapping[person]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, id, m.ID)
	assert.Equal(t, "Bob", m.Value.Name)
}

func TestGetHandler_NotFound(t *testing.T) {
	h, _ := setupTestAPI(t)

	w := do(t, h, "GET", "/api/v0/entities/99999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlers_InvalidID(t *testing.T) {
	h, _ := setupTestAPI(t)

	for _, tc := range []struct {
		method string
		path   string
		body   string
	}{
		{"GET", "/api/v0/entities/invalid", ""},
		{"HEAD", "/api/v0/entities/invalid", ""},
		{"PUT", "/api/v0/entities/invalid", `{"name":"x"}`},
		{"DELETE", "/api/v0/entities/invalid", ""},
		{"GET", "/api/v0/entities/2147483648", ""},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := do(t, h, tc.method, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestExistsHandler(t *testing.T) {
	h, store := setupTestAPI(t)
	_, err := store.Add(context.Background(), person{Name: "Alice"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, do(t, h, "HEAD", "/api/v0/entities/1", "").Code)

	w := do(t, h, "HEAD", "/api/v0/entities/2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestUpdateHandler(t *testing.T) {
	h, store := setupTestAPI(t)
	ctx := context.Background()
	_, err := store.Add(ctx, person{Name: "Alice"})
	require.NoError(t, err)

	w := do(t, h, "PUT", "/api/v0/entities/1", `{"name":"Carol"}`)
	require.Equal(t, http.StatusNoContent, w.Code)

	value, _, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Carol", value.Name)

	assert.Equal(t, http.StatusNotFound, do(t, h, "PUT", "/api/v0/entities/5", `{"name":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "PUT", "/api/v0/entities/1", `nope`).Code)
}

func TestDeleteHandler(t *testing.T) {
	h, store := setupTestAPI(t)
	ctx := context.Background()
	_, err := store.Add(ctx, person{Name: "Alice"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, do(t, h, "DELETE", "/api/v0/entities/1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "DELETE", "/api/v0/entities/1", "").Code)

	exists, err := store.Exists(ctx, 1)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestHandlers_ClosedStore(t *testing.T) {
	h, store := setupTestAPI(t)
	require.NoError(t, store.Close())

	w := do(t, h, "GET", "/api/v0/entities", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, dao.ErrClosed.Error())

	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, "HEAD", "/api/v0/entities/1", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, "POST", "/api/v0/entities", `{"name":"x"}`).Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{dao.Wrap("delete", dao.ErrNotFound), http.StatusNotFound},
		{dao.Wrap("get", dao.ErrClosed), http.StatusServiceUnavailable},
		{dao.Wrap("add", dao.ErrInvalidEntity), http.StatusUnprocessableEntity},
		{dao.Wrap("add", dao.ErrIDOverflow), http.StatusInsufficientStorage},
		{dao.Wrap("get", assert.AnError), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_requests_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	h := NewRouter[person](memory.New[person](), nil, reg)

	w := do(t, h, "GET", "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dao service is running!")

	w = do(t, h, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_requests_total 1")
}

func TestRouter_NoMetricsWithoutGatherer(t *testing.T) {
	h, _ := setupTestAPI(t)

	w := do(t, h, "GET", "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_RequestIDHeaderAccepted(t *testing.T) {
	h, _ := setupTestAPI(t)

	req := httptest.NewRequest("POST", "/api/v0/entities", bytes.NewBufferString(`{"name":"x"}`))
	req.Header.Set("X-Request-Id", "abc")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestHandlers_StoreFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStringStore(ctrl)
	h := NewRouter[string](store, nil, nil)

	store.EXPECT().GetMap(gomock.Any()).Return(nil, dao.Wrap("get map", errors.New("disk on fire")))
	store.EXPECT().Add(gomock.Any(), "x").Return(int32(0), dao.Wrap("add", dao.ErrIDOverflow))
	store.EXPECT().Update(gomock.Any(), int32(1), "x").Return(dao.Wrap("update", dao.ErrInvalidEntity))
	store.EXPECT().Exists(gomock.Any(), int32(2)).Return(false, dao.Wrap("exists", errors.New("timeout")))

	w := do(t, h, "GET", "/api/v0/entities", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "dao: get map: disk on fire", resp.Error)

	assert.Equal(t, http.StatusInsufficientStorage, do(t, h, "POST", "/api/v0/entities", `"x"`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, h, "PUT", "/api/v0/entities/1", `"x"`).Code)
	assert.Equal(t, http.StatusInternalServerError, do(t, h, "HEAD", "/api/v0/entities/2", "").Code)
}

func TestRouter_RecoversFromPanics(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStringStore(ctrl)
	h := NewRouter[string](store, nil, nil)

	store.EXPECT().GetMapping(gomock.Any(), int32(1)).Do(func(_ any, _ any) {
		panic("store exploded")
	})

	assert.Equal(t, http.StatusInternalServerError, do(t, h, "GET", "/api/v0/entities/1", "").Code)
}
