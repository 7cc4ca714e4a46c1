package api

import (
	"bytes"
	"distributed-kvstore/internal/replica"
	"distributed-kvstore/internal/store"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := store.New("")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	engine := replica.New("r1", nil, s, nil)

	router := gin.New()
	NewHandler(engine).Register(router)
	return router
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestKVSPut_CreateThenReplace(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(router, http.MethodPut, "/kvs/k", map[string]any{"value": "v1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("first PUT status = %d, want 201", rec.Code)
	}

	var created replica.KVResult
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doJSON(router, http.MethodPut, "/kvs/k", map[string]any{
		"value":           "v2",
		"causal-metadata": created.CausalMetadata,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("second PUT status = %d, want 200", rec.Code)
	}
}

func TestKVSPut_MissingValueIsBadRequest(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(router, http.MethodPut, "/kvs/k", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("PUT without value status = %d, want 400", rec.Code)
	}
}

func TestKVSPut_KeyLengthBoundary(t *testing.T) {
	router := newTestRouter(t)

	key50 := strings.Repeat("k", 50)
	rec := doJSON(router, http.MethodPut, "/kvs/"+key50, map[string]any{"value": "v"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("PUT with a 50-byte key status = %d, want 201", rec.Code)
	}

	key51 := strings.Repeat("k", 51)
	rec = doJSON(router, http.MethodPut, "/kvs/"+key51, map[string]any{"value": "v"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("PUT with a 51-byte key status = %d, want 400", rec.Code)
	}
}

func TestKVSGet_NotFound(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(router, http.MethodGet, "/kvs/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET of a missing key status = %d, want 404", rec.Code)
	}
}

func TestKVSGet_CausalPendingReturns503(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(router, http.MethodGet, "/kvs/k", map[string]any{
		"causal-metadata": map[string]int{"r1": 5},
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("GET ahead of observed causal context status = %d, want 503", rec.Code)
	}
}

func TestKVSDeleteLifecycle(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(router, http.MethodPut, "/kvs/k", map[string]any{"value": "v"})
	var created replica.KVResult
	json.Unmarshal(rec.Body.Bytes(), &created)

	rec = doJSON(router, http.MethodDelete, "/kvs/k", map[string]any{
		"causal-metadata": created.CausalMetadata,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d, want 200", rec.Code)
	}

	rec = doJSON(router, http.MethodDelete, "/kvs/k", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("DELETE of an already-absent key status = %d, want 404", rec.Code)
	}
}

func TestViewAddListRemove(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(router, http.MethodPut, "/view", map[string]any{"socket-address": "r2"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("view add status = %d, want 201", rec.Code)
	}

	rec = doJSON(router, http.MethodGet, "/view", nil)
	var body struct {
		View []string `json:"view"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if len(body.View) != 2 {
		t.Fatalf("view = %v, want 2 members", body.View)
	}

	rec = doJSON(router, http.MethodDelete, "/view", map[string]any{"socket-address": "r2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("view remove status = %d, want 200", rec.Code)
	}
	rec = doJSON(router, http.MethodDelete, "/view", map[string]any{"socket-address": "r2"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("removing an absent member status = %d, want 404", rec.Code)
	}
}

func TestStateTransferReflectsStore(t *testing.T) {
	router := newTestRouter(t)
	doJSON(router, http.MethodPut, "/kvs/k", map[string]any{"value": "v"})

	rec := doJSON(router, http.MethodGet, "/vckvs", nil)
	var snap replica.StateSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.KVS["k"] != "v" {
		t.Fatalf("snapshot kvs = %v, want k=v", snap.KVS)
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(router, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}
}
