package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/basket-splitter/internal/api"
	"github.com/eugenenazirov/basket-splitter/internal/catalog"
	"github.com/eugenenazirov/basket-splitter/internal/metrics"
)

func newRouter(t *testing.T, collector metrics.Collector) http.Handler {
	t.Helper()

	store := catalog.NewMemoryStore()
	handler := api.NewHandler(store, api.WithMetrics(collector))
	logger := zaptest.NewLogger(t)
	return api.NewRouter(handler, logger, api.WithRateLimit(0, 0))
}

func performRequest(t *testing.T, handler http.Handler, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestIntegrationFlow(t *testing.T) {
	collector := metrics.NewPrometheus("")
	handler := newRouter(t, collector)
	jsonHeaders := map[string]string{"Content-Type": "application/json"}

	rec := performRequest(t, handler, http.MethodGet, "/api/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", rec.Code)
	}

	basket, _ := json.Marshal(map[string]any{"items": []string{"Longan", "Haggis", "Cocoa Butter"}})
	rec = performRequest(t, handler, http.MethodPost, "/api/split", basket, jsonHeaders)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before delivery options are loaded, got %d", rec.Code)
	}

	updatePayload := map[string]any{"deliveryOptions": map[string][]string{
		"Cocoa Butter": {"Courier"},
		"Haggis":       {"Courier", "Express Collection"},
		"Longan":       {"Express Collection"},
	}}
	payload, _ := json.Marshal(updatePayload)
	rec = performRequest(t, handler, http.MethodPut, "/api/delivery-options", payload, jsonHeaders)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from delivery options update, got %d", rec.Code)
	}

	rec = performRequest(t, handler, http.MethodPost, "/api/split", basket, jsonHeaders)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from split, got %d: %s", rec.Code, rec.Body.String())
	}

	var response struct {
		Groups      map[string][]string `json:"groups"`
		TotalGroups int                 `json:"totalGroups"`
		TotalItems  int                 `json:"totalItems"`
		Complete    bool                `json:"complete"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	want := map[string][]string{
		"Courier":            {"Cocoa Butter", "Haggis"},
		"Express Collection": {"Longan"},
	}
	if !reflect.DeepEqual(response.Groups, want) {
		t.Fatalf("unexpected groups %v", response.Groups)
	}
	if response.TotalGroups != 2 || response.TotalItems != 3 || !response.Complete {
		t.Fatalf("unexpected summary %+v", response)
	}

	missing, _ := json.Marshal(map[string]any{"items": []string{"Haggis", "Truffle - Black"}})
	rec = performRequest(t, handler, http.MethodPost, "/api/split", missing, jsonHeaders)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown product, got %d", rec.Code)
	}

	metricsRec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(metricsRec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	for _, line := range []string{
		`basket_splitter_splits_total{outcome="ok"} 1`,
		`basket_splitter_splits_total{outcome="unfulfillable"} 1`,
	} {
		if !bytes.Contains(metricsRec.Body.Bytes(), []byte(line)) {
			t.Fatalf("expected %q in metrics output", line)
		}
	}
}
