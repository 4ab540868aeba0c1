package uiapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/awaistahir/energyscore/internal/monitor"
	"github.com/awaistahir/energyscore/internal/source"
	"github.com/awaistahir/energyscore/internal/store"
)

func newTestServer(t *testing.T) (*Server, *time.Time) {
	t.Helper()

	states := map[string]string{
		"sensor.energy":            "100.0",
		"sensor.electricity_price": "0.50",
	}
	entities := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entity := r.URL.Path[len("/api/states/"):]
		state, ok := states[entity]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"entity_id": %q, "state": %q, "attributes": {"state_class": "total_increasing"}}`, entity, state)
	}))
	t.Cleanup(entities.Close)

	st, err := store.NewStore(filepath.Join(t.TempDir(), "energyscore.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	now := time.Date(2022, 9, 18, 10, 8, 0, 0, time.UTC)
	logger := log.New(io.Discard, "", 0)
	mon, err := monitor.New(source.NewClient(entities.URL, ""), st, logger, time.Minute, func() time.Time { return now })
	if err != nil {
		t.Fatalf("creating monitor: %v", err)
	}

	return NewServer(st, mon), &now
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSensorLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doRequest(t, h, "POST", "/api/sensors", map[string]interface{}{
		"name":          "my-es",
		"energy_entity": "sensor.energy",
		"price_entity":  "sensor.electricity_price",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", rec.Code, rec.Body)
	}

	rec = doRequest(t, h, "GET", "/api/sensors", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
	var configs []map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&configs); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(configs) != 1 || configs[0]["name"] != "my-es" {
		t.Errorf("list = %v, want one sensor named my-es", configs)
	}

	rec = doRequest(t, h, "DELETE", "/api/sensors/my-es", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status = %d", rec.Code)
	}
	rec = doRequest(t, h, "GET", "/api/sensors/my-es/score", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("score after delete: status = %d, want 404", rec.Code)
	}
}

func TestCreateSensorRejectsInvalidConfig(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doRequest(t, h, "POST", "/api/sensors", map[string]interface{}{
		"name":          "bad",
		"energy_entity": "sensor.energy",
		"price_entity":  "sensor.electricity_price",
		"rolling_hours": 1,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSensorOutputs(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doRequest(t, h, "POST", "/api/sensors", map[string]interface{}{
		"name":          "my-es",
		"energy_entity": "sensor.energy",
		"price_entity":  "sensor.electricity_price",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", rec.Code)
	}

	rec = doRequest(t, h, "POST", "/api/sensors/my-es/refresh", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: status = %d, body = %s", rec.Code, rec.Body)
	}
	var scoreState struct {
		State      float64 `json:"state"`
		Attributes struct {
			Quality float64 `json:"quality"`
		} `json:"attributes"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&scoreState); err != nil {
		t.Fatalf("decoding refresh response: %v", err)
	}
	// A single reading derives no delta yet: default score, quality 0.
	if scoreState.State != 100 || scoreState.Attributes.Quality != 0 {
		t.Errorf("score = %v quality = %v, want 100 and 0",
			scoreState.State, scoreState.Attributes.Quality)
	}

	// No delta yet, so cost and savings report unknown.
	for _, path := range []string{"/api/sensors/my-es/cost", "/api/sensors/my-es/savings"} {
		rec = doRequest(t, h, "GET", path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", path, rec.Code)
		}
		var state struct {
			State interface{} `json:"state"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
			t.Fatalf("%s: decoding: %v", path, err)
		}
		if state.State != "unknown" {
			t.Errorf("%s: state = %v, want unknown", path, state.State)
		}
	}
}

func TestStatus(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv.Handler(), "GET", "/api/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if status["status"] != "ok" {
		t.Errorf("status = %v, want ok", status["status"])
	}
}
