package store

import (
	"path/filepath"
	"testing"

	"github.com/awaistahir/energyscore/internal/score"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := NewStore(filepath.Join(t.TempDir(), "energyscore.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSensorRoundTrip(t *testing.T) {
	st := newTestStore(t)

	cfg := score.Config{
		Name:            "my es",
		EnergyEntity:    "sensor.energy",
		PriceEntity:     "sensor.electricity_price",
		RollingHours:    24,
		EnergyThreshold: 0.14,
	}
	if err := st.SaveSensor(cfg); err != nil {
		t.Fatalf("saving sensor: %v", err)
	}

	got, err := st.GetSensor("my es")
	if err != nil {
		t.Fatalf("getting sensor: %v", err)
	}
	if got != cfg {
		t.Errorf("got %+v, want %+v", got, cfg)
	}

	sensors, err := st.GetSensors()
	if err != nil {
		t.Fatalf("listing sensors: %v", err)
	}
	if len(sensors) != 1 {
		t.Errorf("listed %d sensors, want 1", len(sensors))
	}
}

func TestSaveSensorValidatesConfig(t *testing.T) {
	st := newTestStore(t)

	cfg := score.Config{
		Name:         "bad",
		EnergyEntity: "sensor.energy",
		PriceEntity:  "sensor.electricity_price",
		RollingHours: 1,
	}
	if err := st.SaveSensor(cfg); err == nil {
		t.Error("expected rolling_hours out of range to be rejected")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	st := newTestStore(t)

	cfg := score.Config{
		Name:         "my es",
		EnergyEntity: "sensor.energy",
		PriceEntity:  "sensor.electricity_price",
		RollingHours: 24,
	}
	if err := st.SaveSensor(cfg); err != nil {
		t.Fatalf("saving sensor: %v", err)
	}

	attrs := map[string]interface{}{"quality": 0.12}
	if err := st.SaveSnapshot("my es", KindScore, "38", attrs); err != nil {
		t.Fatalf("saving snapshot: %v", err)
	}

	var decoded map[string]interface{}
	state, err := st.GetSnapshot("my es", KindScore, &decoded)
	if err != nil {
		t.Fatalf("getting snapshot: %v", err)
	}
	if state != "38" {
		t.Errorf("state = %q, want 38", state)
	}
	if decoded["quality"] != 0.12 {
		t.Errorf("quality = %v, want 0.12", decoded["quality"])
	}

	// Overwrite keeps a single row per kind.
	if err := st.SaveSnapshot("my es", KindScore, "42", attrs); err != nil {
		t.Fatalf("overwriting snapshot: %v", err)
	}
	state, err = st.GetSnapshot("my es", KindScore, nil)
	if err != nil {
		t.Fatalf("getting snapshot: %v", err)
	}
	if state != "42" {
		t.Errorf("state = %q, want 42", state)
	}
}

func TestDeleteSensor(t *testing.T) {
	st := newTestStore(t)

	cfg := score.Config{
		Name:         "my es",
		EnergyEntity: "sensor.energy",
		PriceEntity:  "sensor.electricity_price",
		RollingHours: 24,
	}
	if err := st.SaveSensor(cfg); err != nil {
		t.Fatalf("saving sensor: %v", err)
	}
	if err := st.SaveSnapshot("my es", KindCost, "2.33", map[string]float64{}); err != nil {
		t.Fatalf("saving snapshot: %v", err)
	}

	if err := st.DeleteSensor("my es"); err != nil {
		t.Fatalf("deleting sensor: %v", err)
	}
	if _, err := st.GetSensor("my es"); err == nil {
		t.Error("sensor still present after delete")
	}
	if _, err := st.GetSnapshot("my es", KindCost, nil); err == nil {
		t.Error("snapshot still present after delete")
	}
}
