package monitor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/awaistahir/energyscore/internal/metrics"
	"github.com/awaistahir/energyscore/internal/score"
	"github.com/awaistahir/energyscore/internal/source"
	"github.com/awaistahir/energyscore/internal/store"
)

// DefaultInterval is the refresh cadence when none is configured.
const DefaultInterval = 10 * time.Minute

// UnknownState marks a sensor output with no data yet.
const UnknownState = "unknown"

// Sensor bundles the three trackers for one monitored entity pair. Each
// sensor is refreshed in a single synchronous pass; instances share no
// mutable state.
type Sensor struct {
	Config  score.Config
	engine  *score.Engine
	cost    *score.CostAccumulator
	savings *score.SavingsEstimator
}

// Monitor owns all configured sensors, refreshes them on a fixed cadence
// and persists their headline snapshots after every cycle.
type Monitor struct {
	mu       sync.RWMutex
	source   *source.Client
	store    *store.Store
	logger   *log.Logger
	interval time.Duration
	now      func() time.Time
	sensors  map[string]*Sensor
}

// New creates a monitor and loads every configured sensor from the store,
// restoring persisted snapshots. A nil clock uses wall time.
func New(src *source.Client, st *store.Store, logger *log.Logger, interval time.Duration, now func() time.Time) (*Monitor, error) {
	if logger == nil {
		logger = log.Default()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if now == nil {
		now = time.Now
	}

	m := &Monitor{
		source:   src,
		store:    st,
		logger:   logger,
		interval: interval,
		now:      now,
		sensors:  map[string]*Sensor{},
	}

	configs, err := st.GetSensors()
	if err != nil {
		return nil, fmt.Errorf("loading sensors: %w", err)
	}
	for _, cfg := range configs {
		s := m.newSensor(cfg)
		m.restore(s)
		m.sensors[cfg.Name] = s
	}

	return m, nil
}

func (m *Monitor) newSensor(cfg score.Config) *Sensor {
	return &Sensor{
		Config:  cfg,
		engine:  score.NewEngine(cfg, m.now, m.logger),
		cost:    score.NewCostAccumulator(),
		savings: score.NewSavingsEstimator(),
	}
}

// restore reinstates the persisted headline snapshots. The rolling series
// are not persisted, so quality stays low until the window refills.
func (m *Monitor) restore(s *Sensor) {
	var scoreAttrs score.Snapshot
	state, err := m.store.GetSnapshot(s.Config.Name, store.KindScore, &scoreAttrs)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			m.logger.Printf("%s - could not restore score snapshot: %v", s.Config.Name, err)
		}
		return
	}
	if v, err := strconv.Atoi(state); err == nil {
		s.engine.Restore(v, scoreAttrs.Quality, scoreAttrs.LastUpdated)
		m.logger.Printf("%s - restored score %s with quality %v", s.Config.Name, state, scoreAttrs.Quality)
	}

	var costAttrs score.CostSnapshot
	if state, err := m.store.GetSnapshot(s.Config.Name, store.KindCost, &costAttrs); err == nil && state != UnknownState {
		if v, err := strconv.ParseFloat(state, 64); err == nil {
			s.cost.Restore(v, costAttrs.LastUpdated)
		}
	}

	var savingsAttrs score.SavingsSnapshot
	if state, err := m.store.GetSnapshot(s.Config.Name, store.KindSavings, &savingsAttrs); err == nil && state != UnknownState {
		if v, err := strconv.ParseFloat(state, 64); err == nil {
			s.savings.Restore(v, savingsAttrs.EnergyToday, savingsAttrs.LastUpdated)
		}
	}
}

// AddSensor validates and registers a new sensor, persisting its config.
func (m *Monitor) AddSensor(cfg score.Config) error {
	if cfg.RollingHours == 0 {
		cfg.RollingHours = score.DefaultRollingHours
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := m.store.SaveSensor(cfg); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sensors[cfg.Name]; !exists {
		m.sensors[cfg.Name] = m.newSensor(cfg)
	}
	return nil
}

// RemoveSensor unregisters a sensor and deletes its persisted state.
func (m *Monitor) RemoveSensor(name string) error {
	m.mu.Lock()
	delete(m.sensors, name)
	m.mu.Unlock()
	return m.store.DeleteSensor(name)
}

// Sensors returns the configs of all registered sensors.
func (m *Monitor) Sensors() []score.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	configs := make([]score.Config, 0, len(m.sensors))
	for _, s := range m.sensors {
		configs = append(configs, s.Config)
	}
	return configs
}

// Snapshots returns the current state of one sensor's three outputs.
func (m *Monitor) Snapshots(name string) (score.Snapshot, score.CostSnapshot, score.SavingsSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sensors[name]
	if !ok {
		return score.Snapshot{}, score.CostSnapshot{}, score.SavingsSnapshot{}, false
	}
	return s.engine.Snapshot(), s.cost.Snapshot(), s.savings.Snapshot(), true
}

// RefreshAll runs one refresh cycle for every sensor.
func (m *Monitor) RefreshAll(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sensors {
		m.refresh(ctx, s)
	}
}

// RefreshOne runs one refresh cycle for a single sensor.
func (m *Monitor) RefreshOne(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sensors[name]
	if !ok {
		return fmt.Errorf("sensor not found: %s", name)
	}
	m.refresh(ctx, s)
	return nil
}

// refresh runs one synchronous pass for a sensor: fetch both readings,
// recompute score/quality, feed the same delta and price to the cost and
// savings trackers, then persist. Every fault downgrades to a logged,
// skipped cycle. Callers hold the lock.
func (m *Monitor) refresh(ctx context.Context, s *Sensor) {
	start := time.Now()
	defer func() {
		metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	}()
	name := s.Config.Name

	energy, energyErr := m.source.Reading(ctx, s.Config.EnergyEntity)
	price, priceErr := m.source.Reading(ctx, s.Config.PriceEntity)
	if energyErr != nil || priceErr != nil {
		m.logger.Printf("%s - could not fetch price and energy data: %v",
			name, errors.Join(energyErr, priceErr))
		metrics.RefreshSkipsTotal.WithLabelValues(name, metrics.ReasonFetch).Inc()
		return
	}

	res, err := s.engine.Refresh(energy, price)
	if err != nil {
		// The engine already logged the specific failure.
		metrics.RefreshSkipsTotal.WithLabelValues(name, skipReason(err)).Inc()
		return
	}

	if res.HasDelta {
		s.cost.Update(res.Delta, res.Price, res.Time)
		total, _ := s.cost.Total()
		s.savings.Update(res.Delta, res.Price, total, res.Quality, res.Time)
		metrics.Cost.WithLabelValues(name).Set(total)
	}

	metrics.RefreshesTotal.WithLabelValues(name).Inc()
	metrics.Score.WithLabelValues(name).Set(float64(res.Score))
	metrics.Quality.WithLabelValues(name).Set(res.Quality)

	m.persist(s)
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, score.ErrSourceUnavailable):
		return metrics.ReasonUnavailable
	case errors.Is(err, score.ErrNonNumericReading):
		return metrics.ReasonNonNumeric
	case errors.Is(err, score.ErrInvalidSemantics):
		return metrics.ReasonSemantics
	default:
		return metrics.ReasonFetch
	}
}

// persist writes the three headline snapshots for restore after a restart.
func (m *Monitor) persist(s *Sensor) {
	name := s.Config.Name

	snap := s.engine.Snapshot()
	if err := m.store.SaveSnapshot(name, store.KindScore, strconv.Itoa(snap.Score), snap); err != nil {
		m.logger.Printf("%s - could not persist score snapshot: %v", name, err)
	}

	costSnap := s.cost.Snapshot()
	if err := m.store.SaveSnapshot(name, store.KindCost, numericState(costSnap.Cost, costSnap.Known), costSnap); err != nil {
		m.logger.Printf("%s - could not persist cost snapshot: %v", name, err)
	}

	savingsSnap := s.savings.Snapshot()
	if err := m.store.SaveSnapshot(name, store.KindSavings, numericState(savingsSnap.PotentialSavings, savingsSnap.Known), savingsSnap); err != nil {
		m.logger.Printf("%s - could not persist savings snapshot: %v", name, err)
	}
}

// numericState renders a sensor state, distinguishing "no data yet" from a
// genuine zero.
func numericState(v float64, known bool) string {
	if !known {
		return UnknownState
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Run refreshes all sensors immediately, then on every tick until the
// context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.RefreshAll(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RefreshAll(ctx)
		}
	}
}
