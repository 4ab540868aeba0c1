package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/awaistahir/energyscore/internal/score"
	_ "modernc.org/sqlite"
)

// Snapshot kinds persisted per sensor.
const (
	KindScore   = "score"
	KindCost    = "cost"
	KindSavings = "savings"
)

// Store handles persistent storage using SQLite: the configured sensors and
// their latest headline snapshots. Only the headline state survives a
// restart; the rolling series refill from live data.
type Store struct {
	db *sql.DB
}

// NewStore creates a new store and initializes the database
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// initialize creates the database schema
func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sensors (
		name TEXT PRIMARY KEY,
		energy_entity TEXT NOT NULL,
		price_entity TEXT NOT NULL,
		rolling_hours INTEGER DEFAULT 24,
		energy_threshold REAL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		sensor_name TEXT NOT NULL,
		kind TEXT NOT NULL,
		state TEXT NOT NULL,
		attributes TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (sensor_name, kind),
		FOREIGN KEY (sensor_name) REFERENCES sensors(name)
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_sensor ON snapshots(sensor_name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveSensor saves or updates a sensor configuration
func (s *Store) SaveSensor(cfg score.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	query := `INSERT OR REPLACE INTO sensors
		(name, energy_entity, price_entity, rolling_hours, energy_threshold, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query, cfg.Name, cfg.EnergyEntity, cfg.PriceEntity,
		cfg.RollingHours, cfg.EnergyThreshold, time.Now())

	return err
}

// GetSensor retrieves a sensor configuration by name
func (s *Store) GetSensor(name string) (score.Config, error) {
	query := `SELECT name, energy_entity, price_entity, rolling_hours, energy_threshold
		FROM sensors WHERE name = ?`

	var cfg score.Config
	err := s.db.QueryRow(query, name).Scan(&cfg.Name, &cfg.EnergyEntity,
		&cfg.PriceEntity, &cfg.RollingHours, &cfg.EnergyThreshold)
	if err != nil {
		return score.Config{}, err
	}

	return cfg, nil
}

// GetSensors retrieves all configured sensors
func (s *Store) GetSensors() ([]score.Config, error) {
	query := `SELECT name, energy_entity, price_entity, rolling_hours, energy_threshold
		FROM sensors ORDER BY name`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sensors := []score.Config{}
	for rows.Next() {
		var cfg score.Config
		if err := rows.Scan(&cfg.Name, &cfg.EnergyEntity, &cfg.PriceEntity,
			&cfg.RollingHours, &cfg.EnergyThreshold); err != nil {
			continue
		}
		sensors = append(sensors, cfg)
	}

	return sensors, nil
}

// DeleteSensor deletes a sensor and its snapshots
func (s *Store) DeleteSensor(name string) error {
	if _, err := s.db.Exec(`DELETE FROM snapshots WHERE sensor_name = ?`, name); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM sensors WHERE name = ?`, name)
	return err
}

// SaveSnapshot persists one headline snapshot for a sensor
func (s *Store) SaveSnapshot(sensorName, kind, state string, attributes interface{}) error {
	attrJSON, err := json.Marshal(attributes)
	if err != nil {
		return fmt.Errorf("encoding attributes: %w", err)
	}

	query := `INSERT OR REPLACE INTO snapshots (sensor_name, kind, state, attributes, updated_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err = s.db.Exec(query, sensorName, kind, state, string(attrJSON), time.Now())
	return err
}

// GetSnapshot retrieves the persisted snapshot of one kind for a sensor.
// The attributes are decoded into out when out is non-nil.
func (s *Store) GetSnapshot(sensorName, kind string, out interface{}) (string, error) {
	query := `SELECT state, attributes FROM snapshots WHERE sensor_name = ? AND kind = ?`

	var state, attrJSON string
	err := s.db.QueryRow(query, sensorName, kind).Scan(&state, &attrJSON)
	if err != nil {
		return "", err
	}

	if out != nil {
		if err := json.Unmarshal([]byte(attrJSON), out); err != nil {
			return "", fmt.Errorf("decoding attributes: %w", err)
		}
	}

	return state, nil
}
