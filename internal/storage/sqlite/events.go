package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/yegors/atc-sim/pkg/logger"
)

// timeLayout is fixed width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// EventStorage handles storage of simulation events
type EventStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewEventStorage creates the events table if needed
func NewEventStorage(db *sql.DB, log *logger.Logger) (*EventStorage, error) {
	if log == nil {
		log = logger.NewNop()
	}
	storage := &EventStorage{
		db:     db,
		logger: log.Named("sqlite-events"),
	}

	if err := storage.initDB(); err != nil {
		return nil, err
	}
	return storage, nil
}

// initDB initializes the database tables
func (s *EventStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			details TEXT,
			timestamp TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_events_actor ON events(actor)`,
		`CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp)`,
	}
	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create event index: %w", err)
		}
	}

	return nil
}

// StoreEvent stores an event record and returns its ID
func (s *EventStorage) StoreEvent(record *EventRecord) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO events (actor, action, details, timestamp) VALUES (?, ?, ?, ?)`,
		record.Actor,
		record.Action,
		record.Details,
		record.Timestamp.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

// GetRecentEvents returns the newest events first
func (s *EventStorage) GetRecentEvents(limit int) ([]*EventRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, actor, action, details, timestamp
		FROM events
		ORDER BY id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	defer rows.Close()

	return s.scanEventRows(rows)
}

// GetEventsByActor returns the newest events of one actor first
func (s *EventStorage) GetEventsByActor(actor string, limit int) ([]*EventRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, actor, action, details, timestamp
		FROM events
		WHERE actor = ?
		ORDER BY id DESC
		LIMIT ?`,
		actor, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events by actor: %w", err)
	}
	defer rows.Close()

	return s.scanEventRows(rows)
}

// GetEventsByTimeRange returns at most limit events between start and end,
// newest first
func (s *EventStorage) GetEventsByTimeRange(start, end time.Time, limit int) ([]*EventRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, actor, action, details, timestamp
		FROM events
		WHERE timestamp BETWEEN ? AND ?
		ORDER BY id DESC
		LIMIT ?`,
		start.UTC().Format(timeLayout), end.UTC().Format(timeLayout), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events by time range: %w", err)
	}
	defer rows.Close()

	return s.scanEventRows(rows)
}

// scanEventRows scans database rows into EventRecord structs
func (s *EventStorage) scanEventRows(rows *sql.Rows) ([]*EventRecord, error) {
	records := []*EventRecord{}
	for rows.Next() {
		var record EventRecord
		var timestamp string
		var details sql.NullString

		if err := rows.Scan(
			&record.ID,
			&record.Actor,
			&record.Action,
			&details,
			&timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		var err error
		record.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}
		if details.Valid {
			record.Details = details.String
		}

		records = append(records, &record)
	}

	return records, rows.Err()
}
