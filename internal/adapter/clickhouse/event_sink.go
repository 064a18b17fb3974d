// Package clickhouse adapts the append-only analytical store for outcome
// events.
package clickhouse

import (
	"context"
	"fmt"

	"criteria-analyzer/internal/domain"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// EventSink writes and reads evaluation events in ClickHouse. Events are
// inserted once and never updated or deleted.
type EventSink struct {
	conn driver.Conn
}

// Config holds the ClickHouse connection parameters.
type Config struct {
	Addr     string
	Database string
	Username string
	Password string
}

// New opens a native-protocol connection and verifies it with a ping.
func New(ctx context.Context, cfg Config) (*EventSink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse connection: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return &EventSink{conn: conn}, nil
}

// NewWithConn wraps an existing connection; used by tests.
func NewWithConn(conn driver.Conn) *EventSink {
	return &EventSink{conn: conn}
}

const eventColumns = `event_id, source_hash, source_url, source_date, ingest_ts, criterion_id, criterion_text, is_match, confidence, summary, model_name, latency_ms, created_at`

// Insert appends one event. There is no update path.
func (s *EventSink) Insert(ctx context.Context, event *domain.Event) error {
	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	sourceURL := ""
	if event.SourceURL != nil {
		sourceURL = *event.SourceURL
	}
	var isMatch uint8
	if event.IsMatch {
		isMatch = 1
	}

	err := s.conn.Exec(ctx, query,
		event.EventID.String(),
		event.SourceHash,
		sourceURL,
		event.SourceDate,
		event.IngestTS,
		event.CriterionID,
		event.CriterionText,
		isMatch,
		event.Confidence,
		event.Summary,
		event.ModelName,
		event.LatencyMS,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (s *EventSink) EventsBySource(ctx context.Context, sourceHash string, limit int) ([]domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE source_hash = ?
		ORDER BY ingest_ts DESC
		LIMIT ?
	`
	return s.queryEvents(ctx, query, sourceHash, limit)
}

func (s *EventSink) RecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		ORDER BY created_at DESC
		LIMIT ?
	`
	return s.queryEvents(ctx, query, limit)
}

func (s *EventSink) queryEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			e         domain.Event
			eventID   string
			sourceURL string
			isMatch   uint8
		)
		if err := rows.Scan(
			&eventID,
			&e.SourceHash,
			&sourceURL,
			&e.SourceDate,
			&e.IngestTS,
			&e.CriterionID,
			&e.CriterionText,
			&isMatch,
			&e.Confidence,
			&e.Summary,
			&e.ModelName,
			&e.LatencyMS,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if err := e.EventID.UnmarshalText([]byte(eventID)); err != nil {
			return nil, fmt.Errorf("failed to parse event id: %w", err)
		}
		if sourceURL != "" {
			e.SourceURL = &sourceURL
		}
		e.IsMatch = isMatch != 0
		events = append(events, e)
	}
	return events, rows.Err()
}

// CriteriaStats aggregates per-criterion outcomes over the last N days.
func (s *EventSink) CriteriaStats(ctx context.Context, days int) ([]domain.CriterionStats, error) {
	query := `
		SELECT
			criterion_id,
			count() AS total_events,
			sum(is_match) AS matches,
			avg(confidence) AS avg_confidence,
			avg(latency_ms) AS avg_latency_ms
		FROM events
		WHERE ingest_ts >= now() - INTERVAL ? DAY
		GROUP BY criterion_id
		ORDER BY total_events DESC
	`
	rows, err := s.conn.Query(ctx, query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query criteria stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.CriterionStats
	for rows.Next() {
		var st domain.CriterionStats
		if err := rows.Scan(
			&st.CriterionID,
			&st.TotalEvents,
			&st.Matches,
			&st.AvgConfidence,
			&st.AvgLatencyMS,
		); err != nil {
			return nil, fmt.Errorf("failed to scan criteria stats: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// DailyStats aggregates events per day over the last N days.
func (s *EventSink) DailyStats(ctx context.Context, days int) ([]domain.DailyStats, error) {
	query := `
		SELECT
			toStartOfDay(ingest_ts) AS day,
			count() AS total_events,
			sum(is_match) AS matches,
			avg(confidence) AS avg_confidence
		FROM events
		WHERE ingest_ts >= now() - INTERVAL ? DAY
		GROUP BY day
		ORDER BY day DESC
	`
	rows, err := s.conn.Query(ctx, query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.DailyStats
	for rows.Next() {
		var st domain.DailyStats
		if err := rows.Scan(
			&st.Date,
			&st.TotalEvents,
			&st.Matches,
			&st.AvgConfidence,
		); err != nil {
			return nil, fmt.Errorf("failed to scan daily stats: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// Ping verifies the connection; used by the health surface.
func (s *EventSink) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close releases the underlying connection.
func (s *EventSink) Close() error {
	return s.conn.Close()
}

var _ domain.EventSink = (*EventSink)(nil)
var _ domain.EventReader = (*EventSink)(nil)
