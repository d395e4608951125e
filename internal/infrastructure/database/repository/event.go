package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"scamguard/internal/domain/models"
	"scamguard/internal/infrastructure/database"
)

const defaultEventLimit = 100

// EventRepository persists the audit log of non-SAFE evaluations
type EventRepository struct {
	db database.DBTX
}

// NewEventRepository creates a new event repository
func NewEventRepository(db database.DBTX) *EventRepository {
	return &EventRepository{db: db}
}

// Insert records one audit event
func (r *EventRepository) Insert(ctx context.Context, e *models.RiskEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO risk_events (
			id, type, sender, details, category, risk_level, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		e.ID, string(e.Type), e.Sender, e.Details, e.Category,
		e.RiskLevel.String(), jsonOrNull(e.Metadata), e.CreatedAt,
	)
	if err != nil {
		return storeErr("insert risk event", err)
	}
	return nil
}

// ListSince returns events newer than since, newest first
func (r *EventRepository) ListSince(ctx context.Context, since time.Time, limit int) ([]models.RiskEvent, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}

	query := `
		SELECT id, type, sender, details, category, risk_level, metadata, created_at
		FROM risk_events
		WHERE created_at >= $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, since, limit)
	if err != nil {
		return nil, storeErr("list risk events", err)
	}
	defer rows.Close()

	var events []models.RiskEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list risk events", err)
	}
	return events, nil
}

// CountByTypeSince aggregates events per type and level since the given time
func (r *EventRepository) CountByTypeSince(ctx context.Context, since time.Time) ([]models.EventCount, error) {
	query := `
		SELECT type, risk_level, COUNT(*)
		FROM risk_events
		WHERE created_at >= $1
		GROUP BY type, risk_level
		ORDER BY type, risk_level`

	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, storeErr("count risk events", err)
	}
	defer rows.Close()

	var counts []models.EventCount
	for rows.Next() {
		var (
			typ, level string
			n          int64
		)
		if err := rows.Scan(&typ, &level, &n); err != nil {
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		lvl, err := models.ParseRiskLevel(level)
		if err != nil {
			return nil, fmt.Errorf("stored event count: %w", err)
		}
		counts = append(counts, models.EventCount{Type: models.EventType(typ), RiskLevel: lvl, Count: int(n)})
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("count risk events", err)
	}
	return counts, nil
}

func scanEvent(row pgx.Row) (models.RiskEvent, error) {
	var (
		e        models.RiskEvent
		typ      string
		level    string
		metadata []byte
	)
	if err := row.Scan(&e.ID, &typ, &e.Sender, &e.Details, &e.Category, &level, &metadata, &e.CreatedAt); err != nil {
		return e, fmt.Errorf("failed to scan risk event: %w", err)
	}
	lvl, err := models.ParseRiskLevel(level)
	if err != nil {
		return e, fmt.Errorf("stored risk event %s: %w", e.ID, err)
	}
	e.Type = models.EventType(typ)
	e.RiskLevel = lvl
	e.Metadata = bytesToJSON(metadata)
	return e, nil
}
