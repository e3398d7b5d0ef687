package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LeadEvent is an append-only audit record of a lead.
type LeadEvent struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	ActorID   *uuid.UUID
	Type      string
	Metadata  map[string]any
	CreatedAt time.Time
}

type AppendEventParams struct {
	LeadID   uuid.UUID
	ActorID  *uuid.UUID
	Type     string
	Metadata map[string]any
}

func (r *Repository) AppendEvent(ctx context.Context, params AppendEventParams) (LeadEvent, error) {
	metadata := params.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return LeadEvent{}, err
	}

	event := LeadEvent{Metadata: metadata}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO lead_events (lead_id, actor_id, type, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING id, lead_id, actor_id, type, created_at`,
		params.LeadID, params.ActorID, params.Type, metadataJSON,
	).Scan(&event.ID, &event.LeadID, &event.ActorID, &event.Type, &event.CreatedAt)
	if err != nil {
		return LeadEvent{}, fmt.Errorf("append lead event: %w", err)
	}
	return event, nil
}

// ListEvents returns a lead's events, oldest first.
func (r *Repository) ListEvents(ctx context.Context, leadID uuid.UUID) ([]LeadEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, actor_id, type, metadata, created_at
		FROM lead_events
		WHERE lead_id = $1
		ORDER BY created_at ASC, id ASC`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list lead events: %w", err)
	}
	defer rows.Close()

	events := make([]LeadEvent, 0)
	for rows.Next() {
		var e LeadEvent
		var raw []byte
		if err := rows.Scan(&e.ID, &e.LeadID, &e.ActorID, &e.Type, &raw, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lead event: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode lead event metadata: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lead events: %w", err)
	}
	return events, nil
}
