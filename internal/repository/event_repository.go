package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ksrnb/reunion-ticketing/internal/model"
)

// The event row always lives at id 1; the table never holds a
// second row.
const eventRowID = 1

// EventRepo provides persistence for the singleton event record.
type EventRepo struct{ DB *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{DB: db} }

// Get returns the configured event or ErrEventNotConfigured when
// no admin has created it yet.
func (r *EventRepo) Get(ctx context.Context) (*model.Event, error) {
	var e model.Event
	var date sql.NullTime
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, title, description, date, venue, price, banner_url, version, created_at, updated_at FROM events WHERE id=?",
		eventRowID).Scan(&e.ID, &e.Title, &e.Description, &date, &e.Venue, &e.Price, &e.BannerURL, &e.Version, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotConfigured
	}
	if err != nil {
		return nil, err
	}
	if date.Valid {
		e.Date = date.Time
	}
	return &e, nil
}

// Upsert applies the explicit configuration contract: create the
// row if absent, otherwise merge the supplied non-zero fields into
// the existing record and bump its version. The merged result is
// written back into in.
func (r *EventRepo) Upsert(ctx context.Context, in *model.Event) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var cur model.Event
	var date sql.NullTime
	err = tx.QueryRowContext(ctx,
		"SELECT title, description, date, venue, price, banner_url, version FROM events WHERE id=? FOR UPDATE",
		eventRowID).Scan(&cur.Title, &cur.Description, &date, &cur.Venue, &cur.Price, &cur.BannerURL, &cur.Version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			"INSERT INTO events (id, title, description, date, venue, price, banner_url, version) VALUES (?,?,?,?,?,?,?,1)",
			eventRowID, in.Title, in.Description, nullableTime(in.Date), in.Venue, in.Price, in.BannerURL)
		if err != nil {
			return err
		}
		in.ID = eventRowID
		in.Version = 1
	case err != nil:
		return err
	default:
		if date.Valid {
			cur.Date = date.Time
		}
		merged := mergeEvent(cur, *in)
		merged.Version = cur.Version + 1
		_, err = tx.ExecContext(ctx,
			"UPDATE events SET title=?, description=?, date=?, venue=?, price=?, banner_url=?, version=? WHERE id=?",
			merged.Title, merged.Description, nullableTime(merged.Date), merged.Venue, merged.Price, merged.BannerURL, merged.Version, eventRowID)
		if err != nil {
			return err
		}
		merged.ID = eventRowID
		*in = merged
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// mergeEvent overlays the non-zero fields of in onto cur. A zero
// price is treated as "unchanged" so a partial admin edit cannot
// accidentally make the event free.
func mergeEvent(cur, in model.Event) model.Event {
	out := cur
	if in.Title != "" {
		out.Title = in.Title
	}
	if in.Description != "" {
		out.Description = in.Description
	}
	if !in.Date.IsZero() {
		out.Date = in.Date
	}
	if in.Venue != "" {
		out.Venue = in.Venue
	}
	if in.Price != 0 {
		out.Price = in.Price
	}
	if in.BannerURL != "" {
		out.BannerURL = in.BannerURL
	}
	return out
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
