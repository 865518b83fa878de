package model

import "time"

// Event is the single configurable event record stored in the
// `events` table. Exactly one row (id = 1) is ever read; the
// admin upsert creates it if absent and otherwise merges the
// supplied fields in place, bumping Version on every write.
//
// Fields:
//  ID          – always 1; the table holds at most one row.
//  Title       – event title shown on tickets and emails.
//  Description – free-text description for the landing page.
//  Date        – event date and start time (UTC).
//  Venue       – venue name/address printed on tickets.
//  Price       – unit ticket price in LKR; amount = Price × tickets.
//  BannerURL   – optional banner image for the frontend.
//  Version     – incremented on every upsert; configuration version.
//  CreatedAt   – timestamp of creation.
//  UpdatedAt   – timestamp of last update.
type Event struct {
	ID          uint64    // events.id
	Title       string    // events.title
	Description string    // events.description
	Date        time.Time // events.date
	Venue       string    // events.venue
	Price       int64     // events.price
	BannerURL   string    // events.banner_url
	Version     uint64    // events.version
	CreatedAt   time.Time // events.created_at
	UpdatedAt   time.Time // events.updated_at
}
