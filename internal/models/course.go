package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Course struct {
	bun.BaseModel `bun:"table:courses"`

	CourseID      string    `bun:"course_id,pk" json:"course_id"`
	Title         string    `bun:"title" json:"title"`
	Body          string    `bun:"body" json:"body"`
	Price         int64     `bun:"price" json:"price"` // NOK per participant
	CustomMessage string    `bun:"custom_message" json:"custom_message,omitempty"`
	MoreInfoURL   string    `bun:"more_info_url" json:"more_info_url,omitempty"`
	CreatedAt     time.Time `bun:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at" json:"updated_at"`
}

// CourseDate is one scheduled occurrence of a course. It carries its own
// generated DateID so enrollments stay attached to the right occurrence
// even when dates are reordered or removed.
type CourseDate struct {
	bun.BaseModel `bun:"table:course_dates"`

	DateID          string `bun:"date_id,pk" json:"date_id"`
	CourseID        string `bun:"course_id" json:"course_id"`
	Position        int    `bun:"position" json:"position"`
	StartDate       string `bun:"start_date" json:"start_date"`         // YYYY-MM-DD
	EndDate         string `bun:"end_date" json:"end_date,omitempty"`   // YYYY-MM-DD, empty = same day
	StartTime       string `bun:"start_time" json:"start_time,omitempty"` // HH:MM
	EndTime         string `bun:"end_time" json:"end_time,omitempty"`     // HH:MM
	MaxParticipants *int   `bun:"max_participants" json:"max_participants,omitempty"` // nil = unlimited
}

// Taxonomy is an admin-defined classification dimension, e.g. "Steder"
// or "Kategorier". The set is configurable at runtime.
type Taxonomy struct {
	bun.BaseModel `bun:"table:taxonomies"`

	Slug string `bun:"slug,pk" json:"slug"`
	Name string `bun:"name" json:"name"`
}

// TermAssignment attaches a taxonomy term to a course, or to a single
// course date when DateID is set. A date with no assignments for a
// taxonomy inherits the course's terms.
type TermAssignment struct {
	bun.BaseModel `bun:"table:term_assignments"`

	ID       string `bun:"id,pk" json:"id"`
	CourseID string `bun:"course_id" json:"course_id"`
	DateID   string `bun:"date_id" json:"date_id,omitempty"`
	Taxonomy string `bun:"taxonomy" json:"taxonomy"`
	Term     string `bun:"term" json:"term"`
}

// CourseWithDates bundles a course and its dates for the detail endpoint.
type CourseWithDates struct {
	Course Course           `json:"course"`
	Dates  []CourseDateInfo `json:"dates"`
	Terms  map[string][]string `json:"terms,omitempty"`
}

// CourseDateInfo is a course date enriched with display strings and
// current availability for the public API.
type CourseDateInfo struct {
	CourseDate
	Display          string `json:"display"`
	ParticipantCount int    `json:"participant_count"`
	Remaining        *int   `json:"remaining,omitempty"` // nil = unlimited
	Available        bool   `json:"available"`
}
