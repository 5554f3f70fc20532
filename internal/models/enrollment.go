package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Enrollment struct {
	bun.BaseModel `bun:"table:enrollments"`

	EnrollmentID     string    `bun:"enrollment_id,pk" json:"enrollment_id"`
	CourseID         string    `bun:"course_id" json:"course_id"`
	DateID           string    `bun:"date_id" json:"date_id"`
	BuyerName        string    `bun:"buyer_name" json:"buyer_name"`
	BuyerEmail       string    `bun:"buyer_email" json:"buyer_email"`
	BuyerPhone       string    `bun:"buyer_phone" json:"buyer_phone,omitempty"`
	Company          string    `bun:"company" json:"company,omitempty"`
	StreetAddress    string    `bun:"street_address" json:"street_address,omitempty"`
	PostalCode       string    `bun:"postal_code" json:"postal_code,omitempty"`
	City             string    `bun:"city" json:"city,omitempty"`
	Comments         string    `bun:"comments" json:"comments,omitempty"`
	ParticipantCount int       `bun:"participant_count" json:"participant_count"`
	TotalPrice       int64     `bun:"total_price" json:"total_price"`
	OrderID          string    `bun:"order_id" json:"order_id,omitempty"` // checkout session id for paid enrollments
	CreatedAt        time.Time `bun:"created_at" json:"created_at"`
}

type Participant struct {
	bun.BaseModel `bun:"table:participants"`

	ParticipantID string `bun:"participant_id,pk" json:"participant_id"`
	EnrollmentID  string `bun:"enrollment_id" json:"enrollment_id"`
	Position      int    `bun:"position" json:"position"`
	Name          string `bun:"name" json:"name"`
	Email         string `bun:"email" json:"email"`
	Phone         string `bun:"phone" json:"phone,omitempty"`
	Birthdate     string `bun:"birthdate" json:"birthdate,omitempty"` // DD.MM.YYYY display form
}

// EnrollmentWithParticipants is the admin listing shape.
type EnrollmentWithParticipants struct {
	Enrollment   `json:"enrollment"`
	Participants []Participant `json:"participants"`
}
