package models

// SubmissionRequest is the raw enrollment form payload as posted by the
// client. Everything is unvalidated and unsanitized at this point.
type SubmissionRequest struct {
	Token         string                `json:"token"`
	CourseID      string                `json:"course_id"`
	DateID        string                `json:"date_id"`
	BuyerName     string                `json:"buyer_name"`
	BuyerEmail    string                `json:"buyer_email"`
	BuyerPhone    string                `json:"buyer_phone"`
	Company       string                `json:"company"`
	StreetAddress string                `json:"street_address"`
	PostalCode    string                `json:"postal_code"`
	City          string                `json:"city"`
	Comments      string                `json:"comments"`
	Participants  []ParticipantRequest  `json:"participants"`
}

type ParticipantRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Birthdate string `json:"birthdate"` // YYYY-MM-DD from the form
}

// SubmissionResponse is returned from the submission endpoint. For free
// enrollments EnrollmentID is set; for priced ones CheckoutURL carries
// the redirect target and nothing has been persisted yet.
type SubmissionResponse struct {
	Message      string `json:"message"`
	EnrollmentID string `json:"enrollment_id,omitempty"`
	CheckoutURL  string `json:"checkout_url,omitempty"`
	TotalPrice   int64  `json:"total_price"`
}
