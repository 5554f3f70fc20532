package enrollment

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"course-manager/internal/models"
)

var (
	ErrSecurityCheckFailed = errors.New("security check failed")
	ErrInvalidCourseDate   = errors.New("invalid course date")
	ErrInvalidBuyer        = errors.New("buyer name or email is missing or invalid")
	ErrNoParticipants      = errors.New("at least one participant is required")
	ErrInvalidParticipant  = errors.New("participant name or email is missing or invalid")
	ErrInvalidPostalCode   = errors.New("postal code must be four digits")
	ErrPersistenceFailed   = errors.New("failed to persist enrollment")
)

var (
	postalCodeRe = regexp.MustCompile(`^[0-9]{4}$`)
	tagRe        = regexp.MustCompile(`<[^>]*>`)
)

// CheckedSubmission is a validated, sanitized submission with its frozen
// total price, ready to be persisted or serialized into payment metadata.
type CheckedSubmission struct {
	CourseID      string               `json:"course_id"`
	DateID        string               `json:"date_id"`
	BuyerName     string               `json:"buyer_name"`
	BuyerEmail    string               `json:"buyer_email"`
	BuyerPhone    string               `json:"buyer_phone,omitempty"`
	Company       string               `json:"company,omitempty"`
	StreetAddress string               `json:"street_address,omitempty"`
	PostalCode    string               `json:"postal_code,omitempty"`
	City          string               `json:"city,omitempty"`
	Comments      string               `json:"comments,omitempty"`
	Participants  []CheckedParticipant `json:"participants"`
	TotalPrice    int64                `json:"total_price"`
}

type CheckedParticipant struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Birthdate string `json:"birthdate,omitempty"`
}

// ValidateSubmission checks the field-level rules of a submission against
// its course date and returns the sanitized result. Checks run in a fixed
// order and the first failure wins. The security token and the capacity
// check are the caller's responsibility.
func ValidateSubmission(req models.SubmissionRequest, date *models.CourseDate, pricePerParticipant int64) (*CheckedSubmission, error) {
	if date == nil || date.DateID == "" || date.DateID != req.DateID {
		return nil, ErrInvalidCourseDate
	}

	buyerName := sanitizeText(req.BuyerName)
	buyerEmail := normalizeEmail(req.BuyerEmail)
	if buyerName == "" || buyerEmail == "" || !isValidEmail(buyerEmail) {
		return nil, ErrInvalidBuyer
	}

	if len(req.Participants) == 0 {
		return nil, ErrNoParticipants
	}

	participants := make([]CheckedParticipant, len(req.Participants))
	for i, p := range req.Participants {
		name := sanitizeText(p.Name)
		email := normalizeEmail(p.Email)
		if name == "" || email == "" || !isValidEmail(email) {
			return nil, ErrInvalidParticipant
		}
		participants[i] = CheckedParticipant{
			Name:      name,
			Email:     email,
			Phone:     sanitizeText(p.Phone),
			Birthdate: normalizeBirthdate(p.Birthdate),
		}
	}

	postalCode := sanitizeText(req.PostalCode)
	if postalCode != "" && !postalCodeRe.MatchString(postalCode) {
		return nil, ErrInvalidPostalCode
	}

	return &CheckedSubmission{
		CourseID:      date.CourseID,
		DateID:        date.DateID,
		BuyerName:     buyerName,
		BuyerEmail:    buyerEmail,
		BuyerPhone:    sanitizeText(req.BuyerPhone),
		Company:       sanitizeText(req.Company),
		StreetAddress: sanitizeText(req.StreetAddress),
		PostalCode:    postalCode,
		City:          sanitizeText(req.City),
		Comments:      sanitizeText(req.Comments),
		Participants:  participants,
		TotalPrice:    pricePerParticipant * int64(len(participants)),
	}, nil
}

// sanitizeText trims whitespace and strips markup from a free-text field.
func sanitizeText(s string) string {
	return strings.TrimSpace(tagRe.ReplaceAllString(s, ""))
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// isValidEmail does a structural check: exactly one @, a non-empty local
// part and a domain with a dot.
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && strings.Contains(parts[1], ".")
}

// normalizeBirthdate reformats an ISO date to the Norwegian display form.
// Invalid input is cleared to empty rather than rejected.
func normalizeBirthdate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return ""
	}
	return t.Format("02.01.2006")
}
