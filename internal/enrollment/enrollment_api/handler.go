package enrollment_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"course-manager/internal/enrollment"
	"course-manager/internal/enrollment/db"
	"course-manager/internal/logger"
	"course-manager/internal/models"

	"github.com/go-chi/chi/v5"
)

// Visitor-facing messages. The enrollment form shows these verbatim, so
// they stay in Norwegian.
const (
	msgSecurityFailed     = "Sikkerhetskontroll feilet. Vennligst prøv igjen."
	msgInvalidDate        = "Ugyldig kursdato valgt."
	msgInvalidBuyer       = "Vennligst oppgi navn og en gyldig e-postadresse."
	msgNoParticipants     = "Du må legge til minst én deltaker."
	msgInvalidParticipant = "Vennligst oppgi navn og en gyldig e-postadresse for alle deltakere."
	msgInvalidPostalCode  = "Postnummer må bestå av fire sifre."
	msgCapacityExceeded   = "Det er ikke nok ledige plasser på valgt dato."
	msgDateBusy           = "Valgt dato er opptatt. Vennligst prøv igjen."
	msgPersistenceFailed  = "Det oppstod en feil ved registrering av deg i kurset. Vennligst prøv igjen."
)

type Handler struct {
	Service       *enrollment.Service
	WebhookSecret string
	Logger        *logger.Logger
}

func NewHandler(service *enrollment.Service, webhookSecret string) *Handler {
	return &Handler{
		Service:       service,
		WebhookSecret: webhookSecret,
		Logger:        logger.NewLogger(),
	}
}

// GetFormToken issues the single-use token the enrollment form must
// send back with its submission.
func (h *Handler) GetFormToken(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseId")
	h.Logger.Info("API", fmt.Sprintf("GetFormToken: courseId=%s", courseID))

	token, err := h.Service.IssueFormToken(r.Context(), courseID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.Logger.Warn("API", fmt.Sprintf("GetFormToken: unknown course %s", courseID))
			http.Error(w, "Course not found", http.StatusNotFound)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("GetFormToken: failed to issue token: %v", err))
		http.Error(w, "Could not issue form token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"token": token}); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetFormToken: failed to encode response: %v", err))
	}
}

// GetAvailability reports seat usage for one course date.
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseId")
	dateID := chi.URLParam(r, "dateId")
	h.Logger.Info("API", fmt.Sprintf("GetAvailability: courseId=%s dateId=%s", courseID, dateID))

	count, limit, available, err := h.Service.Availability(r.Context(), courseID, dateID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "Course date not found", http.StatusNotFound)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("GetAvailability: %v", err))
		http.Error(w, "Could not read availability", http.StatusInternalServerError)
		return
	}

	response := struct {
		ParticipantCount int  `json:"participant_count"`
		MaxParticipants  *int `json:"max_participants"`
		Available        bool `json:"available"`
	}{count, limit, available}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetAvailability: failed to encode response: %v", err))
	}
}

// SubmitEnrollment runs a form submission through the enrollment
// workflow and maps the outcome to the visitor-facing messages.
func (h *Handler) SubmitEnrollment(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("API", "SubmitEnrollment: received request")

	var req models.SubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("SubmitEnrollment: failed to decode request body: %v", err))
		http.Error(w, msgPersistenceFailed, http.StatusBadRequest)
		return
	}

	response, err := h.Service.Submit(r.Context(), req)
	if err != nil {
		status, msg := submissionError(err)
		h.Logger.Error("API", fmt.Sprintf("SubmitEnrollment: rejected with %d: %v", status, err))
		http.Error(w, msg, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.Logger.Error("API", fmt.Sprintf("SubmitEnrollment: failed to encode response: %v", err))
		return
	}
	h.Logger.Info("API", "SubmitEnrollment: submission accepted")
}

func submissionError(err error) (int, string) {
	switch {
	case errors.Is(err, enrollment.ErrSecurityCheckFailed):
		return http.StatusBadRequest, msgSecurityFailed
	case errors.Is(err, enrollment.ErrInvalidCourseDate):
		return http.StatusBadRequest, msgInvalidDate
	case errors.Is(err, enrollment.ErrInvalidBuyer):
		return http.StatusBadRequest, msgInvalidBuyer
	case errors.Is(err, enrollment.ErrNoParticipants):
		return http.StatusBadRequest, msgNoParticipants
	case errors.Is(err, enrollment.ErrInvalidParticipant):
		return http.StatusBadRequest, msgInvalidParticipant
	case errors.Is(err, enrollment.ErrInvalidPostalCode):
		return http.StatusBadRequest, msgInvalidPostalCode
	case errors.Is(err, db.ErrCapacityExceeded):
		return http.StatusConflict, msgCapacityExceeded
	case errors.Is(err, enrollment.ErrDateBusy):
		return http.StatusConflict, msgDateBusy
	default:
		return http.StatusInternalServerError, msgPersistenceFailed
	}
}

// GetEnrollment returns one enrollment with its participants.
func (h *Handler) GetEnrollment(w http.ResponseWriter, r *http.Request) {
	enrollmentID := chi.URLParam(r, "enrollmentId")
	h.Logger.Info("API", fmt.Sprintf("GetEnrollment: enrollmentId=%s", enrollmentID))

	data, err := h.Service.GetEnrollment(r.Context(), enrollmentID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetEnrollment: not found: %v", err))
		http.Error(w, "Enrollment not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetEnrollment: failed to encode response: %v", err))
	}
}

// ListEnrollments returns every enrollment for a course, participants
// included.
func (h *Handler) ListEnrollments(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseId")
	h.Logger.Info("API", fmt.Sprintf("ListEnrollments: courseId=%s", courseID))

	list, err := h.Service.ListEnrollments(r.Context(), courseID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListEnrollments: %v", err))
		http.Error(w, "Could not list enrollments", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(list); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListEnrollments: failed to encode response: %v", err))
	}
}

// StripeWebhook handles webhook events from Stripe.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("API", "StripeWebhook: received webhook event")

	err := h.Service.HandleStripeWebhook(r, h.WebhookSecret)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("StripeWebhook: failed to process webhook: %v", err))

		var webhookErr *enrollment.WebhookError
		if errors.As(err, &webhookErr) {
			http.Error(w, webhookErr.PublicError, webhookErr.StatusCode)
			return
		}

		http.Error(w, "Webhook processing error", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
	h.Logger.Info("API", "StripeWebhook: successfully processed webhook event")
}
