package enrollment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"course-manager/internal/config"
	"course-manager/internal/course"
	"course-manager/internal/enrollment/db"
	"course-manager/internal/logger"
	"course-manager/internal/models"

	"github.com/google/uuid"
)

// ErrDateBusy is returned when another submission currently holds the
// per-date lock; the submitter should simply retry.
var ErrDateBusy = errors.New("course date is busy, try again")

type DBLayer interface {
	GetCourse(ctx context.Context, courseID string) (*models.Course, error)
	GetCourseDate(ctx context.Context, dateID string) (*models.CourseDate, error)
	CountParticipants(ctx context.Context, courseID, dateID string) (int, error)
	CreateEnrollment(ctx context.Context, enrollment *models.Enrollment, participants []models.Participant) error
	GetEnrollmentByID(ctx context.Context, enrollmentID string) (*models.EnrollmentWithParticipants, error)
	ListEnrollmentsByCourse(ctx context.Context, courseID string) ([]models.EnrollmentWithParticipants, error)
}

type RedisLock interface {
	IssueFormToken(courseID string) (string, error)
	ConsumeFormToken(token, courseID string) (bool, error)
	LockDate(dateID, holderID string) (bool, error)
	UnlockDate(dateID, holderID string) error
	MarkOrderProcessed(orderID string) (bool, error)
	ClearOrderProcessed(orderID string) error
}

type KafkaPublisher interface {
	PublishEnrollmentCompleted(enrollment models.Enrollment) error
	PublishCheckoutStarted(enrollment models.Enrollment) error
}

type Mailer interface {
	Send(to, subject, body string) error
}

// CheckoutGateway hands a priced submission off to the external payment
// collaborator and returns the order id and checkout URL.
type CheckoutGateway interface {
	CreateCheckoutSession(sub *CheckedSubmission, course *models.Course) (orderID, checkoutURL string, err error)
}

type Service struct {
	DB       DBLayer
	Redis    RedisLock
	Kafka    KafkaPublisher
	Mail     Mailer
	Checkout CheckoutGateway
	Email    config.EmailConfig
	logger   *logger.Logger
}

func NewService(dbLayer DBLayer, redis RedisLock, kafka KafkaPublisher, mail Mailer, checkout CheckoutGateway, email config.EmailConfig, log *logger.Logger) *Service {
	return &Service{
		DB:       dbLayer,
		Redis:    redis,
		Kafka:    kafka,
		Mail:     mail,
		Checkout: checkout,
		Email:    email,
		logger:   log,
	}
}

// IssueFormToken hands out a single-use token bound to a course. The
// token must accompany the submission that follows.
func (s *Service) IssueFormToken(ctx context.Context, courseID string) (string, error) {
	if _, err := s.DB.GetCourse(ctx, courseID); err != nil {
		return "", err
	}
	return s.Redis.IssueFormToken(courseID)
}

// Availability reports the current participant count, the limit (nil =
// unlimited) and whether the date can still take enrollments.
func (s *Service) Availability(ctx context.Context, courseID, dateID string) (int, *int, bool, error) {
	date, err := s.DB.GetCourseDate(ctx, dateID)
	if err != nil {
		return 0, nil, false, err
	}
	if date.CourseID != courseID {
		return 0, nil, false, db.ErrNotFound
	}
	count, err := s.DB.CountParticipants(ctx, courseID, dateID)
	if err != nil {
		return 0, nil, false, err
	}
	limit := date.MaxParticipants
	available := limit == nil || count < *limit
	return count, limit, available, nil
}

// Submit runs a raw form submission through the whole workflow: security
// token, field validation, capacity check, then the free or paid path.
func (s *Service) Submit(ctx context.Context, req models.SubmissionRequest) (*models.SubmissionResponse, error) {
	ok, err := s.Redis.ConsumeFormToken(req.Token, req.CourseID)
	if err != nil {
		return nil, fmt.Errorf("token check: %w", err)
	}
	if !ok {
		return nil, ErrSecurityCheckFailed
	}

	crs, err := s.DB.GetCourse(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidCourseDate
		}
		return nil, err
	}

	date, err := s.DB.GetCourseDate(ctx, req.DateID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidCourseDate
		}
		return nil, err
	}
	if date.CourseID != crs.CourseID {
		return nil, ErrInvalidCourseDate
	}

	checked, err := ValidateSubmission(req, date, crs.Price)
	if err != nil {
		return nil, err
	}

	holder := uuid.NewString()
	locked, err := s.Redis.LockDate(date.DateID, holder)
	if err != nil {
		return nil, fmt.Errorf("date lock: %w", err)
	}
	if !locked {
		return nil, ErrDateBusy
	}
	defer func() {
		if err := s.Redis.UnlockDate(date.DateID, holder); err != nil {
			s.logger.Error("REDIS", fmt.Sprintf("Failed to unlock date %s: %v", date.DateID, err))
		}
	}()

	if date.MaxParticipants != nil {
		count, err := s.DB.CountParticipants(ctx, crs.CourseID, date.DateID)
		if err != nil {
			return nil, err
		}
		if count+len(checked.Participants) > *date.MaxParticipants {
			return nil, db.ErrCapacityExceeded
		}
	}

	if checked.TotalPrice == 0 {
		enrollmentID, err := s.Complete(ctx, checked, "")
		if err != nil {
			return nil, err
		}
		return &models.SubmissionResponse{
			Message:      "Du har meldt deg på kurset!",
			EnrollmentID: enrollmentID,
			TotalPrice:   0,
		}, nil
	}

	orderID, checkoutURL, err := s.Checkout.CreateCheckoutSession(checked, crs)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	s.logger.LogEnrollment("CHECKOUT", orderID, fmt.Sprintf("Redirecting to checkout for course %s (%d kr)", crs.CourseID, checked.TotalPrice))

	if s.Kafka != nil {
		if err := s.Kafka.PublishCheckoutStarted(models.Enrollment{
			CourseID:         checked.CourseID,
			DateID:           checked.DateID,
			BuyerEmail:       checked.BuyerEmail,
			ParticipantCount: len(checked.Participants),
			TotalPrice:       checked.TotalPrice,
			OrderID:          orderID,
		}); err != nil {
			s.logger.Error("KAFKA", fmt.Sprintf("Publish error (checkout started): %v", err))
		}
	}

	return &models.SubmissionResponse{
		Message:     "Du sendes videre til betaling.",
		CheckoutURL: checkoutURL,
		TotalPrice:  checked.TotalPrice,
	}, nil
}

// Complete persists a validated submission and sends the confirmation
// mails. Persistence must succeed before any mail goes out; mail failures
// are logged and never roll the enrollment back.
func (s *Service) Complete(ctx context.Context, sub *CheckedSubmission, orderID string) (string, error) {
	enrollment := &models.Enrollment{
		EnrollmentID:     uuid.NewString(),
		CourseID:         sub.CourseID,
		DateID:           sub.DateID,
		BuyerName:        sub.BuyerName,
		BuyerEmail:       sub.BuyerEmail,
		BuyerPhone:       sub.BuyerPhone,
		Company:          sub.Company,
		StreetAddress:    sub.StreetAddress,
		PostalCode:       sub.PostalCode,
		City:             sub.City,
		Comments:         sub.Comments,
		ParticipantCount: len(sub.Participants),
		TotalPrice:       sub.TotalPrice,
		OrderID:          orderID,
		CreatedAt:        time.Now(),
	}
	participants := make([]models.Participant, len(sub.Participants))
	for i, p := range sub.Participants {
		participants[i] = models.Participant{
			ParticipantID: uuid.NewString(),
			Name:          p.Name,
			Email:         p.Email,
			Phone:         p.Phone,
			Birthdate:     p.Birthdate,
		}
	}

	if err := s.DB.CreateEnrollment(ctx, enrollment, participants); err != nil {
		if errors.Is(err, db.ErrCapacityExceeded) {
			return "", err
		}
		s.logger.Error("DATABASE", fmt.Sprintf("Failed to create enrollment: %v", err))
		return "", fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	s.logger.LogEnrollment("CREATED", enrollment.EnrollmentID, fmt.Sprintf("%d participants for course %s", enrollment.ParticipantCount, enrollment.CourseID))

	if s.Kafka != nil {
		if err := s.Kafka.PublishEnrollmentCompleted(*enrollment); err != nil {
			s.logger.Error("KAFKA", fmt.Sprintf("Publish error (enrollment completed): %v", err))
		}
	}

	s.sendConfirmations(ctx, enrollment, sub)
	return enrollment.EnrollmentID, nil
}

func (s *Service) sendConfirmations(ctx context.Context, enrollment *models.Enrollment, sub *CheckedSubmission) {
	if !s.Email.Enabled {
		return
	}

	crs, err := s.DB.GetCourse(ctx, sub.CourseID)
	if err != nil {
		s.logger.Error("MAIL", fmt.Sprintf("Failed to load course for confirmation mail: %v", err))
		return
	}
	date, err := s.DB.GetCourseDate(ctx, sub.DateID)
	if err != nil {
		s.logger.Error("MAIL", fmt.Sprintf("Failed to load course date for confirmation mail: %v", err))
		return
	}

	names := make([]string, len(sub.Participants))
	for i, p := range sub.Participants {
		names[i] = p.Name
	}
	values := map[string]string{
		"buyer_name":        sub.BuyerName,
		"buyer_email":       sub.BuyerEmail,
		"course_title":      crs.Title,
		"course_date":       course.FormatDateDisplay(*date),
		"participants":      ParticipantList(names),
		"participant_count": strconv.Itoa(len(names)),
		"total_price":       strconv.FormatInt(sub.TotalPrice, 10),
	}

	buyerTemplate := crs.CustomMessage
	if buyerTemplate == "" {
		buyerTemplate = s.Email.BuyerDefault
	}
	if err := s.Mail.Send(sub.BuyerEmail, s.Email.BuyerSubject, RenderTemplate(buyerTemplate, values)); err != nil {
		s.logger.Error("MAIL", fmt.Sprintf("Buyer confirmation failed for enrollment %s: %v", enrollment.EnrollmentID, err))
	}

	if s.Email.AdminAddress != "" && isValidEmail(normalizeEmail(s.Email.AdminAddress)) {
		if err := s.Mail.Send(s.Email.AdminAddress, s.Email.AdminSubject, RenderTemplate(s.Email.AdminDefault, values)); err != nil {
			s.logger.Error("MAIL", fmt.Sprintf("Admin notification failed for enrollment %s: %v", enrollment.EnrollmentID, err))
		}
	}
}

// GetEnrollment returns one enrollment with participants.
func (s *Service) GetEnrollment(ctx context.Context, enrollmentID string) (*models.EnrollmentWithParticipants, error) {
	return s.DB.GetEnrollmentByID(ctx, enrollmentID)
}

// ListEnrollments returns all enrollments for a course.
func (s *Service) ListEnrollments(ctx context.Context, courseID string) ([]models.EnrollmentWithParticipants, error) {
	return s.DB.ListEnrollmentsByCourse(ctx, courseID)
}
