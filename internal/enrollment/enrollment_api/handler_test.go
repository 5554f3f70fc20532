package enrollment_api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"course-manager/internal/config"
	"course-manager/internal/enrollment"
	"course-manager/internal/enrollment/db"
	"course-manager/internal/logger"
	"course-manager/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// MockDB is a map-backed stand-in for the enrollment database layer.
type MockDB struct {
	courses     map[string]*models.Course
	dates       map[string]*models.CourseDate
	counts      map[string]int
	enrollments map[string]*models.EnrollmentWithParticipants
	failOn      string
	errToReturn error
}

func NewMockDB() *MockDB {
	limit := 10
	m := &MockDB{
		courses:     make(map[string]*models.Course),
		dates:       make(map[string]*models.CourseDate),
		counts:      make(map[string]int),
		enrollments: make(map[string]*models.EnrollmentWithParticipants),
	}
	m.courses["course-1"] = &models.Course{CourseID: "course-1", Title: "Båtførerkurs", Price: 500}
	m.dates["date-1"] = &models.CourseDate{DateID: "date-1", CourseID: "course-1", StartDate: "2026-09-14", MaxParticipants: &limit}
	return m
}

func (m *MockDB) GetCourse(ctx context.Context, courseID string) (*models.Course, error) {
	if m.failOn == "GetCourse" {
		return nil, m.errToReturn
	}
	course, ok := m.courses[courseID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return course, nil
}

func (m *MockDB) GetCourseDate(ctx context.Context, dateID string) (*models.CourseDate, error) {
	date, ok := m.dates[dateID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return date, nil
}

func (m *MockDB) CountParticipants(ctx context.Context, courseID, dateID string) (int, error) {
	return m.counts[courseID+"/"+dateID], nil
}

func (m *MockDB) CreateEnrollment(ctx context.Context, e *models.Enrollment, participants []models.Participant) error {
	if m.failOn == "CreateEnrollment" {
		return m.errToReturn
	}
	date := m.dates[e.DateID]
	if date.MaxParticipants != nil && m.counts[e.CourseID+"/"+e.DateID]+len(participants) > *date.MaxParticipants {
		return db.ErrCapacityExceeded
	}
	m.counts[e.CourseID+"/"+e.DateID] += len(participants)
	m.enrollments[e.EnrollmentID] = &models.EnrollmentWithParticipants{Enrollment: *e, Participants: participants}
	return nil
}

func (m *MockDB) GetEnrollmentByID(ctx context.Context, enrollmentID string) (*models.EnrollmentWithParticipants, error) {
	e, ok := m.enrollments[enrollmentID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return e, nil
}

func (m *MockDB) ListEnrollmentsByCourse(ctx context.Context, courseID string) ([]models.EnrollmentWithParticipants, error) {
	if m.failOn == "ListEnrollmentsByCourse" {
		return nil, m.errToReturn
	}
	var list []models.EnrollmentWithParticipants
	for _, e := range m.enrollments {
		if e.CourseID == courseID {
			list = append(list, *e)
		}
	}
	return list, nil
}

// MockRedis tracks issued tokens and date locks in memory.
type MockRedis struct {
	tokens map[string]string
	locks  map[string]string
	next   int
	failOn string
}

func NewMockRedis() *MockRedis {
	return &MockRedis{tokens: make(map[string]string), locks: make(map[string]string)}
}

func (m *MockRedis) IssueFormToken(courseID string) (string, error) {
	if m.failOn == "IssueFormToken" {
		return "", fmt.Errorf("redis unavailable")
	}
	m.next++
	token := fmt.Sprintf("token-%d", m.next)
	m.tokens[token] = courseID
	return token, nil
}

func (m *MockRedis) ConsumeFormToken(token, courseID string) (bool, error) {
	bound, ok := m.tokens[token]
	if !ok || bound != courseID {
		return false, nil
	}
	delete(m.tokens, token)
	return true, nil
}

func (m *MockRedis) LockDate(dateID, holderID string) (bool, error) {
	if _, held := m.locks[dateID]; held {
		return false, nil
	}
	m.locks[dateID] = holderID
	return true, nil
}

func (m *MockRedis) UnlockDate(dateID, holderID string) error {
	if m.locks[dateID] == holderID {
		delete(m.locks, dateID)
	}
	return nil
}

func (m *MockRedis) MarkOrderProcessed(orderID string) (bool, error) {
	return true, nil
}

func (m *MockRedis) ClearOrderProcessed(orderID string) error {
	return nil
}

type MockMailer struct{}

func (m *MockMailer) Send(to, subject, body string) error { return nil }

type MockCheckout struct{}

func (m *MockCheckout) CreateCheckoutSession(sub *enrollment.CheckedSubmission, course *models.Course) (string, string, error) {
	return "cs_test_1", "https://checkout.stripe.test/cs_test_1", nil
}

func setupRouter(mockDB *MockDB, mockRedis *MockRedis) *chi.Mux {
	service := enrollment.NewService(mockDB, mockRedis, nil, &MockMailer{}, &MockCheckout{}, config.EmailConfig{}, logger.NewLogger())
	handler := NewHandler(service, "whsec_test")

	r := chi.NewRouter()
	r.Get("/api/courses/{courseId}/enroll-token", handler.GetFormToken)
	r.Get("/api/courses/{courseId}/dates/{dateId}/availability", handler.GetAvailability)
	r.Post("/api/enrollments", handler.SubmitEnrollment)
	r.Get("/api/admin/enrollments/{enrollmentId}", handler.GetEnrollment)
	r.Get("/api/admin/courses/{courseId}/enrollments", handler.ListEnrollments)
	return r
}

func submitBody(t *testing.T, token string) *bytes.Buffer {
	t.Helper()
	req := models.SubmissionRequest{
		Token:      token,
		CourseID:   "course-1",
		DateID:     "date-1",
		BuyerName:  "Kari Nordmann",
		BuyerEmail: "kari@example.com",
		PostalCode: "0150",
		Participants: []models.ParticipantRequest{
			{Name: "Kari Nordmann", Email: "kari@example.com"},
		},
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	return bytes.NewBuffer(body)
}

func TestGetFormToken(t *testing.T) {
	router := setupRouter(NewMockDB(), NewMockRedis())

	req := httptest.NewRequest("GET", "/api/courses/course-1/enroll-token", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "token-1", response["token"])
}

func TestGetFormToken_UnknownCourse(t *testing.T) {
	router := setupRouter(NewMockDB(), NewMockRedis())

	req := httptest.NewRequest("GET", "/api/courses/missing/enroll-token", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetAvailability(t *testing.T) {
	mockDB := NewMockDB()
	mockDB.counts["course-1/date-1"] = 4
	router := setupRouter(mockDB, NewMockRedis())

	req := httptest.NewRequest("GET", "/api/courses/course-1/dates/date-1/availability", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response struct {
		ParticipantCount int  `json:"participant_count"`
		MaxParticipants  *int `json:"max_participants"`
		Available        bool `json:"available"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, 4, response.ParticipantCount)
	assert.NotNil(t, response.MaxParticipants)
	assert.Equal(t, 10, *response.MaxParticipants)
	assert.True(t, response.Available)
}

func TestGetAvailability_UnknownDate(t *testing.T) {
	router := setupRouter(NewMockDB(), NewMockRedis())

	req := httptest.NewRequest("GET", "/api/courses/course-1/dates/missing/availability", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitEnrollment_PaidCourse(t *testing.T) {
	mockRedis := NewMockRedis()
	router := setupRouter(NewMockDB(), mockRedis)

	token, _ := mockRedis.IssueFormToken("course-1")

	req := httptest.NewRequest("POST", "/api/enrollments", submitBody(t, token))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var response models.SubmissionResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "Du sendes videre til betaling.", response.Message)
	assert.Equal(t, "https://checkout.stripe.test/cs_test_1", response.CheckoutURL)
	assert.Equal(t, int64(500), response.TotalPrice)
}

func TestSubmitEnrollment_BadToken(t *testing.T) {
	router := setupRouter(NewMockDB(), NewMockRedis())

	req := httptest.NewRequest("POST", "/api/enrollments", submitBody(t, "stale-token"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Sikkerhetskontroll feilet")
}

func TestSubmitEnrollment_InvalidBody(t *testing.T) {
	router := setupRouter(NewMockDB(), NewMockRedis())

	req := httptest.NewRequest("POST", "/api/enrollments", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitEnrollment_MissingParticipants(t *testing.T) {
	mockRedis := NewMockRedis()
	router := setupRouter(NewMockDB(), mockRedis)

	token, _ := mockRedis.IssueFormToken("course-1")
	body, _ := json.Marshal(models.SubmissionRequest{
		Token:      token,
		CourseID:   "course-1",
		DateID:     "date-1",
		BuyerName:  "Kari Nordmann",
		BuyerEmail: "kari@example.com",
	})

	req := httptest.NewRequest("POST", "/api/enrollments", bytes.NewBuffer(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "minst én deltaker")
}

func TestSubmitEnrollment_CapacityExceeded(t *testing.T) {
	mockDB := NewMockDB()
	mockDB.counts["course-1/date-1"] = 10
	mockRedis := NewMockRedis()
	router := setupRouter(mockDB, mockRedis)

	token, _ := mockRedis.IssueFormToken("course-1")

	req := httptest.NewRequest("POST", "/api/enrollments", submitBody(t, token))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "ikke nok ledige plasser")
}

func TestSubmitEnrollment_DateBusy(t *testing.T) {
	mockRedis := NewMockRedis()
	mockRedis.locks["date-1"] = "someone-else"
	router := setupRouter(NewMockDB(), mockRedis)

	token, _ := mockRedis.IssueFormToken("course-1")

	req := httptest.NewRequest("POST", "/api/enrollments", submitBody(t, token))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "opptatt")
}

func TestGetEnrollment(t *testing.T) {
	mockDB := NewMockDB()
	mockDB.enrollments["enr-1"] = &models.EnrollmentWithParticipants{
		Enrollment:   models.Enrollment{EnrollmentID: "enr-1", CourseID: "course-1", DateID: "date-1", BuyerName: "Kari Nordmann"},
		Participants: []models.Participant{{ParticipantID: "p-1", Name: "Kari Nordmann"}},
	}
	router := setupRouter(mockDB, NewMockRedis())

	req := httptest.NewRequest("GET", "/api/admin/enrollments/enr-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response models.EnrollmentWithParticipants
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "enr-1", response.EnrollmentID)
	assert.Len(t, response.Participants, 1)
}

func TestGetEnrollment_NotFound(t *testing.T) {
	router := setupRouter(NewMockDB(), NewMockRedis())

	req := httptest.NewRequest("GET", "/api/admin/enrollments/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListEnrollments(t *testing.T) {
	mockDB := NewMockDB()
	mockDB.enrollments["enr-1"] = &models.EnrollmentWithParticipants{
		Enrollment: models.Enrollment{EnrollmentID: "enr-1", CourseID: "course-1", DateID: "date-1"},
	}
	mockDB.enrollments["enr-2"] = &models.EnrollmentWithParticipants{
		Enrollment: models.Enrollment{EnrollmentID: "enr-2", CourseID: "other", DateID: "date-x"},
	}
	router := setupRouter(mockDB, NewMockRedis())

	req := httptest.NewRequest("GET", "/api/admin/courses/course-1/enrollments", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response []models.EnrollmentWithParticipants
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Len(t, response, 1)
	assert.Equal(t, "enr-1", response[0].EnrollmentID)
}
