// Package course implements the course catalog: listing with filters,
// course and date administration, and the runtime taxonomy registry.
package course

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"course-manager/internal/course/db"
	"course-manager/internal/models"

	"github.com/google/uuid"
)

type CatalogDB interface {
	ListCourses(ctx context.Context, opts db.ListOptions) ([]models.Course, error)
	GetCourseByID(ctx context.Context, courseID string) (*models.Course, error)
	CreateCourse(ctx context.Context, course *models.Course) error
	UpdateCourse(ctx context.Context, course *models.Course) error
	DeleteCourse(ctx context.Context, courseID string) error
	ListCourseDates(ctx context.Context, courseID string) ([]models.CourseDate, error)
	CreateCourseDate(ctx context.Context, date *models.CourseDate) error
	UpdateCourseDate(ctx context.Context, date *models.CourseDate) error
	DeleteCourseDate(ctx context.Context, dateID string) error
	ListTaxonomies(ctx context.Context) ([]models.Taxonomy, error)
	UpsertTaxonomy(ctx context.Context, taxonomy *models.Taxonomy) error
	DeleteTaxonomy(ctx context.Context, slug string) error
	SetTerms(ctx context.Context, courseID, dateID, taxonomy string, terms []string) error
	GetTerms(ctx context.Context, courseID, dateID string) (map[string][]string, error)
}

// AvailabilityCounter reports how many participants are already enrolled
// for a course date.
type AvailabilityCounter interface {
	CountParticipants(ctx context.Context, courseID, dateID string) (int, error)
}

type Service struct {
	DB      CatalogDB
	Counts  AvailabilityCounter
	PerPage int
}

func NewService(catalog CatalogDB, counts AvailabilityCounter, perPage int) *Service {
	return &Service{DB: catalog, Counts: counts, PerPage: perPage}
}

var (
	timeOfDayRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
	slugRe      = regexp.MustCompile(`[^a-z0-9_]+`)
)

// ListCourses returns one page of the catalog. terms maps taxonomy slug
// to a selected term; empty selections are ignored.
func (s *Service) ListCourses(ctx context.Context, search string, terms map[string]string, page int) ([]models.Course, error) {
	return s.DB.ListCourses(ctx, db.ListOptions{
		Search:  strings.TrimSpace(search),
		Terms:   terms,
		Page:    page,
		PerPage: s.PerPage,
	})
}

// GetCourseDetail returns a course with its dates, availability and
// course-level terms.
func (s *Service) GetCourseDetail(ctx context.Context, courseID string) (*models.CourseWithDates, error) {
	course, err := s.DB.GetCourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	dates, err := s.DB.ListCourseDates(ctx, courseID)
	if err != nil {
		return nil, err
	}
	terms, err := s.DB.GetTerms(ctx, courseID, "")
	if err != nil {
		return nil, err
	}

	infos := make([]models.CourseDateInfo, len(dates))
	for i, date := range dates {
		count, err := s.Counts.CountParticipants(ctx, courseID, date.DateID)
		if err != nil {
			return nil, err
		}
		info := models.CourseDateInfo{
			CourseDate:       date,
			Display:          FormatDateDisplay(date),
			ParticipantCount: count,
			Available:        date.MaxParticipants == nil || count < *date.MaxParticipants,
		}
		if date.MaxParticipants != nil {
			remaining := *date.MaxParticipants - count
			if remaining < 0 {
				remaining = 0
			}
			info.Remaining = &remaining
		}
		infos[i] = info
	}

	return &models.CourseWithDates{
		Course: *course,
		Dates:  infos,
		Terms:  terms,
	}, nil
}

func (s *Service) CreateCourse(ctx context.Context, course models.Course) (*models.Course, error) {
	course.Title = strings.TrimSpace(course.Title)
	if course.Title == "" {
		return nil, fmt.Errorf("course title is required")
	}
	if course.Price < 0 {
		return nil, fmt.Errorf("price cannot be negative")
	}
	course.CourseID = uuid.NewString()
	course.CreatedAt = time.Now()
	course.UpdatedAt = course.CreatedAt
	if err := s.DB.CreateCourse(ctx, &course); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	return &course, nil
}

func (s *Service) UpdateCourse(ctx context.Context, course models.Course) error {
	existing, err := s.DB.GetCourseByID(ctx, course.CourseID)
	if err != nil {
		return err
	}
	course.Title = strings.TrimSpace(course.Title)
	if course.Title == "" {
		return fmt.Errorf("course title is required")
	}
	if course.Price < 0 {
		return fmt.Errorf("price cannot be negative")
	}
	course.CreatedAt = existing.CreatedAt
	course.UpdatedAt = time.Now()
	return s.DB.UpdateCourse(ctx, &course)
}

func (s *Service) DeleteCourse(ctx context.Context, courseID string) error {
	if _, err := s.DB.GetCourseByID(ctx, courseID); err != nil {
		return err
	}
	return s.DB.DeleteCourse(ctx, courseID)
}

// AddCourseDate validates and appends a new date to a course. The date
// gets a generated id; its position is display order only.
func (s *Service) AddCourseDate(ctx context.Context, courseID string, date models.CourseDate) (*models.CourseDate, error) {
	if _, err := s.DB.GetCourseByID(ctx, courseID); err != nil {
		return nil, err
	}
	if err := validateDate(&date); err != nil {
		return nil, err
	}
	existing, err := s.DB.ListCourseDates(ctx, courseID)
	if err != nil {
		return nil, err
	}
	date.DateID = uuid.NewString()
	date.CourseID = courseID
	date.Position = len(existing)
	if err := s.DB.CreateCourseDate(ctx, &date); err != nil {
		return nil, fmt.Errorf("create course date: %w", err)
	}
	return &date, nil
}

func (s *Service) UpdateCourseDate(ctx context.Context, date models.CourseDate) error {
	if err := validateDate(&date); err != nil {
		return err
	}
	return s.DB.UpdateCourseDate(ctx, &date)
}

func (s *Service) DeleteCourseDate(ctx context.Context, dateID string) error {
	return s.DB.DeleteCourseDate(ctx, dateID)
}

func validateDate(date *models.CourseDate) error {
	start, err := time.Parse(isoDate, date.StartDate)
	if err != nil {
		return fmt.Errorf("start date must be a valid YYYY-MM-DD date")
	}
	if date.EndDate != "" {
		end, err := time.Parse(isoDate, date.EndDate)
		if err != nil {
			return fmt.Errorf("end date must be a valid YYYY-MM-DD date")
		}
		if end.Before(start) {
			return fmt.Errorf("end date cannot be before start date")
		}
	}
	if date.StartTime != "" && !timeOfDayRe.MatchString(date.StartTime) {
		return fmt.Errorf("start time must be HH:MM")
	}
	if date.EndTime != "" && !timeOfDayRe.MatchString(date.EndTime) {
		return fmt.Errorf("end time must be HH:MM")
	}
	if date.MaxParticipants != nil && *date.MaxParticipants < 0 {
		return fmt.Errorf("participant limit cannot be negative")
	}
	return nil
}

// ---------------- TAXONOMIES ----------------

func (s *Service) ListTaxonomies(ctx context.Context) ([]models.Taxonomy, error) {
	return s.DB.ListTaxonomies(ctx)
}

// SaveTaxonomy registers or renames a classification dimension. The slug
// is normalized the same way for registration and lookup.
func (s *Service) SaveTaxonomy(ctx context.Context, slug, name string) (*models.Taxonomy, error) {
	slug = NormalizeSlug(slug)
	name = strings.TrimSpace(name)
	if slug == "" || name == "" {
		return nil, fmt.Errorf("taxonomy slug and name are required")
	}
	taxonomy := &models.Taxonomy{Slug: slug, Name: name}
	if err := s.DB.UpsertTaxonomy(ctx, taxonomy); err != nil {
		return nil, fmt.Errorf("save taxonomy: %w", err)
	}
	return taxonomy, nil
}

func (s *Service) DeleteTaxonomy(ctx context.Context, slug string) error {
	return s.DB.DeleteTaxonomy(ctx, NormalizeSlug(slug))
}

// SetCourseTerms replaces a course's terms for one taxonomy; a non-empty
// dateID sets a per-date override instead.
func (s *Service) SetCourseTerms(ctx context.Context, courseID, dateID, taxonomy string, terms []string) error {
	if _, err := s.DB.GetCourseByID(ctx, courseID); err != nil {
		return err
	}
	cleaned := make([]string, 0, len(terms))
	for _, term := range terms {
		if t := NormalizeSlug(term); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	return s.DB.SetTerms(ctx, courseID, dateID, NormalizeSlug(taxonomy), cleaned)
}

// DateTerms returns the effective terms for a course date: its own
// overrides where present, the course's terms for every other taxonomy.
func (s *Service) DateTerms(ctx context.Context, courseID, dateID string) (map[string][]string, error) {
	courseTerms, err := s.DB.GetTerms(ctx, courseID, "")
	if err != nil {
		return nil, err
	}
	overrides, err := s.DB.GetTerms(ctx, courseID, dateID)
	if err != nil {
		return nil, err
	}
	for taxonomy, terms := range overrides {
		courseTerms[taxonomy] = terms
	}
	return courseTerms, nil
}

// NormalizeSlug lowercases and strips a slug down to [a-z0-9_].
func NormalizeSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return slugRe.ReplaceAllString(s, "")
}
