package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"course-manager/internal/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var ErrNotFound = errors.New("not found")

type DB struct {
	Bun *bun.DB
}

// ListOptions narrows the course listing: a free-text search term, one
// selected term per taxonomy (ANDed together) and pagination.
type ListOptions struct {
	Search  string
	Terms   map[string]string
	Page    int
	PerPage int
}

// ListCourses returns one page of courses matching the filters, newest
// first.
func (d *DB) ListCourses(ctx context.Context, opts ListOptions) ([]models.Course, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PerPage < 1 {
		opts.PerPage = 10
	}

	q := d.Bun.NewSelect().Model((*models.Course)(nil))
	if opts.Search != "" {
		q = q.Where("lower(title) LIKE ?", "%"+strings.ToLower(opts.Search)+"%")
	}
	for taxonomy, term := range opts.Terms {
		if term == "" {
			continue
		}
		q = q.Where("EXISTS (SELECT 1 FROM term_assignments ta WHERE ta.course_id = course.course_id AND ta.date_id = '' AND ta.taxonomy = ? AND ta.term = ?)",
			taxonomy, term)
	}

	var courses []models.Course
	err := q.Order("created_at DESC").
		Limit(opts.PerPage).
		Offset((opts.Page - 1) * opts.PerPage).
		Scan(ctx, &courses)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, nil
}

func (d *DB) GetCourseByID(ctx context.Context, courseID string) (*models.Course, error) {
	var course models.Course
	err := d.Bun.NewSelect().
		Model(&course).
		Where("course_id = ?", courseID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &course, nil
}

func (d *DB) CreateCourse(ctx context.Context, course *models.Course) error {
	_, err := d.Bun.NewInsert().Model(course).Exec(ctx)
	return err
}

func (d *DB) UpdateCourse(ctx context.Context, course *models.Course) error {
	_, err := d.Bun.NewUpdate().
		Model(course).
		Column("title", "body", "price", "custom_message", "more_info_url", "updated_at").
		Where("course_id = ?", course.CourseID).
		Exec(ctx)
	return err
}

func (d *DB) DeleteCourse(ctx context.Context, courseID string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Course)(nil)).
		Where("course_id = ?", courseID).
		Exec(ctx)
	return err
}

// ---------------- COURSE DATES ----------------

func (d *DB) ListCourseDates(ctx context.Context, courseID string) ([]models.CourseDate, error) {
	var dates []models.CourseDate
	err := d.Bun.NewSelect().
		Model(&dates).
		Where("course_id = ?", courseID).
		Order("position").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if dates == nil {
		dates = []models.CourseDate{}
	}
	return dates, nil
}

func (d *DB) CreateCourseDate(ctx context.Context, date *models.CourseDate) error {
	_, err := d.Bun.NewInsert().Model(date).Exec(ctx)
	return err
}

func (d *DB) UpdateCourseDate(ctx context.Context, date *models.CourseDate) error {
	_, err := d.Bun.NewUpdate().
		Model(date).
		Column("position", "start_date", "end_date", "start_time", "end_time", "max_participants").
		Where("date_id = ?", date.DateID).
		Exec(ctx)
	return err
}

func (d *DB) DeleteCourseDate(ctx context.Context, dateID string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.CourseDate)(nil)).
		Where("date_id = ?", dateID).
		Exec(ctx)
	return err
}

// ---------------- TAXONOMIES ----------------

func (d *DB) ListTaxonomies(ctx context.Context) ([]models.Taxonomy, error) {
	var taxonomies []models.Taxonomy
	err := d.Bun.NewSelect().
		Model(&taxonomies).
		Order("slug").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if taxonomies == nil {
		taxonomies = []models.Taxonomy{}
	}
	return taxonomies, nil
}

func (d *DB) UpsertTaxonomy(ctx context.Context, taxonomy *models.Taxonomy) error {
	_, err := d.Bun.NewInsert().
		Model(taxonomy).
		On("CONFLICT (slug) DO UPDATE").
		Set("name = EXCLUDED.name").
		Exec(ctx)
	return err
}

func (d *DB) DeleteTaxonomy(ctx context.Context, slug string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.TermAssignment)(nil)).
			Where("taxonomy = ?", slug).
			Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().
			Model((*models.Taxonomy)(nil)).
			Where("slug = ?", slug).
			Exec(ctx)
		return err
	})
}

// SetTerms replaces the term assignments of one taxonomy for a course or,
// when dateID is non-empty, for a single course date override.
func (d *DB) SetTerms(ctx context.Context, courseID, dateID, taxonomy string, terms []string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.TermAssignment)(nil)).
			Where("course_id = ?", courseID).
			Where("date_id = ?", dateID).
			Where("taxonomy = ?", taxonomy).
			Exec(ctx); err != nil {
			return err
		}
		if len(terms) == 0 {
			return nil
		}
		assignments := make([]models.TermAssignment, len(terms))
		for i, term := range terms {
			assignments[i] = models.TermAssignment{
				ID:       uuid.NewString(),
				CourseID: courseID,
				DateID:   dateID,
				Taxonomy: taxonomy,
				Term:     term,
			}
		}
		_, err := tx.NewInsert().Model(&assignments).Exec(ctx)
		return err
	})
}

// GetTerms returns the term assignments grouped by taxonomy. An empty
// dateID selects the course-level terms.
func (d *DB) GetTerms(ctx context.Context, courseID, dateID string) (map[string][]string, error) {
	var assignments []models.TermAssignment
	err := d.Bun.NewSelect().
		Model(&assignments).
		Where("course_id = ?", courseID).
		Where("date_id = ?", dateID).
		Order("taxonomy", "term").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	terms := make(map[string][]string)
	for _, a := range assignments {
		terms[a.Taxonomy] = append(terms[a.Taxonomy], a.Term)
	}
	return terms, nil
}
