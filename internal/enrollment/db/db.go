package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"course-manager/internal/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// ErrNotFound is returned when a course or course date does not exist.
var ErrNotFound = errors.New("not found")

// ErrCapacityExceeded is returned when an enrollment would push a course
// date past its participant limit.
var ErrCapacityExceeded = errors.New("course date is fully booked")

type DB struct {
	Bun *bun.DB
}

// GetCourse fetches one course by its ID.
func (d *DB) GetCourse(ctx context.Context, courseID string) (*models.Course, error) {
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

// GetCourseDate fetches one course date by its stable date ID.
func (d *DB) GetCourseDate(ctx context.Context, dateID string) (*models.CourseDate, error) {
	var date models.CourseDate
	err := d.Bun.NewSelect().
		Model(&date).
		Where("date_id = ?", dateID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &date, nil
}

// CountParticipants sums the participant counts of every enrollment for
// the given course date.
func (d *DB) CountParticipants(ctx context.Context, courseID, dateID string) (int, error) {
	var count int
	err := d.Bun.NewSelect().
		Model((*models.Enrollment)(nil)).
		ColumnExpr("COALESCE(SUM(participant_count), 0)").
		Where("course_id = ?", courseID).
		Where("date_id = ?", dateID).
		Scan(ctx, &count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CreateEnrollment persists an enrollment and its participants in one
// transaction. When the course date has a participant limit, the date row
// is locked and the current participant sum re-checked inside the same
// transaction, so two concurrent submissions cannot jointly overbook.
func (d *DB) CreateEnrollment(ctx context.Context, enrollment *models.Enrollment, participants []models.Participant) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var date models.CourseDate
		q := tx.NewSelect().
			Model(&date).
			Where("date_id = ?", enrollment.DateID).
			Where("course_id = ?", enrollment.CourseID).
			Limit(1)
		if d.Bun.Dialect().Name() == dialect.PG {
			q = q.For("UPDATE")
		}
		if err := q.Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock course date: %w", err)
		}

		if date.MaxParticipants != nil {
			var count int
			err := tx.NewSelect().
				Model((*models.Enrollment)(nil)).
				ColumnExpr("COALESCE(SUM(participant_count), 0)").
				Where("course_id = ?", enrollment.CourseID).
				Where("date_id = ?", enrollment.DateID).
				Scan(ctx, &count)
			if err != nil {
				return fmt.Errorf("count participants: %w", err)
			}
			if count+enrollment.ParticipantCount > *date.MaxParticipants {
				return ErrCapacityExceeded
			}
		}

		if _, err := tx.NewInsert().Model(enrollment).Exec(ctx); err != nil {
			return fmt.Errorf("insert enrollment: %w", err)
		}
		for i := range participants {
			participants[i].EnrollmentID = enrollment.EnrollmentID
			participants[i].Position = i
		}
		if _, err := tx.NewInsert().Model(&participants).Exec(ctx); err != nil {
			return fmt.Errorf("insert participants: %w", err)
		}
		return nil
	})
}

// GetEnrollmentByID fetches one enrollment with its participants.
func (d *DB) GetEnrollmentByID(ctx context.Context, enrollmentID string) (*models.EnrollmentWithParticipants, error) {
	var enrollment models.Enrollment
	err := d.Bun.NewSelect().
		Model(&enrollment).
		Where("enrollment_id = ?", enrollmentID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var participants []models.Participant
	err = d.Bun.NewSelect().
		Model(&participants).
		Where("enrollment_id = ?", enrollmentID).
		Order("position").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &models.EnrollmentWithParticipants{
		Enrollment:   enrollment,
		Participants: participants,
	}, nil
}

// ListEnrollmentsByCourse fetches all enrollments for a course, newest
// first, each with its participants.
func (d *DB) ListEnrollmentsByCourse(ctx context.Context, courseID string) ([]models.EnrollmentWithParticipants, error) {
	var enrollments []models.Enrollment
	err := d.Bun.NewSelect().
		Model(&enrollments).
		Where("course_id = ?", courseID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if len(enrollments) == 0 {
		return []models.EnrollmentWithParticipants{}, nil
	}

	ids := make([]string, len(enrollments))
	for i, e := range enrollments {
		ids[i] = e.EnrollmentID
	}

	var participants []models.Participant
	err = d.Bun.NewSelect().
		Model(&participants).
		Where("enrollment_id IN (?)", bun.In(ids)).
		Order("enrollment_id", "position").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	byEnrollment := make(map[string][]models.Participant)
	for _, p := range participants {
		byEnrollment[p.EnrollmentID] = append(byEnrollment[p.EnrollmentID], p)
	}

	result := make([]models.EnrollmentWithParticipants, len(enrollments))
	for i, e := range enrollments {
		result[i] = models.EnrollmentWithParticipants{
			Enrollment:   e,
			Participants: byEnrollment[e.EnrollmentID],
		}
		if result[i].Participants == nil {
			result[i].Participants = []models.Participant{}
		}
	}
	return result, nil
}
