package course

import (
	"testing"

	"course-manager/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestFormatDateRange(t *testing.T) {
	tests := []struct {
		name string
		date models.CourseDate
		want string
	}{
		{"single day", models.CourseDate{StartDate: "2026-09-14"}, "14.09.2026"},
		{"same day range", models.CourseDate{StartDate: "2026-09-14", EndDate: "2026-09-14"}, "14.09.2026"},
		{"same year range", models.CourseDate{StartDate: "2026-09-14", EndDate: "2026-09-15"}, "14.09. - 15.09.2026"},
		{"cross year range", models.CourseDate{StartDate: "2026-12-30", EndDate: "2027-01-02"}, "30.12.2026 - 02.01.2027"},
		{"missing date", models.CourseDate{}, "Uspesifisert dato"},
		{"garbage date", models.CourseDate{StartDate: "soon"}, "Uspesifisert dato"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDateRange(tt.date))
		})
	}
}

func TestFormatTimeRange(t *testing.T) {
	tests := []struct {
		name string
		date models.CourseDate
		want string
	}{
		{"full range", models.CourseDate{StartTime: "17:00", EndTime: "21:00"}, "17:00 - 21:00"},
		{"start only", models.CourseDate{StartTime: "17:00"}, "Start: 17:00"},
		{"end only", models.CourseDate{EndTime: "21:00"}, "Slutt: 21:00"},
		{"none", models.CourseDate{}, "Uspesifisert tid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimeRange(tt.date))
		})
	}
}

func TestFormatDateDisplay(t *testing.T) {
	full := models.CourseDate{StartDate: "2026-09-14", EndDate: "2026-09-15", StartTime: "17:00", EndTime: "21:00"}
	assert.Equal(t, "14.09. - 15.09.2026, 17:00 - 21:00", FormatDateDisplay(full))

	dateOnly := models.CourseDate{StartDate: "2026-09-14"}
	assert.Equal(t, "14.09.2026", FormatDateDisplay(dateOnly))

	timeOnly := models.CourseDate{StartTime: "17:00"}
	assert.Equal(t, "Start: 17:00", FormatDateDisplay(timeOnly))

	assert.Equal(t, "Uspesifisert dato/tid", FormatDateDisplay(models.CourseDate{}))
}

func TestNormalizeSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Sted", "sted"},
		{"  Kurs-Type ", "kurs_type"},
		{"Oslo sentrum", "oslo_sentrum"},
		{"æøå!", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeSlug(tt.in), "NormalizeSlug(%q)", tt.in)
	}
}
