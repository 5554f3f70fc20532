package course

import (
	"time"

	"course-manager/internal/models"
)

const isoDate = "2006-01-02"

// FormatDateRange renders a course date's calendar span in Norwegian
// display form. Same-year ranges use the compact "02.01. - 05.01.2006".
func FormatDateRange(cd models.CourseDate) string {
	start, startErr := time.Parse(isoDate, cd.StartDate)
	if cd.EndDate != "" && cd.EndDate != cd.StartDate {
		end, endErr := time.Parse(isoDate, cd.EndDate)
		if startErr == nil && endErr == nil {
			if start.Year() == end.Year() {
				return start.Format("02.01.") + " - " + end.Format("02.01.2006")
			}
			return start.Format("02.01.2006") + " - " + end.Format("02.01.2006")
		}
	}
	if startErr == nil {
		return start.Format("02.01.2006")
	}
	return "Uspesifisert dato"
}

// FormatTimeRange renders a course date's time-of-day span.
func FormatTimeRange(cd models.CourseDate) string {
	switch {
	case cd.StartTime != "" && cd.EndTime != "":
		return cd.StartTime + " - " + cd.EndTime
	case cd.StartTime != "":
		return "Start: " + cd.StartTime
	case cd.EndTime != "":
		return "Slutt: " + cd.EndTime
	}
	return "Uspesifisert tid"
}

// FormatDateDisplay combines date and time spans for listings and mails.
func FormatDateDisplay(cd models.CourseDate) string {
	dateDisplay := FormatDateRange(cd)
	timeDisplay := FormatTimeRange(cd)

	var parts []string
	if dateDisplay != "Uspesifisert dato" {
		parts = append(parts, dateDisplay)
	}
	if timeDisplay != "Uspesifisert tid" {
		parts = append(parts, timeDisplay)
	}
	if len(parts) == 0 {
		return "Uspesifisert dato/tid"
	}
	result := parts[0]
	for _, p := range parts[1:] {
		result += ", " + p
	}
	return result
}
