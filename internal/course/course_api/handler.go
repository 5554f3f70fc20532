package course_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"course-manager/internal/course"
	"course-manager/internal/course/db"
	"course-manager/internal/logger"
	"course-manager/internal/models"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *course.Service
	Logger  *logger.Logger
}

func NewHandler(service *course.Service) *Handler {
	return &Handler{
		Service: service,
		Logger:  logger.NewLogger(),
	}
}

// ListCourses returns one catalog page. Besides search and page, every
// registered taxonomy slug is accepted as a query parameter and used as
// a term filter.
func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	search := query.Get("search")
	page, _ := strconv.Atoi(query.Get("page"))
	h.Logger.Info("API", fmt.Sprintf("ListCourses: search=%q page=%d", search, page))

	taxonomies, err := h.Service.ListTaxonomies(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListCourses: failed to load taxonomies: %v", err))
		http.Error(w, "Could not list courses", http.StatusInternalServerError)
		return
	}

	terms := make(map[string]string)
	for _, taxonomy := range taxonomies {
		if term := query.Get(taxonomy.Slug); term != "" {
			terms[taxonomy.Slug] = course.NormalizeSlug(term)
		}
	}

	courses, err := h.Service.ListCourses(r.Context(), search, terms, page)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListCourses: %v", err))
		http.Error(w, "Could not list courses", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(courses); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListCourses: failed to encode response: %v", err))
	}
}

// GetCourse returns a course with dates, availability and terms. When
// the visitor comes back from a completed checkout the redirect carries
// payment_success=1 and the response includes the confirmation message.
func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseId")
	h.Logger.Info("API", fmt.Sprintf("GetCourse: courseId=%s", courseID))

	detail, err := h.Service.GetCourseDetail(r.Context(), courseID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "Course not found", http.StatusNotFound)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("GetCourse: %v", err))
		http.Error(w, "Could not load course", http.StatusInternalServerError)
		return
	}

	response := struct {
		*models.CourseWithDates
		Message string `json:"message,omitempty"`
	}{CourseWithDates: detail}
	if r.URL.Query().Get("payment_success") == "1" {
		response.Message = "Du har meldt deg på kurset!"
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetCourse: failed to encode response: %v", err))
	}
}

// GetDateTerms returns the effective terms for a course date, falling
// back to the course's terms where the date has no override.
func (h *Handler) GetDateTerms(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseId")
	dateID := chi.URLParam(r, "dateId")
	h.Logger.Info("API", fmt.Sprintf("GetDateTerms: courseId=%s dateId=%s", courseID, dateID))

	terms, err := h.Service.DateTerms(r.Context(), courseID, dateID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetDateTerms: %v", err))
		http.Error(w, "Could not load terms", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(terms); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetDateTerms: failed to encode response: %v", err))
	}
}

// ---------------- ADMIN ----------------

func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("API", "CreateCourse: received request")

	var req models.Course
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateCourse: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.Service.CreateCourse(r.Context(), req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateCourse: %v", err))
		http.Error(w, "Failed to create course: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(created); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateCourse: failed to encode response: %v", err))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CreateCourse: created course %s", created.CourseID))
}

func (h *Handler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseId")
	h.Logger.Info("API", fmt.Sprintf("UpdateCourse: courseId=%s", courseID))

	var req models.Course
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateCourse: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	req.CourseID = courseID

	if err := h.Service.UpdateCourse(r.Context(), req); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "Course not found", http.StatusNotFound)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("UpdateCourse: %v", err))
		http.Error(w, "Failed to update course: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
	h.Logger.Info("API", fmt.Sprintf("UpdateCourse: updated course %s", courseID))
}

func (h *Handler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseId")
	h.Logger.Info("API", fmt.Sprintf("DeleteCourse: courseId=%s", courseID))

	if err := h.Service.DeleteCourse(r.Context(), courseID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "Course not found", http.StatusNotFound)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("DeleteCourse: %v", err))
		http.Error(w, "Failed to delete course: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddCourseDate(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseId")
	h.Logger.Info("API", fmt.Sprintf("AddCourseDate: courseId=%s", courseID))

	var req models.CourseDate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("AddCourseDate: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.Service.AddCourseDate(r.Context(), courseID, req)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "Course not found", http.StatusNotFound)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("AddCourseDate: %v", err))
		http.Error(w, "Failed to add course date: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(created); err != nil {
		h.Logger.Error("API", fmt.Sprintf("AddCourseDate: failed to encode response: %v", err))
	}
}

func (h *Handler) UpdateCourseDate(w http.ResponseWriter, r *http.Request) {
	dateID := chi.URLParam(r, "dateId")
	h.Logger.Info("API", fmt.Sprintf("UpdateCourseDate: dateId=%s", dateID))

	var req models.CourseDate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateCourseDate: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	req.DateID = dateID

	if err := h.Service.UpdateCourseDate(r.Context(), req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateCourseDate: %v", err))
		http.Error(w, "Failed to update course date: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteCourseDate(w http.ResponseWriter, r *http.Request) {
	dateID := chi.URLParam(r, "dateId")
	h.Logger.Info("API", fmt.Sprintf("DeleteCourseDate: dateId=%s", dateID))

	if err := h.Service.DeleteCourseDate(r.Context(), dateID); err != nil {
		h.Logger.Error("API", fmt.Sprintf("DeleteCourseDate: %v", err))
		http.Error(w, "Failed to delete course date: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListTaxonomies(w http.ResponseWriter, r *http.Request) {
	taxonomies, err := h.Service.ListTaxonomies(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListTaxonomies: %v", err))
		http.Error(w, "Could not list taxonomies", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(taxonomies); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListTaxonomies: failed to encode response: %v", err))
	}
}

func (h *Handler) SaveTaxonomy(w http.ResponseWriter, r *http.Request) {
	var req models.Taxonomy
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("SaveTaxonomy: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	saved, err := h.Service.SaveTaxonomy(r.Context(), req.Slug, req.Name)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("SaveTaxonomy: %v", err))
		http.Error(w, "Failed to save taxonomy: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(saved); err != nil {
		h.Logger.Error("API", fmt.Sprintf("SaveTaxonomy: failed to encode response: %v", err))
	}
	h.Logger.Info("API", fmt.Sprintf("SaveTaxonomy: saved taxonomy %s", saved.Slug))
}

func (h *Handler) DeleteTaxonomy(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	h.Logger.Info("API", fmt.Sprintf("DeleteTaxonomy: slug=%s", slug))

	if err := h.Service.DeleteTaxonomy(r.Context(), slug); err != nil {
		h.Logger.Error("API", fmt.Sprintf("DeleteTaxonomy: %v", err))
		http.Error(w, "Failed to delete taxonomy: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetTerms replaces a course's terms for one taxonomy. A date_id in the
// body makes the terms a per-date override instead.
func (h *Handler) SetTerms(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseId")
	taxonomy := chi.URLParam(r, "taxonomy")
	h.Logger.Info("API", fmt.Sprintf("SetTerms: courseId=%s taxonomy=%s", courseID, taxonomy))

	var req struct {
		DateID string   `json:"date_id"`
		Terms  []string `json:"terms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("SetTerms: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.SetCourseTerms(r.Context(), courseID, req.DateID, taxonomy, req.Terms); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "Course not found", http.StatusNotFound)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("SetTerms: %v", err))
		http.Error(w, "Failed to set terms: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
