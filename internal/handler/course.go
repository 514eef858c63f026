package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
)

func (h *Handler) listCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.List(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, c := range courses {
			encodeCourse(e, c)
		}
		e.ArrEnd()
	})
}

func (h *Handler) getCourse(w http.ResponseWriter, r *http.Request) {
	c, err := h.courses.GetByID(r.Context(), chi.URLParam(r, "courseId"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeCourse(e, *c)
	})
}
