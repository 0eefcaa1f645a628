// lessons.go — обработчики /lessons: создание, просмотр, редактирование, удаление.
// После изменений — 303 на карточку курса урока.
package handlers

import (
	"net/http"

	"github.com/studyon/study-on/internal/domain/rbac"
)

// NewLesson — GET /lessons/new?course_id=.
// Доступ: ROLE_SUPER_ADMIN.
func (h *APIHandler) NewLesson(w http.ResponseWriter, r *http.Request) {
	courseID := r.URL.Query().Get("course_id")
	course, err := h.lessons.NewForm(r.Context(), principal(r), courseID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	c := mapCourse(course)
	writeJSON(w, http.StatusOK, lessonFormResponse{Course: &c, CourseID: course.ID})
}

// CreateLesson — POST /lessons/new.
// course_id берётся из формы, а при его отсутствии из query.
func (h *APIHandler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	form, err := parseLessonForm(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if form.CourseID == "" {
		form.CourseID = r.URL.Query().Get("course_id")
	}

	lesson, err := h.lessons.Create(r.Context(), principal(r), form)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	seeOther(w, r, "/courses/"+lesson.CourseID)
}

// ShowLesson — GET /lessons/{id}.
// Доступ: администратор или пользователь с оплаченным курсом.
func (h *APIHandler) ShowLesson(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	p := principal(r)
	view, err := h.lessons.Get(r.Context(), p, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := lessonShowResponse{
		Lesson: mapLesson(view.Lesson),
		Course: mapCourse(view.Course),
	}
	if rbac.IsElevated(p) {
		resp.DeleteToken = h.deleteToken(w, r, id)
	}
	writeJSON(w, http.StatusOK, resp)
}

// EditLesson — GET /lessons/{id}/edit.
func (h *APIHandler) EditLesson(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	lesson, err := h.lessons.EditForm(r.Context(), principal(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	l := mapLesson(lesson)
	writeJSON(w, http.StatusOK, lessonFormResponse{
		Lesson:      &l,
		CourseID:    lesson.CourseID,
		DeleteToken: h.deleteToken(w, r, id),
	})
}

// UpdateLesson — POST /lessons/{id}/edit.
func (h *APIHandler) UpdateLesson(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	form, err := parseLessonForm(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	lesson, err := h.lessons.Update(r.Context(), principal(r), urlID(r), form)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	seeOther(w, r, "/courses/"+lesson.CourseID)
}

// DeleteLesson — POST /lessons/{id}.
// Требует CSRF-токен "_token" намерения delete<id>.
func (h *APIHandler) DeleteLesson(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	courseID, err := h.lessons.Delete(r.Context(), principal(r), urlID(r), h.csrfCheck(r, fieldDeleteToken))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	seeOther(w, r, "/courses/"+courseID)
}
