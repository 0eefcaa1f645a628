// courses.go — обработчики /courses: список, карточка, создание,
// редактирование, удаление и оплата курса.
package handlers

import (
	"net/http"

	"github.com/studyon/study-on/internal/service"
)

// ListCourses — GET /courses.
// Курсы каталога с типом и ценой из billing. Доступ: все.
func (h *APIHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	rows, err := h.catalog.List(r.Context(), principal(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := courseListResponse{
		Courses: make([]courseRowJSON, len(rows)),
		Flashes: h.flashes(w, r),
	}
	for i, row := range rows {
		resp.Courses[i] = courseRowJSON{
			courseJSON:  mapCourse(row.Course),
			Type:        row.Type,
			Price:       row.Price,
			IsAvailable: row.Available,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ShowCourse — GET /courses/{id}.
// Карточка курса с правом доступа пользователя. Доступ: все.
func (h *APIHandler) ShowCourse(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	detail, err := h.catalog.Detail(r.Context(), principal(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := courseShowResponse{
		Course:          mapCourse(detail.Course),
		Type:            detail.Billing.Type,
		Price:           detail.Billing.Price,
		IsAvailable:     detail.Available,
		ExpiresAt:       formatTime(detail.ExpiresAt),
		IsEnoughBalance: detail.EnoughBalance,
		CanManage:       detail.CanManage,
	}
	if detail.CanManage {
		resp.DeleteToken = h.deleteToken(w, r, id)
	}
	resp.Flashes = h.flashes(w, r)
	writeJSON(w, http.StatusOK, resp)
}

// NewCourse — GET /courses/new.
// Пустая форма курса. Доступ: ROLE_SUPER_ADMIN.
func (h *APIHandler) NewCourse(w http.ResponseWriter, r *http.Request) {
	form, err := h.courses.NewForm(principal(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, courseFormResponse{Form: mapCourseForm(form)})
}

// CreateCourse — POST /courses/new.
// Создаёт курс в billing и локально, затем 303 на /courses.
func (h *APIHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	form, err := parseCourseForm(r)
	if err == nil {
		_, err = h.courses.Create(r.Context(), principal(r), form)
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	seeOther(w, r, "/courses")
}

// EditCourse — GET /courses/{id}/edit.
// Форма редактирования с типом и ценой из billing. Доступ: ROLE_SUPER_ADMIN.
func (h *APIHandler) EditCourse(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	course, form, err := h.courses.EditForm(r.Context(), principal(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	c := mapCourse(course)
	writeJSON(w, http.StatusOK, courseFormResponse{
		Course:      &c,
		Form:        mapCourseForm(form),
		DeleteToken: h.deleteToken(w, r, id),
	})
}

// UpdateCourse — POST /courses/{id}/edit.
func (h *APIHandler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	form, err := parseCourseForm(r)
	if err == nil {
		_, err = h.courses.Update(r.Context(), principal(r), urlID(r), form)
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	seeOther(w, r, "/courses")
}

// DeleteCourse — POST /courses/{id}.
// Требует CSRF-токен "_token" намерения delete<id>. Доступ: ROLE_SUPER_ADMIN.
func (h *APIHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	if err := h.courses.Delete(r.Context(), principal(r), urlID(r), h.csrfCheck(r, fieldDeleteToken)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	seeOther(w, r, "/courses")
}

// PayCourse — GET|POST /courses/{id}/pay.
// Оплата или аренда курса. Исход сообщается flash-сообщением,
// ответ всегда 303 на карточку курса. Доступ: аутентифицированный пользователь.
func (h *APIHandler) PayCourse(w http.ResponseWriter, r *http.Request) {
	id := urlID(r)
	_, _, err := h.account.Pay(r.Context(), principal(r), id)

	kind, message, ok := service.PaymentOutcome(err)
	if !ok {
		h.writeServiceError(w, r, err)
		return
	}
	if flashErr := h.sessions.AddFlash(w, r, kind, message); flashErr != nil {
		h.writeServiceError(w, r, flashErr)
		return
	}
	seeOther(w, r, "/courses/"+id)
}
