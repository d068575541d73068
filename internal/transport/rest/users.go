package rest

import (
	"net/http"

	"debtster-collector/internal/domain"
)

func userView(u *domain.User) map[string]interface{} {
	return map[string]interface{}{
		"id":        u.ID,
		"username":  u.Username,
		"name":      u.Name,
		"email":     u.Email,
		"is_active": u.IsActive,
	}
}

// listUsers backs the assignment picker: every operator a debt can be
// assigned to.
func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	if h.users == nil {
		ErrorNotFound(w, "not found")
		return
	}

	users, err := h.users.List(r.Context())
	if err != nil {
		h.serviceError(w, err)
		return
	}

	views := make([]map[string]interface{}, 0, len(users))
	for i := range users {
		views = append(views, userView(&users[i]))
	}
	Success(w, "", views)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	if h.users == nil {
		ErrorNotFound(w, "not found")
		return
	}

	id, ok := pathID(r, "user_id")
	if !ok {
		ErrorBadRequest(w, "invalid user id")
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	Success(w, "", userView(user))
}
