package handlers

import (
	"net/http"

	"github.com/pribylovaa/go-photo-sharing/internal/models"
	"github.com/pribylovaa/go-photo-sharing/internal/transport/http/apierrors"
)

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type sessionsResponse struct {
	Sessions []models.SessionInfo `json:"sessions"`
}

type revokedResponse struct {
	Revoked int `json:"revoked"`
}

// Me возвращает профиль владельца токена со сведениями о текущей сессии.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user, sess, _, ok := h.caller(w, r)
	if !ok {
		return
	}

	view := models.NewUserView(user, sess)
	view.Session.IsCurrent = true

	writeJSON(w, http.StatusOK, view)
}

func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, _, _, ok := h.caller(w, r)
	if !ok {
		return
	}

	var in changePasswordRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.ChangePassword(r.Context(), user.ID, in.CurrentPassword, in.NewPassword); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handlers) LogoutAll(w http.ResponseWriter, r *http.Request) {
	user, _, _, ok := h.caller(w, r)
	if !ok {
		return
	}

	n, err := h.svc.LogoutAllSessions(r.Context(), user.ID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, revokedResponse{Revoked: n})
}

// Sessions перечисляет живые сессии владельца токена; текущая помечена is_current.
func (h *Handlers) Sessions(w http.ResponseWriter, r *http.Request) {
	user, sess, _, ok := h.caller(w, r)
	if !ok {
		return
	}

	infos, err := h.svc.UserSessions(r.Context(), user.ID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	for i := range infos {
		infos[i].IsCurrent = infos[i].ID == sess.ID
	}

	writeJSON(w, http.StatusOK, sessionsResponse{Sessions: infos})
}

func (h *Handlers) RevokeCurrent(w http.ResponseWriter, r *http.Request) {
	user, _, tok, ok := h.caller(w, r)
	if !ok {
		return
	}

	if err := h.svc.RevokeSession(r.Context(), user.ID, tok); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
