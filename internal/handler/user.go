package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/easeaico/companion/internal/profile"
	"github.com/easeaico/companion/internal/storage"
	"github.com/easeaico/companion/internal/types"
)

type profileView struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	DisplayName        string    `json:"displayName"`
	AvatarURL          *string   `json:"avatarUrl"`
	OnboardingComplete bool      `json:"onboardingComplete"`
	CreatedAt          time.Time `json:"createdAt"`
}

func newProfileView(u *types.User) profileView {
	view := profileView{
		ID:                 u.ID,
		Email:              u.Email,
		DisplayName:        u.DisplayName,
		OnboardingComplete: u.OnboardingComplete,
		CreatedAt:          u.CreatedAt,
	}
	if u.AvatarURL != "" {
		avatar := u.AvatarURL
		view.AvatarURL = &avatar
	}
	return view
}

// CompleteOnboarding handles POST /api/user/onboarding
func (h *Handler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	var answers profile.Answers
	if err := json.NewDecoder(r.Body).Decode(&answers); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid onboarding data")
		return
	}

	err := h.profiles.CompleteOnboarding(r.Context(), userID(r), answers)
	if errors.Is(err, profile.ErrInvalid) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid onboarding data", "details": err.Error()})
		return
	}
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GetProfile handles GET /api/user/profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.profiles.Get(r.Context(), userID(r))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileView(u))
}

// UpdateProfile handles PATCH /api/user/profile with {"displayName", "avatarUrl"}.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var update profile.AccountUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	u, err := h.profiles.Update(r.Context(), userID(r), update)
	switch {
	case errors.Is(err, profile.ErrInvalid):
		writeError(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case err != nil:
		writeInternalError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, newProfileView(u))
	}
}
