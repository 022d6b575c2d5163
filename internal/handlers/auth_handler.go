package handlers

import (
	"net/http"

	"tailor-pos/internal/models"
	"tailor-pos/internal/services"
	"tailor-pos/pkg/utils"
)

type AuthHandler struct {
	Service *services.UserService
}

func NewAuthHandler(s *services.UserService) *AuthHandler {
	return &AuthHandler{Service: s}
}

// Login handles POST /auth/login. Accounts with TOTP get a temp token back
// unless totp_code was sent along.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	authResp, err := h.Service.Login(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, authResp)
}

// VerifyTOTP handles POST /auth/totp, the second login step
func (h *AuthHandler) VerifyTOTP(w http.ResponseWriter, r *http.Request) {
	var req models.TOTPLoginRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}

	authResp, err := h.Service.VerifyTOTPLogin(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, authResp)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Service.GetUser(r.Context(), currentUserID(r))
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, user)
}

// ============================================
// TOTP management for the signed-in user
// ============================================

func (h *AuthHandler) SetupTOTP(w http.ResponseWriter, r *http.Request) {
	setup, err := h.Service.SetupTOTP(r.Context(), currentUserID(r))
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, setup)
}

func (h *AuthHandler) EnableTOTP(w http.ResponseWriter, r *http.Request) {
	var req models.TOTPCodeRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}
	if err := h.Service.EnableTOTP(r.Context(), currentUserID(r), req.Code); err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]bool{"totp_enabled": true})
}

func (h *AuthHandler) DisableTOTP(w http.ResponseWriter, r *http.Request) {
	var req models.TOTPCodeRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}
	if err := h.Service.DisableTOTP(r.Context(), currentUserID(r), req.Password); err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]bool{"totp_enabled": false})
}
