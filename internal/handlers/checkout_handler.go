package handlers

import (
	"net/http"

	"tailor-pos/internal/models"
	"tailor-pos/internal/services"
	"tailor-pos/pkg/utils"
)

type CheckoutHandler struct {
	Service *services.CheckoutService
}

func NewCheckoutHandler(s *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{Service: s}
}

// Checkout handles POST /api/checkout. The operator and, for cashiers, the
// branch come from the session rather than the body.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req models.CheckoutRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}
	req.Operator = operator(r)
	req.BranchID = scopeBranch(r, req.BranchID)

	res, err := h.Service.Checkout(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, models.CheckoutResponse{
		Sale:     res.Sale,
		State:    res.State.String(),
		Attempts: res.Attempts,
	})
}
