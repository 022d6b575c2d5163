package handlers

import (
	"net/http"

	"tailor-pos/internal/services"
	"tailor-pos/pkg/utils"

	"github.com/gorilla/mux"
)

type PrinterHandler struct {
	PrinterService *services.PrinterService
}

func NewPrinterHandler(ps *services.PrinterService) *PrinterHandler {
	return &PrinterHandler{PrinterService: ps}
}

type PrintLabelRequest struct {
	Copies int `json:"copies"`
}

// PrintLabel handles POST /api/inventory/{id}/label
func (h *PrinterHandler) PrintLabel(w http.ResponseWriter, r *http.Request) {
	var req PrintLabelRequest
	if r.ContentLength != 0 {
		if err := utils.Decode(r, &req); err != nil {
			utils.Error(w, err)
			return
		}
	}

	if err := h.PrinterService.PrintItemLabel(r.Context(), mux.Vars(r)["id"], req.Copies); err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
