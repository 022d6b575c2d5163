package handlers

import (
	"net/http"

	"tailor-pos/internal/models"
	"tailor-pos/internal/services"
	"tailor-pos/pkg/utils"

	"github.com/gorilla/mux"
)

type InventoryHandler struct {
	Service *services.InventoryService
}

func NewInventoryHandler(s *services.InventoryService) *InventoryHandler {
	return &InventoryHandler{Service: s}
}

// ListItems handles GET /api/inventory
// Query params: branch_id, type, search, sort_by, sort_dir, low_stock, page_size, cursor
func (h *InventoryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := services.InventoryFilter{
		BranchID: scopeBranch(r, q.Get("branch_id")),
		Type:     q.Get("type"),
		Search:   q.Get("search"),
		SortBy:   q.Get("sort_by"),
		SortDir:  q.Get("sort_dir"),
		LowStock: queryBool(r, "low_stock"),
		PageSize: queryInt(r, "page_size", 0),
	}

	page, err := h.Service.List(r.Context(), f, q.Get("cursor"))
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, page)
}

func (h *InventoryHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.Service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, item)
}

// ScanBarcode handles GET /api/inventory/scan/{barcode}
func (h *InventoryHandler) ScanBarcode(w http.ResponseWriter, r *http.Request) {
	branchID := scopeBranch(r, r.URL.Query().Get("branch_id"))
	item, err := h.Service.Scan(r.Context(), branchID, mux.Vars(r)["barcode"])
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, item)
}

func (h *InventoryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.Summary(r.Context(), scopeBranch(r, r.URL.Query().Get("branch_id")))
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, summary)
}

func (h *InventoryHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req models.CreateItemRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}
	req.BranchID = scopeBranch(r, req.BranchID)

	item, err := h.Service.Add(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, item)
}

func (h *InventoryHandler) EditItem(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateItemRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}
	item, err := h.Service.Edit(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, item)
}

func (h *InventoryHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		utils.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Transfer handles POST /api/inventory/transfers
func (h *InventoryHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req models.TransferRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}
	res, err := h.Service.Transfer(r.Context(), &req, operator(r))
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, res)
}

func (h *InventoryHandler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	transfers, err := h.Service.ListTransfers(r.Context(), scopeBranch(r, r.URL.Query().Get("branch_id")), queryInt(r, "limit", 50))
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, transfers)
}
