package handlers

import (
	"net/http"

	"tailor-pos/internal/models"
	"tailor-pos/internal/services"
	"tailor-pos/pkg/utils"

	"github.com/gorilla/mux"
)

// CatalogHandler serves branches and the tailoring service catalog
type CatalogHandler struct {
	Service *services.CatalogService
}

func NewCatalogHandler(s *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{Service: s}
}

func (h *CatalogHandler) ListBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.Service.ListBranches(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, branches)
}

func (h *CatalogHandler) GetBranch(w http.ResponseWriter, r *http.Request) {
	branch, err := h.Service.GetBranch(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, branch)
}

func (h *CatalogHandler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	var req models.BranchRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}
	branch, err := h.Service.CreateBranch(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, branch)
}

func (h *CatalogHandler) UpdateBranch(w http.ResponseWriter, r *http.Request) {
	var req models.BranchRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}
	branch, err := h.Service.UpdateBranch(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, branch)
}

func (h *CatalogHandler) DeleteBranch(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteBranch(r.Context(), mux.Vars(r)["id"]); err != nil {
		utils.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListServices handles GET /api/services?type=&cursor=&page_size=
func (h *CatalogHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.Service.ListServices(r.Context(), q.Get("type"), q.Get("cursor"), queryInt(r, "page_size", 0))
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, page)
}

func (h *CatalogHandler) GetService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.Service.GetService(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, svc)
}

func (h *CatalogHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req models.ServiceRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}
	svc, err := h.Service.CreateService(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, svc)
}

func (h *CatalogHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	var req models.ServiceRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}
	svc, err := h.Service.UpdateService(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, svc)
}

func (h *CatalogHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteService(r.Context(), mux.Vars(r)["id"]); err != nil {
		utils.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
