package handlers

import (
	"net/http"

	"tailor-pos/internal/models"
	"tailor-pos/internal/services"
	"tailor-pos/pkg/utils"

	"github.com/gorilla/mux"
)

// maxImportSize bounds the uploaded spreadsheet
const maxImportSize = 10 << 20

type CustomerHandler struct {
	Service *services.CustomerService
}

func NewCustomerHandler(s *services.CustomerService) *CustomerHandler {
	return &CustomerHandler{Service: s}
}

// ListCustomers handles GET /api/customers
// Query params: search, sort_by, sort_dir, page_size, cursor
func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := services.CustomerFilter{
		Search:   q.Get("search"),
		SortBy:   q.Get("sort_by"),
		SortDir:  q.Get("sort_dir"),
		PageSize: queryInt(r, "page_size", 0),
	}
	page, err := h.Service.List(r.Context(), f, q.Get("cursor"))
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, page)
}

func (h *CustomerHandler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.Service.Count(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]int{"customers_count": n})
}

// GetCustomer accepts the phone in any of the usual spellings
func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.Service.Lookup(r.Context(), mux.Vars(r)["phone"])
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, customer)
}

func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCustomerRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}
	customer, err := h.Service.Create(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, customer)
}

func (h *CustomerHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateCustomerRequest
	if err := utils.Decode(r, &req); err != nil {
		utils.Error(w, err)
		return
	}
	customer, err := h.Service.Update(r.Context(), mux.Vars(r)["phone"], &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, customer)
}

func (h *CustomerHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), mux.Vars(r)["phone"]); err != nil {
		utils.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CustomerHandler) History(w http.ResponseWriter, r *http.Request) {
	sales, err := h.Service.History(r.Context(), mux.Vars(r)["phone"])
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, sales)
}

// Import handles POST /api/customers/import with the .xlsx in the "file"
// form field
func (h *CustomerHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	file, _, err := r.FormFile("file")
	if err != nil {
		utils.Error(w, &services.ValidationError{Field: "file", Message: "an .xlsx file is required"})
		return
	}
	defer file.Close()

	res, err := h.Service.Import(r.Context(), file)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, res)
}
