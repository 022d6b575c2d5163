package http

import (
	"net/http"

	"tailor-pos/internal/handlers"
	"tailor-pos/internal/middleware"
	"tailor-pos/internal/models"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Auth      *handlers.AuthHandler
	Users     *handlers.UserHandler
	Inventory *handlers.InventoryHandler
	Customers *handlers.CustomerHandler
	Checkout  *handlers.CheckoutHandler
	Sales     *handlers.SalesHandler
	Reports   *handlers.ReportHandler
	Catalog   *handlers.CatalogHandler
	Printer   *handlers.PrinterHandler
	Health    *handlers.HealthHandler

	// WebSocket is the live change feed; nil leaves /ws unmounted
	WebSocket http.HandlerFunc
}

func NewRouter(h Handlers, authMiddleware *middleware.AuthMiddleware) *mux.Router {
	r := mux.NewRouter()
	// runs after matching so requests are labelled by route template
	r.Use(middleware.MetricsMiddleware)

	staff := authMiddleware.Authenticate
	managers := authMiddleware.RequireRole(models.RoleAdmin, models.RoleManager)
	admins := authMiddleware.RequireAdmin
	guard := func(mw func(http.Handler) http.Handler, fn http.HandlerFunc) http.HandlerFunc {
		return mw(fn).ServeHTTP
	}

	// Public API routes - Authentication
	r.HandleFunc("/auth/login", h.Auth.Login).Methods("POST")
	r.HandleFunc("/auth/totp", h.Auth.VerifyTOTP).Methods("POST")

	// Protected API routes - Account of the signed-in user
	accountAPI := r.PathPrefix("/api/account").Subrouter()
	accountAPI.Use(staff)
	accountAPI.HandleFunc("", h.Auth.Me).Methods("GET")
	accountAPI.HandleFunc("/totp/setup", h.Auth.SetupTOTP).Methods("POST")
	accountAPI.HandleFunc("/totp/enable", h.Auth.EnableTOTP).Methods("POST")
	accountAPI.HandleFunc("/totp/disable", h.Auth.DisableTOTP).Methods("POST")

	// Protected API routes - Users (admin only)
	usersAPI := r.PathPrefix("/api/users").Subrouter()
	usersAPI.Use(admins)
	usersAPI.HandleFunc("", h.Users.ListUsers).Methods("GET")
	usersAPI.HandleFunc("", h.Users.CreateUser).Methods("POST")
	usersAPI.HandleFunc("/{id}", h.Users.GetUser).Methods("GET")
	usersAPI.HandleFunc("/{id}", h.Users.UpdateUser).Methods("PUT")
	usersAPI.HandleFunc("/{id}", h.Users.DeactivateUser).Methods("DELETE")

	// Protected API routes - Inventory (managers edit, everyone reads)
	inventoryAPI := r.PathPrefix("/api/inventory").Subrouter()
	inventoryAPI.Use(staff)
	inventoryAPI.HandleFunc("", h.Inventory.ListItems).Methods("GET")
	inventoryAPI.HandleFunc("", guard(managers, h.Inventory.AddItem)).Methods("POST")
	inventoryAPI.HandleFunc("/summary", h.Inventory.Summary).Methods("GET")
	inventoryAPI.HandleFunc("/scan/{barcode}", h.Inventory.ScanBarcode).Methods("GET")
	inventoryAPI.HandleFunc("/transfers", h.Inventory.ListTransfers).Methods("GET")
	inventoryAPI.HandleFunc("/transfers", guard(managers, h.Inventory.Transfer)).Methods("POST")
	inventoryAPI.HandleFunc("/{id}", h.Inventory.GetItem).Methods("GET")
	inventoryAPI.HandleFunc("/{id}", guard(managers, h.Inventory.EditItem)).Methods("PUT")
	inventoryAPI.HandleFunc("/{id}", guard(managers, h.Inventory.DeleteItem)).Methods("DELETE")
	if h.Printer != nil {
		inventoryAPI.HandleFunc("/{id}/label", h.Printer.PrintLabel).Methods("POST")
	}

	// Protected API routes - Customers
	customersAPI := r.PathPrefix("/api/customers").Subrouter()
	customersAPI.Use(staff)
	customersAPI.HandleFunc("", h.Customers.ListCustomers).Methods("GET")
	customersAPI.HandleFunc("", h.Customers.CreateCustomer).Methods("POST")
	customersAPI.HandleFunc("/count", h.Customers.Count).Methods("GET")
	customersAPI.HandleFunc("/import", guard(managers, h.Customers.Import)).Methods("POST")
	customersAPI.HandleFunc("/{phone}", h.Customers.GetCustomer).Methods("GET")
	customersAPI.HandleFunc("/{phone}", h.Customers.UpdateCustomer).Methods("PUT")
	customersAPI.HandleFunc("/{phone}", guard(managers, h.Customers.DeleteCustomer)).Methods("DELETE")
	customersAPI.HandleFunc("/{phone}/history", h.Customers.History).Methods("GET")

	// Protected API routes - Checkout and the sales ledger
	checkoutAPI := r.PathPrefix("/api/checkout").Subrouter()
	checkoutAPI.Use(staff)
	checkoutAPI.HandleFunc("", h.Checkout.Checkout).Methods("POST")

	salesAPI := r.PathPrefix("/api/sales").Subrouter()
	salesAPI.Use(staff)
	salesAPI.HandleFunc("", h.Sales.ListSales).Methods("GET")
	salesAPI.HandleFunc("/{id}", h.Sales.GetSale).Methods("GET")
	salesAPI.HandleFunc("/{id}/status", h.Sales.UpdateStatus).Methods("PATCH")

	// Protected API routes - Reports (managers and admins)
	reportsAPI := r.PathPrefix("/api/reports").Subrouter()
	reportsAPI.Use(managers)
	reportsAPI.HandleFunc("", h.Reports.GetReport).Methods("GET")
	reportsAPI.HandleFunc("/csv", h.Reports.GetCSV).Methods("GET")
	reportsAPI.HandleFunc("/pdf", h.Reports.GetPDF).Methods("GET")
	reportsAPI.HandleFunc("/bundle", h.Reports.GetBundle).Methods("GET")
	reportsAPI.HandleFunc("/archive", guard(admins, h.Reports.Archive)).Methods("POST")

	// Protected API routes - Branches and services (admins edit)
	branchesAPI := r.PathPrefix("/api/branches").Subrouter()
	branchesAPI.Use(staff)
	branchesAPI.HandleFunc("", h.Catalog.ListBranches).Methods("GET")
	branchesAPI.HandleFunc("", guard(admins, h.Catalog.CreateBranch)).Methods("POST")
	branchesAPI.HandleFunc("/{id}", h.Catalog.GetBranch).Methods("GET")
	branchesAPI.HandleFunc("/{id}", guard(admins, h.Catalog.UpdateBranch)).Methods("PUT")
	branchesAPI.HandleFunc("/{id}", guard(admins, h.Catalog.DeleteBranch)).Methods("DELETE")

	servicesAPI := r.PathPrefix("/api/services").Subrouter()
	servicesAPI.Use(staff)
	servicesAPI.HandleFunc("", h.Catalog.ListServices).Methods("GET")
	servicesAPI.HandleFunc("", guard(managers, h.Catalog.CreateService)).Methods("POST")
	servicesAPI.HandleFunc("/{id}", h.Catalog.GetService).Methods("GET")
	servicesAPI.HandleFunc("/{id}", guard(managers, h.Catalog.UpdateService)).Methods("PUT")
	servicesAPI.HandleFunc("/{id}", guard(managers, h.Catalog.DeleteService)).Methods("DELETE")

	// Live change feed
	if h.WebSocket != nil {
		r.Handle("/ws", authMiddleware.AuthenticateWebSocket(h.WebSocket)).Methods("GET")
	}

	// Health endpoints (no auth required - for Kubernetes probes)
	r.HandleFunc("/health", h.Health.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", h.Health.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", h.Health.DetailedHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
