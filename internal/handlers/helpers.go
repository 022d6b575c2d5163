package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"tailor-pos/internal/middleware"
	"tailor-pos/internal/models"
)

// queryInt reads a positive integer query parameter, def when absent or bad
func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func queryBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}

// scopeBranch pins cashiers to their own branch. Managers and admins may
// look at any branch.
func scopeBranch(r *http.Request, requested string) string {
	role, _ := middleware.GetRoleFromContext(r.Context())
	own, _ := middleware.GetBranchIDFromContext(r.Context())
	if role == models.RoleCashier && own != "" {
		return own
	}
	return strings.TrimSpace(requested)
}

// operator is the name stamped on sales and transfers
func operator(r *http.Request) string {
	if name, _ := middleware.GetUsernameFromContext(r.Context()); name != "" {
		return name
	}
	return currentUserID(r)
}

func currentUserID(r *http.Request) string {
	id, _ := middleware.GetUserIDFromContext(r.Context())
	return id
}

func attachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Write(body)
}
