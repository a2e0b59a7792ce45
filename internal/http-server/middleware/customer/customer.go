package customer

import (
	"net/http"
	"strings"

	"evcoupon/lib/api/cont"
	"evcoupon/lib/api/response"

	"github.com/go-chi/render"
)

// New reads the customer id set by the upstream auth proxy from header.
// Requests without it are rejected.
func New(header string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(header))
			if id == "" {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("Customer not identified"))
				return
			}
			next.ServeHTTP(w, r.WithContext(cont.PutCustomer(r.Context(), id)))
		}
		return http.HandlerFunc(fn)
	}
}
