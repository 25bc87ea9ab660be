package middleware

import (
	"net/http"

	"github.com/angelmondragon/pdv-backend/api/responses"
	"github.com/angelmondragon/pdv-backend/pkg/logger"
)

// StoreContext guards the register routes: every cash and sale operation is scoped to the
// caller's active store. The store is stamped on the request log context.
func StoreContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			storeID, err := StoreUUIDFromContext(r.Context())
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if logg != nil {
				r = r.WithContext(logg.WithStoreID(r.Context(), storeID.String()))
			}
			next.ServeHTTP(w, r)
		})
	}
}
