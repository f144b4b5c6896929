package security

import "net/http"

// BodySizeLimit caps request body reads. Oversized bodies surface as
// http.MaxBytesError from the first handler that reads them. A zero or
// negative limit disables the cap.
func BodySizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
