package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/EmpoweredVote/ward-backend/internal/utils"
)

// AdminFetcher looks up a portal user by id.
type AdminFetcher interface {
	FindUserByID(ctx context.Context, id string) (utils.UserData, error)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}

// CORS echoes the origin back only if it is on the allow-list.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin") // important for caches
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			}

			w.Header().Set("Access-Control-Expose-Headers", "Retry-After")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminMiddleware resolves the admin_id form or query value to a portal user.
// A user is an admin when they have a phone on record and either hold the
// admin role or their phone is on the allow-list. Multipart bodies are parsed
// here, capped at maxBody bytes.
func AdminMiddleware(fetcher AdminFetcher, adminPhones []string, maxBody int64) func(http.Handler) http.Handler {
	phones := make([]string, 0, len(adminPhones))
	for _, p := range adminPhones {
		phones = append(phones, utils.CleanPhone(p))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBody)
			}
			if err := r.ParseMultipartForm(maxBody); err != nil && !errors.Is(err, http.ErrNotMultipart) {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					writeError(w, http.StatusRequestEntityTooLarge, "File too large")
					return
				}
				writeError(w, http.StatusBadRequest, "Invalid form data")
				return
			}

			adminID := r.FormValue("admin_id")
			if adminID == "" {
				writeError(w, http.StatusForbidden, "Unauthorized access")
				return
			}

			user, err := fetcher.FindUserByID(r.Context(), adminID)
			if err != nil {
				writeError(w, http.StatusForbidden, "Unauthorized access")
				return
			}

			phone := utils.CleanPhone(user.Phone)
			if phone == "" || !(user.Role == "admin" || slices.Contains(phones, phone)) {
				writeError(w, http.StatusForbidden, "Unauthorized access")
				return
			}

			ctx := context.WithValue(r.Context(), utils.ContextAdminIDKey, user.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
