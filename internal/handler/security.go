package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/Sjay2468/MedicoHubWebsite-sub001/internal/domain/auth"
)

type keyInfoCtxKey struct{}

// KeyInfoFromContext returns the API key identity attached by RequireAPIKey,
// or nil on unauthenticated requests.
func KeyInfoFromContext(ctx context.Context) *auth.APIKeyInfo {
	info, _ := ctx.Value(keyInfoCtxKey{}).(*auth.APIKeyInfo)
	return info
}

// RequireAPIKey authenticates operator requests via the X-API-Key header.
// The presented key is hashed with HMAC-SHA256 under a server-side pepper,
// looked up in the repository, and compared in constant time to prevent
// timing attacks.
func RequireAPIKey(apikeys auth.Repository, pepper []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				writeError(w, http.StatusUnauthorized, "missing API key")
				return
			}

			mac := hmac.New(sha256.New, pepper)
			mac.Write([]byte(key))
			hash := mac.Sum(nil)

			info, err := apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}

			// The lookup already matched on the hash, but the stored value is
			// still re-compared in constant time in case the repository
			// returned a stale or wrong row.
			stored, err := hex.DecodeString(info.KeyHash)
			if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}

			ctx := context.WithValue(r.Context(), keyInfoCtxKey{}, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
