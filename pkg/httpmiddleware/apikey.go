package httpmiddleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

// APIKeyConfig configures API key authentication.
type APIKeyConfig struct {
	// Header carrying the key. Defaults to "api_key".
	Header string
	// Pepper is the HMAC-SHA256 key used to hash incoming API keys.
	Pepper []byte
	// Hashes are the accepted hex-encoded HMAC-SHA256 digests. When empty,
	// authentication is disabled.
	Hashes []string
}

// HashAPIKey returns the hex HMAC-SHA256 digest stored for key.
func HashAPIKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// APIKey rejects requests whose API key digest is not in cfg.Hashes with
// 401 Unauthorized. Digests are compared in constant time.
func APIKey(cfg APIKeyConfig) Middleware {
	header := cfg.Header
	if header == "" {
		header = "api_key"
	}
	var accepted [][]byte
	for _, h := range cfg.Hashes {
		if b, err := hex.DecodeString(h); err == nil {
			accepted = append(accepted, b)
		}
	}

	return func(next http.Handler) http.Handler {
		if len(cfg.Hashes) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(header)
			if key == "" || !matchKey(cfg.Pepper, key, accepted) {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func matchKey(pepper []byte, key string, accepted [][]byte) bool {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	sum := mac.Sum(nil)

	ok := false
	for _, want := range accepted {
		if subtle.ConstantTimeCompare(sum, want) == 1 {
			ok = true
		}
	}
	return ok
}
