// In-memory TTL cache for verification results
// Key: lowercased email → last verdict from the engine
package services

import (
	"strings"
	"sync"
	"time"

	"github.com/mailscout/mailscout-backend/models"
)

type verifyCacheEntry struct {
	Result   models.VerifyResult
	CachedAt time.Time
}

var (
	verifyCache   = map[string]*verifyCacheEntry{}
	verifyCacheMu sync.RWMutex
	cacheTTL      = 24 * time.Hour
)

// GetCachedVerification returns a cached verdict if still fresh, plus a found boolean.
func GetCachedVerification(email string) (models.VerifyResult, bool) {
	verifyCacheMu.RLock()
	defer verifyCacheMu.RUnlock()
	e, ok := verifyCache[strings.ToLower(strings.TrimSpace(email))]
	if !ok || time.Since(e.CachedAt) > cacheTTL {
		return models.VerifyResult{}, false
	}
	return e.Result, true
}

// SetCachedVerification stores the verdict for future uploads.
func SetCachedVerification(email string, result models.VerifyResult) {
	verifyCacheMu.Lock()
	defer verifyCacheMu.Unlock()
	verifyCache[strings.ToLower(strings.TrimSpace(email))] = &verifyCacheEntry{
		Result:   result,
		CachedAt: time.Now(),
	}
}
