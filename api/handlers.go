package api

import (
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mailscout/mailscout-backend/models"
	"github.com/mailscout/mailscout-backend/services"
)

var keyIDs = []string{"FINDER_API_KEY", "RESEND_API_KEY", "LEMONSQUEEZY_WEBHOOK_SECRET"}

func maskKey(v string) string {
	if len(v) <= 8 {
		return strings.Repeat("•", len(v))
	}
	return v[:6] + "..." + v[len(v)-4:]
}

func getKeys(c *gin.Context) {
	result := gin.H{}
	for _, id := range keyIDs {
		v := os.Getenv(id)
		result[id] = gin.H{
			"connected": v != "",
			"masked":    maskKey(v), // empty string if not set
		}
	}
	c.JSON(http.StatusOK, result)
}

func saveKeys(c *gin.Context) {
	// Accept a flat map of key-id → value for flexibility
	var payload map[string]string
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	// Set in-process immediately so the server can use them right away
	for _, id := range keyIDs {
		if v, ok := payload[id]; ok && v != "" {
			os.Setenv(id, v)
		}
	}

	// Also persist to .env so they survive a server restart
	if err := persistToEnv(payload); err != nil {
		log.Printf("[saveKeys] warning: could not write .env: %v", err)
		// Don't fail the request; in-process env is already updated
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// persistToEnv reads the existing .env, updates matching KEY=VALUE lines, and writes it back.
func persistToEnv(updates map[string]string) error {
	envPath := ".env"
	data, err := os.ReadFile(envPath)
	if err != nil {
		// Create a new .env if it doesn't exist
		data = []byte{}
	}

	lines := strings.Split(string(data), "\n")
	updated := map[string]bool{}

	for i, line := range lines {
		if strings.HasPrefix(line, "#") || !strings.Contains(line, "=") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		key := strings.TrimSpace(parts[0])
		if v, ok := updates[key]; ok && v != "" {
			lines[i] = key + "=" + v
			updated[key] = true
		}
	}

	// Append any keys not already in .env
	for k, v := range updates {
		if v != "" && !updated[k] {
			lines = append(lines, k+"="+v)
		}
	}

	return os.WriteFile(envPath, []byte(strings.Join(lines, "\n")), 0600)
}

func getUserMeHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var user models.User
	if err := services.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"email":           user.Email,
		"first_name":      user.FirstName,
		"last_name":       user.LastName,
		"plan":            user.Plan,
		"plan_expires_at": user.PlanExpiresAt,
		"credits_find":    user.CreditsFind,
		"credits_verify":  user.CreditsVerify,
		"is_verified":     user.IsVerified,
	})
}

// getUserCreditsHandler emits both field spellings because deployed dashboard
// builds disagree on which one they read.
func getUserCreditsHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var user models.User
	if err := services.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"find":           user.CreditsFind,
		"verify":         user.CreditsVerify,
		"credits_find":   user.CreditsFind,
		"credits_verify": user.CreditsVerify,
	})
}

func getHistoryHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	entries, err := services.ListRequestLogs(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

func saveHistoryHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var entry models.RequestLog
	if err := c.BindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid history entry"})
		return
	}
	entry.UserID = userID

	if err := services.SaveRequestLog(&entry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
