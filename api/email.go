package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mailscout/mailscout-backend/models"
	"github.com/mailscout/mailscout-backend/services"
)

// maxBatchItems rejects oversized batches outright; well-behaved clients
// chunk to 100 before sending.
const maxBatchItems = 500

// findBulkEmailHandler resolves one batch of normalized find requests.
// Credits are charged only for items the engine actually resolved.
func findBulkEmailHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
		return
	}

	var items []models.FindBulkItem
	if err := c.BindJSON(&items); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Expected a JSON array of find requests"})
		return
	}
	if len(items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No items provided"})
		return
	}
	if len(items) > maxBatchItems {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "Batch too large"})
		return
	}

	var user models.User
	if err := services.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "User not found"})
		return
	}
	if user.CreditsFind < len(items) {
		c.JSON(http.StatusPaymentRequired, gin.H{"success": false, "error": "Insufficient find credits"})
		return
	}

	results := make([]models.FindResult, 0, len(items))
	credits := 0
	for _, item := range items {
		result, err := services.FindEmailUpstream(item)
		if err != nil {
			log.Printf("[FindBulk] %s/%s %s: %v", item.FirstName, item.LastName, item.Domain, err)
			result.Status = "error"
		}
		if result.Email != "" {
			credits++
		}
		results = append(results, result)
	}

	if credits > 0 {
		if err := services.DB.Model(&models.User{}).Where("id = ?", userID).
			Update("credits_find", user.CreditsFind-credits).Error; err != nil {
			log.Printf("[FindBulk] Failed to deduct %d credits for user %d: %v", credits, userID, err)
		}
		services.DB.Create(&models.UsageLog{
			UserID:      userID,
			Operation:   "find",
			ItemCount:   len(items),
			CreditsUsed: credits,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"results":      results,
			"totalCredits": credits,
		},
	})
}

// verifyBulkHandler checks one batch of addresses and returns per-email
// verdicts plus a summary.
func verifyBulkHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
		return
	}

	var req models.VerifyBulkRequest
	if err := c.BindJSON(&req); err != nil || len(req.Emails) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Expected a non-empty emails array"})
		return
	}
	if len(req.Emails) > maxBatchItems {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "Batch too large"})
		return
	}

	var user models.User
	if err := services.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "User not found"})
		return
	}
	if user.CreditsVerify < len(req.Emails) {
		c.JSON(http.StatusPaymentRequired, gin.H{"success": false, "error": "Insufficient verify credits"})
		return
	}

	results := make([]models.VerifyResult, 0, len(req.Emails))
	summary := models.VerifySummary{TotalEmails: len(req.Emails)}
	charged := 0
	for _, email := range req.Emails {
		result, err := services.VerifyEmailUpstream(email)
		if err != nil {
			log.Printf("[VerifyBulk] %s: %v", email, err)
			result.Status = "error"
			result.Reason = err.Error()
		} else {
			charged++
		}
		switch result.Status {
		case "valid":
			summary.ValidEmails++
		case "invalid", "risky":
			summary.InvalidEmails++
		default:
			summary.UnknownEmails++
		}
		results = append(results, result)
	}

	if charged > 0 {
		if err := services.DB.Model(&models.User{}).Where("id = ?", userID).
			Update("credits_verify", user.CreditsVerify-charged).Error; err != nil {
			log.Printf("[VerifyBulk] Failed to deduct %d credits for user %d: %v", charged, userID, err)
		}
		services.DB.Create(&models.UsageLog{
			UserID:      userID,
			Operation:   "verify",
			ItemCount:   len(req.Emails),
			CreditsUsed: charged,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"results": results,
			"summary": summary,
		},
	})
}
