package api

import (
	"errors"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/mailscout/mailscout-backend/services"
)

// billingWebhookHandler receives Lemon Squeezy events. The signature is
// checked over the raw body before anything is parsed or written; a 5xx tells
// the provider to retry, which ProcessWebhookEvent makes safe via event-id
// deduplication.
func billingWebhookHandler(c *gin.Context) {
	secret := os.Getenv("LEMONSQUEEZY_WEBHOOK_SECRET")
	if secret == "" {
		log.Printf("[Billing] LEMONSQUEEZY_WEBHOOK_SECRET not set, rejecting webhook")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Webhook not configured"})
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable body"})
		return
	}

	signature := c.GetHeader("X-Signature")
	if !services.VerifyLemonSqueezySignature(secret, payload, signature) {
		log.Printf("[Billing] Webhook signature mismatch")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	if err := services.ProcessWebhookEvent(payload); err != nil {
		if errors.Is(err, services.ErrMissingUserID) {
			log.Printf("[Billing] Event missing user_id: %v", err)
		} else {
			log.Printf("[Billing] Event processing failed: %v", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Event processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
