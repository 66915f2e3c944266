package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mailscout/mailscout-backend/models"
)

// ErrMissingUserID means the checkout was created without our user_id in
// custom_data, so the event cannot be attributed. Surfaced as a 500 so the
// provider retries.
var ErrMissingUserID = errors.New("webhook event has no user_id in custom_data")

// VerifyLemonSqueezySignature checks the X-Signature header against an
// HMAC-SHA256 of the raw payload. A "sha256=" prefix on the header value is
// tolerated. Comparison is constant-time.
func VerifyLemonSqueezySignature(secret string, payload []byte, signature string) bool {
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	if secret == "" || signature == "" {
		return false
	}

	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expected)
}

// WebhookEvent is the subset of the Lemon Squeezy event payload we act on.
type WebhookEvent struct {
	Meta struct {
		EventName  string `json:"event_name"`
		CustomData struct {
			UserID string `json:"user_id"`
		} `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		ID         string `json:"id"`
		Type       string `json:"type"`
		Attributes struct {
			Status         string     `json:"status"`
			ProductName    string     `json:"product_name"`
			VariantName    string     `json:"variant_name"`
			UserEmail      string     `json:"user_email"`
			Total          int        `json:"total"`
			Currency       string     `json:"currency"`
			RenewsAt       *time.Time `json:"renews_at"`
			EndsAt         *time.Time `json:"ends_at"`
			FirstOrderItem *struct {
				ProductName string `json:"product_name"`
				VariantName string `json:"variant_name"`
			} `json:"first_order_item"`
		} `json:"attributes"`
	} `json:"data"`
}

// planGrant is what a subscription variant entitles the user to each cycle.
type planGrant struct {
	Plan          string
	CreditsFind   int
	CreditsVerify int
	Days          int
}

// subscriptionPlans maps lowercased variant names to entitlements.
var subscriptionPlans = map[string]planGrant{
	"starter": {Plan: "starter", CreditsFind: 1000, CreditsVerify: 2000, Days: 31},
	"growth":  {Plan: "growth", CreditsFind: 5000, CreditsVerify: 10000, Days: 31},
	"scale":   {Plan: "scale", CreditsFind: 20000, CreditsVerify: 50000, Days: 31},
}

// creditPacks maps one-time order variant names to top-ups.
var creditPacks = map[string]struct{ Find, Verify int }{
	"finder credits 1000":    {Find: 1000},
	"finder credits 5000":    {Find: 5000},
	"verifier credits 2000":  {Verify: 2000},
	"verifier credits 10000": {Verify: 10000},
}

// ProcessWebhookEvent records the event as an immutable transaction and
// applies at most one profile mutation. Replays of the same provider event
// are no-ops. The caller must have verified the signature already.
func ProcessWebhookEvent(raw []byte) error {
	var event WebhookEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return fmt.Errorf("parse webhook payload: %w", err)
	}

	name := event.Meta.EventName
	if name == "" {
		return fmt.Errorf("webhook event has no event_name")
	}

	if event.Meta.CustomData.UserID == "" {
		return ErrMissingUserID
	}
	userID64, err := strconv.ParseUint(event.Meta.CustomData.UserID, 10, 32)
	if err != nil {
		return fmt.Errorf("webhook user_id %q is not numeric: %w", event.Meta.CustomData.UserID, err)
	}
	userID := uint(userID64)

	attrs := event.Data.Attributes
	variant := strings.ToLower(strings.TrimSpace(attrs.VariantName))
	if variant == "" && attrs.FirstOrderItem != nil {
		variant = strings.ToLower(strings.TrimSpace(attrs.FirstOrderItem.VariantName))
	}

	// Event identity for replay protection. Providers retry on 5xx, so the
	// same event can arrive more than once.
	eventID := name + ":" + event.Data.ID
	if event.Data.ID == "" {
		eventID = name + ":" + uuid.NewString()
	}

	return DB.Transaction(func(tx *gorm.DB) error {
		var existing models.Transaction
		err := tx.Where("event_id = ?", eventID).First(&existing).Error
		if err == nil {
			log.Printf("[Billing] Duplicate event %s ignored", eventID)
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			// A transient lookup failure must not be mistaken for a fresh event
			return fmt.Errorf("check event replay: %w", err)
		}

		txn := models.Transaction{
			EventID:     eventID,
			UserID:      userID,
			EventName:   name,
			OrderID:     event.Data.ID,
			ProductName: attrs.ProductName,
			Status:      "completed",
			AmountCents: attrs.Total,
			Currency:    attrs.Currency,
		}

		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return fmt.Errorf("webhook user %d not found: %w", userID, err)
		}

		switch name {
		case "order_created":
			pack, ok := creditPacks[variant]
			if !ok {
				log.Printf("[Billing] Unknown credit pack variant %q, recording without top-up", variant)
				txn.Status = "ignored"
				break
			}
			user.CreditsFind += pack.Find
			user.CreditsVerify += pack.Verify

		case "subscription_created", "subscription_updated", "subscription_payment_success":
			grant, ok := subscriptionPlans[variant]
			if !ok {
				log.Printf("[Billing] Unknown plan variant %q, recording without plan change", variant)
				txn.Status = "ignored"
				break
			}
			user.Plan = grant.Plan
			user.CreditsFind += grant.CreditsFind
			user.CreditsVerify += grant.CreditsVerify
			expiry := time.Now().AddDate(0, 0, grant.Days)
			if attrs.RenewsAt != nil {
				expiry = *attrs.RenewsAt
			}
			user.PlanExpiresAt = &expiry

		case "subscription_cancelled", "subscription_expired":
			user.Plan = "free"
			user.PlanExpiresAt = nil

		case "subscription_payment_failed":
			log.Printf("[Billing] Payment failed for user %d (order %s), no profile change", userID, event.Data.ID)

		default:
			log.Printf("[Billing] Unhandled event %q, recording only", name)
		}

		if err := tx.Create(&txn).Error; err != nil {
			return fmt.Errorf("record transaction: %w", err)
		}
		if err := tx.Save(&user).Error; err != nil {
			return fmt.Errorf("apply profile mutation: %w", err)
		}
		return nil
	})
}
