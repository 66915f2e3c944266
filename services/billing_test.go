package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mailscout/mailscout-backend/models"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&models.User{},
		&models.Transaction{},
		&models.RequestLog{},
		&models.UsageLog{},
	))
	DB = gdb
}

func createTestUser(t *testing.T) models.User {
	t.Helper()
	user := models.User{
		Email:         "buyer@example.com",
		PasswordHash:  "x",
		IsVerified:    true,
		Plan:          "free",
		CreditsFind:   25,
		CreditsVerify: 50,
	}
	require.NoError(t, DB.Create(&user).Error)
	return user
}

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyLemonSqueezySignature(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"meta":{"event_name":"order_created"}}`)
	sig := sign(secret, payload)

	assert.True(t, VerifyLemonSqueezySignature(secret, payload, sig))
	assert.True(t, VerifyLemonSqueezySignature(secret, payload, "sha256="+sig))

	// Tampering a single byte of the payload after signing must fail
	tampered := append([]byte{}, payload...)
	tampered[0] = '['
	assert.False(t, VerifyLemonSqueezySignature(secret, tampered, sig))

	assert.False(t, VerifyLemonSqueezySignature(secret, payload, ""))
	assert.False(t, VerifyLemonSqueezySignature(secret, payload, "not-hex"))
	assert.False(t, VerifyLemonSqueezySignature("", payload, sig))
	assert.False(t, VerifyLemonSqueezySignature("wrong-secret", payload, sig))
}

func webhookPayload(eventName, userID, eventID, variant string) []byte {
	payload := map[string]any{
		"meta": map[string]any{
			"event_name":  eventName,
			"custom_data": map[string]any{"user_id": userID},
		},
		"data": map[string]any{
			"id":   eventID,
			"type": "orders",
			"attributes": map[string]any{
				"status":       "paid",
				"product_name": "MailScout Credits",
				"variant_name": variant,
				"total":        900,
				"currency":     "USD",
			},
		},
	}
	raw, _ := json.Marshal(payload)
	return raw
}

func TestProcessWebhookOrderCreated(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t)

	raw := webhookPayload("order_created", fmt.Sprint(user.ID), "ord_1", "Finder Credits 1000")
	require.NoError(t, ProcessWebhookEvent(raw))

	var updated models.User
	require.NoError(t, DB.First(&updated, user.ID).Error)
	assert.Equal(t, user.CreditsFind+1000, updated.CreditsFind)
	assert.Equal(t, user.CreditsVerify, updated.CreditsVerify)

	var txn models.Transaction
	require.NoError(t, DB.Where("event_id = ?", "order_created:ord_1").First(&txn).Error)
	assert.Equal(t, "completed", txn.Status)
	assert.Equal(t, user.ID, txn.UserID)
	assert.Equal(t, 900, txn.AmountCents)
}

func TestProcessWebhookReplayIsNoop(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t)

	raw := webhookPayload("order_created", fmt.Sprint(user.ID), "ord_dup", "Finder Credits 1000")
	require.NoError(t, ProcessWebhookEvent(raw))
	require.NoError(t, ProcessWebhookEvent(raw))

	var updated models.User
	require.NoError(t, DB.First(&updated, user.ID).Error)
	assert.Equal(t, user.CreditsFind+1000, updated.CreditsFind, "replay must not double-credit")

	var count int64
	DB.Model(&models.Transaction{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestProcessWebhookReplayCheckFailure(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t)
	require.NoError(t, DB.Migrator().DropTable(&models.Transaction{}))

	raw := webhookPayload("order_created", fmt.Sprint(user.ID), "ord_err", "Finder Credits 1000")
	err := ProcessWebhookEvent(raw)
	require.Error(t, err)
	assert.ErrorContains(t, err, "check event replay")

	var updated models.User
	require.NoError(t, DB.First(&updated, user.ID).Error)
	assert.Equal(t, user.CreditsFind, updated.CreditsFind, "a failed replay check must not mutate the profile")
}

func TestProcessWebhookSubscriptionLifecycle(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t)

	require.NoError(t, ProcessWebhookEvent(
		webhookPayload("subscription_created", fmt.Sprint(user.ID), "sub_1", "Growth")))

	var updated models.User
	require.NoError(t, DB.First(&updated, user.ID).Error)
	assert.Equal(t, "growth", updated.Plan)
	assert.Equal(t, user.CreditsFind+5000, updated.CreditsFind)
	assert.Equal(t, user.CreditsVerify+10000, updated.CreditsVerify)
	require.NotNil(t, updated.PlanExpiresAt)

	require.NoError(t, ProcessWebhookEvent(
		webhookPayload("subscription_cancelled", fmt.Sprint(user.ID), "sub_2", "Growth")))

	// Reload into a fresh struct: GORM leaves a stale pointer field untouched
	// when scanning a NULL column into a reused destination.
	updated = models.User{}
	require.NoError(t, DB.First(&updated, user.ID).Error)
	assert.Equal(t, "free", updated.Plan)
	assert.Nil(t, updated.PlanExpiresAt)
	// Remaining credits survive a downgrade
	assert.Equal(t, user.CreditsFind+5000, updated.CreditsFind)
}

func TestProcessWebhookPaymentFailedNoMutation(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t)

	require.NoError(t, ProcessWebhookEvent(
		webhookPayload("subscription_payment_failed", fmt.Sprint(user.ID), "sub_pf", "Growth")))

	var updated models.User
	require.NoError(t, DB.First(&updated, user.ID).Error)
	assert.Equal(t, user.Plan, updated.Plan)
	assert.Equal(t, user.CreditsFind, updated.CreditsFind)

	var txn models.Transaction
	require.NoError(t, DB.Where("event_name = ?", "subscription_payment_failed").First(&txn).Error)
}

func TestProcessWebhookUnhandledEventRecordedOnly(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t)

	require.NoError(t, ProcessWebhookEvent(
		webhookPayload("license_key_created", fmt.Sprint(user.ID), "lk_1", "")))

	var updated models.User
	require.NoError(t, DB.First(&updated, user.ID).Error)
	assert.Equal(t, user.CreditsFind, updated.CreditsFind)

	var count int64
	DB.Model(&models.Transaction{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestProcessWebhookMissingUserID(t *testing.T) {
	setupTestDB(t)

	raw := webhookPayload("order_created", "", "ord_x", "Finder Credits 1000")
	err := ProcessWebhookEvent(raw)
	assert.ErrorIs(t, err, ErrMissingUserID)

	var count int64
	DB.Model(&models.Transaction{}).Count(&count)
	assert.EqualValues(t, 0, count, "no mutation before attribution")
}

func TestProcessWebhookUnknownVariantIgnored(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t)

	require.NoError(t, ProcessWebhookEvent(
		webhookPayload("order_created", fmt.Sprint(user.ID), "ord_v", "Mystery Pack")))

	var updated models.User
	require.NoError(t, DB.First(&updated, user.ID).Error)
	assert.Equal(t, user.CreditsFind, updated.CreditsFind)

	var txn models.Transaction
	require.NoError(t, DB.Where("event_id = ?", "order_created:ord_v").First(&txn).Error)
	assert.Equal(t, "ignored", txn.Status)
}
