package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailscout/mailscout-backend/models"
)

func TestRequestLogCap(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t)

	for i := 0; i < historyLimit+10; i++ {
		entry := &models.RequestLog{
			UserID:   user.ID,
			Method:   "POST",
			Endpoint: fmt.Sprintf("/api/email/findBulkEmail?n=%d", i),
		}
		require.NoError(t, SaveRequestLog(entry))
	}

	entries, err := ListRequestLogs(user.ID)
	require.NoError(t, err)
	require.Len(t, entries, historyLimit)

	// Newest first, and the ten oldest entries are gone
	assert.Equal(t, fmt.Sprintf("/api/email/findBulkEmail?n=%d", historyLimit+9), entries[0].Endpoint)
	assert.Equal(t, fmt.Sprintf("/api/email/findBulkEmail?n=%d", 10), entries[len(entries)-1].Endpoint)

	var count int64
	DB.Model(&models.RequestLog{}).Where("user_id = ?", user.ID).Count(&count)
	assert.EqualValues(t, historyLimit, count)
}

func TestRequestLogCapPerUser(t *testing.T) {
	setupTestDB(t)
	userA := createTestUser(t)
	userB := models.User{Email: "b@example.com", PasswordHash: "x", IsVerified: true}
	require.NoError(t, DB.Create(&userB).Error)

	for i := 0; i < historyLimit+5; i++ {
		require.NoError(t, SaveRequestLog(&models.RequestLog{UserID: userA.ID, Endpoint: "/a"}))
	}
	require.NoError(t, SaveRequestLog(&models.RequestLog{UserID: userB.ID, Endpoint: "/b"}))

	entriesB, err := ListRequestLogs(userB.ID)
	require.NoError(t, err)
	assert.Len(t, entriesB, 1, "pruning one user's history must not touch another's")
}
