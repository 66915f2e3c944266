package services

import (
	"log"

	"github.com/mailscout/mailscout-backend/models"
)

// historyLimit caps the API-tester history per user.
const historyLimit = 50

// SaveRequestLog appends one API-tester entry, then prunes the user's history
// down to the cap, oldest first.
func SaveRequestLog(entry *models.RequestLog) error {
	if err := DB.Create(entry).Error; err != nil {
		return err
	}

	var count int64
	DB.Model(&models.RequestLog{}).Where("user_id = ?", entry.UserID).Count(&count)
	if count <= historyLimit {
		return nil
	}

	var stale []models.RequestLog
	if err := DB.Where("user_id = ?", entry.UserID).
		Order("id ASC").
		Limit(int(count) - historyLimit).
		Find(&stale).Error; err != nil {
		return err
	}
	if len(stale) > 0 {
		if err := DB.Delete(&stale).Error; err != nil {
			log.Printf("[History] Failed to prune %d stale entries: %v", len(stale), err)
			return err
		}
	}
	return nil
}

// ListRequestLogs returns the user's history, newest first.
func ListRequestLogs(userID uint) ([]models.RequestLog, error) {
	var entries []models.RequestLog
	err := DB.Where("user_id = ?", userID).
		Order("id DESC").
		Limit(historyLimit).
		Find(&entries).Error
	return entries, err
}
