package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mailscout/mailscout-backend/models"
	"github.com/mailscout/mailscout-backend/services"
)

// ListUsersHandler returns all users for admin management
func listUsersHandler(c *gin.Context) {
	var users []models.User
	if err := services.DB.Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}
	c.JSON(http.StatusOK, users)
}

type UpdateCreditsRequest struct {
	CreditsFind   *int `json:"credits_find"`
	CreditsVerify *int `json:"credits_verify"`
}

// UpdateUserCreditsHandler allows admins to adjust either credit pool
func updateUserCreditsHandler(c *gin.Context) {
	id := c.Param("id")
	userID, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req UpdateCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.CreditsFind == nil && req.CreditsVerify == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	updates := map[string]any{}
	if req.CreditsFind != nil {
		updates["credits_find"] = *req.CreditsFind
	}
	if req.CreditsVerify != nil {
		updates["credits_verify"] = *req.CreditsVerify
	}

	if err := services.DB.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update credits"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Credits updated successfully"})
}

type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// UpdateUserRoleHandler allows admins to promote/demote users
func updateUserRoleHandler(c *gin.Context) {
	id := c.Param("id")
	userID, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if req.Role != "admin" && req.Role != "user" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}

	if err := services.DB.Model(&models.User{}).Where("id = ?", userID).Update("role", req.Role).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update role"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Role updated successfully"})
}

// GetSystemStatsHandler returns aggregate system monitoring data
func getSystemStatsHandler(c *gin.Context) {
	var userCount int64
	var verifiedUsers int64
	var findCredits int64
	var verifyCredits int64

	services.DB.Model(&models.User{}).Count(&userCount)
	services.DB.Model(&models.User{}).Where("is_verified = ?", true).Count(&verifiedUsers)
	services.DB.Model(&models.UsageLog{}).Where("operation = ?", "find").Select("sum(credits_used)").Row().Scan(&findCredits)
	services.DB.Model(&models.UsageLog{}).Where("operation = ?", "verify").Select("sum(credits_used)").Row().Scan(&verifyCredits)

	c.JSON(http.StatusOK, gin.H{
		"total_users":          userCount,
		"verified_users":       verifiedUsers,
		"find_credits_spent":   findCredits,
		"verify_credits_spent": verifyCredits,
	})
}
