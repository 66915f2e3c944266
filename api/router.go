package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine) {
	// The verifier lives at the backend root for the dashboard's direct calls
	r.POST("/verify-bulk", BackendKeyMiddleware(), AuthMiddleware(), verifyBulkHandler)

	// The billing provider cannot send the master key; its payloads are
	// authenticated by signature instead
	r.POST("/api/webhooks/billing", billingWebhookHandler)

	apiGroup := r.Group("/api", BackendKeyMiddleware())
	{
		apiGroup.GET("/health", healthCheck)

		authGroup := apiGroup.Group("/user/auth")
		{
			authGroup.POST("/signup", signupHandler)
			authGroup.POST("/verify", verifyHandler)
			authGroup.POST("/login", loginHandler)
			authGroup.GET("/refresh", refreshHandler)
		}

		authed := apiGroup.Group("")
		authed.Use(AuthMiddleware())
		{
			authed.GET("/user/me", getUserMeHandler)
			authed.GET("/user/credits", getUserCreditsHandler)
			authed.POST("/email/findBulkEmail", findBulkEmailHandler)
			authed.GET("/keys", getKeys)
			authed.POST("/keys", saveKeys)
			authed.GET("/history", getHistoryHandler)
			authed.POST("/history", saveHistoryHandler)
		}

		admin := apiGroup.Group("/admin")
		admin.Use(AuthMiddleware(), AdminMiddleware())
		{
			admin.GET("/users", listUsersHandler)
			admin.PUT("/users/:id/credits", updateUserCreditsHandler)
			admin.PUT("/users/:id/role", updateUserRoleHandler)
			admin.GET("/stats", getSystemStatsHandler)
		}
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
