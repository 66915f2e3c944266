package models

import (
	"time"

	"gorm.io/gorm"
)

// ========================
// DATABASE MODELS
// ========================

// User represents a registered dashboard account. Find and verify credits are
// separate pools, both mutated only by the billing webhook and by successful
// find/verify operations.
type User struct {
	gorm.Model
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Email            string `gorm:"uniqueIndex;not null"`
	PasswordHash     string `gorm:"not null"`
	VerificationCode string
	IsVerified       bool       `gorm:"default:false"`
	CreditsFind      int        `gorm:"default:25" json:"credits_find"`
	CreditsVerify    int        `gorm:"default:50" json:"credits_verify"`
	Plan             string     `gorm:"default:free" json:"plan"`
	PlanExpiresAt    *time.Time `json:"plan_expires_at,omitempty"`
	Role             string     `gorm:"default:user" json:"role"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Transaction is an immutable record of one billing-provider webhook event.
// EventID carries the provider's event identity so replays are no-ops.
type Transaction struct {
	gorm.Model
	EventID     string `gorm:"uniqueIndex;not null"`
	UserID      uint   `gorm:"index;not null"`
	EventName   string
	OrderID     string
	ProductName string
	Status      string // "completed" or "ignored"
	AmountCents int
	Currency    string
}

// RequestLog is one entry of the API-tester history, capped at 50 per user.
type RequestLog struct {
	gorm.Model
	UserID     uint   `gorm:"index;not null" json:"-"`
	Method     string `json:"method"`
	Endpoint   string `json:"endpoint"`
	Payload    string `json:"payload"`
	StatusCode int    `json:"status_code"`
	DurationMS int64  `json:"duration_ms"`
}

// UsageLog tracks credits spent per bulk operation for the usage page.
type UsageLog struct {
	gorm.Model
	UserID      uint   `gorm:"index;not null"`
	Operation   string // "find" or "verify"
	ItemCount   int
	CreditsUsed int `gorm:"default:0"`
}

// ========================
// API REQUEST PAYLOADS
// ========================

// FindBulkItem is one normalized unit of work for the bulk finder.
type FindBulkItem struct {
	Domain    string `json:"domain"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type VerifyBulkRequest struct {
	Emails []string `json:"emails"`
}

// FindResult is the per-item outcome returned by the finder.
type FindResult struct {
	Domain     string  `json:"domain"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Email      string  `json:"email"`
	Status     string  `json:"status"`
	Confidence float64 `json:"confidence,omitempty"`
}

// VerifyResult is the per-email outcome of a verification pass.
// Status is one of: valid, invalid, risky, unknown, error.
type VerifyResult struct {
	Email  string `json:"email"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// VerifySummary aggregates a verify-bulk run.
type VerifySummary struct {
	ValidEmails   int `json:"valid_emails"`
	InvalidEmails int `json:"invalid_emails"`
	UnknownEmails int `json:"unknown_emails"`
	TotalEmails   int `json:"total_emails"`
}
