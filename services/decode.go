package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mailscout/mailscout-backend/models"
)

// DecodeError reports a response body that does not match the declared shape
// for an endpoint. It fails loudly instead of probing alternate key paths.
type DecodeError struct {
	Endpoint string
	Reason   string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: unexpected response shape: %s", e.Endpoint, e.Reason)
}

// apiEnvelope carries the failure signals every backend response can set.
type apiEnvelope struct {
	Success  *bool  `json:"success"`
	JWTError bool   `json:"jwtError"`
	Message  string `json:"message"`
}

// authRejected reports whether a response body signals an expired or invalid
// access token: an explicit jwtError flag, success:false, or an
// "unauthorized" message.
func authRejected(body []byte) bool {
	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return false
	}
	if env.JWTError {
		return true
	}
	if env.Success != nil && !*env.Success {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(env.Message), "unauthorized")
}

// FindBulkData is the payload of a successful bulk-find response.
type FindBulkData struct {
	Results      []models.FindResult `json:"results"`
	TotalCredits int                 `json:"totalCredits"`
}

func decodeFindBulkResponse(body []byte) (FindBulkData, error) {
	var resp struct {
		Success bool          `json:"success"`
		Message string        `json:"message"`
		Data    *FindBulkData `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return FindBulkData{}, &DecodeError{Endpoint: "findBulkEmail", Reason: err.Error()}
	}
	if !resp.Success {
		return FindBulkData{}, fmt.Errorf("findBulkEmail: backend reported failure: %s", resp.Message)
	}
	if resp.Data == nil {
		return FindBulkData{}, &DecodeError{Endpoint: "findBulkEmail", Reason: "missing data object"}
	}
	return *resp.Data, nil
}

// VerifyBulkData is the payload of a successful bulk-verify response.
type VerifyBulkData struct {
	Results []models.VerifyResult `json:"results"`
	Summary models.VerifySummary  `json:"summary"`
}

func decodeVerifyBulkResponse(body []byte) (VerifyBulkData, error) {
	var resp struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    *VerifyBulkData `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return VerifyBulkData{}, &DecodeError{Endpoint: "verify-bulk", Reason: err.Error()}
	}
	if !resp.Success {
		return VerifyBulkData{}, fmt.Errorf("verify-bulk: backend reported failure: %s", resp.Message)
	}
	if resp.Data == nil {
		return VerifyBulkData{}, &DecodeError{Endpoint: "verify-bulk", Reason: "missing data object"}
	}
	return *resp.Data, nil
}

func decodeRefreshResponse(body []byte) (Credentials, error) {
	var resp struct {
		Data *struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Credentials{}, &DecodeError{Endpoint: "auth/refresh", Reason: err.Error()}
	}
	if resp.Data == nil || resp.Data.AccessToken == "" {
		return Credentials{}, &DecodeError{Endpoint: "auth/refresh", Reason: "missing access_token"}
	}
	return Credentials{
		AccessToken:  resp.Data.AccessToken,
		RefreshToken: resp.Data.RefreshToken,
	}, nil
}

// CreditBalance is a user's remaining find/verify credit pools.
type CreditBalance struct {
	Find   int
	Verify int
}

// decodeCreditsResponse is the one place that tolerates the backend's field
// aliasing: balances arrive as either find/verify or credits_find/credits_verify,
// possibly nested under data.
func decodeCreditsResponse(body []byte) (CreditBalance, error) {
	type fields struct {
		Find          *int `json:"find"`
		Verify        *int `json:"verify"`
		CreditsFind   *int `json:"credits_find"`
		CreditsVerify *int `json:"credits_verify"`
	}
	var resp struct {
		fields
		Data *fields `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return CreditBalance{}, &DecodeError{Endpoint: "user/credits", Reason: err.Error()}
	}

	f := resp.fields
	if resp.Data != nil {
		f = *resp.Data
	}

	pick := func(a, b *int) (int, bool) {
		if a != nil {
			return *a, true
		}
		if b != nil {
			return *b, true
		}
		return 0, false
	}

	find, okF := pick(f.Find, f.CreditsFind)
	verify, okV := pick(f.Verify, f.CreditsVerify)
	if !okF && !okV {
		return CreditBalance{}, &DecodeError{Endpoint: "user/credits", Reason: "no credit fields present"}
	}
	return CreditBalance{Find: find, Verify: verify}, nil
}
