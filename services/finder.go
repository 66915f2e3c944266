package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/mailscout/mailscout-backend/models"
)

// The finder/verifier engine is an opaque upstream service. This client only
// forwards requests and normalises its responses; confidence scoring and SMTP
// probing happen on the other side.

func finderBaseURL() string {
	if v := os.Getenv("FINDER_API_URL"); v != "" {
		return strings.TrimRight(v, "/")
	}
	return "https://engine.mailscout.dev"
}

type finderFindReq struct {
	Domain    string `json:"domain"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type finderFindResp struct {
	Email      string  `json:"email"`
	Status     string  `json:"status"`
	Confidence float64 `json:"confidence"`
	Score      float64 `json:"score"` // some engine versions return "score" instead of "confidence"
	Error      string  `json:"error"`
	Message    string  `json:"message"`
}

func upstreamErrorMessage(statusCode int, raw []byte) string {
	var errBody struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &errBody)
	msg := errBody.Error
	if msg == "" {
		msg = errBody.Message
	}
	if msg == "" {
		switch statusCode {
		case http.StatusBadRequest:
			msg = "Bad Request (check input format)"
		case http.StatusUnauthorized:
			msg = "Unauthorized (check engine API key)"
		case http.StatusPaymentRequired: // 402
			msg = "Payment Needed (out of engine credits)"
		case http.StatusTooManyRequests: // 429
			msg = "Too Many Requests (rate limit exceeded)"
		default:
			msg = fmt.Sprintf("HTTP %d", statusCode)
		}
	}
	return msg
}

// FindEmailUpstream asks the engine for one person's email at a domain.
func FindEmailUpstream(item models.FindBulkItem) (models.FindResult, error) {
	result := models.FindResult{
		Domain:    item.Domain,
		FirstName: item.FirstName,
		LastName:  item.LastName,
		Status:    "not_found",
	}

	apiKey := os.Getenv("FINDER_API_KEY")
	if apiKey == "" {
		return result, fmt.Errorf("FINDER_API_KEY not set")
	}

	body, _ := json.Marshal(finderFindReq(item))
	req, err := http.NewRequest("POST", finderBaseURL()+"/v1/find", bytes.NewBuffer(body))
	if err != nil {
		return result, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return result, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("Engine: %s", upstreamErrorMessage(resp.StatusCode, raw))
	}

	var data finderFindResp
	if err := json.Unmarshal(raw, &data); err != nil {
		return result, fmt.Errorf("Engine parse error: %w", err)
	}

	if data.Email == "" {
		return result, nil
	}

	// Normalise: some engine versions use "score", others "confidence"
	conf := data.Confidence
	if conf == 0 {
		conf = data.Score
	}

	result.Email = strings.ToLower(strings.TrimSpace(data.Email))
	result.Status = data.Status
	if result.Status == "" {
		result.Status = "found"
	}
	result.Confidence = conf
	return result, nil
}

type verifierResp struct {
	Email  string `json:"email"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// verifyStatuses the dashboard understands; anything else collapses to unknown.
var verifyStatuses = map[string]bool{
	"valid":   true,
	"invalid": true,
	"risky":   true,
	"unknown": true,
}

// VerifyEmailUpstream checks one address with the engine, consulting the
// local TTL cache first so repeated uploads do not burn engine credits.
func VerifyEmailUpstream(email string) (models.VerifyResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	result := models.VerifyResult{Email: email, Status: "unknown"}

	if cached, ok := GetCachedVerification(email); ok {
		log.Printf("[Engine] Cache hit: %s → %s", email, cached.Status)
		return cached, nil
	}

	apiKey := os.Getenv("FINDER_API_KEY")
	if apiKey == "" {
		return result, fmt.Errorf("FINDER_API_KEY not set")
	}

	body, _ := json.Marshal(map[string]string{"email": email})
	req, err := http.NewRequest("POST", finderBaseURL()+"/v1/verify", bytes.NewBuffer(body))
	if err != nil {
		return result, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return result, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("Engine verify: %s", upstreamErrorMessage(resp.StatusCode, raw))
	}

	var data verifierResp
	if err := json.Unmarshal(raw, &data); err != nil {
		return result, fmt.Errorf("Engine verify parse error: %w", err)
	}

	status := strings.ToLower(strings.TrimSpace(data.Status))
	if !verifyStatuses[status] {
		status = "unknown"
	}

	result.Status = status
	result.Reason = data.Reason
	SetCachedVerification(email, result)
	return result, nil
}
