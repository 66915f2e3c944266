package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
)

// InsufficientCreditsError aborts a run before any batch is dispatched.
type InsufficientCreditsError struct {
	Operation string
	Required  int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("not enough %s credits: %d required, %d available", e.Operation, e.Required, e.Available)
}

// FetchCreditBalance reads the user's current balances from the backend. On
// any failure the caller may fall back to a cached profile.
func (d *Dispatcher) FetchCreditBalance(ctx context.Context) (CreditBalance, error) {
	creds, err := d.Tokens.Get()
	if err != nil {
		return CreditBalance{}, fmt.Errorf("read credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", d.BaseURL+"/api/user/credits", nil)
	if err != nil {
		return CreditBalance{}, err
	}
	if creds.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	}
	if d.MasterKey != "" {
		req.Header.Set("X-Mailscout-Key", d.MasterKey)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return CreditBalance{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return CreditBalance{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return CreditBalance{}, fmt.Errorf("credits check rejected: HTTP %d", resp.StatusCode)
	}
	return decodeCreditsResponse(body)
}

// PreflightCredits is the single point-in-time check before a run starts.
// It is not a reservation: concurrent runs can still overspend, and the
// backend stays the source of truth for actual deduction.
func (d *Dispatcher) PreflightCredits(ctx context.Context, operation string, needed int, cached *CreditBalance) error {
	balance, err := d.FetchCreditBalance(ctx)
	if err != nil {
		if cached == nil {
			return fmt.Errorf("credit check failed: %w", err)
		}
		log.Printf("[Credits] Balance fetch failed, using cached profile: %v", err)
		balance = *cached
	}

	available := balance.Find
	if operation == "verify" {
		available = balance.Verify
	}
	if needed > available {
		return &InsufficientCreditsError{Operation: operation, Required: needed, Available: available}
	}
	return nil
}
