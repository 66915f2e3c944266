package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func creditsServer(t *testing.T, find, verify int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/credits", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"credits_find":   find,
			"credits_verify": verify,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPreflightCreditsSufficient(t *testing.T) {
	srv := creditsServer(t, 500, 100)
	d := NewDispatcher(srv.URL, NewMemTokenStore(Credentials{AccessToken: "ok"}))

	assert.NoError(t, d.PreflightCredits(context.Background(), "find", 250, nil))
	assert.NoError(t, d.PreflightCredits(context.Background(), "verify", 100, nil))
}

func TestPreflightCreditsInsufficient(t *testing.T) {
	srv := creditsServer(t, 10, 5)
	d := NewDispatcher(srv.URL, NewMemTokenStore(Credentials{AccessToken: "ok"}))

	err := d.PreflightCredits(context.Background(), "find", 250, nil)
	var insufficient *InsufficientCreditsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "find", insufficient.Operation)
	assert.Equal(t, 250, insufficient.Required)
	assert.Equal(t, 10, insufficient.Available)

	err = d.PreflightCredits(context.Background(), "verify", 6, nil)
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 5, insufficient.Available)
}

func TestPreflightCreditsCachedFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewDispatcher(srv.URL, NewMemTokenStore(Credentials{AccessToken: "ok"}))
	cached := &CreditBalance{Find: 100, Verify: 0}

	assert.NoError(t, d.PreflightCredits(context.Background(), "find", 100, cached))

	var insufficient *InsufficientCreditsError
	err := d.PreflightCredits(context.Background(), "verify", 1, cached)
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 0, insufficient.Available)
}

func TestPreflightCreditsFetchFailedNoCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewDispatcher(srv.URL, NewMemTokenStore(Credentials{AccessToken: "ok"}))

	err := d.PreflightCredits(context.Background(), "find", 1, nil)
	require.Error(t, err)
	var insufficient *InsufficientCreditsError
	assert.NotErrorAs(t, err, &insufficient, "an unreachable backend is not an insufficient balance")
}

func TestFetchCreditBalance(t *testing.T) {
	srv := creditsServer(t, 42, 7)
	d := NewDispatcher(srv.URL, NewMemTokenStore(Credentials{AccessToken: "ok"}))

	balance, err := d.FetchCreditBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CreditBalance{Find: 42, Verify: 7}, balance)
}
