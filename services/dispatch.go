package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/mailscout/mailscout-backend/models"
)

// DefaultBatchSize keeps individual requests under the backend's payload limit.
const DefaultBatchSize = 100

// Progress is emitted after every batch, success or failure. Completed and
// CurrentBatch only ever grow within a run; Total and TotalBatches are fixed
// at run start.
type Progress struct {
	Completed    int
	Total        int
	CurrentBatch int
	TotalBatches int
}

type ProgressFunc func(Progress)

// BatchOutcome records what one batch produced. A failed batch carries Err
// and contributes zero credits; the run continues past it.
type BatchOutcome struct {
	Batch   int // 1-based index
	Items   int
	Credits int
	Err     error
}

func (o BatchOutcome) Failed() bool { return o.Err != nil }

// RunResult aggregates a bulk-find run.
type RunResult struct {
	TotalCredits int
	Results      []models.FindResult
	Batches      []BatchOutcome
}

// FailedBatches returns the outcomes of batches that were dropped after
// exhausting their single retry.
func (r RunResult) FailedBatches() []BatchOutcome {
	var failed []BatchOutcome
	for _, b := range r.Batches {
		if b.Failed() {
			failed = append(failed, b)
		}
	}
	return failed
}

// VerifyRow is one source row of a bulk-verify run. Status moves through
// pending → processing → {valid, invalid, risky, unknown, error}.
type VerifyRow struct {
	Email  string
	Status string
	Reason string
}

// VerifyRunResult aggregates a bulk-verify run; per-row statuses are written
// onto the rows themselves.
type VerifyRunResult struct {
	Summary models.VerifySummary
	Batches []BatchOutcome
}

// Dispatcher drives the sequential batch-submission loop against the backend.
// Batch i+1 is never sent before batch i settles, and an auth rejection gets
// exactly one token refresh followed by exactly one retry of the same batch.
type Dispatcher struct {
	BaseURL    string
	Client     *http.Client
	Tokens     TokenStore
	BatchSize  int
	OnProgress ProgressFunc
	// MasterKey satisfies the backend's deployment guard when set
	MasterKey string
}

func NewDispatcher(baseURL string, tokens TokenStore) *Dispatcher {
	return &Dispatcher{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Client:    http.DefaultClient,
		Tokens:    tokens,
		BatchSize: DefaultBatchSize,
	}
}

func (d *Dispatcher) batchSize() int {
	if d.BatchSize > 0 {
		return d.BatchSize
	}
	return DefaultBatchSize
}

func (d *Dispatcher) report(p Progress) {
	if d.OnProgress != nil {
		d.OnProgress(p)
	}
}

// RunFind submits all items in order and folds per-batch outcomes into a
// RunResult. Batch failures are recorded, never raised; the only error return
// is context cancellation.
func (d *Dispatcher) RunFind(ctx context.Context, items []models.FindBulkItem) (RunResult, error) {
	batches := Chunk(items, d.batchSize())
	res := RunResult{}
	completed := 0

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		outcome := BatchOutcome{Batch: i + 1, Items: len(batch)}
		body, err := d.postBatch(ctx, "/api/email/findBulkEmail", batch)
		if err == nil {
			var data FindBulkData
			data, err = decodeFindBulkResponse(body)
			if err == nil {
				outcome.Credits = data.TotalCredits
				res.TotalCredits += data.TotalCredits
				res.Results = append(res.Results, data.Results...)
			}
		}
		if err != nil {
			outcome.Err = err
			log.Printf("[Dispatch] Batch %d/%d dropped: %v", i+1, len(batches), err)
		}
		res.Batches = append(res.Batches, outcome)

		completed += len(batch)
		d.report(Progress{
			Completed:    completed,
			Total:        len(items),
			CurrentBatch: i + 1,
			TotalBatches: len(batches),
		})
	}

	return res, nil
}

// RunVerify submits the rows' emails in order and merges per-email statuses
// back onto the source rows, matched by lowercased address. Rows in a dropped
// batch are marked "error".
func (d *Dispatcher) RunVerify(ctx context.Context, rows []*VerifyRow) (VerifyRunResult, error) {
	batches := Chunk(rows, d.batchSize())
	res := VerifyRunResult{}
	completed := 0

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		emails := make([]string, len(batch))
		for j, row := range batch {
			row.Status = "processing"
			emails[j] = strings.ToLower(strings.TrimSpace(row.Email))
		}

		outcome := BatchOutcome{Batch: i + 1, Items: len(batch)}
		body, err := d.postBatch(ctx, "/verify-bulk", models.VerifyBulkRequest{Emails: emails})
		if err == nil {
			var data VerifyBulkData
			data, err = decodeVerifyBulkResponse(body)
			if err == nil {
				mergeVerifyResults(batch, data.Results)
				res.Summary.ValidEmails += data.Summary.ValidEmails
				res.Summary.InvalidEmails += data.Summary.InvalidEmails
				res.Summary.UnknownEmails += data.Summary.UnknownEmails
				res.Summary.TotalEmails += data.Summary.TotalEmails
			}
		}
		if err != nil {
			outcome.Err = err
			for _, row := range batch {
				row.Status = "error"
				row.Reason = err.Error()
			}
			log.Printf("[Dispatch] Verify batch %d/%d dropped: %v", i+1, len(batches), err)
		}
		res.Batches = append(res.Batches, outcome)

		completed += len(batch)
		d.report(Progress{
			Completed:    completed,
			Total:        len(rows),
			CurrentBatch: i + 1,
			TotalBatches: len(batches),
		})
	}

	return res, nil
}

func mergeVerifyResults(rows []*VerifyRow, results []models.VerifyResult) {
	byEmail := make(map[string]models.VerifyResult, len(results))
	for _, r := range results {
		byEmail[strings.ToLower(strings.TrimSpace(r.Email))] = r
	}
	for _, row := range rows {
		r, ok := byEmail[strings.ToLower(strings.TrimSpace(row.Email))]
		if !ok {
			row.Status = "unknown"
			continue
		}
		row.Status = r.Status
		row.Reason = r.Reason
	}
}

// postBatch sends one batch with the stored access token. On a non-OK status
// or an auth-rejecting body it refreshes the token pair once and retries the
// same batch once; any further failure is the batch's final state.
func (d *Dispatcher) postBatch(ctx context.Context, path string, payload any) ([]byte, error) {
	status, body, err := d.doPost(ctx, path, payload)
	if err == nil && status == http.StatusOK && !authRejected(body) {
		return body, nil
	}

	if refreshErr := d.refreshTokens(ctx); refreshErr != nil {
		if err != nil {
			return nil, fmt.Errorf("batch failed (%v) and token refresh failed: %w", err, refreshErr)
		}
		return nil, fmt.Errorf("batch rejected (HTTP %d) and token refresh failed: %w", status, refreshErr)
	}

	status, body, err = d.doPost(ctx, path, payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("batch rejected after retry: HTTP %d", status)
	}
	if authRejected(body) {
		return nil, fmt.Errorf("batch still unauthorized after token refresh")
	}
	return body, nil
}

func (d *Dispatcher) doPost(ctx context.Context, path string, payload any) (int, []byte, error) {
	creds, err := d.Tokens.Get()
	if err != nil {
		return 0, nil, fmt.Errorf("read credentials: %w", err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", d.BaseURL+path, bytes.NewBuffer(data))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if creds.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	}
	if d.MasterKey != "" {
		req.Header.Set("X-Mailscout-Key", d.MasterKey)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

// refreshTokens exchanges the stored refresh token for a new pair and
// persists it. The refresh token travels in its own header, not Authorization.
func (d *Dispatcher) refreshTokens(ctx context.Context) error {
	creds, err := d.Tokens.Get()
	if err != nil {
		return fmt.Errorf("read credentials: %w", err)
	}
	if creds.RefreshToken == "" {
		return fmt.Errorf("no refresh token available")
	}

	req, err := http.NewRequestWithContext(ctx, "GET", d.BaseURL+"/api/user/auth/refresh", nil)
	if err != nil {
		return err
	}
	req.Header.Set("refreshtoken", "Bearer "+creds.RefreshToken)
	if d.MasterKey != "" {
		req.Header.Set("X-Mailscout-Key", d.MasterKey)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("refresh rejected: HTTP %d", resp.StatusCode)
	}

	fresh, err := decodeRefreshResponse(body)
	if err != nil {
		return err
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = creds.RefreshToken
	}
	if err := d.Tokens.Set(fresh); err != nil {
		return fmt.Errorf("persist refreshed tokens: %w", err)
	}
	log.Printf("[Dispatch] Access token refreshed")
	return nil
}
