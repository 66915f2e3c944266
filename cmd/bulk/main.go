// cmd/bulk/main.go
// Bulk find/verify runner for MailScout CSV uploads.
// Usage:
//   go run cmd/bulk/main.go --csv leads.csv --mode find --name-col "Full Name" --domain-col "Website"
//   go run cmd/bulk/main.go --csv emails.csv --mode verify --email-col "Email"
//
// Rows are normalised, chunked into batches of --batch-size, and submitted
// sequentially. A batch that fails even after one token refresh is dropped
// and the run continues; the summary at the end reports dropped batches.

package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mailscout/mailscout-backend/db"
	"github.com/mailscout/mailscout-backend/services"
)

func main() {
	csvPath := flag.String("csv", "", "Path to the input CSV")
	mode := flag.String("mode", "find", `Pipeline mode: "find" or "verify"`)
	apiBase := flag.String("api", "http://localhost:8780", "Backend base URL")
	batchSize := flag.Int("batch-size", services.DefaultBatchSize, "Items per batch")
	nameCol := flag.String("name-col", "", "Column holding the full name (find mode)")
	firstCol := flag.String("first-col", "", "Column holding the first name (alternative to --name-col)")
	lastCol := flag.String("last-col", "", "Column holding the last name (alternative to --name-col)")
	domainCol := flag.String("domain-col", "", "Column holding the domain or website (find mode)")
	emailCol := flag.String("email-col", "", "Column holding the email address (verify mode)")
	tokenPath := flag.String("tokens", "", "Path to the token file (defaults to the user config dir)")
	historyPath := flag.String("history-db", "", "Path to the local run-history database")
	flag.Parse()

	_ = godotenv.Load(".env")

	if *csvPath == "" {
		log.Fatal("--csv flag is required")
	}

	headers, rows := readCSV(*csvPath)
	log.Printf("Loaded %d rows from %s", len(rows), *csvPath)

	dispatcher := services.NewDispatcher(*apiBase, services.NewFileTokenStore(*tokenPath))
	dispatcher.BatchSize = *batchSize
	dispatcher.MasterKey = os.Getenv("MAILSCOUT_API_KEY")
	dispatcher.OnProgress = func(p services.Progress) {
		log.Printf("Progress: %d/%d items (batch %d of %d)", p.Completed, p.Total, p.CurrentBatch, p.TotalBatches)
	}

	ctx := context.Background()
	started := time.Now()

	var rec db.RunRecord
	rec.Mode = *mode
	rec.Source = *csvPath

	switch *mode {
	case "find":
		if *domainCol == "" {
			log.Fatal("--domain-col is required in find mode")
		}
		if *nameCol == "" && *firstCol == "" {
			log.Fatal("either --name-col or --first-col/--last-col is required in find mode")
		}

		items := services.NormalizeRows(headers, rows, services.ColumnMapping{
			FullName:  *nameCol,
			FirstName: *firstCol,
			LastName:  *lastCol,
			Domain:    *domainCol,
		})
		if len(items) == 0 {
			log.Fatal("No usable rows after normalisation, check the column names")
		}
		log.Printf("Normalised %d usable rows (%d dropped)", len(items), len(rows)-len(items))

		if err := dispatcher.PreflightCredits(ctx, "find", len(items), nil); err != nil {
			log.Fatalf("Aborting: %v", err)
		}

		result, err := dispatcher.RunFind(ctx, items)
		if err != nil {
			log.Fatalf("Run aborted: %v", err)
		}

		for _, b := range result.FailedBatches() {
			log.Printf("Batch %d (%d items) dropped: %v", b.Batch, b.Items, b.Err)
		}
		found := 0
		for _, r := range result.Results {
			if r.Email != "" {
				found++
			}
		}
		log.Printf("Find run complete: %d/%d emails found, %d credits used, %d/%d batches ok",
			found, len(items), result.TotalCredits,
			len(result.Batches)-len(result.FailedBatches()), len(result.Batches))

		rec.TotalRows = len(items)
		rec.TotalBatches = len(result.Batches)
		rec.FailedBatches = len(result.FailedBatches())
		rec.Credits = result.TotalCredits

	case "verify":
		if *emailCol == "" {
			log.Fatal("--email-col is required in verify mode")
		}

		verifyRows := collectEmails(headers, rows, *emailCol)
		if len(verifyRows) == 0 {
			log.Fatal("No email addresses found, check --email-col")
		}
		log.Printf("Collected %d addresses (%d rows dropped)", len(verifyRows), len(rows)-len(verifyRows))

		if err := dispatcher.PreflightCredits(ctx, "verify", len(verifyRows), nil); err != nil {
			log.Fatalf("Aborting: %v", err)
		}

		result, err := dispatcher.RunVerify(ctx, verifyRows)
		if err != nil {
			log.Fatalf("Run aborted: %v", err)
		}

		counts := map[string]int{}
		for _, row := range verifyRows {
			counts[row.Status]++
		}
		log.Printf("Verify run complete: %d valid, %d invalid, %d unknown, %d errors",
			counts["valid"], counts["invalid"]+counts["risky"], counts["unknown"], counts["error"])

		rec.TotalRows = len(verifyRows)
		rec.TotalBatches = len(result.Batches)
		for _, b := range result.Batches {
			if b.Failed() {
				rec.FailedBatches++
			}
		}

	default:
		log.Fatalf("Unknown mode %q (want find or verify)", *mode)
	}

	rec.DurationMS = time.Since(started).Milliseconds()
	recordRun(*historyPath, rec)
}

func readCSV(path string) ([]string, [][]string) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Cannot open CSV: %v", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // tolerate malformed rows

	headers, err := reader.Read()
	if err != nil {
		log.Fatalf("Failed to read CSV headers: %v", err)
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("Warning: skipping malformed row: %v", err)
			continue
		}
		rows = append(rows, row)
	}
	return headers, rows
}

func collectEmails(headers []string, rows [][]string, emailCol string) []*services.VerifyRow {
	idx := -1
	want := strings.TrimSpace(strings.ToLower(emailCol))
	for i, h := range headers {
		if strings.TrimSpace(strings.ToLower(h)) == want {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil
	}

	var out []*services.VerifyRow
	for _, row := range rows {
		if idx >= len(row) {
			continue
		}
		email := strings.ToLower(strings.TrimSpace(row[idx]))
		if email == "" || !strings.Contains(email, "@") {
			continue
		}
		out = append(out, &services.VerifyRow{Email: email, Status: "pending"})
	}
	return out
}

func recordRun(historyPath string, rec db.RunRecord) {
	if historyPath == "" {
		os.MkdirAll("data", os.ModePerm)
		historyPath = "data/bulk-history.db"
	}

	hdb := db.InitDB(historyPath)
	defer hdb.Close()

	if err := db.EnsureRunHistory(hdb); err != nil {
		log.Printf("Warning: could not prepare run history: %v", err)
		return
	}
	if err := db.RecordRun(hdb, rec); err != nil {
		log.Printf("Warning: could not record run: %v", err)
		return
	}

	if runs, err := db.ListRuns(hdb, 5); err == nil && len(runs) > 1 {
		log.Printf("Recent runs: %d kept locally (latest: %s %d rows)", len(runs), runs[0].Mode, runs[0].TotalRows)
	}
}
