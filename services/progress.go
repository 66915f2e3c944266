package services

import (
	"fmt"
	"math"
	"sync"
)

// Reporter turns dispatcher progress callbacks into displayable state. It is
// a sink only: the dispatcher never reads from it.
type Reporter struct {
	mu           sync.Mutex
	percent      int
	status       string
	done         bool
	failed       bool
	totalCredits int
}

// Callback returns the ProgressFunc to hand to a Dispatcher.
func (r *Reporter) Callback() ProgressFunc {
	return func(p Progress) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if p.Total > 0 {
			r.percent = int(math.Round(float64(p.Completed) / float64(p.Total) * 100))
		}
		r.status = fmt.Sprintf("Processing %d / %d", p.Completed, p.Total)
	}
}

// Complete marks the run finished and records the credit total.
func (r *Reporter) Complete(totalCredits int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = true
	r.totalCredits = totalCredits
	r.status = fmt.Sprintf("Completed, %d credits used", totalCredits)
}

// Fail marks the run terminally failed and writes the error onto any rows
// still in flight. Used for pipeline-level exceptions, not batch drops.
func (r *Reporter) Fail(err error, rows []*VerifyRow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = true
	r.failed = true
	r.status = "Failed: " + err.Error()
	for _, row := range rows {
		if row.Status == "" || row.Status == "pending" || row.Status == "processing" {
			row.Status = "error"
			row.Reason = err.Error()
		}
	}
}

func (r *Reporter) Status() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Reporter) Percent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.percent
}

func (r *Reporter) Done() (bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done, r.failed
}

func (r *Reporter) TotalCredits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalCredits
}
