package models

import (
	"encoding/json"
	"time"
)

// Status enumerates the lifecycle states of an analysis job.
type Status string

const (
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	// StatusNotFound is reported for unknown ids and is never stored.
	StatusNotFound Status = "NOT_FOUND"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Scope tells clients whether row-level scoring ran for a completed job.
type Scope string

const (
	ScopeRowLevel    Scope = "ROW_LEVEL"
	ScopeSummaryOnly Scope = "SUMMARY_ONLY"
)

// Job is one analysis request's lifecycle record.
//
// High-risk and transaction counts are derived from Transactions when the job
// is serialized, so they cannot drift from the annotation list.
type Job struct {
	ID             string           `json:"job_id"`
	Status         Status           `json:"status"`
	Filename       string           `json:"filename,omitempty"`
	Scope          Scope            `json:"scope,omitempty"`
	Transactions   []RiskAnnotation `json:"transactions,omitempty"`
	ManagerSummary *string          `json:"manager_summary,omitempty"`
	Error          string           `json:"error,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// NotFound builds the query-time view returned for an unknown id.
func NotFound(id string) Job {
	return Job{ID: id, Status: StatusNotFound}
}

// HighRiskCount counts annotations flagged as anomalous.
func (j Job) HighRiskCount() int {
	return CountAnomalies(j.Transactions)
}

// TotalTransactions is the number of scored rows, or unknown for
// summary-only jobs.
func (j Job) TotalTransactions() Count {
	if j.Scope == ScopeSummaryOnly {
		return Count{}
	}
	return Count{Value: len(j.Transactions), Known: true}
}

type jobAlias Job

type jobView struct {
	jobAlias
	Transactions      *[]RiskAnnotation `json:"transactions,omitempty"`
	TotalTransactions *Count            `json:"total_transactions,omitempty"`
	HighRiskCount     *int              `json:"high_risk_count,omitempty"`
	CreatedAt         *time.Time        `json:"created_at,omitempty"`
	UpdatedAt         *time.Time        `json:"updated_at,omitempty"`
}

// MarshalJSON adds the derived counters for completed jobs.
func (j Job) MarshalJSON() ([]byte, error) {
	v := jobView{jobAlias: jobAlias(j)}
	if j.Status == StatusCompleted {
		txs := j.Transactions
		if txs == nil {
			txs = []RiskAnnotation{}
		}
		total := j.TotalTransactions()
		high := j.HighRiskCount()
		v.Transactions = &txs
		v.TotalTransactions = &total
		v.HighRiskCount = &high
	}
	if !j.CreatedAt.IsZero() {
		v.CreatedAt = &j.CreatedAt
	}
	if !j.UpdatedAt.IsZero() {
		v.UpdatedAt = &j.UpdatedAt
	}
	return json.Marshal(v)
}

// UnmarshalJSON ignores the derived counters.
func (j *Job) UnmarshalJSON(data []byte) error {
	var a jobAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*j = Job(a)
	return nil
}

// CountAnomalies counts annotations with IsAnomaly set.
func CountAnomalies(annotations []RiskAnnotation) int {
	n := 0
	for _, a := range annotations {
		if a.IsAnomaly {
			n++
		}
	}
	return n
}
