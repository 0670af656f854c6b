// Package scoring flags anomalous transactions with a fixed set of
// batch-relative heuristic rules.
package scoring

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/models"
)

const (
	FieldAmount   = "amount"
	FieldMerchant = "merchant"

	// AnomalyThreshold is exclusive: a score must exceed it to be anomalous.
	AnomalyThreshold = 50
	MaxScore         = 100

	LabelHighAmount      = "Amount unusually high"
	LabelRoundNumber     = "Large round number transaction"
	LabelUnknownMerchant = "Unknown merchant"
	NormalLabel          = "Normal"
)

const (
	highAmountFactor  = 2.0
	roundUnit         = 1000.0
	roundFloor        = 5000.0
	unknownMerchant   = "unknown"
	highAmountWeight  = 40
	roundNumberWeight = 30
	unknownWeight     = 50
)

// ScoreError reports a row that cannot be scored. The whole batch fails with
// it, since a defaulted amount would shift the mean for every other row.
type ScoreError struct {
	Row    int
	Field  string
	Reason string
}

func (e *ScoreError) Error() string {
	return fmt.Sprintf("row %d: field %q %s", e.Row, e.Field, e.Reason)
}

type txn struct {
	amount   float64
	merchant string
}

// Score annotates rows in order. The mean amount is taken over the whole
// batch, so the same row can score differently in a different batch.
func Score(rows []models.Row) ([]models.RiskAnnotation, error) {
	if len(rows) == 0 {
		return []models.RiskAnnotation{}, nil
	}

	txns := make([]txn, len(rows))
	var sum float64
	for i, row := range rows {
		t, err := extract(i+1, row)
		if err != nil {
			return nil, err
		}
		txns[i] = t
		sum += t.amount
	}
	mean := sum / float64(len(rows))

	out := make([]models.RiskAnnotation, len(rows))
	for i, t := range txns {
		score, reasons := evaluate(t, mean)
		out[i] = annotate(rows[i], score, reasons)
	}
	return out, nil
}

func evaluate(t txn, mean float64) (int, []string) {
	score := 0
	reasons := []string{}
	if t.amount > highAmountFactor*mean {
		score += highAmountWeight
		reasons = append(reasons, LabelHighAmount)
	}
	if math.Mod(t.amount, roundUnit) == 0 && t.amount > roundFloor {
		score += roundNumberWeight
		reasons = append(reasons, LabelRoundNumber)
	}
	if strings.EqualFold(t.merchant, unknownMerchant) {
		score += unknownWeight
		reasons = append(reasons, LabelUnknownMerchant)
	}
	return min(score, MaxScore), reasons
}

func annotate(row models.Row, score int, reasons []string) models.RiskAnnotation {
	reason := NormalLabel
	if len(reasons) > 0 {
		reason = strings.Join(reasons, ", ")
	}
	return models.RiskAnnotation{
		Row:       row,
		RiskScore: score,
		IsAnomaly: score > AnomalyThreshold,
		Reasons:   reasons,
		Reason:    reason,
	}
}

func extract(n int, row models.Row) (txn, error) {
	rawAmount, ok := lookup(row, FieldAmount)
	if !ok {
		return txn{}, &ScoreError{Row: n, Field: FieldAmount, Reason: "is missing"}
	}
	amount, ok := rawAmount.(float64)
	if !ok {
		return txn{}, &ScoreError{Row: n, Field: FieldAmount, Reason: fmt.Sprintf("is not numeric: %v", rawAmount)}
	}
	rawMerchant, ok := lookup(row, FieldMerchant)
	if !ok {
		return txn{}, &ScoreError{Row: n, Field: FieldMerchant, Reason: "is missing"}
	}
	merchant, ok := rawMerchant.(string)
	if !ok {
		merchant = fmt.Sprint(rawMerchant)
	}
	return txn{amount: amount, merchant: merchant}, nil
}

// lookup prefers an exact key and falls back to a case-insensitive match.
// Absent and nil values both count as missing.
func lookup(row models.Row, field string) (any, bool) {
	if v, ok := row[field]; ok {
		return v, v != nil
	}
	var keys []string
	for k := range row {
		if strings.EqualFold(strings.TrimSpace(k), field) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, false
	}
	slices.Sort(keys)
	v := row[keys[0]]
	return v, v != nil
}
