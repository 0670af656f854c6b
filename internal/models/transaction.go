package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Row is one normalized input transaction. Values are string, float64, bool,
// or nil for an empty cell.
type Row map[string]any

// RiskAnnotation is a Row plus the computed risk attributes. On the wire the
// row's fields sit alongside the computed ones.
type RiskAnnotation struct {
	Row       Row      `json:"-"`
	RiskScore int      `json:"risk_score"`
	IsAnomaly bool     `json:"is_anomaly"`
	Reasons   []string `json:"reasons"`
	Reason    string   `json:"reason"`
}

const (
	keyRiskScore = "risk_score"
	keyIsAnomaly = "is_anomaly"
	keyReasons   = "reasons"
	keyReason    = "reason"
)

// MarshalJSON flattens the row into the annotation. Computed fields win when
// a row column has the same name.
func (a RiskAnnotation) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.Row)+4)
	for k, v := range a.Row {
		out[k] = v
	}
	reasons := a.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	out[keyRiskScore] = a.RiskScore
	out[keyIsAnomaly] = a.IsAnomaly
	out[keyReasons] = reasons
	out[keyReason] = a.Reason
	return json.Marshal(out)
}

// UnmarshalJSON splits the flat object back into the row and computed fields.
func (a *RiskAnnotation) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var ann RiskAnnotation
	computed := []struct {
		key string
		dst any
	}{
		{keyRiskScore, &ann.RiskScore},
		{keyIsAnomaly, &ann.IsAnomaly},
		{keyReasons, &ann.Reasons},
		{keyReason, &ann.Reason},
	}
	for _, c := range computed {
		raw, ok := fields[c.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, c.dst); err != nil {
			return fmt.Errorf("annotation field %s: %w", c.key, err)
		}
		delete(fields, c.key)
	}
	ann.Row = make(Row, len(fields))
	for k, raw := range fields {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("annotation field %s: %w", k, err)
		}
		ann.Row[k] = v
	}
	*a = ann
	return nil
}

// UnavailableMarker is the wire value of an unknown Count.
const UnavailableMarker = "N/A"

// Count is an integer that may be explicitly unavailable. It is only ever
// derived, so it has no decoder.
type Count struct {
	Value int
	Known bool
}

func (c Count) String() string {
	if !c.Known {
		return UnavailableMarker
	}
	return strconv.Itoa(c.Value)
}

func (c Count) MarshalJSON() ([]byte, error) {
	if !c.Known {
		return json.Marshal(UnavailableMarker)
	}
	return json.Marshal(c.Value)
}
