package dbprobe

import (
	"encoding/json"
	"time"
)

// HealthReport is the outcome of one probe. It is created once per Check
// call and never modified afterwards; slices are private copies.
type HealthReport struct {
	Name          string        `json:"name"`
	Kind          Kind          `json:"kind"`
	Success       bool          `json:"success"`
	Target        string        `json:"target"`
	ErrorKind     ErrorKind     `json:"error_kind,omitempty"`
	Message       string        `json:"message"`
	Remediation   []string      `json:"remediation,omitempty"`
	ServerVersion string        `json:"server_version,omitempty"`
	Response      string        `json:"response,omitempty"`
	Notes         []string      `json:"notes,omitempty"`
	Warnings      []string      `json:"warnings,omitempty"`
	Debug         []Field       `json:"debug,omitempty"`
	Latency       time.Duration `json:"-"`
	ObservedAt    time.Time     `json:"observed_at"`
}

// LatencyMillis returns the latency in milliseconds as a float64.
func (r HealthReport) LatencyMillis() float64 {
	return float64(r.Latency.Nanoseconds()) / 1e6
}

// Failed is the negation of Success, convenient for filters.
func (r HealthReport) Failed() bool {
	return !r.Success
}

// healthReportJSON adds latency_ms to the JSON form.
type healthReportJSON struct {
	reportAlias
	LatencyMs float64 `json:"latency_ms"`
}

type reportAlias HealthReport

// MarshalJSON serializes Latency as latency_ms and ObservedAt in UTC.
func (r HealthReport) MarshalJSON() ([]byte, error) {
	a := reportAlias(r)
	a.ObservedAt = r.ObservedAt.UTC()
	return json.Marshal(healthReportJSON{reportAlias: a, LatencyMs: r.LatencyMillis()})
}

// UnmarshalJSON restores Latency from latency_ms.
func (r *HealthReport) UnmarshalJSON(data []byte) error {
	var j healthReportJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*r = HealthReport(j.reportAlias)
	r.Latency = time.Duration(j.LatencyMs * 1e6)
	return nil
}
