// Package models defines the metric records produced by a collection cycle
// and the batch payload sent to the ingestion API.
package models

import (
	"strings"
	"time"
)

// Metric is one normalized, unit-tagged value.
type Metric struct {
	Command   string    `json:"command" cbor:"command"`
	Category  string    `json:"category" cbor:"category"`
	Dimension string    `json:"dimension,omitempty" cbor:"dimension,omitempty"`
	Name      string    `json:"name" cbor:"name"`
	Unit      string    `json:"unit" cbor:"unit"`
	Value     float64   `json:"value" cbor:"value"`
	Timestamp time.Time `json:"timestamp" cbor:"timestamp"`
}

// Path returns the flattened metric name: category[/dimension]/name.
func (m Metric) Path() string {
	parts := []string{m.Category}
	if m.Dimension != "" {
		parts = append(parts, strings.Trim(m.Dimension, "/"))
		if parts[1] == "" {
			parts[1] = "root"
		}
	}
	parts = append(parts, m.Name)
	return strings.Join(parts, "/")
}

// MetricBatch is the payload sent to the API via POST /api/ingest.
type MetricBatch struct {
	ID           string   `json:"id" cbor:"id"`
	MachineToken string   `json:"machine_token" cbor:"machine_token"`
	Hostname     string   `json:"hostname,omitempty" cbor:"hostname,omitempty"`
	Platform     string   `json:"platform" cbor:"platform"`
	Metrics      []Metric `json:"metrics" cbor:"metrics"`
}
