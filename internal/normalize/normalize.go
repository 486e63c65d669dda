// Package normalize turns resolved values into final metric records.
package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Guliveer/unixstat-agent/internal/catalog"
	"github.com/Guliveer/unixstat-agent/internal/models"
)

// MetricParseError reports a captured value that is not a number. Only the
// affected metric is dropped.
type MetricParseError struct {
	Key catalog.MetricKey
	Raw string
	Err error
}

func (e *MetricParseError) Error() string {
	return fmt.Sprintf("metric %s: invalid value %q: %v", e.Key, e.Raw, e.Err)
}

func (e *MetricParseError) Unwrap() error { return e.Err }

// ParseValue converts captured text to a float. Surrounding whitespace and a
// trailing percent sign are tolerated; NaN and infinities are rejected.
func ParseValue(key catalog.MetricKey, raw string) (float64, error) {
	s := strings.TrimSuffix(strings.TrimSpace(raw), "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &MetricParseError{Key: key, Raw: raw, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &MetricParseError{Key: key, Raw: raw, Err: fmt.Errorf("not a finite number")}
	}
	return v, nil
}

// Normalize applies the descriptor's multiplier and unit to value.
func Normalize(key catalog.MetricKey, desc catalog.MetricDescriptor, value float64, at time.Time) models.Metric {
	mult := desc.Multiplier
	if mult == 0 {
		mult = 1
	}
	return models.Metric{
		Command:   key.Command,
		Category:  desc.Category,
		Dimension: key.Dimension,
		Name:      desc.Name,
		Unit:      desc.Unit,
		Value:     value * mult,
		Timestamp: at,
	}
}
