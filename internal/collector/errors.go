package collector

import (
	"errors"
	"fmt"

	"github.com/Guliveer/unixstat-agent/internal/catalog"
)

// ErrNoCommandsRan is returned by Collect when not a single command could be
// started. It points at a host problem rather than a table problem.
var ErrNoCommandsRan = errors.New("no command could be started")

// CatalogLookupError reports a parsed field with no registered descriptor.
// The field is dropped; the rest of its row is still reported.
type CatalogLookupError struct {
	Key catalog.MetricKey
}

func (e *CatalogLookupError) Error() string {
	return fmt.Sprintf("metric %s: no descriptor registered", e.Key)
}

// Error kinds used as the "kind" label of the error counter.
const (
	kindExecution = "execution"
	kindParse     = "parse"
	kindCatalog   = "catalog"
	kindValue     = "value"
)
