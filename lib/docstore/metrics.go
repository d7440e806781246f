package docstore

import (
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Metric names; op is the name of the public operation, e.g. "find"
const (
	metricOperations = `petladb_docstore_operations_total{op=%q}`
	metricErrors     = `petladb_docstore_operation_errors_total{op=%q}`
	metricDuration   = `petladb_docstore_operation_duration_seconds{op=%q}`
)

var skippedDocuments = metrics.NewCounter(`petladb_docstore_skipped_documents_total`)

func recordOperation(op string, start time.Time, err error) {
	metrics.GetOrCreateCounter(fmt.Sprintf(metricOperations, op)).Inc()
	metrics.GetOrCreateHistogram(fmt.Sprintf(metricDuration, op)).UpdateDuration(start)
	if err != nil {
		metrics.GetOrCreateCounter(fmt.Sprintf(metricErrors, op)).Inc()
	}
}
