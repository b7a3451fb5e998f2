package analysis

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/marsyard/scout/internal/analysis"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
