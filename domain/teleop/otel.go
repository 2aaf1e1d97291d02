package teleop

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/open-teleop/teleop-bridge/domain/teleop"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
