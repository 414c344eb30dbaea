// Package uplink delivers position reports to the relay, over a direct TCP
// connection or an MQTT broker.
package uplink

import (
	"context"

	"github.com/martazahmad1/bus-track/internal/report"
)

// Sink is a report transport. Implementations are safe for use from one
// publishing goroutine; the tracker never retries a failed publish — the
// next fix produces a fresh report anyway.
type Sink interface {
	// Publish delivers one report. It returns an error when delivery
	// demonstrably failed; delivery confirmation beyond that is the
	// transport's business, not the caller's.
	Publish(ctx context.Context, rpt report.Report) error

	// Connected reports whether the transport currently holds a usable
	// connection. Used for the status block only.
	Connected() bool

	Close() error
}
