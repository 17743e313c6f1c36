package pipeline

import (
	"fmt"
	"io"
	"sync/atomic"
)

type metrics struct {
	processed   atomic.Int64
	failed      atomic.Int64
	degraded    atomic.Int64
	hooksSent   atomic.Int64
	hooksFailed atomic.Int64
}

func (m *metrics) incProcessed()   { m.processed.Add(1) }
func (m *metrics) incFailed()      { m.failed.Add(1) }
func (m *metrics) incDegraded()    { m.degraded.Add(1) }
func (m *metrics) incHooksSent()   { m.hooksSent.Add(1) }
func (m *metrics) incHooksFailed() { m.hooksFailed.Add(1) }

// Stats is a snapshot of the pipeline counters.
type Stats struct {
	Processed   int64
	Failed      int64
	Degraded    int64
	HooksSent   int64
	HooksFailed int64
}

// Stats returns the counters accumulated since the pipeline was built.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Processed:   p.metrics.processed.Load(),
		Failed:      p.metrics.failed.Load(),
		Degraded:    p.metrics.degraded.Load(),
		HooksSent:   p.metrics.hooksSent.Load(),
		HooksFailed: p.metrics.hooksFailed.Load(),
	}
}

// WriteMetrics prints the counters in Prometheus text format.
func (s Stats) WriteMetrics(w io.Writer) {
	fmt.Fprintf(w, "podseg_files_processed_total %d\n", s.Processed)
	fmt.Fprintf(w, "podseg_files_failed_total %d\n", s.Failed)
	fmt.Fprintf(w, "podseg_files_degraded_total %d\n", s.Degraded)
	fmt.Fprintf(w, "podseg_hooks_sent_total %d\n", s.HooksSent)
	fmt.Fprintf(w, "podseg_hooks_failed_total %d\n", s.HooksFailed)
}
