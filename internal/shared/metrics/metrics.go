package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	briefCreatedTotal   atomic.Uint64
	briefProcessedTotal atomic.Uint64
	briefFailedTotal    atomic.Uint64
	briefDuplicateTotal atomic.Uint64
	briefRepairTotal    atomic.Uint64

	briefDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
)

// IncBriefCreated counts a pending record created for generation.
func IncBriefCreated() {
	briefCreatedTotal.Add(1)
}

// IncBriefProcessed counts a record that reached processed.
func IncBriefProcessed() {
	briefProcessedTotal.Add(1)
}

// IncBriefFailed counts a record that reached failed.
func IncBriefFailed() {
	briefFailedTotal.Add(1)
}

// IncBriefDuplicate counts a submission rejected as duplicate input.
func IncBriefDuplicate() {
	briefDuplicateTotal.Add(1)
}

// IncBriefRepair counts a repair attempt sent to the generator.
func IncBriefRepair() {
	briefRepairTotal.Add(1)
}

// ObserveBriefDurationMs records generation time in milliseconds.
func ObserveBriefDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	briefDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "deal_brief_created_total", "Deal records created for generation", briefCreatedTotal.Load())
	writeCounter(&buf, "deal_brief_processed_total", "Deal briefs generated successfully", briefProcessedTotal.Load())
	writeCounter(&buf, "deal_brief_failed_total", "Deal briefs that failed generation", briefFailedTotal.Load())
	writeCounter(&buf, "deal_brief_duplicate_total", "Submissions rejected as duplicate input", briefDuplicateTotal.Load())
	writeCounter(&buf, "deal_brief_repair_total", "Repair attempts sent to the generator", briefRepairTotal.Load())
	writeHistogram(&buf, "deal_brief_duration_ms", "Brief generation duration in milliseconds", briefDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
