package session

import (
	"sync/atomic"
	"time"
)

type Metrics struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Errors    int64 `json:"errors"`
	Puts      int64 `json:"puts"`
	Clears    int64 `json:"clears"`
	StartTime int64 `json:"start_time"`
}

func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now().Unix()}
}

func (m *Metrics) RecordHit()   { atomic.AddInt64(&m.Hits, 1) }
func (m *Metrics) RecordMiss()  { atomic.AddInt64(&m.Misses, 1) }
func (m *Metrics) RecordError() { atomic.AddInt64(&m.Errors, 1) }
func (m *Metrics) RecordPut()   { atomic.AddInt64(&m.Puts, 1) }
func (m *Metrics) RecordClear() { atomic.AddInt64(&m.Clears, 1) }

func (m *Metrics) GetStats() Metrics {
	return Metrics{
		Hits:      atomic.LoadInt64(&m.Hits),
		Misses:    atomic.LoadInt64(&m.Misses),
		Errors:    atomic.LoadInt64(&m.Errors),
		Puts:      atomic.LoadInt64(&m.Puts),
		Clears:    atomic.LoadInt64(&m.Clears),
		StartTime: m.StartTime,
	}
}

// HitRate is the share of lookups that found an in-flight dialog, in percent.
func (m *Metrics) HitRate() float64 {
	hits := atomic.LoadInt64(&m.Hits)
	total := hits + atomic.LoadInt64(&m.Misses)
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total) * 100.0
}
