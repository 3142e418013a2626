package helper

import (
	"maps"
	"sync"
	"time"
)

// MetricsCollectorSpy is a lending.MetricsCollector that captures metrics calls for testing.
type MetricsCollectorSpy struct {
	durationRecords []SpyMetricRecord
	counterRecords  []SpyMetricRecord
	valueRecords    []SpyMetricRecord
	mu              sync.Mutex
}

// SpyMetricRecord represents one recorded metric call.
type SpyMetricRecord struct {
	Metric   string
	Duration time.Duration
	Value    float64
	Labels   map[string]string
}

// NewMetricsCollectorSpy creates a new MetricsCollectorSpy.
func NewMetricsCollectorSpy() *MetricsCollectorSpy {
	return &MetricsCollectorSpy{}
}

// RecordDuration implements the MetricsCollector interface.
func (s *MetricsCollectorSpy) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.durationRecords = append(s.durationRecords, SpyMetricRecord{Metric: metric, Duration: duration, Labels: maps.Clone(labels)})
}

// IncrementCounter implements the MetricsCollector interface.
func (s *MetricsCollectorSpy) IncrementCounter(metric string, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counterRecords = append(s.counterRecords, SpyMetricRecord{Metric: metric, Labels: maps.Clone(labels)})
}

// RecordValue implements the MetricsCollector interface.
func (s *MetricsCollectorSpy) RecordValue(metric string, value float64, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.valueRecords = append(s.valueRecords, SpyMetricRecord{Metric: metric, Value: value, Labels: maps.Clone(labels)})
}

// CounterCount returns how often metric was incremented with labels that contain all of want.
func (s *MetricsCollectorSpy) CounterCount(metric string, want map[string]string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return countMatching(s.counterRecords, metric, want)
}

// DurationCount returns how many durations were recorded for metric with labels that contain all of want.
func (s *MetricsCollectorSpy) DurationCount(metric string, want map[string]string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return countMatching(s.durationRecords, metric, want)
}

func countMatching(records []SpyMetricRecord, metric string, want map[string]string) int {
	count := 0

	for _, record := range records {
		if record.Metric != metric {
			continue
		}

		matches := true
		for key, value := range want {
			if record.Labels[key] != value {
				matches = false
				break
			}
		}

		if matches {
			count++
		}
	}

	return count
}
