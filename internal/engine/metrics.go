package engine

import (
	"sync"
	"time"
)

// ExecutionMetrics tracks statistics about plan execution.
type ExecutionMetrics struct {
	QueriesExecuted  int
	StepsExecuted    int
	StepsSuccessful  int
	StepsSoftFailed  int
	StepsHardFailed  int
	StepsSkipped     int
	TotalDuration    time.Duration
	LongestStepTime  time.Duration
	ShortestStepTime time.Duration

	mu sync.Mutex // Protects metrics updates
}

// Copy returns a snapshot without the mutex.
func (m *ExecutionMetrics) Copy() ExecutionMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	return ExecutionMetrics{
		QueriesExecuted:  m.QueriesExecuted,
		StepsExecuted:    m.StepsExecuted,
		StepsSuccessful:  m.StepsSuccessful,
		StepsSoftFailed:  m.StepsSoftFailed,
		StepsHardFailed:  m.StepsHardFailed,
		StepsSkipped:     m.StepsSkipped,
		TotalDuration:    m.TotalDuration,
		LongestStepTime:  m.LongestStepTime,
		ShortestStepTime: m.ShortestStepTime,
	}
}

func (m *ExecutionMetrics) recordQuery(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.QueriesExecuted++
	m.TotalDuration += duration
}

func (m *ExecutionMetrics) recordStep(outcome stepOutcome, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StepsExecuted++
	switch outcome {
	case outcomeSuccess:
		m.StepsSuccessful++
	case outcomeSoft:
		m.StepsSoftFailed++
	case outcomeHard:
		m.StepsHardFailed++
	case outcomeSkipped:
		m.StepsSkipped++
	}

	if duration > m.LongestStepTime {
		m.LongestStepTime = duration
	}
	if m.ShortestStepTime == 0 || (duration > 0 && duration < m.ShortestStepTime) {
		m.ShortestStepTime = duration
	}
}
