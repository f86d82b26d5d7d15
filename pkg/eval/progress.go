package eval

// EventType identifies the lifecycle stage a progress event reports.
type EventType string

const (
	EventSuiteStart    EventType = "suiteStart"
	EventSuiteSetup    EventType = "suiteSetup"
	EventTestStart     EventType = "testStart"
	EventTestComplete  EventType = "testComplete"
	EventSuiteTeardown EventType = "suiteTeardown"
	EventSuiteComplete EventType = "suiteComplete"
)

// ProgressEvent is delivered to a ProgressCallback as a suite run advances.
// Test is set for per-test events and nil for suite-level ones.
type ProgressEvent struct {
	Type    EventType
	Message string
	Test    *TestResult
}

type ProgressCallback func(event ProgressEvent)

// NoopProgressCallback discards all progress events.
func NoopProgressCallback(event ProgressEvent) {}
