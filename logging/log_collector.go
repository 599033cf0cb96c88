package logging

import (
	"sync"
	"time"
)

// DefaultMaxEntries is the number of entries kept per component.
const DefaultMaxEntries = 100

// LogEntry represents a single log record with structured data.
type LogEntry struct {
	Time       time.Time              `json:"time"`
	Level      string                 `json:"level"`
	Message    string                 `json:"message"`
	Attributes map[string]interface{} `json:"attributes"`
}

// LogCollector keeps the most recent log entries of each component.
// It is safe for concurrent use.
type LogCollector struct {
	mu         sync.RWMutex
	maxEntries int
	logs       map[string][]LogEntry // component -> oldest first
}

// NewLogCollector creates a LogCollector keeping up to maxEntries entries per
// component. A non-positive maxEntries uses DefaultMaxEntries.
func NewLogCollector(maxEntries int) *LogCollector {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &LogCollector{
		maxEntries: maxEntries,
		logs:       make(map[string][]LogEntry),
	}
}

// AddLog records an entry for component, evicting the oldest entry once the
// component is full.
func (c *LogCollector) AddLog(component string, entry LogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	logs := append(c.logs[component], entry)
	if len(logs) > c.maxEntries {
		// Copy down so the backing array does not grow without bound.
		logs = append(logs[:0:0], logs[len(logs)-c.maxEntries:]...)
	}
	c.logs[component] = logs
}

// GetLogs returns a copy of the entries for component, oldest first.
func (c *LogCollector) GetLogs(component string) []LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	logs, exists := c.logs[component]
	if !exists {
		return nil
	}

	result := make([]LogEntry, len(logs))
	copy(result, logs)
	return result
}

// GetAllLogs returns a copy of all entries grouped by component.
func (c *LogCollector) GetAllLogs() map[string][]LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string][]LogEntry, len(c.logs))
	for component, logs := range c.logs {
		logsCopy := make([]LogEntry, len(logs))
		copy(logsCopy, logs)
		result[component] = logsCopy
	}
	return result
}

// Clear removes all stored entries.
func (c *LogCollector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logs = make(map[string][]LogEntry)
}
