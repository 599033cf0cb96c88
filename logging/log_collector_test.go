package logging

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(msg string) LogEntry {
	return LogEntry{
		Time:       time.Now(),
		Level:      "INFO",
		Message:    msg,
		Attributes: map[string]interface{}{},
	}
}

func TestNewLogCollector(t *testing.T) {
	collector := NewLogCollector(10)
	require.NotNil(t, collector)
	assert.Equal(t, 10, collector.maxEntries)
	assert.NotNil(t, collector.logs)

	assert.Equal(t, DefaultMaxEntries, NewLogCollector(0).maxEntries)
	assert.Equal(t, DefaultMaxEntries, NewLogCollector(-3).maxEntries)
}

func TestLogCollector_AddAndGet(t *testing.T) {
	collector := NewLogCollector(10)
	collector.AddLog("presence", LogEntry{
		Time:       time.Now(),
		Level:      "WARN",
		Message:    "presence client call failed",
		Attributes: map[string]interface{}{"op": "connect"},
	})

	logs := collector.GetLogs("presence")
	require.Len(t, logs, 1)
	assert.Equal(t, "WARN", logs[0].Level)
	assert.Equal(t, "presence client call failed", logs[0].Message)
	assert.Equal(t, "connect", logs[0].Attributes["op"])
}

func TestLogCollector_UnknownComponent(t *testing.T) {
	collector := NewLogCollector(10)
	assert.Nil(t, collector.GetLogs("nope"))
}

func TestLogCollector_KeepsOrder(t *testing.T) {
	collector := NewLogCollector(10)
	collector.AddLog("presence", entry("first"))
	collector.AddLog("presence", entry("second"))

	logs := collector.GetLogs("presence")
	require.Len(t, logs, 2)
	assert.Equal(t, "first", logs[0].Message)
	assert.Equal(t, "second", logs[1].Message)
}

func TestLogCollector_EvictsOldest(t *testing.T) {
	collector := NewLogCollector(3)
	for i := 0; i < 5; i++ {
		collector.AddLog("presence", entry(fmt.Sprintf("msg-%d", i)))
	}

	logs := collector.GetLogs("presence")
	require.Len(t, logs, 3)
	assert.Equal(t, "msg-2", logs[0].Message)
	assert.Equal(t, "msg-3", logs[1].Message)
	assert.Equal(t, "msg-4", logs[2].Message)
}

func TestLogCollector_LimitIsPerComponent(t *testing.T) {
	collector := NewLogCollector(2)
	for i := 0; i < 4; i++ {
		collector.AddLog("presence", entry("p"))
	}
	collector.AddLog("server", entry("s"))

	assert.Len(t, collector.GetLogs("presence"), 2)
	assert.Len(t, collector.GetLogs("server"), 1)
}

func TestLogCollector_GetLogsReturnsCopy(t *testing.T) {
	collector := NewLogCollector(10)
	collector.AddLog("presence", entry("original"))

	logs := collector.GetLogs("presence")
	logs[0].Message = "modified"

	assert.Equal(t, "original", collector.GetLogs("presence")[0].Message)
}

func TestLogCollector_GetAllLogs(t *testing.T) {
	collector := NewLogCollector(10)
	collector.AddLog("presence", entry("a"))
	collector.AddLog("reconnect", entry("b"))

	all := collector.GetAllLogs()
	assert.Len(t, all, 2)
	assert.Len(t, all["presence"], 1)
	assert.Len(t, all["reconnect"], 1)

	all["presence"][0].Message = "modified"
	assert.Equal(t, "a", collector.GetAllLogs()["presence"][0].Message, "GetAllLogs should return a deep copy")
}

func TestLogCollector_Clear(t *testing.T) {
	collector := NewLogCollector(10)
	collector.AddLog("presence", entry("a"))
	collector.AddLog("server", entry("b"))

	collector.Clear()

	assert.Empty(t, collector.GetAllLogs())
	assert.Nil(t, collector.GetLogs("presence"))
}

func TestLogCollector_Concurrent(t *testing.T) {
	collector := NewLogCollector(1000)

	const goroutines = 10
	const perGoroutine = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			component := fmt.Sprintf("component-%d", n%2)
			for j := 0; j < perGoroutine; j++ {
				collector.AddLog(component, entry("concurrent"))
				_ = collector.GetLogs(component)
			}
		}(i)
	}
	wg.Wait()

	all := collector.GetAllLogs()
	require.Len(t, all, 2)
	assert.Len(t, all["component-0"], goroutines/2*perGoroutine)
	assert.Len(t, all["component-1"], goroutines/2*perGoroutine)
}
