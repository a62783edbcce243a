// Package metrics tracks server activity with cheap atomic counters and
// exposes a point-in-time snapshot for the /metrics endpoint.
package metrics

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

type Metrics struct {
	activeConnections int64
	totalConnections  int64
	messagesReceived  int64
	messagesSent      int64
	broadcastErrors   int64
	matchesStarted    int64
	matchesFinished   int64

	startTime time.Time
}

func New() *Metrics {
	return &Metrics{startTime: time.Now()}
}

func (m *Metrics) ConnectionOpened() {
	atomic.AddInt64(&m.activeConnections, 1)
	atomic.AddInt64(&m.totalConnections, 1)
}

func (m *Metrics) ConnectionClosed() {
	atomic.AddInt64(&m.activeConnections, -1)
}

func (m *Metrics) MessageReceived() {
	atomic.AddInt64(&m.messagesReceived, 1)
}

func (m *Metrics) MessageSent() {
	atomic.AddInt64(&m.messagesSent, 1)
}

func (m *Metrics) BroadcastError() {
	atomic.AddInt64(&m.broadcastErrors, 1)
}

func (m *Metrics) MatchStarted() {
	atomic.AddInt64(&m.matchesStarted, 1)
}

func (m *Metrics) MatchFinished() {
	atomic.AddInt64(&m.matchesFinished, 1)
}

type Snapshot struct {
	ActiveConnections int64   `json:"activeConnections"`
	TotalConnections  int64   `json:"totalConnections"`
	MessagesReceived  int64   `json:"messagesReceived"`
	MessagesSent      int64   `json:"messagesSent"`
	BroadcastErrors   int64   `json:"broadcastErrors"`
	MatchesStarted    int64   `json:"matchesStarted"`
	MatchesFinished   int64   `json:"matchesFinished"`
	UptimeSeconds     float64 `json:"uptimeSeconds"`
}

func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		ActiveConnections: atomic.LoadInt64(&m.activeConnections),
		TotalConnections:  atomic.LoadInt64(&m.totalConnections),
		MessagesReceived:  atomic.LoadInt64(&m.messagesReceived),
		MessagesSent:      atomic.LoadInt64(&m.messagesSent),
		BroadcastErrors:   atomic.LoadInt64(&m.broadcastErrors),
		MatchesStarted:    atomic.LoadInt64(&m.matchesStarted),
		MatchesFinished:   atomic.LoadInt64(&m.matchesFinished),
		UptimeSeconds:     time.Since(m.startTime).Seconds(),
	}
}

// Handler serves the snapshot as JSON.
func (m *Metrics) Handler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(m.Snapshot())
}
