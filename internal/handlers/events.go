package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"spending-tracker/internal/expenses"
	"spending-tracker/internal/models"

	"go.uber.org/zap"
)

type event struct {
	name string
	data []byte
}

// latestQueue holds the newest pending payload per event name. A client that
// falls behind skips intermediate states but always receives the latest one.
type latestQueue struct {
	mu      sync.Mutex
	order   []string
	pending map[string][]byte
	ready   chan struct{}
}

func newLatestQueue() *latestQueue {
	return &latestQueue{pending: map[string][]byte{}, ready: make(chan struct{}, 1)}
}

// put replaces any pending payload for name.
func (q *latestQueue) put(name string, data []byte) {
	q.mu.Lock()
	if _, ok := q.pending[name]; !ok {
		q.order = append(q.order, name)
	}
	q.pending[name] = data
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// take drains the queue in the order names first became pending.
func (q *latestQueue) take() []event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]event, 0, len(q.order))
	for _, name := range q.order {
		out = append(out, event{name: name, data: q.pending[name]})
	}
	q.order = q.order[:0]
	clear(q.pending)
	return out
}

// Events streams a server-sent event after every successful mutation. Each
// event carries the full collection it refers to: "expenses", "income" or
// "lending".
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	q := newLatestQueue()
	send := func(name string, v any) {
		b, err := json.Marshal(v)
		if err != nil {
			h.logger.Error("Failed to encode event", zap.String("event", name), zap.Error(err))
			return
		}
		q.put(name, b)
	}

	cancels := []func(){
		h.tracker.Expenses.Subscribe(func(s expenses.Snapshot) { send("expenses", s) }),
		h.tracker.Income.Subscribe(func(d models.IncomeData) { send("income", d) }),
		h.tracker.Lending.Subscribe(func(d models.LendingData) { send("lending", d) }),
	}
	defer func() {
		for _, cancel := range cancels {
			cancel()
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-q.ready:
			for _, ev := range q.take() {
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.name, ev.data); err != nil {
					return
				}
			}
			flusher.Flush()
		}
	}
}
