package web

import (
	"sync"

	"github.com/fyrsmithlabs/docqa/internal/qa"
)

// maxStoredExchanges bounds per-session chat history.
const maxStoredExchanges = 50

// historyStore keeps chat history in memory per session token. History
// vanishes with the session, which matches the session manager's restart
// semantics.
type historyStore struct {
	mu      sync.Mutex
	entries map[string][]qa.Exchange
}

func newHistoryStore() *historyStore {
	return &historyStore{entries: make(map[string][]qa.Exchange)}
}

func (h *historyStore) Get(token string) []qa.Exchange {
	h.mu.Lock()
	defer h.mu.Unlock()
	history := h.entries[token]
	out := make([]qa.Exchange, len(history))
	copy(out, history)
	return out
}

func (h *historyStore) Append(token string, exchange qa.Exchange) {
	h.mu.Lock()
	defer h.mu.Unlock()
	history := append(h.entries[token], exchange)
	if len(history) > maxStoredExchanges {
		history = history[len(history)-maxStoredExchanges:]
	}
	h.entries[token] = history
}

func (h *historyStore) Drop(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.entries, token)
}
