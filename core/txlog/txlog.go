// Package txlog keeps the process-wide list of simulated transactions.
package txlog

import "sync"

// Log is an ordered transaction set, most recent first. It is safe for
// concurrent use and lives as long as the ledger that owns it.
type Log struct {
	mu    sync.Mutex
	txs   map[string]Transaction // ID -> Transaction
	order []string               // newest first
}

// New creates a log holding initial in the given order.
func New(initial ...Transaction) *Log {
	l := &Log{txs: make(map[string]Transaction)}
	for _, tx := range initial {
		if _, exists := l.txs[tx.ID]; exists {
			continue
		}
		l.txs[tx.ID] = tx
		l.order = append(l.order, tx.ID)
	}
	return l
}

// Prepend adds tx at the front. It returns false for a duplicate ID.
func (l *Log) Prepend(tx Transaction) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.txs[tx.ID]; exists {
		return false
	}
	l.txs[tx.ID] = tx
	l.order = append([]string{tx.ID}, l.order...)
	return true
}

// ByAddress returns the transactions that involve addr, preserving order.
func (l *Log) ByAddress(addr string) []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []Transaction{}
	for _, id := range l.order {
		if tx := l.txs[id]; tx.Involves(addr) {
			out = append(out, tx)
		}
	}
	return out
}

// ByDataset returns the transactions for a dataset, preserving order.
func (l *Log) ByDataset(datasetID string) []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []Transaction{}
	for _, id := range l.order {
		if tx := l.txs[id]; tx.DatasetID == datasetID {
			out = append(out, tx)
		}
	}
	return out
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}
