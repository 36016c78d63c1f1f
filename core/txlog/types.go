package txlog

import "time"

// Status of a simulated transaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	// StatusFailed is reserved; no simulated operation produces it.
	StatusFailed Status = "failed"
)

// Transaction is a simulated transfer tied to a dataset purchase.
// It is never modified after creation.
type Transaction struct {
	ID        string    `json:"id"`
	Hash      string    `json:"hash"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
	DatasetID string    `json:"datasetId"`
}

// Involves reports whether addr is the sender or the recipient.
func (tx Transaction) Involves(addr string) bool {
	return addr != "" && (tx.From == addr || tx.To == addr)
}

// Seed returns the two historical transactions every ledger starts with.
func Seed() []Transaction {
	return []Transaction{
		{
			ID:        "tx1",
			From:      "0x1234567890abcdef1234567890abcdef12345678",
			To:        "0xabcdef1234567890abcdef1234567890abcdef12",
			Amount:    "0.05",
			Currency:  "ETH",
			Timestamp: time.Date(2023, 9, 15, 0, 0, 0, 0, time.UTC),
			Status:    StatusConfirmed,
			DatasetID: "dataset1",
			Hash:      "0x3a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6e7f8a9b0c1d2e3f4a5b6c7d8e9f0a1b",
		},
		{
			ID:        "tx2",
			From:      "0xabcdef1234567890abcdef1234567890abcdef12",
			To:        "0x1234567890abcdef1234567890abcdef12345678",
			Amount:    "0.03",
			Currency:  "ETH",
			Timestamp: time.Date(2023, 10, 5, 0, 0, 0, 0, time.UTC),
			Status:    StatusConfirmed,
			DatasetID: "dataset2",
			Hash:      "0x4b5c6d7e8f9a0b1c2d3e4f5a6b7c8d9e0f1a2b3c4d5e6f7a8b9c0d1e2f3a4b5",
		},
	}
}
