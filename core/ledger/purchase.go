package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"medmarket/core/audit"
	"medmarket/core/random"
	"medmarket/core/txlog"
	"medmarket/core/wallet"
	"medmarket/types/ids"
)

// verifiedThreshold: draws above it count as verified (about 80%).
const verifiedThreshold = 0.2

// PurchaseResult is the outcome of PurchaseDataset.
type PurchaseResult struct {
	Success     bool               `json:"success"`
	Transaction *txlog.Transaction `json:"transaction,omitempty"`
	Message     string             `json:"message,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// VerifyResult is the outcome of VerifyDataIntegrity.
type VerifyResult struct {
	Verified  bool       `json:"verified"`
	Timestamp *time.Time `json:"timestamp"`
	Message   string     `json:"message"`
	Error     string     `json:"error,omitempty"`
}

// PurchaseDataset simulates paying seller price ETH for a dataset. The wallet
// must be connected when the purchase starts. The new transaction is prepended
// and the balance is debited when the wait completes; concurrent purchases each
// apply their own debit.
func (l *Ledger) PurchaseDataset(ctx context.Context, datasetID string, price decimal.Decimal, seller string) PurchaseResult {
	user := l.sessions.Current()
	if user == nil || user.WalletAddress == "" {
		return l.failPurchase("", datasetID, ErrWalletNotConnected)
	}
	l.mu.Lock()
	connected := l.status == StatusConnected && l.address == user.WalletAddress
	l.mu.Unlock()
	if !connected {
		return l.failPurchase(user.WalletAddress, datasetID, ErrWalletNotConnected)
	}
	if !price.IsPositive() {
		return l.failPurchase(user.WalletAddress, datasetID, ErrInvalidPrice)
	}
	if !ids.IsAddress(seller) {
		return l.failPurchase(user.WalletAddress, datasetID, ErrInvalidSeller)
	}
	l.setError("")

	if err := random.Sleep(ctx, l.clock, l.delays.Purchase); err != nil {
		l.log.Warn("[LEDGER] purchase interrupted", "dataset", datasetID, "err", err)
		return l.failPurchase(user.WalletAddress, datasetID, ErrTransactionFailed)
	}

	tx, err := l.newTransaction(user.WalletAddress, seller, datasetID, price)
	if err != nil {
		l.log.Error("[LEDGER] building transaction failed", "err", err)
		return l.failPurchase(user.WalletAddress, datasetID, ErrTransactionFailed)
	}
	l.txs.Prepend(tx)

	l.mu.Lock()
	if l.address == user.WalletAddress {
		l.eth = l.eth.Sub(price)
	}
	balance := l.balanceLocked()
	l.mu.Unlock()

	l.log.Info("[LEDGER] purchase confirmed", "tx", tx.ID, "dataset", datasetID, "amount", tx.Amount, "balance", balance.ETH)
	l.audit.LogEvent(audit.New(audit.EventPurchase, user.WalletAddress, audit.ResultSuccess, "Transaction completed successfully", map[string]string{
		"dataset": datasetID,
		"tx":      tx.ID,
		"amount":  tx.Amount,
		"seller":  seller,
	}))
	l.emit()
	return PurchaseResult{
		Success:     true,
		Transaction: &tx,
		Message:     "Transaction completed successfully",
	}
}

func (l *Ledger) newTransaction(from, to, datasetID string, price decimal.Decimal) (txlog.Transaction, error) {
	short, err := ids.ShortHex(l.rand, 8)
	if err != nil {
		return txlog.Transaction{}, err
	}
	hash, err := ids.NewHash(l.rand)
	if err != nil {
		return txlog.Transaction{}, err
	}
	return txlog.Transaction{
		ID:        "tx" + short,
		Hash:      hash.String(),
		From:      from,
		To:        to,
		Amount:    price.String(),
		Currency:  wallet.Currency,
		Timestamp: l.clock.Now().UTC(),
		Status:    txlog.StatusConfirmed,
		DatasetID: datasetID,
	}, nil
}

func (l *Ledger) failPurchase(entity, datasetID, msg string) PurchaseResult {
	l.setError(msg)
	l.audit.LogEvent(audit.New(audit.EventPurchase, entity, audit.ResultFailure, msg, map[string]string{"dataset": datasetID}))
	return PurchaseResult{Success: false, Error: msg}
}

// VerifyDataIntegrity simulates an on-chain integrity check. The outcome is
// drawn from the ledger's random source; dataHash is not inspected.
func (l *Ledger) VerifyDataIntegrity(ctx context.Context, dataHash string) VerifyResult {
	if err := random.Sleep(ctx, l.clock, l.delays.Verify); err != nil {
		l.audit.LogEvent(audit.New(audit.EventVerify, dataHash, audit.ResultFailure, ErrVerificationFailed, nil))
		return VerifyResult{
			Verified: false,
			Error:    ErrVerificationFailed,
			Message:  "An error occurred during verification",
		}
	}
	if l.rand.Float64() <= verifiedThreshold {
		l.audit.LogEvent(audit.New(audit.EventVerify, dataHash, audit.ResultFailure, "Unverified", nil))
		return VerifyResult{
			Verified: false,
			Message:  "Data integrity could not be verified",
		}
	}
	now := l.clock.Now().UTC()
	l.audit.LogEvent(audit.New(audit.EventVerify, dataHash, audit.ResultSuccess, "Verified", nil))
	return VerifyResult{
		Verified:  true,
		Timestamp: &now,
		Message:   "Data integrity verified",
	}
}
