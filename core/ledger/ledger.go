// Package ledger simulates a wallet connection and dataset purchases without
// any real network or cryptographic backing.
package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"medmarket/core/audit"
	"medmarket/core/logging"
	"medmarket/core/random"
	"medmarket/core/session"
	"medmarket/core/txlog"
	"medmarket/core/wallet"
)

// Status is the wallet connection state.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// Error messages reported through LastError and result structs.
const (
	ErrNotLoggedIn        = "User not logged in"
	ErrConnectFailed      = "Failed to connect wallet"
	ErrWalletNotConnected = "Wallet not connected"
	ErrInvalidPrice       = "Invalid price"
	ErrInvalidSeller      = "Invalid seller address"
	ErrTransactionFailed  = "Transaction failed"
	ErrVerificationFailed = "Verification failed"
)

// Delays are the simulated latencies of each operation.
type Delays struct {
	AutoConnect time.Duration
	Connect     time.Duration
	Purchase    time.Duration
	Verify      time.Duration
}

// DefaultDelays mirrors the demo timings.
func DefaultDelays() Delays {
	return Delays{
		AutoConnect: 1500 * time.Millisecond,
		Connect:     1000 * time.Millisecond,
		Purchase:    2000 * time.Millisecond,
		Verify:      1500 * time.Millisecond,
	}
}

// SessionSource is the part of the session store the ledger depends on.
type SessionSource interface {
	Current() *session.User
	Subscribe(fn session.Listener) (cancel func())
}

// Snapshot is a consistent read of the ledger state.
type Snapshot struct {
	Status       Status              `json:"connectionStatus"`
	Balance      wallet.Balance      `json:"walletBalance"`
	Transactions []txlog.Transaction `json:"transactions"`
	ETHPriceUSD  string              `json:"ethPrice"`
	Error        string              `json:"error,omitempty"`
}

// Listener observes ledger state changes.
type Listener func(Snapshot)

// Ledger is the wallet simulation state container. It is safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	status  Status
	eth     decimal.Decimal
	price   decimal.Decimal
	address string
	lastErr string
	// generation increments on every session transition so that reactions
	// scheduled for an older session are dropped.
	generation uint64

	sessions SessionSource
	txs      *txlog.Log
	delays   Delays
	clock    random.Clock
	rand     random.Source
	audit    audit.AuditLogger
	log      *slog.Logger

	subMu     sync.Mutex
	listeners []Listener

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	closed      bool // guarded by mu
	unsubscribe func()
}

// Option configures a Ledger.
type Option func(*Ledger)

func WithDelays(d Delays) Option {
	return func(l *Ledger) { l.delays = d }
}

func WithClock(c random.Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

func WithRandom(r random.Source) Option {
	return func(l *Ledger) { l.rand = r }
}

// WithETHPrice sets the USD conversion rate.
func WithETHPrice(price decimal.Decimal) Option {
	return func(l *Ledger) { l.price = price }
}

// WithTransactions replaces the seeded transaction log.
func WithTransactions(log *txlog.Log) Option {
	return func(l *Ledger) { l.txs = log }
}

func WithAuditLogger(a audit.AuditLogger) Option {
	return func(l *Ledger) { l.audit = a }
}

func WithLogger(log *slog.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// New creates a ledger bound to sessions. If a session with a wallet address is
// already active, the auto-connect reaction starts immediately.
func New(sessions SessionSource, opts ...Option) *Ledger {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Ledger{
		status:   StatusDisconnected,
		eth:      decimal.Zero,
		price:    decimal.NewFromInt(wallet.DefaultETHPriceUSD),
		sessions: sessions,
		delays:   DefaultDelays(),
		clock:    random.SystemClock(),
		rand:     random.NewCryptoSource(),
		audit:    audit.Nop{},
		log:      logging.Discard(),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.txs == nil {
		l.txs = txlog.New(txlog.Seed()...)
	}
	l.unsubscribe = sessions.Subscribe(func(_, next *session.User) {
		l.onSession(next)
	})
	l.onSession(sessions.Current())
	return l
}

// Close detaches the ledger from the session store and waits for pending reactions.
func (l *Ledger) Close() {
	l.unsubscribe()
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.cancel()
	l.wg.Wait()
}

// onSession applies the auto-connect trigger: a transition of the session
// wallet address from empty to non-empty, or to a different address.
func (l *Ledger) onSession(next *session.User) {
	addr := ""
	if next != nil {
		addr = next.WalletAddress
	}

	l.mu.Lock()
	if l.closed || addr == l.address {
		l.mu.Unlock()
		return
	}
	l.generation++
	gen := l.generation
	l.address = addr
	l.eth = decimal.Zero
	if addr == "" {
		l.status = StatusDisconnected
		l.mu.Unlock()
		l.log.Info("[LEDGER] session ended, wallet disconnected")
		l.emit()
		return
	}
	l.status = StatusConnecting
	role := next.Role
	// Add under mu so Close never waits on a counter that can still grow.
	l.wg.Add(1)
	l.mu.Unlock()
	l.emit()

	l.log.Info("[LEDGER] auto-connecting", "wallet", addr, "role", role)
	go l.autoConnect(gen, addr, role)
}

func (l *Ledger) autoConnect(gen uint64, addr string, role session.Role) {
	defer l.wg.Done()
	if err := random.Sleep(l.ctx, l.clock, l.delays.AutoConnect); err != nil {
		return
	}
	l.mu.Lock()
	if l.generation != gen {
		l.mu.Unlock()
		l.log.Debug("[LEDGER] dropping stale auto-connect", "wallet", addr)
		return
	}
	l.status = StatusConnected
	l.eth = wallet.Preset(role)
	l.mu.Unlock()

	l.log.Info("[LEDGER] wallet connected", "wallet", addr, "eth", wallet.Preset(role).StringFixed(2))
	l.audit.LogEvent(audit.New(audit.EventWalletConnect, addr, audit.ResultSuccess, "Auto-connected", map[string]string{"role": string(role)}))
	l.emit()
}

// ConnectWallet simulates an explicit wallet connection for the active session.
func (l *Ledger) ConnectWallet(ctx context.Context) bool {
	user := l.sessions.Current()
	if user == nil {
		l.setError(ErrNotLoggedIn)
		l.audit.LogEvent(audit.New(audit.EventWalletConnect, "", audit.ResultFailure, ErrNotLoggedIn, nil))
		return false
	}

	l.mu.Lock()
	l.lastErr = ""
	l.status = StatusConnecting
	gen := l.generation
	l.mu.Unlock()
	l.emit()

	err := random.Sleep(ctx, l.clock, l.delays.Connect)

	l.mu.Lock()
	if err != nil || l.generation != gen {
		if l.generation == gen {
			l.status = StatusDisconnected
		}
		l.lastErr = ErrConnectFailed
		l.mu.Unlock()
		l.log.Warn("[LEDGER] wallet connection failed", "wallet", user.WalletAddress, "err", err)
		l.audit.LogEvent(audit.New(audit.EventWalletConnect, user.WalletAddress, audit.ResultFailure, ErrConnectFailed, nil))
		l.emit()
		return false
	}
	l.status = StatusConnected
	l.mu.Unlock()

	l.audit.LogEvent(audit.New(audit.EventWalletConnect, user.WalletAddress, audit.ResultSuccess, "Connected", nil))
	l.emit()
	return true
}

// Status returns the connection state.
func (l *Ledger) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Balance returns the wallet balance in ETH and USD.
func (l *Ledger) Balance() wallet.Balance {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceLocked()
}

func (l *Ledger) balanceLocked() wallet.Balance {
	if l.address == "" {
		return wallet.ZeroBalance
	}
	return wallet.Render(l.eth, l.price)
}

// ETHPrice returns the USD conversion rate.
func (l *Ledger) ETHPrice() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.price
}

// Transactions returns the transactions involving the session wallet, most recent first.
func (l *Ledger) Transactions() []txlog.Transaction {
	l.mu.Lock()
	addr := l.address
	l.mu.Unlock()
	return l.txs.ByAddress(addr)
}

// LastError returns the message of the most recent failed call, or "".
func (l *Ledger) LastError() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// Snapshot returns the full ledger state.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	snap := Snapshot{
		Status:      l.status,
		Balance:     l.balanceLocked(),
		ETHPriceUSD: l.price.String(),
		Error:       l.lastErr,
	}
	addr := l.address
	l.mu.Unlock()
	snap.Transactions = l.txs.ByAddress(addr)
	return snap
}

// Subscribe registers fn for ledger state changes. Listeners run synchronously
// on the goroutine that made the change.
func (l *Ledger) Subscribe(fn Listener) {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	l.listeners = append(l.listeners, fn)
}

func (l *Ledger) emit() {
	l.subMu.Lock()
	listeners := make([]Listener, len(l.listeners))
	copy(listeners, l.listeners)
	l.subMu.Unlock()
	if len(listeners) == 0 {
		return
	}
	snap := l.Snapshot()
	for _, fn := range listeners {
		fn(snap)
	}
}

func (l *Ledger) setError(msg string) {
	l.mu.Lock()
	l.lastErr = msg
	l.mu.Unlock()
}

// TotalTransactions counts every transaction in the log, whichever wallet it involves.
func (l *Ledger) TotalTransactions() int {
	return l.txs.Len()
}

// DatasetTransactions returns every recorded purchase of a dataset, newest first.
func (l *Ledger) DatasetTransactions(datasetID string) []txlog.Transaction {
	return l.txs.ByDataset(datasetID)
}
