package audit

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the session store and the ledger.
const (
	EventLogin         = "Login"
	EventRegister      = "Register"
	EventLogout        = "Logout"
	EventProfileUpdate = "ProfileUpdate"
	EventWalletConnect = "WalletConnect"
	EventPurchase      = "DatasetPurchase"
	EventVerify        = "IntegrityVerification"
	EventListing       = "DatasetListing"
	EventAuthorization = "Authorization"
	EventTokenIssued   = "TokenIssued"
)

// Results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// AuditEvent represents an authentication or ledger event.
type AuditEvent struct {
	ID        string
	Timestamp time.Time
	EventType string            // e.g., "Login", "DatasetPurchase"
	EntityID  string            // e.g., email or wallet address
	Result    string            // "success" or "failure"
	Reason    string            // error message or outcome
	Metadata  map[string]string // any extra details
}

// AuditLogger is the interface for logging audit events.
type AuditLogger interface {
	LogEvent(event AuditEvent)
}

// New fills in the id and timestamp of an event.
func New(eventType, entityID, result, reason string, metadata map[string]string) AuditEvent {
	if metadata == nil {
		metadata = map[string]string{}
	}
	return AuditEvent{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		EntityID:  entityID,
		Result:    result,
		Reason:    reason,
		Metadata:  metadata,
	}
}

// SlogAuditLogger writes events to a structured logger.
type SlogAuditLogger struct {
	log *slog.Logger
}

// NewSlogAuditLogger returns an AuditLogger backed by log.
func NewSlogAuditLogger(log *slog.Logger) AuditLogger {
	return &SlogAuditLogger{log: log}
}

func (l *SlogAuditLogger) LogEvent(event AuditEvent) {
	attrs := []any{
		"id", event.ID,
		"time", event.Timestamp.Format(time.RFC3339),
		"type", event.EventType,
		"entity", event.EntityID,
		"result", event.Result,
		"reason", event.Reason,
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, "meta."+k, v)
	}
	l.log.Info("[AUDIT]", attrs...)
}

// MemoryAuditLogger keeps events in memory. It is safe for concurrent use.
type MemoryAuditLogger struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (m *MemoryAuditLogger) LogEvent(event AuditEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

// Events returns a copy of the recorded events, oldest first.
func (m *MemoryAuditLogger) Events() []AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AuditEvent, len(m.events))
	copy(out, m.events)
	return out
}

// Last returns the most recent event of the given type.
func (m *MemoryAuditLogger) Last(eventType string) (AuditEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].EventType == eventType {
			return m.events[i], true
		}
	}
	return AuditEvent{}, false
}

// Nop discards events.
type Nop struct{}

func (Nop) LogEvent(AuditEvent) {}
