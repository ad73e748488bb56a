package hrdesk

import (
	"io"

	"github.com/MrEthical07/hrdesk/internal/audit"
)

// Audit event types emitted by the Client.
const (
	AuditLogin            = "login"
	AuditLoginFailed      = "login_failed"
	AuditLogout           = "logout"
	AuditRefresh          = "refresh"
	AuditRefreshFailed    = "refresh_failed"
	AuditSessionExpired   = "session_expired"
	AuditPermissionDenied = "permission_denied"
	AuditBootstrap        = "bootstrap"
)

type (
	// AuditEvent is one audit record.
	AuditEvent = audit.Event
	// AuditSink receives audit events from the dispatcher goroutine.
	AuditSink = audit.Sink
	// NoOpSink discards events.
	NoOpSink = audit.NoOpSink
	// ChannelSink delivers events on a channel.
	ChannelSink = audit.ChannelSink
	// JSONWriterSink writes JSON lines.
	JSONWriterSink = audit.JSONWriterSink
)

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}
