// Package client holds outbound integrations: the NATS notification
// publisher consumed by the workflow service.
package client

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NotificationPublisher publishes workflow events to NATS for consumption by
// the notifications service.
//
// Subject convention: notifications.opex.<event_type>
// Event types: initiative_submitted, stage_approved, stage_rejected,
//              initiative_completed
//
// All publish operations are non-fatal: errors are logged but never
// propagated, so notification failures never interrupt workflow transitions.
type NotificationPublisher struct {
	conn *nats.Conn
	log  zerolog.Logger
}

// WorkflowEvent is the JSON schema published to NATS.
type WorkflowEvent struct {
	EventType    string         `json:"event_type"`
	InitiativeID string         `json:"initiative_id"`
	SiteCode     string         `json:"site_code"`
	ActorEmail   string         `json:"actor_email"`
	StageNumber  int            `json:"stage_number,omitempty"`
	PendingWith  string         `json:"pending_with,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// NewNotificationPublisher creates a publisher. conn may be nil, which turns
// every publish into a no-op (NATS not configured).
func NewNotificationPublisher(conn *nats.Conn, log zerolog.Logger) *NotificationPublisher {
	return &NotificationPublisher{conn: conn, log: log}
}

// PublishWorkflowEvent publishes one workflow event.
// Subject: notifications.opex.<eventType>
func (p *NotificationPublisher) PublishWorkflowEvent(event *WorkflowEvent) {
	if p.conn == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", event.EventType).Msg("notification: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("notifications.opex.%s", event.EventType)
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("initiative_id", event.InitiativeID).
			Msg("notification: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("initiative_id", event.InitiativeID).
		Msg("notification: event published")
}
