package domain

import "time"

type LifecycleEventType string

const (
	EventCreated         LifecycleEventType = "created"
	EventShared          LifecycleEventType = "shared"
	EventSent            LifecycleEventType = "sent"
	EventViewed          LifecycleEventType = "viewed"
	EventSigned          LifecycleEventType = "signed"
	EventContractCreated LifecycleEventType = "contract_created"
	EventRevoked         LifecycleEventType = "revoked"
	EventPDFStored       LifecycleEventType = "pdf_stored"
)

type EventChannel string

const (
	ChannelLink  EventChannel = "link"
	ChannelSMS   EventChannel = "sms"
	ChannelKakao EventChannel = "kakao"
	ChannelEmail EventChannel = "email"
)

// LifecycleEvent is append-only. Channel is empty when the event has no delivery channel.
type LifecycleEvent struct {
	ID         int64              `json:"id"`
	CompanyID  int32              `json:"company_id"`
	QuoteID    int32              `json:"quote_id"`
	ContractID *int32             `json:"contract_id,omitempty"`
	EventType  LifecycleEventType `json:"event_type"`
	Channel    EventChannel       `json:"channel,omitempty"`
	Recipient  string             `json:"recipient,omitempty"`
	Metadata   map[string]any     `json:"metadata,omitempty"`
	ActorID    *int32             `json:"actor_id,omitempty"`
	CreatedOn  time.Time          `json:"created_on"`
}
