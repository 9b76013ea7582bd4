package handlers

import (
	"context"
	"log/slog"

	"github.com/Lamprichauns/lamp-os/internal/events"
)

// --- Status ---

// StatusInput is the input for the local status endpoint.
type StatusInput struct{}

// StatusOutput is the output for the local status endpoint.
type StatusOutput struct {
	Body StatusResponse
}

// --- Attributes ---

// ListAttributesInput is the input for listing announced attributes.
type ListAttributesInput struct{}

// ListAttributesOutput is the output for listing announced attributes.
type ListAttributesOutput struct {
	Body []AttributeResponse
}

// AnnounceAttributeInput is the input for announcing an attribute.
type AnnounceAttributeInput struct {
	Body struct {
		Code  string `json:"code" doc:"Code name such as BASE_COLOR, or a number below 0x90" minLength:"1"`
		Value string `json:"value,omitempty" doc:"Raw value, hex encoded"`
		Color string `json:"color,omitempty" doc:"Colour value as #rrggbb or #rrggbbww"`
	}
}

// AnnounceAttributeOutput is the output after announcing an attribute.
type AnnounceAttributeOutput struct {
	Body AttributeResponse
}

// --- Messages ---

// ListMessagesInput is the input for listing live broadcast messages.
type ListMessagesInput struct{}

// ListMessagesOutput is the output for listing live broadcast messages.
type ListMessagesOutput struct {
	Body []MessageResponse
}

// SendBroadcastInput is the input for originating a broadcast message.
type SendBroadcastInput struct {
	Body struct {
		Code    string `json:"code" doc:"Code name such as SHADE_OVERRIDE, or a number from 0x90" minLength:"1"`
		Payload string `json:"payload,omitempty" doc:"Raw payload, hex encoded"`
		Color   string `json:"color,omitempty" doc:"Colour payload as #rrggbb or #rrggbbww"`
		TTL     int    `json:"ttl,omitempty" doc:"Time to live in seconds, 0 for the configured default" minimum:"0" maximum:"255"`
	}
}

// SendBroadcastOutput is the output after originating a broadcast message.
type SendBroadcastOutput struct {
	Body MessageResponse
}

// LocalHandler implements handlers for this lamp's own state.
type LocalHandler struct {
	Network    Gossip
	Lamp       Identity
	Events     *events.Bus
	DefaultTTL uint8
	Logger     *slog.Logger
}

// GetStatus describes this lamp.
func (h *LocalHandler) GetStatus(_ context.Context, _ *StatusInput) (*StatusOutput, error) {
	return &StatusOutput{Body: NewStatusResponse(h.Network, h.Lamp)}, nil
}

// ListAttributes returns the attributes this lamp announces.
func (h *LocalHandler) ListAttributes(_ context.Context, _ *ListAttributesInput) (*ListAttributesOutput, error) {
	return &ListAttributesOutput{Body: AttributesFromLamp(h.Network.Attributes())}, nil
}

// AnnounceAttribute sets or replaces one of this lamp's attributes.
func (h *LocalHandler) AnnounceAttribute(_ context.Context, input *AnnounceAttributeInput) (*AnnounceAttributeOutput, error) {
	attr, err := ParseAttribute(input.Body.Code, input.Body.Value, input.Body.Color)
	if err != nil {
		return nil, toHumaError(err)
	}
	h.Network.AnnounceAttribute(attr)
	h.Logger.Info("Attribute announced via API", "code", attr.Code)
	if h.Events != nil {
		h.Events.Publish(events.NewEvent(events.AttributeAnnounced, events.NewAttributeData("", attr)))
	}
	return &AnnounceAttributeOutput{Body: AttributeFromLamp(attr)}, nil
}

// ListMessages returns the live broadcast messages with their current ttl.
func (h *LocalHandler) ListMessages(_ context.Context, _ *ListMessagesInput) (*ListMessagesOutput, error) {
	return &ListMessagesOutput{Body: MessagesFromLamp(h.Network.Messages())}, nil
}

// SendBroadcast originates a broadcast message from this lamp.
func (h *LocalHandler) SendBroadcast(_ context.Context, input *SendBroadcastInput) (*SendBroadcastOutput, error) {
	msg, err := ParseBroadcast(input.Body.Code, input.Body.Payload, input.Body.Color, input.Body.TTL, h.DefaultTTL)
	if err != nil {
		return nil, toHumaError(err)
	}
	h.Network.SendBroadcast(msg.Code, msg.Payload, msg.TTL)
	h.Logger.Info("Broadcast sent via API", "code", msg.Code, "ttl", msg.TTL)
	if h.Events != nil {
		h.Events.Publish(events.NewEvent(events.BroadcastSent, events.NewMessageData(msg)))
	}
	return &SendBroadcastOutput{Body: MessageFromLamp(msg)}, nil
}

// Ensure LocalHandler implements the interface at compile time.
var _ LocalHandlers = (*LocalHandler)(nil)

// LocalHandlers defines the interface for local lamp operations.
type LocalHandlers interface {
	GetStatus(ctx context.Context, input *StatusInput) (*StatusOutput, error)
	ListAttributes(ctx context.Context, input *ListAttributesInput) (*ListAttributesOutput, error)
	AnnounceAttribute(ctx context.Context, input *AnnounceAttributeInput) (*AnnounceAttributeOutput, error)
	ListMessages(ctx context.Context, input *ListMessagesInput) (*ListMessagesOutput, error)
	SendBroadcast(ctx context.Context, input *SendBroadcastInput) (*SendBroadcastOutput, error)
}
