package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Lamprichauns/lamp-os/internal/config"
	"github.com/Lamprichauns/lamp-os/internal/errors"
	"github.com/Lamprichauns/lamp-os/internal/events"
	"github.com/Lamprichauns/lamp-os/internal/http/handlers"
	"github.com/Lamprichauns/lamp-os/internal/logging"
	"github.com/Lamprichauns/lamp-os/pkg/lamp"
)

// actionFunc serves one socket action. The returned map is merged into the
// response next to "status": "ok".
type actionFunc func(ctx context.Context, data map[string]any) (map[string]any, error)

func (s *Server) socketActions() map[string]actionFunc {
	return map[string]actionFunc{
		"ping":            s.actionPing,
		"health":          s.actionHealth,
		"version":         s.actionVersion,
		"status":          s.actionStatus,
		"list_lamps":      s.actionListLamps,
		"get_lamp":        s.actionGetLamp,
		"list_attributes": s.actionListAttributes,
		"announce":        s.actionAnnounce,
		"list_messages":   s.actionListMessages,
		"broadcast":       s.actionBroadcast,
		"list_filters":    s.actionListFilters,
		"set_filters":     s.actionSetFilters,
		"set_level":       s.actionSetLevel,
	}
}

func (s *Server) actionPing(context.Context, map[string]any) (map[string]any, error) {
	return map[string]any{"message": "pong"}, nil
}

func (s *Server) actionHealth(context.Context, map[string]any) (map[string]any, error) {
	return map[string]any{"health": "ok"}, nil
}

func (s *Server) actionVersion(context.Context, map[string]any) (map[string]any, error) {
	return map[string]any{"version": toJSONValue(s.version)}, nil
}

func (s *Server) actionStatus(context.Context, map[string]any) (map[string]any, error) {
	return map[string]any{"lamp": toJSONValue(handlers.NewStatusResponse(s.network, s.lamp))}, nil
}

func (s *Server) actionListLamps(_ context.Context, data map[string]any) (map[string]any, error) {
	lamps := handlers.LampsFromPeers(s.network.Lamps(), s.network.Clock().Now())
	if visibleOnly, _ := data["visible"].(bool); visibleOnly {
		visible := lamps[:0]
		for _, l := range lamps {
			if l.Visible {
				visible = append(visible, l)
			}
		}
		lamps = visible
	}
	return map[string]any{"lamps": toJSONValue(lamps)}, nil
}

func (s *Server) actionGetLamp(_ context.Context, data map[string]any) (map[string]any, error) {
	raw := stringFromMap(data, "id")
	if raw == "" {
		return nil, errors.InvalidInputf("missing lamp id")
	}
	id, err := lamp.ParsePeerID(raw)
	if err != nil {
		return nil, err
	}
	peer, ok := s.network.Lamp(id)
	if !ok {
		return nil, errors.NotFoundf("lamp %s", id)
	}
	return map[string]any{"lamp": toJSONValue(handlers.LampFromPeer(peer, s.network.Clock().Now()))}, nil
}

func (s *Server) actionListAttributes(context.Context, map[string]any) (map[string]any, error) {
	return map[string]any{"attributes": toJSONValue(handlers.AttributesFromLamp(s.network.Attributes()))}, nil
}

func (s *Server) actionAnnounce(_ context.Context, data map[string]any) (map[string]any, error) {
	attr, err := handlers.ParseAttribute(stringFromMap(data, "code"), stringFromMap(data, "value"), stringFromMap(data, "color"))
	if err != nil {
		return nil, err
	}
	s.network.AnnounceAttribute(attr)
	s.logger.Info("Attribute announced via socket", "code", attr.Code)
	s.eventBus.Publish(events.NewEvent(events.AttributeAnnounced, events.NewAttributeData("", attr)))
	return map[string]any{"attribute": toJSONValue(handlers.AttributeFromLamp(attr))}, nil
}

func (s *Server) actionListMessages(context.Context, map[string]any) (map[string]any, error) {
	return map[string]any{"messages": toJSONValue(handlers.MessagesFromLamp(s.network.Messages()))}, nil
}

func (s *Server) actionBroadcast(_ context.Context, data map[string]any) (map[string]any, error) {
	ttl, _ := data["ttl"].(float64)
	msg, err := handlers.ParseBroadcast(
		stringFromMap(data, "code"),
		stringFromMap(data, "payload"),
		stringFromMap(data, "color"),
		int(ttl),
		config.ValidateTTL(s.cfg.Network.BroadcastTTL),
	)
	if err != nil {
		return nil, err
	}
	s.network.SendBroadcast(msg.Code, msg.Payload, msg.TTL)
	s.logger.Info("Broadcast sent via socket", "code", msg.Code, "ttl", msg.TTL)
	s.eventBus.Publish(events.NewEvent(events.BroadcastSent, events.NewMessageData(msg)))
	return map[string]any{"message": toJSONValue(handlers.MessageFromLamp(msg))}, nil
}

func (s *Server) filterState() map[string]any {
	return map[string]any{
		"level":   logging.LevelString(s.logCtl.Level()),
		"filters": toJSONValue(s.logCtl.Filters()),
	}
}

func (s *Server) actionListFilters(context.Context, map[string]any) (map[string]any, error) {
	return s.filterState(), nil
}

func (s *Server) actionSetFilters(_ context.Context, data map[string]any) (map[string]any, error) {
	var filters []logging.Filter
	if err := fromJSONValue(data["filters"], &filters); err != nil {
		return nil, errors.InvalidInputf("filters must be a list of filter objects: %s", err)
	}
	if errs := logging.ValidateFilters(filters); len(errs) > 0 {
		return nil, errors.InvalidInputf("invalid filters: %s", logging.FormatErrors(errs))
	}
	if err := s.logCtl.SetFilters(filters); err != nil {
		return nil, err
	}
	s.logger.Info("Log filters updated via socket", "count", len(filters))
	return s.filterState(), nil
}

func (s *Server) actionSetLevel(_ context.Context, data map[string]any) (map[string]any, error) {
	raw := stringFromMap(data, "level")
	if raw == "" {
		return nil, errors.InvalidInputf("missing level")
	}
	level, err := logging.ParseLevel(raw)
	if err != nil {
		return nil, err
	}
	s.logCtl.SetLevel(level)
	s.logger.Info("Log level changed via socket", "level", logging.LevelString(level))
	return map[string]any{"level": logging.LevelString(level)}, nil
}

// toJSONValue converts v to the generic form a decoded JSON response has,
// so socket responses carry the same field names as the HTTP API.
func toJSONValue(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("unencodable value: %s", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}

func fromJSONValue(in any, out any) error {
	if in == nil {
		return fmt.Errorf("missing value")
	}
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// stringFromMap extracts a string from a map[string]any, returning "" if missing or wrong type.
func stringFromMap(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}
