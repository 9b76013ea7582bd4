package handlers

import (
	"context"

	"github.com/Lamprichauns/lamp-os/internal/errors"
	"github.com/Lamprichauns/lamp-os/pkg/lamp"
)

// --- List Lamps ---

// ListLampsInput is the input for listing peer lamps.
type ListLampsInput struct {
	Visible bool `query:"visible" doc:"Only return lamps heard within the visibility window"`
}

// ListLampsOutput is the output for listing peer lamps.
type ListLampsOutput struct {
	Body []LampResponse
}

// --- Get Lamp ---

// GetLampInput is the input for getting a single lamp.
type GetLampInput struct {
	ID string `path:"id" doc:"Lamp identifier, 12 hex digits"`
}

// GetLampOutput is the output for getting a single lamp.
type GetLampOutput struct {
	Body LampResponse
}

// LampHandler implements peer lamp HTTP handlers.
type LampHandler struct {
	Network Gossip
}

// ListLamps returns the known peer lamps ordered by ID.
func (h *LampHandler) ListLamps(_ context.Context, input *ListLampsInput) (*ListLampsOutput, error) {
	now := h.Network.Clock().Now()
	lamps := LampsFromPeers(h.Network.Lamps(), now)
	if input.Visible {
		visible := lamps[:0]
		for _, l := range lamps {
			if l.Visible {
				visible = append(visible, l)
			}
		}
		lamps = visible
	}
	return &ListLampsOutput{Body: lamps}, nil
}

// GetLamp returns a single peer lamp.
func (h *LampHandler) GetLamp(_ context.Context, input *GetLampInput) (*GetLampOutput, error) {
	id, err := lamp.ParsePeerID(input.ID)
	if err != nil {
		return nil, toHumaError(err)
	}
	peer, ok := h.Network.Lamp(id)
	if !ok {
		return nil, toHumaError(errors.NotFoundf("lamp %s", id))
	}
	return &GetLampOutput{Body: LampFromPeer(peer, h.Network.Clock().Now())}, nil
}

// Ensure LampHandler implements the interface at compile time.
var _ LampHandlers = (*LampHandler)(nil)

// LampHandlers defines the interface for peer lamp operations.
type LampHandlers interface {
	ListLamps(ctx context.Context, input *ListLampsInput) (*ListLampsOutput, error)
	GetLamp(ctx context.Context, input *GetLampInput) (*GetLampOutput, error)
}
