package response

import (
	"log/slog"
	"time"

	"groupbuy-coordinator/internal/domain/session"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type SessionResponse struct {
	ID                uuid.UUID                 `json:"id"`
	ProductRef        uuid.UUID                 `json:"product_ref"`
	BasePriceCents    int64                     `json:"base_price_cents"`
	Tiers             []session.TierView        `json:"tiers"`
	MinParticipants   int                       `json:"min_participants"`
	MaxParticipants   int                       `json:"max_participants,omitempty"`
	Participants      []session.ParticipantView `json:"participants"`
	Status            string                    `json:"status"`
	CurrentPriceCents int64                     `json:"current_price_cents"`
	ExpiresAt         time.Time                 `json:"expires_at"`
	CreatedAt         time.Time                 `json:"created_at"`
	Version           int64                     `json:"version"`
}

func FromSnapshot(snap session.Snapshot) *SessionResponse {
	resp := &SessionResponse{}
	if err := copier.Copy(resp, &snap); err != nil {
		slog.Error("failed to map session snapshot", "error", err)
	}
	resp.Status = snap.Status.String()
	return resp
}

type JoinResponse struct {
	Session       *SessionResponse `json:"session"`
	PriceChanged  bool             `json:"price_changed"`
	JustCompleted bool             `json:"just_completed"`
	AlreadyJoined bool             `json:"already_joined"`
}
