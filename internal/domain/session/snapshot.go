package session

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is an immutable read view of a session at a committed version.
// Fanout events and API responses carry snapshots, never the live aggregate.
type Snapshot struct {
	ID                uuid.UUID
	ProductRef        uuid.UUID
	BasePriceCents    int64
	Tiers             []TierView
	MinParticipants   int
	MaxParticipants   int
	Participants      []ParticipantView
	Status            Status
	CurrentPriceCents int64
	ExpiresAt         time.Time
	CreatedAt         time.Time
	Version           int64
}

type TierView struct {
	MinParticipants int   `json:"min_participants"`
	DiscountBps     int32 `json:"discount_bps"`
}

type ParticipantView struct {
	UserRef   uuid.UUID  `json:"user_ref"`
	JoinedAt  time.Time  `json:"joined_at"`
	InvitedBy *uuid.UUID `json:"invited_by,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	tiers := make([]TierView, len(s.tiers.tiers))
	for i, t := range s.tiers.tiers {
		tiers[i] = TierView{MinParticipants: t.MinParticipants, DiscountBps: t.Discount.BasisPoints()}
	}
	participants := make([]ParticipantView, len(s.participants))
	for i, p := range s.participants {
		participants[i] = ParticipantView{UserRef: p.UserRef, JoinedAt: p.JoinedAt, InvitedBy: p.InvitedBy}
	}
	return Snapshot{
		ID:                s.id,
		ProductRef:        s.productRef,
		BasePriceCents:    s.basePrice.Cents(),
		Tiers:             tiers,
		MinParticipants:   s.minParticipants,
		MaxParticipants:   s.maxParticipants,
		Participants:      participants,
		Status:            s.status,
		CurrentPriceCents: s.currentPrice.Cents(),
		ExpiresAt:         s.expiresAt,
		CreatedAt:         s.createdAt,
		Version:           s.version,
	}
}
