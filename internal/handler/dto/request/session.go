package request

import (
	"time"

	"groupbuy-coordinator/internal/usecase/commands"

	"github.com/google/uuid"
)

type TierRequest struct {
	MinParticipants int   `json:"min_participants" binding:"required,gte=1"`
	DiscountBps     int32 `json:"discount_bps" binding:"gte=0,lt=10000"`
}

type CreateSessionRequest struct {
	ProductRef      uuid.UUID     `json:"product_ref" binding:"required"`
	BasePriceCents  int64         `json:"base_price_cents" binding:"required,gt=0"`
	Tiers           []TierRequest `json:"tiers" binding:"omitempty,dive"`
	MinParticipants int           `json:"min_participants" binding:"required,gte=2"`
	MaxParticipants int           `json:"max_participants" binding:"omitempty,gte=2"`
	ExpiresAt       time.Time     `json:"expires_at" binding:"required"`
}

func (r CreateSessionRequest) ToParams() commands.CreateSessionParams {
	tiers := make([]commands.TierParam, len(r.Tiers))
	for i, t := range r.Tiers {
		tiers[i] = commands.TierParam{
			MinParticipants: t.MinParticipants,
			DiscountBps:     t.DiscountBps,
		}
	}
	return commands.CreateSessionParams{
		ProductRef:      r.ProductRef,
		BasePriceCents:  r.BasePriceCents,
		Tiers:           tiers,
		MinParticipants: r.MinParticipants,
		MaxParticipants: r.MaxParticipants,
		ExpiresAt:       r.ExpiresAt,
	}
}

type JoinSessionRequest struct {
	InvitedBy *uuid.UUID `json:"invited_by,omitempty"`
}
