//go:build unit || e2e

package builder

import (
	"time"

	domsession "groupbuy-coordinator/internal/domain/session"
	reqdto "groupbuy-coordinator/internal/handler/dto/request"
	"groupbuy-coordinator/internal/usecase/commands"

	"github.com/google/uuid"
)

type SessionBuilder struct {
	ProductRef      uuid.UUID
	BasePriceCents  int64
	Tiers           []commands.TierParam
	MinParticipants int
	MaxParticipants int
	Creator         uuid.UUID
	ExpiresAt       time.Time
	Now             time.Time
}

func NewSessionBuilder() *SessionBuilder {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	return &SessionBuilder{
		ProductRef:     uuid.New(),
		BasePriceCents: 10000,
		Tiers: []commands.TierParam{
			{MinParticipants: 3, DiscountBps: 1000},
			{MinParticipants: 5, DiscountBps: 2000},
		},
		MinParticipants: 5,
		MaxParticipants: 0,
		Creator:         uuid.New(),
		ExpiresAt:       now.Add(24 * time.Hour),
		Now:             now,
	}
}

func (b *SessionBuilder) With(mutate func(*SessionBuilder)) *SessionBuilder {
	mutate(b)
	return b
}

// Build methods
func (b *SessionBuilder) BuildDomain() (*domsession.Session, error) {
	basePrice, err := domsession.NewMoney(b.BasePriceCents)
	if err != nil {
		return nil, err
	}

	tiers := make([]domsession.Tier, 0, len(b.Tiers))
	for _, t := range b.Tiers {
		discount, fracErr := domsession.NewFraction(t.DiscountBps)
		if fracErr != nil {
			return nil, fracErr
		}
		tiers = append(tiers, domsession.Tier{MinParticipants: t.MinParticipants, Discount: discount})
	}
	table, err := domsession.NewTierTable(tiers)
	if err != nil {
		return nil, err
	}

	return domsession.NewSession(
		b.ProductRef, basePrice, table,
		b.MinParticipants, b.MaxParticipants,
		b.Creator, b.ExpiresAt, b.Now,
	)
}

func (b *SessionBuilder) BuildParams() commands.CreateSessionParams {
	return commands.CreateSessionParams{
		ProductRef:      b.ProductRef,
		BasePriceCents:  b.BasePriceCents,
		Tiers:           b.Tiers,
		MinParticipants: b.MinParticipants,
		MaxParticipants: b.MaxParticipants,
		ExpiresAt:       b.ExpiresAt,
	}
}

func (b *SessionBuilder) BuildCreateRequestDTO() reqdto.CreateSessionRequest {
	tiers := make([]reqdto.TierRequest, 0, len(b.Tiers))
	for _, t := range b.Tiers {
		tiers = append(tiers, reqdto.TierRequest{
			MinParticipants: t.MinParticipants,
			DiscountBps:     t.DiscountBps,
		})
	}
	return reqdto.CreateSessionRequest{
		ProductRef:      b.ProductRef,
		BasePriceCents:  b.BasePriceCents,
		Tiers:           tiers,
		MinParticipants: b.MinParticipants,
		MaxParticipants: b.MaxParticipants,
		ExpiresAt:       b.ExpiresAt,
	}
}
