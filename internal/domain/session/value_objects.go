package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusOpen      Status = "open"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

func NewStatus(value string) (Status, error) {
	switch Status(value) {
	case StatusOpen, StatusCompleted, StatusExpired:
		return Status(value), nil
	default:
		return "", fmt.Errorf("invalid session status: %q", value)
	}
}

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

type Money struct {
	cents int64
}

func NewMoney(cents int64) (Money, error) {
	if cents < 0 {
		return Money{}, errors.New("money cannot be negative")
	}
	return Money{cents: cents}, nil
}

func (m Money) Cents() int64 {
	return m.cents
}

func (m Money) Equal(other Money) bool {
	return m.cents == other.cents
}

const fractionScale = 10000

// Fraction is a fixed-point fraction in [0,1), stored in basis points so
// discount arithmetic never touches floating point.
type Fraction struct {
	bps int32
}

func NewFraction(bps int32) (Fraction, error) {
	if bps < 0 || bps >= fractionScale {
		return Fraction{}, errors.New("fraction must be in [0,1)")
	}
	return Fraction{bps: bps}, nil
}

func (f Fraction) BasisPoints() int32 {
	return f.bps
}

// ApplyTo discounts m by the fraction, rounding half up exactly once.
func (f Fraction) ApplyTo(m Money) Money {
	remaining := int64(fractionScale - f.bps)
	cents := (m.cents*remaining + fractionScale/2) / fractionScale
	return Money{cents: cents}
}

type Tier struct {
	MinParticipants int
	Discount        Fraction
}

// TierTable is an ordered sequence of discount tiers, validated at
// construction so join-time pricing never has to handle configuration errors.
type TierTable struct {
	tiers []Tier
}

func NewTierTable(tiers []Tier) (TierTable, error) {
	for i, tier := range tiers {
		if tier.MinParticipants < 1 {
			return TierTable{}, errors.New("tier minParticipants must be >= 1")
		}
		if i == 0 {
			continue
		}
		prev := tiers[i-1]
		if tier.MinParticipants == prev.MinParticipants {
			return TierTable{}, errors.New("duplicate tier minParticipants")
		}
		if tier.MinParticipants < prev.MinParticipants {
			return TierTable{}, errors.New("tiers must be sorted ascending by minParticipants")
		}
		if tier.Discount.bps < prev.Discount.bps {
			return TierTable{}, errors.New("tier discounts must be non-decreasing")
		}
	}
	copied := make([]Tier, len(tiers))
	copy(copied, tiers)
	return TierTable{tiers: copied}, nil
}

func (t TierTable) Tiers() []Tier {
	copied := make([]Tier, len(t.tiers))
	copy(copied, t.tiers)
	return copied
}

func (t TierTable) IsEmpty() bool {
	return len(t.tiers) == 0
}

type Participant struct {
	UserRef   uuid.UUID
	JoinedAt  time.Time
	InvitedBy *uuid.UUID
}
