package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMinParticipantsTooLow = errors.New("minParticipants must be >= 2")
	ErrMaxBelowMin           = errors.New("maxParticipants must be >= minParticipants")
	ErrDeadlineInPast        = errors.New("expiresAt must be in the future")
	ErrSessionNotOpen        = errors.New("session is not open")
	ErrCapacityReached       = errors.New("session is at capacity")
	ErrDeadlineNotReached    = errors.New("session deadline not reached")
)

// Session is the group-buy aggregate root. All mutation goes through Join
// and Expire so the status transitions, the participant set, and the derived
// price can never drift apart.
type Session struct {
	id              uuid.UUID
	productRef      uuid.UUID
	basePrice       Money
	tiers           TierTable
	minParticipants int
	maxParticipants int // 0 means no cap
	participants    []Participant
	status          Status
	currentPrice    Money
	expiresAt       time.Time
	createdAt       time.Time
	version         int64
}

// NewSession builds an Open session with the creator as its first
// participant. Tier configuration errors surface here, never at join time.
func NewSession(
	productRef uuid.UUID,
	basePrice Money,
	tiers TierTable,
	minParticipants int,
	maxParticipants int,
	creator uuid.UUID,
	expiresAt time.Time,
	now time.Time,
) (*Session, error) {
	if minParticipants < 2 {
		return nil, ErrMinParticipantsTooLow
	}
	if maxParticipants != 0 && maxParticipants < minParticipants {
		return nil, ErrMaxBelowMin
	}
	if !expiresAt.After(now) {
		return nil, ErrDeadlineInPast
	}

	participants := []Participant{{UserRef: creator, JoinedAt: now}}

	return &Session{
		id:              uuid.New(),
		productRef:      productRef,
		basePrice:       basePrice,
		tiers:           tiers,
		minParticipants: minParticipants,
		maxParticipants: maxParticipants,
		participants:    participants,
		status:          StatusOpen,
		currentPrice:    ResolvePrice(basePrice, tiers, len(participants)),
		expiresAt:       expiresAt,
		createdAt:       now,
		version:         1,
	}, nil
}

// ReconstructSession rehydrates a stored session without re-running creation
// validation.
func ReconstructSession(
	id, productRef uuid.UUID,
	basePrice Money,
	tiers TierTable,
	minParticipants, maxParticipants int,
	participants []Participant,
	status Status,
	currentPrice Money,
	expiresAt, createdAt time.Time,
	version int64,
) *Session {
	return &Session{
		id:              id,
		productRef:      productRef,
		basePrice:       basePrice,
		tiers:           tiers,
		minParticipants: minParticipants,
		maxParticipants: maxParticipants,
		participants:    participants,
		status:          status,
		currentPrice:    currentPrice,
		expiresAt:       expiresAt,
		createdAt:       createdAt,
		version:         version,
	}
}

// JoinOutcome reports what a Join call changed on the candidate state.
type JoinOutcome struct {
	AlreadyJoined bool
	PriceChanged  bool
	JustCompleted bool
}

// Join adds userRef as a participant, recomputes the price, and evaluates
// the completion rule against the candidate participant count. Completion is
// a milestone, not a gate: joins keep landing into a Completed session until
// the cap fills; only Expired closes the session. A duplicate userRef is an
// idempotent no-op, not an error. The caller owns committing the mutated
// state via the repository's conditional write.
func (s *Session) Join(userRef uuid.UUID, invitedBy *uuid.UUID, now time.Time) (JoinOutcome, error) {
	if s.status == StatusExpired {
		return JoinOutcome{}, ErrSessionNotOpen
	}
	if s.HasParticipant(userRef) {
		return JoinOutcome{AlreadyJoined: true}, nil
	}
	if s.maxParticipants != 0 && len(s.participants) >= s.maxParticipants {
		return JoinOutcome{}, ErrCapacityReached
	}

	s.participants = append(s.participants, Participant{
		UserRef:   userRef,
		JoinedAt:  now,
		InvitedBy: invitedBy,
	})

	newPrice := ResolvePrice(s.basePrice, s.tiers, len(s.participants))
	priceChanged := !newPrice.Equal(s.currentPrice)
	s.currentPrice = newPrice

	justCompleted := false
	if s.status == StatusOpen && len(s.participants) >= s.minParticipants {
		s.status = StatusCompleted
		justCompleted = true
	}

	return JoinOutcome{PriceChanged: priceChanged, JustCompleted: justCompleted}, nil
}

// ShouldExpire reports whether the expiry transition is due.
func (s *Session) ShouldExpire(now time.Time) bool {
	return s.status == StatusOpen && !now.Before(s.expiresAt)
}

// Expire transitions Open -> Expired once the deadline has passed.
func (s *Session) Expire(now time.Time) error {
	if s.status != StatusOpen {
		return ErrSessionNotOpen
	}
	if now.Before(s.expiresAt) {
		return ErrDeadlineNotReached
	}
	s.status = StatusExpired
	return nil
}

func (s *Session) HasParticipant(userRef uuid.UUID) bool {
	for _, p := range s.participants {
		if p.UserRef == userRef {
			return true
		}
	}
	return false
}

func (s *Session) ID() uuid.UUID         { return s.id }
func (s *Session) ProductRef() uuid.UUID { return s.productRef }
func (s *Session) BasePrice() Money      { return s.basePrice }
func (s *Session) Tiers() TierTable      { return s.tiers }
func (s *Session) MinParticipants() int  { return s.minParticipants }
func (s *Session) MaxParticipants() int  { return s.maxParticipants }
func (s *Session) Status() Status        { return s.status }
func (s *Session) CurrentPrice() Money   { return s.currentPrice }
func (s *Session) ExpiresAt() time.Time  { return s.expiresAt }
func (s *Session) CreatedAt() time.Time  { return s.createdAt }
func (s *Session) Version() int64        { return s.version }

func (s *Session) Participants() []Participant {
	copied := make([]Participant, len(s.participants))
	copy(copied, s.participants)
	return copied
}

func (s *Session) ParticipantCount() int {
	return len(s.participants)
}

func (s *Session) ParticipantRefs() []uuid.UUID {
	refs := make([]uuid.UUID, len(s.participants))
	for i, p := range s.participants {
		refs[i] = p.UserRef
	}
	return refs
}

// SetVersion is reserved for repository implementations committing a
// conditional write; domain code never bumps the version itself.
func (s *Session) SetVersion(v int64) {
	s.version = v
}
