package converter

import (
	"encoding/json"
	"time"

	"groupbuy-coordinator/internal/domain/session"
	"groupbuy-coordinator/internal/pkg/errs"

	"github.com/google/uuid"
)

type TierJSON struct {
	MinParticipants int   `json:"min_participants"`
	DiscountBps     int32 `json:"discount_bps"`
}

type ParticipantJSON struct {
	UserRef   uuid.UUID  `json:"user_ref"`
	JoinedAt  time.Time  `json:"joined_at"`
	InvitedBy *uuid.UUID `json:"invited_by,omitempty"`
}

func TiersToJSON(tiers session.TierTable) ([]byte, error) {
	rows := make([]TierJSON, 0, len(tiers.Tiers()))
	for _, t := range tiers.Tiers() {
		rows = append(rows, TierJSON{
			MinParticipants: t.MinParticipants,
			DiscountBps:     t.Discount.BasisPoints(),
		})
	}
	return json.Marshal(rows)
}

func TiersFromJSON(data []byte) (session.TierTable, error) {
	var rows []TierJSON
	if err := json.Unmarshal(data, &rows); err != nil {
		return session.TierTable{}, errs.Wrap(err, "failed to decode tier table")
	}
	tiers := make([]session.Tier, 0, len(rows))
	for _, row := range rows {
		discount, err := session.NewFraction(row.DiscountBps)
		if err != nil {
			return session.TierTable{}, errs.Wrap(err, "stored tier discount out of range")
		}
		tiers = append(tiers, session.Tier{
			MinParticipants: row.MinParticipants,
			Discount:        discount,
		})
	}
	return session.NewTierTable(tiers)
}

func ParticipantsToJSON(participants []session.Participant) ([]byte, error) {
	rows := make([]ParticipantJSON, 0, len(participants))
	for _, p := range participants {
		rows = append(rows, ParticipantJSON{
			UserRef:   p.UserRef,
			JoinedAt:  p.JoinedAt,
			InvitedBy: p.InvitedBy,
		})
	}
	return json.Marshal(rows)
}

func ParticipantsFromJSON(data []byte) ([]session.Participant, error) {
	var rows []ParticipantJSON
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, errs.Wrap(err, "failed to decode participants")
	}
	participants := make([]session.Participant, 0, len(rows))
	for _, row := range rows {
		participants = append(participants, session.Participant{
			UserRef:   row.UserRef,
			JoinedAt:  row.JoinedAt,
			InvitedBy: row.InvitedBy,
		})
	}
	return participants, nil
}
