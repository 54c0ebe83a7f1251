package session

// ResolvePrice maps a participant count onto the tier table: the tier with
// the greatest MinParticipants not exceeding the count wins, otherwise the
// base price stands. Pure function, no I/O.
func ResolvePrice(basePrice Money, tiers TierTable, participantCount int) Money {
	var applied *Tier
	for i := range tiers.tiers {
		if tiers.tiers[i].MinParticipants <= participantCount {
			applied = &tiers.tiers[i]
		} else {
			break
		}
	}
	if applied == nil {
		return basePrice
	}
	return applied.Discount.ApplyTo(basePrice)
}
