package entitlement

import "strings"

// Tier is one step of the ordered entitlement ladder. Comparison is by
// rank index: TierFree < TierBasicPaid < TierDeepening.
type Tier int

const (
	TierFree Tier = iota
	TierBasicPaid
	TierDeepening
)

var tierLabels = [...]string{
	TierFree:      "free",
	TierBasicPaid: "basic_paid",
	TierDeepening: "deepening",
}

// String returns the stable wire label for the tier.
func (t Tier) String() string {
	if t < TierFree || int(t) >= len(tierLabels) {
		return tierLabels[TierFree]
	}
	return tierLabels[t]
}

// AtLeast reports whether t is ranked at or above other.
func (t Tier) AtLeast(other Tier) bool {
	return t >= other
}

// ParseTier maps a stored or claimed tier label to a Tier. Unknown or
// empty labels parse to TierFree with ok=false so callers can fall
// through to the next source in the resolution precedence.
func ParseTier(label string) (Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "free":
		return TierFree, true
	case "basic_paid", "basic":
		return TierBasicPaid, true
	case "deepening":
		return TierDeepening, true
	}
	return TierFree, false
}

// UserRecord carries the tier-relevant fields of a user, merged from
// auth claims and the stored user document by the caller.
type UserRecord struct {
	// Founder marks elevated access (founder/admin); always resolves
	// to the highest tier regardless of any stored tier field.
	Founder bool

	// TierLabel is the explicit stored tier field.
	TierLabel string

	// LegacyPlan is the older plan field still present on accounts
	// created before the tier migration.
	LegacyPlan string
}

// ResolveTier derives the effective tier for a user record. Precedence:
// founder override, then the explicit tier field, then the legacy plan
// field, then TierFree. Every gating call site must go through this
// function; resolving ad hoc from individual fields is a bug.
func ResolveTier(rec UserRecord) Tier {
	if rec.Founder {
		return TierDeepening
	}
	if t, ok := ParseTier(rec.TierLabel); ok {
		return t
	}
	if t, ok := ParseTier(rec.LegacyPlan); ok {
		return t
	}
	return TierFree
}
