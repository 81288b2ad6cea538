package entitlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testPolicy() *Policy {
	return NewPolicy(
		map[string]Tier{
			"/v1/me": TierFree,
		},
		map[string]Tier{
			"/v1/labs":           TierFree,
			"/v1/labs/momentum":  TierBasicPaid,
			"/v1/labs/deepening": TierDeepening,
		},
	)
}

func TestRequiredTier(t *testing.T) {
	p := testPolicy()

	assert.Equal(t, TierFree, p.RequiredTier("/v1/me"))
	assert.Equal(t, TierFree, p.RequiredTier("/v1/labs/orientation/entries"))
	assert.Equal(t, TierBasicPaid, p.RequiredTier("/v1/labs/momentum"))
	assert.Equal(t, TierBasicPaid, p.RequiredTier("/v1/labs/momentum/entries"))
	assert.Equal(t, TierDeepening, p.RequiredTier("/v1/labs/deepening/entries"))

	// Total: any path resolves, unknown paths are ungated.
	assert.Equal(t, TierFree, p.RequiredTier(""))
	assert.Equal(t, TierFree, p.RequiredTier("/nope"))
	assert.Equal(t, TierFree, p.RequiredTier("not-even-a-path"))
}

func TestRequiredTierSegmentBoundary(t *testing.T) {
	p := testPolicy()

	// "/v1/labs/deepening-extra" shares a string prefix with the
	// deepening stem but is a different lab; only the /v1/labs rule
	// applies.
	assert.Equal(t, TierFree, p.RequiredTier("/v1/labs/deepening-extra/entries"))
	assert.Equal(t, TierFree, p.RequiredTier("/v1/labsleak"))
}

func TestCanAccess(t *testing.T) {
	p := testPolicy()

	free := TierFree
	basic := TierBasicPaid
	deepening := TierDeepening

	// Unauthenticated passes only ungated routes.
	assert.True(t, p.CanAccess(nil, "/v1/labs/orientation/entries"))
	assert.False(t, p.CanAccess(nil, "/v1/labs/momentum/entries"))

	// Under-tier denied, at-tier and above allowed.
	assert.False(t, p.CanAccess(&free, "/v1/labs/momentum/entries"))
	assert.True(t, p.CanAccess(&basic, "/v1/labs/momentum/entries"))
	assert.True(t, p.CanAccess(&deepening, "/v1/labs/momentum/entries"))
	assert.False(t, p.CanAccess(&basic, "/v1/labs/deepening/entries"))
	assert.True(t, p.CanAccess(&deepening, "/v1/labs/deepening/entries"))
}

func TestCanAccessMonotonic(t *testing.T) {
	p := testPolicy()
	paths := []string{
		"/v1/me",
		"/v1/labs/orientation/entries",
		"/v1/labs/momentum/entries",
		"/v1/labs/deepening/entries",
		"/unlisted",
	}
	tiers := []Tier{TierFree, TierBasicPaid, TierDeepening}

	for _, path := range paths {
		for i, lower := range tiers {
			for _, higher := range tiers[i:] {
				if p.CanAccess(&lower, path) {
					h := higher
					assert.True(t, p.CanAccess(&h, path),
						"access at %v must imply access at %v for %s", lower, higher, path)
				}
			}
		}
	}
}
