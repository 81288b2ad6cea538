package entitlement

import "strings"

// Policy maps route paths to the minimum tier required to use them.
// Built once at startup and read-only afterwards.
type Policy struct {
	exact    map[string]Tier
	prefixes []prefixRule
}

type prefixRule struct {
	stem string // no trailing slash
	tier Tier
}

// NewPolicy builds a policy from exact-path rules and prefix rules.
// Prefix stems gate the stem itself plus everything below it on a
// path-segment boundary; "/labs/deep" does not gate "/labs/deepening".
func NewPolicy(exact map[string]Tier, prefixes map[string]Tier) *Policy {
	p := &Policy{exact: make(map[string]Tier, len(exact))}
	for path, tier := range exact {
		p.exact[path] = tier
	}
	for stem, tier := range prefixes {
		p.prefixes = append(p.prefixes, prefixRule{stem: strings.TrimSuffix(stem, "/"), tier: tier})
	}
	return p
}

// RequiredTier returns the minimum tier for path. Exact rules win over
// prefix rules; among prefix rules the longest matching stem wins.
// Unlisted paths require TierFree. Total: never errors.
func (p *Policy) RequiredTier(path string) Tier {
	if tier, ok := p.exact[path]; ok {
		return tier
	}
	best := -1
	tier := TierFree
	for _, rule := range p.prefixes {
		if !segmentPrefix(path, rule.stem) {
			continue
		}
		if len(rule.stem) > best {
			best = len(rule.stem)
			tier = rule.tier
		}
	}
	return tier
}

// CanAccess reports whether a user at the given tier may use path.
// A nil tier means unauthenticated: only TierFree routes pass, and the
// caller is expected to have run its authentication check separately.
func (p *Policy) CanAccess(userTier *Tier, path string) bool {
	required := p.RequiredTier(path)
	if userTier == nil {
		return required == TierFree
	}
	return userTier.AtLeast(required)
}

// segmentPrefix reports whether path equals stem or sits below it on a
// path-segment boundary.
func segmentPrefix(path, stem string) bool {
	if !strings.HasPrefix(path, stem) {
		return false
	}
	if len(path) == len(stem) {
		return true
	}
	return path[len(stem)] == '/'
}
