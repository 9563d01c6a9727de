package service

import (
	"time"

	"github.com/connecthq/connect-core/internal/config"
)

// Tier is a named cache lifetime class. Which tier a tool belongs to is
// a static property of the tool, not of the call.
type Tier string

const (
	TierDynamic  Tier = "dynamic"  // volatile results, e.g. name lookups
	TierStandard Tier = "standard" // default for most search tools
	TierStable   Tier = "stable"   // slow-changing facets like locations
	TierNone     Tier = "none"     // never cached
)

// toolTiers assigns each graph tool its freshness tier. Unknown tools
// fall back to TierStandard.
var toolTiers = map[string]Tier{
	"find_person_by_name":         TierDynamic,
	"find_people_by_skill":        TierStandard,
	"find_people_by_company":      TierStandard,
	"find_people_by_institution":  TierStable,
	"find_people_by_location":     TierStable,
	"get_person_complete_profile": TierStandard,
	"health_check":                TierNone,
}

// TierFor returns the cache tier for a tool.
func TierFor(tool string) Tier {
	if t, ok := toolTiers[tool]; ok {
		return t
	}
	return TierStandard
}

// TTLs maps each tier to its configured lifetime.
type TTLs struct {
	Dynamic  time.Duration
	Standard time.Duration
	Stable   time.Duration
}

// TTLsFromConfig loads tier lifetimes from the cache config.
func TTLsFromConfig(cfg config.Cache) TTLs {
	return TTLs{
		Dynamic:  cfg.TTLDynamic,
		Standard: cfg.TTLStandard,
		Stable:   cfg.TTLStable,
	}
}

// For returns the TTL for the given tier. TierNone yields zero.
func (t TTLs) For(tier Tier) time.Duration {
	switch tier {
	case TierDynamic:
		return t.Dynamic
	case TierStable:
		return t.Stable
	case TierNone:
		return 0
	default:
		return t.Standard
	}
}
