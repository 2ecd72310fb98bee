package reccheck

import "fmt"

// Rule names reported in violations.
const (
	RuleBase       = "base_mismatch"
	RuleTopN       = "track_too_long"
	RuleSelf       = "base_in_track"
	RuleDuplicate  = "duplicate_in_track"
	RuleOverlap    = "tracks_overlap"
	RuleUnpopular  = "track2_not_unpopular"
	RuleUnknownRow = "unknown_festival"
)

// verifyRecommendation checks one response against the invariants every
// recommendation must satisfy. catalog maps content ids to the festivals
// listed by /festivals.
func verifyRecommendation(contentID string, topN int, rec Recommendation, catalog map[string]Festival) []Violation {
	var out []Violation
	add := func(rule, format string, args ...any) {
		out = append(out, Violation{ContentID: contentID, Rule: rule, Detail: fmt.Sprintf(format, args...)})
	}

	if rec.Base.ContentID != contentID {
		add(RuleBase, "base is %q", rec.Base.ContentID)
	}
	if len(rec.Similar) > topN {
		add(RuleTopN, "track1 has %d entries, top_n is %d", len(rec.Similar), topN)
	}
	if len(rec.Unpopular) > topN {
		add(RuleTopN, "track2 has %d entries, top_n is %d", len(rec.Unpopular), topN)
	}

	inTrack1 := make(map[string]struct{}, len(rec.Similar))
	for _, f := range rec.Similar {
		if f.ContentID == contentID {
			add(RuleSelf, "track1 contains the base")
		}
		if _, dup := inTrack1[f.ContentID]; dup {
			add(RuleDuplicate, "track1 repeats %q", f.ContentID)
		}
		inTrack1[f.ContentID] = struct{}{}
		if _, ok := catalog[f.ContentID]; !ok {
			add(RuleUnknownRow, "track1 returns %q which /festivals does not list", f.ContentID)
		}
	}

	inTrack2 := make(map[string]struct{}, len(rec.Unpopular))
	for _, f := range rec.Unpopular {
		if f.ContentID == contentID {
			add(RuleSelf, "track2 contains the base")
		}
		if _, dup := inTrack2[f.ContentID]; dup {
			add(RuleDuplicate, "track2 repeats %q", f.ContentID)
		}
		inTrack2[f.ContentID] = struct{}{}
		if _, both := inTrack1[f.ContentID]; both {
			add(RuleOverlap, "%q is in both tracks", f.ContentID)
		}
		known, ok := catalog[f.ContentID]
		switch {
		case !ok:
			add(RuleUnknownRow, "track2 returns %q which /festivals does not list", f.ContentID)
		case !known.IsUnpopularDistrict:
			add(RuleUnpopular, "%q is in district %d", f.ContentID, known.DistrictCode)
		}
	}
	return out
}
