package cafe

import (
	"math"
	"sort"
)

const (
	// MaxResults caps the aggregated feed.
	MaxResults = 60

	popularMinReviews = 100
	hiddenGemMinScore = 4.0
)

// Tier is the popularity bucket a place falls into.
type Tier string

const (
	TierNone      Tier = ""
	TierPopular   Tier = "popular"
	TierHiddenGem Tier = "hidden_gem"
)

// Classify buckets a place. Places that are neither popular nor a hidden gem
// return TierNone and are left out of the feed.
func Classify(p Place) Tier {
	if p.ReviewCount() > popularMinReviews {
		return TierPopular
	}
	if p.RatingValue() >= hiddenGemMinScore {
		return TierHiddenGem
	}
	return TierNone
}

// popularityScore rewards both quality and volume; the log damps huge review counts.
func popularityScore(p Place) float64 {
	return p.RatingValue() * math.Log(float64(p.ReviewCount())+1)
}

// Aggregation is the ranked feed plus the bucket sizes it was built from.
type Aggregation struct {
	Cafes          []Place
	PopularCount   int
	HiddenGemCount int
}

// Aggregate merges per-tier search results into one ranked feed.
// tiers must be ordered nearest radius first: on duplicate ids the first
// occurrence wins. The result holds at most MaxResults places.
func Aggregate(tiers ...[]Place) Aggregation {
	unique := dedupe(tiers)

	var popular, gems []Place
	for _, p := range unique {
		switch Classify(p) {
		case TierPopular:
			popular = append(popular, p)
		case TierHiddenGem:
			gems = append(gems, p)
		}
	}

	sort.SliceStable(popular, func(i, j int) bool {
		return popularityScore(popular[i]) > popularityScore(popular[j])
	})
	sort.SliceStable(gems, func(i, j int) bool {
		return gems[i].RatingValue() > gems[j].RatingValue()
	})

	mixed := interleave(popular, gems)
	if len(mixed) > MaxResults {
		mixed = mixed[:MaxResults]
	}

	return Aggregation{
		Cafes:          mixed,
		PopularCount:   len(popular),
		HiddenGemCount: len(gems),
	}
}

func dedupe(tiers [][]Place) []Place {
	seen := make(map[string]struct{})
	var out []Place
	for _, tier := range tiers {
		for _, p := range tier {
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// interleave repeats [popular, popular, gem] until both lists are drained.
func interleave(popular, gems []Place) []Place {
	out := make([]Place, 0, len(popular)+len(gems))
	pi, gi := 0, 0
	for pi < len(popular) || gi < len(gems) {
		for n := 0; n < 2 && pi < len(popular); n++ {
			out = append(out, popular[pi])
			pi++
		}
		if gi < len(gems) {
			out = append(out, gems[gi])
			gi++
		}
	}
	return out
}
