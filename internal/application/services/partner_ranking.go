package services

import (
	"sort"

	"github.com/zatekoja/roadsideassist/internal/domain/entities"
	"github.com/zatekoja/roadsideassist/pkg/geo"
)

// MaxRankedResults is the hard cap on the size of a ranked result list
const MaxRankedResults = 50

type rankedCandidate struct {
	partner *entities.Partner
	exact   float64
	rounded float64
}

// RankPartners computes the distance from origin to every candidate, drops
// candidates without a usable location or beyond radiusKm, and orders the rest
// by rounded distance, then rating (highest first). Remaining ties fall back to
// exact distance and then partner ID. The result holds at most
// min(limit, MaxRankedResults) entries.
func RankPartners(origin entities.GeoPoint, radiusKm float64, candidates []*entities.Partner, limit int) []entities.RankedPartner {
	if limit <= 0 || limit > MaxRankedResults {
		limit = MaxRankedResults
	}

	kept := make([]rankedCandidate, 0, len(candidates))
	for _, p := range candidates {
		if p == nil || !p.Location.Rankable() {
			continue
		}
		d := origin.DistanceTo(p.Location)
		if d > radiusKm {
			continue
		}
		kept = append(kept, rankedCandidate{partner: p, exact: d, rounded: geo.RoundKm(d)})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.rounded != b.rounded {
			return a.rounded < b.rounded
		}
		if a.partner.Rating != b.partner.Rating {
			return a.partner.Rating > b.partner.Rating
		}
		if a.exact != b.exact {
			return a.exact < b.exact
		}
		return a.partner.ID < b.partner.ID
	})

	if len(kept) > limit {
		kept = kept[:limit]
	}

	ranked := make([]entities.RankedPartner, len(kept))
	for i, c := range kept {
		ranked[i] = entities.RankedPartner{Partner: c.partner, DistanceKm: c.rounded}
	}
	return ranked
}
