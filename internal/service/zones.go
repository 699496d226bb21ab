package service

import (
	"math"
	"sort"

	"github.com/safesphere/backend/internal/domain"
	"github.com/safesphere/backend/pkg/utils"
)

// DefaultZoneStep is the quantization grid step in degrees (~220m latitude).
const DefaultZoneStep = 0.002

// QuantizeZone maps a coordinate pair onto the fixed grid. The key is the
// bucket center rounded to 6 decimal places, so quantization is idempotent
// and collision-consistent: the same (lat, lng, step) always yields the
// same key. Non-positive steps fall back to DefaultZoneStep.
func QuantizeZone(lat, lng, step float64) domain.ZoneKey {
	if step <= 0 {
		step = DefaultZoneStep
	}
	return domain.ZoneKey{
		Lat: utils.RoundTo(math.Round(lat/step)*step, 6),
		Lng: utils.RoundTo(math.Round(lng/step)*step, 6),
	}
}

type zoneAccumulator struct {
	rankSum float64
	count   int
}

// AggregateZones folds a snapshot of incidents into quantized heat zones.
// Incidents without a location are skipped. The result is sorted by average
// rank descending; equal averages are ordered by zone key (lat, then lng,
// ascending) so the output is deterministic under input permutation.
func AggregateZones(incidents []domain.Incident, ranker *Ranker, step float64) []domain.ZoneStat {
	buckets := make(map[domain.ZoneKey]*zoneAccumulator)
	for _, inc := range incidents {
		if !inc.HasLocation() {
			continue
		}
		key := QuantizeZone(*inc.Latitude, *inc.Longitude, step)
		acc, ok := buckets[key]
		if !ok {
			acc = &zoneAccumulator{}
			buckets[key] = acc
		}
		acc.rankSum += ranker.RankIncident(inc)
		acc.count++
	}

	zones := make([]domain.ZoneStat, 0, len(buckets))
	for key, acc := range buckets {
		zones = append(zones, domain.ZoneStat{
			Lat:     key.Lat,
			Lng:     key.Lng,
			Weight:  utils.RoundTo(acc.rankSum, 3),
			Average: utils.RoundTo(acc.rankSum/float64(acc.count), 3),
			Count:   acc.count,
		})
	}

	sort.Slice(zones, func(i, j int) bool {
		if zones[i].Average != zones[j].Average {
			return zones[i].Average > zones[j].Average
		}
		if zones[i].Lat != zones[j].Lat {
			return zones[i].Lat < zones[j].Lat
		}
		return zones[i].Lng < zones[j].Lng
	})
	return zones
}
