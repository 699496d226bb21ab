package domain

// ZoneKey identifies a quantized spatial bucket. The coordinates are the
// bucket center rounded to 6 decimal places, so two incidents that round
// to the same cell under the same step always produce equal keys.
type ZoneKey struct {
	Lat float64
	Lng float64
}

// ZoneStat is one aggregated heat zone. Zones are recomputed per query
// and never persisted.
type ZoneStat struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Weight  float64 `json:"weight"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// NearbyZone is a heat zone annotated with its distance from a query point.
type NearbyZone struct {
	ZoneStat
	DistanceKm float64 `json:"distance_km"`
}
