package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/safesphere/backend/internal/domain"
	"github.com/safesphere/backend/pkg/utils"
)

// Default snapshot bounds applied when the caller passes limit <= 0.
const (
	DefaultListLimit     = 100
	DefaultDatasetLimit  = 1000
	DefaultSnapshotLimit = 2000
)

// IncidentService is the ingestion gateway and query engine. It is
// stateless: every query computes its own store snapshot and all
// derivation happens purely over that snapshot, so no locking is needed
// inside the service.
type IncidentService struct {
	repo     IncidentRepository
	ranker   *Ranker
	validate *validator.Validate
	logger   *zap.Logger
}

// NewIncidentService creates a new incident service
func NewIncidentService(repo IncidentRepository, ranker *Ranker, logger *zap.Logger) *IncidentService {
	return &IncidentService{
		repo:     repo,
		ranker:   ranker,
		validate: validator.New(),
		logger:   logger,
	}
}

// Ingest validates an incoming record, derives its type and rank, and
// delegates a single keyed write to the store. The curated record only
// exists if the write succeeded.
func (s *IncidentService) Ingest(ctx context.Context, inc domain.Incident) (domain.Incident, error) {
	if err := s.validateIncident(inc); err != nil {
		return domain.Incident{}, err
	}

	if inc.ID == "" {
		inc.ID = generateIncidentID(time.Now())
	}
	if inc.Timestamp.IsZero() {
		inc.Timestamp = time.Now().UTC()
	}

	inc.IncidentType = ClassifyIncident(inc)
	inc.ModelRank = utils.RoundTo(s.ranker.RankIncident(inc), 3)

	if err := s.repo.Put(ctx, inc); err != nil {
		return domain.Incident{}, fmt.Errorf("service: failed to persist incident %s: %w", inc.ID, err)
	}

	s.logger.Info("incident ingested",
		zap.String("incident_id", inc.ID),
		zap.String("incident_type", string(inc.IncidentType)),
		zap.Float64("model_rank", inc.ModelRank),
		zap.Bool("has_location", inc.HasLocation()),
	)
	return inc, nil
}

// RaiseSOS turns a client distress signal into a critical incident and
// persists it under an SOS-prefixed key so it surfaces in listings.
func (s *IncidentService) RaiseSOS(ctx context.Context, alert domain.SOSAlert) (domain.Incident, error) {
	if err := s.validate.Struct(alert); err != nil {
		return domain.Incident{}, validationErrorFrom(err)
	}

	inc := domain.Incident{
		ID:         "SOS_" + timestampToken(time.Now()),
		Timestamp:  time.Now().UTC(),
		Latitude:   alert.Latitude,
		Longitude:  alert.Longitude,
		RiskScore:  1.0,
		IsCritical: true,
		SourceID:   alert.UserID,
		Mode:       "client",
	}
	if alert.Message != "" {
		inc.Telemetry = map[string]any{"message": alert.Message}
	}

	s.logger.Warn("sos alert received",
		zap.String("incident_id", inc.ID),
		zap.String("user_id", alert.UserID),
	)
	return s.Ingest(ctx, inc)
}

// Get returns the stored incident with its derived fields.
func (s *IncidentService) Get(ctx context.Context, id string) (domain.Incident, error) {
	inc, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Incident{}, err
		}
		return domain.Incident{}, fmt.Errorf("service: failed to read incident %s: %w", id, err)
	}
	return inc, nil
}

// List returns the most recent incidents. The degraded flag is set when
// the store read failed and an empty result is returned instead.
func (s *IncidentService) List(ctx context.Context, limit int) ([]domain.Incident, bool) {
	items, degraded := s.snapshot(ctx, limit, DefaultListLimit)
	return items, degraded
}

// RankedDataset re-derives type and rank for each incident in the snapshot
// and serves the flat projection used by downstream analytics.
func (s *IncidentService) RankedDataset(ctx context.Context, limit int) ([]domain.RankedIncident, bool) {
	items, degraded := s.snapshot(ctx, limit, DefaultDatasetLimit)
	out := make([]domain.RankedIncident, 0, len(items))
	for _, inc := range items {
		row := domain.RankedIncident{
			ID:           inc.ID,
			Timestamp:    inc.Timestamp,
			IncidentType: ClassifyIncident(inc),
			ModelRank:    utils.RoundTo(s.ranker.RankIncident(inc), 3),
			SourceID:     inc.SourceID,
		}
		if inc.HasLocation() {
			lat := utils.RoundTo(*inc.Latitude, 6)
			lng := utils.RoundTo(*inc.Longitude, 6)
			row.Latitude = &lat
			row.Longitude = &lng
		}
		out = append(out, row)
	}
	return out, degraded
}

// Heatmap aggregates the snapshot into quantized heat zones.
func (s *IncidentService) Heatmap(ctx context.Context, zoneStep float64, limit int) ([]domain.ZoneStat, bool) {
	items, degraded := s.snapshot(ctx, limit, DefaultSnapshotLimit)
	return AggregateZones(items, s.ranker, zoneStep), degraded
}

// NearbyIncidents returns incidents within radiusKm of the reference
// point, closest first, with the incident id breaking ties at equal
// distance. Incidents without a location are skipped.
func (s *IncidentService) NearbyIncidents(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]domain.NearbyIncident, bool) {
	items, degraded := s.snapshot(ctx, limit, DefaultSnapshotLimit)
	results := make([]domain.NearbyIncident, 0)
	for _, inc := range items {
		if !inc.HasLocation() {
			continue
		}
		d := utils.Haversine(lat, lng, *inc.Latitude, *inc.Longitude)
		if d <= radiusKm {
			// Rounded before sorting so ordering matches what callers see.
			results = append(results, domain.NearbyIncident{Incident: inc, DistanceKm: utils.RoundTo(d, 3)})
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].DistanceKm != results[j].DistanceKm {
			return results[i].DistanceKm < results[j].DistanceKm
		}
		return results[i].ID < results[j].ID
	})
	return results, degraded
}

// NearbyZones aggregates the snapshot into zones, then filters and orders
// them by distance ascending, with denser zones first at equal distance
// and the zone key as the final tie-break.
func (s *IncidentService) NearbyZones(ctx context.Context, lat, lng, radiusKm, zoneStep float64, limit int) ([]domain.NearbyZone, bool) {
	items, degraded := s.snapshot(ctx, limit, DefaultSnapshotLimit)
	zones := AggregateZones(items, s.ranker, zoneStep)

	results := make([]domain.NearbyZone, 0)
	for _, z := range zones {
		d := utils.Haversine(lat, lng, z.Lat, z.Lng)
		if d <= radiusKm {
			// Rounded before sorting so the weight tie-break applies to
			// distances that compare equal at output precision.
			results = append(results, domain.NearbyZone{ZoneStat: z, DistanceKm: utils.RoundTo(d, 3)})
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].DistanceKm != results[j].DistanceKm {
			return results[i].DistanceKm < results[j].DistanceKm
		}
		if results[i].Weight != results[j].Weight {
			return results[i].Weight > results[j].Weight
		}
		if results[i].Lat != results[j].Lat {
			return results[i].Lat < results[j].Lat
		}
		return results[i].Lng < results[j].Lng
	})
	return results, degraded
}

// Health checks store connectivity.
func (s *IncidentService) Health(ctx context.Context) error {
	return s.repo.Health(ctx)
}

// snapshot reads up to limit records from the store. One snapshot backs
// all derivation in a single query call, so every response is internally
// consistent even when concurrent writes land between calls.
func (s *IncidentService) snapshot(ctx context.Context, limit, fallback int) ([]domain.Incident, bool) {
	if limit <= 0 {
		limit = fallback
	}
	items, err := s.repo.List(ctx, limit)
	if err != nil {
		s.logger.Error("snapshot read failed, serving degraded result", zap.Error(err))
		return nil, true
	}
	return items, false
}

func (s *IncidentService) validateIncident(inc domain.Incident) error {
	if err := s.validate.Struct(inc); err != nil {
		return validationErrorFrom(err)
	}
	// Location is both-or-neither: a lone coordinate is a malformed record.
	if (inc.Latitude == nil) != (inc.Longitude == nil) {
		return &domain.ValidationError{Field: "location", Reason: "latitude and longitude must be provided together"}
	}
	return nil
}

// validationErrorFrom converts the first validator failure into the
// domain error surfaced to callers.
func validationErrorFrom(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &domain.ValidationError{
			Field:  fe.Field(),
			Reason: fmt.Sprintf("failed %q constraint", fe.Tag()),
		}
	}
	return &domain.ValidationError{Field: "payload", Reason: err.Error()}
}

// generateIncidentID builds a timestamp-derived token for records that
// arrive without a caller-supplied id.
func generateIncidentID(now time.Time) string {
	return "INC_" + timestampToken(now)
}

func timestampToken(now time.Time) string {
	return now.UTC().Format("20060102_150405") + fmt.Sprintf("_%06d", now.Nanosecond()/1000)
}
