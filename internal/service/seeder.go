package service

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/safesphere/backend/internal/domain"
)

// Seeder generates synthetic incidents for demos and load testing. Every
// generated record goes through the normal ingestion gateway so derivation
// and validation are exercised end to end.
type Seeder struct {
	svc    *IncidentService
	logger *zap.Logger
}

// NewSeeder creates a new seeder
func NewSeeder(svc *IncidentService, logger *zap.Logger) *Seeder {
	return &Seeder{svc: svc, logger: logger}
}

// seedTypeMix weights mirror the observed mix of real detections.
var seedTypeMix = []struct {
	incidentType domain.IncidentType
	weight       float64
}{
	{domain.TypeSuspiciousActivity, 0.40},
	{domain.TypeFollowing, 0.20},
	{domain.TypeRapidApproach, 0.15},
	{domain.TypeIsolationRisk, 0.10},
	{domain.TypeWeapon, 0.05},
	{domain.TypeWeaponFirearm, 0.06},
	{domain.TypeWeaponBlade, 0.04},
}

const seedWeaponProbability = 0.15

// Seed generates and ingests req.Count incidents scattered uniformly
// within req.RadiusKm of the center. Returns how many were persisted.
func (s *Seeder) Seed(ctx context.Context, req domain.SeedRequest) (int, error) {
	if req.Count <= 0 {
		req.Count = 50
	}
	if req.RadiusKm <= 0 {
		req.RadiusKm = 1.0
	}
	if req.Mode == "" {
		req.Mode = "cctv"
	}
	if req.SourcePrefix == "" {
		req.SourcePrefix = "SEED_CAM"
	}

	seeded := 0
	for i := 0; i < req.Count; i++ {
		inc := s.generateIncident(req, i)
		if _, err := s.svc.Ingest(ctx, inc); err != nil {
			return seeded, fmt.Errorf("seeder: failed at incident %d: %w", i, err)
		}
		seeded++
	}

	s.logger.Info("seeded synthetic incidents",
		zap.Int("count", seeded),
		zap.Float64("center_lat", req.CenterLat),
		zap.Float64("center_lng", req.CenterLng),
		zap.Float64("radius_km", req.RadiusKm),
	)
	return seeded, nil
}

// generateIncident builds one synthetic record scattered around the center.
func (s *Seeder) generateIncident(req domain.SeedRequest, n int) domain.Incident {
	angle := rand.Float64() * 2 * math.Pi
	distKm := rand.Float64() * req.RadiusKm

	// ~111 km per degree of latitude; longitude shrinks with cos(lat).
	dlat := distKm / 111.0
	dlng := distKm / (111.0 * math.Max(0.1, math.Cos(req.CenterLat*math.Pi/180)))
	lat := req.CenterLat + dlat*math.Sin(angle)
	lng := req.CenterLng + dlng*math.Cos(angle)

	incidentType := pickSeedType()
	hasWeapon := rand.Float64() < seedWeaponProbability

	inc := domain.Incident{
		Latitude:       &lat,
		Longitude:      &lng,
		PeopleCount:    1 + rand.Intn(4),
		WeaponDetected: hasWeapon,
		RiskScore:      0.1 + rand.Float64()*0.88,
		IsCritical:     rand.Float64() < 0.1,
		SourceID:       fmt.Sprintf("%s_%03d", req.SourcePrefix, n),
		Mode:           req.Mode,
		Telemetry:      map[string]any{"seeded": true},
	}
	accuracy := 25.0
	inc.LocationAccuracyM = &accuracy

	if hasWeapon {
		inc.WeaponTypes = []string{pickWeaponType()}
	}
	switch incidentType {
	case domain.TypeFollowing:
		inc.Behavior.PairInteractions = []domain.PairInteraction{{Status: "following"}}
	case domain.TypeRapidApproach:
		inc.Behavior.PairInteractions = []domain.PairInteraction{{Status: "approach"}}
	case domain.TypeIsolationRisk:
		inc.Context.Isolation = true
	}
	return inc
}

func pickSeedType() domain.IncidentType {
	total := 0.0
	for _, c := range seedTypeMix {
		total += c.weight
	}
	r := rand.Float64() * total
	for _, c := range seedTypeMix {
		r -= c.weight
		if r < 0 {
			return c.incidentType
		}
	}
	return seedTypeMix[0].incidentType
}

func pickWeaponType() string {
	switch r := rand.Float64(); {
	case r < 0.5:
		return "knife"
	case r < 0.9:
		return "gun"
	default:
		return "blade"
	}
}
