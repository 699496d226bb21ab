package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/safesphere/backend/internal/domain"
	"github.com/safesphere/backend/internal/repository/memory"
)

func newTestService() (*IncidentService, *memory.Repository) {
	repo := memory.NewRepository()
	svc := NewIncidentService(repo, NewRanker(DefaultRankerConfig()), zap.NewNop())
	return svc, repo
}

// brokenRepository fails every operation, for degraded-path tests.
type brokenRepository struct{}

var errStoreDown = errors.New("store down")

func (brokenRepository) Put(context.Context, domain.Incident) error { return errStoreDown }
func (brokenRepository) Get(context.Context, string) (domain.Incident, error) {
	return domain.Incident{}, errStoreDown
}
func (brokenRepository) List(context.Context, int) ([]domain.Incident, error) {
	return nil, errStoreDown
}
func (brokenRepository) Health(context.Context) error { return errStoreDown }

func TestIngest(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip with derived fields", func(t *testing.T) {
		svc, _ := newTestService()
		inc := domain.Incident{
			ID:             "INC_TEST_001",
			Timestamp:      time.Date(2025, 6, 1, 22, 15, 0, 0, time.UTC),
			Latitude:       floatPtr(37.7749),
			Longitude:      floatPtr(-122.4194),
			PeopleCount:    2,
			WeaponDetected: true,
			WeaponTypes:    []string{"gun"},
			RiskScore:      0.9,
			IsCritical:     true,
			SourceID:       "CAM_42",
			Mode:           "cctv",
		}

		curated, err := svc.Ingest(ctx, inc)
		require.NoError(t, err)
		assert.Equal(t, domain.TypeWeaponFirearm, curated.IncidentType)
		assert.InDelta(t, 0.986, curated.ModelRank, 0.001)

		stored, err := svc.Get(ctx, "INC_TEST_001")
		require.NoError(t, err)
		assert.Equal(t, curated, stored)
		assert.Equal(t, inc.Timestamp, stored.Timestamp)
		assert.Equal(t, inc.WeaponTypes, stored.WeaponTypes)
	})

	t.Run("generates timestamp-derived id when absent", func(t *testing.T) {
		svc, _ := newTestService()
		curated, err := svc.Ingest(ctx, domain.Incident{RiskScore: 0.5})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(curated.ID, "INC_"))
		assert.False(t, curated.Timestamp.IsZero())

		_, err = svc.Get(ctx, curated.ID)
		assert.NoError(t, err)
	})

	t.Run("re-ingesting the same id overwrites", func(t *testing.T) {
		svc, repo := newTestService()
		_, err := svc.Ingest(ctx, domain.Incident{ID: "INC_DUP", RiskScore: 0.1})
		require.NoError(t, err)
		_, err = svc.Ingest(ctx, domain.Incident{ID: "INC_DUP", RiskScore: 0.8})
		require.NoError(t, err)

		assert.Equal(t, 1, repo.Len())
		stored, err := svc.Get(ctx, "INC_DUP")
		require.NoError(t, err)
		assert.Equal(t, 0.8, stored.RiskScore)
	})

	t.Run("validation failures persist nothing", func(t *testing.T) {
		svc, repo := newTestService()
		bad := []domain.Incident{
			{Latitude: floatPtr(91), Longitude: floatPtr(0)},
			{Latitude: floatPtr(0), Longitude: floatPtr(-181)},
			{Latitude: floatPtr(37.7749)}, // lone coordinate
			{RiskScore: 1.5},
			{RiskScore: -0.1},
			{PeopleCount: -1},
			{Mode: "drone"},
		}
		for _, inc := range bad {
			_, err := svc.Ingest(ctx, inc)
			var vErr *domain.ValidationError
			assert.ErrorAs(t, err, &vErr, "%+v", inc)
		}
		assert.Equal(t, 0, repo.Len())
	})

	t.Run("store failure surfaces distinctly", func(t *testing.T) {
		svc := NewIncidentService(brokenRepository{}, NewRanker(DefaultRankerConfig()), zap.NewNop())
		_, err := svc.Ingest(ctx, domain.Incident{RiskScore: 0.5})
		require.Error(t, err)
		var vErr *domain.ValidationError
		assert.False(t, errors.As(err, &vErr))
		assert.ErrorIs(t, err, errStoreDown)
	})
}

func TestGet(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListAndRankedDataset(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	for i, score := range []float64{0.2, 0.5, 0.9} {
		inc := domain.Incident{
			ID:        []string{"INC_A", "INC_B", "INC_C"}[i],
			RiskScore: score,
			Latitude:  floatPtr(37.7749123456),
			Longitude: floatPtr(-122.4194987654),
			SourceID:  "CAM_1",
		}
		_, err := svc.Ingest(ctx, inc)
		require.NoError(t, err)
	}

	t.Run("list is most recent first", func(t *testing.T) {
		items, degraded := svc.List(ctx, 0)
		assert.False(t, degraded)
		require.Len(t, items, 3)
		assert.Equal(t, "INC_C", items[0].ID)
		assert.Equal(t, "INC_A", items[2].ID)
	})

	t.Run("list honors limit", func(t *testing.T) {
		items, _ := svc.List(ctx, 2)
		assert.Len(t, items, 2)
	})

	t.Run("ranked dataset rounds coordinates and ranks", func(t *testing.T) {
		rows, degraded := svc.RankedDataset(ctx, 0)
		assert.False(t, degraded)
		require.Len(t, rows, 3)
		for _, row := range rows {
			require.NotNil(t, row.Latitude)
			assert.Equal(t, 37.774912, *row.Latitude)
			assert.Equal(t, -122.419499, *row.Longitude)
			assert.Equal(t, domain.TypeSuspiciousActivity, row.IncidentType)
			assert.GreaterOrEqual(t, row.ModelRank, 0.0)
			assert.LessOrEqual(t, row.ModelRank, 1.0)
		}
	})

	t.Run("degraded on store failure", func(t *testing.T) {
		broken := NewIncidentService(brokenRepository{}, NewRanker(DefaultRankerConfig()), zap.NewNop())
		items, degraded := broken.List(ctx, 10)
		assert.True(t, degraded)
		assert.Empty(t, items)

		rows, degraded := broken.RankedDataset(ctx, 10)
		assert.True(t, degraded)
		assert.Empty(t, rows)
	})
}

func TestHeatmap(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	located := []domain.Incident{
		{ID: "INC_1", Latitude: floatPtr(37.77490), Longitude: floatPtr(-122.41940), RiskScore: 0.9},
		{ID: "INC_2", Latitude: floatPtr(37.77450), Longitude: floatPtr(-122.41950), RiskScore: 0.3},
		{ID: "INC_3", RiskScore: 0.99}, // no location, excluded from spatial views
	}
	for _, inc := range located {
		_, err := svc.Ingest(ctx, inc)
		require.NoError(t, err)
	}

	zones, degraded := svc.Heatmap(ctx, 0.002, 0)
	assert.False(t, degraded)
	require.Len(t, zones, 1)
	assert.Equal(t, 2, zones[0].Count)

	// The unlocated incident stays retrievable by id.
	_, err := svc.Get(ctx, "INC_3")
	assert.NoError(t, err)
}

func TestNearbyIncidents(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	points := []struct {
		id       string
		lat, lng float64
	}{
		{"INC_CENTER", 37.7749, -122.4194},
		{"INC_NEAR", 37.7760, -122.4200},  // ~0.13 km away
		{"INC_FAR", 37.8049, -122.4194},   // ~3.3 km away
		{"INC_REMOTE", 40.7128, -74.0060}, // other coast
	}
	for _, p := range points {
		_, err := svc.Ingest(ctx, domain.Incident{
			ID: p.id, Latitude: floatPtr(p.lat), Longitude: floatPtr(p.lng), RiskScore: 0.5,
		})
		require.NoError(t, err)
	}

	t.Run("filters and sorts ascending by distance", func(t *testing.T) {
		results, degraded := svc.NearbyIncidents(ctx, 37.7749, -122.4194, 2.0, 0)
		assert.False(t, degraded)
		require.Len(t, results, 2)
		assert.Equal(t, "INC_CENTER", results[0].ID)
		assert.Equal(t, 0.0, results[0].DistanceKm)
		assert.Equal(t, "INC_NEAR", results[1].ID)
		assert.Greater(t, results[1].DistanceKm, 0.0)
	})

	t.Run("radius zero matches only the exact point", func(t *testing.T) {
		results, _ := svc.NearbyIncidents(ctx, 37.7749, -122.4194, 0, 0)
		require.Len(t, results, 1)
		assert.Equal(t, "INC_CENTER", results[0].ID)
	})

	t.Run("empty result is not an error", func(t *testing.T) {
		results, degraded := svc.NearbyIncidents(ctx, -33.8688, 151.2093, 1.0, 0)
		assert.False(t, degraded)
		assert.Empty(t, results)
	})

	t.Run("equal distances order by incident id", func(t *testing.T) {
		svc, _ := newTestService()
		for _, id := range []string{"INC_TIE_B", "INC_TIE_A", "INC_TIE_C"} {
			_, err := svc.Ingest(ctx, domain.Incident{
				ID: id, Latitude: floatPtr(37.7749), Longitude: floatPtr(-122.4194), RiskScore: 0.5,
			})
			require.NoError(t, err)
		}
		results, _ := svc.NearbyIncidents(ctx, 37.7749, -122.4194, 1.0, 0)
		require.Len(t, results, 3)
		assert.Equal(t, "INC_TIE_A", results[0].ID)
		assert.Equal(t, "INC_TIE_B", results[1].ID)
		assert.Equal(t, "INC_TIE_C", results[2].ID)
	})
}

func TestNearbyZones(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	// Two zones equidistant from the query point, with different densities.
	for i, inc := range []domain.Incident{
		{Latitude: floatPtr(37.776), Longitude: floatPtr(-122.4194), RiskScore: 0.5},
		{Latitude: floatPtr(37.776), Longitude: floatPtr(-122.4194), RiskScore: 0.5},
		{Latitude: floatPtr(37.772), Longitude: floatPtr(-122.4194), RiskScore: 0.5},
	} {
		inc.ID = []string{"INC_N1", "INC_N2", "INC_S1"}[i]
		_, err := svc.Ingest(ctx, inc)
		require.NoError(t, err)
	}

	results, degraded := svc.NearbyZones(ctx, 37.774, -122.4194, 2.0, 0.002, 0)
	assert.False(t, degraded)
	require.Len(t, results, 2)

	// Equal distance: the denser (heavier) zone comes first.
	assert.Equal(t, results[0].DistanceKm, results[1].DistanceKm)
	assert.Greater(t, results[0].Weight, results[1].Weight)
	assert.Equal(t, 2, results[0].Count)
}

func TestRaiseSOS(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	inc, err := svc.RaiseSOS(ctx, domain.SOSAlert{
		UserID:    "user-7",
		Message:   "need help",
		Latitude:  floatPtr(37.7749),
		Longitude: floatPtr(-122.4194),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(inc.ID, "SOS_"))
	assert.True(t, inc.IsCritical)
	assert.Equal(t, "client", inc.Mode)
	assert.Equal(t, "user-7", inc.SourceID)
	assert.Greater(t, inc.ModelRank, 0.5)

	stored, err := svc.Get(ctx, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, "need help", stored.Telemetry["message"])

	t.Run("invalid coordinates rejected", func(t *testing.T) {
		_, err := svc.RaiseSOS(ctx, domain.SOSAlert{Latitude: floatPtr(123), Longitude: floatPtr(0)})
		var vErr *domain.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})
}

func TestSeeder(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService()
	seeder := NewSeeder(svc, zap.NewNop())

	seeded, err := seeder.Seed(ctx, domain.SeedRequest{
		CenterLat: 37.7749,
		CenterLng: -122.4194,
		Count:     25,
		RadiusKm:  1.0,
	})
	require.NoError(t, err)
	assert.Equal(t, 25, seeded)
	assert.Equal(t, 25, repo.Len())

	// Everything seeded lands inside the requested radius and carries
	// derived fields from the normal ingestion path.
	results, degraded := svc.NearbyIncidents(ctx, 37.7749, -122.4194, 1.1, 0)
	assert.False(t, degraded)
	assert.Len(t, results, 25)
	for _, r := range results {
		assert.NotEmpty(t, r.IncidentType)
		assert.True(t, strings.HasPrefix(r.SourceID, "SEED_CAM_"))
		assert.Equal(t, "cctv", r.Mode)
	}
}
