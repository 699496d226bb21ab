package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/safesphere/backend/internal/domain"
)

// PostgresRepository implements domain.IncidentRepository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Put stores an incident keyed by id. Re-ingesting the same id overwrites
// the prior record (last-writer-wins); the row's atomicity per key is what
// prevents interleaved-write corruption.
func (r *PostgresRepository) Put(ctx context.Context, inc domain.Incident) error {
	weaponTypes, err := json.Marshal(inc.WeaponTypes)
	if err != nil {
		return fmt.Errorf("postgres: failed to encode weapon types: %w", err)
	}
	contextFactors, err := json.Marshal(inc.Context)
	if err != nil {
		return fmt.Errorf("postgres: failed to encode context factors: %w", err)
	}
	behavior, err := json.Marshal(inc.Behavior)
	if err != nil {
		return fmt.Errorf("postgres: failed to encode behavior: %w", err)
	}
	telemetry, err := json.Marshal(inc.Telemetry)
	if err != nil {
		return fmt.Errorf("postgres: failed to encode telemetry: %w", err)
	}

	query := `
		INSERT INTO incidents (
			incident_id, event_time, latitude, longitude, people_count,
			weapon_detected, weapon_types, risk_score, is_critical,
			context_factors, behavior, telemetry, source_id,
			location_accuracy_m, mode, incident_type, model_rank, ingested_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (incident_id) DO UPDATE SET
			event_time = EXCLUDED.event_time,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			people_count = EXCLUDED.people_count,
			weapon_detected = EXCLUDED.weapon_detected,
			weapon_types = EXCLUDED.weapon_types,
			risk_score = EXCLUDED.risk_score,
			is_critical = EXCLUDED.is_critical,
			context_factors = EXCLUDED.context_factors,
			behavior = EXCLUDED.behavior,
			telemetry = EXCLUDED.telemetry,
			source_id = EXCLUDED.source_id,
			location_accuracy_m = EXCLUDED.location_accuracy_m,
			mode = EXCLUDED.mode,
			incident_type = EXCLUDED.incident_type,
			model_rank = EXCLUDED.model_rank,
			ingested_at = EXCLUDED.ingested_at
	`

	_, err = r.pool.Exec(ctx, query,
		inc.ID, inc.Timestamp, inc.Latitude, inc.Longitude, inc.PeopleCount,
		inc.WeaponDetected, weaponTypes, inc.RiskScore, inc.IsCritical,
		contextFactors, behavior, telemetry, nullableString(inc.SourceID),
		inc.LocationAccuracyM, nullableString(inc.Mode), string(inc.IncidentType),
		inc.ModelRank, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save incident: %w", err)
	}

	return nil
}

// Get returns the incident stored under id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (domain.Incident, error) {
	query := selectColumns + ` WHERE incident_id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	inc, err := scanIncident(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Incident{}, domain.ErrNotFound
		}
		return domain.Incident{}, fmt.Errorf("postgres: failed to read incident: %w", err)
	}
	return inc, nil
}

// List returns up to limit incidents, most recently written first.
func (r *PostgresRepository) List(ctx context.Context, limit int) ([]domain.Incident, error) {
	query := selectColumns + `
		ORDER BY ingested_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query incidents: %w", err)
	}
	defer rows.Close()

	var results []domain.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan incident row: %w", err)
		}
		results = append(results, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate incidents: %w", err)
	}

	return results, nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT incident_id, event_time, latitude, longitude, people_count,
		   weapon_detected, weapon_types, risk_score, is_critical,
		   context_factors, behavior, telemetry, source_id,
		   location_accuracy_m, mode, incident_type, model_rank
	FROM incidents`

func scanIncident(row pgx.Row) (domain.Incident, error) {
	var (
		inc            domain.Incident
		weaponTypes    []byte
		contextFactors []byte
		behavior       []byte
		telemetry      []byte
		sourceID       *string
		mode           *string
		incidentType   string
	)

	err := row.Scan(
		&inc.ID, &inc.Timestamp, &inc.Latitude, &inc.Longitude, &inc.PeopleCount,
		&inc.WeaponDetected, &weaponTypes, &inc.RiskScore, &inc.IsCritical,
		&contextFactors, &behavior, &telemetry, &sourceID,
		&inc.LocationAccuracyM, &mode, &incidentType, &inc.ModelRank,
	)
	if err != nil {
		return domain.Incident{}, err
	}

	if err := json.Unmarshal(weaponTypes, &inc.WeaponTypes); err != nil {
		return domain.Incident{}, fmt.Errorf("decode weapon types: %w", err)
	}
	if err := json.Unmarshal(contextFactors, &inc.Context); err != nil {
		return domain.Incident{}, fmt.Errorf("decode context factors: %w", err)
	}
	if err := json.Unmarshal(behavior, &inc.Behavior); err != nil {
		return domain.Incident{}, fmt.Errorf("decode behavior: %w", err)
	}
	if err := json.Unmarshal(telemetry, &inc.Telemetry); err != nil {
		return domain.Incident{}, fmt.Errorf("decode telemetry: %w", err)
	}
	if sourceID != nil {
		inc.SourceID = *sourceID
	}
	if mode != nil {
		inc.Mode = *mode
	}
	inc.IncidentType = domain.IncidentType(incidentType)

	return inc, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
