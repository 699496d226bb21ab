package domain

import "time"

// IncidentType is the categorical type derived from telemetry at ingestion.
type IncidentType string

const (
	TypeWeaponFirearm      IncidentType = "weapon_firearm"
	TypeWeaponBlade        IncidentType = "weapon_blade"
	TypeWeapon             IncidentType = "weapon"
	TypeFollowing          IncidentType = "following"
	TypeRapidApproach      IncidentType = "rapid_approach"
	TypeIsolationRisk      IncidentType = "isolation_risk"
	TypeSuspiciousActivity IncidentType = "suspicious_activity"
)

// ContextFactors carries the boolean context flags reported by the
// producing sensor. Unknown keys in the payload are ignored.
type ContextFactors struct {
	Isolation          bool `json:"isolation"`
	NightMode          bool `json:"night_mode"`
	SuddenAcceleration bool `json:"sudden_acceleration"`
}

// PairInteraction is one tracked interaction between two subjects.
type PairInteraction struct {
	Status string `json:"status"`
}

// Behavior holds the behavioral telemetry used for type derivation.
type Behavior struct {
	PairInteractions []PairInteraction `json:"pair_interactions,omitempty"`
	OverallRisk      string            `json:"overall_risk,omitempty"`
}

// Incident is one reported threat observation. Immutable once persisted;
// re-ingesting the same id overwrites the prior record.
type Incident struct {
	ID        string    `json:"incident_id"`
	Timestamp time.Time `json:"timestamp"`

	// Location is optional: sensors that cannot geolocate send neither field.
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`

	PeopleCount    int      `json:"people_count" validate:"min=0"`
	WeaponDetected bool     `json:"weapon_detected"`
	WeaponTypes    []string `json:"weapon_types,omitempty"`

	// RiskScore is the raw upstream confidence, distinct from ModelRank.
	RiskScore  float64 `json:"risk_score" validate:"min=0,max=1"`
	IsCritical bool    `json:"is_critical"`

	Context   ContextFactors `json:"context_factors"`
	Behavior  Behavior       `json:"behavior"`
	Telemetry map[string]any `json:"telemetry,omitempty"`

	SourceID          string   `json:"source_id,omitempty"`
	LocationAccuracyM *float64 `json:"location_accuracy_m,omitempty" validate:"omitempty,min=0"`
	Mode              string   `json:"mode,omitempty" validate:"omitempty,oneof=cctv client"`

	// Derived at ingestion, never trusted from upstream.
	IncidentType IncidentType `json:"incident_type,omitempty"`
	ModelRank    float64      `json:"model_rank"`
}

// HasLocation reports whether both coordinates are present.
func (i Incident) HasLocation() bool {
	return i.Latitude != nil && i.Longitude != nil
}

// RankedIncident is the projection served by the ranked dataset view.
type RankedIncident struct {
	ID           string       `json:"incident_id"`
	Timestamp    time.Time    `json:"timestamp"`
	IncidentType IncidentType `json:"incident_type"`
	ModelRank    float64      `json:"model_rank"`
	Latitude     *float64     `json:"latitude,omitempty"`
	Longitude    *float64     `json:"longitude,omitempty"`
	SourceID     string       `json:"source_id,omitempty"`
}

// NearbyIncident is an incident annotated with its distance from a query point.
type NearbyIncident struct {
	Incident
	DistanceKm float64 `json:"distance_km"`
}

// SOSAlert is a distress signal raised directly by a client device.
type SOSAlert struct {
	UserID    string   `json:"user_id,omitempty"`
	Message   string   `json:"message,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
}

// SeedRequest describes a batch of synthetic incidents to generate around
// a center point, for demos and load testing.
type SeedRequest struct {
	CenterLat    float64 `json:"center_lat" validate:"latitude"`
	CenterLng    float64 `json:"center_lng" validate:"longitude"`
	Count        int     `json:"count" validate:"min=0,max=10000"`
	RadiusKm     float64 `json:"radius_km" validate:"min=0"`
	Mode         string  `json:"mode,omitempty" validate:"omitempty,oneof=cctv client"`
	SourcePrefix string  `json:"source_prefix,omitempty"`
}
