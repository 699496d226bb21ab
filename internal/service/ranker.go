package service

import (
	"math"

	"github.com/safesphere/backend/internal/domain"
	"github.com/safesphere/backend/pkg/utils"
)

// FeatureCount is the dimensionality of the incident feature vector.
const FeatureCount = 9

// Features is the fixed encoding of an incident consumed by the ranker:
// [riskScore, peopleCount, weaponDetected, hasGun, hasBladeOrKnife,
// isCritical, isolation, nightMode, suddenAcceleration].
type Features [FeatureCount]float64

// RankerConfig holds the linear-logistic model parameters. The values are
// configuration, not learned at runtime.
type RankerConfig struct {
	Weights [FeatureCount]float64
	Bias    float64
}

// DefaultRankerConfig returns the production model parameters.
func DefaultRankerConfig() RankerConfig {
	return RankerConfig{
		Weights: [FeatureCount]float64{1.2, 0.25, 1.1, 1.6, 1.0, 0.8, 0.5, 0.2, 0.6},
		Bias:    -0.8,
	}
}

// Ranker scores incidents with a fixed linear-logistic model.
type Ranker struct {
	cfg RankerConfig
}

// NewRanker creates a ranker with the given model parameters.
func NewRanker(cfg RankerConfig) *Ranker {
	return &Ranker{cfg: cfg}
}

// ExtractFeatures maps an incident to its feature vector. Total function:
// missing optional fields degrade to zero, never fail.
func ExtractFeatures(inc domain.Incident) Features {
	return Features{
		inc.RiskScore,
		float64(inc.PeopleCount),
		boolFeature(inc.WeaponDetected),
		boolFeature(hasWeaponTag(inc.WeaponTypes, "gun")),
		boolFeature(hasWeaponTag(inc.WeaponTypes, "knife") || hasWeaponTag(inc.WeaponTypes, "blade")),
		boolFeature(inc.IsCritical),
		boolFeature(inc.Context.Isolation),
		boolFeature(inc.Context.NightMode),
		boolFeature(inc.Context.SuddenAcceleration),
	}
}

// Rank computes clamp(sigmoid(f·w + b), 0, 1). Always finite for finite
// input: rank is monotone in every feature since all weights are non-negative.
func (r *Ranker) Rank(f Features) float64 {
	z := r.cfg.Bias
	for i, w := range r.cfg.Weights {
		z += f[i] * w
	}
	return utils.Clamp(sigmoid(z), 0, 1)
}

// RankIncident extracts features and ranks in one step.
func (r *Ranker) RankIncident(inc domain.Incident) float64 {
	return r.Rank(ExtractFeatures(inc))
}

// sigmoid is the numerically stable logistic function: the exponential is
// only ever taken of a non-positive argument, so it cannot overflow.
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func boolFeature(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

func hasWeaponTag(types []string, tag string) bool {
	for _, t := range types {
		if t == tag {
			return true
		}
	}
	return false
}
