package service

import (
	"strings"

	"github.com/safesphere/backend/internal/domain"
)

// classificationRule pairs a predicate with the type it assigns.
type classificationRule struct {
	tag   domain.IncidentType
	match func(domain.Incident) bool
}

// classificationRules are evaluated in order; the first match wins.
// suspicious_activity is the catch-all when nothing matches.
var classificationRules = []classificationRule{
	{domain.TypeWeaponFirearm, func(i domain.Incident) bool {
		return i.WeaponDetected && hasWeaponTag(i.WeaponTypes, "gun")
	}},
	{domain.TypeWeaponBlade, func(i domain.Incident) bool {
		return i.WeaponDetected && (hasWeaponTag(i.WeaponTypes, "knife") || hasWeaponTag(i.WeaponTypes, "blade"))
	}},
	{domain.TypeWeapon, func(i domain.Incident) bool {
		return i.WeaponDetected
	}},
	{domain.TypeFollowing, func(i domain.Incident) bool {
		return anyPairStatus(i.Behavior, "following")
	}},
	{domain.TypeRapidApproach, func(i domain.Incident) bool {
		return anyPairStatus(i.Behavior, "approach") || strings.Contains(i.Behavior.OverallRisk, "high")
	}},
	{domain.TypeIsolationRisk, func(i domain.Incident) bool {
		return i.Context.Isolation
	}},
}

// ClassifyIncident derives the categorical incident type from telemetry.
// Total and deterministic: every incident maps to exactly one type.
func ClassifyIncident(inc domain.Incident) domain.IncidentType {
	for _, rule := range classificationRules {
		if rule.match(inc) {
			return rule.tag
		}
	}
	return domain.TypeSuspiciousActivity
}

func anyPairStatus(b domain.Behavior, substr string) bool {
	for _, p := range b.PairInteractions {
		if strings.Contains(p.Status, substr) {
			return true
		}
	}
	return false
}
