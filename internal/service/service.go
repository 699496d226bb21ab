package service

import (
	"github.com/safesphere/backend/internal/domain"
)

// IncidentRepository is re-exported from domain for convenience
type IncidentRepository = domain.IncidentRepository
