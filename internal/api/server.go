package api

import (
	"time"

	"github.com/marlow/casefile/internal/services"
	"github.com/marlow/casefile/internal/worker"
)

// Server holds the services and settings the HTTP handlers need.
type Server struct {
	GameService     services.GameService
	RankService     services.RankService
	IdentityService services.IdentityService
	StatsService    services.StatsService

	// MigrationPool carries best-effort anonymous-to-account migrations
	// off the request path.
	MigrationPool *worker.Pool

	SessionCookieName string
	SessionTTL        time.Duration
	AccountHeader     string
}
