package database

import (
	"strings"
	"time"

	"github.com/mkim/mystory/internal/infrastructure/observability/logging"
	"github.com/mkim/mystory/pkg/config"
)

// CheckAndLogSlowQuery warns on the database channel when duration exceeds the
// configured threshold.
func CheckAndLogSlowQuery(logger *logging.ChanneledLogger, query string, duration time.Duration) {
	if duration <= config.SlowQueryThreshold {
		return
	}
	logger.Database().Warn("Slow query detected",
		"query", sanitizeQuery(query),
		"duration", duration,
	)
}

func sanitizeQuery(query string) string {
	query = strings.Join(strings.Fields(query), " ")
	if len(query) > 500 {
		query = query[:500] + "..."
	}
	return query
}
