package featuregate

import (
	"context"

	"go.uber.org/zap"

	"github.com/classboard/notify-worker/internal/repository"
)

// Gate wraps a flag lookup with fail-closed semantics. Sending email is an
// operationally risky side effect, so a missing flag, a disabled flag, or a
// failed lookup all read as "off": the system defaults to silence, never to
// sending.
type Gate struct {
	flags  repository.FlagRepository
	key    string
	logger *zap.Logger
}

func New(flags repository.FlagRepository, key string, logger *zap.Logger) *Gate {
	return &Gate{flags: flags, key: key, logger: logger}
}

// Enabled reports whether the worker may process the queue.
func (g *Gate) Enabled(ctx context.Context) bool {
	enabled, err := g.flags.IsEnabled(ctx, g.key)
	if err != nil {
		g.logger.Warn("feature flag lookup failed, treating as disabled",
			zap.String("key", g.key), zap.Error(err))
		return false
	}
	return enabled
}
