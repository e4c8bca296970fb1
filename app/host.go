package app

import (
	"context"
	"github.com/lefinal/bedwars-server/arena"
	"github.com/lefinal/bedwars-server/errors"
	"github.com/lefinal/bedwars-server/host"
	"go.uber.org/zap"
	"time"
)

// deathReportTimeout bounds reporting a death from the host to the director.
const deathReportTimeout = 5 * time.Second

// loggingStatsRecorder is the host.StatsRecorder used when no database is
// configured.
type loggingStatsRecorder struct {
	logger *zap.Logger
}

func (r loggingStatsRecorder) PersistMatchResult(_ context.Context, result host.MatchResult) error {
	r.logger.Info("match result",
		zap.String("participant", result.ParticipantID),
		zap.String("name", result.Name),
		zap.Bool("won", result.Won),
		zap.Int("kills", result.Counters.Kills),
		zap.Int("final_kills", result.Counters.FinalKills),
		zap.Int("deaths", result.Counters.Deaths),
		zap.Int("beds_destroyed", result.Counters.BedsDestroyed))
	return nil
}

// deathReporter is what the death handler needs from director.Director.
type deathReporter interface {
	Locate(ctx context.Context, participant arena.ParticipantID) (string, bool, error)
	ReportDeath(ctx context.Context, arenaName string, victim arena.ParticipantID, killer *arena.ParticipantID) error
	ReportBotKilled(ctx context.Context, arenaName string, botID arena.ParticipantID, actor *arena.ParticipantID) error
}

// newDeathHandler creates the handler for deaths detected by the host. Deaths
// by the host have no known killer.
func newDeathHandler(ctx context.Context, logger *zap.Logger, reporter deathReporter) func(victim host.ParticipantInfo) {
	return func(victim host.ParticipantInfo) {
		reportCtx, cancel := context.WithTimeout(ctx, deathReportTimeout)
		defer cancel()
		id := arena.ParticipantID(victim.ID)
		arenaName, ok, err := reporter.Locate(reportCtx, id)
		if err != nil {
			errors.Log(logger, errors.Wrap(err, "locate participant", errors.Details{"participant": victim.ID}))
			return
		}
		if !ok {
			logger.Debug("death of unknown participant", zap.String("participant", victim.ID))
			return
		}
		if victim.IsBot {
			err = reporter.ReportBotKilled(reportCtx, arenaName, id, nil)
		} else {
			err = reporter.ReportDeath(reportCtx, arenaName, id, nil)
		}
		if err != nil {
			err = errors.Wrap(err, "report death", errors.Details{"participant": victim.ID, "arena": arenaName})
			if errors.BlameUser(err) {
				logger.Debug("report death rejected", zap.Error(err))
				return
			}
			errors.Log(logger, err)
		}
	}
}
