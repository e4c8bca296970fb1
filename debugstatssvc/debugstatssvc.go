package debugstatssvc

import (
	"context"
	"fmt"
	"github.com/lefinal/bedwars-server/arena"
	"github.com/lefinal/bedwars-server/errors"
	"github.com/lefinal/bedwars-server/service"
	"go.uber.org/zap"
	"runtime"
	"strings"
	"time"
)

type Config struct {
	// IsEnabled describes whether periodic debug stats logging is desired.
	IsEnabled bool
	// Interval in which to log debug stats.
	Interval time.Duration
	// IncludeStack adds the stack of all goroutines.
	IncludeStack bool
}

// Snapshotter provides the arena snapshots to include.
type Snapshotter interface {
	Snapshots(ctx context.Context) ([]arena.Snapshot, error)
}

type debugStatsService struct {
	logger      *zap.Logger
	config      Config
	snapshotter Snapshotter
}

func NewService(logger *zap.Logger, config Config, snapshotter Snapshotter) service.Service {
	return &debugStatsService{
		logger:      logger,
		config:      config,
		snapshotter: snapshotter,
	}
}

func (s *debugStatsService) Run(ctx context.Context) error {
	if !s.config.IsEnabled {
		return nil
	}
	if s.config.Interval <= 0 {
		return errors.Error{
			Code:    errors.ErrInternal,
			Kind:    errors.KindInvalidConfig,
			Message: "debug stats interval must be positive",
			Details: errors.Details{"interval": s.config.Interval.String()},
		}
	}
	s.logger.Debug(fmt.Sprintf("logging system state every %gs", s.config.Interval.Seconds()))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.config.Interval):
			s.logger.Debug(s.debugStats(ctx))
		}
	}
}

// arenaStats formats one line per arena with state, roster size and active
// timers. Leaking timers show up as growing task counts in WAITING.
func arenaStats(snapshots []arena.Snapshot) string {
	var b strings.Builder
	for _, snapshot := range snapshots {
		bots := 0
		for _, p := range snapshot.Participants {
			if p.Kind == arena.KindBot {
				bots++
			}
		}
		b.WriteString(fmt.Sprintf("%16s: %-8s participants: %d/%d (bots: %d) tasks: %d\n",
			snapshot.Name, snapshot.State, len(snapshot.Participants), snapshot.MaxPlayers, bots, snapshot.ScheduledTasks))
	}
	return b.String()
}

// debugStats creates the current system state like memory stats, arena states
// and optionally the current stack.
func (s *debugStatsService) debugStats(ctx context.Context) string {
	numCPU := runtime.NumCPU()
	numGoroutine := runtime.NumGoroutine()
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	memoryUsageMB := memStats.Sys / 1000 / 1000
	arenas := "unavailable\n"
	snapshots, err := s.snapshotter.Snapshots(ctx)
	if err != nil {
		errors.Log(s.logger, errors.Wrap(err, "snapshots", nil))
	} else {
		arenas = arenaStats(snapshots)
	}
	stack := ""
	if s.config.IncludeStack {
		buf := make([]byte, 1<<16)
		stackSize := runtime.Stack(buf, true)
		stack = fmt.Sprintf("\n----------BEGIN OF STACK----------\n%s\n----------END OF STACK------------", buf[0:stackSize])
	}
	return fmt.Sprintf(`
----------BEGIN OF DEBUG SYSTEM STATS-----------
       Num CPU: %d
Num goroutines: %d
 Memory in use: %dMB

----------BEGIN OF ARENAS---------
%s----------END OF ARENAS-----------%s
----------END OF DEBUG SYSTEM STATS-------------
`, numCPU, numGoroutine, memoryUsageMB, arenas, stack)
}
