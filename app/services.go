package app

import (
	"context"
	"fmt"
	"github.com/lefinal/bedwars-server/arenasvc"
	"github.com/lefinal/bedwars-server/debugstatssvc"
	"github.com/lefinal/bedwars-server/director"
	"github.com/lefinal/bedwars-server/errors"
	"github.com/lefinal/bedwars-server/logging"
	"github.com/lefinal/bedwars-server/logpublishsvc"
	"github.com/lefinal/bedwars-server/portal"
	"github.com/lefinal/bedwars-server/service"
	"github.com/lefinal/bedwars-server/statussvc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"time"
)

type services map[string]service.Service

// serviceFunc allows using a function as service.Service.
type serviceFunc func(ctx context.Context) error

func (fn serviceFunc) Run(ctx context.Context) error {
	return fn(ctx)
}

func createServices(appConfig Config, logger *zap.Logger, portalBase portal.Base, dir *director.Director,
	notifier *arenasvc.Notifier, logEntriesIn <-chan logging.LogEntry) services {
	services := make(services)
	services["portal"] = serviceFunc(portalBase.Open)
	services["director"] = dir
	services["arena"] = arenasvc.NewArenaService(logger.Named("arena"), portalBase.NewPortal("arena"), dir, notifier)
	if appConfig.StatusAddr.Valid {
		services["status"] = statussvc.NewStatusService(logger.Named("status"), statussvc.Config{
			ServeAddr: appConfig.StatusAddr.String,
		}, dir)
	}
	services["debug-stats"] = debugstatssvc.NewService(logger.Named("debug-stats"), debugstatssvc.Config{
		IsEnabled: appConfig.Log.SystemDebugStatsInterval.Valid && appConfig.Log.SystemDebugStatsInterval.Int > 0,
		Interval:  time.Duration(appConfig.Log.SystemDebugStatsInterval.Int) * time.Second,
	}, dir)
	services["log-publish"] = logpublishsvc.New(logger.Named("log-publish"), portalBase.NewPortal("log-publish"), logEntriesIn)
	return services
}

func (s services) run(ctx context.Context, logger *zap.Logger) error {
	wg, lifetime := errgroup.WithContext(ctx)
	for name, serviceToRun := range s {
		// Copy values.
		name, serviceToRun := name, serviceToRun
		wg.Go(func() error {
			logger.Debug(fmt.Sprintf("service %s up", name))
			defer logger.Debug(fmt.Sprintf("service %s down", name))
			if err := serviceToRun.Run(lifetime); err != nil {
				return errors.Wrap(err, "run service", errors.Details{"service_name": name})
			}
			return nil
		})
	}
	return wg.Wait()
}
