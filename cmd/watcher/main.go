// Command watcher follows the live report feed for one subscriber and raises
// local alerts when a nearby report becomes verified. It is the fallback path
// for devices that cannot receive push messages.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"geosafe/internal/config"
	"geosafe/internal/domain/entities"
	"geosafe/internal/geo"
	"geosafe/internal/logger"
	"geosafe/internal/services"
	"geosafe/internal/stream"
	"geosafe/pkg/utils"
)

type alertLogger struct {
	checker *services.MirrorChecker
	log     *zap.Logger
}

func (a *alertLogger) OnSnapshot(reports []*entities.Report) {
	a.checker.HandleSnapshot(reports)
	a.log.Info("report snapshot loaded", zap.Int("reports", len(reports)))
}

func (a *alertLogger) OnChange(change entities.ReportChange) {
	alert, ok := a.checker.HandleChange(change)
	if !ok {
		return
	}
	a.log.Warn(alert.Title,
		zap.String("report_id", alert.ReportID),
		zap.String("body", alert.Body),
		zap.Float64("distance_km", utils.RoundTo(alert.DistanceKm, 2)),
	)
}

func main() {
	url := flag.String("url", "ws://localhost:8080/api/v1/reports/stream", "report stream URL")
	token := flag.String("token", os.Getenv("GEOSAFE_TOKEN"), "bearer token")
	lat := flag.Float64("lat", 0, "home latitude")
	lng := flag.Float64("lng", 0, "home longitude")
	radius := flag.Float64("radius", entities.DefaultRadiusKm, "alert radius in km")
	flag.Parse()

	log, err := logger.New(config.LogConfig{Level: "info", Development: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	home := entities.NewLocation(*lat, *lng)
	sub := entities.NewAlertSubscription("local")
	sub.Enabled = true
	sub.Home = &home
	sub.RadiusKm = *radius
	if err := sub.Validate(); err != nil {
		log.Fatal("invalid subscription", zap.Error(err))
	}
	sub.Reindex(geo.DefaultPrecision)

	header := http.Header{}
	if *token != "" {
		header.Set("Authorization", "Bearer "+*token)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs := &alertLogger{
		checker: services.NewMirrorChecker(sub, services.DefaultTrackerSize),
		log:     log,
	}
	log.Info("watching reports",
		zap.String("url", *url),
		zap.String("geohash", sub.Geohash),
		zap.Float64("radius_km", sub.RadiusKm),
	)
	err = stream.NewClient(*url, header, log.Named("stream")).Run(ctx, obs)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("watcher stopped", zap.Error(err))
	}
}
