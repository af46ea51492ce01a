package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/card-service/internal/config"
	"github.com/Dan9191/card-service/internal/repository"
	"github.com/Dan9191/card-service/internal/service"
	"github.com/Dan9191/card-service/internal/utils/email"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// digest mails card usage statistics to operators on a cron schedule.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if logLevel, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(logLevel)
	}
	if !cfg.NotificationsEnabled() {
		logger.Fatal("SMTP_HOST and ALERT_EMAIL are required for the digest")
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	store, closeStore, err := repository.Open(startCtx, cfg)
	cancelStart()
	if err != nil {
		logger.Fatalf("Failed to open %s storage: %v", cfg.Storage, err)
	}
	defer closeStore()

	svc := service.NewService(store, nil, nil, logger, cfg)
	sender := email.NewSender(cfg, logger)

	c := cron.New()
	_, err = c.AddFunc(cfg.DigestSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		stats, err := svc.Stats(ctx)
		if err != nil {
			logger.Errorf("Failed to compute card stats: %v", err)
			return
		}
		if err := sender.SendStatsDigest(*stats, time.Now()); err != nil {
			logger.Errorf("Failed to send stats digest: %v", err)
			return
		}
		logger.Infof("Stats digest sent: %d cards, %d used", stats.Total, stats.Used)
	})
	if err != nil {
		logger.Fatalf("Invalid DIGEST_SCHEDULE %q: %v", cfg.DigestSchedule, err)
	}
	c.Start()
	logger.Infof("Digest scheduled with %q", cfg.DigestSchedule)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Stopping digest scheduler")
	<-c.Stop().Done()
}
