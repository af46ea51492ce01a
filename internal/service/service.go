package service

import (
	"context"
	"time"

	"github.com/Dan9191/card-service/internal/config"
	"github.com/Dan9191/card-service/internal/models"
	"github.com/Dan9191/card-service/internal/repository"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// NameSource supplies card holder names from an external system.
// Failures must be reported as apperrors.ErrDependencyUnavailable.
type NameSource interface {
	FullName(ctx context.Context) (string, error)
}

// Notifier receives operator alerts about platform changes.
type Notifier interface {
	SendKeyRotationAlert(platform models.PlatformView, at time.Time) error
	SendStatusChangeAlert(platform models.PlatformView, at time.Time) error
}

// Service handles business logic
type Service struct {
	store    repository.Store
	names    NameSource
	notifier Notifier
	log      *logrus.Logger
	config   *config.Config

	now      func() time.Time
	hashCost int
}

// NewService initializes a new service. notifier may be nil.
func NewService(store repository.Store, names NameSource, notifier Notifier, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{
		store:    store,
		names:    names,
		notifier: notifier,
		log:      log,
		config:   cfg,
		now:      func() time.Time { return time.Now().UTC() },
		hashCost: bcrypt.DefaultCost,
	}
}
