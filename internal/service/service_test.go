package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/Dan9191/card-service/internal/config"
	"github.com/Dan9191/card-service/internal/models"
	"github.com/Dan9191/card-service/internal/repository"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type stubNameSource struct {
	name string
	err  error
}

func (s stubNameSource) FullName(context.Context) (string, error) {
	return s.name, s.err
}

type recordingNotifier struct {
	rotations []models.PlatformView
	statuses  []models.PlatformView
	err       error
}

func (n *recordingNotifier) SendKeyRotationAlert(p models.PlatformView, _ time.Time) error {
	n.rotations = append(n.rotations, p)
	return n.err
}

func (n *recordingNotifier) SendStatusChangeAlert(p models.PlatformView, _ time.Time) error {
	n.statuses = append(n.statuses, p)
	return n.err
}

func testConfig() *config.Config {
	return &config.Config{
		CardPrefix:        "4532",
		FingerprintSecret: "fingerprint-secret",
		ReceiptSecret:     "receipt-secret",
	}
}

func newTestService(t *testing.T, store repository.Store, names NameSource, notifier Notifier) *Service {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	svc := NewService(store, names, notifier, logger, testConfig())
	svc.hashCost = bcrypt.MinCost
	return svc
}
