package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Dan9191/card-service/internal/apperrors"
	"github.com/Dan9191/card-service/internal/models"
	"github.com/Dan9191/card-service/internal/utils"
)

// runStoreSuite exercises behavior both store implementations must share.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("consume is exactly once", func(t *testing.T) {
		testConsumeExactlyOnce(t, newStore(t))
	})
	t.Run("concurrent consume has one winner", func(t *testing.T) {
		testConcurrentConsume(t, newStore(t))
	})
	t.Run("matching ignores consumed cards", func(t *testing.T) {
		testMatchingIgnoresConsumed(t, newStore(t))
	})
	t.Run("duplicate number", func(t *testing.T) {
		testDuplicateNumber(t, newStore(t))
	})
	t.Run("stats aggregation", func(t *testing.T) {
		testStatsAggregation(t, newStore(t))
	})
	t.Run("platform lifecycle", func(t *testing.T) {
		testPlatformLifecycle(t, newStore(t))
	})
}

func newTestCard(t *testing.T, store Store) *models.Card {
	t.Helper()
	number, err := utils.GenerateCardNumber("4532", 16)
	if err != nil {
		t.Fatalf("generate number: %v", err)
	}
	card := &models.Card{
		Number:         number,
		ExpirationDate: "07/29",
		CVVFingerprint: utils.CVVFingerprint(number, "07/29", "123", "test"),
		HolderName:     "Nadia Haddad",
		NationalID:     "11144477735",
		Status:         models.CardStatusUnused,
	}
	if err := store.CreateCard(context.Background(), card); err != nil {
		t.Fatalf("create card: %v", err)
	}
	if card.ID == "" {
		t.Fatalf("expected card id to be assigned")
	}
	return card
}

func matchFor(card *models.Card) models.CardMatch {
	return models.CardMatch{
		Number:         card.Number,
		ExpirationDate: card.ExpirationDate,
		CVVFingerprint: card.CVVFingerprint,
		HolderName:     card.HolderName,
		NationalID:     card.NationalID,
	}
}

func testConsumeExactlyOnce(t *testing.T, store Store) {
	ctx := context.Background()
	card := newTestCard(t, store)

	consumed, err := store.ConsumeCard(ctx, card.ID, "t1", "", time.Now())
	if err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if consumed.Status != models.CardStatusConsumed {
		t.Fatalf("expected consumed status, got %q", consumed.Status)
	}
	if consumed.ConsumedBy == nil || *consumed.ConsumedBy != "t1" {
		t.Fatalf("expected consumedBy t1, got %v", consumed.ConsumedBy)
	}
	if consumed.ConsumedAt == nil {
		t.Fatalf("expected consumedAt to be set")
	}

	_, err = store.ConsumeCard(ctx, card.ID, "t2", "", time.Now())
	if !errors.Is(err, apperrors.ErrAlreadyConsumed) {
		t.Fatalf("expected ErrAlreadyConsumed, got %v", err)
	}

	stored, err := store.FindCardByID(ctx, card.ID)
	if err != nil {
		t.Fatalf("find card: %v", err)
	}
	if stored.ConsumedBy == nil || *stored.ConsumedBy != "t1" {
		t.Fatalf("second consume must not overwrite transaction id, got %v", stored.ConsumedBy)
	}

	_, err = store.ConsumeCard(ctx, "00000000-0000-0000-0000-000000000000", "t3", "", time.Now())
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown card, got %v", err)
	}
}

func testConcurrentConsume(t *testing.T, store Store) {
	ctx := context.Background()
	card := newTestCard(t, store)

	const workers = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := store.ConsumeCard(ctx, card.ID, "tx", "", time.Now())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperrors.ErrAlreadyConsumed):
				conflicts++
			default:
				t.Errorf("unexpected consume error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one successful consume, got %d", successes)
	}
	if conflicts != workers-1 {
		t.Fatalf("expected %d conflicts, got %d", workers-1, conflicts)
	}
}

func testMatchingIgnoresConsumed(t *testing.T, store Store) {
	ctx := context.Background()
	card := newTestCard(t, store)

	found, err := store.FindMatchingCard(ctx, matchFor(card))
	if err != nil {
		t.Fatalf("find matching: %v", err)
	}
	if found.ID != card.ID || found.Status != models.CardStatusUnused {
		t.Fatalf("unexpected match %+v", found)
	}

	wrong := matchFor(card)
	wrong.HolderName = "Someone Else"
	if _, err := store.FindMatchingCard(ctx, wrong); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for mismatched holder, got %v", err)
	}

	if _, err := store.ConsumeCard(ctx, card.ID, "t1", "", time.Now()); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if _, err := store.FindMatchingCard(ctx, matchFor(card)); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected consumed card not to match, got %v", err)
	}
}

func testDuplicateNumber(t *testing.T, store Store) {
	card := newTestCard(t, store)
	dup := &models.Card{
		Number:         card.Number,
		ExpirationDate: "01/30",
		CVVFingerprint: "x",
		HolderName:     "Other",
		NationalID:     "52998224725",
	}
	err := store.CreateCard(context.Background(), dup)
	if !errors.Is(err, apperrors.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func testStatsAggregation(t *testing.T, store Store) {
	ctx := context.Background()
	now := time.Now().UTC()

	acme := []*models.Card{newTestCard(t, store), newTestCard(t, store)}
	other := newTestCard(t, store)
	unlabeled := newTestCard(t, store)
	old := newTestCard(t, store)
	newTestCard(t, store)

	for _, c := range acme {
		if _, err := store.ConsumeCard(ctx, c.ID, "a-"+c.ID, "acme", now); err != nil {
			t.Fatalf("consume: %v", err)
		}
	}
	if _, err := store.ConsumeCard(ctx, other.ID, "o", "other", now.Add(-24*time.Hour)); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if _, err := store.ConsumeCard(ctx, unlabeled.ID, "u", "", now); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if _, err := store.ConsumeCard(ctx, old.ID, "old", "other", now.Add(-10*24*time.Hour)); err != nil {
		t.Fatalf("consume: %v", err)
	}

	total, used, err := store.CardCounts(ctx)
	if err != nil {
		t.Fatalf("card counts: %v", err)
	}
	if total != 6 || used != 5 {
		t.Fatalf("expected total=6 used=5, got total=%d used=%d", total, used)
	}

	byPlatform, err := store.ConsumedByPlatform(ctx)
	if err != nil {
		t.Fatalf("by platform: %v", err)
	}
	want := []models.PlatformCount{{Platform: "acme", Count: 2}, {Platform: "other", Count: 2}, {Platform: "", Count: 1}}
	if len(byPlatform) != len(want) {
		t.Fatalf("expected %d platform groups, got %+v", len(want), byPlatform)
	}
	if byPlatform[2] != want[2] {
		t.Fatalf("expected smallest group last, got %+v", byPlatform)
	}
	for i := 1; i < len(byPlatform); i++ {
		if byPlatform[i-1].Count < byPlatform[i].Count {
			t.Fatalf("platform groups not sorted by count desc: %+v", byPlatform)
		}
	}

	byDate, err := store.ConsumedSince(ctx, now.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("by date: %v", err)
	}
	var recent int64
	for i, dc := range byDate {
		recent += dc.Count
		if i > 0 && byDate[i-1].Date >= dc.Date {
			t.Fatalf("dates not ascending: %+v", byDate)
		}
	}
	if recent != 4 {
		t.Fatalf("expected 4 cards consumed in the last 7 days, got %d (%+v)", recent, byDate)
	}
}

func testPlatformLifecycle(t *testing.T, store Store) {
	ctx := context.Background()
	platform := &models.Platform{
		Name:               "acme-" + time.Now().Format("150405.000000000"),
		APIKey:             "key-" + time.Now().Format("150405.000000000"),
		SecretKeyHash:      "hash",
		Status:             models.PlatformStatusActive,
		RateLimitPerMinute: 60,
	}
	if err := store.CreatePlatform(ctx, platform); err != nil {
		t.Fatalf("create platform: %v", err)
	}

	dup := *platform
	dup.ID = ""
	dup.APIKey = platform.APIKey + "-other"
	if err := store.CreatePlatform(ctx, &dup); !errors.Is(err, apperrors.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}

	found, err := store.FindActivePlatformByAPIKey(ctx, platform.APIKey)
	if err != nil || found.ID != platform.ID {
		t.Fatalf("find by api key: %v %+v", err, found)
	}

	rotated, err := store.UpdatePlatformKeys(ctx, platform.ID, platform.APIKey+"-rotated", "hash2")
	if err != nil {
		t.Fatalf("rotate keys: %v", err)
	}
	if rotated.APIKey != platform.APIKey+"-rotated" {
		t.Fatalf("expected rotated api key, got %q", rotated.APIKey)
	}
	if _, err := store.FindActivePlatformByAPIKey(ctx, platform.APIKey); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected old api key to be gone, got %v", err)
	}

	updated, err := store.UpdatePlatformIPWhitelist(ctx, platform.ID, []string{"10.0.0.1", "10.0.0.2"})
	if err != nil {
		t.Fatalf("update whitelist: %v", err)
	}
	if len(updated.IPWhitelist) != 2 || updated.IPWhitelist[0] != "10.0.0.1" {
		t.Fatalf("unexpected whitelist %v", updated.IPWhitelist)
	}

	if _, err := store.UpdatePlatformStatus(ctx, platform.ID, models.PlatformStatusSuspended); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if _, err := store.FindActivePlatformByAPIKey(ctx, rotated.APIKey); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected suspended platform to be excluded, got %v", err)
	}

	accessed := time.Now().UTC().Truncate(time.Second)
	if err := store.TouchPlatform(ctx, platform.ID, accessed); err != nil {
		t.Fatalf("touch: %v", err)
	}
	fetched, err := store.FindPlatformByID(ctx, platform.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if fetched.LastAccessedAt == nil || !fetched.LastAccessedAt.Equal(accessed) {
		t.Fatalf("expected last access %s, got %v", accessed, fetched.LastAccessedAt)
	}

	list, err := store.ListPlatforms(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) == 0 {
		t.Fatalf("expected at least one platform")
	}
	for _, p := range list {
		if p.SecretKey != "" {
			t.Fatalf("listed platform carries plaintext secret")
		}
	}

	if _, err := store.UpdatePlatformStatus(ctx, "00000000-0000-0000-0000-000000000000", models.PlatformStatusActive); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown platform, got %v", err)
	}
}
