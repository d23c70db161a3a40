package devserver

import (
	"errors"
	"testing"
	"time"

	"github.com/assetforge/forge-cli/internal/api"
)

func TestConsumeRefreshRotation(t *testing.T) {
	store := NewStore()
	now := time.Now().UTC()
	store.CreateRefresh("r1", 7, now.Add(time.Hour))

	userID, err := store.ConsumeRefresh("r1", now)
	if err != nil {
		t.Fatalf("ConsumeRefresh() error = %v", err)
	}
	if userID != 7 {
		t.Errorf("ConsumeRefresh() = %d, want 7", userID)
	}

	// The token is single-use.
	if _, err := store.ConsumeRefresh("r1", now); !errors.Is(err, ErrRefreshReused) {
		t.Errorf("replay error = %v, want ErrRefreshReused", err)
	}
}

func TestConsumeRefreshExpired(t *testing.T) {
	store := NewStore()
	now := time.Now().UTC()
	store.CreateRefresh("stale", 7, now.Add(-time.Minute))

	if _, err := store.ConsumeRefresh("stale", now); !errors.Is(err, ErrRefreshExpired) {
		t.Fatalf("ConsumeRefresh() error = %v, want ErrRefreshExpired", err)
	}

	// An expired token counts as spent afterwards.
	if _, err := store.ConsumeRefresh("stale", now); !errors.Is(err, ErrRefreshReused) {
		t.Errorf("replay error = %v, want ErrRefreshReused", err)
	}
}

func TestConsumeRefreshUnknown(t *testing.T) {
	store := NewStore()

	if _, err := store.ConsumeRefresh("never-issued", time.Now().UTC()); !errors.Is(err, ErrRefreshReused) {
		t.Errorf("ConsumeRefresh() error = %v, want ErrRefreshReused", err)
	}
}

func TestReuseRevokesWholeFamily(t *testing.T) {
	store := NewStore()
	now := time.Now().UTC()
	expiry := now.Add(time.Hour)

	store.CreateRefresh("owner-1", 1, expiry)
	store.CreateRefresh("other-1", 2, expiry)

	// A normal rotation: owner-1 is spent, owner-2 is the live token.
	if _, err := store.ConsumeRefresh("owner-1", now); err != nil {
		t.Fatalf("rotation error = %v", err)
	}
	store.CreateRefresh("owner-2", 1, expiry)

	// Replaying the spent token kills every live token of that user.
	if _, err := store.ConsumeRefresh("owner-1", now); !errors.Is(err, ErrRefreshReused) {
		t.Fatalf("replay error = %v, want ErrRefreshReused", err)
	}
	if _, err := store.ConsumeRefresh("owner-2", now); !errors.Is(err, ErrRefreshReused) {
		t.Errorf("rotated sibling survived revocation: %v", err)
	}

	// Other users are untouched.
	if userID, err := store.ConsumeRefresh("other-1", now); err != nil || userID != 2 {
		t.Errorf("ConsumeRefresh(other-1) = %d, %v", userID, err)
	}
}

func TestCreateUserUniqueness(t *testing.T) {
	store := NewStore()

	if _, err := store.CreateUser("t@example.com", "tester", "hash"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if _, err := store.CreateUser("t@example.com", "other", "hash"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate email error = %v, want ErrEmailTaken", err)
	}
	if _, err := store.CreateUser("other@example.com", "tester", "hash"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("duplicate username error = %v, want ErrUsernameTaken", err)
	}
}

func TestWatchJobDeliversUpdates(t *testing.T) {
	store := NewStore()
	store.CreateJob("job-1", 1, kindTextToImage, "a harbor", "m", nil, nil, "")

	updates, cancel, ok := store.WatchJob("job-1")
	if !ok {
		t.Fatal("WatchJob() found no job")
	}
	defer cancel()

	store.MarkProcessing("job-1")
	store.CompleteJob("job-1", 9, "/storage/images/job-1.png")

	first := <-updates
	if first.Status != api.StatusProcessing {
		t.Errorf("first update = %q, want processing", first.Status)
	}
	second := <-updates
	if second.Status != api.StatusCompleted {
		t.Errorf("second update = %q, want completed", second.Status)
	}
	if second.AssetID == nil || *second.AssetID != 9 {
		t.Errorf("AssetID = %v, want 9", second.AssetID)
	}
}

func TestWatchJobCancelStopsDelivery(t *testing.T) {
	store := NewStore()
	store.CreateJob("job-1", 1, kindTextToImage, "a harbor", "m", nil, nil, "")

	updates, cancel, ok := store.WatchJob("job-1")
	if !ok {
		t.Fatal("WatchJob() found no job")
	}
	cancel()

	if _, open := <-updates; open {
		t.Error("channel still open after cancel")
	}

	// Updates after cancellation go nowhere instead of panicking.
	store.MarkProcessing("job-1")
}

func TestFindCachedAssetNormalizesPrompt(t *testing.T) {
	store := NewStore()
	size := int64(4)
	created := store.CreateAsset(api.Asset{
		JobID:     "job-1",
		FilePath:  "/storage/images/job-1.png",
		Prompt:    NormalizePrompt("  Calm Sea  "),
		Model:     "m",
		AssetType: "image",
		FileSize:  &size,
		UserID:    1,
	})
	if created.ID == 0 {
		t.Fatal("CreateAsset() assigned no ID")
	}

	if _, ok := store.FindCachedAsset("CALM SEA", "m", "image"); !ok {
		t.Error("case-insensitive cache lookup missed")
	}
	if _, ok := store.FindCachedAsset("calm sea", "other-model", "image"); ok {
		t.Error("cache hit across models")
	}
	if _, ok := store.FindCachedAsset("calm sea", "m", "video"); ok {
		t.Error("cache hit across asset types")
	}
}

func TestJobStatsCountsAllStatuses(t *testing.T) {
	store := NewStore()
	store.CreateJob("a", 1, kindTextToImage, "p", "m", nil, nil, "")
	store.CreateJob("b", 1, kindTextToImage, "p", "m", nil, nil, "")
	store.MarkProcessing("b")
	store.CreateJob("c", 1, kindTextToImage, "p", "m", nil, nil, "")
	store.FailJob("c", "boom")

	stats := store.JobStats()
	want := map[string]int{"pending": 1, "processing": 1, "completed": 0, "failed": 1}
	for key, count := range want {
		if stats[key] != count {
			t.Errorf("stats[%q] = %d, want %d", key, stats[key], count)
		}
	}
}
