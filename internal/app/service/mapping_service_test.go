package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sifan077/QRHub/internal/app/model"
	"github.com/sifan077/QRHub/internal/app/repository"
	"github.com/sifan077/QRHub/internal/app/shortid"
)

type mockMappingRepository struct {
	createFn       func(ctx context.Context, mapping *model.Mapping) error
	getFn          func(ctx context.Context, id string) (*model.Mapping, error)
	listFn         func(ctx context.Context, page, limit int) (*model.MappingPage, error)
	updateFn       func(ctx context.Context, id string, update model.MappingUpdate) (*model.Mapping, error)
	deleteFn       func(ctx context.Context, id string) (bool, error)
	expiredFn      func(ctx context.Context, now time.Time) ([]model.Mapping, error)
	expiringSoonFn func(ctx context.Context, now time.Time, windowDays int) ([]model.Mapping, error)
	categoryFn     func(ctx context.Context) ([]model.Mapping, error)
	idsFn          func(ctx context.Context) ([]string, error)
}

func (m *mockMappingRepository) Create(ctx context.Context, mapping *model.Mapping) error {
	if m.createFn != nil {
		return m.createFn(ctx, mapping)
	}
	return nil
}

func (m *mockMappingRepository) GetByID(ctx context.Context, id string) (*model.Mapping, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, repository.ErrMappingNotFound
}

func (m *mockMappingRepository) ListPage(ctx context.Context, page, limit int) (*model.MappingPage, error) {
	if m.listFn != nil {
		return m.listFn(ctx, page, limit)
	}
	return &model.MappingPage{}, nil
}

func (m *mockMappingRepository) Update(ctx context.Context, id string, update model.MappingUpdate) (*model.Mapping, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, update)
	}
	return nil, repository.ErrMappingNotFound
}

func (m *mockMappingRepository) Delete(ctx context.Context, id string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return false, nil
}

func (m *mockMappingRepository) ListExpired(ctx context.Context, now time.Time) ([]model.Mapping, error) {
	if m.expiredFn != nil {
		return m.expiredFn(ctx, now)
	}
	return nil, nil
}

func (m *mockMappingRepository) ListExpiringSoon(ctx context.Context, now time.Time, windowDays int) ([]model.Mapping, error) {
	if m.expiringSoonFn != nil {
		return m.expiringSoonFn(ctx, now, windowDays)
	}
	return nil, nil
}

func (m *mockMappingRepository) ListByCategory(ctx context.Context) ([]model.Mapping, error) {
	if m.categoryFn != nil {
		return m.categoryFn(ctx)
	}
	return nil, nil
}

func (m *mockMappingRepository) IDs(ctx context.Context) ([]string, error) {
	if m.idsFn != nil {
		return m.idsFn(ctx)
	}
	return nil, nil
}

type recordingPublisher struct {
	events []model.MappingEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event model.MappingEvent) error {
	p.events = append(p.events, event)
	return p.err
}

type recordingMetrics struct {
	creates  []string
	resolves []string
	sweeps   [][2]int
	failures int
}

func (m *recordingMetrics) CreateOutcome(outcome string)  { m.creates = append(m.creates, outcome) }
func (m *recordingMetrics) ResolveOutcome(outcome string) { m.resolves = append(m.resolves, outcome) }
func (m *recordingMetrics) SweepCompleted(expired, expiringSoon int) {
	m.sweeps = append(m.sweeps, [2]int{expired, expiringSoon})
}
func (m *recordingMetrics) SweepFailed() { m.failures++ }

var fixedNow = time.UnixMilli(1_700_000_000_000)

func fixedClock() time.Time { return fixedNow }

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

// memoryRepository stores mappings in a map so round trips can be exercised.
func memoryRepository() (*mockMappingRepository, map[string]model.Mapping) {
	store := make(map[string]model.Mapping)
	repo := &mockMappingRepository{
		createFn: func(ctx context.Context, mapping *model.Mapping) error {
			if _, ok := store[mapping.ID]; ok {
				return repository.ErrMappingExists
			}
			store[mapping.ID] = *mapping
			return nil
		},
		getFn: func(ctx context.Context, id string) (*model.Mapping, error) {
			m, ok := store[id]
			if !ok {
				return nil, repository.ErrMappingNotFound
			}
			return &m, nil
		},
	}
	return repo, store
}

func TestMappingService_CreateAndResolveRedirect(t *testing.T) {
	repo, store := memoryRepository()
	publisher := &recordingPublisher{}
	metrics := &recordingMetrics{}

	svc := NewMappingService(MappingDeps{
		Repo:      repo,
		Publisher: publisher,
		Metrics:   metrics,
		Now:       fixedClock,
	})

	created, err := svc.CreateMapping(context.Background(), CreateMappingInput{URL: " https://example.com/a "})
	if err != nil {
		t.Fatalf("CreateMapping returned error: %v", err)
	}
	if len(created.ID) != shortid.DefaultLength {
		t.Fatalf("expected %d character id, got %q", shortid.DefaultLength, created.ID)
	}
	if created.URL != "https://example.com/a" {
		t.Fatalf("expected trimmed url, got %q", created.URL)
	}
	if created.CreatedAt != fixedNow.UnixMilli() {
		t.Fatalf("expected createdAt %d, got %d", fixedNow.UnixMilli(), created.CreatedAt)
	}
	if created.ExpiresAt != nil {
		t.Fatalf("expected no expiry, got %d", *created.ExpiresAt)
	}
	if _, ok := store[created.ID]; !ok {
		t.Fatal("expected mapping to be stored")
	}

	resolved, err := svc.ResolveMapping(context.Background(), created.ID, fixedNow)
	if err != nil {
		t.Fatalf("ResolveMapping returned error: %v", err)
	}
	if resolved.Kind != ResolveRedirect || resolved.Target != "https://example.com/a" {
		t.Fatalf("unexpected resolution: %+v", resolved)
	}
	if resolved.Mapping != nil {
		t.Fatal("redirect resolution should not carry the record")
	}

	if len(publisher.events) != 1 || publisher.events[0].Type != model.EventMappingCreated {
		t.Fatalf("expected one created event, got %+v", publisher.events)
	}
	if got := fmt.Sprint(metrics.creates, metrics.resolves); got != "[created] [redirect]" {
		t.Fatalf("unexpected metrics: %s", got)
	}
}

func TestMappingService_CreateWithExpiryDays(t *testing.T) {
	repo, _ := memoryRepository()
	svc := NewMappingService(MappingDeps{Repo: repo, Now: fixedClock})

	created, err := svc.CreateMapping(context.Background(), CreateMappingInput{
		URL:        "https://example.com",
		ExpiryDays: 2,
	})
	if err != nil {
		t.Fatalf("CreateMapping returned error: %v", err)
	}
	if created.ExpiresAt == nil {
		t.Fatal("expected expiry to be set")
	}
	if want := created.CreatedAt + 172_800_000; *created.ExpiresAt != want {
		t.Fatalf("expected expiresAt %d, got %d", want, *created.ExpiresAt)
	}
}

func TestMappingService_CreateInvalidURL(t *testing.T) {
	called := false
	repo := &mockMappingRepository{
		createFn: func(ctx context.Context, mapping *model.Mapping) error {
			called = true
			return nil
		},
	}
	metrics := &recordingMetrics{}
	svc := NewMappingService(MappingDeps{Repo: repo, Metrics: metrics})

	for _, raw := range []string{"", "not a url", "/relative/path", "https://"} {
		_, err := svc.CreateMapping(context.Background(), CreateMappingInput{URL: raw})
		if !errors.Is(err, ErrInvalidTarget) {
			t.Fatalf("expected ErrInvalidTarget for %q, got %v", raw, err)
		}
	}
	if called {
		t.Fatal("repository should not be called for invalid input")
	}
	if len(metrics.creates) != 4 || metrics.creates[0] != "invalid" {
		t.Fatalf("unexpected metrics: %v", metrics.creates)
	}
}

func TestMappingService_CreateAcceptsOpaqueURL(t *testing.T) {
	repo, _ := memoryRepository()
	svc := NewMappingService(MappingDeps{Repo: repo, Now: fixedClock})

	created, err := svc.CreateMapping(context.Background(), CreateMappingInput{
		URL:      "mailto:someone@example.com",
		CustomID: "mail",
	})
	if err != nil {
		t.Fatalf("CreateMapping returned error: %v", err)
	}
	if created.URL != "mailto:someone@example.com" {
		t.Fatalf("unexpected target: %q", created.URL)
	}
}

func TestMappingService_CreateFractionalExpiry(t *testing.T) {
	repo, _ := memoryRepository()
	svc := NewMappingService(MappingDeps{Repo: repo, Now: fixedClock})

	created, err := svc.CreateMapping(context.Background(), CreateMappingInput{
		URL:        "https://example.com",
		ExpiryDays: 1.5,
	})
	if err != nil {
		t.Fatalf("CreateMapping returned error: %v", err)
	}
	if created.ExpiresAt == nil || *created.ExpiresAt != fixedNow.UnixMilli()+129_600_000 {
		t.Fatalf("expected a day and a half of lifetime, got %v", created.ExpiresAt)
	}
}

func TestMappingService_CreateCustomIDConflict(t *testing.T) {
	attempts := 0
	repo := &mockMappingRepository{
		createFn: func(ctx context.Context, mapping *model.Mapping) error {
			attempts++
			if mapping.ID != "promo" {
				t.Fatalf("expected custom id to be used verbatim, got %q", mapping.ID)
			}
			return repository.ErrMappingExists
		},
	}
	svc := NewMappingService(MappingDeps{Repo: repo})

	_, err := svc.CreateMapping(context.Background(), CreateMappingInput{
		URL:      "https://example.com",
		CustomID: "promo",
	})
	if !errors.Is(err, repository.ErrMappingExists) {
		t.Fatalf("expected ErrMappingExists, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected a single insert attempt, got %d", attempts)
	}
}

func TestMappingService_CreateRetriesGeneratedCollision(t *testing.T) {
	var tried []string
	repo := &mockMappingRepository{
		createFn: func(ctx context.Context, mapping *model.Mapping) error {
			tried = append(tried, mapping.ID)
			if len(tried) < 3 {
				return repository.ErrMappingExists
			}
			return nil
		},
	}
	svc := NewMappingService(MappingDeps{Repo: repo, IDs: shortid.NewGenerator(6, 1000)})

	created, err := svc.CreateMapping(context.Background(), CreateMappingInput{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("CreateMapping returned error: %v", err)
	}
	if len(tried) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(tried))
	}
	if created.ID != tried[2] {
		t.Fatalf("expected final id %q, got %q", tried[2], created.ID)
	}
	if tried[0] == tried[1] || tried[1] == tried[2] {
		t.Fatalf("expected a fresh id per attempt, got %v", tried)
	}
}

func TestMappingService_CreateGivesUpAfterAttempts(t *testing.T) {
	attempts := 0
	repo := &mockMappingRepository{
		createFn: func(ctx context.Context, mapping *model.Mapping) error {
			attempts++
			return repository.ErrMappingExists
		},
	}
	metrics := &recordingMetrics{}
	svc := NewMappingService(MappingDeps{Repo: repo, Metrics: metrics, GenerateAttempts: 3})

	_, err := svc.CreateMapping(context.Background(), CreateMappingInput{URL: "https://example.com"})
	if !errors.Is(err, repository.ErrMappingExists) {
		t.Fatalf("expected ErrMappingExists, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if len(metrics.creates) != 1 || metrics.creates[0] != "conflict" {
		t.Fatalf("unexpected metrics: %v", metrics.creates)
	}
}

func TestMappingService_CreateStorageErrorNotRetried(t *testing.T) {
	attempts := 0
	repo := &mockMappingRepository{
		createFn: func(ctx context.Context, mapping *model.Mapping) error {
			attempts++
			return fmt.Errorf("create mapping: %w: %w", repository.ErrStorage, errors.New("disk full"))
		},
	}
	svc := NewMappingService(MappingDeps{Repo: repo})

	_, err := svc.CreateMapping(context.Background(), CreateMappingInput{URL: "https://example.com"})
	if !errors.Is(err, repository.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
}

func TestMappingService_ResolveExpiryBoundary(t *testing.T) {
	cases := []struct {
		name      string
		expiresAt *int64
		wantErr   error
	}{
		{name: "never expires", expiresAt: nil},
		{name: "one millisecond left", expiresAt: int64Ptr(fixedNow.UnixMilli() + 1)},
		{name: "exactly now", expiresAt: int64Ptr(fixedNow.UnixMilli())},
		{name: "one millisecond past", expiresAt: int64Ptr(fixedNow.UnixMilli() - 1), wantErr: ErrMappingExpired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockMappingRepository{
				getFn: func(ctx context.Context, id string) (*model.Mapping, error) {
					return &model.Mapping{ID: id, URL: "https://example.com", ExpiresAt: tc.expiresAt}, nil
				},
			}
			svc := NewMappingService(MappingDeps{Repo: repo})

			_, err := svc.ResolveMapping(context.Background(), "abc123", fixedNow)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestMappingService_ResolveNotFound(t *testing.T) {
	metrics := &recordingMetrics{}
	svc := NewMappingService(MappingDeps{Repo: &mockMappingRepository{}, Metrics: metrics})

	_, err := svc.ResolveMapping(context.Background(), "missing", fixedNow)
	if !errors.Is(err, repository.ErrMappingNotFound) {
		t.Fatalf("expected ErrMappingNotFound, got %v", err)
	}
	if len(metrics.resolves) != 1 || metrics.resolves[0] != "not_found" {
		t.Fatalf("unexpected metrics: %v", metrics.resolves)
	}
}

func TestMappingService_ResolvePresentation(t *testing.T) {
	repo, _ := memoryRepository()
	svc := NewMappingService(MappingDeps{Repo: repo, Now: fixedClock})

	created, err := svc.CreateMapping(context.Background(), CreateMappingInput{
		URL:              "https://example.com/promo",
		IsPresentation:   true,
		PresentationData: map[string]any{"title": "Promo"},
		CustomID:         "promo1",
	})
	if err != nil {
		t.Fatalf("CreateMapping returned error: %v", err)
	}
	if created.PresentationData == nil || *created.PresentationData != `{"title":"Promo"}` {
		t.Fatalf("expected serialized payload, got %v", created.PresentationData)
	}

	resolved, err := svc.ResolveMapping(context.Background(), "promo1", fixedNow)
	if err != nil {
		t.Fatalf("ResolveMapping returned error: %v", err)
	}
	if resolved.Kind != ResolvePresentation || resolved.Mapping == nil {
		t.Fatalf("expected presentation resolution, got %+v", resolved)
	}
	if data, _ := resolved.Mapping.PresentationData.(map[string]any); data["title"] != "Promo" {
		t.Fatalf("expected decoded title, got %v", resolved.Mapping.PresentationData)
	}
	if resolved.Mapping.CustomData != nil {
		t.Fatalf("expected nil custom data, got %v", resolved.Mapping.CustomData)
	}
}

func TestMappingService_ResolveMalformedPayload(t *testing.T) {
	repo := &mockMappingRepository{
		getFn: func(ctx context.Context, id string) (*model.Mapping, error) {
			return &model.Mapping{
				ID:               id,
				URL:              "https://example.com",
				IsPresentation:   true,
				PresentationData: strPtr("{not json"),
				CustomData:       strPtr("[1,2"),
			}, nil
		},
	}
	svc := NewMappingService(MappingDeps{Repo: repo})

	resolved, err := svc.ResolveMapping(context.Background(), "broken", fixedNow)
	if err != nil {
		t.Fatalf("ResolveMapping returned error: %v", err)
	}
	if data, ok := resolved.Mapping.PresentationData.(map[string]any); !ok || len(data) != 0 {
		t.Fatalf("expected empty presentation data, got %v", resolved.Mapping.PresentationData)
	}
	if resolved.Mapping.CustomData != nil {
		t.Fatalf("expected nil custom data, got %v", resolved.Mapping.CustomData)
	}
}

func TestMappingService_NonObjectPayloadsRoundTrip(t *testing.T) {
	repo, _ := memoryRepository()
	svc := NewMappingService(MappingDeps{Repo: repo, Now: fixedClock})

	created, err := svc.CreateMapping(context.Background(), CreateMappingInput{
		URL:              "https://example.com/list",
		IsPresentation:   true,
		PresentationData: "just a caption",
		CustomData:       []any{"a", "b"},
		CustomID:         "arr",
	})
	if err != nil {
		t.Fatalf("CreateMapping returned error: %v", err)
	}
	if created.CustomData == nil || *created.CustomData != `["a","b"]` {
		t.Fatalf("expected array payload stored as JSON text, got %v", created.CustomData)
	}

	resolved, err := svc.ResolveMapping(context.Background(), "arr", fixedNow)
	if err != nil {
		t.Fatalf("ResolveMapping returned error: %v", err)
	}
	if items, ok := resolved.Mapping.CustomData.([]any); !ok || len(items) != 2 || items[1] != "b" {
		t.Fatalf("expected array custom data, got %#v", resolved.Mapping.CustomData)
	}
	if resolved.Mapping.PresentationData != "just a caption" {
		t.Fatalf("expected scalar presentation data, got %#v", resolved.Mapping.PresentationData)
	}
}

func TestMappingService_UpdateBuildsPartialUpdate(t *testing.T) {
	var got model.MappingUpdate
	repo := &mockMappingRepository{
		updateFn: func(ctx context.Context, id string, update model.MappingUpdate) (*model.Mapping, error) {
			got = update
			return &model.Mapping{ID: id, URL: "https://example.com"}, nil
		},
	}
	publisher := &recordingPublisher{}
	svc := NewMappingService(MappingDeps{Repo: repo, Publisher: publisher, Now: fixedClock})

	days := 3.0
	_, err := svc.UpdateMapping(context.Background(), "abc123", UpdateMappingInput{
		URL:            model.Some("javascript-is-not-a-url"),
		ExpiryDays:     model.Some(&days),
		IsPresentation: model.Some(false),
		CustomData:     model.Some[any](map[string]any{"k": "v"}),
	})
	if err != nil {
		t.Fatalf("UpdateMapping returned error: %v", err)
	}

	if got.URL != nil {
		t.Fatalf("expected invalid url to be dropped, got %q", *got.URL)
	}
	if !got.ExpiresAt.Set || got.ExpiresAt.Value == nil {
		t.Fatal("expected expiry to be recomputed")
	}
	if want := fixedNow.UnixMilli() + 3*86_400_000; *got.ExpiresAt.Value != want {
		t.Fatalf("expected expiresAt %d, got %d", want, *got.ExpiresAt.Value)
	}
	if got.IsPresentation == nil || *got.IsPresentation {
		t.Fatal("expected presentation flag cleared")
	}
	if got.PresentationData.Set {
		t.Fatal("presentation data should be untouched")
	}
	if !got.CustomData.Set || got.CustomData.Value == nil || *got.CustomData.Value != `{"k":"v"}` {
		t.Fatalf("unexpected custom data update: %+v", got.CustomData)
	}
	if len(publisher.events) != 1 || publisher.events[0].Type != model.EventMappingUpdated {
		t.Fatalf("expected one updated event, got %+v", publisher.events)
	}
}

func TestMappingService_UpdateExplicitNulls(t *testing.T) {
	var got model.MappingUpdate
	repo := &mockMappingRepository{
		updateFn: func(ctx context.Context, id string, update model.MappingUpdate) (*model.Mapping, error) {
			got = update
			return &model.Mapping{ID: id}, nil
		},
	}
	svc := NewMappingService(MappingDeps{Repo: repo})

	_, err := svc.UpdateMapping(context.Background(), "abc123", UpdateMappingInput{
		ExpiryDays:       model.Some[*float64](nil),
		PresentationData: model.Some[any](nil),
	})
	if err != nil {
		t.Fatalf("UpdateMapping returned error: %v", err)
	}
	if !got.ExpiresAt.Set || got.ExpiresAt.Value != nil {
		t.Fatalf("expected expiry cleared, got %+v", got.ExpiresAt)
	}
	if !got.PresentationData.Set || got.PresentationData.Value != nil {
		t.Fatalf("expected presentation data cleared, got %+v", got.PresentationData)
	}
}

func TestMappingService_UpdateEmptyPublishesNothing(t *testing.T) {
	repo := &mockMappingRepository{
		updateFn: func(ctx context.Context, id string, update model.MappingUpdate) (*model.Mapping, error) {
			if !update.IsEmpty() {
				t.Fatalf("expected empty update, got %+v", update)
			}
			return &model.Mapping{ID: id}, nil
		},
	}
	publisher := &recordingPublisher{}
	svc := NewMappingService(MappingDeps{Repo: repo, Publisher: publisher})

	if _, err := svc.UpdateMapping(context.Background(), "abc123", UpdateMappingInput{
		URL: model.Some("::bad::"),
	}); err != nil {
		t.Fatalf("UpdateMapping returned error: %v", err)
	}
	if len(publisher.events) != 0 {
		t.Fatalf("expected no events, got %+v", publisher.events)
	}
}

func TestMappingService_UpdateNotFound(t *testing.T) {
	svc := NewMappingService(MappingDeps{Repo: &mockMappingRepository{}})

	_, err := svc.UpdateMapping(context.Background(), "missing", UpdateMappingInput{URL: model.Some("https://example.com")})
	if !errors.Is(err, repository.ErrMappingNotFound) {
		t.Fatalf("expected ErrMappingNotFound, got %v", err)
	}
}

func TestMappingService_DeleteMapping(t *testing.T) {
	repo, store := memoryRepository()
	repo.deleteFn = func(ctx context.Context, id string) (bool, error) {
		if _, ok := store[id]; !ok {
			return false, nil
		}
		delete(store, id)
		return true, nil
	}
	store["abc123"] = model.Mapping{ID: "abc123", URL: "https://example.com"}
	publisher := &recordingPublisher{err: errors.New("nats down")}
	svc := NewMappingService(MappingDeps{Repo: repo, Publisher: publisher})

	deleted, err := svc.DeleteMapping(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("DeleteMapping returned error: %v", err)
	}
	if !deleted {
		t.Fatal("expected mapping to be deleted")
	}
	if len(publisher.events) != 1 || publisher.events[0].Type != model.EventMappingDeleted {
		t.Fatalf("expected one deleted event, got %+v", publisher.events)
	}

	_, err = svc.DeleteMapping(context.Background(), "abc123")
	if !errors.Is(err, repository.ErrMappingNotFound) {
		t.Fatalf("expected ErrMappingNotFound, got %v", err)
	}
}

func TestMappingService_ListCategoryMappings(t *testing.T) {
	repo := &mockMappingRepository{
		categoryFn: func(ctx context.Context) ([]model.Mapping, error) {
			return []model.Mapping{
				{ID: "a", URL: "https://a.example", IsPresentation: true, PresentationData: strPtr(`{"title":"A"}`)},
				{ID: "b", URL: "https://b.example", IsPresentation: true, CustomData: strPtr(`{"n":1}`)},
			}, nil
		},
	}
	svc := NewMappingService(MappingDeps{Repo: repo})

	views, err := svc.ListCategoryMappings(context.Background())
	if err != nil {
		t.Fatalf("ListCategoryMappings returned error: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}
	firstPresentation, _ := views[0].PresentationData.(map[string]any)
	if firstPresentation["title"] != "A" {
		t.Fatalf("unexpected first view: %+v", views[0])
	}
	secondPresentation, _ := views[1].PresentationData.(map[string]any)
	secondCustom, _ := views[1].CustomData.(map[string]any)
	if len(secondPresentation) != 0 || secondCustom["n"] != float64(1) {
		t.Fatalf("unexpected second view: %+v", views[1])
	}
}

func TestMappingService_ListMappingsPropagatesStorageError(t *testing.T) {
	repo := &mockMappingRepository{
		listFn: func(ctx context.Context, page, limit int) (*model.MappingPage, error) {
			return nil, fmt.Errorf("list mappings: %w", repository.ErrStorage)
		},
	}
	svc := NewMappingService(MappingDeps{Repo: repo})

	if _, err := svc.ListMappings(context.Background(), 1, 10); !errors.Is(err, repository.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestMappingService_PrimeIDFilter(t *testing.T) {
	repo := &mockMappingRepository{
		idsFn: func(ctx context.Context) ([]string, error) {
			return []string{"abc123", "XYZ789"}, nil
		},
	}
	ids := shortid.NewGenerator(6, 1000)
	svc := NewMappingService(MappingDeps{Repo: repo, IDs: ids})

	n, err := svc.PrimeIDFilter(context.Background())
	if err != nil {
		t.Fatalf("PrimeIDFilter returned error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 ids, got %d", n)
	}
	if !ids.MaybeTaken("abc123") || !ids.MaybeTaken("XYZ789") {
		t.Fatal("expected primed ids to be reported as taken")
	}
}
