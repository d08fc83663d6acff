package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/QRHub/internal/app/expiry"
	"github.com/sifan077/QRHub/internal/app/model"
	"github.com/sifan077/QRHub/internal/app/repository"
	"github.com/sifan077/QRHub/internal/app/shortid"
	"go.uber.org/zap"
)

const defaultGenerateAttempts = 3

// MappingService defines behaviour-level operations on mappings.
type MappingService interface {
	CreateMapping(ctx context.Context, input CreateMappingInput) (*model.Mapping, error)
	GetMapping(ctx context.Context, id string) (*model.Mapping, error)
	ResolveMapping(ctx context.Context, id string, now time.Time) (*ResolvedView, error)
	ListMappings(ctx context.Context, page, limit int) (*model.MappingPage, error)
	UpdateMapping(ctx context.Context, id string, input UpdateMappingInput) (*model.Mapping, error)
	DeleteMapping(ctx context.Context, id string) (bool, error)
	ListCategoryMappings(ctx context.Context) ([]MappingView, error)
	PrimeIDFilter(ctx context.Context) (int, error)
}

// EventPublisher delivers mapping events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event model.MappingEvent) error
}

// MetricsRecorder receives lifecycle outcomes for instrumentation.
type MetricsRecorder interface {
	CreateOutcome(outcome string)
	ResolveOutcome(outcome string)
	SweepCompleted(expired, expiringSoon int)
	SweepFailed()
}

// MappingDeps groups the collaborators of the mapping service.
type MappingDeps struct {
	Repo      repository.MappingRepository
	IDs       *shortid.Generator
	Publisher EventPublisher
	Metrics   MetricsRecorder
	Logger    *zap.Logger
	// GenerateAttempts bounds inserts with generated ids; custom ids get one.
	GenerateAttempts int
	Now              func() time.Time
}

type mappingService struct {
	repo      repository.MappingRepository
	ids       *shortid.Generator
	publisher EventPublisher
	metrics   MetricsRecorder
	logger    *zap.Logger
	attempts  int
	now       func() time.Time
}

// NewMappingService returns a service implementation backed by the given repository.
func NewMappingService(deps MappingDeps) MappingService {
	s := &mappingService{
		repo:      deps.Repo,
		ids:       deps.IDs,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		attempts:  deps.GenerateAttempts,
		now:       deps.Now,
	}
	if s.ids == nil {
		s.ids = shortid.NewGenerator(shortid.DefaultLength, 0)
	}
	if s.publisher == nil {
		s.publisher = nopPublisher{}
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.attempts <= 0 {
		s.attempts = defaultGenerateAttempts
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreateMappingInput captures data required to create a mapping.
type CreateMappingInput struct {
	URL              string
	ExpiryDays       float64
	IsPresentation   bool
	PresentationData any
	CustomData       any
	// CustomID is used verbatim when set; a collision is reported, not retried.
	CustomID string
}

// UpdateMappingInput captures fields that can be changed on an existing
// mapping. Only fields marked Set are applied.
type UpdateMappingInput struct {
	URL              model.Optional[string]
	ExpiryDays       model.Optional[*float64]
	IsPresentation   model.Optional[bool]
	PresentationData model.Optional[any]
	CustomData       model.Optional[any]
}

// MappingView is a mapping with its payload columns parsed.
type MappingView struct {
	ID               string `json:"id"`
	URL              string `json:"url"`
	CreatedAt        int64  `json:"createdAt"`
	ExpiresAt        *int64 `json:"expiresAt"`
	IsPresentation   bool   `json:"isPresentation"`
	PresentationData any    `json:"presentationData"`
	CustomData       any    `json:"customData"`
}

// ResolveKind tells the boundary layer how to answer a resolution.
type ResolveKind int

const (
	// ResolveRedirect means an HTTP redirect to Target.
	ResolveRedirect ResolveKind = iota
	// ResolvePresentation means rendering Mapping as a landing page.
	ResolvePresentation
)

// ResolvedView is the outcome of resolving a live mapping.
type ResolvedView struct {
	Kind    ResolveKind
	Target  string
	Mapping *MappingView
}

func (s *mappingService) CreateMapping(ctx context.Context, input CreateMappingInput) (*model.Mapping, error) {
	target, err := validateTarget(input.URL)
	if err != nil {
		s.metrics.CreateOutcome("invalid")
		return nil, err
	}

	presentation, err := encodePayload(input.PresentationData)
	if err != nil {
		s.metrics.CreateOutcome("invalid")
		return nil, err
	}
	custom, err := encodePayload(input.CustomData)
	if err != nil {
		s.metrics.CreateOutcome("invalid")
		return nil, err
	}

	now := s.now()
	mapping := &model.Mapping{
		URL:              target,
		CreatedAt:        now.UnixMilli(),
		ExpiresAt:        expiry.Compute(input.ExpiryDays, now),
		IsPresentation:   input.IsPresentation,
		PresentationData: presentation,
		CustomData:       custom,
	}

	if input.CustomID != "" {
		mapping.ID = input.CustomID
		err = s.repo.Create(ctx, mapping)
	} else {
		err = s.createWithGeneratedID(ctx, mapping)
	}
	if err != nil {
		if errors.Is(err, repository.ErrMappingExists) {
			s.metrics.CreateOutcome("conflict")
		} else {
			s.metrics.CreateOutcome("error")
		}
		return nil, fmt.Errorf("create mapping: %w", err)
	}

	s.ids.Remember(mapping.ID)
	s.metrics.CreateOutcome("created")
	s.publish(ctx, model.EventMappingCreated, mapping)
	return mapping, nil
}

func (s *mappingService) createWithGeneratedID(ctx context.Context, mapping *model.Mapping) error {
	for attempt := 1; attempt <= s.attempts; attempt++ {
		id, err := s.ids.Next()
		if err != nil {
			return fmt.Errorf("generate id: %w", err)
		}
		mapping.ID = id

		err = s.repo.Create(ctx, mapping)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrMappingExists) {
			return err
		}

		s.ids.Remember(id)
		s.logger.Warn("generated mapping id collided",
			zap.String("id", id),
			zap.Int("attempt", attempt),
		)
	}
	return repository.ErrMappingExists
}

func (s *mappingService) GetMapping(ctx context.Context, id string) (*model.Mapping, error) {
	mapping, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get mapping: %w", err)
	}
	return mapping, nil
}

func (s *mappingService) ResolveMapping(ctx context.Context, id string, now time.Time) (*ResolvedView, error) {
	mapping, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			s.metrics.ResolveOutcome("not_found")
		} else {
			s.metrics.ResolveOutcome("error")
		}
		return nil, fmt.Errorf("resolve mapping: %w", err)
	}

	if expiry.IsExpired(mapping.ExpiresAt, now) {
		s.metrics.ResolveOutcome("expired")
		return nil, ErrMappingExpired
	}

	if mapping.IsPresentation {
		view := s.view(mapping)
		s.metrics.ResolveOutcome("presentation")
		return &ResolvedView{Kind: ResolvePresentation, Target: mapping.URL, Mapping: &view}, nil
	}

	s.metrics.ResolveOutcome("redirect")
	return &ResolvedView{Kind: ResolveRedirect, Target: mapping.URL}, nil
}

func (s *mappingService) ListMappings(ctx context.Context, page, limit int) (*model.MappingPage, error) {
	result, err := s.repo.ListPage(ctx, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	return result, nil
}

func (s *mappingService) UpdateMapping(ctx context.Context, id string, input UpdateMappingInput) (*model.Mapping, error) {
	var update model.MappingUpdate

	if input.URL.Set {
		// Invalid targets are dropped from the update rather than rejected.
		if target, err := validateTarget(input.URL.Value); err == nil {
			update.URL = &target
		} else {
			s.logger.Debug("ignoring invalid target in update", zap.String("id", id))
		}
	}
	if input.ExpiryDays.Set {
		var days float64
		if input.ExpiryDays.Value != nil {
			days = *input.ExpiryDays.Value
		}
		update.ExpiresAt = model.Some(expiry.Compute(days, s.now()))
	}
	if input.IsPresentation.Set {
		flag := input.IsPresentation.Value
		update.IsPresentation = &flag
	}
	if input.PresentationData.Set {
		raw, err := encodePayload(input.PresentationData.Value)
		if err != nil {
			return nil, err
		}
		update.PresentationData = model.Some(raw)
	}
	if input.CustomData.Set {
		raw, err := encodePayload(input.CustomData.Value)
		if err != nil {
			return nil, err
		}
		update.CustomData = model.Some(raw)
	}

	mapping, err := s.repo.Update(ctx, id, update)
	if err != nil {
		return nil, fmt.Errorf("update mapping: %w", err)
	}

	if !update.IsEmpty() {
		s.publish(ctx, model.EventMappingUpdated, mapping)
	}
	return mapping, nil
}

func (s *mappingService) DeleteMapping(ctx context.Context, id string) (bool, error) {
	mapping, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("load mapping: %w", err)
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete mapping: %w", err)
	}
	if deleted {
		s.publish(ctx, model.EventMappingDeleted, mapping)
	}
	return deleted, nil
}

func (s *mappingService) ListCategoryMappings(ctx context.Context) ([]MappingView, error) {
	mappings, err := s.repo.ListByCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("list presentation mappings: %w", err)
	}

	views := make([]MappingView, len(mappings))
	for i := range mappings {
		views[i] = s.view(&mappings[i])
	}
	return views, nil
}

// PrimeIDFilter loads every stored id into the generator's filter so fresh
// ids avoid known collisions after a restart.
func (s *mappingService) PrimeIDFilter(ctx context.Context) (int, error) {
	ids, err := s.repo.IDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("prime id filter: %w", err)
	}
	s.ids.Remember(ids...)
	return len(ids), nil
}

func (s *mappingService) view(mapping *model.Mapping) MappingView {
	presentation, err := decodePayload(mapping.PresentationData, map[string]any{})
	if err != nil {
		s.logger.Warn("unreadable presentation data", zap.String("id", mapping.ID), zap.Error(err))
	}
	custom, err := decodePayload(mapping.CustomData, nil)
	if err != nil {
		s.logger.Warn("unreadable custom data", zap.String("id", mapping.ID), zap.Error(err))
	}

	return MappingView{
		ID:               mapping.ID,
		URL:              mapping.URL,
		CreatedAt:        mapping.CreatedAt,
		ExpiresAt:        mapping.ExpiresAt,
		IsPresentation:   mapping.IsPresentation,
		PresentationData: presentation,
		CustomData:       custom,
	}
}

func (s *mappingService) publish(ctx context.Context, eventType string, mapping *model.Mapping) {
	event := model.MappingEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		MappingID: mapping.ID,
		URL:       mapping.URL,
		Timestamp: s.now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish mapping event",
			zap.String("type", eventType),
			zap.String("id", mapping.ID),
			zap.Error(err),
		)
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, model.MappingEvent) error { return nil }

type nopMetrics struct{}

func (nopMetrics) CreateOutcome(string)    {}
func (nopMetrics) ResolveOutcome(string)   {}
func (nopMetrics) SweepCompleted(int, int) {}
func (nopMetrics) SweepFailed()            {}
