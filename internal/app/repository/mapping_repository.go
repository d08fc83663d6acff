package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sifan077/QRHub/internal/app/expiry"
	"github.com/sifan077/QRHub/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrMappingNotFound signals that the requested mapping does not exist.
	ErrMappingNotFound = errors.New("mapping not found")
	// ErrMappingExists signals that the id is already taken.
	ErrMappingExists = errors.New("mapping id already exists")
	// ErrStorage wraps every fault raised by the underlying database.
	ErrStorage = errors.New("storage failure")
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

// MappingRepository defines the data access contract for mappings.
type MappingRepository interface {
	Create(ctx context.Context, mapping *model.Mapping) error
	GetByID(ctx context.Context, id string) (*model.Mapping, error)
	ListPage(ctx context.Context, page, limit int) (*model.MappingPage, error)
	Update(ctx context.Context, id string, update model.MappingUpdate) (*model.Mapping, error)
	Delete(ctx context.Context, id string) (bool, error)
	ListExpired(ctx context.Context, now time.Time) ([]model.Mapping, error)
	ListExpiringSoon(ctx context.Context, now time.Time, windowDays int) ([]model.Mapping, error)
	ListByCategory(ctx context.Context) ([]model.Mapping, error)
	IDs(ctx context.Context) ([]string, error)
}

type mappingRepository struct {
	db *gorm.DB
}

// NewMappingRepository returns a GORM-backed MappingRepository.
func NewMappingRepository(db *gorm.DB) MappingRepository {
	return &mappingRepository{db: db}
}

// Create inserts the mapping. The primary key constraint is the only
// uniqueness check; no lookup precedes the insert.
func (r *mappingRepository) Create(ctx context.Context, mapping *model.Mapping) error {
	if err := r.db.WithContext(ctx).Create(mapping).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrMappingExists
		}
		return storageError("create mapping", err)
	}
	return nil
}

func (r *mappingRepository) GetByID(ctx context.Context, id string) (*model.Mapping, error) {
	var mapping model.Mapping
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&mapping).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMappingNotFound
		}
		return nil, storageError("get mapping", err)
	}
	return &mapping, nil
}

func (r *mappingRepository) ListPage(ctx context.Context, page, limit int) (*model.MappingPage, error) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Mapping{}).Count(&total).Error; err != nil {
		return nil, storageError("count mappings", err)
	}

	items := make([]model.Mapping, 0, limit)
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&items).Error; err != nil {
		return nil, storageError("list mappings", err)
	}

	return &model.MappingPage{
		Items: items,
		Pagination: model.Pagination{
			Total: total,
			Page:  page,
			Limit: limit,
			Pages: int((total + int64(limit) - 1) / int64(limit)),
		},
	}, nil
}

// Update writes only the columns present in update and returns the stored
// row afterwards. An empty update returns the current row untouched.
func (r *mappingRepository) Update(ctx context.Context, id string, update model.MappingUpdate) (*model.Mapping, error) {
	cols := update.Columns()
	if len(cols) == 0 {
		return r.GetByID(ctx, id)
	}

	result := r.db.WithContext(ctx).
		Model(&model.Mapping{}).
		Where("id = ?", id).
		Updates(cols)

	if result.Error != nil {
		return nil, storageError("update mapping", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrMappingNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *mappingRepository) Delete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Mapping{})
	if result.Error != nil {
		return false, storageError("delete mapping", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *mappingRepository) ListExpired(ctx context.Context, now time.Time) ([]model.Mapping, error) {
	var result []model.Mapping
	if err := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", now.UnixMilli()).
		Order("expires_at ASC").
		Find(&result).Error; err != nil {
		return nil, storageError("list expired mappings", err)
	}
	return result, nil
}

func (r *mappingRepository) ListExpiringSoon(ctx context.Context, now time.Time, windowDays int) ([]model.Mapping, error) {
	from := now.UnixMilli()
	to := from + int64(windowDays)*expiry.DayMillis

	var result []model.Mapping
	if err := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at BETWEEN ? AND ?", from, to).
		Order("expires_at ASC").
		Find(&result).Error; err != nil {
		return nil, storageError("list expiring mappings", err)
	}
	return result, nil
}

func (r *mappingRepository) ListByCategory(ctx context.Context) ([]model.Mapping, error) {
	var result []model.Mapping
	if err := r.db.WithContext(ctx).
		Where("is_presentation = ?", true).
		Order("created_at DESC").
		Find(&result).Error; err != nil {
		return nil, storageError("list presentation mappings", err)
	}
	return result, nil
}

func (r *mappingRepository) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&model.Mapping{}).Pluck("id", &ids).Error; err != nil {
		return nil, storageError("list mapping ids", err)
	}
	return ids, nil
}

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// isDuplicateKey recognises unique violations from either driver, with or
// without gorm's error translation enabled.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
