package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"gigboard_backend/internal/models"
	"gigboard_backend/internal/types"
)

var ErrMediaNotFound = errors.New("media not found")

const defaultListLimit = 50

type MediaRepository interface {
	Create(db *gorm.DB, media *models.Media) error
	FindByID(db *gorm.DB, id string) (*models.Media, error)
	FindByUser(db *gorm.DB, userID string, filters *types.MediaFilters) ([]*models.Media, int64, error)
	SoftDelete(db *gorm.DB, id string) error
	GetUserStorageUsage(db *gorm.DB, userID string) (int64, error)

	// Для фоновой очистки
	FindDeletedBefore(db *gorm.DB, before time.Time, limit int) ([]*models.Media, error)
	HardDelete(db *gorm.DB, id string) error
}

type MediaRepositoryImpl struct{}

func NewMediaRepository() MediaRepository {
	return &MediaRepositoryImpl{}
}

func (r *MediaRepositoryImpl) Create(db *gorm.DB, media *models.Media) error {
	return db.Create(media).Error
}

func (r *MediaRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.Media, error) {
	var media models.Media
	err := db.Where("id = ?", id).First(&media).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}
	return &media, nil
}

func (r *MediaRepositoryImpl) FindByUser(db *gorm.DB, userID string, filters *types.MediaFilters) ([]*models.Media, int64, error) {
	query := db.Model(&models.Media{}).Where("user_id = ?", userID)

	limit, offset := defaultListLimit, 0
	if filters != nil {
		if filters.Type != "" {
			query = query.Where("type = ?", filters.Type)
		}
		if filters.Usage != "" {
			query = query.Where("usage = ?", filters.Usage)
		}
		if filters.EntityType != "" {
			query = query.Where("entity_type = ?", filters.EntityType)
		}
		if filters.EntityID != "" {
			query = query.Where("entity_id = ?", filters.EntityID)
		}
		if filters.IsPublic != nil {
			query = query.Where("is_public = ?", *filters.IsPublic)
		}
		if filters.Limit > 0 {
			limit = filters.Limit
		}
		offset = filters.Offset
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []*models.Media
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&items).Error
	return items, total, err
}

func (r *MediaRepositoryImpl) SoftDelete(db *gorm.DB, id string) error {
	result := db.Where("id = ?", id).Delete(&models.Media{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMediaNotFound
	}
	return nil
}

// GetUserStorageUsage - сумма размеров не удалённых файлов пользователя
func (r *MediaRepositoryImpl) GetUserStorageUsage(db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.Model(&models.Media{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(size), 0)").
		Scan(&total).Error
	return total, err
}

func (r *MediaRepositoryImpl) FindDeletedBefore(db *gorm.DB, before time.Time, limit int) ([]*models.Media, error) {
	var items []*models.Media
	err := db.Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", before).
		Order("deleted_at ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *MediaRepositoryImpl) HardDelete(db *gorm.DB, id string) error {
	return db.Unscoped().Where("id = ?", id).Delete(&models.Media{}).Error
}
