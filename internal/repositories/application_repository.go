package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"gigboard_backend/internal/models"
	"gigboard_backend/internal/types"
)

var (
	ErrApplicationNotFound = errors.New("job application not found")
	ErrJobPostingNotFound  = errors.New("job posting not found")

	// ErrStatusChanged - статус заявки изменился после чтения (ExpectedStatus не совпал)
	ErrStatusChanged = errors.New("job application status changed concurrently")
)

// StatusUpdate - изменение статуса заявки ревьюером
type StatusUpdate struct {
	Status     models.ApplicationStatus
	Feedback   *string
	ReviewedBy string
	ReviewedAt time.Time
	// ExpectedStatus - статус, с которым заявку читали; пусто - без проверки
	ExpectedStatus models.ApplicationStatus
}

type ApplicationRepository interface {
	FindByID(db *gorm.DB, id string) (*models.JobApplication, error)
	List(db *gorm.DB, filters *types.ApplicationFilters) ([]models.JobApplication, error)
	UpdateStatus(db *gorm.DB, id string, update StatusUpdate) error
}

type JobPostingRepository interface {
	FindByID(db *gorm.DB, id string) (*models.JobPosting, error)
	FindByIDs(db *gorm.DB, ids []string) (map[string]*models.JobPosting, error)
}

type ApplicationRepositoryImpl struct{}

func NewApplicationRepository() ApplicationRepository {
	return &ApplicationRepositoryImpl{}
}

func (r *ApplicationRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.JobApplication, error) {
	var app models.JobApplication
	err := db.Preload("JobPosting").Where("id = ?", id).First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return &app, nil
}

func (r *ApplicationRepositoryImpl) List(db *gorm.DB, filters *types.ApplicationFilters) ([]models.JobApplication, error) {
	query := db.Model(&models.JobApplication{})

	if filters != nil {
		if filters.JobPostingID != "" {
			query = query.Where("job_posting_id = ?", filters.JobPostingID)
		}
		if filters.Status != "" {
			query = query.Where("status = ?", filters.Status)
		}
		if filters.OwnerID != "" {
			owned := db.Model(&models.JobPosting{}).Select("id").Where("owner_id = ?", filters.OwnerID)
			query = query.Where("job_posting_id IN (?)", owned)
		}
		if filters.Limit > 0 {
			query = query.Limit(filters.Limit)
		}
		if filters.Offset > 0 {
			query = query.Offset(filters.Offset)
		}
	}

	var apps []models.JobApplication
	err := query.Order("created_at ASC").Find(&apps).Error
	return apps, err
}

func (r *ApplicationRepositoryImpl) UpdateStatus(db *gorm.DB, id string, update StatusUpdate) error {
	fields := map[string]interface{}{
		"status":      update.Status,
		"reviewed_by": update.ReviewedBy,
		"reviewed_at": update.ReviewedAt,
		"updated_at":  update.ReviewedAt,
	}
	if update.Feedback != nil {
		fields["feedback"] = *update.Feedback
	}

	query := db.Model(&models.JobApplication{}).Where("id = ?", id)
	if update.ExpectedStatus != "" {
		query = query.Where("status = ?", update.ExpectedStatus)
	}

	result := query.Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if update.ExpectedStatus != "" {
			return ErrStatusChanged
		}
		return ErrApplicationNotFound
	}
	return nil
}

type JobPostingRepositoryImpl struct{}

func NewJobPostingRepository() JobPostingRepository {
	return &JobPostingRepositoryImpl{}
}

func (r *JobPostingRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.JobPosting, error) {
	var posting models.JobPosting
	err := db.Where("id = ?", id).First(&posting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobPostingNotFound
		}
		return nil, err
	}
	return &posting, nil
}

// FindByIDs - вакансии по ID; отсутствующие просто не попадают в карту
func (r *JobPostingRepositoryImpl) FindByIDs(db *gorm.DB, ids []string) (map[string]*models.JobPosting, error) {
	out := make(map[string]*models.JobPosting, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var postings []*models.JobPosting
	if err := db.Where("id IN ?", ids).Find(&postings).Error; err != nil {
		return nil, err
	}
	for _, p := range postings {
		out[p.ID] = p
	}
	return out, nil
}
