package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/models"
	"gigboard_backend/internal/repositories"
	"gigboard_backend/internal/services/dto"
	"gigboard_backend/internal/types"
	"gigboard_backend/pkg/apperrors"
)

type ApplicationService interface {
	List(db *gorm.DB, reviewer Viewer, filters *types.ApplicationFilters) (*dto.ApplicationListResponse, error)
	UpdateStatus(db *gorm.DB, reviewer Viewer, applicationID string, req *dto.UpdateApplicationStatusRequest) (*models.JobApplication, error)
}

type applicationService struct {
	appRepo repositories.ApplicationRepository
	now     func() time.Time
}

func NewApplicationService(appRepo repositories.ApplicationRepository) ApplicationService {
	return &applicationService{appRepo: appRepo, now: time.Now}
}

func (s *applicationService) List(db *gorm.DB, reviewer Viewer, filters *types.ApplicationFilters) (*dto.ApplicationListResponse, error) {
	if filters == nil {
		filters = &types.ApplicationFilters{}
	}
	if reviewer.Role != models.UserRoleAdmin {
		filters.OwnerID = reviewer.UserID
	}

	apps, err := s.appRepo.List(db, filters)
	if err != nil {
		return nil, apperrors.ErrDatabase(err)
	}
	if apps == nil {
		apps = []models.JobApplication{}
	}
	return &dto.ApplicationListResponse{Items: apps, Total: len(apps)}, nil
}

func (s *applicationService) UpdateStatus(db *gorm.DB, reviewer Viewer, applicationID string, req *dto.UpdateApplicationStatusRequest) (*models.JobApplication, error) {
	next, err := models.ParseApplicationStatus(req.Status)
	if err != nil {
		return nil, apperrors.ErrInvalidStatus("application", err.Error())
	}

	app, err := s.appRepo.FindByID(db, applicationID)
	if err != nil {
		return nil, handleApplicationError(err)
	}
	if err := authorizeTransition(reviewer, app, next); err != nil {
		return nil, err
	}

	now := s.now()
	// пишем только если статус не сменился после чтения (отзыв, другой ревьюер)
	err = s.appRepo.UpdateStatus(db, app.ID, repositories.StatusUpdate{
		Status:         next,
		Feedback:       req.Feedback,
		ReviewedBy:     reviewer.UserID,
		ReviewedAt:     now,
		ExpectedStatus: app.Status,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrStatusChanged) {
			return nil, apperrors.ErrInvalidStatusTransition.WithDetails(map[string]string{
				"from": string(app.Status),
				"to":   string(next),
			})
		}
		return nil, handleApplicationError(err)
	}

	logger.Info("application status updated",
		"application_id", app.ID,
		"from", app.Status,
		"to", next,
		"reviewer_id", reviewer.UserID,
	)

	app.Status = next
	if req.Feedback != nil {
		app.Feedback = req.Feedback
	}
	reviewedBy := reviewer.UserID
	app.ReviewedBy = &reviewedBy
	app.ReviewedAt = &now
	app.UpdatedAt = now
	return app, nil
}

// authorizeTransition: ревьюер (владелец вакансии или админ) двигает заявку по
// статусам, заявитель может только отозвать свою заявку.
func authorizeTransition(viewer Viewer, app *models.JobApplication, next models.ApplicationStatus) error {
	isApplicant := viewer.UserID != "" && app.ApplicantID == viewer.UserID
	isReviewer := canReview(viewer, app)
	if !isApplicant && !isReviewer {
		return apperrors.ErrApplicationNotFound
	}

	var allowed bool
	if next == models.ApplicationStatusWithdrawn {
		allowed = isApplicant && app.Status != models.ApplicationStatusWithdrawn
	} else {
		allowed = isReviewer && app.Status.CanTransitionTo(next)
	}
	if !allowed {
		return apperrors.ErrInvalidStatusTransition.WithDetails(map[string]string{
			"from": string(app.Status),
			"to":   string(next),
		})
	}
	return nil
}
