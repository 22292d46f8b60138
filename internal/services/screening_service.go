package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"gigboard_backend/internal/algorithms"
	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/metrics"
	"gigboard_backend/internal/models"
	"gigboard_backend/internal/repositories"
	"gigboard_backend/internal/services/dto"
	"gigboard_backend/internal/types"
	"gigboard_backend/pkg/apperrors"
)

// ============================================
// SCREENING SERVICE
// ============================================

// ScreeningService прогоняет заявки через правила авто-скрининга.
// Результаты не сохраняются; apply_screening меняет только статус и feedback.
type ScreeningService interface {
	RunScreening(db *gorm.DB, reviewer Viewer, req *dto.RunScreeningRequest) (*dto.ScreeningRunResponse, error)
	ScreenApplication(db *gorm.DB, reviewer Viewer, applicationID string) (*algorithms.ScreeningResult, error)
}

type screeningService struct {
	appRepo     repositories.ApplicationRepository
	postingRepo repositories.JobPostingRepository
	screener    *algorithms.Screener
	now         func() time.Time
}

func NewScreeningService(
	appRepo repositories.ApplicationRepository,
	postingRepo repositories.JobPostingRepository,
	rules algorithms.ScreeningRules,
	now func() time.Time,
) ScreeningService {
	if now == nil {
		now = time.Now
	}
	return &screeningService{
		appRepo:     appRepo,
		postingRepo: postingRepo,
		screener:    algorithms.NewScreener(rules, now),
		now:         now,
	}
}

func (s *screeningService) RunScreening(db *gorm.DB, reviewer Viewer, req *dto.RunScreeningRequest) (*dto.ScreeningRunResponse, error) {
	filters := &types.ApplicationFilters{
		JobPostingID: req.JobPostingID,
		Status:       req.Status,
	}
	if reviewer.Role != models.UserRoleAdmin {
		filters.OwnerID = reviewer.UserID
	}

	apps, err := s.appRepo.List(db, filters)
	if err != nil {
		return nil, apperrors.ErrDatabase(err)
	}

	postings, err := s.postingRepo.FindByIDs(db, postingIDs(apps))
	if err != nil {
		return nil, apperrors.ErrDatabase(err)
	}

	results := s.screener.ScreenAll(apps, postings)

	resp := &dto.ScreeningRunResponse{
		Results: results,
		Summary: dto.ScreeningSummary{Total: len(results)},
	}
	for _, r := range results {
		metrics.ScreeningResults.WithLabelValues(metrics.ScreeningOutcome(r.Passed)).Inc()
		if r.Passed {
			resp.Summary.Passed++
		} else {
			resp.Summary.Failed++
		}
	}

	if req.ApplyScreening {
		updated, err := s.applyResults(db, reviewer, apps, results)
		if err != nil {
			return nil, err
		}
		resp.Summary.Updated = updated
	}

	logger.Info("screening run completed",
		"reviewer_id", reviewer.UserID,
		"total", resp.Summary.Total,
		"passed", resp.Summary.Passed,
		"failed", resp.Summary.Failed,
		"updated", resp.Summary.Updated,
	)
	return resp, nil
}

// applyResults переводит не прошедшие pending-заявки в reviewed; замечания пишутся в feedback
func (s *screeningService) applyResults(db *gorm.DB, reviewer Viewer, apps []models.JobApplication, results []algorithms.ScreeningResult) (int, error) {
	updated := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		for i, r := range results {
			if r.Passed || apps[i].Status != models.ApplicationStatusPending {
				continue
			}
			feedback := "Auto-screening: " + strings.Join(r.Issues, "; ")
			err := s.appRepo.UpdateStatus(tx, apps[i].ID, repositories.StatusUpdate{
				Status:         models.ApplicationStatusReviewed,
				Feedback:       &feedback,
				ReviewedBy:     reviewer.UserID,
				ReviewedAt:     s.now(),
				ExpectedStatus: models.ApplicationStatusPending,
			})
			// заявку успели отозвать или рассмотреть: не трогаем
			if errors.Is(err, repositories.ErrStatusChanged) {
				continue
			}
			if err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, apperrors.ErrDatabase(err)
	}
	return updated, nil
}

func (s *screeningService) ScreenApplication(db *gorm.DB, reviewer Viewer, applicationID string) (*algorithms.ScreeningResult, error) {
	app, err := s.appRepo.FindByID(db, applicationID)
	if err != nil {
		return nil, handleApplicationError(err)
	}
	if !canReview(reviewer, app) {
		return nil, apperrors.ErrApplicationNotFound
	}

	result := s.screener.Screen(app, app.JobPosting)
	metrics.ScreeningResults.WithLabelValues(metrics.ScreeningOutcome(result.Passed)).Inc()
	return &result, nil
}

// canReview - админ или владелец вакансии. Заявку без вакансии видит только админ.
func canReview(reviewer Viewer, app *models.JobApplication) bool {
	if reviewer.Role == models.UserRoleAdmin {
		return true
	}
	return app.JobPosting != nil && app.JobPosting.OwnerID == reviewer.UserID
}

func postingIDs(apps []models.JobApplication) []string {
	seen := make(map[string]struct{}, len(apps))
	ids := make([]string, 0, len(apps))
	for _, a := range apps {
		if _, ok := seen[a.JobPostingID]; ok || a.JobPostingID == "" {
			continue
		}
		seen[a.JobPostingID] = struct{}{}
		ids = append(ids, a.JobPostingID)
	}
	return ids
}

func handleApplicationError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrApplicationNotFound):
		return apperrors.ErrApplicationNotFound
	case errors.Is(err, repositories.ErrJobPostingNotFound):
		return apperrors.ErrJobPostingNotFound
	}
	return apperrors.ErrDatabase(err)
}
