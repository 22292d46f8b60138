package dto

import (
	"gigboard_backend/internal/algorithms"
	"gigboard_backend/internal/models"
)

// RunScreeningRequest - фильтр заявок для авто-скрининга
type RunScreeningRequest struct {
	JobPostingID string `json:"job_posting_id" validate:"omitempty,uuid"`
	Status       string `json:"status" validate:"omitempty,is-application-status"`
	// ApplyScreening переводит не прошедшие pending-заявки в reviewed с замечаниями в feedback
	ApplyScreening bool `json:"apply_screening"`
}

type ScreeningSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Updated int `json:"updated"`
}

type ScreeningRunResponse struct {
	Results []algorithms.ScreeningResult `json:"results"`
	Summary ScreeningSummary             `json:"summary"`
}

// UpdateApplicationStatusRequest - PATCH /applications/:id/status
type UpdateApplicationStatusRequest struct {
	Status   string  `json:"status" validate:"required,is-application-status"`
	Feedback *string `json:"feedback" validate:"omitempty,max=5000"`
}

type ApplicationListResponse struct {
	Items []models.JobApplication `json:"items"`
	Total int                     `json:"total"`
}
