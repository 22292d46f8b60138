package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

type JobApplication struct {
	BaseModel
	JobPostingID   string            `gorm:"type:uuid;not null;index" json:"job_posting_id"`
	ApplicantID    string            `gorm:"type:uuid;index" json:"applicant_id"`
	ApplicantName  string            `json:"applicant_name"`
	ApplicantEmail string            `json:"applicant_email"`
	Status         ApplicationStatus `gorm:"type:varchar(16);default:'pending';index" json:"status"`
	FormResponses  datatypes.JSONMap `gorm:"type:jsonb" json:"form_responses"`
	ResumeURL      *string           `json:"resume_url,omitempty"`
	CoverLetter    *string           `json:"cover_letter,omitempty"`
	Feedback       *string           `json:"feedback,omitempty"`
	ReviewedBy     *string           `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time        `json:"reviewed_at,omitempty"`

	JobPosting *JobPosting `gorm:"foreignKey:JobPostingID" json:"-"`
}

func (a *JobApplication) HasResume() bool {
	return a.ResumeURL != nil && strings.TrimSpace(*a.ResumeURL) != ""
}

func (a *JobApplication) HasCoverLetter() bool {
	return a.CoverLetter != nil && strings.TrimSpace(*a.CoverLetter) != ""
}
