package models

import (
	"gorm.io/datatypes"
)

// JobPosting - вакансия площадки/организатора с требованиями для авто-скрининга.
type JobPosting struct {
	BaseModel
	OwnerID                string                      `gorm:"type:uuid;not null;index" json:"owner_id"`
	Title                  string                      `gorm:"not null" json:"title"`
	Description            string                      `json:"description,omitempty"`
	RequiredCertifications datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"required_certifications"`
	AgeRequirement         *int                        `json:"age_requirement,omitempty"`
	ExperienceLevel        ExperienceLevel             `gorm:"type:varchar(16);default:'any'" json:"experience_level"`
	IsActive               bool                        `gorm:"default:true" json:"is_active"`
}
