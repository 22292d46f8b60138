package models

import "fmt"

type UserRole string
type ApplicationStatus string
type ExperienceLevel string

const (
	UserRoleArtist UserRole = "artist"
	UserRoleVenue  UserRole = "venue"
	UserRoleAdmin  UserRole = "admin"

	ApplicationStatusPending     ApplicationStatus = "pending"
	ApplicationStatusReviewed    ApplicationStatus = "reviewed"
	ApplicationStatusShortlisted ApplicationStatus = "shortlisted"
	ApplicationStatusApproved    ApplicationStatus = "approved"
	ApplicationStatusRejected    ApplicationStatus = "rejected"
	ApplicationStatusWithdrawn   ApplicationStatus = "withdrawn"

	ExperienceLevelAny    ExperienceLevel = "any"
	ExperienceLevelEntry  ExperienceLevel = "entry"
	ExperienceLevelMid    ExperienceLevel = "mid"
	ExperienceLevelSenior ExperienceLevel = "senior"
)

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleArtist, UserRoleVenue, UserRoleAdmin:
		return true
	}
	return false
}

func (s ApplicationStatus) IsValid() bool {
	switch s {
	case ApplicationStatusPending, ApplicationStatusReviewed, ApplicationStatusShortlisted,
		ApplicationStatusApproved, ApplicationStatusRejected, ApplicationStatusWithdrawn:
		return true
	}
	return false
}

// CanTransitionTo: withdrawn - терминальный статус, в него переводит только сам заявитель.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	if !next.IsValid() || s == ApplicationStatusWithdrawn || next == ApplicationStatusWithdrawn {
		return false
	}
	return true
}

func (l ExperienceLevel) IsValid() bool {
	switch l {
	case ExperienceLevelAny, ExperienceLevelEntry, ExperienceLevelMid, ExperienceLevelSenior:
		return true
	}
	return false
}

func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	status := ApplicationStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("unknown application status %q", s)
	}
	return status, nil
}
