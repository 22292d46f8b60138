package algorithms

import (
	"fmt"
	"strings"
	"time"

	"gigboard_backend/internal/models"
)

// Issue texts produced by the screening rules.
const (
	IssueMissingResume        = "Missing resume"
	IssueMissingCoverLetter   = "Missing cover letter"
	IssueMissingCertification = "Missing certification: %s"
	IssueAgeRequirement       = "Applicant does not meet age requirement (%d+)"
	IssueInvalidDateOfBirth   = "Invalid or missing date of birth"
	IssueSeniorExperience     = "Insufficient experience for senior role"
	IssueInvalidExperience    = "Invalid or missing experience_years"
	IssueEmploymentHistory    = "Insufficient employment history"
	IssueCriminalBackground   = "Criminal background disclosed"
	IssueFailedDrugTest       = "Failed drug test"
	IssueInvalidResponseValue = "Invalid value for %s"
)

const (
	recRequestResume        = "Request an up-to-date resume"
	recRequestCoverLetter   = "Ask the applicant for a cover letter"
	recVerifyCertifications = "Verify required certifications before scheduling"
	recAgeIneligible        = "Applicant is not eligible for this posting"
	recConfirmDateOfBirth   = "Confirm the applicant's date of birth"
	recConsiderJuniorRole   = "Consider the applicant for a mid-level role"
	recConfirmExperience    = "Confirm the applicant's years of experience"
	recRequestReferences    = "Request references or additional employment history"
	recBackgroundReview     = "Run a background review before proceeding"
	recDrugTestPolicy       = "Do not proceed without a passing drug test"
	recCorrectFormResponses = "Ask the applicant to correct their form responses"
)

// ScreeningResult is the outcome of screening one application. It is never persisted.
type ScreeningResult struct {
	ApplicationID   string   `json:"application_id"`
	ApplicantName   string   `json:"applicant_name,omitempty"`
	Passed          bool     `json:"passed"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

// NewScreeningResult derives Passed from the issue list so the two cannot disagree.
func NewScreeningResult(applicationID string, issues, recommendations []string) ScreeningResult {
	return ScreeningResult{
		ApplicationID:   applicationID,
		Passed:          len(issues) == 0,
		Issues:          append([]string{}, issues...),
		Recommendations: append([]string{}, recommendations...),
	}
}

type ScreeningRules struct {
	SeniorMinYears       float64
	MinPreviousEmployers int
}

func DefaultScreeningRules() ScreeningRules {
	return ScreeningRules{
		SeniorMinYears:       5,
		MinPreviousEmployers: 2,
	}
}

// Screener applies the auto-screening ruleset. It is stateless apart from
// its clock, so one instance can be shared.
type Screener struct {
	rules ScreeningRules
	now   func() time.Time
}

func NewScreener(rules ScreeningRules, now func() time.Time) *Screener {
	if now == nil {
		now = time.Now
	}
	if rules.SeniorMinYears <= 0 {
		rules.SeniorMinYears = DefaultScreeningRules().SeniorMinYears
	}
	if rules.MinPreviousEmployers <= 0 {
		rules.MinPreviousEmployers = DefaultScreeningRules().MinPreviousEmployers
	}
	return &Screener{rules: rules, now: now}
}

// ScreenAll screens applications in order. Postings are looked up by ID;
// an application whose posting is unknown gets no posting requirements.
func (s *Screener) ScreenAll(apps []models.JobApplication, postings map[string]*models.JobPosting) []ScreeningResult {
	results := make([]ScreeningResult, 0, len(apps))
	for i := range apps {
		results = append(results, s.Screen(&apps[i], postings[apps[i].JobPostingID]))
	}
	return results
}

// Screen runs the checks for one application. posting may be nil.
func (s *Screener) Screen(app *models.JobApplication, posting *models.JobPosting) ScreeningResult {
	f := newFindings()
	responses := ParseFormResponses(app.FormResponses)

	// 1. documents
	if !app.HasResume() {
		f.add(IssueMissingResume, recRequestResume)
	}
	if !app.HasCoverLetter() {
		f.add(IssueMissingCoverLetter, recRequestCoverLetter)
	}

	if posting != nil {
		// 2. certifications
		for _, cert := range posting.RequiredCertifications {
			if strings.TrimSpace(cert) == "" {
				continue
			}
			if !responses.Truthy(CertificationKey(cert)) {
				f.add(fmt.Sprintf(IssueMissingCertification, cert), recVerifyCertifications)
			}
		}

		// 3. age
		if posting.AgeRequirement != nil {
			if responses.DateOfBirth == nil {
				f.add(IssueInvalidDateOfBirth, recConfirmDateOfBirth)
			} else if AgeOn(*responses.DateOfBirth, s.now()) < *posting.AgeRequirement {
				f.add(fmt.Sprintf(IssueAgeRequirement, *posting.AgeRequirement), recAgeIneligible)
			}
		}

		// 4. experience
		if posting.ExperienceLevel == models.ExperienceLevelSenior {
			if responses.ExperienceYears == nil {
				f.add(IssueInvalidExperience, recConfirmExperience)
			} else if *responses.ExperienceYears < s.rules.SeniorMinYears {
				f.add(IssueSeniorExperience, recConsiderJuniorRole)
			}
		}
	}

	// 5. red flags
	if err := responses.Errors[FieldPreviousEmployers]; err != nil {
		f.add(fmt.Sprintf(IssueInvalidResponseValue, FieldPreviousEmployers), recCorrectFormResponses)
	} else if responses.Has(FieldPreviousEmployers) && len(responses.PreviousEmployers) < s.rules.MinPreviousEmployers {
		f.add(IssueEmploymentHistory, recRequestReferences)
	}

	if err := responses.Errors[FieldCriminalBackground]; err != nil {
		f.add(fmt.Sprintf(IssueInvalidResponseValue, FieldCriminalBackground), recCorrectFormResponses)
	} else if responses.CriminalBackground != nil && *responses.CriminalBackground == Yes {
		f.add(IssueCriminalBackground, recBackgroundReview)
	}

	if err := responses.Errors[FieldDrugTestResult]; err != nil {
		f.add(fmt.Sprintf(IssueInvalidResponseValue, FieldDrugTestResult), recCorrectFormResponses)
	} else if responses.DrugTestResult != nil && *responses.DrugTestResult == TestPositive {
		f.add(IssueFailedDrugTest, recDrugTestPolicy)
	}

	result := NewScreeningResult(app.ID, f.issues, f.recommendations)
	result.ApplicantName = app.ApplicantName
	return result
}

// CertificationKey maps a certification name to its form response key:
// "Food Handler Permit" -> "food_handler_permit". Every space becomes an
// underscore, repeated ones included, matching the keys the form builder emits.
func CertificationKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// AgeOn returns full years between dob and now, counting a birthday only
// once its month and day have been reached.
func AgeOn(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

type findings struct {
	issues          []string
	recommendations []string
	seen            map[string]bool
}

func newFindings() *findings {
	return &findings{seen: map[string]bool{}}
}

func (f *findings) add(issue, recommendation string) {
	f.issues = append(f.issues, issue)
	if !f.seen[recommendation] {
		f.seen[recommendation] = true
		f.recommendations = append(f.recommendations, recommendation)
	}
}
