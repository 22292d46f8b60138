package algorithms

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Form response keys read by the screening rules.
const (
	FieldDateOfBirth        = "date_of_birth"
	FieldExperienceYears    = "experience_years"
	FieldPreviousEmployers  = "previous_employers"
	FieldCriminalBackground = "criminal_background"
	FieldDrugTestResult     = "drug_test_result"
)

type YesNo string

const (
	Yes YesNo = "yes"
	No  YesNo = "no"
)

type TestResult string

const (
	TestPositive TestResult = "positive"
	TestNegative TestResult = "negative"
	TestPending  TestResult = "pending"
)

var errMissing = errors.New("missing")

// FormResponses is the typed view over an application's free-form answers.
// Fields that were absent stay nil; fields that failed to parse are
// recorded in Errors and also stay nil.
type FormResponses struct {
	raw map[string]any

	DateOfBirth        *time.Time
	ExperienceYears    *float64
	PreviousEmployers  []string
	CriminalBackground *YesNo
	DrugTestResult     *TestResult

	Errors map[string]error
}

type fieldParser func(r *FormResponses, v any) error

var fieldParsers = map[string]fieldParser{
	FieldDateOfBirth: func(r *FormResponses, v any) error {
		t, err := parseDate(v)
		if err == nil {
			r.DateOfBirth = &t
		}
		return err
	},
	FieldExperienceYears: func(r *FormResponses, v any) error {
		n, err := parseNonNegative(v)
		if err == nil {
			r.ExperienceYears = &n
		}
		return err
	},
	FieldPreviousEmployers: func(r *FormResponses, v any) error {
		list, err := parseLines(v)
		if err == nil {
			r.PreviousEmployers = list
		}
		return err
	},
	FieldCriminalBackground: func(r *FormResponses, v any) error {
		yn, err := parseYesNo(v)
		if err == nil {
			r.CriminalBackground = &yn
		}
		return err
	},
	FieldDrugTestResult: func(r *FormResponses, v any) error {
		tr, err := parseTestResult(v)
		if err == nil {
			r.DrugTestResult = &tr
		}
		return err
	},
}

// ParseFormResponses runs every known key through its parser. Unknown keys
// are kept in the raw map (certifications are looked up there).
func ParseFormResponses(raw map[string]any) *FormResponses {
	r := &FormResponses{raw: raw, Errors: map[string]error{}}
	for key, parse := range fieldParsers {
		v, ok := raw[key]
		if !ok || isBlank(v) {
			continue
		}
		if err := parse(r, v); err != nil {
			r.Errors[key] = err
		}
	}
	return r
}

// Has reports whether the key is present with a non-empty value.
func (r *FormResponses) Has(key string) bool {
	v, ok := r.raw[key]
	return ok && !isBlank(v)
}

// Err returns the parse error for key, errMissing if it is absent, nil otherwise.
func (r *FormResponses) Err(key string) error {
	if err, ok := r.Errors[key]; ok {
		return err
	}
	if !r.Has(key) {
		return errMissing
	}
	return nil
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case bool:
		// false is a real answer for a yes/no or certification checkbox
		return false
	}
	return false
}

func parseDate(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("expected date string, got %T", v)
	}
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func parseNonNegative(v any) (float64, error) {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", t)
		}
		n = f
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return 0, fmt.Errorf("out of range: %v", n)
	}
	return n, nil
}

// parseLines accepts a newline-delimited string or a JSON array of strings
// and drops empty entries.
func parseLines(v any) ([]string, error) {
	var parts []string
	switch t := v.(type) {
	case string:
		parts = strings.Split(strings.ReplaceAll(t, "\r\n", "\n"), "\n")
	case []any:
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected list of strings, got %T item", item)
			}
			parts = append(parts, s)
		}
	case []string:
		parts = t
	default:
		return nil, fmt.Errorf("expected text or list, got %T", v)
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

func parseYesNo(v any) (YesNo, error) {
	switch t := v.(type) {
	case bool:
		if t {
			return Yes, nil
		}
		return No, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "y", "true":
			return Yes, nil
		case "no", "n", "false":
			return No, nil
		}
		return "", fmt.Errorf("expected yes or no, got %q", t)
	}
	return "", fmt.Errorf("expected yes or no, got %T", v)
}

func parseTestResult(v any) (TestResult, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected test result string, got %T", v)
	}
	switch tr := TestResult(strings.ToLower(strings.TrimSpace(s))); tr {
	case TestPositive, TestNegative, TestPending:
		return tr, nil
	}
	return "", fmt.Errorf("unknown test result %q", s)
}

// Truthy reports whether key holds an affirmative answer: any non-blank
// string, true, or a non-zero number.
func (r *FormResponses) Truthy(key string) bool {
	v, ok := r.raw[key]
	if !ok {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return strings.TrimSpace(t) != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	}
	return true
}
