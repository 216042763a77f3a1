package domain

import "strings"

// Content validation limits.
const (
	MinContentLength  = 10
	MaxContentLength  = 4000
	WarnContentLength = 2000
	MinWordCount      = 3
)

// ValidationOutcome is the result of validating content before a write.
// Derived solely from the input text.
type ValidationOutcome struct {
	IsValid   bool     `json:"is_valid"`
	Length    int      `json:"length"`
	WordCount int      `json:"word_count"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// ValidateContent checks text against all content rules. Every rule is
// evaluated independently so callers see all violations at once; warnings
// never block a write.
func ValidateContent(text string) ValidationOutcome {
	var errs, warnings []string

	if len(strings.TrimSpace(text)) < MinContentLength {
		errs = append(errs, "Content must be at least 10 characters long")
	}
	if len(text) > MaxContentLength {
		errs = append(errs, "Content cannot exceed 4000 characters")
	}
	if len(text) > WarnContentLength {
		warnings = append(warnings, "Very long content may affect search performance")
	}

	wordCount := len(strings.Fields(text))
	if wordCount < MinWordCount {
		errs = append(errs, "Content must contain at least 3 words")
	}

	return ValidationOutcome{
		IsValid:   len(errs) == 0,
		Length:    len(text),
		WordCount: wordCount,
		Errors:    errs,
		Warnings:  warnings,
	}
}
