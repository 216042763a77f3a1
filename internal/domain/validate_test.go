package domain

import (
	"strings"
	"testing"
)

func TestValidateContent_Valid(t *testing.T) {
	out := ValidateContent("A perfectly reasonable note about something useful")
	if !out.IsValid {
		t.Fatalf("expected valid, got errors: %v", out.Errors)
	}
	if len(out.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", out.Warnings)
	}
	if out.WordCount != 7 {
		t.Errorf("word count: got %d, want 7", out.WordCount)
	}
}

func TestValidateContent_TooShort(t *testing.T) {
	out := ValidateContent("short")
	if out.IsValid {
		t.Fatal("expected invalid")
	}
	// Both the length and the word-count rule fire independently.
	if len(out.Errors) != 2 {
		t.Errorf("expected 2 errors, got %v", out.Errors)
	}
}

func TestValidateContent_WhitespaceOnly(t *testing.T) {
	out := ValidateContent("          \t\n  ")
	if out.IsValid {
		t.Fatal("expected invalid")
	}
}

func TestValidateContent_WhitespacePadding_NotCountedTowardMinimum(t *testing.T) {
	// Trimmed length is below the minimum even though the raw string is long.
	out := ValidateContent("     a b c     ")
	if out.IsValid {
		t.Fatal("expected invalid: padding must not satisfy the length rule")
	}
}

func TestValidateContent_TooLong(t *testing.T) {
	out := ValidateContent(strings.Repeat("a", MaxContentLength+1))
	if out.IsValid {
		t.Fatal("expected invalid")
	}
}

func TestValidateContent_LongContentWarning(t *testing.T) {
	text := strings.Repeat("word ", 500) // 2500 chars, valid but warned
	out := ValidateContent(text)
	if !out.IsValid {
		t.Fatalf("expected valid, got errors: %v", out.Errors)
	}
	if len(out.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", out.Warnings)
	}
}

func TestValidateContent_TooFewWords(t *testing.T) {
	out := ValidateContent("singleword1234")
	if out.IsValid {
		t.Fatal("expected invalid")
	}
	found := false
	for _, e := range out.Errors {
		if e == "Content must contain at least 3 words" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected word-count error, got %v", out.Errors)
	}
}

func TestValidateContent_AllViolationsReported(t *testing.T) {
	out := ValidateContent("ab")
	if len(out.Errors) < 2 {
		t.Errorf("expected every violated rule reported, got %v", out.Errors)
	}
}
