package middleware

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var ownerPattern = regexp.MustCompile(`^[a-zA-Z0-9_.@:-]{1,128}$`)

// ValidateOwnerID accepts the subject formats issued by the identity service.
func ValidateOwnerID(owner string) error {
	if owner == "" {
		return fmt.Errorf("owner ID cannot be empty")
	}
	if !ownerPattern.MatchString(owner) {
		return fmt.Errorf("invalid owner ID format")
	}
	return nil
}

// ValidateAnimalID is optional; empty means "no animal".
func ValidateAnimalID(id string) error {
	if id == "" {
		return nil
	}
	if !ownerPattern.MatchString(id) {
		return fmt.Errorf("invalid animal_id format")
	}
	return nil
}

// ValidateRecordID requires a UUID.
func ValidateRecordID(id string) error {
	if id == "" {
		return fmt.Errorf("analysis ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid analysis ID format")
	}
	return nil
}

// ParsePage reads a positive integer query value; junk falls back to def.
func ParsePage(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}
