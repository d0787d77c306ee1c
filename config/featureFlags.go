package config

import (
	"os"
	"strings"
	"time"
)

// DeletionCheckboxSuffices relaxes the confirmation requirement: when true,
// ticking the "I understand" checkbox is accepted in place of typing CONFIRM.
//
// Set via env:
// - DELETION_CHECKBOX_SUFFICES=true
func DeletionCheckboxSuffices() bool {
	return BoolFromEnv("DELETION_CHECKBOX_SUFFICES")
}

// BoolFromEnv treats 1/true/yes/y/on (case-insensitive) as true.
func BoolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

// IntFromEnv reads an integer env var with a fallback default.
func IntFromEnv(key string, def int) int {
	return intFromEnv(key, def)
}

// PreviewTokenTTL is how long an issued deletion preview token stays valid.
//
// Set via env:
// - PREVIEW_TOKEN_TTL_SECONDS (default 900)
func PreviewTokenTTL() time.Duration {
	secs := intFromEnv("PREVIEW_TOKEN_TTL_SECONDS", 900)
	if secs <= 0 {
		secs = 900
	}
	return time.Duration(secs) * time.Second
}
