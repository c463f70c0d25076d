package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/aluiziolira/go-patch-report/models"
)

// ValidateKb ensures a merged record carries the fields every export needs.
func ValidateKb(k *models.Kb) error {
	if k == nil {
		return fmt.Errorf("kb is nil")
	}
	if strings.TrimSpace(k.Kb) == "" {
		return fmt.Errorf("kb missing identifier")
	}
	if strings.ContainsAny(k.Kb, " \t\r\n") {
		return fmt.Errorf("kb identifier %q is not a single token", k.Kb)
	}
	if _, err := time.Parse(time.DateOnly, k.ReleaseDate); err != nil {
		return fmt.Errorf("kb %s has invalid release date %q", k.Kb, k.ReleaseDate)
	}
	return nil
}

// IsKbIdentifier reports whether an article name looks like a single KB
// token. Labels with embedded whitespace are not KBs.
func IsKbIdentifier(articleName string) bool {
	return articleName != "" && !strings.ContainsAny(articleName, " \t\r\n")
}

// ReleaseDay returns the ISO date prefix of an API timestamp.
func ReleaseDay(timestamp string) string {
	if len(timestamp) < 10 {
		return timestamp
	}
	return timestamp[:10]
}
