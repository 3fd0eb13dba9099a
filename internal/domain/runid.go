package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewRunID mints a run identifier in the format
// RUN-YYYYMMDD-HHMMSS-{8-hex}, globally unique.
func NewRunID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("RUN-%s-%s", now.UTC().Format("20060102-150405"), suffix)
}

// SyntheticReference builds the fallback reference used when a row's
// reference is the "NA" sentinel, so inserts never collide on a missing
// reference: {name}-random_ref-{8-hex}.
func SyntheticReference(name string) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s-random_ref-%s", name, suffix)
}
