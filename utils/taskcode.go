package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateTaskCode produces a human-facing task code such as
// "T250831-3F9A2C". The date prefix keeps codes roughly ordered by
// creation day; the random suffix makes concurrent creation
// collision-resistant. The task_code column additionally carries a
// unique index as a backstop.
func GenerateTaskCode() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("T%s-%s", time.Now().Format("060102"), suffix)
}

var phoneSeparators = regexp.MustCompile(`[\s-]`)

// NormalizePhone strips spaces and dashes so that phone numbers compare
// consistently. Customers are deduplicated on the normalized value.
func NormalizePhone(phone string) string {
	return phoneSeparators.ReplaceAllString(phone, "")
}
