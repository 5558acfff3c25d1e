package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateBookingReference returns EHUT-YYYYMMDD-XXXXXXXX with a random suffix.
func GenerateBookingReference(now time.Time) string {
	return fmt.Sprintf("EHUT-%s-%s", now.Format("20060102"), randomSuffix(8))
}

// GenerateCardNumber returns a printable stored-value card number.
func GenerateCardNumber() string {
	return fmt.Sprintf("IHC-%s", randomSuffix(12))
}

func randomSuffix(n int) string {
	s := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return s[:n]
}
