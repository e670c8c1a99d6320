package utils

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// upperAlnum keeps the first n ASCII letters and digits of s, upper-cased.
func upperAlnum(s string, n int) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if b.Len() == n {
			break
		}
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SKU derives a product code: 4 characters of the category name, 3 of the
// product name and a millisecond timestamp, e.g. ELEC-WID-1718000000000.
func SKU(categoryName, productName string, at time.Time) string {
	prefix := upperAlnum(categoryName, 4)
	if prefix == "" {
		prefix = "GEN"
	}
	frag := upperAlnum(productName, 3)
	if frag == "" {
		frag = "PRD"
	}
	return fmt.Sprintf("%s-%s-%d", prefix, frag, at.UnixMilli())
}

// TrackingNumber formats DEL-YYYYMMDD-<order>-<user>-<suffix>.
func TrackingNumber(orderCreated time.Time, orderID, userID uint64, suffix string) string {
	return fmt.Sprintf("DEL-%s-%04d-%04d-%s", orderCreated.UTC().Format("20060102"), orderID, userID, suffix)
}

// RandomSuffix returns n upper-case hexadecimal characters taken from a
// random UUID.  n is capped at 32.
func RandomSuffix(n int) string {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(s) {
		n = len(s)
	}
	return strings.ToUpper(s[:n])
}

// AddWeekdays moves t forward by n working days, skipping Saturdays and
// Sundays.
func AddWeekdays(t time.Time, n int) time.Time {
	for n > 0 {
		t = t.AddDate(0, 0, 1)
		if wd := t.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n--
		}
	}
	return t
}
