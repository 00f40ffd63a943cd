package xid

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// New returns a prefixed opaque identifier such as "bill_3f2c9a...".
func New(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// BillNumber formats a human readable bill number from the sale time plus a
// short random suffix. Uniqueness is only practical; the store enforces it.
func BillNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("BILL-%s-%s", at.Format("20060102-150405"), suffix)
}
