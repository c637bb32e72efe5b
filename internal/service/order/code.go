package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CodeGenerator produces customer-facing order codes.
type CodeGenerator func(now time.Time) string

// NewOrderCode returns ORD-<epoch millis>-<8 hex chars>. The random suffix
// keeps codes distinct when two orders land in the same millisecond; the
// unique index on orders.order_code is the final guard.
func NewOrderCode(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix)
}
