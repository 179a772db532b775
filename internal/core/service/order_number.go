package service

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/food-truck-pos/internal/core/domain"
)

// OrderNumberFunc generates a human-facing order number.
type OrderNumberFunc func(source domain.OrderSource, now time.Time) string

// NewOrderNumber returns PREFIX-NNNNNN-XXXXXXXXXX: the low six digits of the
// epoch millis followed by 40 random bits from a v4 UUID.
func NewOrderNumber(source domain.OrderSource, now time.Time) string {
	id := uuid.New()
	suffix := strings.ToUpper(hex.EncodeToString(id[:5]))
	return fmt.Sprintf("%s-%06d-%s", source, now.UnixMilli()%1_000_000, suffix)
}
