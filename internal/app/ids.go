package app

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Buy orders and session ids must be unique across concurrent checkouts and fit
// Webpay's 26-character buy-order limit, so they combine a millisecond prefix
// with a truncated random suffix instead of a full UUID.
func newBuyOrder(now time.Time) string {
	return fmt.Sprintf("LM-%s-%s", strconv.FormatInt(now.UnixMilli(), 36), randomSuffix())
}

func newSessionID(now time.Time) string {
	return fmt.Sprintf("S-%s-%s", strconv.FormatInt(now.UnixMilli(), 36), randomSuffix())
}

func randomSuffix() string {
	id := uuid.New()
	return hex.EncodeToString(id[:4])
}
