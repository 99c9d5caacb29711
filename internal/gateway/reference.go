package gateway

import (
	"crypto/rand"
	"strconv"
	"strings"
	"time"
)

const refAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewMerchantRef returns the idempotency reference sent to the aggregator
// with every outbound request. It is a base-36 millisecond timestamp plus a
// four character random suffix, which keeps it unique across concurrent
// callers within the same millisecond while staying inside the provider's
// 14 character field limit.
func NewMerchantRef() string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))

	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively unrecoverable; fall back to
		// nanosecond jitter so reference generation still returns.
		n := time.Now().UnixNano()
		for i := range buf {
			buf[i] = refAlphabet[n%int64(len(refAlphabet))]
			n /= int64(len(refAlphabet))
		}
		return ts + string(buf)
	}
	for i, b := range buf {
		buf[i] = refAlphabet[int(b)%len(refAlphabet)]
	}
	return ts + string(buf)
}
