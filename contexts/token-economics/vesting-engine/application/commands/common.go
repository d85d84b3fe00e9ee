package commands

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"tokenvest/contexts/token-economics/vesting-engine/ports"
)

const defaultIdempotencyTTL = 7 * 24 * time.Hour

func resolveNow(clock ports.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now().UTC()
}

func resolveIdempotencyTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return defaultIdempotencyTTL
	}
	return ttl
}

func hashRequest(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
