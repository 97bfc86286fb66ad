package contextapi

import "time"

// DefaultSweepInterval is how often a periodic decay sweep runs.
const DefaultSweepInterval = 24 * time.Hour

// DefaultPermanentThreshold is the priority at or above which an item
// survives decay even past its expiry.
const DefaultPermanentThreshold = 8

// Sweep removes items past ExpiresAt, except those at or above
// permanentThreshold priority, returning the surviving set. A
// zero-value ExpiresAt never expires.
func Sweep(items []*MemoryItem, now time.Time, permanentThreshold int) []*MemoryItem {
	survivors := make([]*MemoryItem, 0, len(items))
	for _, item := range items {
		if item.ExpiresAt.IsZero() || now.Before(item.ExpiresAt) {
			survivors = append(survivors, item)
			continue
		}
		if item.Priority >= permanentThreshold {
			survivors = append(survivors, item)
			continue
		}
	}
	return survivors
}
