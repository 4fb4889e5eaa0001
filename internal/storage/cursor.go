package storage

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MosinFAM/synapse/internal/models"
)

// Feed cursors look like "createdAt::id" with createdAt in unix millis.
func encodeCursor(p models.Post) string {
	return fmt.Sprintf("%d::%s", p.CreatedAt.UnixMilli(), p.ID)
}

func parseCursor(cursor string) (time.Time, string, error) {
	parts := strings.SplitN(cursor, "::", 2)
	if len(parts) != 2 || parts[1] == "" {
		return time.Time{}, "", fmt.Errorf("%w: cursor must be in format 'timestamp::id'", ErrInvalid)
	}
	millis, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: invalid timestamp in cursor: %v", ErrInvalid, err)
	}
	return time.UnixMilli(millis).UTC(), parts[1], nil
}

// postBefore reports whether a sorts ahead of (is newer than) b in the feed.
func postBefore(a, b models.Post) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func afterCursor(p models.Post, at time.Time, id string) bool {
	if !p.CreatedAt.Equal(at) {
		return p.CreatedAt.Before(at)
	}
	return p.ID < id
}

// timestamp is now, truncated to cursor precision.
func timestamp() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func normalizeLimit(limit, fallback, max int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)
