package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// ApplicationCursor marks the last application of a page in createdAt desc,
// id desc order
type ApplicationCursor struct {
	CreatedAt     time.Time
	ApplicationID string
}

func DecodeApplicationCursor(cursorStr string) (*ApplicationCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	decodedParts := strings.SplitN(string(decoded), "|", 2)
	if len(decodedParts) != 2 || decodedParts[1] == "" {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var createdAt int64
	_, err = fmt.Sscanf(decodedParts[0], "%d", &createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid createdAt in cursor: %w", err)
	}

	return &ApplicationCursor{
		CreatedAt:     time.Unix(0, createdAt).UTC(),
		ApplicationID: decodedParts[1],
	}, nil
}

func EncodeApplicationCursor(cursor *ApplicationCursor) string {
	cs := fmt.Sprintf("%d|%s", cursor.CreatedAt.UnixNano(), cursor.ApplicationID)
	return base64.URLEncoding.EncodeToString([]byte(cs))
}

// after reports whether an item sorts strictly after the cursor
func (c *ApplicationCursor) after(createdAt time.Time, id string) bool {
	if !createdAt.Equal(c.CreatedAt) {
		return createdAt.Before(c.CreatedAt)
	}
	return id < c.ApplicationID
}

// paginate slices an already sorted list. key returns the sort key of an item.
func paginate[T any](items []T, cursor *ApplicationCursor, pageSize int, key func(T) (time.Time, string)) ([]T, string) {
	start := 0
	if cursor != nil {
		start = len(items)
		for i, item := range items {
			createdAt, id := key(item)
			if cursor.after(createdAt, id) {
				start = i
				break
			}
		}
	}

	items = items[start:]
	if len(items) <= pageSize {
		return items, ""
	}

	page := items[:pageSize]
	createdAt, id := key(page[len(page)-1])
	return page, EncodeApplicationCursor(&ApplicationCursor{CreatedAt: createdAt, ApplicationID: id})
}
