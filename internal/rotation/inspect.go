package rotation

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/iam/types"
)

// KeyStatus describes one access key for `bang status`, combined with any
// scheduled deletion recorded by a previous rotation.
type KeyStatus struct {
	AccessKeyID string
	Active      bool
	CreatedAt   time.Time
	// DeleteAfter is non-nil when the key is scheduled for deletion.
	DeleteAfter *time.Time
}

// Inspect lists the user's keys, oldest first, merged with the local
// deletion schedule. An empty user means the caller's own user.
func (r *Rotator) Inspect(ctx context.Context, user string) (string, []KeyStatus, error) {
	if user == "" {
		resolved, err := r.Resolver.UserName(ctx)
		if err != nil {
			return "", nil, fmt.Errorf("resolve identity: %w", err)
		}
		user = resolved
	}

	keys, err := r.listKeys(ctx, user)
	if err != nil {
		return "", nil, fmt.Errorf("list access keys: %w", err)
	}

	pending, err := r.Schedule.List()
	if err != nil {
		return "", nil, fmt.Errorf("read deletion schedule: %w", err)
	}
	deleteAfter := make(map[string]time.Time, len(pending))
	for _, p := range pending {
		deleteAfter[p.AccessKeyID] = p.DeleteAfter
	}

	statuses := make([]KeyStatus, 0, len(keys))
	for _, key := range keys {
		status := KeyStatus{
			AccessKeyID: key.id,
			Active:      key.status == types.StatusTypeActive,
			CreatedAt:   key.createdAt,
		}
		if due, ok := deleteAfter[key.id]; ok {
			due := due
			status.DeleteAfter = &due
		}
		statuses = append(statuses, status)
	}
	return user, statuses, nil
}
