package rotation

import (
	"context"
	"fmt"
	"strings"

	"github.com/systmms/bang/internal/logging"
	"github.com/systmms/bang/internal/rotation/storage"
)

// PurgeRequest selects which scheduled deletions to execute.
type PurgeRequest struct {
	// User restricts the purge to one IAM user. Empty means every user
	// with a recorded schedule.
	User string
	// All deletes scheduled keys even when their grace period has not
	// elapsed yet.
	All bool
	// DryRun reports what would be deleted without deleting anything.
	DryRun bool
}

// PurgeResult reports the outcome of a purge run.
type PurgeResult struct {
	DeletedKeyIDs []string
	Remaining     []storage.PendingDeletion
	DryRun        bool
}

// Purge deletes keys whose recorded grace period has elapsed and drops
// their schedule records. Only keys this tool deactivated are considered;
// keys deactivated by other means are never touched.
func (r *Rotator) Purge(ctx context.Context, req PurgeRequest) (*PurgeResult, error) {
	pending, err := r.Schedule.List()
	if err != nil {
		return nil, fmt.Errorf("read deletion schedule: %w", err)
	}

	result := &PurgeResult{DryRun: req.DryRun}
	now := r.now()

	for _, p := range pending {
		if req.User != "" && p.User != req.User {
			result.Remaining = append(result.Remaining, p)
			continue
		}
		if !req.All && now.Before(p.DeleteAfter) {
			r.Logger.Debug("Key %s not due until %s", logging.KeyID(p.AccessKeyID), p.DeleteAfter.Format("2006-01-02"))
			result.Remaining = append(result.Remaining, p)
			continue
		}

		if req.DryRun {
			r.Logger.Info("[dry-run] would delete key %s (user %s)", logging.KeyID(p.AccessKeyID), p.User)
			result.DeletedKeyIDs = append(result.DeletedKeyIDs, p.AccessKeyID)
			continue
		}

		if err := r.deleteKey(ctx, p.User, p.AccessKeyID); err != nil {
			// A key already deleted out-of-band just needs its record
			// cleaned up.
			if strings.Contains(err.Error(), "NoSuchEntity") {
				r.Logger.Warn("Key %s was already deleted; dropping its record", logging.KeyID(p.AccessKeyID))
			} else {
				result.Remaining = append(result.Remaining, p)
				r.Logger.Error("Failed to delete key %s: %v", logging.KeyID(p.AccessKeyID), err)
				continue
			}
		} else {
			r.Logger.Info("Deleted key %s (deactivated %s)", logging.KeyID(p.AccessKeyID), p.DeactivatedAt.Format("2006-01-02"))
			result.DeletedKeyIDs = append(result.DeletedKeyIDs, p.AccessKeyID)
		}

		if err := r.Schedule.Remove(p.AccessKeyID); err != nil {
			return result, fmt.Errorf("remove schedule record for %s: %w", p.AccessKeyID, err)
		}
	}

	if len(result.DeletedKeyIDs) == 0 && len(result.Remaining) == 0 {
		r.Logger.Info("No scheduled deletions")
	}
	return result, nil
}
