// Package rotation implements the access key rotation sequence: create a
// replacement key, install it in the credentials file, wait for the new key
// to propagate, deactivate the superseded key, and delete it immediately or
// after a grace period.
package rotation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/systmms/bang/internal/awsiam"
	dserrors "github.com/systmms/bang/internal/errors"
	"github.com/systmms/bang/internal/logging"
	"github.com/systmms/bang/internal/rotation/storage"
	"github.com/systmms/bang/internal/secure"
)

// maxKeysPerUser is the identity service's access key quota per user.
const maxKeysPerUser = 2

// IdentityResolver resolves the caller's IAM user name when none is given.
type IdentityResolver interface {
	UserName(ctx context.Context) (string, error)
}

// CredentialsWriter installs a key pair under a named profile.
type CredentialsWriter interface {
	SetProfile(name, accessKeyID, secretAccessKey string) error
	Path() string
}

// ScheduleStore records keys awaiting deletion after their grace period.
type ScheduleStore interface {
	Save(pending *storage.PendingDeletion) error
	List() ([]storage.PendingDeletion, error)
	Remove(accessKeyID string) error
}

// Rotator orchestrates one rotation run. All collaborators are interfaces
// so tests run against in-memory fakes.
type Rotator struct {
	Keys        awsiam.KeyOperations
	Resolver    IdentityResolver
	Credentials CredentialsWriter
	Schedule    ScheduleStore
	Logger      *logging.Logger

	// PropagationDelay is how long to wait after installing the new key
	// before the old one is deactivated, so the service's replicas all
	// recognize the new key first.
	PropagationDelay time.Duration

	// Sleep and Now are injectable for tests. Nil means the real clock.
	Sleep func(d time.Duration)
	Now   func() time.Time
}

// Request describes one rotation.
type Request struct {
	// User is the IAM user to rotate. Empty means the caller's own user.
	User string
	// Profile is the credentials file section receiving the new key.
	Profile string
	// GracePeriodDays delays deletion of the old key; zero deletes it at
	// the end of the run.
	GracePeriodDays int
	// Force deactivates the oldest key first when the user is at the
	// two-key quota.
	Force bool
	// DryRun reports the plan without creating, writing, or deactivating
	// anything.
	DryRun bool
}

// Result reports what a rotation run did.
type Result struct {
	User               string
	NewKeyID           string
	DeactivatedKeyIDs  []string
	DeletedKeyIDs      []string
	ScheduledDeletions []storage.PendingDeletion
	DryRun             bool
}

func (r *Rotator) sleep(d time.Duration) {
	if r.Sleep != nil {
		r.Sleep(d)
		return
	}
	time.Sleep(d)
}

func (r *Rotator) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Rotate performs the full rotation sequence. Any failure before the
// credentials file write leaves the account untouched; a failure after the
// old key is deactivated is reported but the new key is already live.
func (r *Rotator) Rotate(ctx context.Context, req Request) (*Result, error) {
	user := req.User
	if user == "" {
		resolved, err := r.Resolver.UserName(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve identity: %w", err)
		}
		user = resolved
	}
	r.Logger.Info("Rotating access keys for user: %s", user)

	existing, err := r.listKeys(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("list access keys: %w", err)
	}

	if len(existing) >= maxKeysPerUser && !req.Force {
		return nil, dserrors.CapacityError{User: user, KeyCount: len(existing)}
	}

	result := &Result{User: user, DryRun: req.DryRun}
	if req.DryRun {
		return r.planOnly(req, user, existing, result), nil
	}

	// At the quota, the oldest key is deactivated up front so the new key
	// can be created under the active-key ceiling. Deliberately not a
	// delete: the key can be reactivated if the rotation goes wrong.
	if len(existing) >= maxKeysPerUser {
		oldest := existing[0]
		r.Logger.Warn("User is at the key quota; deactivating oldest key %s", logging.KeyID(oldest.id))
		if err := r.deactivate(ctx, user, oldest.id); err != nil {
			return nil, fmt.Errorf("deactivate oldest key: %w", err)
		}
	}

	newKeyID, secret, err := r.createKey(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("create access key: %w", err)
	}
	result.NewKeyID = newKeyID
	r.Logger.Info("New access key created: %s", newKeyID)

	if err := r.installKey(req.Profile, newKeyID, secret); err != nil {
		return result, fmt.Errorf("update credentials file: %w", err)
	}
	r.Logger.Info("Credentials file %s updated under profile '%s'", r.Credentials.Path(), req.Profile)

	r.Logger.Info("Waiting %s for the new key to propagate...", r.PropagationDelay)
	r.sleep(r.PropagationDelay)

	// Deactivate every pre-rotation key, then delete now or schedule
	// deletion depending on the grace period.
	for _, key := range existing {
		if key.status == types.StatusTypeActive {
			r.Logger.Info("Deactivating previous key: %s", logging.KeyID(key.id))
			if err := r.deactivate(ctx, user, key.id); err != nil {
				return result, fmt.Errorf("deactivate previous key %s (the new key %s is already active; re-run to finish): %w",
					key.id, newKeyID, err)
			}
		}
		result.DeactivatedKeyIDs = append(result.DeactivatedKeyIDs, key.id)

		if req.GracePeriodDays == 0 {
			r.Logger.Info("Deleting previous key: %s", logging.KeyID(key.id))
			if err := r.deleteKey(ctx, user, key.id); err != nil {
				return result, fmt.Errorf("delete previous key %s (the new key %s is already active; re-run `bang purge`): %w",
					key.id, newKeyID, err)
			}
			result.DeletedKeyIDs = append(result.DeletedKeyIDs, key.id)
			continue
		}

		pending := storage.PendingDeletion{
			User:          user,
			AccessKeyID:   key.id,
			Profile:       req.Profile,
			DeactivatedAt: r.now(),
			DeleteAfter:   r.now().AddDate(0, 0, req.GracePeriodDays),
		}
		if err := r.Schedule.Save(&pending); err != nil {
			return result, fmt.Errorf("record scheduled deletion for %s: %w", key.id, err)
		}
		result.ScheduledDeletions = append(result.ScheduledDeletions, pending)
		r.Logger.Info("Key %s will be deleted after %s (run `bang purge`, or: aws iam delete-access-key --access-key-id %s --user-name %s)",
			logging.KeyID(key.id), pending.DeleteAfter.Format("2006-01-02"), key.id, user)
	}

	r.Logger.Info("Access key rotation completed for %s", user)
	r.Logger.Info("New Access Key ID: %s — the secret key is in %s and cannot be retrieved again", newKeyID, r.Credentials.Path())
	return result, nil
}

func (r *Rotator) planOnly(req Request, user string, existing []keyInfo, result *Result) *Result {
	r.Logger.Info("[dry-run] would create a new access key for %s", user)
	r.Logger.Info("[dry-run] would install it under profile '%s' in %s", req.Profile, r.Credentials.Path())
	for _, key := range existing {
		result.DeactivatedKeyIDs = append(result.DeactivatedKeyIDs, key.id)
		if req.GracePeriodDays == 0 {
			r.Logger.Info("[dry-run] would deactivate and delete key %s", logging.KeyID(key.id))
		} else {
			r.Logger.Info("[dry-run] would deactivate key %s and delete it after %d days", logging.KeyID(key.id), req.GracePeriodDays)
		}
	}
	return result
}

// keyInfo is the slice of access key metadata the rotator works with.
type keyInfo struct {
	id        string
	status    types.StatusType
	createdAt time.Time
}

// listKeys returns the user's keys sorted oldest first.
func (r *Rotator) listKeys(ctx context.Context, user string) ([]keyInfo, error) {
	out, err := r.Keys.ListAccessKeys(ctx, &iam.ListAccessKeysInput{
		UserName: aws.String(user),
	})
	if err != nil {
		return nil, dserrors.IAMError("ListAccessKeys", err)
	}

	keys := make([]keyInfo, 0, len(out.AccessKeyMetadata))
	for _, md := range out.AccessKeyMetadata {
		keys = append(keys, keyInfo{
			id:        aws.ToString(md.AccessKeyId),
			status:    md.Status,
			createdAt: aws.ToTime(md.CreateDate),
		})
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].createdAt.Before(keys[j].createdAt)
	})
	return keys, nil
}

// createKey creates a new key and seals its secret in memory immediately.
func (r *Rotator) createKey(ctx context.Context, user string) (string, *secure.Enclave, error) {
	out, err := r.Keys.CreateAccessKey(ctx, &iam.CreateAccessKeyInput{
		UserName: aws.String(user),
	})
	if err != nil {
		return "", nil, dserrors.IAMError("CreateAccessKey", err)
	}
	keyID := aws.ToString(out.AccessKey.AccessKeyId)
	secret := secure.SealString(aws.ToString(out.AccessKey.SecretAccessKey))
	out.AccessKey.SecretAccessKey = nil
	return keyID, secret, nil
}

func (r *Rotator) installKey(profile, keyID string, secret *secure.Enclave) error {
	return secret.Use(func(plaintext []byte) error {
		return r.Credentials.SetProfile(profile, keyID, string(plaintext))
	})
}

func (r *Rotator) deactivate(ctx context.Context, user, keyID string) error {
	_, err := r.Keys.UpdateAccessKey(ctx, &iam.UpdateAccessKeyInput{
		UserName:    aws.String(user),
		AccessKeyId: aws.String(keyID),
		Status:      types.StatusTypeInactive,
	})
	if err != nil {
		return dserrors.IAMError("UpdateAccessKey", err)
	}
	return nil
}

func (r *Rotator) deleteKey(ctx context.Context, user, keyID string) error {
	_, err := r.Keys.DeleteAccessKey(ctx, &iam.DeleteAccessKeyInput{
		UserName:    aws.String(user),
		AccessKeyId: aws.String(keyID),
	})
	if err != nil {
		return dserrors.IAMError("DeleteAccessKey", err)
	}
	return nil
}
