// Package awsiamtest provides in-memory fakes for the awsiam interfaces.
// The fakes model a per-user key list with the IAM two-key quota and allow
// per-operation error injection and call recording.
package awsiamtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// FakeKey is one access key held by the fake service.
type FakeKey struct {
	ID        string
	Secret    string
	Status    types.StatusType
	CreatedAt time.Time
}

// FakeIAM implements awsiam.KeyOperations and awsiam.UserOperations over an
// in-memory key table.
type FakeIAM struct {
	mu sync.Mutex

	// KeysByUser maps user name to that user's keys, oldest first.
	KeysByUser map[string][]FakeKey
	// CurrentUser is returned by GetUser.
	CurrentUser string
	// Errors maps an operation name (ListAccessKeys, CreateAccessKey,
	// UpdateAccessKey, DeleteAccessKey, GetUser) to an error to return.
	Errors map[string]error
	// Calls records operation names in invocation order.
	Calls []string

	// CreateAccessKeyFunc overrides CreateAccessKey when set.
	CreateAccessKeyFunc func(ctx context.Context, params *iam.CreateAccessKeyInput) (*iam.CreateAccessKeyOutput, error)

	nextKey int
}

// NewFakeIAM creates an empty fake IAM service.
func NewFakeIAM(currentUser string) *FakeIAM {
	return &FakeIAM{
		KeysByUser:  make(map[string][]FakeKey),
		CurrentUser: currentUser,
		Errors:      make(map[string]error),
	}
}

// AddKey seeds a key for a user.
func (f *FakeIAM) AddKey(user, id string, status types.StatusType, createdAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.KeysByUser[user] = append(f.KeysByUser[user], FakeKey{
		ID:        id,
		Secret:    "secret-for-" + id,
		Status:    status,
		CreatedAt: createdAt,
	})
}

// Key returns the key with the given id and whether it exists.
func (f *FakeIAM) Key(user, id string) (FakeKey, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range f.KeysByUser[user] {
		if k.ID == id {
			return k, true
		}
	}
	return FakeKey{}, false
}

func (f *FakeIAM) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, op)
	return f.Errors[op]
}

// ListAccessKeys returns the user's key metadata, oldest first.
func (f *FakeIAM) ListAccessKeys(ctx context.Context, params *iam.ListAccessKeysInput, optFns ...func(*iam.Options)) (*iam.ListAccessKeysOutput, error) {
	if err := f.record("ListAccessKeys"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	user := aws.ToString(params.UserName)
	var metadata []types.AccessKeyMetadata
	for _, k := range f.KeysByUser[user] {
		k := k
		metadata = append(metadata, types.AccessKeyMetadata{
			AccessKeyId: aws.String(k.ID),
			CreateDate:  aws.Time(k.CreatedAt),
			Status:      k.Status,
			UserName:    aws.String(user),
		})
	}
	return &iam.ListAccessKeysOutput{AccessKeyMetadata: metadata}, nil
}

// CreateAccessKey creates a new active key, rejecting the request when the
// user already holds two active keys.
func (f *FakeIAM) CreateAccessKey(ctx context.Context, params *iam.CreateAccessKeyInput, optFns ...func(*iam.Options)) (*iam.CreateAccessKeyOutput, error) {
	if f.CreateAccessKeyFunc != nil {
		return f.CreateAccessKeyFunc(ctx, params)
	}
	if err := f.record("CreateAccessKey"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	user := aws.ToString(params.UserName)
	if user == "" {
		user = f.CurrentUser
	}
	active := 0
	for _, k := range f.KeysByUser[user] {
		if k.Status == types.StatusTypeActive {
			active++
		}
	}
	if active >= 2 {
		return nil, fmt.Errorf("LimitExceeded: Cannot exceed quota for AccessKeysPerUser: 2")
	}

	f.nextKey++
	key := FakeKey{
		ID:        fmt.Sprintf("AKIAFAKE%012d", f.nextKey),
		Secret:    fmt.Sprintf("fake-secret-%d", f.nextKey),
		Status:    types.StatusTypeActive,
		CreatedAt: time.Now(),
	}
	f.KeysByUser[user] = append(f.KeysByUser[user], key)

	return &iam.CreateAccessKeyOutput{
		AccessKey: &types.AccessKey{
			AccessKeyId:     aws.String(key.ID),
			SecretAccessKey: aws.String(key.Secret),
			Status:          key.Status,
			UserName:        aws.String(user),
			CreateDate:      aws.Time(key.CreatedAt),
		},
	}, nil
}

// UpdateAccessKey sets a key's status.
func (f *FakeIAM) UpdateAccessKey(ctx context.Context, params *iam.UpdateAccessKeyInput, optFns ...func(*iam.Options)) (*iam.UpdateAccessKeyOutput, error) {
	if err := f.record("UpdateAccessKey"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	user := aws.ToString(params.UserName)
	id := aws.ToString(params.AccessKeyId)
	for i, k := range f.KeysByUser[user] {
		if k.ID == id {
			f.KeysByUser[user][i].Status = params.Status
			return &iam.UpdateAccessKeyOutput{}, nil
		}
	}
	return nil, fmt.Errorf("NoSuchEntity: access key %s not found for user %s", id, user)
}

// DeleteAccessKey removes a key.
func (f *FakeIAM) DeleteAccessKey(ctx context.Context, params *iam.DeleteAccessKeyInput, optFns ...func(*iam.Options)) (*iam.DeleteAccessKeyOutput, error) {
	if err := f.record("DeleteAccessKey"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	user := aws.ToString(params.UserName)
	id := aws.ToString(params.AccessKeyId)
	keys := f.KeysByUser[user]
	for i, k := range keys {
		if k.ID == id {
			f.KeysByUser[user] = append(keys[:i:i], keys[i+1:]...)
			return &iam.DeleteAccessKeyOutput{}, nil
		}
	}
	return nil, fmt.Errorf("NoSuchEntity: access key %s not found for user %s", id, user)
}

// GetUser returns the configured current user.
func (f *FakeIAM) GetUser(ctx context.Context, params *iam.GetUserInput, optFns ...func(*iam.Options)) (*iam.GetUserOutput, error) {
	if err := f.record("GetUser"); err != nil {
		return nil, err
	}
	return &iam.GetUserOutput{
		User: &types.User{
			UserName: aws.String(f.CurrentUser),
			Arn:      aws.String("arn:aws:iam::123456789012:user/" + f.CurrentUser),
		},
	}, nil
}

// FakeSTS implements awsiam.STSOperations.
type FakeSTS struct {
	// Arn is returned by GetCallerIdentity.
	Arn string
	// Err, when set, fails every call.
	Err error
}

// GetCallerIdentity returns the configured caller ARN.
func (f *FakeSTS) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return &sts.GetCallerIdentityOutput{
		Account: aws.String("123456789012"),
		Arn:     aws.String(f.Arn),
		UserId:  aws.String("AIDAFAKEUSERID"),
	}, nil
}
