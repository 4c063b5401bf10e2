// Package awsiam wraps the subset of the AWS IAM and STS APIs that key
// rotation needs behind narrow interfaces, so tests can substitute
// in-memory fakes for the SDK clients.
package awsiam

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// KeyOperations is the IAM access key surface used by the rotator.
type KeyOperations interface {
	ListAccessKeys(ctx context.Context, params *iam.ListAccessKeysInput, optFns ...func(*iam.Options)) (*iam.ListAccessKeysOutput, error)
	CreateAccessKey(ctx context.Context, params *iam.CreateAccessKeyInput, optFns ...func(*iam.Options)) (*iam.CreateAccessKeyOutput, error)
	UpdateAccessKey(ctx context.Context, params *iam.UpdateAccessKeyInput, optFns ...func(*iam.Options)) (*iam.UpdateAccessKeyOutput, error)
	DeleteAccessKey(ctx context.Context, params *iam.DeleteAccessKeyInput, optFns ...func(*iam.Options)) (*iam.DeleteAccessKeyOutput, error)
}

// UserOperations is the IAM user surface used when resolving the caller.
type UserOperations interface {
	GetUser(ctx context.Context, params *iam.GetUserInput, optFns ...func(*iam.Options)) (*iam.GetUserOutput, error)
}

// STSOperations is the STS surface used as a fallback identity source.
type STSOperations interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Clients bundles the concrete SDK clients for one AWS profile.
type Clients struct {
	IAM *iam.Client
	STS *sts.Client
}

// NewClients builds IAM and STS clients from the shared AWS config chain
// (environment, shared config/credentials files, instance metadata) for the
// given profile, with adaptive retry enabled.
func NewClients(ctx context.Context, profile string) (*Clients, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRetryMode(aws.RetryModeAdaptive),
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &Clients{
		IAM: iam.NewFromConfig(cfg),
		STS: sts.NewFromConfig(cfg),
	}, nil
}
