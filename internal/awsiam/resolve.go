package awsiam

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	dserrors "github.com/systmms/bang/internal/errors"
)

// Resolver determines which IAM user the current credentials belong to.
type Resolver struct {
	Users UserOperations
	STS   STSOperations
}

// UserName returns the IAM user name of the caller. iam:GetUser is tried
// first because it returns the name directly; when the caller lacks that
// permission the name is extracted from the sts:GetCallerIdentity ARN.
func (r *Resolver) UserName(ctx context.Context) (string, error) {
	out, err := r.Users.GetUser(ctx, &iam.GetUserInput{})
	if err == nil && out.User != nil && out.User.UserName != nil {
		return aws.ToString(out.User.UserName), nil
	}
	getUserErr := err

	identity, err := r.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		if getUserErr != nil {
			err = fmt.Errorf("%w (iam:GetUser also failed: %v)", err, getUserErr)
		}
		return "", dserrors.IAMError("GetCallerIdentity", err)
	}

	name, err := userNameFromARN(aws.ToString(identity.Arn))
	if err != nil {
		return "", dserrors.UserError{
			Message:    "cannot determine IAM user from caller identity",
			Details:    err.Error(),
			Suggestion: "Pass the user explicitly with --user <name>",
		}
	}
	return name, nil
}

// userNameFromARN extracts the user name from an IAM user ARN, e.g.
// arn:aws:iam::123456789012:user/path/deploy-bot → deploy-bot.
func userNameFromARN(arn string) (string, error) {
	parts := strings.SplitN(arn, ":", 6)
	if len(parts) != 6 {
		return "", fmt.Errorf("malformed ARN %q", arn)
	}
	resource := parts[5]
	if !strings.HasPrefix(resource, "user/") {
		return "", fmt.Errorf("caller %q is not an IAM user (assumed roles cannot own access keys)", arn)
	}
	segments := strings.Split(resource, "/")
	return segments[len(segments)-1], nil
}
