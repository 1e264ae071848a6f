// File: internal/awsapi/session.go
// Brief: MFA-backed temporary credentials for the session command.

package awsapi

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// SessionCredentials are the temporary credentials of one MFA session.
type SessionCredentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expiration      time.Time
}

// StartSession exchanges an MFA code for temporary credentials. The MFA
// device serial is resolved from the caller identity when not given.
func StartSession(ctx context.Context, client *sts.Client, serial, code string, duration time.Duration) (*SessionCredentials, error) {
	if serial == "" {
		ident, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
		if err != nil {
			return nil, fmt.Errorf("resolve caller identity: %w", err)
		}
		// arn:aws:iam::<account>:user/<name> maps to an mfa/<name> device.
		arn := aws.ToString(ident.Arn)
		serial = strings.Replace(arn, ":user/", ":mfa/", 1)
		if serial == arn {
			return nil, fmt.Errorf("cannot derive MFA serial from %s, pass it explicitly", arn)
		}
	}
	out, err := client.GetSessionToken(ctx, &sts.GetSessionTokenInput{
		SerialNumber:    aws.String(serial),
		TokenCode:       aws.String(code),
		DurationSeconds: aws.Int32(int32(duration.Seconds())),
	})
	if err != nil {
		return nil, fmt.Errorf("get session token: %w", err)
	}
	c := out.Credentials
	return &SessionCredentials{
		AccessKeyID:     aws.ToString(c.AccessKeyId),
		SecretAccessKey: aws.ToString(c.SecretAccessKey),
		SessionToken:    aws.ToString(c.SessionToken),
		Expiration:      aws.ToTime(c.Expiration),
	}, nil
}

// WriteCredentialsProfile saves the credentials under the named profile in
// the shared credentials file, replacing the profile if it exists and
// leaving every other profile untouched.
func WriteCredentialsProfile(path, profile string, creds *SessionCredentials) error {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, ".aws", "credentials")
	}

	var lines []string
	if raw, err := os.ReadFile(path); err == nil {
		lines = strings.Split(string(raw), "\n")
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read %s: %w", path, err)
	}

	header := "[" + profile + "]"
	var kept []string
	skipping := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") {
			skipping = trimmed == header
		}
		if !skipping {
			kept = append(kept, line)
		}
	}
	for len(kept) > 0 && strings.TrimSpace(kept[len(kept)-1]) == "" {
		kept = kept[:len(kept)-1]
	}
	if len(kept) > 0 {
		kept = append(kept, "")
	}
	kept = append(kept,
		header,
		"aws_access_key_id = "+creds.AccessKeyID,
		"aws_secret_access_key = "+creds.SecretAccessKey,
		"aws_session_token = "+creds.SessionToken,
		"")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(kept, "\n")), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
