// File: internal/awsapi/awsapi_test.go
// Brief: Unit coverage for the pure helpers of the AWS layer.

package awsapi

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewerVersion(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"1.2.0", "1.1.9", true},
		{"1.1.9", "1.2.0", false},
		{"1.2.0", "1.2.0", false},
		{"v2.0.0", "1.9.9", true},
		{"1.2.0.1", "1.2.0", true},
		{"dev", "1.0.0", false},
		{"1.0.0", "dev", false},
	}
	for _, tc := range cases {
		if got := newerVersion(tc.a, tc.b); got != tc.want {
			t.Errorf("newerVersion(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestAlarmHolder(t *testing.T) {
	cases := []struct {
		name, want string
	}{
		{"staging-api-elb-5xx", "api"},
		{"staging-api-latency-p95", "api"},
		{"staging-my-service-latency-p99", "my-service"},
		{"staging-handmade-alarm", ExternalHolder},
	}
	for _, tc := range cases {
		if got := alarmHolder(tc.name, "staging-"); got != tc.want {
			t.Errorf("alarmHolder(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestTagOf(t *testing.T) {
	cases := []struct {
		ref, want string
	}{
		{"123456789012.dkr.ecr.us-east-1.amazonaws.com/api-repo:abc123", "abc123"},
		{"api-repo:dirty", "dirty"},
		{"localhost:5000/api-repo", "latest"},
		{"api-repo", "latest"},
	}
	for _, tc := range cases {
		if got := tagOf(tc.ref); got != tc.want {
			t.Errorf("tagOf(%q) = %q, want %q", tc.ref, got, tc.want)
		}
	}
}

func TestServicePath(t *testing.T) {
	if got := servicePath("staging", "api"); got != "/staging/api/" {
		t.Errorf("servicePath = %q", got)
	}
}

func TestWriteCredentialsProfileReplacesOnlyTargetProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	existing := strings.Join([]string{
		"[default]",
		"aws_access_key_id = AKIADEFAULT",
		"aws_secret_access_key = secret",
		"",
		"[staging]",
		"aws_access_key_id = AKIASTALE",
		"aws_secret_access_key = stale",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(existing), 0o600); err != nil {
		t.Fatal(err)
	}

	err := WriteCredentialsProfile(path, "staging", &SessionCredentials{
		AccessKeyID:     "AKIAFRESH",
		SecretAccessKey: "fresh-secret",
		SessionToken:    "fresh-token",
	})
	if err != nil {
		t.Fatalf("write profile: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := string(raw)
	if !strings.Contains(got, "AKIADEFAULT") {
		t.Error("default profile lost")
	}
	if strings.Contains(got, "AKIASTALE") {
		t.Error("stale staging credentials survived")
	}
	if !strings.Contains(got, "aws_session_token = fresh-token") {
		t.Errorf("new session token missing:\n%s", got)
	}
	if strings.Count(got, "[staging]") != 1 {
		t.Errorf("staging profile written %d times", strings.Count(got, "[staging]"))
	}
}

func TestWriteCredentialsProfileCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aws", "credentials")
	err := WriteCredentialsProfile(path, "staging", &SessionCredentials{
		AccessKeyID:     "AKIA",
		SecretAccessKey: "s",
		SessionToken:    "t",
	})
	if err != nil {
		t.Fatalf("write profile: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}
