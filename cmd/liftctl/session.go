// File: cmd/liftctl/session.go
// Brief: start-session command for MFA-backed temporary credentials.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/liftctl/internal/awsapi"
)

func newSessionCommand(opts *globalOptions) *cobra.Command {
	var (
		mfaCode  string
		serial   string
		profile  string
		duration time.Duration
	)
	cmd := &cobra.Command{
		Use:   "start-session",
		Short: "Exchange an MFA code for temporary credentials",
		Long: "Calls STS GetSessionToken with the MFA code and saves the temporary " +
			"credentials under a profile in the shared credentials file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireEnvironment(opts); err != nil {
				return err
			}
			if mfaCode == "" {
				return fmt.Errorf("an MFA code is required, pass --mfa CODE")
			}
			ctx := cmd.Context()
			clients, err := awsapi.NewClients(ctx, opts.Region)
			if err != nil {
				return err
			}
			creds, err := awsapi.StartSession(ctx, clients.STS, serial, mfaCode, duration)
			if err != nil {
				return err
			}
			if profile == "" {
				profile = opts.Environment
			}
			if err := awsapi.WriteCredentialsProfile("", profile, creds); err != nil {
				return err
			}
			cmd.Printf("Session for profile %q valid until %s.\n",
				profile, creds.Expiration.Local().Format(time.RFC1123))
			return nil
		},
	}
	cmd.Flags().StringVar(&mfaCode, "mfa", "", "Current MFA token code")
	cmd.Flags().StringVar(&serial, "serial", "", "MFA device serial (derived from the caller identity when unset)")
	cmd.Flags().StringVar(&profile, "profile", "", "Credentials profile to write (defaults to the environment name)")
	cmd.Flags().DurationVar(&duration, "duration", 12*time.Hour, "Session lifetime")
	return cmd
}
