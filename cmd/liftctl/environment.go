// File: cmd/liftctl/environment.go
// Brief: create-environment and update-environment commands.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/liftctl/internal/awsapi"
	"github.com/example/liftctl/internal/config"
	"github.com/example/liftctl/internal/version"
)

const environmentTemplate = `region: us-east-1
vpc_cidr: 10.0.0.0/16
public_subnet_cidrs:
  - 10.0.0.0/22
  - 10.0.4.0/22
private_subnet_cidrs:
  - 10.0.8.0/22
  - 10.0.12.0/22
nat_allocation_id: eipalloc-change-me
min_instances: 1
max_instances: 4
ssh_key_name: change-me
notifications_arn: arn:aws:sns:us-east-1:000000000000:change-me
certificate_arn: ""
default_listener_arn: ""
`

func newCreateEnvironmentCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create-environment",
		Short: "Author and persist a new environment document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireEnvironment(opts); err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := newConfigStore(ctx, opts)
			if err != nil {
				return err
			}
			if _, exists, err := store.GetEnvironmentConfig(ctx, opts.Environment); err != nil {
				return err
			} else if exists {
				return fmt.Errorf("environment %s already exists, use update-environment", opts.Environment)
			}
			body, err := editUntilValid(ctx, []byte(environmentTemplate), validateEnvironmentDoc)
			if err != nil {
				return err
			}
			if err := confirmSave(ctx, os.Stdin, cmd.OutOrStdout(),
				fmt.Sprintf("Create environment %q?", opts.Environment)); err != nil {
				return err
			}
			if err := store.PutEnvironmentConfig(ctx, opts.Environment, body, 0); err != nil {
				return err
			}
			cmd.Printf("Environment %s created.\n", opts.Environment)
			return nil
		},
	}
}

func newUpdateEnvironmentCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update-environment",
		Short: "Edit an existing environment document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireEnvironment(opts); err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := newConfigStore(ctx, opts)
			if err != nil {
				return err
			}
			doc, exists, err := store.GetEnvironmentConfig(ctx, opts.Environment)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("environment %s does not exist, use create-environment", opts.Environment)
			}
			body, err := editUntilValid(ctx, doc.Body, validateEnvironmentDoc)
			if err != nil {
				return err
			}
			changed, err := printDiff(cmd.OutOrStdout(), opts.Environment, doc.Body, body)
			if err != nil {
				return err
			}
			if !changed {
				cmd.Println("No changes.")
				return nil
			}
			if err := confirmSave(ctx, os.Stdin, cmd.OutOrStdout(), "Save these changes?"); err != nil {
				return err
			}
			if err := store.PutEnvironmentConfig(ctx, opts.Environment, body, doc.Revision); err != nil {
				return err
			}
			cmd.Printf("Environment %s updated.\n", opts.Environment)
			return nil
		},
	}
}

func validateEnvironmentDoc(raw []byte) error {
	_, err := config.ParseEnvironmentConfig(raw)
	return err
}

// editUntilValid loops the editor until the document validates or the
// operator gives up by leaving it unchanged after a failure.
func editUntilValid(ctx context.Context, original []byte, validate func([]byte) error) ([]byte, error) {
	body := original
	for {
		edited, err := editDocument(ctx, body, "liftctl-*.yml")
		if err != nil {
			return nil, err
		}
		if err := validate(edited); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid document: %v\n", err)
			if string(edited) == string(body) {
				return nil, err
			}
			body = edited
			continue
		}
		return edited, nil
	}
}

func newConfigStore(ctx context.Context, opts *globalOptions) (*awsapi.ConfigStore, error) {
	clients, err := awsapi.NewClients(ctx, opts.Region)
	if err != nil {
		return nil, err
	}
	return &awsapi.ConfigStore{DB: clients.DynamoDB, ToolVersion: version.Version}, nil
}
