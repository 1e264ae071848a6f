// File: cmd/liftctl/secrets.go
// Brief: publish-secrets command.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/liftctl/internal/awsapi"
	"github.com/example/liftctl/internal/logging"
	"github.com/example/liftctl/internal/secrets"
)

func newPublishSecretsCommand(opts *globalOptions) *cobra.Command {
	var (
		name          string
		secretID      string
		sourceService string
	)
	cmd := &cobra.Command{
		Use:   "publish-secrets",
		Short: "Merge and push a service's secret documents",
		Long: "Resolves <environment>/<name> from the secret store, optionally layered " +
			"under the override document of --source-service, and writes the merged " +
			"result to --secret-id wholesale.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireEnvironment(opts); err != nil {
				return err
			}
			if name == "" {
				return fmt.Errorf("a service name is required, pass --name")
			}
			if secretID == "" {
				return fmt.Errorf("a destination is required, pass --secret-id ARN")
			}
			log, err := logging.New(opts.LogLevel)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx := cmd.Context()
			clients, err := awsapi.NewClients(ctx, opts.Region)
			if err != nil {
				return err
			}
			pub := secrets.NewPublisher(&awsapi.SecretStore{Secrets: clients.Secrets}, log)

			req := secrets.Request{
				Environment:    opts.Environment,
				Service:        name,
				SecretsName:    fmt.Sprintf("%s/%s", opts.Environment, name),
				DestinationARN: secretID,
			}
			if sourceService != "" {
				req.SecretsName = fmt.Sprintf("%s/%s", opts.Environment, sourceService)
				req.OverrideName = fmt.Sprintf("%s/%s", opts.Environment, name)
			}
			if err := pub.Publish(ctx, req); err != nil {
				return err
			}
			cmd.Printf("Secrets published for %s/%s.\n", opts.Environment, name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Service whose secrets to publish")
	cmd.Flags().StringVar(&secretID, "secret-id", "", "Destination secret ARN")
	cmd.Flags().StringVar(&sourceService, "source-service", "", "Base document's service; --name's document becomes the override")
	return cmd
}
