// File: cmd/liftctl/service.go
// Brief: create-service and edit-config commands.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/example/liftctl/internal/awsapi"
	"github.com/example/liftctl/internal/config"
)

const serviceTemplate = `notifications_arn: arn:aws:sns:us-east-1:000000000000:change-me
services:
  %s:
    memory_reservation: 250
    command: ~
    http_interface:
      internal: false
      container_port: 80
      restrict_access_to:
        - 0.0.0.0/0
`

func newCreateServiceCommand(opts *globalOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create-service",
		Short: "Author and persist a new service document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireEnvironment(opts); err != nil {
				return err
			}
			if name == "" {
				return fmt.Errorf("a service name is required, pass --name")
			}
			ctx := cmd.Context()
			store, err := newConfigStore(ctx, opts)
			if err != nil {
				return err
			}
			if _, exists, err := store.GetServiceConfig(ctx, opts.Environment, name); err != nil {
				return err
			} else if exists {
				return fmt.Errorf("service %s already exists in %s, edit it with update instead", name, opts.Environment)
			}
			template := fmt.Sprintf(serviceTemplate, name)
			body, err := editUntilValid(ctx, []byte(template), validateServiceDoc)
			if err != nil {
				return err
			}
			if err := confirmSave(ctx, os.Stdin, cmd.OutOrStdout(),
				fmt.Sprintf("Create service %q in %s?", name, opts.Environment)); err != nil {
				return err
			}
			if err := store.PutServiceConfig(ctx, opts.Environment, name, body, 0); err != nil {
				return err
			}
			cmd.Printf("Service %s created in %s.\n", name, opts.Environment)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Logical service document name")
	return cmd
}

func newEditConfigCommand(opts *globalOptions) *cobra.Command {
	var name string
	var prune bool
	cmd := &cobra.Command{
		Use:   "edit-config",
		Short: "Edit the parameter-store configuration of a service",
		Long:  "Opens the /<environment>/<service>/ parameter-store keys in the editor as a YAML map and writes back the changes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireEnvironment(opts); err != nil {
				return err
			}
			if name == "" {
				return fmt.Errorf("a service name is required, pass --name")
			}
			ctx := cmd.Context()
			clients, err := awsapi.NewClients(ctx, opts.Region)
			if err != nil {
				return err
			}
			params := &awsapi.ParameterStore{SSM: clients.SSM}
			current, err := params.ServiceParameters(ctx, opts.Environment, name)
			if err != nil {
				return err
			}
			before, err := yaml.Marshal(current)
			if err != nil {
				return fmt.Errorf("encode parameters: %w", err)
			}
			if len(current) == 0 {
				before = []byte("# KEY: value\n{}\n")
			}
			after, err := editUntilValid(ctx, before, validateParameterDoc)
			if err != nil {
				return err
			}
			changed, err := printDiff(cmd.OutOrStdout(), name+" config", before, after)
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
			var edited map[string]string
			if err := yaml.Unmarshal(after, &edited); err != nil {
				return fmt.Errorf("decode parameters: %w", err)
			}
			keys, err := params.SetParameters(ctx, opts.Environment, name, edited, prune)
			if err != nil {
				return err
			}
			cmd.Printf("Updated keys: %s\n", strings.Join(keys, ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Service whose configuration to edit")
	cmd.Flags().BoolVar(&prune, "prune", false, "Delete keys removed from the document")
	return cmd
}

func validateServiceDoc(raw []byte) error {
	_, err := config.ParseServiceConfig(raw)
	return err
}

func validateParameterDoc(raw []byte) error {
	var m map[string]string
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return &config.ConfigError{Reason: fmt.Sprintf("document must be a flat map of string keys: %v", err)}
	}
	for k := range m {
		if strings.ContainsAny(k, " /") {
			return &config.ConfigError{Field: k, Reason: "keys cannot contain spaces or slashes"}
		}
	}
	return nil
}
