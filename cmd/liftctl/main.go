// main.go bootstraps liftctl: it builds the root Cobra command and executes
// with signal-aware contexts.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/example/liftctl/internal/allocator"
	"github.com/example/liftctl/internal/awsapi"
	"github.com/example/liftctl/internal/config"
	"github.com/example/liftctl/internal/deployer"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := newRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	handleError(err)
	if err != nil {
		os.Exit(1)
	}
}

type globalOptions struct {
	Environment string
	Region      string
	LogLevel    string
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{LogLevel: "info"}
	cmd := &cobra.Command{
		Use:           "liftctl",
		Short:         "Deploy containerized services to ECS environments",
		Long:          "liftctl compiles a declarative service description into a full infrastructure stack and drives deploys from one running revision to the next.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.Environment, "environment", "e", "", "Target environment name")
	cmd.PersistentFlags().StringVar(&opts.Region, "region", "", "AWS region (defaults to the environment's configured region)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "Log level for liftctl output (debug, info, warn, error)")

	createEnvCmd := newCreateEnvironmentCommand(opts)
	updateEnvCmd := newUpdateEnvironmentCommand(opts)
	createSvcCmd := newCreateServiceCommand(opts)
	editCfgCmd := newEditConfigCommand(opts)
	deployCmd := newDeployCommand(opts)
	secretsCmd := newPublishSecretsCommand(opts)
	sessionCmd := newSessionCommand(opts)
	cmd.AddCommand(
		createEnvCmd,
		updateEnvCmd,
		createSvcCmd,
		editCfgCmd,
		deployCmd,
		secretsCmd,
		sessionCmd,
		newVersionCommand(),
	)
	cmd.Example = `  # Author a new environment document
  liftctl create-environment -e staging

  # Deploy every service of an environment at the working tree's revision
  liftctl deploy-service -e staging

  # Publish merged secrets for one service
  liftctl publish-secrets -e staging --name api --secret-id arn:aws:secretsmanager:...:secret:staging-api`
	bindViper(cmd, createEnvCmd, updateEnvCmd, createSvcCmd, editCfgCmd, deployCmd, secretsCmd, sessionCmd)
	return cmd
}

func bindViper(commands ...*cobra.Command) {
	if len(commands) == 0 {
		return
	}
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix("LIFTCTL")
	v.AutomaticEnv()

	cobra.OnInitialize(func() {
		for _, cmd := range commands {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				cobra.CheckErr(err)
			}
			if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
				cobra.CheckErr(err)
			}
		}
		for _, cmd := range commands {
			flagSets := []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags()}
			for _, fs := range flagSets {
				fs.VisitAll(func(f *pflag.Flag) {
					if f.Changed {
						return
					}
					if !v.IsSet(f.Name) {
						return
					}
					val := fmt.Sprintf("%v", v.Get(f.Name))
					if val != "" {
						_ = f.Value.Set(val)
					}
				})
			}
		}
	})
}

func handleError(err error) {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return
	}
	message := err.Error()
	var cfgErr *config.ConfigError
	var conflict *allocator.Conflict
	var rejection *deployer.RemoteRejection
	var timeout *deployer.RolloutTimeout
	switch {
	case errors.As(err, &cfgErr):
		message = fmt.Sprintf("%s\nHint: fix the named field and rerun; nothing was changed remotely.", err)
	case errors.As(err, &conflict):
		message = fmt.Sprintf("%s\nHint: pick a different explicit value or drop the pin to auto-allocate.", err)
	case errors.As(err, &rejection):
		message = fmt.Sprintf("%s\nHint: the stack was left as the orchestration service reported it; inspect before retrying.", err)
	case errors.As(err, &timeout):
		message = fmt.Sprintf("%s\nHint: the new task definition is still active; check service events for why tasks are not settling.", err)
	case errors.Is(err, awsapi.ErrRevisionConflict):
		message = fmt.Sprintf("%s\nHint: someone saved a newer revision; re-run to edit the latest document.", err)
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
}

func requireEnvironment(opts *globalOptions) error {
	if opts.Environment == "" {
		return fmt.Errorf("an environment is required, pass -e NAME")
	}
	return nil
}
