// File: cmd/liftctl/deploy.go
// Brief: deploy-service command: compile the stack and drive the rollout.

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/liftctl/internal/allocator"
	"github.com/example/liftctl/internal/awsapi"
	"github.com/example/liftctl/internal/compiler"
	"github.com/example/liftctl/internal/config"
	"github.com/example/liftctl/internal/deployer"
	"github.com/example/liftctl/internal/gitinfo"
	"github.com/example/liftctl/internal/logging"
	"github.com/example/liftctl/internal/ui"
)

type deployOptions struct {
	Name           string
	Version        string
	BuildArgs      []string
	ContextDir     string
	SampleEnvFile  string
	RolloutTimeout time.Duration
	VerifyURLs     []string
}

func newDeployCommand(opts *globalOptions) *cobra.Command {
	dep := &deployOptions{
		ContextDir:     ".",
		SampleEnvFile:  "env.sample",
		RolloutTimeout: 10 * time.Minute,
	}
	cmd := &cobra.Command{
		Use:   "deploy-service",
		Short: "Build, publish, and roll out the services of a document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireEnvironment(opts); err != nil {
				return err
			}
			if dep.Name == "" {
				return fmt.Errorf("a service name is required, pass --name")
			}
			return runDeploy(cmd.Context(), opts, dep)
		},
	}
	cmd.Flags().StringVar(&dep.Name, "name", "", "Service document to deploy")
	cmd.Flags().StringVar(&dep.Version, "version", "", "Image version to deploy (defaults to the working tree's commit)")
	cmd.Flags().StringArrayVar(&dep.BuildArgs, "build-arg", nil, "Build argument as a 'KEY VALUE' pair (repeatable; KEY=VALUE also accepted)")
	cmd.Flags().StringVar(&dep.ContextDir, "context", dep.ContextDir, "Docker build context directory")
	cmd.Flags().StringVar(&dep.SampleEnvFile, "sample-env", dep.SampleEnvFile, "Sample env file whose keys must be configured")
	cmd.Flags().DurationVar(&dep.RolloutTimeout, "timeout", dep.RolloutTimeout, "Bound on the rollout wait")
	cmd.Flags().StringArrayVar(&dep.VerifyURLs, "verify-url", nil, "Post-rollout probe as SERVICE=URL (repeatable)")
	return cmd
}

func runDeploy(ctx context.Context, opts *globalOptions, dep *deployOptions) error {
	log, err := logging.New(opts.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	store, err := newConfigStore(ctx, opts)
	if err != nil {
		return err
	}
	envDoc, ok, err := store.GetEnvironmentConfig(ctx, opts.Environment)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("environment %s does not exist", opts.Environment)
	}
	env, err := config.ParseEnvironmentConfig(envDoc.Body)
	if err != nil {
		return err
	}
	svcDoc, ok, err := store.GetServiceConfig(ctx, opts.Environment, dep.Name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("service %s does not exist in %s", dep.Name, opts.Environment)
	}
	cfg, err := config.ParseServiceConfig(svcDoc.Body)
	if err != nil {
		return err
	}

	region := opts.Region
	if region == "" {
		region = env.Region
	}
	clients, err := awsapi.NewClients(ctx, region)
	if err != nil {
		return err
	}

	version := dep.Version
	if version == "" {
		version, err = gitinfo.ImageVersion(ctx, dep.ContextDir)
		if err != nil {
			return err
		}
	}

	repo := &awsapi.Repository{ECR: clients.ECR, Name: dep.Name + "-repo"}
	repoURI, err := repo.Ensure(ctx)
	if err != nil {
		return err
	}
	imageRef := repoURI + ":" + version

	// Shared-identifier occupancy for the allocator.
	listeners := listenerARNs(cfg, env)
	envState := &awsapi.EnvironmentState{ELBv2: clients.ELBv2, CloudWatch: clients.CloudWatch}
	stopSpinner := ui.StartSpinner(os.Stderr, "Reading environment state")
	prior, err := envState.PriorState(ctx, opts.Environment, listeners)
	stopSpinner(err == nil)
	if err != nil {
		return err
	}
	plan, err := allocator.Allocate(cfg, allocator.Options{
		Environment:        opts.Environment,
		DefaultListenerARN: env.DefaultListenerARN,
	}, *prior)
	if err != nil {
		return err
	}

	applier := &awsapi.StackApplier{CFN: clients.CloudFormation, Log: log}
	stackName := fmt.Sprintf("%s-services", opts.Environment)
	priorStack, err := applier.PriorStack(ctx, stackName)
	if err != nil {
		return err
	}

	clusterName := fmt.Sprintf("%s-cluster", opts.Environment)
	serviceNames := make([]string, 0, len(cfg.Services))
	for name := range cfg.Services {
		serviceNames = append(serviceNames, ecsServiceName(opts.Environment, name))
	}
	counts, err := awsapi.DesiredCounts(ctx, clients.ECS, clusterName, serviceNames)
	if err != nil {
		return err
	}

	sampleKeys, err := readSampleEnv(dep.SampleEnvFile)
	if err != nil {
		return err
	}
	params := &awsapi.ParameterStore{SSM: clients.SSM}
	secretStore := &awsapi.SecretStore{Secrets: clients.Secrets}

	compileOpts := compiler.Options{
		Environment:      opts.Environment,
		ClusterName:      clusterName,
		ImageURIs:        map[string]string{},
		DesiredCounts:    map[string]int{},
		ContainerEnv:     map[string]map[string]string{},
		ContainerSecrets: map[string]map[string]string{},
	}
	for name, svc := range cfg.Services {
		compileOpts.ImageURIs[name] = imageRef
		compileOpts.DesiredCounts[name] = counts[ecsServiceName(opts.Environment, name)]

		cc, err := deployer.BuildConfig(ctx, params, secretStore, opts.Environment, name, svc.SecretsName, sampleKeys)
		if err != nil {
			return err
		}
		compileOpts.ContainerEnv[name] = cc.Environment
		compileOpts.ContainerSecrets[name] = cc.Secrets
	}

	graph, err := compiler.Compile(cfg, env, plan, priorStack, compileOpts)
	if err != nil {
		return err
	}

	docker, err := awsapi.NewDockerClient()
	if err != nil {
		return err
	}
	workshop := &awsapi.ImageWorkshop{
		Docker:     docker,
		Repository: repo,
		ContextDir: dep.ContextDir,
		Log:        log,
	}

	console := ui.NewDeployConsole(os.Stderr, ui.DeployConsoleOptions{Enabled: true})
	orch := &deployer.Orchestrator{
		Builder:  workshop,
		Registry: workshop,
		Applier:  applier,
		Watcher:  &awsapi.RolloutWatcher{ECS: clients.ECS, Log: log},
		Metrics:  &awsapi.DeploymentMetrics{CloudWatch: clients.CloudWatch},
		Log:      log,
		Reporter: console.Observe,
	}
	if endpoints := parsePairs(dep.VerifyURLs); len(endpoints) > 0 {
		orch.Verifier = &deployer.HTTPVerifier{Endpoints: endpoints}
	}

	res := orch.Deploy(ctx, deployer.Request{
		Environment:    opts.Environment,
		StackName:      stackName,
		ClusterName:    clusterName,
		ImageRef:       imageRef,
		ForceBuild:     version == gitinfo.DirtyVersion,
		BuildArgs:      parseBuildArgs(dep.BuildArgs),
		Graph:          graph,
		Services:       serviceNames,
		RolloutTimeout: dep.RolloutTimeout,
	})
	console.Summary(res)
	if res.Err != nil {
		return res.Err
	}
	fmt.Printf("Deployed %s to %s at %s.\n", dep.Name, opts.Environment, version)
	return nil
}

func ecsServiceName(environment, service string) string {
	return fmt.Sprintf("%s-%s", environment, service)
}

func listenerARNs(cfg *config.ServiceConfig, env *config.EnvironmentConfig) []string {
	seen := map[string]struct{}{}
	var arns []string
	add := func(arn string) {
		if arn == "" {
			return
		}
		if _, ok := seen[arn]; ok {
			return
		}
		seen[arn] = struct{}{}
		arns = append(arns, arn)
	}
	for _, svc := range cfg.Services {
		if hi := svc.HTTPInterface; hi != nil && hi.ALB != nil && !hi.ALB.CreateNew {
			add(hi.ALB.ListenerARN)
		}
	}
	add(env.DefaultListenerARN)
	return arns
}

// readSampleEnv returns the keys of an env.sample style file. A missing file
// means no coverage check.
func readSampleEnv(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var keys []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, _, _ := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if key != "" {
			keys = append(keys, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return keys, nil
}

// parseBuildArgs reads one build argument per flag occurrence. The documented
// form is a space-separated "KEY VALUE" pair quoted into one shell word;
// KEY=VALUE is accepted as well.
func parseBuildArgs(pairs []string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		p = strings.TrimSpace(p)
		eq := strings.IndexByte(p, '=')
		sp := strings.IndexAny(p, " \t")
		switch {
		case sp >= 0 && (eq < 0 || sp < eq):
			out[p[:sp]] = strings.TrimSpace(p[sp+1:])
		case eq >= 0:
			out[p[:eq]] = p[eq+1:]
		default:
			out[p] = ""
		}
	}
	return out
}

func parsePairs(pairs []string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, _ := strings.Cut(p, "=")
		out[key] = value
	}
	return out
}
