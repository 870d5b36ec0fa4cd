package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/jhlee-dev/rudder/internal/console"
	"github.com/jhlee-dev/rudder/internal/engine"
	"github.com/jhlee-dev/rudder/internal/governance"
	"github.com/jhlee-dev/rudder/internal/history"
	"github.com/jhlee-dev/rudder/internal/llm"
	"github.com/jhlee-dev/rudder/internal/observability"
	"github.com/jhlee-dev/rudder/internal/prompt"
	"github.com/jhlee-dev/rudder/internal/store"
	"github.com/jhlee-dev/rudder/internal/tools"
	"github.com/jhlee-dev/rudder/pkg/config"
)

type rootFlags struct {
	configPath string
	fullAuto   bool
	verbose    bool
	debug      bool
	listTools  bool
	diagnose   bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "rudder [query]",
		Short: "An agentic CLI that plans, executes, and verifies multi-step tasks",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, flags)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "path to a JSON or YAML config file")
	cmd.Flags().BoolVar(&flags.fullAuto, "full-auto", false, "execute steps without asking for confirmation")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "print structured event logs")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "alias for --verbose")
	cmd.Flags().BoolVar(&flags.listTools, "tools", false, "list available tools and exit")
	cmd.Flags().BoolVar(&flags.diagnose, "diagnose", false, "print a diagnostic report and exit")

	return cmd
}

func run(cmd *cobra.Command, args []string, flags *rootFlags) error {
	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := buildRegistry(cfg, cmd)

	if flags.listTools {
		return printTools(ctx, cmd, registry)
	}
	if flags.diagnose {
		return printDiagnostics(ctx, cmd, cfg, registry)
	}

	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("nothing to do: pass a query, or --tools / --diagnose")
	}

	observability.PrintBanner()

	processor, cleanup, err := buildProcessor(cfg, registry, flags, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	response, err := processor.ProcessQuery(ctx, query)
	if err != nil {
		return err
	}
	if response != "" {
		fmt.Fprintln(cmd.OutOrStdout(), response)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	for _, candidate := range []string{"config.json", "config.yaml", "config.yml"} {
		if _, err := os.Stat(candidate); err == nil {
			return config.Load(candidate)
		}
	}
	return config.Default(), nil
}

func buildRegistry(cfg *config.Config, cmd *cobra.Command) *tools.Registry {
	registry := tools.NewRegistry()

	registry.Register(tools.NewFilesystemTool(cfg.App.Workspace))
	registry.Register(tools.NewShellTool())
	registry.Register(tools.NewScraperTool())
	registry.Register(tools.NewBrowserTool())
	registry.Register(tools.NewSystemTool())

	if searchTool, err := tools.NewSearchTool(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: search tool unavailable: %v\n", err)
	} else {
		registry.Register(searchTool)
	}

	return registry
}

func buildModel(cfg *config.Config) (llms.Model, string, error) {
	name, provider := cfg.GetDefaultProvider()
	if name == "" {
		return nil, "", fmt.Errorf("no enabled provider in config")
	}

	switch name {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(provider.APIKey),
			openai.WithModel(provider.Model),
		}
		if provider.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(provider.BaseURL))
		}
		model, err := openai.New(opts...)
		if err != nil {
			return nil, "", fmt.Errorf("initialize %s provider: %w", name, err)
		}
		return model, provider.Model, nil
	default:
		return nil, "", fmt.Errorf("provider %q is not supported", name)
	}
}

func buildProcessor(cfg *config.Config, registry *tools.Registry, flags *rootFlags, cmd *cobra.Command) (*engine.QueryProcessor, func(), error) {
	model, modelName, err := buildModel(cfg)
	if err != nil {
		return nil, nil, err
	}
	client := llm.NewLangChainClient(model, modelName)

	conversations, err := store.Open(cfg.Memory.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open conversation store: %w", err)
	}
	planHistory, err := history.Open(cfg.Engine.PlanHistoryPath)
	if err != nil {
		conversations.Close()
		return nil, nil, fmt.Errorf("open plan history: %w", err)
	}
	cleanup := func() {
		_ = planHistory.Close()
		_ = conversations.Close()
	}

	policy := governance.NewDefaultPolicyEngine()
	_ = policy.DenyArguments(`rm\s+-rf\s+/`)
	_ = policy.DenyArguments(`mkfs`)
	_ = policy.DenyArguments(`shutdown`)
	_ = policy.DenyArguments(`reboot`)

	logger := observability.NewLogger(flags.verbose || flags.debug)
	prompts := prompt.NewManager(cfg.Engine.PromptDir)

	var confirmer engine.Confirmer = console.NewInteractiveConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
	if flags.fullAuto {
		confirmer = console.AutoConfirmer{}
	}

	var validator llm.ResultValidator
	if cfg.Engine.ValidationMode != llm.ModeOff {
		validator = llm.NewValidator(client, cfg.Engine.ValidationMode)
	}

	processor := &engine.QueryProcessor{
		Planner: &engine.PlanningService{
			Client:  client,
			Invoker: registry,
			Prompts: prompts,
			Logger:  logger,
		},
		Exec: &engine.ExecutionManager{
			Steps: &engine.StepExecutor{
				Invoker:    registry,
				Confirmer:  confirmer,
				Validator:  validator,
				Fixer:      llm.NewFixer(client),
				Policy:     policy,
				Logger:     logger,
				Out:        cmd.OutOrStdout(),
				MaxRetries: cfg.Engine.MaxStepRetries,
			},
			Responder: &engine.ResponseGenerator{Client: client, Prompts: prompts},
			Logger:    logger,
		},
		Evaluator: engine.NewPlanEvaluator(planHistory),
		Client:    client,
		Prompts:   prompts,
		Store:     conversations,
		Logger:    logger,
		Out:       cmd.OutOrStdout(),
		Opts: engine.Options{
			MaxIterations:  cfg.Engine.MaxIterations,
			MaxStepRetries: cfg.Engine.MaxStepRetries,
			ValidationMode: cfg.Engine.ValidationMode,
		},
	}

	return processor, cleanup, nil
}

func printTools(ctx context.Context, cmd *cobra.Command, registry *tools.Registry) error {
	catalog, err := registry.Catalog(ctx)
	if err != nil {
		return err
	}
	for _, info := range catalog {
		fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", info.Name, info.Description)
		if len(info.ParamNames) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%-12s parameters: %s\n", "", strings.Join(info.ParamNames, ", "))
		}
	}
	return nil
}

func printDiagnostics(ctx context.Context, cmd *cobra.Command, cfg *config.Config, registry *tools.Registry) error {
	d := observability.NewDiagnostics()

	app := d.Section("config")
	app.Add("workspace", cfg.App.Workspace)
	providerName, provider := cfg.GetDefaultProvider()
	if providerName == "" {
		app.Add("provider", "none enabled")
	} else {
		app.Add("provider", fmt.Sprintf("%s (%s)", providerName, provider.Model))
	}
	app.Add("memory", cfg.Memory.Path)
	app.Add("plan_history", cfg.Engine.PlanHistoryPath)
	app.Add("validation", cfg.Engine.ValidationMode)
	app.Add("max_iterations", fmt.Sprintf("%d", cfg.Engine.MaxIterations))

	tc := d.Section("tools")
	if catalog, err := registry.Catalog(ctx); err == nil {
		for _, info := range catalog {
			tc.Add(info.Name, strings.Join(info.ParamNames, ", "))
		}
	}

	hs := d.Section("plan history")
	if planHistory, err := history.Open(cfg.Engine.PlanHistoryPath); err != nil {
		hs.Add("status", fmt.Sprintf("unavailable: %v", err))
	} else {
		hs.Add("recorded plans", fmt.Sprintf("%d", planHistory.Len()))
		_ = planHistory.Close()
	}

	d.Render(cmd.OutOrStdout())
	return nil
}
