// Package main provides the CLI entry point for agentcore, a headless
// agent runtime: a top-level state machine that drives a task through a
// model, its tools, and (optionally) a pool of worker processes.
//
// # Basic Usage
//
// Run a task inline:
//
//	agentcore run --config agentcore.yaml --prompt "Summarize this repo"
//
// Resume a task suspended on wait_user:
//
//	agentcore resume --config agentcore.yaml --task-id abc123 --answer "yes, proceed"
//
// Start a worker that dequeues tasks over gRPC:
//
//	agentcore serve-worker --config agentcore.yaml --listen :7700
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/haasonsaas/agentcore/internal/agent"
	"github.com/haasonsaas/agentcore/internal/agent/providers"
	"github.com/haasonsaas/agentcore/internal/config"
	"github.com/haasonsaas/agentcore/internal/execution"
	"github.com/haasonsaas/agentcore/internal/statestore"
	"github.com/haasonsaas/agentcore/internal/tools/control"
	"github.com/haasonsaas/agentcore/internal/tools/exec"
	"github.com/haasonsaas/agentcore/internal/tools/files"
	"github.com/haasonsaas/agentcore/pkg/models"
)

// Build information, populated by ldflags during release builds.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "agentcore",
		Short:        "agentcore - headless agent runtime",
		Long:         "agentcore drives an Agent Task through a pending -> running -> {completed, wait_user, failed, max_cycles} state machine, composing a model, its tools, and an execution backend.",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	root.AddCommand(buildRunCmd(), buildResumeCmd(), buildServeWorkerCmd(), buildVersionCmd())
	return root
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the agentcore build version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "agentcore %s (commit: %s, built: %s)\n", version, commit, date)
			return nil
		},
	}
}

func buildRunCmd() *cobra.Command {
	var (
		configPath string
		prompt     string
		taskID     string
		backend    string
		workers    int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a new task to completion (or wait_user)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			env, err := buildEnvironment(cfg, backend, workers)
			if err != nil {
				return err
			}
			if taskID == "" {
				taskID = uuid.NewString()
			}
			task := &models.AgentTask{
				TaskID:     taskID,
				Model:      cfg.LLM.Providers[cfg.LLM.DefaultProvider].DefaultModel,
				UserPrompt: prompt,
				Messages:   []models.Message{{Role: models.RoleUser, Content: prompt}},
			}
			result, err := env.backend.RunTask(ctx, task)
			if err != nil {
				return fmt.Errorf("run task: %w", err)
			}
			printResult(cmd, result)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "agentcore.yaml", "Path to YAML configuration file")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "User prompt to run")
	cmd.Flags().StringVar(&taskID, "task-id", "", "Task ID to use (random if omitted)")
	cmd.Flags().StringVar(&backend, "backend", "inline", "Execution backend: inline, threadpool, distributed")
	cmd.Flags().IntVar(&workers, "workers", 4, "Worker count for the threadpool backend")
	return cmd
}

func buildResumeCmd() *cobra.Command {
	var (
		configPath string
		taskID     string
		answer     string
		backend    string
		workers    int
	)
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume a task suspended on wait_user with the user's answer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskID == "" {
				return fmt.Errorf("--task-id is required")
			}
			ctx := cmdContext(cmd)
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			env, err := buildEnvironment(cfg, backend, workers)
			if err != nil {
				return err
			}
			cp, err := env.store.Load(ctx, taskID)
			if err != nil {
				return fmt.Errorf("load checkpoint: %w", err)
			}
			task := &models.AgentTask{
				TaskID:   taskID,
				Model:    cfg.LLM.Providers[cfg.LLM.DefaultProvider].DefaultModel,
				Messages: append(cp.Messages, models.Message{Role: models.RoleUser, Content: answer}),
			}
			result, err := env.backend.RunTask(ctx, task)
			if err != nil {
				return fmt.Errorf("resume task: %w", err)
			}
			printResult(cmd, result)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "agentcore.yaml", "Path to YAML configuration file")
	cmd.Flags().StringVar(&taskID, "task-id", "", "Task ID to resume")
	cmd.Flags().StringVar(&answer, "answer", "", "The user's answer to the pending ask_user question")
	cmd.Flags().StringVar(&backend, "backend", "inline", "Execution backend: inline, threadpool, distributed")
	cmd.Flags().IntVar(&workers, "workers", 4, "Worker count for the threadpool backend")
	return cmd
}

func buildServeWorkerCmd() *cobra.Command {
	var (
		configPath string
		listen     string
		queueDepth int
	)
	cmd := &cobra.Command{
		Use:   "serve-worker",
		Short: "Serve a gRPC WorkQueue worker that dequeues and runs tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			rt, store, err := buildRuntime(cfg)
			if err != nil {
				return err
			}

			worker := execution.NewWorkQueueWorker(rt, store, slog.Default(), queueDepth)
			lis, err := net.Listen("tcp", listen)
			if err != nil {
				return fmt.Errorf("listen %s: %w", listen, err)
			}

			server := grpc.NewServer()
			execution.RegisterWorkQueueServer(server, worker)

			go worker.Run(ctx)

			errCh := make(chan error, 1)
			go func() { errCh <- server.Serve(lis) }()

			slog.Info("serve-worker: listening", "addr", listen)
			select {
			case <-ctx.Done():
				server.GracefulStop()
				return nil
			case err := <-errCh:
				return err
			}
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "agentcore.yaml", "Path to YAML configuration file")
	cmd.Flags().StringVarP(&listen, "listen", "l", ":7700", "Address to serve the WorkQueue gRPC service on")
	cmd.Flags().IntVar(&queueDepth, "queue-depth", 16, "In-memory buffer depth before Enqueue blocks")
	return cmd
}

// cmdContext returns a context cancelled on SIGINT/SIGTERM, matching every
// subcommand's graceful-shutdown behavior.
func cmdContext(cmd *cobra.Command) context.Context {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx
}

func printResult(cmd *cobra.Command, result models.AgentResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "task_id: %s\n", result.TaskID)
	fmt.Fprintf(out, "status:  %s\n", result.Status)
	if result.FinalAnswer != "" {
		fmt.Fprintf(out, "answer:  %s\n", result.FinalAnswer)
	}
	if result.Error != "" {
		fmt.Fprintf(out, "error:   %s\n", result.Error)
	}
	fmt.Fprintf(out, "cycles:  %d\n", len(result.Cycles))
}

// environment bundles every component a task run needs beyond the Agent
// Runtime itself.
type environment struct {
	backend execution.Backend
	store   statestore.Store
}

func buildEnvironment(cfg *config.Config, backendName string, workers int) (*environment, error) {
	rt, store, err := buildRuntime(cfg)
	if err != nil {
		return nil, err
	}

	var backend execution.Backend
	switch backendName {
	case "", "inline":
		backend = execution.NewInlineBackend(rt)
	case "threadpool":
		backend = execution.NewThreadPoolBackend(rt, workers)
	case "distributed":
		conn, err := grpc.NewClient(
			fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort),
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
		if err != nil {
			return nil, fmt.Errorf("dial work queue: %w", err)
		}
		client := execution.NewWorkQueueClient(conn)
		recipe := models.RuntimeRecipe{Backend: backendName, Model: cfg.LLM.Providers[cfg.LLM.DefaultProvider].DefaultModel}
		backend = execution.NewDistributedQueueBackend(client, store, recipe)
	default:
		return nil, fmt.Errorf("unknown backend %q", backendName)
	}

	return &environment{backend: backend, store: store}, nil
}

// buildRuntime wires a ChatClient, the tool registry, Planner, Cycle
// Runner, Memory Manager, and State Store into a single Agent Runtime,
// shared by every subcommand that needs one.
func buildRuntime(cfg *config.Config) (*agent.Runtime, statestore.Store, error) {
	client, err := buildChatClient(cfg)
	if err != nil {
		return nil, nil, err
	}

	registry := agent.NewToolRegistry()
	registry.Register(control.TaskFinishTool{})
	registry.Register(control.AskUserTool{})
	registry.Register(control.TodoWriteTool{})

	fileCfg := files.Config{Workspace: ".", MaxReadBytes: 1 << 20}
	registry.Register(files.NewReadTool(fileCfg))
	registry.Register(files.NewWriteTool(fileCfg))
	registry.Register(files.NewEditTool(fileCfg))
	registry.Register(files.NewApplyPatchTool(fileCfg))

	execManager := exec.NewManager(".")
	registry.Register(exec.NewExecTool("exec", execManager))
	registry.Register(exec.NewProcessTool(execManager))

	planner := agent.NewPlanner(registry, []string{"task_finish", "ask_user", "todo_write"})

	cycles := agent.NewCycleRunner(client, planner, agent.DefaultCycleRunnerConfig())

	summarizer := &agent.ChatClientSummarizer{Client: client, Model: cfg.LLM.Providers[cfg.LLM.DefaultProvider].DefaultModel}
	memory := agent.NewMemoryManager(summarizer, agent.DefaultMemoryManagerConfig())

	hooks := agent.NewHookManager()

	store, err := buildStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	rt := agent.NewRuntime(cycles, registry, memory, hooks, store, agent.DefaultRuntimeOptions())
	return rt, store, nil
}

func buildStore(cfg *config.Config) (statestore.Store, error) {
	if cfg.Database.URL == "" {
		return statestore.NewMemoryStore(), nil
	}
	store, err := statestore.NewSQLStore("postgres", cfg.Database.URL, statestore.DialectPostgres, nil)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	return store, nil
}

func buildChatClient(cfg *config.Config) (agent.ChatClient, error) {
	providerName := cfg.LLM.DefaultProvider
	providerCfg := cfg.LLM.Providers[providerName]

	switch providerName {
	case "", "anthropic":
		return providers.NewAnthropicProvider(providers.AnthropicConfig{
			APIKey:       providerCfg.APIKey,
			BaseURL:      providerCfg.BaseURL,
			DefaultModel: providerCfg.DefaultModel,
		})
	case "openai":
		return providers.NewOpenAIProvider(providerCfg.APIKey), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", providerName)
	}
}
