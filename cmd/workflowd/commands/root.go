package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/algowizzzz/agentsmcp/internal/agentregistry"
	wfconfig "github.com/algowizzzz/agentsmcp/internal/config"
	"github.com/algowizzzz/agentsmcp/internal/dagregistry"
	"github.com/algowizzzz/agentsmcp/internal/llm"
	"github.com/algowizzzz/agentsmcp/internal/orchestrator"
	"github.com/algowizzzz/agentsmcp/internal/store"
	"github.com/algowizzzz/agentsmcp/internal/telemetry"
	"github.com/algowizzzz/agentsmcp/internal/toolregistry"
)

var (
	cfgFile string
	cfg     *wfconfig.Config

	zapLog  *zap.Logger
	metrics *telemetry.PrometheusMetrics

	dagReg   *dagregistry.Registry
	toolReg  *toolregistry.Registry
	agentReg *agentregistry.Registry
	facade   *llm.Facade
	dataStore store.Store
	orch     *orchestrator.Orchestrator
)

var rootCmd = &cobra.Command{
	Use:   "workflowd",
	Short: "DAG workflow execution engine",
	Long: `workflowd loads declarative workflow graphs, dispatches their nodes to
tools/agents/LLMs with human-in-the-loop gating, and persists execution
state so workflows can be inspected or resumed.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return wireCollaborators()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		shutdown()
	},
}

// Execute runs the root command, exiting the process with status 1 on
// failure, matching rootCmd.Execute()'s os.Exit(1) convention in the
// go-coffee task-cli example.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./workflowd.yaml)")
	rootCmd.PersistentFlags().String("store-driver", "", "override store.driver (embedded|postgres)")
	_ = viper.BindPFlag("store.driver", rootCmd.PersistentFlags().Lookup("store-driver"))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateDAGCmd)
	rootCmd.AddCommand(listDAGsCmd)
	rootCmd.AddCommand(listToolsCmd)
	rootCmd.AddCommand(listAgentsCmd)
}

func wireCollaborators() error {
	var err error
	cfg, err = wfconfig.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if driver, _ := rootCmd.PersistentFlags().GetString("store-driver"); driver != "" {
		cfg.Store.Driver = driver
	}

	if cfg.LogLevel == "debug" {
		zapLog, err = zap.NewDevelopment()
	} else {
		zapLog, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	switch cfg.Store.Driver {
	case "postgres":
		pg, err := store.NewPostgresStore(context.Background(), cfg.Store.DSN)
		if err != nil {
			return fmt.Errorf("connect postgres store: %w", err)
		}
		dataStore = pg
	default:
		dataStore = store.NewMemoryStore(cfg.Store.Path)
	}

	dagReg, err = dagregistry.New(cfg.Dirs.DAGs)
	if err != nil {
		return fmt.Errorf("load dag registry: %w", err)
	}
	toolReg = toolregistry.New(cfg.Dirs.LocalTools, cfg.Dirs.RemoteTools, toolregistry.DefaultFactories())
	facade = llm.New(cfg.LLM.ConfigPath, llm.WithLogger(zapLog))
	agentReg = agentregistry.New(cfg.Dirs.Agents, facade)

	metrics = telemetry.NewPrometheusMetrics()

	orch = orchestrator.New(dataStore, toolReg, agentReg,
		orchestrator.WithLogger(telemetry.NewZapLogger(zapLog)),
		orchestrator.WithMetrics(metrics),
		orchestrator.WithDebugDir(cfg.Dirs.WorkflowDebug),
	)

	if err := orch.RecoverOrphans(context.Background()); err != nil {
		return fmt.Errorf("recover orphaned workflows: %w", err)
	}

	return nil
}

func shutdown() {
	if facade != nil {
		facade.Stop()
	}
	if zapLog != nil {
		_ = zapLog.Sync()
	}
}
