package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	clientcmd "github.com/sbischoff-ai/exobrain/internal/cmd/client"
	serverrun "github.com/sbischoff-ai/exobrain/internal/cmd/server"
	"github.com/sbischoff-ai/exobrain/internal/config"
	"github.com/sbischoff-ai/exobrain/internal/contracts"
	"github.com/sbischoff-ai/exobrain/internal/worker"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "jobsd",
		Short: "Exobrain job orchestrator",
		Long:  "jobsd runs the exobrain job orchestrator: the gRPC ingress API, the queue worker, and client utilities.",
	}

	apiCmd := &cobra.Command{
		Use:   "api",
		Short: "Run the gRPC ingress API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger := serverrun.NewLogger(cfg)
			logger.WithField("app_env", cfg.AppEnv).Info("starting job orchestrator api")
			return serverrun.RunAPI(cmd.Context(), cfg, logger)
		},
	}
	rootCmd.AddCommand(apiCmd)

	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the queue worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger := serverrun.NewLogger(cfg)
			logger.WithField("app_env", cfg.AppEnv).Info("starting job orchestrator worker")
			return serverrun.RunWorker(cmd.Context(), cfg, logger)
		},
	}
	rootCmd.AddCommand(workerCmd)

	runJobCmd := &cobra.Command{
		Use:    "run-job",
		Short:  "Execute a single job envelope (used by the process runner)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetString("envelope")
			job, err := contracts.DecodeJobEnvelope([]byte(raw))
			if err != nil {
				// An envelope the parent already decoded should never fail
				// here; if it does, retrying the subprocess cannot help.
				fmt.Fprintln(os.Stderr, err)
				os.Exit(worker.PermanentExitCode)
			}
			cfg := config.Load()
			runner := worker.NewHandlerRunner(worker.DefaultHandlers(cfg))
			if err := runner.RunJob(cmd.Context(), job); err != nil {
				fmt.Fprintln(os.Stderr, err)
				if worker.IsPermanent(err) {
					os.Exit(worker.PermanentExitCode)
				}
				os.Exit(1)
			}
			return nil
		},
	}
	runJobCmd.Flags().String("envelope", "", "Serialized JobEnvelope JSON")
	_ = runJobCmd.MarkFlagRequired("envelope")
	rootCmd.AddCommand(runJobCmd)

	rootCmd.AddCommand(clientcmd.NewEnqueueCommand())
	rootCmd.AddCommand(clientcmd.NewStatusCommand())
	rootCmd.AddCommand(clientcmd.NewWatchCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
