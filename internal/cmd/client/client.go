package clientcmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	jobsv1 "github.com/sbischoff-ai/exobrain/api/jobs/v1"
)

func targetFromFlags(cmd *cobra.Command) string {
	target, _ := cmd.Flags().GetString("target")
	if target != "" {
		return target
	}
	if v := os.Getenv("JOB_ORCHESTRATOR_API_TARGET"); v != "" {
		return v
	}
	return "localhost:50052"
}

func withClient(cmd *cobra.Command, fn func(ctx context.Context, cli jobsv1.JobOrchestratorClient) error) error {
	conn, err := grpc.NewClient(targetFromFlags(cmd), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx := cmd.Context()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx, jobsv1.NewJobOrchestratorClient(conn))
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String("target", "", "gRPC target of the job orchestrator API (default localhost:50052)")
	cmd.Flags().Duration("timeout", 30*time.Second, "Request timeout (0 for none)")
}

// NewEnqueueCommand submits a job and prints the assigned job id.
func NewEnqueueCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Enqueue a job",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobType, _ := cmd.Flags().GetString("job-type")
			userID, _ := cmd.Flags().GetString("user-id")
			payload, _ := cmd.Flags().GetString("payload")
			payloadFile, _ := cmd.Flags().GetString("payload-file")
			if payloadFile != "" {
				b, err := os.ReadFile(payloadFile)
				if err != nil {
					return err
				}
				payload = string(b)
			}
			req := &jobsv1.EnqueueJobRequest{JobType: jobType, UserID: userID}
			if jobType == "knowledge.update" && payload != "" {
				var typed jobsv1.KnowledgeUpdatePayload
				if err := json.Unmarshal([]byte(payload), &typed); err != nil {
					return fmt.Errorf("decode knowledge.update payload: %w", err)
				}
				req.KnowledgeUpdate = &typed
			} else {
				req.PayloadJSON = payload
			}
			return withClient(cmd, func(ctx context.Context, cli jobsv1.JobOrchestratorClient) error {
				reply, err := cli.EnqueueJob(ctx, req)
				if err != nil {
					return err
				}
				fmt.Println(reply.JobID)
				return nil
			})
		},
	}
	addCommonFlags(cmd)
	cmd.Flags().String("job-type", "", "Registered job type, e.g. knowledge.update")
	cmd.Flags().String("user-id", "", "Requesting user id (correlation id)")
	cmd.Flags().String("payload", "", "Inline JSON payload")
	cmd.Flags().String("payload-file", "", "Path to a JSON payload file")
	_ = cmd.MarkFlagRequired("job-type")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

// NewStatusCommand prints the current status of a job.
func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Get the current status of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, cli jobsv1.JobOrchestratorClient) error {
				reply, err := cli.GetJobStatus(ctx, &jobsv1.GetJobStatusRequest{JobID: args[0]})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), reply)
			})
		},
	}
	addCommonFlags(cmd)
	return cmd
}

// NewWatchCommand streams status events for a job until it is terminal.
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Stream status events for a job until it reaches a terminal state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			includeCurrent, _ := cmd.Flags().GetBool("include-current")
			return withClient(cmd, func(ctx context.Context, cli jobsv1.JobOrchestratorClient) error {
				stream, err := cli.WatchJobStatus(ctx, &jobsv1.WatchJobStatusRequest{
					JobID:          args[0],
					IncludeCurrent: includeCurrent,
				})
				if err != nil {
					return err
				}
				for {
					ev, err := stream.Recv()
					if err == io.EOF {
						return nil
					}
					if err != nil {
						return err
					}
					if err := printJSON(cmd.OutOrStdout(), ev); err != nil {
						return err
					}
				}
			})
		},
	}
	addCommonFlags(cmd)
	cmd.Flags().Bool("include-current", true, "Yield the current snapshot before live events")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
