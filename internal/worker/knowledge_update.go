package worker

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/sbischoff-ai/exobrain/internal/config"
	"github.com/sbischoff-ai/exobrain/internal/contracts"
)

// KnowledgeUpdateHandler verifies connectivity to the knowledge interface
// before the update is handed off. The actual knowledge ingestion lives
// behind that service; a malformed payload is permanent, an unreachable
// downstream is transient.
func KnowledgeUpdateHandler(cfg config.Config) Handler {
	timeout := time.Duration(cfg.KnowledgeInterfaceConnectTimeout * float64(time.Second))
	return func(ctx context.Context, job contracts.JobEnvelope) error {
		if _, err := contracts.DecodeKnowledgeUpdatePayload(job.Payload); err != nil {
			return Permanent(err)
		}
		return probeGRPCTarget(ctx, cfg.KnowledgeInterfaceTarget, timeout)
	}
}

// probeGRPCTarget dials target and waits for the connection to become ready.
func probeGRPCTarget(ctx context.Context, target string, timeout time.Duration) error {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial knowledge interface %s: %w", target, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn.Connect()
	for {
		state := conn.GetState()
		if state == connectivity.Ready {
			return nil
		}
		if !conn.WaitForStateChange(ctx, state) {
			return fmt.Errorf("knowledge interface %s not reachable within %s", target, timeout)
		}
	}
}

// DefaultHandlers is the handler table for this deployment's job types.
func DefaultHandlers(cfg config.Config) map[string]Handler {
	return map[string]Handler{
		contracts.JobTypeKnowledgeUpdate: KnowledgeUpdateHandler(cfg),
	}
}
