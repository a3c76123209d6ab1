// Command gateway loads a provider config, builds one generation, and
// runs a sample request through the pipeline — a thin demonstration
// harness in the same spirit as the example-driven main.go this module
// started from, not a long-running server (front-end framing is out of
// scope).
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/relayhq/llmgateway/gateway"
	"github.com/relayhq/llmgateway/gateway/adapters"
	"github.com/relayhq/llmgateway/gateway/expand"
	"github.com/relayhq/llmgateway/gateway/pipeline"
	"github.com/relayhq/llmgateway/gateway/preprocess"
	"github.com/relayhq/llmgateway/gateway/registry"
	"github.com/relayhq/llmgateway/gateway/router"
	"github.com/relayhq/llmgateway/gateway/transform"
)

func main() {
	configPath := os.Getenv("GATEWAY_CONFIG")
	if configPath == "" {
		configPath = "gateway.yaml"
	}

	cfg, err := gateway.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("load config %s: %v", configPath, err)
	}

	logger := gateway.NewStdLogger(gateway.LogLevelInfo)

	orch, _, err := buildOrchestrator(cfg, logger)
	if err != nil {
		log.Fatalf("build gateway: %v", err)
	}

	req := &gateway.Request{
		VirtualModel: "default",
		Messages: []gateway.Message{
			{Role: gateway.RoleUser, Text: "What is the capital of Vietnam?"},
		},
		Sampling: gateway.Sampling{Temperature: floatPtr(0.7)},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := orch.Execute(ctx, req)
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}

	fmt.Printf("served by %s\n", resp.Metadata.ProviderServed)
	if len(resp.Choices) > 0 {
		fmt.Println(resp.Choices[0].Message.Content)
	}
}

// buildOrchestrator wires every component package into one runnable
// Orchestrator: expand providers into workers, rewrite the routing
// table against them, register the workers, and construct the router,
// transform registry, preprocessor, and adapter set around them.
func buildOrchestrator(cfg *gateway.GatewayConfig, logger gateway.Logger) (*pipeline.Orchestrator, *gateway.GenerationStore, error) {
	expanded, err := expand.Expand(cfg.Providers, logger)
	if err != nil {
		return nil, nil, err
	}

	gen := &gateway.Generation{
		ID:           1,
		CreatedAt:    time.Now(),
		Workers:      expanded.Workers,
		WorkersByID:  make(map[string]*gateway.Worker, len(expanded.Workers)),
		RoutingTable: expand.RewriteRoutingTable(cfg.RoutingTable, expanded.Workers),
	}
	for _, w := range expanded.Workers {
		gen.WorkersByID[w.WorkerID] = w
	}
	store := gateway.NewGenerationStore(gen)

	reg := registry.New(registry.Config{
		RateLimitCooldown: cfg.RateLimitCooldown,
		AuthRetryCooldown: cfg.AuthRetryCooldown,
	}, logger, nil)
	if err := reg.RegisterAll(expanded.Workers); err != nil {
		return nil, nil, err
	}

	rt := router.New(reg, cfg.SelectionPolicy, cfg.LongContextTokens, logger)

	adapters, err := pipeline.BuildAdapters(context.Background(), expanded.Workers, defaultRetryPolicy())
	if err != nil {
		return nil, nil, err
	}

	orch := pipeline.New(store, reg, rt, transform.NewRegistry(), preprocess.Default(), adapters, logger)
	return orch, store, nil
}

func defaultRetryPolicy() adapters.RetryPolicy {
	return adapters.RetryPolicy{MaxRetries: 2, BaseDelay: 250 * time.Millisecond, MaxDelay: 10 * time.Second}
}

func floatPtr(f float64) *float64 { return &f }
