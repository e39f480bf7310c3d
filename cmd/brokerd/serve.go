package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dxlfabric/brokerd/pkg/broker"
	"github.com/dxlfabric/brokerd/pkg/codec"
	"github.com/dxlfabric/brokerd/pkg/config"
	"github.com/dxlfabric/brokerd/pkg/finalize"
	"github.com/dxlfabric/brokerd/pkg/log"
	"github.com/dxlfabric/brokerd/pkg/metrics"
	"github.com/dxlfabric/brokerd/pkg/syncproto"
	"github.com/dxlfabric/brokerd/pkg/tenant"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the broker registry and state-sync daemon",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("config", "", "Path to YAML config file (required)")
	serveCmd.MarkFlagRequired("config")
}

// loggingPublisher stands in for the transport/dispatcher collaborator:
// it logs every outgoing sync event instead of putting it on the wire.
// A real deployment replaces this with a Publisher backed by the broker's
// bridge connections.
type loggingPublisher struct {
	runID string
}

func (p *loggingPublisher) Publish(channel string, payload codec.Node) error {
	log.WithRunID(p.runID).Debug().
		Str("channel", channel).
		Interface("payload", payload).
		Msg("dispatch publish")
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	runID := uuid.New().String()
	logger := log.WithRunID(runID)
	logger = logger.With().Str("broker_id", cfg.Broker.ID).Logger()
	logger.Info().Msg("starting brokerd")

	descriptor := broker.Descriptor{
		ID:                  cfg.Broker.ID,
		Hostname:            cfg.Broker.Hostname,
		Port:                cfg.Broker.Port,
		WSPort:              cfg.Broker.WSPort,
		Version:             cfg.Broker.Version,
		PolicyHostname:      cfg.Broker.PolicyHostname,
		PolicyIP:            cfg.Broker.PolicyIP,
		PolicyPort:          cfg.Broker.PolicyPort,
		TopicRoutingEnabled: cfg.Broker.TopicRoutingEnabled,
		TTLMinutes:          cfg.Broker.TTLMinutes,
		StartTime:           time.Now().Unix(),
	}

	registry := broker.NewRegistry(descriptor)
	publisher := &loggingPublisher{runID: runID}

	protocol := syncproto.New(registry, publisher, cfg.Protocol.TopicsBatchBytes)
	tenantMetrics := tenant.New(tenant.Limits{
		ConnectionLimit:   cfg.Tenant.ConnectionLimit,
		ServiceLimit:      cfg.Tenant.ServiceLimit,
		SubscriptionLimit: cfg.Tenant.SubscriptionLimit,
		ByteLimit:         cfg.Tenant.ByteLimit,
	}, publisher)
	finalizeFilter := finalize.New(registry.LocalID(), publisher)
	logger.Info().
		Int("connection_limit", cfg.Tenant.ConnectionLimit).
		Int("service_limit", cfg.Tenant.ServiceLimit).
		Int("subscription_limit", cfg.Tenant.SubscriptionLimit).
		Uint32("byte_limit", cfg.Tenant.ByteLimit).
		Msg("tenant admission limits configured")

	// tenantMetrics and finalizeFilter are exercised by the transport layer
	// on the client connect/subscribe/publish paths once one is attached;
	// this daemon only owns their lifecycle.
	_ = tenantMetrics
	_ = finalizeFilter

	registry.Observe(func(c broker.Change) {
		logger.Debug().
			Str("kind", c.Kind.String()).
			Str("broker_id", c.BrokerID).
			Msg("registry change")
		protocol.MarkDirty()
	})

	metrics.SetVersion(cfg.Broker.Version)
	metrics.RegisterComponent("registry", true, "ready")
	metrics.RegisterComponent("transport", true, "logging stand-in active")
	metrics.RegisterComponent("dispatch", true, "ready")
	protocol.RefreshGauges()

	go protocol.RunCoalescedEmitter(cfg.Protocol.CoalesceWindow)
	go protocol.RunTTLSweep(cfg.Protocol.SweepInterval)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())

	httpServer := &http.Server{
		Addr:    cfg.Listen.MetricsAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server error: %w", err)
		}
	}()
	logger.Info().Str("addr", cfg.Listen.MetricsAddr).Msg("metrics endpoint ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Msg("serving error")
	}

	protocol.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down metrics server: %w", err)
	}

	logger.Info().Msg("brokerd stopped")
	return nil
}
