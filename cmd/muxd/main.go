package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/submux/internal/config"
	"github.com/rickgao/submux/internal/database"
	"github.com/rickgao/submux/internal/model"
	"github.com/rickgao/submux/internal/mux"
	"github.com/rickgao/submux/internal/recorder"
	"github.com/rickgao/submux/internal/transport"
	"github.com/rickgao/submux/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/muxd.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting muxd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"venue_url", cfg.Venue.WSURL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	sink := &pipelineSink{logger: logger}

	// Optional data recorder
	var rec *recorder.Recorder
	if cfg.Recorder.Enabled {
		pool, err := database.Connect(ctx, cfg.Database, cfg.Instance.ID)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		sink.buf = recorder.NewGrowableBuffer[*model.Message](cfg.Recorder.BufferSize)
		rec = recorder.NewRecorder(recorder.Config{
			BatchSize:     cfg.Recorder.BatchSize,
			FlushInterval: cfg.Recorder.FlushInterval,
			BufferSize:    cfg.Recorder.BufferSize,
		}, sink.buf, pool, logger)
		if err := rec.Start(ctx); err != nil {
			logger.Error("failed to start recorder", "error", err)
			os.Exit(1)
		}
	}

	supported := make([]model.MessageType, 0, len(cfg.Venue.SupportedResults))
	for _, t := range cfg.Venue.SupportedResults {
		supported = append(supported, model.MessageType(t))
	}
	venue := transport.NewVenue(transport.VenueConfig{
		SupportedResults:       supported,
		SubscriptionBySecurity: cfg.Venue.SubscriptionBySecurity,
	})

	adapter, err := mux.NewAdapter(mux.Options{
		RestoreOnErrorReconnect:      cfg.Mux.RestoreOnErrorReconnect,
		RestoreOnNormalReconnect:     cfg.Mux.RestoreOnNormalReconnect,
		SupportMultipleSubscriptions: cfg.Mux.SupportMultipleSubscriptions,
		NonExistSubscriptionAsError:  cfg.Mux.NonExistSubscriptionAsError,
		LookupTimeout:                cfg.Mux.LookupTimeout,
	}, venue, sink, logger)
	if err != nil {
		logger.Error("failed to create adapter", "error", err)
		os.Exit(1)
	}
	sink.bind(adapter)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return superviseVenue(gctx, cfg, venue, adapter, logger)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("muxd exited with error", "error", err)
	}

	if rec != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := rec.Stop(stopCtx); err != nil {
			logger.Warn("recorder stop failed", "error", err)
		}
	}

	logger.Info("muxd stopped", "stats", adapter.Stats())
}

// superviseVenue owns the venue connection lifecycle: dial, feed the
// adapter's outbound port, and reconnect with exponential backoff,
// injecting Disconnect/Connect lifecycle messages so the adapter can
// run its replay machinery.
func superviseVenue(ctx context.Context, cfg *config.MuxdConfig, venue *transport.Venue, adapter mux.Adapter, logger *slog.Logger) error {
	clientCfg := transport.ClientConfig{
		URL:          cfg.Venue.WSURL,
		PingInterval: cfg.Venue.PingInterval,
		PingTimeout:  cfg.Venue.PingTimeout,
		WriteTimeout: cfg.Venue.WriteTimeout,
		BufferSize:   cfg.Venue.BufferSize,
	}

	wait := cfg.Venue.ReconnectBaseDelay
	first := true

	for {
		client := transport.NewClient(clientCfg, logger)
		if err := client.Connect(ctx); err != nil {
			logger.Warn("venue connect failed", "error", err)
		} else {
			venue.Rebind(client)
			wait = cfg.Venue.ReconnectBaseDelay

			if err := adapter.HandleOut(&model.Message{Type: model.TypeConnect, LocalTime: time.Now()}); err != nil {
				logger.Error("connect dispatch failed", "error", err)
			}
			if first {
				first = false
				issueInitial(cfg, venue, adapter, logger)
			}

			if err := readVenue(ctx, client, adapter, logger); err != nil {
				client.Close()
				return err
			}
			client.Close()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
		if wait > cfg.Venue.ReconnectMaxDelay {
			wait = cfg.Venue.ReconnectMaxDelay
		}
	}
}

// readVenue pumps decoded envelopes into the adapter until the
// connection dies or the context is cancelled. A nil return means the
// caller should reconnect.
func readVenue(ctx context.Context, client transport.Client, adapter mux.Adapter, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-client.Errors():
			logger.Warn("venue connection lost", "error", err)
			if err := adapter.SendIn(&model.Message{Type: model.TypeDisconnect}); err != nil {
				logger.Debug("disconnect dispatch", "error", err)
			}
			return nil

		case tm, ok := <-client.Messages():
			if !ok {
				return nil
			}
			if err := adapter.HandleOut(tm.Msg); err != nil {
				logger.Error("outbound dispatch failed", "type", tm.Msg.Type, "error", err)
			}
		}
	}
}

// issueInitial sends the config-declared subscriptions and lookups
// through the inbound port.
func issueInitial(cfg *config.MuxdConfig, venue *transport.Venue, adapter mux.Adapter, logger *slog.Logger) {
	for _, sub := range cfg.Subscriptions {
		msg := &model.Message{
			TxID:        venue.NextTxID(),
			IsSubscribe: true,
		}
		switch sub.Type {
		case "market_data":
			msg.Type = model.TypeMarketData
			msg.DataType = model.DataType(sub.DataType)
			msg.SecurityID = model.SecurityID{Code: sub.SecurityCode, Board: sub.SecurityBoard}
			msg.Arg = sub.Arg
			msg.NewsID = sub.NewsID
			msg.BoardCode = sub.BoardCode
		case "portfolio":
			msg.Type = model.TypePortfolio
			msg.PortfolioName = sub.PortfolioName
		case "order_status":
			msg.Type = model.TypeOrderStatus
		case "portfolio_lookup":
			msg.Type = model.TypePortfolioLookup
			msg.PortfolioName = sub.PortfolioName
		}
		if err := adapter.SendIn(msg); err != nil {
			logger.Warn("initial subscription failed", "type", msg.Type, "error", err)
		}
	}

	for _, lk := range cfg.Lookups {
		msg := &model.Message{TxID: venue.NextTxID()}
		switch lk.Kind {
		case "securities":
			msg.Type = model.TypeSecurityLookup
		case "boards":
			msg.Type = model.TypeBoardLookup
		case "time_frames":
			msg.Type = model.TypeTimeFrameLookup
		case "portfolios":
			msg.Type = model.TypePortfolioLookup
			msg.IsSubscribe = true
		}
		if err := adapter.SendIn(msg); err != nil {
			logger.Warn("initial lookup failed", "type", msg.Type, "error", err)
		}
	}
}

// pipelineSink is the upstream port: it records taggable data messages
// and loops re-injected messages back into the adapter.
type pipelineSink struct {
	logger *slog.Logger
	buf    *recorder.GrowableBuffer[*model.Message]

	mu      sync.RWMutex
	adapter mux.Adapter
}

func (s *pipelineSink) bind(adapter mux.Adapter) {
	s.mu.Lock()
	s.adapter = adapter
	s.mu.Unlock()
}

// RaiseNewOut delivers an outbound message to the client layer. muxd has
// no interactive clients; data messages go to the recorder when enabled.
func (s *pipelineSink) RaiseNewOut(msg *model.Message) {
	s.logger.Debug("out",
		"type", msg.Type,
		"original_tx", msg.OriginalTxID,
		"subscribers", len(msg.SubscriptionIDs),
	)
	if s.buf != nil && recorder.Recordable(msg.Type) {
		s.buf.Send(msg)
	}
}

// OnSendIn re-enters a replayed message into the inbound pipeline.
func (s *pipelineSink) OnSendIn(msg *model.Message) {
	s.mu.RLock()
	adapter := s.adapter
	s.mu.RUnlock()

	if adapter == nil {
		return
	}
	if err := adapter.SendIn(msg); err != nil {
		s.logger.Warn("re-entry failed", "type", msg.Type, "tx", msg.TxID, "error", err)
	}
}
