// Package main runs the protocol keepers: the conversion bot, the NAV
// updater and the event watcher, plus a /health, /metrics and /status
// listener.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"stablebond-keeper/internal/address"
	"stablebond-keeper/internal/config"
	"stablebond-keeper/internal/keeper"
	"stablebond-keeper/internal/logging"
	"stablebond-keeper/internal/solana"
	"stablebond-keeper/internal/stablebond"
	"stablebond-keeper/internal/watcher"
)

func main() {
	configPath := flag.String("config", os.Getenv("STABLEBOND_CONFIG"), "Path to TOML config file")
	once := flag.Bool("once", false, "Run one tick of each enabled keeper and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *once {
		cfg.Keeper.EnableWatcher = false
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, closer := logging.New(cfg.Log, "stablebond-keeper")
	defer closer.Close()
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *once, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("keeper exited", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, once bool, logger *slog.Logger) error {
	commitment := solana.Commitment(cfg.Solana.Commitment)
	rpc := solana.NewHTTPClient(cfg.Solana.RPCURL,
		solana.WithTimeout(cfg.Solana.Timeout.Duration),
		solana.WithMaxRetries(cfg.Solana.MaxRetries),
		solana.WithCommitment(commitment),
		solana.WithRateLimit(cfg.Solana.RateLimit, cfg.Solana.RateBurst),
	)
	deriver := address.NewDeriver(cfg.CorePublicKey(), cfg.YieldPublicKey())
	client := stablebond.NewClient(rpc, deriver)

	st, cleanup, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	recorder := keeper.NewRecorder(st.runs, st.actions, logger)

	var tasks []*keeper.Task
	if cfg.Keeper.EnableConversion || cfg.Keeper.EnableNav {
		payer, err := solana.LoadKeypairFile(cfg.Solana.KeypairPath)
		if err != nil {
			return fmt.Errorf("load keeper keypair: %w", err)
		}
		logger.Info("keeper identity", slog.String("pubkey", payer.PublicKey().String()))
		sender := solana.NewSender(rpc, payer, solana.WithConfirmation(commitment, cfg.Keeper.ConfirmTimeout.Duration))

		if cfg.Keeper.EnableConversion {
			bot := keeper.NewConversionBot(keeper.ConversionBotOptions{
				Client: client, Sender: sender, Recorder: recorder, Logger: logger,
			})
			tasks = append(tasks, bot.Task(keeper.TaskOptions{
				Interval: cfg.Keeper.ConversionInterval.Duration, Locker: st.locker, Logger: logger,
			}))
		}
		if cfg.Keeper.EnableNav {
			updater := keeper.NewNavUpdater(keeper.NavUpdaterOptions{
				Client: client, Sender: sender, Recorder: recorder, Logger: logger,
			})
			tasks = append(tasks, updater.Task(keeper.TaskOptions{
				Interval: cfg.Keeper.NavInterval.Duration, Locker: st.locker, Logger: logger,
			}))
		}
	}

	if once {
		var errs []error
		for _, t := range tasks {
			if err := t.RunOnce(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", t.Name(), err))
			}
		}
		return errors.Join(errs...)
	}

	var w *watcher.Watcher
	if cfg.Keeper.EnableWatcher {
		wsCfg := solana.DefaultWSConfig()
		wsCfg.Logger = logger
		ws, err := solana.NewWSClient(ctx, cfg.Solana.WSURL, &wsCfg)
		if err != nil {
			return fmt.Errorf("connect websocket: %w", err)
		}
		defer ws.Close()
		w = watcher.New(watcher.Options{
			WS:          ws,
			Program:     cfg.CorePublicKey(),
			Commitment:  commitment,
			Navs:        st.navs,
			Conversions: st.conversions,
			Logger:      logger,
		})
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, t := range tasks {
		g.Go(func() error {
			return t.Run(ctx)
		})
	}
	if w != nil {
		g.Go(func() error {
			return w.Run(ctx)
		})
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newMux(recorder, time.Now()),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		logger.Info("http listening", slog.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
