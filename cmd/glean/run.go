package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/glean/internal/errors"
	"github.com/hpungsan/glean/internal/feed"
	"github.com/hpungsan/glean/internal/metrics"
	"github.com/hpungsan/glean/internal/pipeline"
	"github.com/hpungsan/glean/internal/prefs"
	"github.com/hpungsan/glean/internal/source"
	"github.com/hpungsan/glean/internal/web"
)

// newCoordinator builds a pipeline from config.
func newCoordinator(st *appState, m *metrics.Metrics) (*pipeline.Coordinator, error) {
	return pipeline.New(pipeline.Options{
		DB:               st.db,
		Prefs:            st.prefs,
		CacheCapacity:    st.cfg.DedupCapacity,
		ThrottleInterval: st.cfg.ThrottleInterval(),
		AsyncInserts:     st.cfg.AsyncInserts,
		QueueSize:        st.cfg.InsertQueueSize,
		Metrics:          m,
		Logger:           st.logger,
	})
}

// runCmd creates the run command: the long-lived observer.
func runCmd(st *appState) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Observe snapshot events and capture their text until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "nats-url", Usage: "NATS server to subscribe to (overrides nats_url)"},
			&cli.StringFlag{Name: "subject", Usage: "NATS subject (overrides nats_subject)"},
			&cli.BoolFlag{Name: "no-web", Usage: "Do not serve the web feed"},
			&cli.IntFlag{Name: "port", Usage: "Web port (overrides web_port)"},
		},
		Action: withState(st, func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runObserver(ctx, st, runOptions{
				natsURL: pick(c.String("nats-url"), st.cfg.NatsURL),
				subject: pick(c.String("subject"), st.cfg.NatsSubject),
				web:     !c.Bool("no-web"),
				port:    c.Int("port"),
			})
		}),
	}
}

type runOptions struct {
	natsURL string
	subject string
	web     bool
	port    int
}

// runObserver wires the pipeline, feed poller, event source and web server
// and supervises them until ctx ends or one of them fails.
func runObserver(ctx context.Context, st *appState, opts runOptions) error {
	log := st.logger
	m := metrics.New()

	coord, err := newCoordinator(st, m)
	if err != nil {
		return outputError(errors.NewInternal(err))
	}

	holder := &feed.Holder{}
	poller := &feed.Poller{
		DB:       st.db,
		Limit:    st.cfg.RecentLimit,
		Interval: st.cfg.PollInterval(),
		Saved:    coord.Saved,
		Prefs:    st.prefs,
		Publish:  holder.Publish,
		Logger:   log,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := poller.Run(gctx); err != nil && !isCancel(err) {
			return err
		}
		return nil
	})

	if opts.natsURL != "" {
		src := &source.NATS{URL: opts.natsURL, Subject: opts.subject, Sink: coord, Logger: log}
		g.Go(func() error { return src.Run(gctx) })
	} else {
		log.Warn("no event source configured; set nats_url or use 'glean ingest'")
	}

	if opts.web {
		port := st.cfg.WebPort
		if opts.port != 0 {
			port = opts.port
		}
		srv, err := web.NewServer(web.Options{
			DB:      st.db,
			Prefs:   st.prefs,
			Stats:   coord,
			Feed:    holder,
			Metrics: m.Handler(),
			Version: Version,
			Logger:  log,
		}, st.cfg.WebBind, port)
		if err != nil {
			return outputError(errors.NewInternal(err))
		}
		g.Go(func() error { return web.Run(gctx, srv, log) })
	}

	enabled, err := st.prefs.Enabled(ctx)
	switch {
	case err != nil:
		log.Warn("reading enabled flag failed", "err", err)
	case enabled:
		fmt.Fprintln(os.Stderr, color.GreenString("glean %s observing (capture enabled)", Version))
	default:
		fmt.Fprintln(os.Stderr, color.YellowString("glean %s observing (capture disabled; run 'glean enable')", Version))
	}

	runErr := g.Wait()

	// Drain queued inserts, then record the final count.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := coord.Close(shutdownCtx); err != nil {
		log.Warn("draining insert queue failed", "err", err)
	}
	if err := st.prefs.SetCounter(shutdownCtx, prefs.SavedCount, coord.Saved()); err != nil {
		log.Warn("saving counter failed", "err", err)
	}

	stats := coord.Stats()
	log.Info("observer stopped",
		"events", stats.Events,
		"processed", stats.Processed,
		"throttled", stats.Throttled,
		"saved", stats.Saved,
	)

	if runErr != nil && !isCancel(runErr) {
		return outputError(errors.NewInternal(runErr))
	}
	return nil
}

// ingestCmd creates the ingest command: replay snapshot files as events.
func ingestCmd(st *appState) *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Feed snapshot files (.json, .yaml) through the pipeline as events",
		ArgsUsage: "<file>...",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "gap", Usage: "Wait between files (default: throttle interval)"},
		},
		Action: withState(st, func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("at least one snapshot file is required"))
			}

			gap := c.Duration("gap")
			if !c.IsSet("gap") {
				gap = st.cfg.ThrottleInterval()
			}

			coord, err := newCoordinator(st, nil)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			results, replayErr := source.ReplayFiles(c.Context, coord, c.Args().Slice(), gap)
			if err := coord.Close(context.Background()); err != nil {
				st.logger.Warn("draining insert queue failed", "err", err)
			}
			if replayErr != nil {
				return outputError(errors.NewInvalidRequest(replayErr.Error()))
			}

			for _, r := range results {
				if r.Result.Outcome == pipeline.OutcomeDisabled {
					fmt.Fprintln(c.App.ErrWriter, color.YellowString("capture is disabled; run 'glean enable' first"))
					break
				}
			}
			return outputJSON(c, map[string]any{
				"files": results,
				"saved": coord.Saved(),
			})
		}),
	}
}

// watchCmd creates the watch command: a terminal view of the feed.
func watchCmd(st *appState) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Print new captures as they are stored, until interrupted",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "interval", Usage: "Refresh interval (default poll_interval_ms)"},
		},
		Action: withState(st, func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			interval := c.Duration("interval")
			if interval <= 0 {
				interval = st.cfg.PollInterval()
			}

			var printer feedPrinter
			poller := &feed.Poller{
				DB:       st.db,
				Limit:    st.cfg.RecentLimit,
				Interval: interval,
				Publish:  func(s feed.Snapshot) { printer.print(c.App.Writer, s) },
				Logger:   st.logger,
			}
			if err := poller.Run(ctx); err != nil && !isCancel(err) {
				return outputError(errors.NewInternal(err))
			}
			return nil
		}),
	}
}

func isCancel(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

func pick(override, base string) string {
	if override != "" {
		return override
	}
	return base
}
