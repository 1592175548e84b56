package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/osisim/internal/config"
	"firestige.xyz/osisim/internal/core"
	"firestige.xyz/osisim/internal/identity"
	"firestige.xyz/osisim/internal/log"
	"firestige.xyz/osisim/internal/metrics"
	"firestige.xyz/osisim/internal/pipeline"
)

type benchOptions struct {
	rounds  int
	workers int
	serve   bool
}

var benchOpts benchOptions

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run concurrent round trips through one shared stack",
	Long: `Run N send/receive round trips spread over W goroutines sharing a
single pipeline, then print the pipeline counters.

With --serve the Prometheus endpoint from the metrics section stays up
until interrupted.

Examples:
  osisim bench -n 10000 -w 8
  osisim bench -n 1000 --serve -c config.yml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runBench(ctx, globalConfig, benchOpts, cmd.OutOrStdout())
	},
}

func init() {
	benchCmd.Flags().IntVarP(&benchOpts.rounds, "rounds", "n", 1000, "number of round trips")
	benchCmd.Flags().IntVarP(&benchOpts.workers, "workers", "w", 4, "number of concurrent workers")
	benchCmd.Flags().BoolVar(&benchOpts.serve, "serve", false, "keep serving metrics until interrupted")
}

func runBench(ctx context.Context, cfg *config.GlobalConfig, opts benchOptions, out io.Writer) error {
	if opts.rounds <= 0 || opts.workers <= 0 {
		return fmt.Errorf("rounds and workers must be positive")
	}

	var server *metrics.Server
	if opts.serve {
		server = metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := server.Start(); err != nil {
			return err
		}
		defer server.Stop(context.Background())
	}

	// Per-step traces would drown the summary.
	p, err := pipeline.FromConfig(cfg.Stack).WithObservers(metrics.Observer{}).Build()
	if err != nil {
		return err
	}
	senderID := identity.Resolve(cfg.Stack.Sender)
	latency := metrics.RoundTripSeconds.WithLabelValues(cfg.Stack.Profile)

	jobs := make(chan int)
	var (
		wg         sync.WaitGroup
		mismatches sync.Map
	)
	start := time.Now()
	for w := 0; w < opts.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				msg := fmt.Sprintf("round %d", i)
				t0 := time.Now()
				wire, err := p.Send(core.TextPayload(msg), core.Metadata{SenderID: senderID})
				if err != nil {
					continue
				}
				got, err := p.Receive(wire)
				if err != nil {
					continue
				}
				latency.Observe(time.Since(t0).Seconds())
				if got.String() != msg {
					mismatches.Store(i, got.String())
				}
			}
		}()
	}

feed:
	for i := 0; i < opts.rounds; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(start)

	snap := p.Metrics().Snapshot()
	fmt.Fprintf(out, "Profile:       %s\n", cfg.Stack.Profile)
	fmt.Fprintf(out, "Workers:       %d\n", opts.workers)
	fmt.Fprintf(out, "Sent:          %d\n", snap.Sent)
	fmt.Fprintf(out, "Received:      %d\n", snap.Received)
	fmt.Fprintf(out, "Encode errors: %d\n", snap.EncodeErrors)
	fmt.Fprintf(out, "Decode errors: %d\n", snap.DecodeErrors)
	fmt.Fprintf(out, "Elapsed:       %s\n", elapsed.Round(time.Microsecond))
	if elapsed > 0 {
		fmt.Fprintf(out, "Throughput:    %.0f round trips/s\n", float64(snap.Received)/elapsed.Seconds())
	}

	mismatched := 0
	mismatches.Range(func(_, _ any) bool {
		mismatched++
		return true
	})
	if mismatched > 0 || snap.EncodeErrors > 0 || snap.DecodeErrors > 0 {
		return fmt.Errorf("%d mismatched, %d encode errors, %d decode errors",
			mismatched, snap.EncodeErrors, snap.DecodeErrors)
	}

	if opts.serve && ctx.Err() == nil {
		log.GetLogger().WithField("addr", server.Addr()).Info("serving metrics, press Ctrl+C to stop")
		<-ctx.Done()
	}
	return nil
}
