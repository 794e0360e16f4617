// Command presto creates or loads a payment invoice for a set of outputs and,
// with --listen, serves the embed channel the payment UI connects to.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bitfsorg/presto-go/embed"
	"github.com/bitfsorg/presto-go/internal/log"
	"github.com/bitfsorg/presto-go/internal/metrics"
	"github.com/bitfsorg/presto-go/network"
	"github.com/bitfsorg/presto-go/presto"
	"github.com/bitfsorg/presto-go/tx"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		var fe *flags.Error
		if !errors.As(err, &fe) || fe.Type != flags.ErrHelp {
			_, _ = fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if err := log.Init(cfg.LogLevel, cfg.LogJSON, cfg.LogFile); err != nil {
		return err
	}

	apiCfg, err := network.ResolveConfig(&network.APIConfig{URL: cfg.APIURL, Origin: cfg.Origin}, map[string]string{
		"PRESTO_API_URL": os.Getenv("PRESTO_API_URL"),
		"PRESTO_ORIGIN":  os.Getenv("PRESTO_ORIGIN"),
	}, cfg.Network)
	if err != nil {
		return err
	}

	inputs, err := readDescriptors(opts.Inputs)
	if err != nil {
		return fmt.Errorf("inputs: %w", err)
	}
	outputs, err := readDescriptors(opts.Outputs)
	if err != nil {
		return fmt.Errorf("outputs: %w", err)
	}

	registry := prometheus.NewRegistry()
	sess, err := presto.New(presto.Options{
		Key:            opts.Key,
		Inputs:         inputs,
		Outputs:        outputs,
		ChangeAddress:  opts.Change,
		Rates:          &tx.Rates{Standard: cfg.RateStandard, Data: cfg.RateData},
		Description:    opts.Description,
		Debug:          opts.Debug,
		Network:        cfg.Network,
		Origin:         apiCfg.Origin,
		Invoices:       network.NewInvoiceClient(*apiCfg),
		InvoiceTimeout: cfg.InvoiceTimeout,
		Metrics:        metrics.New(registry),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "mode:       %s\n", sess.Mode())
	if addr := sess.Address(); addr != "" {
		fmt.Fprintf(stdout, "address:    %s\n", addr)
	}
	fmt.Fprintf(stdout, "amount:     %d\n", sess.Amount())
	fmt.Fprintf(stdout, "amount due: %d\n", sess.AmountDue())

	var inv *network.Invoice
	if opts.Invoice != "" {
		inv, err = sess.LoadInvoice(ctx, opts.Invoice)
	} else {
		inv, err = sess.CreateInvoice(ctx)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "invoice:    %s\n", inv.ID)
	fmt.Fprintf(stdout, "url:        %s\n", inv.InvoiceURL)

	if opts.Listen == "" {
		return nil
	}
	return serve(ctx, sess, cfg.ListenAddr, apiCfg.Origin, registry, stdout)
}

// serve accepts UI connections on /embed until the payment succeeds or ctx
// ends. Each new connection replaces the mounted one.
func serve(ctx context.Context, sess *presto.Session, addr, origin string,
	registry *prometheus.Registry, stdout io.Writer) error {

	done := make(chan presto.Event, 1)
	sess.On(presto.EventSuccess, func(ev presto.Event) {
		select {
		case done <- ev:
		default:
		}
	})
	sess.On(presto.EventError, func(ev presto.Event) {
		log.Session.Error().Err(ev.Err).Msg("payment error")
	})
	if sess.Mode() == presto.ModeProxypay {
		sess.On(presto.EventFunded, func(presto.Event) {
			go func() {
				if err := sess.PushTx(); err != nil {
					log.Session.Error().Err(err).Msg("push tx")
				}
			}()
		})
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/embed", func(w http.ResponseWriter, r *http.Request) {
		ch, err := embed.Accept(w, r, origin)
		if err != nil {
			log.Embed.Warn().Err(err).Msg("embed connection rejected")
			return
		}
		if err := sess.Mount(embed.New(ch, nil, embed.DefaultUIOptions())); err != nil {
			log.Embed.Error().Err(err).Msg("mount")
			_ = ch.Close()
		}
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Network.Info().Str("addr", addr).Msg("embed channel listening")

	var result error
	select {
	case ev := <-done:
		fmt.Fprintf(stdout, "txid:       %s\n", ev.TxID)
		if ev.RawTx != "" {
			fmt.Fprintf(stdout, "rawtx:      %s\n", ev.RawTx)
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			result = err
		}
	case <-ctx.Done():
		result = ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && result == nil {
		result = err
	}
	return result
}
