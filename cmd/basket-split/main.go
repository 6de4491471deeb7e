// Command basket-split prints the delivery grouping for one or more basket files.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eugenenazirov/basket-splitter/internal/catalog"
	"github.com/eugenenazirov/basket-splitter/internal/logging"
	"github.com/eugenenazirov/basket-splitter/internal/splitter"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	deliveryOptions string
	maxNodes        int
	timeout         time.Duration
	logLevel        string
	parallel        int
	baskets         []string
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var opts options

	app := kingpin.New("basket-split", "Split basket files into the fewest delivery groups")
	app.Writer(stderr)
	app.ErrorWriter(stderr)
	app.Terminate(nil)

	app.Flag("delivery-options", "Path to the delivery options document (JSON or YAML)").Required().StringVar(&opts.deliveryOptions)
	app.Flag("max-nodes", "Search nodes visited before returning the best grouping so far (0 = unlimited)").Default("0").IntVar(&opts.maxNodes)
	app.Flag("timeout", "Time budget per basket (0 = unlimited)").Default("0").DurationVar(&opts.timeout)
	app.Flag("log-level", "Diagnostic log level").Default("warn").EnumVar(&opts.logLevel, "debug", "info", "warn", "error")
	app.Flag("parallel", "Baskets split concurrently").Default(strconv.Itoa(runtime.GOMAXPROCS(0))).IntVar(&opts.parallel)
	app.Arg("basket", "Basket files (JSON or YAML list of product names)").Required().ExistingFilesVar(&opts.baskets)

	_, err := app.Parse(args)
	return opts, err
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "basket-split: %v\n", err)
		return 1
	}

	logger, err := logging.NewConsole(opts.logLevel)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "basket-split: %v\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	s, err := splitter.Load(opts.deliveryOptions, splitter.WithMaxNodes(opts.maxNodes))
	if err != nil {
		logger.Error("failed to load delivery options", zap.Error(err))
		_, _ = fmt.Fprintf(stderr, "basket-split: %v\n", err)
		return 1
	}
	logger.Debug("delivery options loaded", zap.String("path", opts.deliveryOptions))

	outputs := make([]bytes.Buffer, len(opts.baskets))
	errs := make([]error, len(opts.baskets))

	var g errgroup.Group
	if opts.parallel > 0 {
		g.SetLimit(opts.parallel)
	}
	for i, path := range opts.baskets {
		g.Go(func() error {
			errs[i] = splitBasket(s, path, opts.timeout, &outputs[i], logger)
			return nil
		})
	}
	_ = g.Wait()

	status := 0
	for i, path := range opts.baskets {
		if len(opts.baskets) > 1 {
			if i > 0 {
				_, _ = fmt.Fprintln(stdout)
			}
			_, _ = fmt.Fprintf(stdout, "==> %s <==\n", path)
		}

		if errs[i] != nil {
			_, _ = fmt.Fprintf(stderr, "basket-split: %s: %v\n", path, errs[i])
			status = 1
			continue
		}
		_, _ = outputs[i].WriteTo(stdout)
	}
	return status
}

func splitBasket(s *splitter.BasketSplitter, path string, timeout time.Duration, w io.Writer, logger *zap.Logger) error {
	items, err := catalog.LoadBasket(path)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := s.SplitDetailed(ctx, items)
	if err != nil {
		return err
	}

	logger.Debug("basket split",
		zap.String("path", path),
		zap.Int("items", len(items)),
		zap.Int("groups", result.Groups.Len()),
		zap.Int("nodes", result.Nodes),
		zap.Duration("elapsed", time.Since(start)),
	)
	if !result.Complete {
		logger.Warn("search stopped early; grouping may not be optimal",
			zap.String("path", path),
			zap.Int("nodes", result.Nodes),
		)
	}

	return printGrouping(w, result.Groups)
}

func printGrouping(w io.Writer, g splitter.Grouping) error {
	if g.Len() == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}

	for i, method := range g.Methods() {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "Delivery method: %s\nProducts:\n", method); err != nil {
			return err
		}
		for _, item := range g[method] {
			if _, err := fmt.Fprintf(w, " - %s\n", item); err != nil {
				return err
			}
		}
	}
	return nil
}
