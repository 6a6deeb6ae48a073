package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"recordcache/internal/cache"
	"recordcache/internal/config"
	"recordcache/internal/logging"
)

const (
	defaultDemoField = "email"
	demoCapacity     = 2
)

type demoOptions struct {
	skipTTL bool
}

func newDemoCmd(root *rootOptions) *cobra.Command {
	opts := demoOptions{}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Walk through LRU eviction, secondary lookups and max-age invalidation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.load(cmd)
			if err != nil {
				return err
			}
			return runDemo(cmd.Context(), cmd.OutOrStdout(), cfg, logger, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.skipTTL, "skip-ttl", false, "skip the max-age step, which waits in real time")
	return cmd
}

func runDemo(ctx context.Context, out io.Writer, cfg config.Config, logger zerolog.Logger, opts demoOptions) error {
	log := logging.ComponentLogger(logger, "demo")
	cacheLog := logging.ComponentLogger(logger, "cache")

	pk := cfg.IndexField
	field := defaultDemoField
	if len(cfg.IndexFields) > 0 {
		field = cfg.IndexFields[0]
	} else {
		cfg.IndexFields = []string{field}
	}

	// Reads only touch recency when max age is off.
	lruCfg := cfg.ToCacheConfig(&cacheLog)
	lruCfg.MaxAge = 0
	c := cache.New(lruCfg)

	log.Info().
		Str("index_field", pk).
		Strs("index_fields", cfg.IndexFields).
		Int("capacity", c.Capacity()).
		Msg("demo starting")

	maxAgeText := "off"
	if cfg.MaxAgeSeconds > 0 {
		maxAgeText = cfg.MaxAge().String()
	}
	fmt.Fprintf(out, "configured capacity=%d max_age=%s\n", cfg.Capacity, maxAgeText)

	// -------------------------------------------------------------------
	// 1) LRU eviction, on a cache shrunk to two slots
	// -------------------------------------------------------------------
	fmt.Fprintf(out, "eviction step: capacity %d -> %d\n", c.Capacity(), demoCapacity)
	c.SetCapacity(demoCapacity)
	c.Put(cache.Record{pk: 1, field: "a@x.com"})
	c.Put(cache.Record{pk: 2, field: "b@x.com"})

	// Reading 1 leaves 2 at the tail.
	if _, ok := c.Get(1); ok {
		fmt.Fprintln(out, "GET 1: hit (touches 1 -> MRU)")
	}

	// A third record pushes the tail, 2, out.
	c.Put(cache.Record{pk: 3, field: "c@x.com"})
	if _, ok := c.Get(2); !ok {
		fmt.Fprintln(out, "GET 2: missing (evicted as LRU)")
	}
	fmt.Fprintf(out, "keys after eviction (MRU->LRU): %v\n", c.Keys())

	// -------------------------------------------------------------------
	// 2) Secondary index lookups
	// -------------------------------------------------------------------
	if rec, ok := c.GetByIndex(field, "a@x.com"); ok {
		fmt.Fprintf(out, "GET %s=a@x.com: %s=%v\n", field, pk, rec[pk])
	}

	// A second record claiming the same value takes the mapping over.
	c.Put(cache.Record{pk: 3, field: "a@x.com"})
	c.Remove(1)
	if rec, ok := c.GetByIndex(field, "a@x.com"); ok {
		fmt.Fprintf(out, "GET %s=a@x.com after takeover and removal of 1: %s=%v\n", field, pk, rec[pk])
	}
	if _, ok := c.GetByIndex(field, "c@x.com"); !ok {
		fmt.Fprintf(out, "GET %s=c@x.com: missing (replaced by update)\n", field)
	}

	// -------------------------------------------------------------------
	// 3) Max age: one stale read clears everything
	// -------------------------------------------------------------------
	if opts.skipTTL {
		log.Info().Msg("skipping max-age step")
		fmt.Fprintln(out, "Done.")
		return nil
	}

	maxAge := cfg.MaxAge()
	if maxAge <= 0 {
		maxAge = time.Second
	}
	ttlCfg := cfg.ToCacheConfig(&cacheLog)
	ttlCfg.MaxAge = maxAge
	tc := cache.New(ttlCfg)

	tc.Put(cache.Record{pk: 1})
	tc.Put(cache.Record{pk: 2})
	log.Info().Dur("max_age", maxAge).Msg("waiting for entries to go stale")

	// Age is counted in whole seconds, so wait one second past max age.
	wait := time.NewTimer(maxAge + time.Second)
	defer wait.Stop()

	select {
	case <-ctx.Done():
		log.Info().Msg("received shutdown signal")
		return ctx.Err()
	case <-wait.C:
	}

	if _, ok := tc.Get(1); !ok {
		fmt.Fprintln(out, "GET 1: missing (max age exceeded)")
	}
	if _, ok := tc.Get(2); !ok {
		fmt.Fprintln(out, "GET 2: missing (whole cache invalidated)")
	}

	fmt.Fprintln(out, "Done.")
	return nil
}
