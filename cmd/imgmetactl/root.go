package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/abduss/imgmeta/internal/app"
	"github.com/abduss/imgmeta/internal/config"
	"github.com/abduss/imgmeta/internal/logger"
	"github.com/abduss/imgmeta/internal/metadata"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type handlers interface {
	Ingest(ctx context.Context, container, rawKey string) (metadata.Record, error)
	Lookup(ctx context.Context, rawKey string) (metadata.Record, error)
	Retrieve(ctx context.Context, rawKey string) (metadata.DownloadResult, error)
	Statistics(ctx context.Context) (metadata.Stats, error)
}

// openHandlers is replaced in tests.
var openHandlers = func(ctx context.Context) (handlers, func(), error) {
	_ = godotenv.Load()

	logg, err := logger.Init()
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	deps, err := app.Open(ctx, cfg, logg)
	if err != nil {
		return nil, nil, err
	}
	return deps.Metadata, func() {
		deps.Close()
		_ = logg.Sync()
	}, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "imgmetactl",
		Short: "Inspect and maintain the image metadata index",
		Long: `imgmetactl runs the metadata handlers against the configured backends.

Backends are selected with the same IMGMETA_* environment variables as the API.

Examples:
  imgmetactl ingest uploads uploads%2Fcat.png
  imgmetactl lookup uploads%2Fcat.png
  imgmetactl download uploads%2Fcat.png
  imgmetactl stats`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newIngestCmd(),
		newLookupCmd(),
		newDownloadCmd(),
		newStatsCmd(),
	)
	return root
}

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <bucket> <key>",
		Short: "Record metadata for an uploaded object",
		Long:  `Reads the object's size, content type and modification time and writes them to the index. The key is percent-encoded, as in upload notifications.`,
		Args:  cobra.ExactArgs(2),
		RunE: withHandlers(func(cmd *cobra.Command, h handlers, args []string) (any, error) {
			return h.Ingest(cmd.Context(), args[0], args[1])
		}),
	}
}

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <key>",
		Short: "Print the stored record for a key",
		Args:  cobra.ExactArgs(1),
		RunE: withHandlers(func(cmd *cobra.Command, h handlers, args []string) (any, error) {
			return h.Lookup(cmd.Context(), args[0])
		}),
	}
}

func newDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <key>",
		Short: "Copy an object from the download bucket into the scratch directory",
		Args:  cobra.ExactArgs(1),
		RunE: withHandlers(func(cmd *cobra.Command, h handlers, args []string) (any, error) {
			res, err := h.Retrieve(cmd.Context(), args[0])
			if err != nil {
				return nil, err
			}
			return map[string]string{"message": res.Message, "path": res.Path}, nil
		}),
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "stats",
		Aliases: []string{"info"},
		Short:   "Print largest, smallest and per-type counts over all records",
		Args:    cobra.NoArgs,
		RunE: withHandlers(func(cmd *cobra.Command, h handlers, args []string) (any, error) {
			return h.Statistics(cmd.Context())
		}),
	}
}

func withHandlers(run func(cmd *cobra.Command, h handlers, args []string) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
			cmd.SetContext(ctx)
		}

		h, closeFn, err := openHandlers(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		out, err := run(cmd, h, args)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
