package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/agenthands/archgraph/internal/app"
	"github.com/agenthands/archgraph/internal/config"
	"github.com/agenthands/archgraph/internal/core"
	"github.com/agenthands/archgraph/internal/core/repair"
	"github.com/agenthands/archgraph/internal/logger"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "archgraph",
		Short: "Extract an architecture graph from requirement documents",
		Long: `archgraph splits a requirements document into chunks, asks an LLM for the
actors, services and interactions each chunk describes, repairs the
responses and merges them into one architecture graph.

The merged graph is written as JSON and can be persisted to Memgraph.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to a TOML config file (default: $CONFIG_PATH or config/config.toml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	ingestCmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Build the architecture graph for a requirements document",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}
	ingestCmd.Flags().StringP("out", "o", "", "Output file for the merged graph (default from config)")
	ingestCmd.Flags().Int("chunk-words", 0, "Words per chunk (default from config)")
	ingestCmd.Flags().Int("concurrency", 0, "Concurrent LLM calls (default from config)")
	ingestCmd.Flags().Bool("persist", false, "Persist the graph to Memgraph")
	ingestCmd.Flags().Bool("json", false, "Print the ingestion report as JSON")

	repairCmd := &cobra.Command{
		Use:   "repair [file]",
		Short: "Repair a raw LLM response into valid JSON (reads stdin without a file)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRepair,
	}
	repairCmd.Flags().Bool("compact", false, "Print compact JSON")

	rootCmd.AddCommand(ingestCmd, repairCmd)
	return rootCmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	explicit := path != ""
	if !explicit {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
	}
	if path == "" {
		path = "config/config.toml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Log.Mode = "dev"
	} else if cfg.Log.Mode == "dev" {
		cfg.Log.Mode = "prod"
	}
	return cfg, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if out, _ := cmd.Flags().GetString("out"); out != "" {
		cfg.Ingest.Output = out
	}
	if n, _ := cmd.Flags().GetInt("chunk-words"); n > 0 {
		cfg.Ingest.ChunkWords = n
	}
	if n, _ := cmd.Flags().GetInt("concurrency"); n > 0 {
		cfg.Ingest.Concurrency = n
	}
	if persist, _ := cmd.Flags().GetBool("persist"); persist {
		cfg.Ingest.Persist = true
	}

	text, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	logg, err := logger.New(cfg.Log.Mode, cfg.Log.File)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logg.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	g, report, err := a.Ingestor.IngestText(ctx, string(text), cfg.Ingest.ChunkWords)
	if err != nil {
		return err
	}

	if err := core.WriteDocument(cfg.Ingest.Output, g); err != nil {
		return err
	}

	if cfg.Ingest.Persist {
		if err := a.Ingestor.Persist(ctx, report.RunID, g); err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	counts := g.Counts()
	fmt.Fprintf(w, "Run %s: %d/%d chunks merged\n", report.RunID, report.Merged, len(report.Chunks))
	fmt.Fprintf(w, "  actors: %d  microservices: %d  databases: %d  events: %d\n",
		counts.Actors, counts.Services, counts.Databases, counts.Events)
	for _, cl := range report.Clusters {
		fmt.Fprintf(w, "  cluster %s: %v\n", cl.Label, cl.Members)
	}
	for _, c := range report.Chunks {
		if c.Status == core.ChunkRepairFailed {
			fmt.Fprintf(w, "  chunk %d skipped: %s\n", c.Index, c.Reason)
		}
	}
	fmt.Fprintf(w, "Wrote %s\n", cfg.Ingest.Output)
	return nil
}

func runRepair(cmd *cobra.Command, args []string) error {
	var (
		raw []byte
		err error
	)
	if len(args) == 1 {
		raw, err = os.ReadFile(args[0])
	} else {
		raw, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	res, err := repair.Repair(string(raw))
	if err != nil {
		return err
	}

	var out []byte
	if compact, _ := cmd.Flags().GetBool("compact"); compact {
		out, err = json.Marshal(res.Value)
	} else {
		out, err = json.MarshalIndent(res.Value, "", "  ")
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
