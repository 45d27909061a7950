package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/archgraph/internal/config"
	"github.com/agenthands/archgraph/internal/core/chunk"
	"github.com/agenthands/archgraph/internal/core/community"
	"github.com/agenthands/archgraph/internal/core/extraction"
	"github.com/agenthands/archgraph/internal/core/graph"
	"github.com/agenthands/archgraph/internal/core/model"
	"github.com/agenthands/archgraph/internal/core/repair"
	"github.com/agenthands/archgraph/internal/driver"
	"github.com/agenthands/archgraph/internal/llm"
	"github.com/agenthands/archgraph/internal/logger"
)

var (
	ErrNoChunks = errors.New("no chunks to ingest")
	ErrNoDriver = errors.New("no graph driver configured")
)

type ChunkStatus string

const (
	ChunkMerged       ChunkStatus = "merged"
	ChunkRepairFailed ChunkStatus = "repair_failed"
)

// ChunkResult records what happened to one chunk.
type ChunkResult struct {
	Index  int          `json:"index"`
	Status ChunkStatus  `json:"status"`
	Reason string       `json:"reason,omitempty"`
	Skips  []model.Skip `json:"skips,omitempty"`
	Stats  graph.Stats  `json:"stats"`
}

type Report struct {
	RunID    string              `json:"run_id"`
	Chunks   []ChunkResult       `json:"chunks"`
	Merged   int                 `json:"merged"`
	Failed   int                 `json:"failed"`
	Clusters []community.Cluster `json:"clusters"`
}

type Ingestor struct {
	Driver      driver.GraphDriver
	Extractor   *extraction.Extractor
	Detector    community.Detector
	Log         *logger.Logger
	ChunkWords  int
	Concurrency int
}

// NewIngestor wires an ingestor. d may be nil when persistence is disabled.
func NewIngestor(d driver.GraphDriver, llmClient llm.LLMClient, cfg *config.Config, log *logger.Logger) *Ingestor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Ingestor{
		Driver:      d,
		Extractor:   extraction.NewExtractor(llmClient, cfg.Extraction),
		Detector:    community.NewDetector(),
		Log:         log,
		ChunkWords:  cfg.Ingest.ChunkWords,
		Concurrency: cfg.Ingest.Concurrency,
	}
}

func (i *Ingestor) BuildIndices(ctx context.Context) error {
	if i.Driver == nil {
		return ErrNoDriver
	}
	return i.Driver.BuildIndices(ctx)
}

// IngestText splits text into chunks of chunkWords words (the configured size
// when chunkWords <= 0) and ingests them.
func (i *Ingestor) IngestText(ctx context.Context, text string, chunkWords int) (*graph.Graph, *Report, error) {
	if chunkWords <= 0 {
		chunkWords = i.ChunkWords
	}
	return i.Ingest(ctx, chunk.Split(text, chunkWords))
}

// Ingest extracts every chunk and folds the results into a fresh graph.
//
// Generator calls run up to Concurrency at a time, but partials are folded
// strictly in chunk order. A chunk whose response cannot be repaired is
// logged and skipped; a generator error aborts the run.
func (i *Ingestor) Ingest(ctx context.Context, chunks []string) (*graph.Graph, *Report, error) {
	if len(chunks) == 0 {
		return nil, nil, ErrNoChunks
	}

	runID := uuid.New().String()
	log := i.Log.With("run_id", runID)
	log.Info("Starting ingestion", "chunks", len(chunks), "concurrency", i.concurrency())

	extractions := make([]*extraction.Extraction, len(chunks))
	failures := make([]*repair.Failure, len(chunks))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(i.concurrency())
	for idx, text := range chunks {
		eg.Go(func() error {
			ext, err := i.Extractor.Extract(egCtx, text)
			if err != nil {
				var failure *repair.Failure
				if errors.As(err, &failure) {
					failures[idx] = failure
					return nil
				}
				return fmt.Errorf("generate chunk %d: %w", idx, err)
			}
			extractions[idx] = ext
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		log.Error("Ingestion aborted", "error", err)
		return nil, nil, err
	}

	agg := graph.NewAggregator(nil)
	report := &Report{RunID: runID, Chunks: make([]ChunkResult, 0, len(chunks))}

	for idx := range chunks {
		if f := failures[idx]; f != nil {
			log.Warn("Skipping chunk: response could not be repaired", "chunk", idx, "reason", f.Reason, "error", f.Err)
			report.Chunks = append(report.Chunks, ChunkResult{
				Index:  idx,
				Status: ChunkRepairFailed,
				Reason: f.Error(),
			})
			report.Failed++
			continue
		}

		ext := extractions[idx]
		stats := agg.Merge(ext.Partial)
		stats.Skipped += len(ext.Skips)
		for _, s := range ext.Skips {
			log.Debug("Skipped entry", "chunk", idx, "kind", s.Kind, "index", s.Index, "reason", s.Reason)
		}

		report.Chunks = append(report.Chunks, ChunkResult{
			Index:  idx,
			Status: ChunkMerged,
			Skips:  ext.Skips,
			Stats:  stats,
		})
		report.Merged++
	}

	g := agg.Graph()
	if i.Detector != nil {
		report.Clusters = i.Detector.Detect(g)
	}

	counts := g.Counts()
	log.Info("Ingestion finished",
		"merged", report.Merged,
		"failed", report.Failed,
		"actors", counts.Actors,
		"microservices", counts.Services,
		"databases", counts.Databases,
		"events", counts.Events,
		"clusters", len(report.Clusters),
	)

	return g, report, nil
}

func (i *Ingestor) concurrency() int {
	if i.Concurrency <= 0 {
		return 1
	}
	return i.Concurrency
}

// Persist writes g to the graph store under runID.
func (i *Ingestor) Persist(ctx context.Context, runID string, g *graph.Graph) error {
	if i.Driver == nil {
		return ErrNoDriver
	}

	now := time.Now().UTC().Format(time.RFC3339)

	for _, a := range g.Actors() {
		params := map[string]interface{}{
			"uuid":       uuid.New().String(),
			"name":       a.Name,
			"run_id":     runID,
			"kind":       string(a.Kind),
			"created_at": now,
		}
		if _, err := i.Driver.ExecuteQuery(ctx, driver.SaveActorQuery, params); err != nil {
			return fmt.Errorf("failed to save actor %s: %w", a.Name, err)
		}
	}

	for _, s := range g.Services() {
		var db interface{}
		if s.Database != nil {
			db = *s.Database
		}
		params := map[string]interface{}{
			"uuid":        uuid.New().String(),
			"name":        s.Name,
			"run_id":      runID,
			"db":          db,
			"exposes":     s.Exposes,
			"consumes":    s.Consumes,
			"scaling":     s.Scaling,
			"criticality": string(s.Criticality),
			"created_at":  now,
		}
		if _, err := i.Driver.ExecuteQuery(ctx, driver.SaveServiceQuery, params); err != nil {
			return fmt.Errorf("failed to save service %s: %w", s.Name, err)
		}
	}

	for _, d := range g.Databases() {
		params := map[string]interface{}{
			"uuid":       uuid.New().String(),
			"name":       d.Name,
			"run_id":     runID,
			"kind":       string(d.Kind),
			"used_by":    d.UsedBy,
			"created_at": now,
		}
		if _, err := i.Driver.ExecuteQuery(ctx, driver.SaveDatabaseQuery, params); err != nil {
			return fmt.Errorf("failed to save database %s: %w", d.Name, err)
		}

		for _, svc := range d.UsedBy {
			edgeParams := map[string]interface{}{
				"service":    svc,
				"database":   d.Name,
				"run_id":     runID,
				"created_at": now,
			}
			if _, err := i.Driver.ExecuteQuery(ctx, driver.SaveUsesEdgeQuery, edgeParams); err != nil {
				return fmt.Errorf("failed to link %s to %s: %w", svc, d.Name, err)
			}
		}
	}

	for _, e := range g.Events() {
		params := map[string]interface{}{
			"from":        e.From,
			"to":          e.To,
			"kind":        e.Kind,
			"description": e.Description,
			"run_id":      runID,
			"created_at":  now,
		}
		if _, err := i.Driver.ExecuteQuery(ctx, driver.SaveInteractionQuery, params); err != nil {
			return fmt.Errorf("failed to save interaction %s -> %s: %w", e.From, e.To, err)
		}
	}

	i.Log.Info("Persisted graph", "run_id", runID)
	return nil
}

// RunComponents lists the names of the components stored for runID.
func (i *Ingestor) RunComponents(ctx context.Context, runID string) ([]string, error) {
	if i.Driver == nil {
		return nil, ErrNoDriver
	}

	res, err := i.Driver.ExecuteQuery(ctx, driver.GetRunComponentsQuery, map[string]interface{}{"run_id": runID})
	if err != nil {
		return nil, err
	}

	var names []string
	for _, rec := range res.Records {
		name, ok := rec.Get("name")
		if !ok {
			continue
		}
		if s, ok := name.(string); ok {
			names = append(names, s)
		}
	}
	return names, nil
}

// DeleteRun removes every component stored for runID.
func (i *Ingestor) DeleteRun(ctx context.Context, runID string) error {
	if i.Driver == nil {
		return ErrNoDriver
	}
	_, err := i.Driver.ExecuteQuery(ctx, driver.DeleteRunQuery, map[string]interface{}{"run_id": runID})
	return err
}

// WriteDocument writes g as indented JSON to path.
func WriteDocument(path string, g *graph.Graph) error {
	data, err := json.MarshalIndent(g.Document(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
