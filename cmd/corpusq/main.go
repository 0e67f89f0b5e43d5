package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/hack-pad/hackpadfs"
	osfs "github.com/hack-pad/hackpadfs/os"

	"CorpusSearch/internal/analysis"
	"CorpusSearch/internal/index"
	"CorpusSearch/internal/indexing"
	"CorpusSearch/internal/optimize"
	"CorpusSearch/internal/query"
	"CorpusSearch/internal/recovery"
	"CorpusSearch/internal/search"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// fileConfig is the JSON form of search.Config read from -config. Absent
// fields keep their defaults.
type fileConfig struct {
	Optimizer *optimize.Config `json:"optimizer"`
	Workers   int              `json:"workers"`
	MaxHits   *int             `json:"max_hits"`
	Timeout   string           `json:"timeout"`
	MaxSteps  int              `json:"max_steps"`
}

type captureOut struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

type hitOut struct {
	Doc      uint32                `json:"doc"`
	Start    int                   `json:"start"`
	End      int                   `json:"end"`
	Text     string                `json:"text"`
	Captures map[string]captureOut `json:"captures,omitempty"`
}

type output struct {
	PlanID    string            `json:"plan_id"`
	Status    string            `json:"status"`
	Plan      string            `json:"plan,omitempty"`
	Decisions []search.Decision `json:"decisions,omitempty"`
	Hits      []hitOut          `json:"hits"`
	Truncated bool              `json:"truncated,omitempty"`
	TookMs    int64             `json:"took_ms"`
	Errors    []string          `json:"errors,omitempty"`
}

func main() {
	textPath := flag.String("text", getEnv("CORPUSQ_TEXT", ""), "text file to index, one document per line")
	schemaPath := flag.String("schema", "", "schema JSON file (default: word, lemma and punct annotations)")
	corpusDir := flag.String("corpus", getEnv("CORPUSQ_CORPUS_DIR", ""), "saved corpus directory to open, or to save to with -save")
	save := flag.Bool("save", false, "save the corpus indexed from -text to -corpus")
	pattern := flag.String("pattern", "", "JSON pattern, or @file to read it from a file")
	configPath := flag.String("config", "", "search config JSON file")
	explain := flag.Bool("explain", false, "include the plan and optimizer decisions in the output")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(getEnv("CORPUSQ_LOG_LEVEL", "info")),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, logger, options{
		textPath:   *textPath,
		schemaPath: *schemaPath,
		corpusDir:  *corpusDir,
		save:       *save,
		pattern:    *pattern,
		configPath: *configPath,
		explain:    *explain,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "corpusq: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	textPath   string
	schemaPath string
	corpusDir  string
	save       bool
	pattern    string
	configPath string
	explain    bool
}

func run(ctx context.Context, logger *slog.Logger, opts options) error {
	fsys := osfs.NewFS()

	cfg, err := loadConfig(fsys, opts.configPath)
	if err != nil {
		return err
	}
	corpus, err := loadCorpus(fsys, logger, opts)
	if err != nil {
		return err
	}
	logger.Info("corpus ready",
		"version", Version,
		"docs", corpus.DocCount(),
		"tokens", corpus.Postings.TotalTokens(),
	)
	if opts.pattern == "" {
		return nil
	}

	data := []byte(opts.pattern)
	if name, ok := strings.CutPrefix(opts.pattern, "@"); ok {
		if data, err = readFile(fsys, name); err != nil {
			return err
		}
	}
	p, err := query.Decode(data)
	if err != nil {
		return err
	}

	s, err := search.NewSearcher(corpus, cfg, logger)
	if err != nil {
		return err
	}
	compiled, err := s.Compile(p)
	if err != nil {
		return err
	}
	res, err := s.Execute(ctx, compiled)
	if err != nil {
		return err
	}

	out, err := render(corpus, compiled, res, opts.explain)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func loadCorpus(fsys hackpadfs.FS, logger *slog.Logger, opts options) (*indexing.Corpus, error) {
	if opts.textPath == "" {
		if opts.corpusDir == "" {
			return nil, errors.New("one of -text or -corpus is required")
		}
		dir, err := corpusDir(opts.corpusDir)
		if err != nil {
			return nil, err
		}
		ropts := recovery.DefaultOptions()
		ropts.Logger = logger
		if _, err := recovery.Recover(fsys, dir, ropts); err != nil {
			return nil, err
		}
		return indexing.OpenCorpus(fsys, dir)
	}

	schema := index.DefaultSchema()
	if opts.schemaPath != "" {
		data, err := readFile(fsys, opts.schemaPath)
		if err != nil {
			return nil, err
		}
		if schema, err = index.UnmarshalSchema(data); err != nil {
			return nil, err
		}
	}
	w, err := indexing.NewWriter(schema, analysis.NewRegistry(), logger)
	if err != nil {
		return nil, err
	}
	data, err := readFile(fsys, opts.textPath)
	if err != nil {
		return nil, err
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if _, err := w.AddDocument(indexing.Document{Text: line}); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", opts.textPath, err)
	}
	corpus, err := w.Commit()
	if err != nil {
		return nil, err
	}

	if opts.save {
		if opts.corpusDir == "" {
			return nil, errors.New("-save needs -corpus")
		}
		dir, err := corpusDir(opts.corpusDir)
		if err != nil {
			return nil, err
		}
		if err := corpus.Save(fsys, dir); err != nil {
			return nil, err
		}
		logger.Info("corpus saved", "dir", opts.corpusDir, "manifest_id", corpus.Manifest.ID)
	}
	return corpus, nil
}

func loadConfig(fsys hackpadfs.FS, name string) (search.Config, error) {
	cfg := search.DefaultConfig()
	if name == "" {
		return cfg, nil
	}
	data, err := readFile(fsys, name)
	if err != nil {
		return cfg, err
	}
	fc := fileConfig{Optimizer: &cfg.Optimizer}
	if err := json.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", name, err)
	}
	if fc.Workers > 0 {
		cfg.Workers = fc.Workers
	}
	if fc.MaxHits != nil {
		cfg.MaxHits = *fc.MaxHits
	}
	if fc.Timeout != "" {
		if cfg.Timeout, err = time.ParseDuration(fc.Timeout); err != nil {
			return cfg, fmt.Errorf("parse config %s: timeout: %w", name, err)
		}
	}
	cfg.MaxSteps = fc.MaxSteps
	return cfg, cfg.Validate()
}

func render(corpus *indexing.Corpus, c *search.Compiled, res *search.Result, explain bool) (*output, error) {
	out := &output{
		PlanID:    res.PlanID,
		Status:    res.Status,
		Hits:      make([]hitOut, 0, len(res.Hits)),
		Truncated: res.Truncated,
		TookMs:    res.TookMs,
		Errors:    res.Errors,
	}
	if explain {
		out.Plan = c.Plan.String()
		out.Decisions = c.Decisions
	}
	for _, h := range res.Hits {
		doc, err := corpus.Forward.Document(h.Doc)
		if err != nil {
			return nil, err
		}
		ho := hitOut{Doc: h.Doc, Start: h.Start, End: h.End, Text: strings.Join(doc.Text(0, h.Start, h.End), " ")}
		for i, sp := range h.Captures {
			if sp == nil {
				continue
			}
			if ho.Captures == nil {
				ho.Captures = make(map[string]captureOut)
			}
			ho.Captures[res.Groups[i]] = captureOut{
				Start: sp.Start,
				End:   sp.End,
				Text:  strings.Join(doc.Text(0, sp.Start, sp.End), " "),
			}
		}
		out.Hits = append(out.Hits, ho)
	}
	return out, nil
}

// fsPath converts an OS path into a path of the root hackpadfs os FS.
func fsPath(name string) (string, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(filepath.ToSlash(abs), "/"), nil
}

func corpusDir(name string) (*index.CorpusDir, error) {
	p, err := fsPath(name)
	if err != nil {
		return nil, err
	}
	return index.NewCorpusDir(p), nil
}

func readFile(fsys hackpadfs.FS, name string) ([]byte, error) {
	p, err := fsPath(name)
	if err != nil {
		return nil, err
	}
	data, err := hackpadfs.ReadFile(fsys, p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
