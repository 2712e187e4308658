package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/casetag/internal/adapters/artifacts"
	"github.com/okian/casetag/internal/adapters/corpus"
	"github.com/okian/casetag/internal/adapters/http/api"
	"github.com/okian/casetag/internal/adapters/oracle"
	service "github.com/okian/casetag/internal/app"
	"github.com/okian/casetag/internal/config"
	"github.com/okian/casetag/internal/domain/dedupe"
	"github.com/okian/casetag/internal/domain/model"
	"github.com/okian/casetag/internal/domain/taxonomy"
	"github.com/okian/casetag/pkg/logger"
)

var errCredentialsRejected = errors.New("oracle rejected the credentials")

type runOptions struct {
	name       string
	target     int
	schema     string
	resumeFrom string
	exclude    []string
}

func newRunCmd(c *cli) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Classify one iteration of cases",
		Long: `Samples cases that no earlier iteration covered and classifies them in
batches. Progress is flushed after every batch; rerunning an interrupted
iteration with the same name resumes it without classifying any case twice.

Without a schema file the taxonomy is discovered from the first sampled
cases and saved as schema_<name>.json in the work directory.

Example:
  casetag run --name iteration_2 --target 500 --schema schema.json \
    --exclude classified_iteration_1.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, o)
		},
	}
	cmd.Flags().StringVar(&o.name, "name", "", "iteration name, used to key artifacts")
	cmd.Flags().IntVar(&o.target, "target", 0, "total cases in the iteration, including resumed ones")
	cmd.Flags().StringVar(&o.schema, "schema", "", "taxonomy file (default: schema_file from config)")
	cmd.Flags().StringVar(&o.resumeFrom, "resume-from", "", "progress table to resume from instead of the iteration's own")
	cmd.Flags().StringSliceVar(&o.exclude, "exclude", nil, "classified outputs of earlier iterations whose cases are skipped")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func (c *cli) run(cmd *cobra.Command, o *runOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := c.log.Named("run")

	if err := c.cfg.ValidateCredentials(); err != nil {
		log.Error(ctx, "invalid oracle credentials", logger.Error(err))
		return err
	}

	instructions, err := c.instructions()
	if err != nil {
		return err
	}
	classifier, err := buildClassifier(ctx, c.cfg, instructions)
	if err != nil {
		return err
	}

	corpusPath, err := c.path(c.cfg.CorpusFile)
	if err != nil {
		return err
	}
	cases, err := corpus.Load(c.fs, corpusPath)
	if err != nil {
		return err
	}

	tx, err := c.taxonomy(o.schema)
	if err != nil {
		return err
	}

	workDir, err := c.path(c.cfg.WorkDir)
	if err != nil {
		return err
	}
	store := artifacts.NewStore(c.fs, artifacts.WithDir(workDir))

	excluded, err := c.exclusions(store, o.exclude)
	if err != nil {
		return err
	}

	resume := o.resumeFrom
	if resume != "" {
		if resume, err = c.path(resume); err != nil {
			return err
		}
	}

	svc := service.New(classifier, store,
		service.WithLogger(log),
		service.WithBatchSize(c.cfg.BatchSize),
		service.WithConcurrency(c.cfg.Concurrency),
		service.WithRetries(c.cfg.MaxRetries, c.cfg.RetryBackoff()),
		service.WithBatchPause(c.cfg.BatchPause()),
		service.WithSampleSeed(c.cfg.SampleSeed),
		service.WithDiscoverySample(c.cfg.DiscoverySampleSize),
		service.WithConfidenceThreshold(c.cfg.ConfidenceThreshold),
		service.WithFailureHook(abortOnAuthentication),
	)

	go startSystemMetricsUpdater(ctx)
	if c.cfg.StatusAddr != "" {
		go func() {
			if err := api.NewServer(svc).Serve(ctx, c.cfg.StatusAddr); err != nil {
				log.Error(ctx, "status server failed", logger.Error(err))
			}
		}()
	}

	res, err := svc.RunIteration(ctx, cases, service.IterationRequest{
		Name:         o.name,
		TargetSize:   o.target,
		Excluded:     excluded,
		Taxonomy:     tx,
		ResumeSource: resume,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn(ctx, "run interrupted; rerun the same command to resume", logger.Iteration(o.name))
		}
		return err
	}

	failed := 0
	for _, r := range res.Records {
		if r.IsError() {
			failed++
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records (%d resumed, %d classified, %d errors) -> %s\n",
		o.name, len(res.Records), res.Resumed, res.Dispatched, failed, res.OutputPath)
	return nil
}

func abortOnAuthentication(_ context.Context, rec model.Record) error {
	if rec.Failure == model.FailureAuthentication {
		return fmt.Errorf("%w: case %s: %s", errCredentialsRejected, rec.CaseID, rec.Notes)
	}
	return nil
}

// instructions reads the optional curator guidance file.
func (c *cli) instructions() (string, error) {
	if c.cfg.InstructionsFile == "" {
		return "", nil
	}
	p, err := c.path(c.cfg.InstructionsFile)
	if err != nil {
		return "", err
	}
	f, err := c.fs.Open(p)
	if err != nil {
		return "", fmt.Errorf("open instructions: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read instructions: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// taxonomy loads the schema named by flag or config; nil means discover.
func (c *cli) taxonomy(flagPath string) (*taxonomy.Taxonomy, error) {
	p := flagPath
	if p == "" {
		p = c.cfg.SchemaFile
	}
	if p == "" {
		return nil, nil
	}
	abs, err := c.path(p)
	if err != nil {
		return nil, err
	}
	return artifacts.NewSchemaStore(c.fs, abs).Load()
}

// exclusions collects the case ids of earlier classified outputs.
func (c *cli) exclusions(store *artifacts.Store, paths []string) (*dedupe.ExclusionSet, error) {
	set := dedupe.NewExclusionSet()
	for _, p := range paths {
		abs, err := c.path(p)
		if err != nil {
			return nil, err
		}
		table, ok, err := store.ReadTable(abs)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", artifacts.ErrNotFound, p)
		}
		prior, err := corpus.FromTable(table)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		for _, cs := range prior.Cases {
			set.SeenAndRecord(context.Background(), cs.ID)
		}
	}
	return set, nil
}

func buildClassifier(ctx context.Context, cfg *config.Config, instructions string) (oracle.Classifier, error) {
	var t oracle.Transport
	switch cfg.Provider {
	case config.ProviderSimulated:
		minLatency, maxLatency := cfg.SimulatedLatency()
		return oracle.NewSimulated(
			oracle.WithLatencyRange(minLatency, maxLatency),
			oracle.WithSeed(cfg.SampleSeed),
		), nil
	case config.ProviderAnthropic:
		t = oracle.NewAnthropic(oracle.AnthropicConfig{
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Model:    cfg.Model,
			Version:  cfg.APIVersion,
			MaxConns: cfg.Concurrency,
		})
	case config.ProviderGemini:
		gc := oracle.GeminiConfig{APIKey: cfg.APIKey, Model: cfg.Model}
		if strings.HasPrefix(gc.Model, "claude") {
			gc.Model = oracle.DefaultGeminiModel
		}
		if cfg.BaseURL != oracle.DefaultAnthropicURL {
			gc.BaseURL = cfg.BaseURL
		}
		g, err := oracle.NewGemini(ctx, gc)
		if err != nil {
			return nil, err
		}
		t = g
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", config.ErrInvalidConfig, cfg.Provider)
	}

	return oracle.New(t,
		oracle.WithTimeouts(cfg.RequestTimeout(), cfg.DiscoveryTimeout()),
		oracle.WithClassifyParams(oracle.Params{MaxTokens: cfg.MaxTokens, Temperature: cfg.Temperature}),
		oracle.WithDiscoveryParams(oracle.Params{MaxTokens: cfg.DiscoveryMaxTokens, Temperature: cfg.DiscoveryTemperature}),
		oracle.WithDiscoverySample(cfg.DiscoverySampleSize),
		oracle.WithInstructions(instructions),
	), nil
}
