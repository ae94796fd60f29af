package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/hupe1980/covmatch"
	"github.com/hupe1980/covmatch/blobstore"
	miniostore "github.com/hupe1980/covmatch/blobstore/minio"
	s3store "github.com/hupe1980/covmatch/blobstore/s3"
	"github.com/hupe1980/covmatch/codec"
	"github.com/hupe1980/covmatch/export"
	"github.com/hupe1980/covmatch/metric"
)

var runFlags struct {
	units         string
	holdout       string
	treatment     string
	outcome       string
	configPath    string
	algorithm     string
	replace       bool
	outDir        string
	s3Bucket      string
	s3Prefix      string
	minioEndpoint string
	minioBucket   string
	minioSecure   bool
	metricsFile   string
	logLevel      string
	logFormat     string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Match units and export the result",
	Long: `Run FLAME or DAME on a CSV table of categorical covariates.

The first row names the columns. Every column other than the treatment and
outcome columns is a covariate; empty, NA and NaN cells are missing. Without
--holdout the predictive error is scored on the matching table itself.

Results are exported to one of --out, --s3-bucket or --minio-endpoint/--minio-bucket.
MinIO credentials are read from MINIO_ACCESS_KEY and MINIO_SECRET_KEY.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.units, "units", "", "Matching table CSV (required)")
	f.StringVar(&runFlags.holdout, "holdout", "", "Holdout table CSV used to score covariate sets")
	f.StringVar(&runFlags.treatment, "treatment", "treated", "Treatment column (0 or 1)")
	f.StringVar(&runFlags.outcome, "outcome", "outcome", "Outcome column")
	f.StringVar(&runFlags.configPath, "config", "", "YAML configuration file")
	f.StringVar(&runFlags.algorithm, "algorithm", "", "Algorithm: flame or dame (overrides config)")
	f.BoolVar(&runFlags.replace, "replace", false, "Match with replacement (overrides config)")
	f.StringVarP(&runFlags.outDir, "out", "o", "", "Export directory")
	f.StringVar(&runFlags.s3Bucket, "s3-bucket", "", "Export to this S3 bucket")
	f.StringVar(&runFlags.s3Prefix, "s3-prefix", "", "Key prefix for S3 and MinIO exports (overrides config)")
	f.StringVar(&runFlags.minioEndpoint, "minio-endpoint", "", "Export to this MinIO endpoint (host:port)")
	f.StringVar(&runFlags.minioBucket, "minio-bucket", "", "MinIO bucket")
	f.BoolVar(&runFlags.minioSecure, "minio-secure", true, "Use TLS for MinIO")
	f.StringVar(&runFlags.metricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file")
	f.StringVar(&runFlags.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	f.StringVar(&runFlags.logFormat, "log-format", "text", "Log format: text or json")
	_ = runCmd.MarkFlagRequired("units")
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := newLogger(cmd.ErrOrStderr(), runFlags.logLevel, runFlags.logFormat)
	if err != nil {
		return err
	}

	cfg, err := LoadConfig(runFlags.configPath)
	if err != nil {
		return err
	}
	if runFlags.algorithm != "" {
		cfg.Algorithm = strings.ToLower(runFlags.algorithm)
	}
	if cmd.Flags().Changed("replace") {
		cfg.Replace = runFlags.replace
	}
	if runFlags.s3Prefix != "" {
		cfg.Export.Prefix = runFlags.s3Prefix
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	alg, err := cfg.AlgorithmValue()
	if err != nil {
		return err
	}

	units, holdout, err := loadTables(runFlags.units, runFlags.holdout, runFlags.treatment, runFlags.outcome)
	if err != nil {
		return err
	}

	store, err := newStore(ctx, cfg.Export.Prefix)
	if err != nil {
		return err
	}

	opts := append(cfg.Options(), covmatch.WithLogger(logger))

	var reg *prometheus.Registry
	if runFlags.metricsFile != "" {
		reg = prometheus.NewRegistry()
		collector, err := metric.NewPrometheusCollector(reg)
		if err != nil {
			return err
		}
		opts = append(opts, covmatch.WithMetricsCollector(collector))
	}

	res, runErr := covmatch.Run(ctx, alg, units, holdout, opts...)
	if res == nil {
		return runErr
	}

	if reg != nil {
		if err := prometheus.WriteToTextfile(runFlags.metricsFile, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	name := ""
	if store != nil {
		c, _ := codec.ByName(cfg.Export.Codec)
		compression, _ := export.ParseCompression(cfg.Export.Compression)
		w := &export.Writer{Store: store, Codec: c, Compression: compression, Logger: logger}
		if name, err = w.Write(ctx, res); err != nil {
			return errors.Join(runErr, fmt.Errorf("export: %w", err))
		}
	}

	printSummary(cmd.OutOrStdout(), res, units, name)
	return runErr
}

func loadTables(unitsPath, holdoutPath, treatment, outcome string) (*covmatch.Table, *covmatch.Table, error) {
	dict := newDictionary()

	units, err := loadCSVFile(unitsPath, csvSpec{Treatment: treatment, Outcome: outcome}, dict)
	if err != nil {
		return nil, nil, err
	}
	if holdoutPath == "" {
		return units, nil, nil
	}
	holdout, err := loadCSVFile(holdoutPath, csvSpec{Treatment: treatment, Outcome: outcome, Covariates: units.Names}, dict)
	if err != nil {
		return nil, nil, err
	}
	return units, holdout, nil
}

func loadCSVFile(path string, layout csvSpec, dict *dictionary) (*covmatch.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	t, err := loadCSV(f, layout, dict)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// newStore selects the export destination. It returns nil when none is configured.
func newStore(ctx context.Context, prefix string) (blobstore.Store, error) {
	selected := 0
	for _, set := range []bool{runFlags.outDir != "", runFlags.s3Bucket != "", runFlags.minioEndpoint != ""} {
		if set {
			selected++
		}
	}
	if selected > 1 {
		return nil, errors.New("choose one of --out, --s3-bucket and --minio-endpoint")
	}

	switch {
	case runFlags.outDir != "":
		return blobstore.NewLocalStore(runFlags.outDir), nil
	case runFlags.s3Bucket != "":
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("aws config: %w", err)
		}
		return s3store.NewStore(s3.NewFromConfig(awsCfg), runFlags.s3Bucket, prefix), nil
	case runFlags.minioEndpoint != "":
		if runFlags.minioBucket == "" {
			return nil, errors.New("--minio-bucket is required with --minio-endpoint")
		}
		client, err := minio.New(runFlags.minioEndpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY"), ""),
			Secure: runFlags.minioSecure,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return miniostore.NewStore(client, runFlags.minioBucket, prefix), nil
	default:
		return nil, nil
	}
}

func newLogger(w io.Writer, level, format string) (*covmatch.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch format {
	case "text":
		return covmatch.NewLogger(slog.NewTextHandler(w, opts)), nil
	case "json":
		return covmatch.NewLogger(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log format %q: must be text or json", format)
	}
}

func printSummary(w io.Writer, res *covmatch.Result, units *covmatch.Table, exported string) {
	fmt.Fprintf(w, "run:          %s\n", res.RunID)
	fmt.Fprintf(w, "algorithm:    %s\n", res.Algorithm)
	fmt.Fprintf(w, "status:       %s\n", res.Status)
	if res.Succeeded() {
		fmt.Fprintf(w, "termination:  %s\n", res.Termination)
	} else {
		fmt.Fprintf(w, "error:        %s\n", res.Error)
	}
	fmt.Fprintf(w, "iterations:   %d\n", res.Iterations)
	fmt.Fprintf(w, "groups:       %d\n", len(res.Groups))
	fmt.Fprintf(w, "matched:      %d of %d units\n", len(res.Matched()), len(res.Units))

	if ate, err := covmatch.ATE(res, units); err == nil {
		fmt.Fprintf(w, "ATE:          %.4f\n", ate)
	}
	if att, err := covmatch.ATT(res, units); err == nil {
		fmt.Fprintf(w, "ATT:          %.4f\n", att)
	}
	if exported != "" {
		fmt.Fprintf(w, "exported:     %s\n", exported)
	}
}
