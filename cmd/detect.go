package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	infralogger "github.com/jonesrussell/north-cloud/gapfinder/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/config"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/database"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/domain"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/slug"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/urlsource"
)

var errNoURLs = errors.New("no urls: pass them as arguments or set --urls-file or --sitemap")

type detectOptions struct {
	services       string
	locations      string
	urlsFile       string
	sitemap        string
	limit          int
	pipeline       string
	fuzzyThreshold float64
	asJSON         bool
	save           bool
}

func newDetectCommand() *cobra.Command {
	opts := &detectOptions{}

	cmd := &cobra.Command{
		Use:   "detect [url...]",
		Short: "Report service/location combinations no URL covers",
		Example: `  gapfinder detect --services "paving,roofing" --locations "leeds,york" --urls-file sitemap_urls.json
  gapfinder detect --services paving --locations leeds https://example.com/paving-leeds/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if err = opts.apply(cmd, cfg); err != nil {
				return err
			}
			return runDetect(cmd, cfg, logger, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.services, "services", "", "comma-separated services (required)")
	flags.StringVar(&opts.locations, "locations", "", "comma-separated locations (required)")
	flags.StringVar(&opts.urlsFile, "urls-file", "", "JSON array of known URLs")
	flags.StringVar(&opts.sitemap, "sitemap", "", "local sitemap or sitemap index XML file")
	flags.IntVar(&opts.limit, "limit", urlsource.DefaultCLILimit, "maximum URLs loaded from the source (0 for all)")
	flags.StringVar(&opts.pipeline, "pipeline", "", "strict, comprehensive or comprehensive_oracle")
	flags.Float64Var(&opts.fuzzyThreshold, "fuzzy-threshold", 0, "fuzzy_similarity threshold in (0, 1]")
	flags.BoolVar(&opts.asJSON, "json", false, "print the report as JSON")
	flags.BoolVar(&opts.save, "save", false, "replace the stored research gaps with this run's gaps")
	_ = cmd.MarkFlagRequired("services")
	_ = cmd.MarkFlagRequired("locations")

	return cmd
}

// apply lets flags override the loaded configuration.
func (o *detectOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	switch {
	case o.urlsFile != "":
		cfg.Sources.URLsFile, cfg.Sources.SitemapFile, cfg.Sources.ESIndex = o.urlsFile, "", ""
	case o.sitemap != "":
		cfg.Sources.URLsFile, cfg.Sources.SitemapFile, cfg.Sources.ESIndex = "", o.sitemap, ""
	}
	if !cmd.Flags().Changed("limit") {
		o.limit = cfg.Sources.Limit
	}
	if o.pipeline != "" {
		cfg.Matching.Pipeline = o.pipeline
	}
	if cmd.Flags().Changed("fuzzy-threshold") {
		cfg.Matching.FuzzyThreshold = o.fuzzyThreshold
	}

	if o.save && !cfg.Database.Enabled {
		return errors.New("--save requires database.enabled")
	}
	if !o.save {
		cfg.Database.Enabled = false
	}
	return nil
}

func runDetect(cmd *cobra.Command, cfg *config.Config, logger infralogger.Logger, opts *detectOptions, args []string) error {
	ctx := cmd.Context()

	comps, err := bootstrap.NewComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	urls := args
	if len(urls) == 0 {
		if comps.Source == nil {
			return errNoURLs
		}
		if urls, err = comps.Source.Load(ctx, opts.limit); err != nil {
			return fmt.Errorf("load urls from %s: %w", comps.Source.Name(), err)
		}
		logger.Info("Loaded urls",
			infralogger.String("source", comps.Source.Name()),
			infralogger.Int("count", len(urls)),
		)
	}

	report, err := comps.Detector.Detect(ctx, slug.ParseTags(opts.services), slug.ParseTags(opts.locations), urls)
	if err != nil {
		return err
	}

	if opts.save {
		gaps := database.NewResearchGaps(report, time.Now())
		if err = comps.GapRepository().ReplaceAll(ctx, gaps); err != nil {
			return fmt.Errorf("save research gaps: %w", err)
		}
		logger.Info("Research gaps saved", infralogger.Int("count", len(gaps)))
	}

	if opts.asJSON {
		return writeJSONReport(cmd.OutOrStdout(), report)
	}
	return writeTextReport(cmd.OutOrStdout(), report)
}

func writeJSONReport(w io.Writer, report *domain.GapReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func writeTextReport(w io.Writer, report *domain.GapReport) error {
	var b []byte

	b = fmt.Appendf(b, "Combinations: %d  URLs processed: %d\n", report.TotalCombinations, report.TotalURLsProcessed)

	if len(report.Matches) > 0 {
		keys := make([]string, 0, len(report.Matches))
		for k := range report.Matches {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b = append(b, "\nMatches:\n"...)
		for _, k := range keys {
			rec := report.Matches[k]
			b = fmt.Appendf(b, "- %s -> %s (%s)\n", k, rec.URL, rec.Method)
		}
	}

	b = fmt.Appendf(b, "\nTotal Research Gaps Found: %d\n", len(report.Gaps))
	if len(report.Gaps) > 0 {
		b = append(b, "\nResearch Gaps:\n"...)
		for _, gap := range report.Gaps {
			b = fmt.Appendf(b, "- %s\n", gap)
		}
	}

	_, err := w.Write(b)
	return err
}
