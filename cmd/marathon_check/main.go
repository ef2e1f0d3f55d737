package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	marathon "github.com/lucasjlepore/marathon-check"
	"github.com/lucasjlepore/marathon-check/config"
	"github.com/lucasjlepore/marathon-check/export"
	"github.com/lucasjlepore/marathon-check/fitimport"
	"github.com/lucasjlepore/marathon-check/strava"
)

func main() {
	var (
		configPath   = flag.String("config", "", "YAML config file (optional)")
		clientID     = flag.String("client-id", "", "Strava API client ID (default $STRAVA_CLIENT_ID)")
		clientSecret = flag.String("client-secret", "", "Strava API client secret (default $STRAVA_CLIENT_SECRET)")
		fromFile     = flag.String("from-file", "", "Analyze a previously exported activities JSON file instead of calling the API")
		fitPath      = flag.String("fit", "", "Analyze a .fit file or a directory of .fit files instead of calling the API")
		rawExport    = flag.String("export", "", "Write the fetched activities to this JSON file")
		outDir       = flag.String("out", "", "Write runs, report.json and manifest.json to this directory")
		format       = flag.String("format", export.FormatParquet, "Runs artifact format: parquet|csv")
		overwrite    = flag.Bool("overwrite", true, "Allow writing into non-empty output directories")
		targetPace   = flag.String("target-pace", "", "Target marathon pace as M:SS per km (default 5:30)")
		asOfFlag     = flag.String("as-of", "", "Analyze as of this date (YYYY-MM-DD) instead of now")
		jsonOut      = flag.Bool("json", false, "Emit the full report as JSON")
		noBrowser    = flag.Bool("no-browser", false, "Print the authorization URL without opening a browser")
		verbose      = flag.Bool("v", false, "Verbose logging")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [--from-file activities.json | --fit path] [--target-pace 5:30] [--json] [--out dir]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() > 0 || (*fromFile != "" && *fitPath != "") {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail(err)
	}
	if *clientID != "" {
		cfg.Strava.ClientID = *clientID
	}
	if *clientSecret != "" {
		cfg.Strava.ClientSecret = *clientSecret
	}
	if *targetPace != "" {
		pace, err := marathon.ParsePace(*targetPace)
		if err != nil {
			fail(fmt.Errorf("--target-pace: %w", err))
		}
		cfg.Analysis.TargetPaceSecPerKm = pace
	}

	asOf := time.Now()
	if *asOfFlag != "" {
		day, err := time.Parse("2006-01-02", *asOfFlag)
		if err != nil {
			fail(fmt.Errorf("--as-of: %w", err))
		}
		asOf = day.Add(24*time.Hour - time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var (
		raw    []marathon.RawWorkout
		source string
	)
	switch {
	case *fromFile != "":
		logger.Info("loading activities", "file", *fromFile)
		entries, err := export.ReadRaw(*fromFile)
		if err != nil {
			fail(err)
		}
		raw = decode(logger, entries)
		source = *fromFile
	case *fitPath != "":
		logger.Info("loading FIT activities", "path", *fitPath)
		workouts, warnings, err := fitimport.Load(*fitPath)
		if err != nil {
			fail(err)
		}
		for _, w := range warnings {
			logger.Warn("skipped FIT file", "file", w.Name, "reason", w.Reason)
		}
		raw = workouts
		source = *fitPath
	default:
		entries, err := fetch(ctx, logger, cfg.Strava, *noBrowser)
		if err != nil {
			fail(err)
		}
		if *rawExport != "" {
			if err := export.WriteRaw(*rawExport, entries); err != nil {
				fail(err)
			}
			logger.Info("exported raw activities", "file", *rawExport, "count", len(entries))
		}
		raw = decode(logger, entries)
		source = "strava"
	}

	report, err := marathon.Analyze(raw, asOf, cfg.Analysis.Params)
	if report != nil {
		for _, w := range report.Warnings {
			logger.Warn("skipped activity", "entry", w.String())
		}
		if report.LaterRuns > 0 {
			logger.Info("ignored runs dated after as-of", "count", report.LaterRuns, "as_of", report.AsOf.Format("2006-01-02"))
		}
	}
	if errors.Is(err, marathon.ErrNoRuns) {
		fmt.Fprintf(os.Stderr, "No %s activities found. Make sure the source has run data.\n", strings.ToLower(cfg.Analysis.Kind))
		os.Exit(1)
	}
	if err != nil {
		fail(err)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fail(fmt.Errorf("json encode: %w", err))
		}
	} else {
		fmt.Print(marathon.BuildReportNotes(report))
	}

	if *outDir != "" {
		result, err := export.Write(report, export.Options{
			OutDir:    *outDir,
			Format:    *format,
			Overwrite: *overwrite,
			Source:    source,
		})
		if err != nil {
			fail(err)
		}
		out := os.Stdout
		if *jsonOut {
			out = os.Stderr
		}
		fmt.Fprintf(out, "\nExport complete\n")
		fmt.Fprintf(out, "Run ID:          %s\n", result.RunID)
		fmt.Fprintf(out, "Output dir:      %s\n", result.OutputDir)
		fmt.Fprintf(out, "runs:            %s\n", result.RunsPath)
		fmt.Fprintf(out, "report.json:     %s\n", result.ReportPath)
		fmt.Fprintf(out, "manifest.json:   %s\n", result.ManifestPath)
	}
}

func fetch(ctx context.Context, logger *slog.Logger, cfg config.Strava, noBrowser bool) ([]json.RawMessage, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, fmt.Errorf("%w (create an application at https://www.strava.com/settings/api)", err)
	}

	auth := &strava.Authorizer{
		Config:    strava.OAuthConfig(cfg.ClientID, cfg.ClientSecret, cfg.RedirectPort),
		TokenFile: cfg.TokenFile,
		Logger:    logger,
		Open: func(authURL string) error {
			fmt.Fprintf(os.Stderr, "\nOpening browser for Strava authorization...\nIf it doesn't open automatically, visit:\n%s\n\n", authURL)
			if noBrowser {
				return nil
			}
			return openBrowser(authURL)
		},
	}
	ts, err := auth.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	client := strava.NewClient(ts, strava.WithPerPage(cfg.PerPage), strava.WithLogger(logger))

	athlete, err := client.Athlete(ctx)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(os.Stderr, "Athlete: %s %s (%s, %s)\n", athlete.Firstname, athlete.Lastname, orNA(athlete.City), orNA(athlete.Country))

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("fetching activities"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	entries, err := client.Activities(ctx, func(page, count, total int) {
		_ = bar.Add(count)
	})
	_ = bar.Finish()
	if err != nil {
		return nil, err
	}
	logger.Info("fetched activities", "count", len(entries))
	return entries, nil
}

func decode(logger *slog.Logger, entries []json.RawMessage) []marathon.RawWorkout {
	workouts, warnings := marathon.DecodeWorkouts(entries)
	for _, w := range warnings {
		logger.Warn("skipped activity", "entry", w.String())
	}
	return workouts
}

func openBrowser(u string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", u)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", u)
	default:
		cmd = exec.Command("xdg-open", u)
	}
	return cmd.Start()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "marathon_check failed: %v\n", err)
	os.Exit(1)
}
