package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/beekhof/gcal/internal/agenda"
	"github.com/beekhof/gcal/internal/auth"
	calclient "github.com/beekhof/gcal/internal/calendar"
	"github.com/beekhof/gcal/internal/config"
	"github.com/beekhof/gcal/internal/logging"
)

const longHelp = `Read-only Google Calendar client.

Lists the events of your Google calendars between two dates, the days on
which you have nothing busy, or the calendars themselves. Give one or more
CALENDAR names to restrict the listing to those calendars.

SETUP:
    1. Create a project in Google Cloud Console and enable the Google
       Calendar API for it.
    2. Create an OAuth client of type "Desktop app", download its
       credentials JSON and store it as ~/.local/gcal/credentials.json
       (or point --credentials-path / GCAL_CREDENTIALS_PATH at it).
    3. Run 'gcal login' once to authorize read-only access.

CONFIGURATION PRECEDENCE (highest to lowest):
    1. Command-line flags
    2. Environment variables (GCAL_CREDENTIALS_PATH, GCAL_TOKEN_PATH,
       GCAL_WINDOW_DAYS, GCAL_SHOW, GCAL_EXCLUDE, GCAL_STRICT, GCAL_FORMAT),
       including those set in ~/.local/gcal/.env or ./.env
    3. Config file (--config, or ~/.local/gcal/config.toml)
    4. Defaults

    The application directory can be moved with GCAL_HOME.

DISPLAY OPTIONS (--show):
    attachments   list each event's attachments
    busy, free    prefix each event with "busy" or "free"
    day           show the weekday with each date
    location      show each event's location (same as --location)
    notes         show each event's notes (same as --notes)
    year          show the year of each start date`

// rootOptions holds the values of the command-line flags.
type rootOptions struct {
	configFile      string
	debug           bool
	credentialsPath string
	tokenPath       string

	start           string
	end             string
	list            bool
	freeDays        bool
	max             int
	not             string
	show            string
	location        bool
	notes           bool
	format          string
	strict          bool
	groupCalendars  bool
	recordResponses bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "gcal [flags] [CALENDAR...]",
		Short:        "List Google Calendar events",
		Long:         longHelp,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgenda(cmd.Context(), cmd, opts, args)
		},
	}

	opts.addFlags(cmd)
	cmd.AddCommand(newLoginCmd(opts))
	return cmd
}

// addFlags registers the command-line flags on cmd.
func (opts *rootOptions) addFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "Path to TOML config file (default: config.toml in the application directory)")
	pf.BoolVar(&opts.debug, "debug", false, "Show debug logs and record raw API responses")
	pf.StringVar(&opts.credentialsPath, "credentials-path", "", "Path to Google OAuth credentials JSON file (overrides config file and GCAL_CREDENTIALS_PATH)")
	pf.StringVar(&opts.tokenPath, "token-path", "", "Path to the stored OAuth token (overrides config file and GCAL_TOKEN_PATH)")

	f := cmd.Flags()
	f.StringVar(&opts.start, "start", "", "Earliest date to list, YYYY-MM-DD (default: today)")
	f.StringVar(&opts.end, "end", "", "Latest date to list, YYYY-MM-DD (default: start plus window_days)")
	f.BoolVar(&opts.list, "list", false, "List the calendars available to the current user, then quit")
	f.BoolVar(&opts.freeDays, "free-days", false, "Report the dates that contain no busy events")
	f.IntVar(&opts.max, "max", 0, "Maximum number of events to report")
	f.StringVar(&opts.not, "not", "", "Comma-separated calendars NOT to report events for")
	f.StringVar(&opts.show, "show", "", "Comma-separated extra attributes to show (see DISPLAY OPTIONS)")
	f.BoolVar(&opts.location, "location", false, "Show the location of each event that has one")
	f.BoolVar(&opts.notes, "notes", false, "Show the notes of each event that has them")
	f.StringVar(&opts.format, "format", "", "Output format: text or ics")
	f.BoolVar(&opts.strict, "strict", false, "Fail on the first malformed event instead of skipping it")
	f.BoolVar(&opts.groupCalendars, "group-calendars", false, "Include Google's shared group calendars (holidays, weather, ...)")
	f.BoolVar(&opts.recordResponses, "record-responses", false, "Record raw API responses in the application directory")
}

// loadConfig resolves the application directory and configuration shared by
// every command.
func loadConfig(opts *rootOptions, overrides config.Overrides) (*config.Config, error) {
	appDir, err := config.DefaultAppDir()
	if err != nil {
		return nil, err
	}
	if err := config.EnsureAppDir(appDir); err != nil {
		return nil, err
	}

	overrides.CredentialsPath = opts.credentialsPath
	overrides.TokenPath = opts.tokenPath
	cfg, err := config.LoadConfig(appDir, opts.configFile, overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newFlow builds the OAuth flow from the configured credentials and token.
func newFlow(cfg *config.Config, out io.Writer, logger *zap.Logger) (*auth.Flow, error) {
	clientID, clientSecret, err := config.LoadGoogleCredentials(cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load Google credentials: %w", err)
	}
	return &auth.Flow{
		Config: auth.NewOAuthConfig(clientID, clientSecret),
		Store:  auth.NewFileTokenStore(cfg.TokenPath),
		Out:    out,
		Logger: logger,
	}, nil
}

// overridesFromFlags validates the flags that feed the configuration.
func overridesFromFlags(cmd *cobra.Command, opts *rootOptions) (config.Overrides, error) {
	var o config.Overrides

	if cmd.Flags().Changed("max") && opts.max <= 0 {
		return o, fmt.Errorf("--max must be a positive number, got %d", opts.max)
	}
	o.MaxResults = opts.max

	exclude, err := config.ParseCSV(opts.not)
	if err != nil {
		return o, fmt.Errorf("invalid --not value: %w", err)
	}
	o.Exclude = exclude

	show, err := config.ParseCSV(opts.show)
	if err != nil {
		return o, fmt.Errorf("invalid --show value: %w", err)
	}
	o.Show = show
	if opts.location {
		o.ExtraShow = append(o.ExtraShow, "location")
	}
	if opts.notes {
		o.ExtraShow = append(o.ExtraShow, "notes")
	}

	o.Format = opts.format
	o.Strict = opts.strict
	o.IncludeGroupCalendars = opts.groupCalendars
	o.RecordResponses = opts.recordResponses || opts.debug
	return o, nil
}

// buildWindow turns the --start and --end values into a Window. Without
// --end the window runs for days after the start.
func buildWindow(start, end string, days int, now time.Time) (agenda.Window, error) {
	if start == "" && end == "" {
		return agenda.DefaultWindow(now, days), nil
	}

	loc := now.Location()
	first := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if start != "" {
		d, err := config.ParseDate(start, loc)
		if err != nil {
			return agenda.Window{}, fmt.Errorf("invalid --start value: %w", err)
		}
		first = d
	}

	last := first.AddDate(0, 0, days)
	if end != "" {
		d, err := config.ParseDate(end, loc)
		if err != nil {
			return agenda.Window{}, fmt.Errorf("invalid --end value: %w", err)
		}
		last = d
	}
	return agenda.NewWindow(first, last)
}

func runAgenda(ctx context.Context, cmd *cobra.Command, opts *rootOptions, args []string) error {
	logger := logging.New(cmd.ErrOrStderr(), opts.debug)
	defer logger.Sync()

	overrides, err := overridesFromFlags(cmd, opts)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts, overrides)
	if err != nil {
		return err
	}
	display, err := config.ParseDisplayOptions(cfg.Show)
	if err != nil {
		return err
	}
	window, err := buildWindow(opts.start, opts.end, cfg.WindowDays, time.Now())
	if err != nil {
		return err
	}
	logger.Debug("configuration loaded",
		zap.String("app_dir", cfg.AppDir),
		zap.Time("start", window.Start),
		zap.Time("end", window.End),
		zap.Strings("include", args),
		zap.Strings("exclude", cfg.Exclude))

	flow, err := newFlow(cfg, cmd.ErrOrStderr(), logger)
	if err != nil {
		return err
	}
	httpClient, err := flow.Client(ctx)
	if err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	client, err := calclient.NewClient(ctx, httpClient)
	if err != nil {
		return err
	}
	if cfg.RecordResponses {
		recorder, f, err := calclient.OpenRecorder(cfg.ResponsesPath())
		if err != nil {
			return err
		}
		defer f.Close()
		client.Recorder = recorder
		defer func() {
			if err := recorder.Err(); err != nil {
				logger.Warn("failed to record API responses", zap.Error(err))
			}
		}()
		logger.Debug("recording API responses", zap.String("path", cfg.ResponsesPath()))
	}

	a := agenda.NewAgenda(client, agenda.Selection{
		Include:               args,
		Exclude:               cfg.Exclude,
		IncludeGroupCalendars: cfg.IncludeGroupCalendars,
	}, logger)
	a.Strict = cfg.Strict
	a.Max = cfg.MaxResults

	out := cmd.OutOrStdout()

	if opts.list {
		calendars, err := a.Calendars(ctx)
		if err != nil {
			return err
		}
		return agenda.WriteCalendars(out, calendars)
	}

	events, err := a.Collect(ctx, window)
	if err != nil {
		return err
	}
	logger.Debug("events collected", zap.Int("count", len(events)))

	switch {
	case opts.freeDays:
		return agenda.WriteFreeDays(out, agenda.FreeDays(events, window))
	case cfg.Format == config.FormatICS:
		return agenda.WriteICS(out, events, time.Now())
	default:
		return agenda.WriteText(out, events, display)
	}
}
