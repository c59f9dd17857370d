package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/perbu/daybrief/config"
	"github.com/perbu/daybrief/dateparse"
	"github.com/perbu/daybrief/driver"
	"github.com/perbu/daybrief/gcal"
	"github.com/perbu/daybrief/logging"
	"github.com/perbu/daybrief/pushover"
	"github.com/perbu/daybrief/summary"
)

//go:embed .version
var embeddedVersion string

// app carries what every command needs once configuration is loaded.
type app struct {
	envFile string
	cfg     *config.Config
	loc     *time.Location
	logger  *zap.SugaredLogger
}

func (a *app) setup() error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("logging.New: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	a.cfg, a.loc, a.logger = cfg, loc, logger
	return nil
}

func (a *app) credentials() (*gcal.CredentialStore, error) {
	return gcal.NewCredentialStore(config.NewFileLoader(a.cfg.ConfigDir), a.cfg.RequestTimeout, a.logger)
}

// open builds a fresh calendar session. Credentials are read on every call so a
// scheduled run picks up a token written by `daybrief auth` in the meantime.
func (a *app) open(ctx context.Context) (gcal.Provider, error) {
	store, err := a.credentials()
	if err != nil {
		return nil, err
	}
	client, err := store.Session(ctx)
	if err != nil {
		return nil, err
	}
	return gcal.NewSource(ctx, client, a.loc, gcal.Options{
		Timeout: a.cfg.RequestTimeout,
		QPS:     a.cfg.CalendarQPS,
		Logger:  a.logger,
	})
}

func (a *app) notifier() (*pushover.Client, error) {
	if err := a.cfg.ValidatePushover(); err != nil {
		return nil, err
	}
	client, err := pushover.New(a.cfg.PushoverUserKey, a.cfg.PushoverAPIToken, a.cfg.RequestTimeout, a.logger)
	if err != nil {
		return nil, fmt.Errorf("pushover.New: %w", err)
	}
	client.SetPriority(a.cfg.PushoverPriority)
	return client, nil
}

func (a *app) driver(withNotifier bool) (*driver.Driver, error) {
	var n driver.Notifier
	if withNotifier {
		client, err := a.notifier()
		if err != nil {
			return nil, err
		}
		n = client
	}
	return driver.New(a.cfg, a.open, n, a.logger)
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "daybrief",
		Short: "Push a daily Google Calendar summary to Pushover",
		Long: `daybrief fetches today's events from every calendar the account can see,
renders a short summary and pushes it through Pushover at SUMMARY_TIME. When
TOMORROW_SUMMARY_TIME is set it also sends an evening preview of the next day.

Configuration comes from the environment, a .env file or config.yaml in
CONFIG_DIR. Run "daybrief auth" once to authorize calendar access.`,
		Version:       strings.TrimSpace(embeddedVersion),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.driver(true)
			if err != nil {
				return err
			}
			a.logger.Infow("daybrief starting", "version", strings.TrimSpace(embeddedVersion))
			return d.Schedule(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Path to a .env file")

	root.AddCommand(newTestCmd(a), newAuthCmd(a), newCalendarsCmd(a), newVersionCmd())
	return root
}

func newTestCmd(a *app) *cobra.Command {
	var (
		date     string
		tomorrow bool
		preview  bool
	)
	cmd := &cobra.Command{
		Use:   "test [YYYY-MM-DD]",
		Short: "Send one summary now and exit",
		Example: `  daybrief test
  daybrief test 2024-06-01
  daybrief test --tomorrow --print`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if date != "" {
					return errors.New("give the date either as an argument or with --date, not both")
				}
				date = args[0]
			}
			parser := dateparse.New(a.loc)
			day, err := parser.Target(date, tomorrow)
			if err != nil {
				return err
			}
			relative := parser.Relative(day)

			d, err := a.driver(!preview)
			if err != nil {
				return err
			}
			if preview {
				text, err := d.Summarize(cmd.Context(), day, string(relative))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), summary.Colorize(text))
				return nil
			}
			return d.Trigger(cmd.Context(), manualJob(day, relative))
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day to summarize (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&tomorrow, "tomorrow", false, "Summarize tomorrow instead of today")
	cmd.Flags().BoolVar(&preview, "print", false, "Print the summary instead of pushing it")
	return cmd
}

func manualJob(day time.Time, relative dateparse.Relative) driver.Job {
	job := driver.Job{Name: "manual", Title: driver.ManualTitle, Day: day, Relative: string(relative)}
	switch relative {
	case dateparse.Today:
		job.Title = driver.SummaryTitle
	case dateparse.Tomorrow:
		job.Title = driver.TomorrowTitle
	}
	return job
}

func newAuthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize calendar access and cache the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.credentials()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return store.Authorize(cmd.Context(), func(authURL string) {
				fmt.Fprintln(out, "Open this link in your browser to authorize daybrief:")
				fmt.Fprintln(out, color.CyanString(authURL))
			})
		},
	}
}

func newCalendarsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "calendars",
		Short: "List the calendars included in the summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			cals, err := src.ListCalendars(cmd.Context())
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"", "Name", "ID", "Time zone"})
			table.SetAutoWrapText(false)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetBorder(false)
			table.SetColumnSeparator("")
			table.SetCenterSeparator("")
			table.SetRowSeparator("")
			table.SetHeaderLine(false)
			for _, c := range cals {
				marker := ""
				if c.Primary {
					marker = color.GreenString("*")
				}
				table.Append([]string{marker, c.Name, c.ID, c.TimeZone})
			}
			table.Render()
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "daybrief", strings.TrimSpace(embeddedVersion))
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		stop()
		os.Exit(1)
	}
}
