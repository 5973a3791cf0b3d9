package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bhc880510-bsk/newseoul-booking/internal/config"
	"github.com/bhc880510-bsk/newseoul-booking/internal/eventlog"
	"github.com/bhc880510-bsk/newseoul-booking/internal/newseoul"
	"github.com/bhc880510-bsk/newseoul-booking/internal/runner"
	"github.com/bhc880510-bsk/newseoul-booking/internal/secrets"
	"github.com/bhc880510-bsk/newseoul-booking/internal/teetime"
)

func newRunCmd() *cobra.Command {
	var (
		planPath   string
		targetDate string
		runDate    string
		runTime    string
		course     string
		order      string
		dryRun     bool
		book       bool
		jsonLog    bool
	)

	c := &cobra.Command{
		Use:   "run",
		Short: "Execute a booking run against the configured opening instant",
		RunE: func(cmd *cobra.Command, args []string) error {
			loc := newseoul.Seoul()
			plan, err := config.Load(planPath, time.Now().In(loc))
			if err != nil {
				return err
			}
			if targetDate != "" {
				plan.TargetDate = targetDate
			}
			if runDate != "" {
				plan.RunDate = runDate
			}
			if runTime != "" {
				plan.RunTime = runTime
			}
			if course != "" {
				plan.Course = course
			}
			if order != "" {
				plan.Order = order
			}
			if cmd.Flags().Changed("dry-run") {
				plan.DryRun = &dryRun
			}
			if book {
				f := false
				plan.DryRun = &f
			}
			if err := resolveCredentials(&plan); err != nil {
				return err
			}
			if err := plan.Validate(); err != nil {
				return err
			}
			openAt, err := plan.OpenAt(loc)
			if err != nil {
				return err
			}

			log, done := newRunLogger(jsonLog)
			defer done()

			client := newseoul.New(log, newseoul.Options{
				BaseURL:     plan.BaseURL,
				InsecureTLS: plan.IsInsecureTLS(),
			})
			r := runner.New(client, log)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = r.Run(ctx, runner.Plan{
				MemberID:   plan.MemberID,
				Password:   plan.Password,
				TargetDate: plan.TargetDateAPI(),
				OpenAt:     openAt,
				Window:     teetime.Window{Start: plan.WindowStart, End: plan.WindowEnd},
				Course:     teetime.Category(plan.Course),
				Direction:  teetime.Direction(plan.Order),
				Delay:      plan.Delay(),
				DryRun:     plan.IsDryRun(),
			})
			if err != nil {
				return fmt.Errorf("run %s: %w", r.State(), err)
			}
			return nil
		},
	}

	c.Flags().StringVar(&planPath, "plan", "", "run plan YAML file")
	c.Flags().StringVar(&targetDate, "target-date", "", "reservation date YYYYMMDD (overrides plan)")
	c.Flags().StringVar(&runDate, "run-date", "", "opening date YYYYMMDD (overrides plan)")
	c.Flags().StringVar(&runTime, "run-time", "", "opening time HH:MM:SS KST (overrides plan)")
	c.Flags().StringVar(&course, "course", "", "course filter: All, 예술 or 문화 (overrides plan)")
	c.Flags().StringVar(&order, "order", "", "attempt order: asc or desc (overrides plan)")
	c.Flags().BoolVar(&dryRun, "dry-run", true, "preview the top candidate without booking")
	c.Flags().BoolVar(&book, "book", false, "actually write the reservation (disables dry-run)")
	c.Flags().BoolVar(&jsonLog, "json-log", false, "emit JSON log lines instead of console output")
	return c
}

// resolveCredentials fills the password from the sealed credentials file when
// the plan does not carry one inline.
func resolveCredentials(plan *config.Run) error {
	if plan.Password != "" || plan.CredentialsFile == "" {
		return nil
	}
	passphrase := os.Getenv("NEWSEOUL_PASSPHRASE")
	if passphrase == "" {
		return fmt.Errorf("NEWSEOUL_PASSPHRASE is required to open %s", plan.CredentialsFile)
	}
	creds, err := secrets.Load(plan.CredentialsFile, passphrase)
	if err != nil {
		return err
	}
	if plan.MemberID == "" {
		plan.MemberID = creds.MemberID
	}
	plan.Password = creds.Password
	return nil
}

// newRunLogger wires the event stream to the terminal and a replay buffer.
// The returned done func prints a final alert summary once the run ends.
func newRunLogger(jsonLog bool) (*eventlog.Logger, func()) {
	var sink eventlog.Sink
	if jsonLog {
		sink = eventlog.NewZerologSink(os.Stderr)
	} else {
		sink = eventlog.NewZerologSink(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = os.Stderr
			w.TimeFormat = "15:04:05.000"
		}))
	}
	buf := eventlog.NewBuffer(1000)
	log := eventlog.New(eventlog.Tee(buf, sink))
	return log, func() {
		for _, e := range buf.All() {
			if e.Alert {
				fmt.Fprintf(os.Stderr, "ALERT: %s\n", e.Message)
			}
		}
	}
}
