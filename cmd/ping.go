package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bhc880510-bsk/newseoul-booking/internal/config"
	"github.com/bhc880510-bsk/newseoul-booking/internal/newseoul"
)

// ping logs in and probes the server clock, so a plan can be verified well
// before the real opening instant.
func newPingCmd() *cobra.Command {
	var planPath string

	c := &cobra.Command{
		Use:   "ping",
		Short: "Verify credentials and report the server clock offset",
		RunE: func(cmd *cobra.Command, args []string) error {
			loc := newseoul.Seoul()
			plan, err := config.Load(planPath, time.Now().In(loc))
			if err != nil {
				return err
			}
			if err := resolveCredentials(&plan); err != nil {
				return err
			}
			if plan.MemberID == "" || plan.Password == "" {
				return fmt.Errorf("credentials are required (plan file, sealed file or NEWSEOUL_ID/NEWSEOUL_PW)")
			}

			log, done := newRunLogger(false)
			defer done()
			client := newseoul.New(log, newseoul.Options{
				BaseURL:     plan.BaseURL,
				InsecureTLS: plan.IsInsecureTLS(),
			})

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			if err := client.Login(ctx, plan.MemberID, plan.Password); err != nil {
				return err
			}
			offset := client.ServerClockOffset(ctx)
			fmt.Fprintf(os.Stdout, "login ok member_id=%s server_clock_offset=%.3fs\n", client.MemberID(), offset.Seconds())
			return nil
		},
	}

	c.Flags().StringVar(&planPath, "plan", "", "run plan YAML file")
	return c
}
