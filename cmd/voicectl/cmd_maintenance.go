package main

import (
	"fmt"
	"time"

	"voice-agent-platform/internal/auth"
	"voice-agent-platform/internal/db"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(reconcileNumbersCmd, reconcileAgentsCmd, migrateCmd, issueTokenCmd)
	issueTokenCmd.Flags().String("user", "", "user id (token subject)")
	issueTokenCmd.Flags().String("email", "", "email claim")
	_ = issueTokenCmd.MarkFlagRequired("user")
}

var reconcileNumbersCmd = &cobra.Command{
	Use:   "reconcile-numbers",
	Short: "Record numbers owned at Twilio but missing from phone_numbers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, a, done, err := services(cmd)
		if err != nil {
			return err
		}
		defer done()

		rep, err := a.NumberSweep.Sweep(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, rep)
	},
}

var reconcileAgentsCmd = &cobra.Command{
	Use:   "reconcile-agents",
	Short: "Rewrite agent phone numbers from phone_numbers links",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, a, done, err := services(cmd)
		if err != nil {
			return err
		}
		defer done()

		rep, err := a.AgentSweep.Sweep(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, rep)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded Postgres schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, e, err := setup(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := db.Migrate(ctx, e.db); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
		return nil
	},
}

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token",
	Short: "Sign an access token for local testing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		m, err := auth.NewManager(cfg.Auth)
		if err != nil {
			return err
		}
		user, _ := cmd.Flags().GetString("user")
		email, _ := cmd.Flags().GetString("email")
		tok, claims, err := m.Issue(time.Now(), user, email)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{
			"access_token": tok,
			"session_id":   claims.SessionID,
			"expires_at":   claims.ExpiresAt.Time,
		})
	},
}
