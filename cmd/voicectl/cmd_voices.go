package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(syncVoicesCmd, organizePreviewsCmd, revertPreviewsCmd)
}

var syncVoicesCmd = &cobra.Command{
	Use:   "sync-voices",
	Short: "Mirror the voice catalog and preview audio into the platform",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, a, done, err := services(cmd)
		if err != nil {
			return err
		}
		defer done()

		sum, err := a.VoiceSync.Sync(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, sum)
	},
}

var organizePreviewsCmd = &cobra.Command{
	Use:   "organize-previews",
	Short: "Move root-level preview files into per-language folders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, a, done, err := services(cmd)
		if err != nil {
			return err
		}
		defer done()

		rep, err := a.Previews.Organize(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{"moved": rep.Moved(), "results": rep.Results})
	},
}

var revertPreviewsCmd = &cobra.Command{
	Use:   "revert-previews",
	Short: "Move preview files from language folders back to the bucket root",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, a, done, err := services(cmd)
		if err != nil {
			return err
		}
		defer done()

		rep, err := a.Previews.Revert(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{"moved": rep.Moved(), "results": rep.Results})
	},
}
