package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	courtID   string
	format    string
	date      string
	slotSpecs []string
	reason    string
	score     string
	disputed  bool
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Create and manage matches",
}

var matchCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a match offered over one or more slots",
	Example: `  courtmatch-cli --actor alice match create --court court-1 --format SINGLES \
    --date 2025-06-03T18:00:00Z --slot 2025-06-03T18:00:00Z/90m`,
	RunE: func(cmd *cobra.Command, args []string) error {
		matchDate, err := time.Parse(time.RFC3339, date)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		slots := make([]map[string]any, 0, len(slotSpecs))
		for _, spec := range slotSpecs {
			slot, err := parseSlot(spec)
			if err != nil {
				return err
			}
			slots = append(slots, slot)
		}
		return performRequest(http.MethodPost, "/matches", map[string]any{
			"court_id": courtID,
			"format":   format,
			"date":     matchDate,
			"slots":    slots,
		})
	},
}

var matchGetCmd = &cobra.Command{
	Use:   "get <match-id>",
	Short: "Show a match with its slots and result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/matches/"+args[0], nil)
	},
}

var matchUpdateCmd = &cobra.Command{
	Use:   "update <match-id>",
	Short: "Change the date or court of a match",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch := map[string]any{}
		if date != "" {
			matchDate, err := time.Parse(time.RFC3339, date)
			if err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
			patch["date"] = matchDate
		}
		if courtID != "" {
			patch["court_id"] = courtID
		}
		return performRequest(http.MethodPatch, "/matches/"+args[0], patch)
	},
}

var matchDeleteCmd = &cobra.Command{
	Use:   "delete <match-id>",
	Short: "Cancel and remove a match",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodDelete, "/matches/"+args[0], nil)
	},
}

var matchCancelCmd = &cobra.Command{
	Use:   "cancel <match-id>",
	Short: "Cancel a match",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, "/matches/"+args[0]+"/cancel", map[string]any{"reason": reason})
	},
}

var matchForceCancelCmd = &cobra.Command{
	Use:   "force-cancel <match-id>",
	Short: "Cancel a match on behalf of its creator",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, "/matches/"+args[0]+"/force-cancel", map[string]any{"reason": reason})
	},
}

var matchReportCmd = &cobra.Command{
	Use:   "report <match-id>",
	Short: "Report the score of a played match",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, "/matches/"+args[0]+"/result", map[string]any{"score": score, "disputed": disputed})
	},
}

func init() {
	matchCreateCmd.Flags().StringVar(&courtID, "court", "", "Court id")
	matchCreateCmd.Flags().StringVar(&format, "format", "SINGLES", "SINGLES or DOUBLES")
	matchCreateCmd.Flags().StringVar(&date, "date", "", "Match date (RFC3339)")
	matchCreateCmd.Flags().StringArrayVar(&slotSpecs, "slot", nil, "Slot as <start>/<duration>, repeatable; prefix with 1: for the creator's side")
	_ = matchCreateCmd.MarkFlagRequired("court")
	_ = matchCreateCmd.MarkFlagRequired("date")

	matchUpdateCmd.Flags().StringVar(&date, "date", "", "New match date (RFC3339)")
	matchUpdateCmd.Flags().StringVar(&courtID, "court", "", "New court id")

	matchCancelCmd.Flags().StringVar(&reason, "reason", "", "Cancellation reason")
	matchForceCancelCmd.Flags().StringVar(&reason, "reason", "", "Cancellation reason")

	matchReportCmd.Flags().StringVar(&score, "score", "", `Score from the creator's side, e.g. "6-4 3-6 10-8"`)
	matchReportCmd.Flags().BoolVar(&disputed, "disputed", false, "Report the result as disputed")
	_ = matchReportCmd.MarkFlagRequired("score")

	matchCmd.AddCommand(matchCreateCmd, matchGetCmd, matchUpdateCmd, matchDeleteCmd, matchCancelCmd, matchForceCancelCmd, matchReportCmd)
}
