package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	guestName     string
	applicationID string
	resolution    string
)

// parseSlot reads "[1:]<start>/<duration>". The "1:" prefix puts the slot on the creator's side.
func parseSlot(spec string) (map[string]any, error) {
	side := 2
	if rest, ok := strings.CutPrefix(spec, "1:"); ok {
		side = 1
		spec = rest
	}
	startRaw, durRaw, ok := strings.Cut(spec, "/")
	if !ok {
		return nil, fmt.Errorf("invalid --slot %q: expected <start>/<duration>", spec)
	}
	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid --slot start %q: %w", startRaw, err)
	}
	dur, err := time.ParseDuration(durRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid --slot duration %q: %w", durRaw, err)
	}
	return map[string]any{"start": start, "end": start.Add(dur), "side": side}, nil
}

var slotCmd = &cobra.Command{
	Use:   "slot",
	Short: "Apply to and confirm slots",
}

var slotApplyCmd = &cobra.Command{
	Use:   "apply <slot-id>",
	Short: "Apply to a slot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]any{}
		if guestName != "" {
			body["guest_name"] = guestName
		}
		return performRequest(http.MethodPost, "/slots/"+args[0]+"/applications", body)
	},
}

var slotListCmd = &cobra.Command{
	Use:   "applications <slot-id>",
	Short: "List the applications of a slot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/slots/"+args[0]+"/applications", nil)
	},
}

var slotHoldCmd = &cobra.Command{
	Use:   "hold <slot-id>",
	Short: "Reserve a slot while choosing an applicant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, "/slots/"+args[0]+"/hold", nil)
	},
}

var slotConfirmCmd = &cobra.Command{
	Use:   "confirm <slot-id>",
	Short: "Confirm an application for a slot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, "/slots/"+args[0]+"/confirm", map[string]any{"application_id": applicationID})
	},
}

var applicationCmd = &cobra.Command{
	Use:   "application",
	Short: "Reject or withdraw applications",
}

var applicationRejectCmd = &cobra.Command{
	Use:   "reject <application-id>",
	Short: "Reject an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, "/applications/"+args[0]+"/reject", nil)
	},
}

var applicationWithdrawCmd = &cobra.Command{
	Use:   "withdraw <application-id>",
	Short: "Withdraw your application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodDelete, "/applications/"+args[0], nil)
	},
}

var resultCmd = &cobra.Command{
	Use:   "result",
	Short: "Resolve disputed results",
}

var resultResolveCmd = &cobra.Command{
	Use:   "resolve <result-id>",
	Short: "Resolve a disputed result with CONFIRM, OVERTURN or VOID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, "/results/"+args[0]+"/resolve", map[string]any{"resolution": resolution, "score": score})
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Inspect player ratings",
}

var userStatsCmd = &cobra.Command{
	Use:   "stats <user-id>",
	Short: "Show a user's rating",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/users/"+args[0]+"/stats", nil)
	},
}

var userEloCmd = &cobra.Command{
	Use:   "elo <user-id>",
	Short: "Show a user's rating history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/users/"+args[0]+"/elo", nil)
	},
}

var userVerifyCmd = &cobra.Command{
	Use:   "verify <user-id>",
	Short: "Replay a user's rating history and compare it with the stored rating",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/users/"+args[0]+"/verify", nil)
	},
}

func init() {
	slotApplyCmd.Flags().StringVar(&guestName, "guest", "", "Name of an unregistered partner (doubles)")
	slotConfirmCmd.Flags().StringVar(&applicationID, "application", "", "Application id to confirm")
	_ = slotConfirmCmd.MarkFlagRequired("application")
	slotCmd.AddCommand(slotApplyCmd, slotListCmd, slotHoldCmd, slotConfirmCmd)

	applicationCmd.AddCommand(applicationRejectCmd, applicationWithdrawCmd)

	resultResolveCmd.Flags().StringVar(&resolution, "resolution", "", "CONFIRM, OVERTURN or VOID")
	resultResolveCmd.Flags().StringVar(&score, "score", "", "Corrected score for OVERTURN")
	_ = resultResolveCmd.MarkFlagRequired("resolution")
	resultCmd.AddCommand(resultResolveCmd)

	userCmd.AddCommand(userStatsCmd, userEloCmd, userVerifyCmd)
}
