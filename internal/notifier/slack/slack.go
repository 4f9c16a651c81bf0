package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/courtmatch/internal/notifier"
	"github.com/slack-go/slack"
)

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier posts notifications to a Slack channel.
type Notifier struct {
	api       slackClient
	channelID string
	dryRun    bool
}

// NewNotifier creates a new Notifier.
func NewNotifier(token, channelID string, dryRun bool) *Notifier {
	return NewNotifierWithAPI(slack.New(token), channelID, dryRun)
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, dryRun bool) *Notifier {
	return &Notifier{
		api:       api,
		channelID: channelID,
		dryRun:    dryRun,
	}
}

// Notify formats the event as a Block Kit message and posts it.
func (s *Notifier) Notify(ctx context.Context, userID string, eventType notifier.EventType, payload map[string]any) error {
	msg := formatEvent(userID, eventType, payload)
	_, _, err := s.sendMessage(ctx, msg, s.dryRun)
	return err
}

func (s *Notifier) sendMessage(ctx context.Context, message slack.Message, dryRun bool) (string, string, error) {
	if dryRun {
		jsonMsg, _ := json.MarshalIndent(message, "", "  ")
		log.Info("[Dry Run] Would send Slack message", "channel", s.channelID, "message", string(jsonMsg))
		return "dry-run-ts", "dry-run-thread-ts", nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		log.Error("Failed to send Slack message", "error", err, "channel", s.channelID)
		return "", "", fmt.Errorf("failed to post message: %w", err)
	}

	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return channelID, timestamp, nil
}

var titles = map[notifier.EventType]string{
	notifier.EventApplicationReceived:   "🎾 New application for your match",
	notifier.EventApplicationConfirmed:  "✅ You're in!",
	notifier.EventApplicationWaitlisted: "⏳ You're on the waitlist",
	notifier.EventApplicationRejected:   "Application declined",
	notifier.EventApplicationPromoted:   "🎉 You're off the waitlist",
	notifier.EventApplicationExpired:    "Application expired",
	notifier.EventMatchConfirmed:        "🎾 Match confirmed! 🎾",
	notifier.EventMatchReopened:         "A slot opened up again",
	notifier.EventMatchCancelled:        "❌ Match cancelled",
	notifier.EventMatchForceCancelled:   "❌ Match cancelled by an organizer",
	notifier.EventResultReported:        "🏆 Result reported",
	notifier.EventResultDisputed:        "⚖️ Result disputed",
	notifier.EventDisputeResolved:       "⚖️ Dispute resolved",
}

// formatEvent creates the Slack message for a notification using Block Kit.
func formatEvent(userID string, eventType notifier.EventType, payload map[string]any) slack.Message {
	blocks := make([]slack.Block, 0)

	title, ok := titles[eventType]
	if !ok {
		title = string(eventType)
	}
	blocks = append(blocks, slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", title, true, false)))

	// Details, sorted by key for deterministic output.
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var lines []string
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("• %s: %v", humanize(k), payload[k]))
	}
	if len(lines) > 0 {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", strings.Join(lines, "\n"), true, false), nil, nil))
	}

	contextText := slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("For user `%s`", userID), false, false)
	blocks = append(blocks, slack.NewContextBlock("", contextText))

	return slack.NewBlockMessage(blocks...)
}

func humanize(key string) string {
	s := strings.ReplaceAll(key, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
