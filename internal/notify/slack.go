package notify

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

// Notifier posts run summaries to a Slack channel. Without a token or
// channel it stays silently disabled; missing credentials are not an error.
type Notifier struct {
	client  *slack.Client
	channel string
	log     zerolog.Logger
}

func New(token, channel string, log zerolog.Logger) *Notifier {
	n := &Notifier{
		channel: channel,
		log:     log.With().Str("component", "SlackNotifier").Logger(),
	}
	if token != "" && channel != "" {
		n.client = slack.New(token)
	}
	return n
}

// PostSummary fires and forgets: a delivery failure is logged, never
// surfaced, because the sheet already holds the durable outcome.
func (n *Notifier) PostSummary(ctx context.Context, text string) {
	if n.client == nil {
		n.log.Debug().Str("text", text).Msg("notification skipped, Slack not configured")
		return
	}

	_, _, err := n.client.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		n.log.Error().Err(err).Str("channel", n.channel).Msg("failed to post notification")
		return
	}
	n.log.Info().Str("channel", n.channel).Msg("notification posted")
}
