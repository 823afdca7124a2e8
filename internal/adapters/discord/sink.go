package discord

import (
	"context"
	"fmt"

	"github.com/disgoorg/snowflake/v2"

	"idcard/internal/audit"
)

var _ audit.Sink = (*ChannelSink)(nil)

// ChannelSink posts audit summaries to a text channel.
type ChannelSink struct {
	session Session
	channel snowflake.ID
}

func NewChannelSink(session Session, channel snowflake.ID) *ChannelSink {
	return &ChannelSink{session: session, channel: channel}
}

func (s *ChannelSink) Name() string { return "discord" }

// Deliver ignores ctx; discordgo requests carry their own timeout.
func (s *ChannelSink) Deliver(_ context.Context, e audit.Event) error {
	if s.channel == 0 {
		return nil
	}
	if _, err := s.session.ChannelMessageSend(s.channel.String(), "📘 "+e.Summary); err != nil {
		return fmt.Errorf("post to channel %s: %w", s.channel, err)
	}
	return nil
}
