// Package discord answers slash commands by dispatching them to the request
// handler and posts audit lines to a log channel.
package discord

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"idcard/internal/adapters/requests"
	"idcard/internal/avatar"
	"idcard/internal/logger"
	"idcard/pkg/domain"
)

// CardFileName is the attachment name of rendered cards.
const CardFileName = "uoi-card.png"

// maxMessageLen keeps replies under Discord's 2000 character limit.
const maxMessageLen = 1900

// Session is the subset of *discordgo.Session the bot calls.
type Session interface {
	InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(i *discordgo.Interaction, edit *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ApplicationCommandBulkOverwrite(appID, guildID string, cmds []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var _ Session = (*discordgo.Session)(nil)

// Dispatcher executes typed requests. *requests.Handler satisfies it.
type Dispatcher interface {
	Register(ctx context.Context, req requests.RegisterRequest) requests.Result
	Lookup(ctx context.Context, req requests.LookupRequest) requests.Result
	RenderCard(ctx context.Context, req requests.RenderCardRequest) requests.Result
	UpdateStatus(ctx context.Context, req requests.UpdateStatusRequest) requests.Result
	UpdateRole(ctx context.Context, req requests.UpdateRoleRequest) requests.Result
	Delete(ctx context.Context, req requests.DeleteRequest) requests.Result
	List(ctx context.Context, req requests.ListRequest) requests.Result
}

var _ Dispatcher = (*requests.Handler)(nil)

// Config identifies the application and the guild it serves.
type Config struct {
	AppID       snowflake.ID
	GuildID     snowflake.ID // zero registers global commands
	AdminRoleID snowflake.ID
}

// Bot routes interactions to a Dispatcher.
type Bot struct {
	session  Session
	dispatch Dispatcher
	cfg      Config
	avatars  *avatar.HTTPFetcher
	logger   *slog.Logger
}

// New builds a bot. avatars may be nil to use a default HTTP fetcher.
func New(session Session, dispatch Dispatcher, cfg Config, avatars *avatar.HTTPFetcher, l *slog.Logger) *Bot {
	if avatars == nil {
		avatars = avatar.NewHTTPFetcher(nil)
	}
	if l == nil {
		l = slog.Default()
	}
	return &Bot{session: session, dispatch: dispatch, cfg: cfg, avatars: avatars, logger: l}
}

// Open creates a gateway session for token with the guild intent.
func Open(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	return s, nil
}

// Attach subscribes the bot to s's ready and interaction events.
func (b *Bot) Attach(s *discordgo.Session) {
	s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		b.logger.Info("discord bot online", "user", r.User.String())
		if err := b.RegisterCommands(); err != nil {
			b.logger.Error("register slash commands failed", "error", err)
		}
	})
	s.AddHandler(func(_ *discordgo.Session, ic *discordgo.InteractionCreate) {
		b.HandleInteraction(context.Background(), ic.Interaction)
	})
}

// RegisterCommands replaces the application's commands with Commands().
func (b *Bot) RegisterCommands() error {
	guild := ""
	if b.cfg.GuildID != 0 {
		guild = b.cfg.GuildID.String()
	}
	if _, err := b.session.ApplicationCommandBulkOverwrite(b.cfg.AppID.String(), guild, Commands()); err != nil {
		return fmt.Errorf("bulk overwrite commands: %w", err)
	}
	return nil
}

// HandleInteraction answers one slash command. Replies are deferred first so
// slow renders do not hit the interaction deadline.
func (b *Bot) HandleInteraction(ctx context.Context, i *discordgo.Interaction) {
	if i == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	user := interactionUser(i)
	fields := logger.LogFields{Command: data.Name, Component: "idcard.discord"}
	if user != nil {
		fields.RequesterID = user.ID
	}
	ctx = logger.WithLogFields(ctx, fields)

	if err := b.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		b.logger.WarnContext(ctx, "defer reply failed", "error", err)
		return
	}

	edit := b.dispatchCommand(ctx, i, data, user)
	if _, err := b.session.InteractionResponseEdit(i, edit); err != nil {
		b.logger.WarnContext(ctx, "edit reply failed", "error", err)
	}
}

func (b *Bot) dispatchCommand(ctx context.Context, i *discordgo.Interaction, data discordgo.ApplicationCommandInteractionData, user *discordgo.User) *discordgo.WebhookEdit {
	opts := optionMap(data.Options)
	admin := b.isAdmin(i)

	switch data.Name {
	case CmdRegister:
		owner := ""
		if o, ok := opts["user"]; ok {
			ref, err := snowflake.Parse(fmt.Sprint(o.Value))
			if err != nil {
				return text("❌ Invalid user.")
			}
			owner = ref.String()
		}
		res := b.dispatch.Register(ctx, requests.RegisterRequest{
			RequesterIsAdmin: admin,
			Name:             stringOpt(opts, "name"),
			Role:             stringOpt(opts, "role"),
			OwnerRef:         owner,
		})
		if !res.OK() {
			return failure(res.Err)
		}
		return text(fmt.Sprintf("✅ Registered.\nID: %s", res.Member.ID))

	case CmdVerify:
		res := b.dispatch.Lookup(ctx, requests.LookupRequest{ID: stringOpt(opts, "id")})
		if !res.OK() {
			return failure(res.Err)
		}
		m := res.Member
		return text(fmt.Sprintf("**Name:** %s\n**Role:** %s\n**Status:** %s", m.Name, m.Role, m.Status))

	case CmdLookup:
		res := b.dispatch.Lookup(ctx, requests.LookupRequest{ID: stringOpt(opts, "id")})
		if !res.OK() {
			return failure(res.Err)
		}
		return text(FormatMember(*res.Member))

	case CmdCard:
		var fetch requests.AvatarFetcher
		if user != nil {
			if f := b.avatars.URL(user.AvatarURL("512")); f != nil {
				fetch = requests.AvatarFetcher(f)
			}
		}
		res := b.dispatch.RenderCard(ctx, requests.RenderCardRequest{ID: stringOpt(opts, "id"), AvatarFetcher: fetch})
		if !res.OK() {
			return failure(res.Err)
		}
		edit := &discordgo.WebhookEdit{
			Files: []*discordgo.File{{Name: CardFileName, ContentType: "image/png", Reader: bytes.NewReader(res.Card)}},
		}
		if res.CardURL != "" {
			edit.Content = strPtr(res.CardURL)
		}
		return edit

	case CmdSetStatus:
		res := b.dispatch.UpdateStatus(ctx, requests.UpdateStatusRequest{
			RequesterIsAdmin: admin,
			ID:               stringOpt(opts, "id"),
			Status:           stringOpt(opts, "status"),
		})
		if !res.OK() {
			return failure(res.Err)
		}
		return text("✅ Status updated.")

	case CmdSetRole:
		res := b.dispatch.UpdateRole(ctx, requests.UpdateRoleRequest{
			RequesterIsAdmin: admin,
			ID:               stringOpt(opts, "id"),
			Role:             stringOpt(opts, "role"),
		})
		if !res.OK() {
			return failure(res.Err)
		}
		return text("✅ Role updated.")

	case CmdDelete:
		res := b.dispatch.Delete(ctx, requests.DeleteRequest{RequesterIsAdmin: admin, ID: stringOpt(opts, "id")})
		if !res.OK() {
			return failure(res.Err)
		}
		return text("🗑 Member deleted.")

	case CmdList:
		res := b.dispatch.List(ctx, requests.ListRequest{RequesterIsAdmin: admin})
		if !res.OK() {
			return failure(res.Err)
		}
		return text(FormatList(res.Members))
	}
	return text("❌ Unknown command.")
}

// isAdmin reports whether the invoking guild member holds the admin role.
// Direct messages are never admin.
func (b *Bot) isAdmin(i *discordgo.Interaction) bool {
	if b.cfg.AdminRoleID == 0 || i.Member == nil {
		return false
	}
	want := b.cfg.AdminRoleID.String()
	for _, role := range i.Member.Roles {
		if role == want {
			return true
		}
	}
	return false
}

func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		out[o.Name] = o
	}
	return out
}

func stringOpt(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	o, ok := opts[name]
	if !ok || o.Type != discordgo.ApplicationCommandOptionString {
		return ""
	}
	return o.StringValue()
}

func strPtr(s string) *string { return &s }

func text(s string) *discordgo.WebhookEdit {
	return &discordgo.WebhookEdit{Content: strPtr(s)}
}

func failure(f *requests.Failure) *discordgo.WebhookEdit {
	return text(FailureMessage(f))
}

// FailureMessage renders a request failure as a chat reply.
func FailureMessage(f *requests.Failure) string {
	switch f.Kind {
	case requests.KindAuthorization:
		return "❌ Admin only."
	case requests.KindNotFound:
		return "❌ Not found."
	case requests.KindValidation:
		return "❌ Invalid input: " + f.Message
	case requests.KindRender:
		return "❌ Could not render card."
	case requests.KindStoreUnavailable:
		return "⚠️ Member store unavailable: " + f.Message
	}
	return "❌ Something went wrong."
}

// FormatMember renders every field of m.
func FormatMember(m domain.Member) string {
	return fmt.Sprintf("**ID:** %s\n**Name:** %s\n**Role:** %s\n**Status:** %s\n**Issued:** %s\n**Internal Ref:** %s",
		m.ID, m.Name, m.Role, m.Status, m.IssuedOn, m.InternalID)
}

// FormatList renders members as a code block of "id | name | status" lines,
// truncated to fit one message.
func FormatList(members []domain.Member) string {
	if len(members) == 0 {
		return "No members."
	}
	var b strings.Builder
	b.WriteString("```\n")
	for i, m := range members {
		line := fmt.Sprintf("%s | %s | %s\n", m.ID, m.Name, m.Status)
		if b.Len()+len(line) > maxMessageLen {
			fmt.Fprintf(&b, "… and %d more\n", len(members)-i)
			break
		}
		b.WriteString(line)
	}
	b.WriteString("```")
	return b.String()
}
