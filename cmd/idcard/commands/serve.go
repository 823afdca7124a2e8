package commands

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"idcard/internal/adapters/discord"
	httpadapter "idcard/internal/adapters/http"
	"idcard/internal/audit"
	"idcard/internal/avatar"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Discord bot and the HTTP API",
		Long: `Starts every configured front end. The Discord bot runs when DISCORD_TOKEN
is set; the HTTP API runs when IDCARD_HTTP_ADDR is set. The process exits on
SIGINT or SIGTERM after draining the audit queue.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	p := out(cmd)
	cfg, err := loadConfig()
	if err != nil {
		return p.Error("Invalid configuration", err.Error(), []string{"Check the IDCARD_* and DISCORD_* environment variables", "Copy .env.example to .env for local development"})
	}
	if !cfg.Discord.Enabled() && !cfg.HTTP.Enabled() {
		return p.Error("Nothing to serve", "Neither the Discord bot nor the HTTP API is configured.", []string{"Set DISCORD_TOKEN and DISCORD_APP_ID to run the bot", "Set IDCARD_HTTP_ADDR to run the HTTP API"})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		session *discordgo.Session
		extra   []audit.Sink
	)
	if cfg.Discord.Enabled() {
		if session, err = discord.Open(cfg.Discord.Token); err != nil {
			return err
		}
		if cfg.Audit.HasSink("discord") {
			extra = append(extra, discord.NewChannelSink(session, cfg.Discord.LogChannelID))
		}
	}

	a, err := newApp(ctx, cfg, withSinks(extra...))
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.Close(sctx); err != nil {
			a.logger.Error("shutdown", "error", err)
		}
	}()

	avatars := avatar.NewHTTPFetcher(nil)
	errCh := make(chan error, 2)

	if session != nil {
		bot := discord.New(session, a.handler, discord.Config{
			AppID:       cfg.Discord.AppID,
			GuildID:     cfg.Discord.GuildID,
			AdminRoleID: cfg.Discord.AdminRoleID,
		}, avatars, a.logger)
		bot.Attach(session)
		if err := session.Open(); err != nil {
			return fmt.Errorf("open discord gateway: %w", err)
		}
		defer func() { _ = session.Close() }()
		p.Success("Discord bot connected")
	}

	var srv *http.Server
	if cfg.HTTP.Enabled() {
		router := httpadapter.NewRouter(a.handler, httpadapter.RouterConfig{
			AdminAPIKey: cfg.HTTP.AdminAPIKey,
			Release:     cfg.IsProduction(),
			Gatherer:    a.registry,
			Avatars:     avatars,
			Logger:      a.logger,
		})
		router.GET("/debug/vars", gin.WrapH(expvar.Handler()))
		srv = &http.Server{Addr: cfg.HTTP.Addr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
		p.Success("HTTP API listening on %s", cfg.HTTP.Addr)
	}

	select {
	case <-ctx.Done():
		p.Step("Shutting down")
	case err = <-errCh:
	}
	if srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if serr := srv.Shutdown(sctx); serr != nil {
			err = errors.Join(err, serr)
		}
	}
	return err
}
