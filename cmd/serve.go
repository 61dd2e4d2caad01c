package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/violation-assistant/internal/bot"
	"github.com/sells-group/violation-assistant/internal/conversation"
	"github.com/sells-group/violation-assistant/internal/server"
)

var (
	servePort    int
	serveOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and, when telegram.token is set, the bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		var tr server.Transcriber
		if env.Transcriber != nil {
			tr = env.Transcriber
		}
		srv := server.New(env.Pipeline, tr, server.Config{
			MaxDurationSecs: cfg.Voice.MaxDurationSecs,
			MinTextLength:   cfg.Text.MinLength,
			MaxTextLength:   cfg.Text.MaxLength,
			AllowedOrigins:  serveOrigins,
		})

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.ListenAndServe(gctx, cfg.Server.Port)
		})

		if cfg.Telegram.Token != "" {
			g.Go(func() error {
				return runBot(gctx, env)
			})
		} else {
			zap.L().Info("telegram.token not set, running HTTP API only")
		}

		return g.Wait()
	},
}

// runBot connects to Telegram and long-polls until ctx is cancelled.
func runBot(ctx context.Context, env *pipelineEnv) error {
	if env.Transcriber == nil {
		return eris.New("bot: voice transcription is not configured")
	}

	checkInteractionLog(ctx, env.Logger)

	api, err := bot.Connect(cfg.Telegram.Token)
	if err != nil {
		return err
	}
	b := bot.New(api, cfg.Telegram.RatePerSec, bot.WithErrorLogger(env.Pipeline))

	ctrl := conversation.New(conversation.NewSessionStore(), b, b, env.Transcriber, env.Pipeline, conversation.Config{
		WelcomeImage:    cfg.Telegram.WelcomeImage,
		MaxDurationSecs: cfg.Voice.MaxDurationSecs,
		MinTextLength:   cfg.Text.MinLength,
		MaxTextLength:   cfg.Text.MaxLength,
	})

	zap.L().Info("bot started", zap.String("username", api.Self.UserName))
	return b.Run(ctx, ctrl)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "HTTP listen port (overrides server.port)")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "cors-origin", nil, "allowed CORS origins (default: any)")
	rootCmd.AddCommand(serveCmd)
}
