package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mockview/interviewer/internal/config"
	"github.com/mockview/interviewer/internal/handler"
	"github.com/mockview/interviewer/internal/model/question"
	"github.com/mockview/interviewer/internal/service/ai"
	"github.com/mockview/interviewer/internal/service/session"
	"github.com/mockview/interviewer/internal/service/transcript"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	setupLogging()

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file loaded, continuing with system environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	bank := question.NewBank(cfg.Interview.BankPath)
	log.Info().Int("questions", bank.Count()).Str("path", cfg.Interview.BankPath).Msg("question bank loaded")

	transcripts := transcript.NewStore(cfg.Interview.TranscriptsDir)
	prompts := ai.NewPrompts(cfg.Interview.Topic, cfg.Interview.MaxQuestions)

	var gateway *ai.Gateway
	if cfg.AI.Enabled() {
		chatModel, err := cfg.AI.NewChatModel(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize chat model, continuing with echo agent")
		} else {
			gateway = ai.NewGateway(chatModel, cfg.AI.Model, cfg.AI.Timeout, cfg.Interview.MaxToolRounds)
			log.Info().Str("model", cfg.AI.Model).Msg("generation gateway initialized")
		}
	} else {
		log.Warn().Msg("ark credentials not configured, using echo agent")
	}

	newAgent := func() session.Agent {
		if gateway == nil {
			return ai.NewEchoAgent()
		}
		return ai.NewAgent(gateway, bank, prompts, ai.AgentConfig{
			MaxAssistantTurns: cfg.Interview.MaxAssistantTurns,
		})
	}

	sessions := session.NewService(newAgent, transcripts)

	opening := fmt.Sprintf("Welcome! I'll be your %s interviewer today. Tell me a bit about your experience and we'll get started.", cfg.Interview.Topic)
	router := handler.NewRouter(sessions, bank, opening)

	startServer(ctx, cfg.Server, router)
}

func setupLogging() {
	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if os.Getenv("LOG_FORMAT") == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", serverCfg.Addr).Msg("interview backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
