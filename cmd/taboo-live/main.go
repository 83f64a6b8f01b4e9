// Command taboo-live runs a realtime word-guessing voice session
// against the OpenAI realtime API from the terminal.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kezlabs/taboo-live/internal/metrics"
	"github.com/kezlabs/taboo-live/internal/store"
	"github.com/kezlabs/taboo-live/pkg/game"
	"github.com/kezlabs/taboo-live/pkg/realtime"
)

type options struct {
	apiKey      string
	baseURL     string
	model       string
	mode        string
	voice       string
	pace        string
	wordsPath   string
	dbPath      string
	metricsAddr string
	lenient     bool
	substring   bool
	debug       bool
}

func main() {
	os.Exit(runMain())
}

func runMain() int {
	// .env is optional; on-disk config loses to real environment.
	_ = godotenv.Load()

	var opt options
	flag.StringVar(&opt.apiKey, "api-key", strings.TrimSpace(os.Getenv("OPENAI_API_KEY")), "OpenAI API key (also reads OPENAI_API_KEY)")
	flag.StringVar(&opt.baseURL, "base-url", "https://api.openai.com/v1", "API base URL")
	flag.StringVar(&opt.model, "model", "", "Realtime model (default: "+realtime.DefaultRealtimeModel+")")
	flag.StringVar(&opt.mode, "mode", "taboo", "Session mode: taboo, casual, or roleplay")
	flag.StringVar(&opt.voice, "voice", "alloy", "Peer voice name")
	flag.StringVar(&opt.pace, "pace", "medium", "Speaking pace: slow, medium, or fast")
	flag.StringVar(&opt.wordsPath, "words", "", "Custom YAML word list (default: embedded list)")
	flag.StringVar(&opt.dbPath, "db", "taboo.db", "SQLite database path for progress tracking")
	flag.StringVar(&opt.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	flag.BoolVar(&opt.lenient, "lenient-guesses", false, "Accept bare target-word mentions as guesses")
	flag.BoolVar(&opt.substring, "match-substring", false, "Match forbidden words as substrings instead of whole words")
	flag.BoolVar(&opt.debug, "debug", false, "Enable debug logging")
	flag.Parse()

	logger, err := buildLogger(opt.debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	if opt.apiKey == "" {
		fmt.Fprintln(os.Stderr, "an API key is required: set OPENAI_API_KEY or pass --api-key")
		return 2
	}

	cfg := game.DefaultConfig()
	cfg.Mode = game.Mode(opt.mode)
	cfg.Voice = opt.voice
	cfg.Pace = game.Pace(opt.pace)
	cfg.MatchSubstring = opt.substring
	if opt.lenient {
		cfg.Strictness = game.StrictnessLenient
	}
	switch cfg.Mode {
	case game.ModeTaboo, game.ModeCasual, game.ModeRoleplay:
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", opt.mode)
		return 2
	}

	bank, err := loadBank(opt.wordsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "word list: %v\n", err)
		return 1
	}

	db, err := store.Open(opt.dbPath, logger.Named("store"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		return 1
	}
	defer db.Close()

	m := metrics.New("taboo")
	if opt.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		go func() {
			if err := http.ListenAndServe(opt.metricsAddr, mux); err != nil {
				logger.Warn("metrics server", zap.Error(err))
			}
		}()
		logger.Info("serving metrics", zap.String("addr", opt.metricsAddr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	negotiator, err := realtime.NewNegotiationClient(realtime.NegotiationConfig{
		BaseURL: opt.baseURL,
		APIKey:  opt.apiKey,
		Model:   opt.model,
		Logger:  logger.Named("negotiate"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "negotiation: %v\n", err)
		return 1
	}

	cred, err := negotiator.CreateSession(ctx, cfg.Voice, game.ModePrompt(cfg.Mode))
	if err != nil {
		fmt.Fprintf(os.Stderr, "create session: %v\n", err)
		return 1
	}
	url, header := negotiator.ChannelURL(cred)
	channel, err := realtime.Dial(ctx, realtime.ChannelConfig{
		URL:      url,
		Header:   header,
		Logger:   logger.Named("channel"),
		OnRedial: m.Reconnects.Inc,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial: %v\n", err)
		return 1
	}
	defer channel.Close()

	session := game.NewSession(cfg, channel, bank,
		game.WithLogger(logger.Named("game")),
		game.WithStore(db),
		game.WithMetrics(m),
	)
	m.SessionsActive.Inc()
	defer m.SessionsActive.Dec()

	if err := session.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "start session: %v\n", err)
		return 1
	}

	go pumpChannel(ctx, channel, session, m, logger)
	go printEvents(session)

	fmt.Println("Connected. Commands: start, skip, continue, feedback, done, next, pace <slow|medium|fast>, progress, weekly, quit")
	runCommandLoop(ctx, session, db, logger)

	session.End()
	return 0
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func loadBank(path string) (*game.Bank, error) {
	if path == "" {
		return game.DefaultBank()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return game.LoadBank(data)
}

// pumpChannel feeds decoded peer frames into the controller until the
// channel closes.
func pumpChannel(ctx context.Context, channel *realtime.Channel, session *game.Session, m *metrics.Metrics, logger *zap.Logger) {
	var lastDropped int64
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-channel.Events():
			if !ok {
				if err := channel.Err(); err != nil {
					logger.Warn("channel closed", zap.Error(err))
				}
				return
			}
			session.HandleEvent(event)
			if dropped := channel.Dropped(); dropped > lastDropped {
				m.FramesDropped.Add(float64(dropped - lastDropped))
				lastDropped = dropped
			}
		}
	}
}

func printEvents(session *game.Session) {
	for event := range session.Events() {
		switch ev := event.(type) {
		case game.RoundStartedEvent:
			fmt.Printf("\n== New word: %s (avoid: %s)\n", ev.Word, strings.Join(ev.Forbidden, ", "))
		case game.WordUnlockedEvent:
			fmt.Printf("** The AI said %q; it is unlocked for you now.\n", ev.Word)
		case game.ViolationEvent:
			fmt.Printf("!! You said the forbidden word %q. Round paused.\n", ev.Word)
		case game.CorrectGuessEvent:
			fmt.Printf("** Correct guess: %s (score %d)\n", ev.Word, ev.Score)
		case game.TurnEvent:
			fmt.Printf("[%s] %s\n", ev.Turn.Role, ev.Turn.Content)
		case game.FeedbackReadyEvent:
			fmt.Printf("-- Feedback on %q stored.\n", ev.Word)
		case game.UsageEvent:
			fmt.Printf("-- Usage: %d tokens, ~$%.4f\n", ev.Usage.TotalTokens, ev.Cost.TotalUSD)
		case game.SessionEndedEvent:
			fmt.Printf("\nSession over. Score %d in %s.\n", ev.Score, ev.Duration.Round(time.Second))
		case game.ErrorEvent:
			fmt.Printf("!! %v\n", ev.Err)
		}
	}
}

func runCommandLoop(ctx context.Context, session *game.Session, db *store.Store, logger *zap.Logger) {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if line == "" {
				continue
			}
			fields := strings.Fields(line)
			var err error
			switch fields[0] {
			case "start", "next":
				err = session.StartRound()
			case "skip":
				err = session.SkipWord()
			case "continue":
				err = session.ContinueRound()
			case "feedback":
				err = session.RequestFeedback()
			case "done":
				err = session.EndFeedback()
			case "pace":
				if len(fields) < 2 {
					fmt.Println("usage: pace <slow|medium|fast>")
					continue
				}
				err = session.SetPace(game.Pace(fields[1]))
			case "progress":
				printProgress(ctx, db)
			case "weekly":
				printWeekly(ctx, db)
			case "quit", "exit":
				return
			default:
				fmt.Printf("unknown command %q\n", fields[0])
			}
			if err != nil {
				logger.Warn("command failed", zap.String("command", fields[0]), zap.Error(err))
				fmt.Printf("!! %s: %v\n", fields[0], err)
			}
		}
	}
}

func printProgress(ctx context.Context, db *store.Store) {
	p, err := db.GetUserProgress(ctx)
	if err != nil {
		fmt.Printf("!! progress: %v\n", err)
		return
	}
	fmt.Printf("Sessions: %d  Words: %d  Streak: %d day(s)  Score: %d/100\n",
		p.TotalSessions, p.TotalWords, p.CurrentStreak, p.ProgressScore)
}

func printWeekly(ctx context.Context, db *store.Store) {
	a, err := db.GenerateWeeklyAnalysis(ctx)
	if err != nil {
		fmt.Printf("!! weekly: %v\n", err)
		return
	}
	fmt.Printf("This week: %d session(s), words: %s\n",
		a.SessionCount, strings.Join(a.WordsPracticed, ", "))
	if len(a.TopCategories) > 0 {
		fmt.Printf("Focus areas: %s\n", strings.Join(a.TopCategories, ", "))
	}
	for _, tip := range a.Improvements {
		fmt.Printf("  - %s\n", tip)
	}
}
