// Command scry is a terminal client for the DefiLlama analytics chat agent.
//
// Usage:
//
//	LLAMA_API_KEY=sk-... scry [flags]
//
// Flags:
//
//	-chat string      Path to a saved chat file to resume
//	-list             List saved chats and exit
//	-mode string      Answering mode: auto, sql_only (default "auto")
//	-timezone string  IANA timezone sent with questions (default "UTC")
//	-research         Force the multi-iteration research pipeline
//	-base-url string  API base URL (default production)
//	-api-key string   API key (overrides LLAMA_API_KEY)
//	-log string       Path to a debug log file
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/fwojciec/scry"
	bt "github.com/fwojciec/scry/bubbletea"
	scryjson "github.com/fwojciec/scry/json"
	"github.com/fwojciec/scry/llamaapi"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "scry: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		chatPath = flag.String("chat", "", "Path to a saved chat file to resume")
		list     = flag.Bool("list", false, "List saved chats and exit")
		mode     = flag.String("mode", "auto", "Answering mode: auto, sql_only")
		timezone = flag.String("timezone", "UTC", "IANA timezone sent with questions")
		research = flag.Bool("research", false, "Force the multi-iteration research pipeline")
		baseURL  = flag.String("base-url", "", "API base URL (default production)")
		apiKey   = flag.String("api-key", "", "API key (overrides LLAMA_API_KEY)")
		logPath  = flag.String("log", "", "Path to a debug log file")
	)
	flag.Parse()

	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	if *list {
		return listChats()
	}

	logger, closeLog, err := newLogger(*logPath)
	if err != nil {
		return err
	}
	defer closeLog()

	key := *apiKey
	if key == "" {
		key = os.Getenv("LLAMA_API_KEY")
	}
	if key == "" {
		return errors.New("API key required: set LLAMA_API_KEY or pass -api-key")
	}

	// Handle OS signals for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	clientOpts := []llamaapi.Option{llamaapi.WithClientLogger(logger)}
	if *baseURL != "" {
		clientOpts = append(clientOpts, llamaapi.WithBaseURL(*baseURL))
	}
	client := llamaapi.New(key, clientOpts...)

	// The TUI installs a fresh item callback per exchange; the controller's
	// hooks are fixed at construction, so route through a swappable sink.
	sink := &itemSink{}
	controller := scry.NewController(client,
		scry.WithControllerLogger(logger),
		scry.WithControllerHooks(scry.Hooks{OnItems: sink.emit}),
	)

	chat, err := loadOrCreateChat(*chatPath)
	if err != nil {
		return err
	}
	ask := func(ctx context.Context, question string, onItems func([]scry.Item)) (*scry.Answer, error) {
		sink.set(onItems)
		defer sink.set(nil)
		req := scry.Request{
			Question: question,
			Mode:     scry.Mode(*mode),
			Timezone: *timezone,
		}
		if chat.ID != "" && controller.SessionID() == "" {
			req.SessionID = chat.ID
		}
		if *research {
			req.ForceIntent = scry.IntentResearch
		}
		return controller.Submit(ctx, req)
	}
	stopFn := func() {
		if err := controller.Stop(); err != nil && !errors.Is(err, scry.ErrNoActiveSession) {
			logger.Warn().Err(err).Msg("stop failed")
		}
	}

	tuiModel := bt.New(ask, stopFn, &chat, scry.DefaultTheme())
	if err := bt.Run(ctx, tuiModel); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}

	// Save the chat on exit.
	if len(chat.Exchanges) == 0 {
		return nil
	}
	savePath := *chatPath
	if savePath == "" {
		savePath = defaultChatPath(chat.ID)
	}
	if err := scryjson.Save(savePath, chat); err != nil {
		return fmt.Errorf("save chat: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Chat saved to %s\n", savePath)
	return nil
}

// itemSink fans the controller's item snapshots out to the exchange that is
// currently listening.
type itemSink struct {
	mu sync.Mutex
	fn func([]scry.Item)
}

func (s *itemSink) set(fn func([]scry.Item)) {
	s.mu.Lock()
	s.fn = fn
	s.mu.Unlock()
}

func (s *itemSink) emit(items []scry.Item) {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()
	if fn != nil {
		fn(items)
	}
}

func newLogger(path string) (zerolog.Logger, func(), error) {
	if path == "" {
		return zerolog.Nop(), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := zerolog.New(f).With().Timestamp().Logger()
	return logger, func() { _ = f.Close() }, nil
}

func loadOrCreateChat(path string) (scry.Chat, error) {
	if path == "" {
		return scry.Chat{CreatedAt: time.Now()}, nil
	}
	chat, err := scryjson.Load(path)
	if err != nil {
		return scry.Chat{}, fmt.Errorf("load chat: %w", err)
	}
	return chat, nil
}

func listChats() error {
	infos, err := scryjson.List(chatDir(), "**/*.json")
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("no saved chats")
		return nil
	}
	for _, info := range infos {
		title := info.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%-40s %3d exchanges  %s\n", title, info.Exchanges, info.Path)
	}
	return nil
}

func chatDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".scry", "chats")
}

func defaultChatPath(id string) string {
	if id == "" {
		id = fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return filepath.Join(chatDir(), id+".json")
}
