package chatcmder

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/phoebemtg/lifestring-sub000/pkg/chat"
	"github.com/phoebemtg/lifestring-sub000/pkg/recents"
	"github.com/phoebemtg/lifestring-sub000/pkg/session"
	"github.com/phoebemtg/lifestring-sub000/pkg/stream"
)

const chatLongDesc string = `Chat with the lifestring assistant from the terminal.

Talks to the same chat backends as the web frontend, with the same
authenticated-then-public fallback and the same typing pacing. Recent
conversations are kept in a local SQLite cache.

Keys:
  enter   send message
  ctrl+n  new chat
  esc     quit

Examples:
  lifestring chat --public-url https://api.example.com/public-chat
  lifestring chat --auth-url https://api.example.com/chat --token $TOKEN --name Ada`

const chatShortDesc string = "Chat with the assistant in the terminal"

type chatCommander struct {
	authURL   string
	authToken string
	publicURL string
	dbPath    string
	name      string
	debug     bool
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run()
		},
	}

	cmd.Flags().StringVar(&cmder.authURL, "auth-url", "", "Authenticated chat endpoint URL")
	cmd.Flags().StringVar(&cmder.authToken, "token", "", "Bearer token for the authenticated endpoint")
	cmd.Flags().StringVar(&cmder.publicURL, "public-url", "", "Public chat endpoint URL")
	cmd.Flags().StringVar(&cmder.dbPath, "db", "", "Path to SQLite recents cache (default: in-memory)")
	cmd.Flags().StringVar(&cmder.name, "name", "", "Display name sent with the profile payload")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Write debug logs to lifestring-chat.log")

	return cmd
}

func (c *chatCommander) run() error {
	if c.publicURL == "" && c.authURL == "" {
		return fmt.Errorf("at least one of --public-url or --auth-url is required")
	}

	log, err := c.newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	var cache recents.Cache
	if c.dbPath != "" {
		cache, err = recents.NewSQLiteCache(c.dbPath, log)
		if err != nil {
			return fmt.Errorf("could not open recents cache: %w", err)
		}
	} else {
		cache = recents.NewMemoryCache()
	}
	defer cache.Close()

	store := recents.NewStore(cache, log)
	client := chat.NewFallbackClient(
		chat.Endpoint{URL: c.authURL, Token: c.authToken},
		chat.Endpoint{URL: c.publicURL},
		chat.DefaultTimeout,
		log,
	)

	sess := session.New(client, store, stream.New(stream.DefaultDelays()), log)
	if c.name != "" {
		sess.SetProfile(chat.ResolveProfile(map[string]any{"name": c.name}))
	}

	program := tea.NewProgram(newModel(sess), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("chat ui failed: %w", err)
	}
	return nil
}

// newLogger keeps log output away from the TUI: silent by default, a local
// file in debug mode.
func (c *chatCommander) newLogger() (*zap.Logger, error) {
	if !c.debug {
		return zap.NewNop(), nil
	}

	f, err := os.OpenFile("lifestring-chat.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("could not open debug log: %w", err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(f),
		zap.DebugLevel,
	)
	return zap.New(core), nil
}
