package servecmder

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phoebemtg/lifestring-sub000/gateway"
	"github.com/phoebemtg/lifestring-sub000/pkg/logger"
)

const serveLongDesc string = `Run the assistant gateway.

The gateway fronts the two remote chat backends for the web frontend:
it owns the fallback between the authenticated and public endpoints,
streams replies as SSE with the product's typing pacing, and keeps the
per-user list of recent conversations in a local SQLite cache.

Examples:
  lifestring serve --public-url https://api.example.com/public-chat
  lifestring serve --config /etc/lifestring/gateway.toml --db ~/.lifestring/recents.db`

const serveShortDesc string = "Run the assistant gateway"

type serveCommander struct {
	configPath string
	listenAddr string
	authURL    string
	authToken  string
	publicURL  string
	dbPath     string
	debug      bool
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to TOML config file")
	cmd.Flags().StringVarP(&cmder.listenAddr, "listen", "l", "", "Address to listen on")
	cmd.Flags().StringVar(&cmder.authURL, "auth-url", "", "Authenticated chat endpoint URL")
	cmd.Flags().StringVar(&cmder.authToken, "token", "", "Bearer token for the authenticated endpoint")
	cmd.Flags().StringVar(&cmder.publicURL, "public-url", "", "Public chat endpoint URL")
	cmd.Flags().StringVar(&cmder.dbPath, "db", "", "Path to SQLite recents cache (default: in-memory)")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (c *serveCommander) run() error {
	config, err := gateway.LoadConfig(c.configPath)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	// Flags override the file.
	if c.listenAddr != "" {
		config.ListenAddr = c.listenAddr
	}
	if c.authURL != "" {
		config.AuthChatURL = c.authURL
	}
	if c.authToken != "" {
		config.AuthToken = c.authToken
	}
	if c.publicURL != "" {
		config.PublicChatURL = c.publicURL
	}
	if c.dbPath != "" {
		config.DBPath = c.dbPath
	}
	if c.debug {
		config.Debug = true
	}

	log := logger.New(config.Debug)
	defer log.Sync()

	g, err := gateway.New(config, log)
	if err != nil {
		log.Error("failed to create gateway", zap.Error(err))
		return err
	}
	defer g.Close()

	if err := g.Run(); err != nil {
		log.Error("gateway failed", zap.Error(err))
		return err
	}
	return nil
}
