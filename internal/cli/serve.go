package cli

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/petclinic/genai-service/internal/agent"
	"github.com/petclinic/genai-service/internal/config"
	"github.com/petclinic/genai-service/internal/gateway"
	"github.com/petclinic/genai-service/internal/llm"
	"github.com/petclinic/genai-service/internal/logging"
	"github.com/petclinic/genai-service/internal/petclinic"
	"github.com/petclinic/genai-service/internal/store"
	"github.com/petclinic/genai-service/internal/tools"
	"github.com/petclinic/genai-service/internal/vectorstore"
)

// populateTimeout bounds the startup indexing of vet data. Startup proceeds
// without the index when the vets service or the embedder is unavailable.
const populateTimeout = 2 * time.Minute

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the genai service",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				path = "config.yaml"
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Server.Port = port
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			// Re-root the logger on the configured level unless flags said
			// otherwise.
			if logLevel == "" && logStyle == "" {
				log = logging.New(nil, cfg.Logging.Level, cfg.Logging.Style)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			records := petclinic.NewClient(cfg.Services, log)

			// Vet index: persisted embeddings under the vector store dir.
			vectorDB, err := store.Open(filepath.Join(cfg.VectorStore.Dir, "vectorstore.db"), log)
			if err != nil {
				return fmt.Errorf("opening vector store: %w", err)
			}
			defer vectorDB.Close()

			embedder := llm.NewEmbedderFromConfig(cfg.LLM, log)
			index := vectorstore.New(vectorDB, embedder, cfg.VectorStore.Collection, log)
			if embedder != nil {
				popCtx, cancel := context.WithTimeout(ctx, populateTimeout)
				if err := index.PopulateOnStartup(popCtx, records.ListVets); err != nil {
					log.Warn().Err(err).Msg("vet index population failed, semantic vet search is empty")
				}
				cancel()
			} else {
				log.Warn().Msg("no embedder configured, semantic vet search is empty")
			}

			// Session store: in-memory by default, SQLite when configured.
			var sessions agent.SessionStore
			if cfg.Session.Store == "sqlite" {
				dbPath := cfg.Session.DBPath
				if dbPath == "" {
					dbPath = filepath.Join("data", "genai.db")
				}
				sessionDB, err := store.Open(dbPath, log)
				if err != nil {
					return fmt.Errorf("opening session database: %w", err)
				}
				defer sessionDB.Close()
				sessions = store.NewSQLiteSessionStore(sessionDB, cfg.Session.MaxMessages)
				log.Info().Str("path", dbPath).Msg("using SQLite session store")
			} else {
				sessions = agent.NewMemorySessionStore(cfg.Session.MaxMessages)
				log.Info().Msg("using in-memory session store")
			}

			toolReg := agent.NewToolRegistry(log)
			if err := tools.RegisterAll(toolReg, records, index); err != nil {
				return fmt.Errorf("registering tools: %w", err)
			}

			client := llm.NewClientFromConfig(cfg.LLM, log)
			runner := agent.NewRunner(
				agent.RunnerConfig{
					MaxTokens:   cfg.LLM.MaxTokens,
					Temperature: cfg.LLM.Temperature,
				},
				client,
				sessions,
				toolReg,
				log,
			)

			srv := gateway.New(cfg, runner, index, log)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override server port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (lan, loopback, custom)")

	return cmd
}
