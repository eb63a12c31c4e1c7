package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/civica/ventanilla/internal/config"
	"github.com/civica/ventanilla/internal/domain"
	"github.com/civica/ventanilla/internal/flow"
	"github.com/civica/ventanilla/internal/gateway"
	"github.com/civica/ventanilla/internal/oracle"
	"github.com/civica/ventanilla/internal/routing"
	"github.com/civica/ventanilla/internal/session"
	"github.com/civica/ventanilla/internal/store"
	"github.com/civica/ventanilla/internal/ticket"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the turn gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			db, err := store.Open(cfg.Store.Path, log)
			if err != nil {
				return fmt.Errorf("opening case store: %w", err)
			}
			defer db.Close()

			sessions := session.NewManager(session.Options{
				TTL:           time.Duration(cfg.Session.TTLMinutes) * time.Minute,
				SweepInterval: time.Duration(cfg.Session.SweepMinutes) * time.Minute,
				HistoryLength: cfg.Session.HistoryLength,
			}, log)
			sessions.Start()
			defer sessions.Stop()

			oracleClient := oracle.NewClient(oracle.Config{
				APIKey:          cfg.Oracle.APIKey,
				BaseURL:         cfg.Oracle.BaseURL,
				ClassifierModel: cfg.Oracle.ClassifierModel,
				ResponderModel:  cfg.Oracle.ResponderModel,
				MaxTokens:       cfg.Oracle.MaxTokens,
				Temperature:     cfg.Oracle.Temperature,
			}, log)

			tickets := ticket.New(store.NewTicketStore(db), store.NewContactStore(db), nil, log)

			engine := flow.NewEngine(
				oracleClient,
				flow.NewBindings().BindAll(oracleClient),
				tickets,
				domain.ContactCard{
					FullName:     cfg.Handoff.FullName,
					PhoneNumber:  cfg.Handoff.PhoneNumber,
					Organization: cfg.Handoff.Organization,
				},
				log,
			)

			turns := routing.NewOrchestrator(sessions, engine, log)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return gateway.New(cfg.Gateway, turns, log).Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override the gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override the listen address")
	return cmd
}
