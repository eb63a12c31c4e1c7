package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/civica/ventanilla/internal/domain"
	"github.com/civica/ventanilla/internal/store"
	"github.com/civica/ventanilla/internal/ticket"
)

// newTicketCmd is the ops escape hatch for working cases in the local store
// without going through a conversation.
func newTicketCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ticket",
		Short: "Create, inspect, and update cases in the local store",
	}

	cmd.AddCommand(newTicketCreateCmd())
	cmd.AddCommand(newTicketShowCmd())
	cmd.AddCommand(newTicketUpdateCmd())
	return cmd
}

// withTicketService opens the store, runs fn, and closes it.
func withTicketService(fn func(svc *ticket.Service, tickets *store.TicketStore) error) error {
	db, err := store.Open(cfg.Store.Path, log)
	if err != nil {
		return fmt.Errorf("opening case store: %w", err)
	}
	defer db.Close()

	tickets := store.NewTicketStore(db)
	svc := ticket.New(tickets, store.NewContactStore(db), nil, log)
	return fn(svc, tickets)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTicketCreateCmd() *cobra.Command {
	var (
		typeName    string
		title       string
		description string
		priority    string
		account     string
		clientName  string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a new case",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := domain.TicketType(typeName)
			if !t.Valid() {
				return fmt.Errorf("unknown ticket type %q", typeName)
			}
			p := domain.TicketPriority(priority)
			if priority != "" && !p.Valid() {
				return fmt.Errorf("unknown priority %q", priority)
			}

			return withTicketService(func(svc *ticket.Service, _ *store.TicketStore) error {
				res := svc.Create(cmd.Context(), ticket.CreateInput{
					Type:          t,
					Title:         title,
					Description:   description,
					Priority:      p,
					AccountNumber: account,
					ClientName:    clientName,
				})
				return printJSON(res)
			})
		},
	}

	cmd.Flags().StringVar(&typeName, "type", "general", "case category")
	cmd.Flags().StringVar(&title, "title", "", "short case title")
	cmd.Flags().StringVar(&description, "description", "", "case details")
	cmd.Flags().StringVar(&priority, "priority", "", "baja, media, alta, urgente")
	cmd.Flags().StringVar(&account, "account", "", "service account number")
	cmd.Flags().StringVar(&clientName, "name", "", "citizen display name")
	cmd.MarkFlagRequired("title")
	return cmd
}

func newTicketShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show FOLIO",
		Short: "Print one case as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTicketService(func(_ *ticket.Service, tickets *store.TicketStore) error {
				t, err := tickets.Get(args[0])
				if err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}
}

func newTicketUpdateCmd() *cobra.Command {
	var (
		status   string
		priority string
		notes    string
	)

	cmd := &cobra.Command{
		Use:   "update FOLIO",
		Short: "Apply a partial update to a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := ticket.UpdateInput{Notes: notes}
			if status != "" {
				s := domain.TicketStatus(status)
				in.Status = &s
			}
			if priority != "" {
				p := domain.TicketPriority(priority)
				in.Priority = &p
			}

			return withTicketService(func(svc *ticket.Service, _ *store.TicketStore) error {
				t, err := svc.Update(cmd.Context(), args[0], in)
				if err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "new case status")
	cmd.Flags().StringVar(&priority, "priority", "", "new case priority")
	cmd.Flags().StringVar(&notes, "notes", "", "append follow-up notes")
	return cmd
}
