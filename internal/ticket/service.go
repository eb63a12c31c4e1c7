// Package ticket opens and updates support cases in the shared case-tracking
// store, and owns folio numbering.
package ticket

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/civica/ventanilla/internal/domain"
	"github.com/civica/ventanilla/internal/logging"
	"github.com/civica/ventanilla/internal/store"
)

// Service creates and updates tickets. The user-visible contract is that
// Create always yields a folio: store failures degrade to a locally-computed
// folio with a warning, never to an error the citizen sees.
type Service struct {
	tickets  *store.TicketStore
	contacts *store.ContactStore
	now      func() time.Time
	log      *logging.Logger
}

// New creates a ticket service. A nil clock defaults to time.Now.
func New(tickets *store.TicketStore, contacts *store.ContactStore, clock func() time.Time, log *logging.Logger) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		tickets:  tickets,
		contacts: contacts,
		now:      clock,
		log:      log.Sub("ticket"),
	}
}

// CreateInput describes the ticket to open. Contact carries the linkage
// resolved from the ambient request; an explicit ContactID inside it wins
// over directory lookup by account number.
type CreateInput struct {
	Type          domain.TicketType
	Title         string
	Description   string
	Priority      domain.TicketPriority
	AccountNumber string
	Contact       domain.ContactLink
	ClientName    string
	Metadata      map[string]string
}

// CreateResult is the outcome of Create. Success is true even on the
// degraded path; Warning explains what was degraded.
type CreateResult struct {
	Folio    string `json:"folio"`
	TicketID string `json:"ticketId"`
	Success  bool   `json:"success"`
	Warning  string `json:"warning,omitempty"`
}

// Create opens a new case and returns its folio.
func (s *Service) Create(ctx context.Context, in CreateInput) CreateResult {
	now := s.now()
	date := now.Format(folioDateLayout)
	code := in.Type.Code()

	if in.Priority == "" {
		in.Priority = domain.TicketPriorityMedium
	}

	ticketID := uuid.New().String()

	seq, err := s.tickets.NextSequence(code, date)
	if err != nil {
		folio := FallbackFolio(in.Type, now)
		s.log.Error().Err(err).Str("folio", folio).Msg("sequence allocation failed, using fallback folio")
		return CreateResult{
			Folio:    folio,
			TicketID: ticketID,
			Success:  true,
			Warning:  "folio generado localmente; el registro central no esta disponible",
		}
	}

	folio := BuildFolio(code, date, seq)
	contact, clientName := s.resolveLinkage(in)

	t := &domain.Ticket{
		Folio:         folio,
		Type:          in.Type,
		Title:         in.Title,
		Description:   in.Description,
		Status:        domain.TicketStatusOpen,
		Priority:      in.Priority,
		AccountNumber: in.AccountNumber,
		Contact:       contact,
		ClientName:    clientName,
		Metadata:      in.Metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.tickets.Insert(t); err != nil {
		s.log.Error().Err(err).Str("folio", folio).Msg("ticket persistence failed")
		return CreateResult{
			Folio:    folio,
			TicketID: ticketID,
			Success:  true,
			Warning:  "el caso no pudo registrarse en el sistema central",
		}
	}

	s.log.Info().
		Str("folio", folio).
		Str("type", string(in.Type)).
		Str("priority", string(in.Priority)).
		Msg("ticket created")

	return CreateResult{Folio: folio, TicketID: ticketID, Success: true}
}

// resolveLinkage picks the contact to associate with the ticket, in order:
// explicit contact id, then linkage carried on the request, then directory
// lookup by account number. The client display name is backfilled from the
// resolved contact when not supplied.
func (s *Service) resolveLinkage(in CreateInput) (domain.ContactLink, string) {
	link := in.Contact
	name := in.ClientName

	if link.ContactID != 0 {
		if name == "" && s.contacts != nil {
			if c, err := s.contacts.Get(link.ContactID); err == nil {
				name = c.Name
			}
		}
		return link, name
	}

	if in.AccountNumber != "" && s.contacts != nil {
		c, err := s.contacts.FindByAccount(in.AccountNumber)
		if err == nil {
			link.ContactID = c.ID
			if name == "" {
				name = c.Name
			}
		} else if !errors.Is(err, store.ErrContactNotFound) {
			s.log.Warn().Err(err).Str("account", in.AccountNumber).Msg("contact lookup failed")
		}
	}

	return link, name
}

// UpdateInput is a partial ticket update. Nil fields are left unchanged.
type UpdateInput struct {
	Status   *domain.TicketStatus
	Priority *domain.TicketPriority
	Notes    string
}

// ErrInvalidUpdate is returned when an update names an unknown status or
// priority value.
var ErrInvalidUpdate = errors.New("invalid ticket update")

// Update applies a partial update to an existing ticket. Setting the status
// to resolved stamps the resolution timestamp. Transitions between statuses
// are otherwise unconstrained.
func (s *Service) Update(ctx context.Context, folio string, in UpdateInput) (*domain.Ticket, error) {
	t, err := s.tickets.Get(folio)
	if err != nil {
		return nil, err
	}

	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, ErrInvalidUpdate
		}
		if *in.Status == domain.TicketStatusResolved && t.Status != domain.TicketStatusResolved {
			now := s.now()
			t.ResolvedAt = &now
		}
		t.Status = *in.Status
	}
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return nil, ErrInvalidUpdate
		}
		t.Priority = *in.Priority
	}
	if in.Notes != "" {
		if t.Description == "" {
			t.Description = in.Notes
		} else {
			t.Description += "\n" + in.Notes
		}
	}

	t.UpdatedAt = s.now()
	if err := s.tickets.Update(t); err != nil {
		return nil, err
	}

	s.log.Info().Str("folio", folio).Str("status", string(t.Status)).Msg("ticket updated")
	return t, nil
}
