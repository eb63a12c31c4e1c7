package domain

import "time"

// TicketStatus enumerates the case lifecycle states, mirroring the
// case-tracking platform's vocabulary.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "abierta"
	TicketStatusInProgress TicketStatus = "en_proceso"
	TicketStatusWaiting    TicketStatus = "en_espera"
	TicketStatusEscalated  TicketStatus = "escalada"
	TicketStatusResolved   TicketStatus = "resuelta"
	TicketStatusClosed     TicketStatus = "cerrada"
	TicketStatusCancelled  TicketStatus = "cancelada"
	TicketStatusReopened   TicketStatus = "reabierta"
)

// TicketPriority enumerates follow-up urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "baja"
	TicketPriorityMedium TicketPriority = "media"
	TicketPriorityHigh   TicketPriority = "alta"
	TicketPriorityUrgent TicketPriority = "urgente"
)

// TicketType is one of the closed case categories. Each maps to the 3-letter
// code used as the folio prefix.
type TicketType string

const (
	TicketTypeWaterLeak      TicketType = "fuga_agua"
	TicketTypeWaterSupply    TicketType = "falta_agua"
	TicketTypeDrainage       TicketType = "drenaje"
	TicketTypeStreetLight    TicketType = "alumbrado"
	TicketTypePothole        TicketType = "bache"
	TicketTypeGarbage        TicketType = "recoleccion"
	TicketTypeTreeTrimming   TicketType = "poda"
	TicketTypeTrafficSignal  TicketType = "semaforo"
	TicketTypeSignage        TicketType = "senalizacion"
	TicketTypePropertyTax    TicketType = "predial"
	TicketTypeLicense        TicketType = "licencia"
	TicketTypeFine           TicketType = "multa"
	TicketTypeSecurity       TicketType = "seguridad"
	TicketTypeParks          TicketType = "parques"
	TicketTypeCivilRegistry  TicketType = "registro_civil"
	TicketTypeBillingDispute TicketType = "aclaracion_recibo"
	TicketTypeComplaint      TicketType = "queja"
	TicketTypeSuggestion     TicketType = "sugerencia"
	TicketTypeEscalation     TicketType = "atencion_humana"
	TicketTypeGeneral        TicketType = "general"
)

// ticketTypeCodes maps each category to its folio prefix.
var ticketTypeCodes = map[TicketType]string{
	TicketTypeWaterLeak:      "FUG",
	TicketTypeWaterSupply:    "AGU",
	TicketTypeDrainage:       "DRE",
	TicketTypeStreetLight:    "ALU",
	TicketTypePothole:        "BAC",
	TicketTypeGarbage:        "BAS",
	TicketTypeTreeTrimming:   "POD",
	TicketTypeTrafficSignal:  "SEM",
	TicketTypeSignage:        "SEN",
	TicketTypePropertyTax:    "PRE",
	TicketTypeLicense:        "LIC",
	TicketTypeFine:           "MUL",
	TicketTypeSecurity:       "SEG",
	TicketTypeParks:          "PAR",
	TicketTypeCivilRegistry:  "REG",
	TicketTypeBillingDispute: "ACL",
	TicketTypeComplaint:      "QUE",
	TicketTypeSuggestion:     "SUG",
	TicketTypeEscalation:     "URG",
	TicketTypeGeneral:        "GEN",
}

// Code returns the 3-letter folio prefix for the type, or "GEN" for an
// unknown category.
func (t TicketType) Code() string {
	if code, ok := ticketTypeCodes[t]; ok {
		return code
	}
	return "GEN"
}

// Valid reports whether t is a member of the closed category set.
func (t TicketType) Valid() bool {
	_, ok := ticketTypeCodes[t]
	return ok
}

// Valid reports whether s is a member of the closed status set.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusWaiting,
		TicketStatusEscalated, TicketStatusResolved, TicketStatusClosed,
		TicketStatusCancelled, TicketStatusReopened:
		return true
	}
	return false
}

// Valid reports whether p is a member of the closed priority set.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is one case opened for follow-up. The folio is immutable once
// assigned; ResolvedAt is stamped only on the transition to resolved.
type Ticket struct {
	Folio         string            `json:"folio"`
	Type          TicketType        `json:"type"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Status        TicketStatus      `json:"status"`
	Priority      TicketPriority    `json:"priority"`
	AccountNumber string            `json:"accountNumber,omitempty"`
	Contact       ContactLink       `json:"contact,omitempty"`
	ClientName    string            `json:"clientName,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"` // email, location, etc.
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
	ResolvedAt    *time.Time        `json:"resolvedAt,omitempty"`
}
