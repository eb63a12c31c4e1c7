// Package billing implements the account-lookup boundary against the legacy
// XML service: debt, consumption history, and contract detail, keyed by
// service-account number.
//
// Backend failures never propagate past this package. Every lookup returns a
// result with Success=false and a short reason instead, so an outage degrades
// the conversation to "lookup unavailable" rather than aborting the turn.
package billing

import (
	"context"
	"fmt"
	"net/http"

	"github.com/civica/ventanilla/internal/httpx"
	"github.com/civica/ventanilla/internal/logging"
	"github.com/civica/ventanilla/internal/xmldoc"
)

// Client performs account lookups against the billing backend.
type Client struct {
	http     *httpx.Client
	endpoint string
	log      *logging.Logger
}

// New creates a billing client that calls the given endpoint through the
// resilient HTTP client.
func New(endpoint string, hc *httpx.Client, log *logging.Logger) *Client {
	return &Client{http: hc, endpoint: endpoint, log: log.Sub("billing")}
}

// DebtResult is the outcome of a balance lookup.
type DebtResult struct {
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	ClientName    string `json:"clientName,omitempty"`
	Balance       string `json:"balance,omitempty"`
	DueDate       string `json:"dueDate,omitempty"`
}

// ConsumptionPeriod is one billing period in the consumption history.
type ConsumptionPeriod struct {
	Period string `json:"period"`
	KWH    string `json:"kwh"`
	Amount string `json:"amount,omitempty"`
}

// ConsumptionResult is the outcome of a consumption-history lookup.
type ConsumptionResult struct {
	Success       bool                `json:"success"`
	Error         string              `json:"error,omitempty"`
	AccountNumber string              `json:"accountNumber,omitempty"`
	Periods       []ConsumptionPeriod `json:"periods,omitempty"`
}

// ContractResult is the outcome of a contract-detail lookup.
type ContractResult struct {
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	ClientName    string `json:"clientName,omitempty"`
	Address       string `json:"address,omitempty"`
	Tariff        string `json:"tariff,omitempty"`
	Status        string `json:"status,omitempty"`
}

const lookupUnavailable = "consulta no disponible"

// call issues one operation and returns the raw response document, or a
// degraded reason when the call or the document signals failure.
func (c *Client) call(ctx context.Context, operation, account string) (string, string) {
	body := fmt.Sprintf(
		"<consulta><operacion>%s</operacion><numeroServicio>%s</numeroServicio></consulta>",
		operation, account,
	)

	resp, err := c.http.Do(ctx, httpx.Request{
		Method:  http.MethodPost,
		URL:     c.endpoint,
		Headers: map[string]string{"Content-Type": "text/xml; charset=utf-8"},
		Body:    []byte(body),
	})
	if err != nil {
		c.log.Warn().Err(err).Str("operation", operation).Msg("backend unreachable")
		return "", lookupUnavailable
	}
	if !resp.OK() {
		c.log.Warn().Int("status", resp.StatusCode).Str("operation", operation).Msg("backend rejected request")
		return "", lookupUnavailable
	}

	doc := string(resp.Body)
	if fault, ok := xmldoc.Fault(doc); ok {
		c.log.Warn().Str("operation", operation).Str("fault", fault).Msg("backend fault")
		return "", lookupUnavailable
	}
	if code, msg, ok := xmldoc.BusinessError(doc); ok && code != 0 {
		c.log.Info().Int("code", code).Str("operation", operation).Msg("business error")
		if msg == "" {
			msg = fmt.Sprintf("error %d", code)
		}
		return "", msg
	}
	return doc, ""
}

// Debt looks up the current balance for an account.
func (c *Client) Debt(ctx context.Context, account string) DebtResult {
	doc, reason := c.call(ctx, "ConsultarAdeudo", account)
	if reason != "" {
		return DebtResult{Error: reason}
	}

	balance, ok := xmldoc.Tag(doc, "saldo")
	if !ok {
		return DebtResult{Error: "respuesta incompleta"}
	}
	name, _ := xmldoc.Tag(doc, "nombreCliente")
	due, _ := xmldoc.Tag(doc, "fechaLimite")

	return DebtResult{
		Success:       true,
		AccountNumber: account,
		ClientName:    xmldoc.Unescape(name),
		Balance:       balance,
		DueDate:       due,
	}
}

// Consumption looks up the consumption history for an account.
func (c *Client) Consumption(ctx context.Context, account string) ConsumptionResult {
	doc, reason := c.call(ctx, "ConsultarConsumos", account)
	if reason != "" {
		return ConsumptionResult{Error: reason}
	}

	recs := xmldoc.Records(doc, "consumos", "consumo")
	if recs == nil {
		return ConsumptionResult{Error: "respuesta incompleta"}
	}

	periods := make([]ConsumptionPeriod, 0, len(recs))
	for _, rec := range recs {
		period, _ := xmldoc.Tag(rec, "periodo")
		kwh, _ := xmldoc.Tag(rec, "kwh")
		amount, _ := xmldoc.Tag(rec, "importe")
		periods = append(periods, ConsumptionPeriod{Period: period, KWH: kwh, Amount: amount})
	}

	return ConsumptionResult{Success: true, AccountNumber: account, Periods: periods}
}

// Contract looks up the contract detail for an account.
func (c *Client) Contract(ctx context.Context, account string) ContractResult {
	doc, reason := c.call(ctx, "ConsultarContrato", account)
	if reason != "" {
		return ContractResult{Error: reason}
	}

	name, ok := xmldoc.Tag(doc, "nombreCliente")
	if !ok {
		return ContractResult{Error: "respuesta incompleta"}
	}
	address, _ := xmldoc.Tag(doc, "direccion")
	tariff, _ := xmldoc.Tag(doc, "tarifa")
	status, _ := xmldoc.Tag(doc, "estatus")

	return ContractResult{
		Success:       true,
		AccountNumber: account,
		ClientName:    xmldoc.Unescape(name),
		Address:       xmldoc.Unescape(address),
		Tariff:        tariff,
		Status:        status,
	}
}
