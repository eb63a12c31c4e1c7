package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/civica/ventanilla/internal/domain"
	"github.com/civica/ventanilla/internal/logging"
)

// maxToolIterations bounds the responder's tool loop.
const maxToolIterations = 3

// classifyTimeout keeps classification snappy; a slow classifier stalls the
// whole turn.
const classifyTimeout = 10 * time.Second

// Config configures the OpenAI-compatible oracle client.
type Config struct {
	APIKey          string
	BaseURL         string
	ClassifierModel string
	ResponderModel  string
	MaxTokens       int
	Temperature     float32
}

// Client implements Classifier and Responder against any OpenAI-compatible
// completion API.
type Client struct {
	api *openai.Client
	cfg Config
	log *logging.Logger
}

// NewClient builds the oracle client.
func NewClient(cfg Config, log *logging.Logger) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	if cfg.ClassifierModel == "" {
		cfg.ClassifierModel = openai.GPT4oMini
	}
	if cfg.ResponderModel == "" {
		cfg.ResponderModel = openai.GPT4oMini
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 600
	}
	return &Client{
		api: openai.NewClientWithConfig(apiCfg),
		cfg: cfg,
		log: log.Sub("oracle"),
	}
}

const classifierSystemPrompt = `Eres el clasificador de la ventanilla digital de atencion ciudadana.
Clasifica el ultimo mensaje del ciudadano en exactamente uno de los dominios de servicio.
La subclasificacion aplica unicamente al dominio energia_facturacion; para cualquier otro dominio dejala vacia.
Si el mensaje contiene un numero de servicio (6 a 10 digitos), devuelvelo en numeroServicio.
Responde solo con el JSON del esquema.`

// classifySchema is the strict output schema for classification. Strict mode
// requires every property to be listed as required; absent fields come back
// as empty strings and are trimmed downstream.
var classifySchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"clasificacion": {"type": "string"},
		"subclasificacion": {"type": "string"},
		"numeroServicio": {"type": "string"}
	},
	"required": ["clasificacion", "subclasificacion", "numeroServicio"],
	"additionalProperties": false
}`)

type classifyPayload struct {
	Classification    string `json:"clasificacion"`
	SubClassification string `json:"subclasificacion,omitempty"`
	AccountNumber     string `json:"numeroServicio,omitempty"`
}

// Classify asks the model for a service-domain verdict over the turn
// context. Invalid or inconsistent verdicts are rejected here so the router
// never sees an out-of-enum classification.
func (c *Client) Classify(ctx context.Context, in ClassifyInput) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: classifierSystemPrompt},
	}
	messages = append(messages, historyMessages(in.Preamble, in.History)...)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: in.Text,
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.ClassifierModel,
		MaxTokens:   80,
		Temperature: 0,
		Messages:    messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "clasificacion_turno",
				Strict: true,
				Schema: classifySchema,
			},
		},
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("classification request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Outcome{}, fmt.Errorf("classification: empty response")
	}

	var payload classifyPayload
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &payload); err != nil {
		return Outcome{}, fmt.Errorf("classification: parsing verdict: %w", err)
	}

	out := Outcome{
		Classification:    domain.Classification(strings.TrimSpace(payload.Classification)),
		SubClassification: domain.SubClassification(strings.TrimSpace(payload.SubClassification)),
		AccountNumber:     strings.TrimSpace(payload.AccountNumber),
	}
	if err := domain.ValidatePair(out.Classification, out.SubClassification); err != nil {
		return Outcome{}, fmt.Errorf("classification: %w", err)
	}

	c.log.Debug().
		Str("classification", string(out.Classification)).
		Str("sub", string(out.SubClassification)).
		Msg("turn classified")
	return out, nil
}

// createTicketTool is the one side-effect the responders may invoke.
var createTicketTool = openai.Tool{
	Type: openai.ToolTypeFunction,
	Function: &openai.FunctionDefinition{
		Name:        "crear_ticket",
		Description: "Abre un caso de seguimiento para el reporte del ciudadano y devuelve su folio.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"titulo": {"type": "string"},
				"descripcion": {"type": "string"},
				"ubicacion": {"type": "string"}
			},
			"required": ["titulo"]
		}`),
	},
}

// Respond runs the responder bound to the turn's domain, executing any
// crear_ticket tool calls through the supplied ToolRunner.
func (c *Client) Respond(ctx context.Context, in RespondInput) (Reply, error) {
	system := responderSystemPrompt(in.Classification, in.SubClassification)

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
	}
	messages = append(messages, historyMessages(in.Preamble, in.History)...)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: in.Text,
	})

	var actions []string
	for i := 0; i < maxToolIterations; i++ {
		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.cfg.ResponderModel,
			MaxTokens:   c.cfg.MaxTokens,
			Temperature: c.cfg.Temperature,
			Messages:    messages,
			Tools:       []openai.Tool{createTicketTool},
		})
		if err != nil {
			return Reply{}, fmt.Errorf("responder request: %w", err)
		}
		if len(resp.Choices) == 0 {
			return Reply{}, fmt.Errorf("responder: empty response")
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			return Reply{Text: msg.Content, Actions: actions}, nil
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			actions = append(actions, call.Function.Name)

			var args map[string]string
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				args = map[string]string{}
			}
			result, err := in.Tools.Run(ctx, call.Function.Name, args)
			if err != nil {
				result = "error: " + err.Error()
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Content:    result,
			})
		}
	}

	return Reply{}, fmt.Errorf("responder: tool loop exceeded %d iterations", maxToolIterations)
}

// historyMessages converts the session history into chat messages, with the
// date/time preamble injected as leading system context.
func historyMessages(preamble string, history []domain.Exchange) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	if preamble != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: preamble,
		})
	}
	for _, ex := range history {
		role := openai.ChatMessageRoleUser
		if ex.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: ex.Content})
	}
	return msgs
}

// responderSystemPrompt builds the per-domain instruction. The copy is
// intentionally short; domain teams own the full scripts upstream.
func responderSystemPrompt(c domain.Classification, sub domain.SubClassification) string {
	var b strings.Builder
	b.WriteString("Eres la ventanilla digital de atencion ciudadana del municipio. ")
	b.WriteString("Atiende el tramite del dominio \"")
	b.WriteString(string(c))
	b.WriteString("\"")
	if sub != domain.SubClassificationNone {
		b.WriteString(", subtema \"")
		b.WriteString(string(sub))
		b.WriteString("\"")
	}
	b.WriteString(". Responde en espanol, breve y claro. ")
	b.WriteString("Cuando el reporte tenga los datos necesarios (ubicacion y descripcion), usa la herramienta crear_ticket y comunica el folio al ciudadano.")
	return b.String()
}
