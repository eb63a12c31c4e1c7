// Package oracle defines the boundary to the external natural-language
// capability: classification of turns into service domains and free-text
// response generation. The core treats both as opaque collaborators; this
// package holds the contracts plus the OpenAI-compatible implementation.
package oracle

import (
	"context"

	"github.com/civica/ventanilla/internal/domain"
)

// ClassifyInput is the turn context handed to the classifier.
type ClassifyInput struct {
	Preamble string // localized date/time preamble
	History  []domain.Exchange
	Text     string
}

// Outcome is the classifier's verdict. AccountNumber is set when the
// collaborator extracted a service-account identifier from the turn.
type Outcome struct {
	Classification    domain.Classification
	SubClassification domain.SubClassification
	AccountNumber     string
}

// Classifier decides which service domain a turn belongs to.
type Classifier interface {
	Classify(ctx context.Context, in ClassifyInput) (Outcome, error)
}

// ToolRunner executes a side-effect action invoked by a responder. It
// returns the tool's textual result for the collaborator to incorporate.
type ToolRunner interface {
	Run(ctx context.Context, name string, args map[string]string) (string, error)
}

// RespondInput is the turn context handed to a domain responder.
type RespondInput struct {
	Classification    domain.Classification
	SubClassification domain.SubClassification
	Preamble          string
	History           []domain.Exchange
	Text              string
	Tools             ToolRunner
}

// Reply is a responder's output: free text plus the names of every
// side-effect action it invoked.
type Reply struct {
	Text    string
	Actions []string
}

// Responder produces the turn's free-text answer for a service domain.
type Responder interface {
	Respond(ctx context.Context, in RespondInput) (Reply, error)
}
