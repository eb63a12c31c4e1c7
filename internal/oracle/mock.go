package oracle

import "context"

// MockClassifier is a scripted Classifier for tests.
type MockClassifier struct {
	Outcome Outcome
	Err     error
	Calls   int
	Inputs  []ClassifyInput
}

func (m *MockClassifier) Classify(ctx context.Context, in ClassifyInput) (Outcome, error) {
	m.Calls++
	m.Inputs = append(m.Inputs, in)
	return m.Outcome, m.Err
}

// MockResponder is a scripted Responder for tests. When InvokeTool is set,
// it runs that tool through the provided ToolRunner before replying, the
// way the real responder does on a ticket-worthy turn.
type MockResponder struct {
	Reply      Reply
	Err        error
	InvokeTool string
	ToolArgs   map[string]string
	Calls      int
	LastInput  RespondInput
}

func (m *MockResponder) Respond(ctx context.Context, in RespondInput) (Reply, error) {
	m.Calls++
	m.LastInput = in
	if m.Err != nil {
		return Reply{}, m.Err
	}
	reply := m.Reply
	if m.InvokeTool != "" && in.Tools != nil {
		if _, err := in.Tools.Run(ctx, m.InvokeTool, m.ToolArgs); err == nil {
			reply.Actions = append(reply.Actions, m.InvokeTool)
		}
	}
	return reply, nil
}
