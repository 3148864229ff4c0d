package llmclient

import "context"

// MockClient is a scripted Client for tests: each call to Complete
// pops the next queued response (or error) in order.
type MockClient struct {
	responses []*CompletionResponse
	errs      []error
	calls     []MockCall
	next      int
}

// MockCall records one Complete invocation for assertions.
type MockCall struct {
	Messages []Message
	Opts     CompleteOptions
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

// QueueText appends a plain-text response to the reply queue.
func (m *MockClient) QueueText(text string) *MockClient {
	m.responses = append(m.responses, &CompletionResponse{
		Content:    []ContentBlock{{Type: ContentText, Text: text}},
		StopReason: StopEndTurn,
	})
	m.errs = append(m.errs, nil)
	return m
}

// QueueResponse appends an arbitrary response to the reply queue.
func (m *MockClient) QueueResponse(resp *CompletionResponse) *MockClient {
	m.responses = append(m.responses, resp)
	m.errs = append(m.errs, nil)
	return m
}

// QueueError appends an error to the reply queue.
func (m *MockClient) QueueError(err error) *MockClient {
	m.responses = append(m.responses, nil)
	m.errs = append(m.errs, err)
	return m
}

func (m *MockClient) Complete(_ context.Context, messages []Message, opts CompleteOptions) (*CompletionResponse, error) {
	m.calls = append(m.calls, MockCall{Messages: messages, Opts: opts})

	if m.next >= len(m.responses) {
		return &CompletionResponse{
			Content:    []ContentBlock{{Type: ContentText, Text: "{}"}},
			StopReason: StopEndTurn,
		}, nil
	}

	resp, err := m.responses[m.next], m.errs[m.next]
	m.next++
	return resp, err
}

func (m *MockClient) Close() error { return nil }

// Calls returns every recorded invocation, in order.
func (m *MockClient) Calls() []MockCall { return m.calls }
