package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/MrCactuss/Ai-Powered-App-Project/models"
)

var testCity = models.City{Name: "Liepāja", Country: "Latvia"}

// fakeAssistantAPI scripts the states a run goes through. CreateRun and every
// RetrieveRun pop the next run from queue; the last one repeats. Submitting
// tool outputs switches the queue to afterSubmit.
type fakeAssistantAPI struct {
	mu sync.Mutex

	knownThreads map[string]bool
	threadSeq    int

	queue       []openai.Run
	afterSubmit []openai.Run

	messages       []openai.Message
	echoToolOutput bool

	createThreadErr  error
	createMessageErr error
	listMessageErr   error

	createThreadCalls int
	retrieveRunCalls  int
	cancelCalls       int
	submitted         [][]openai.ToolOutput
	userMessages      []string
	assistantRequest  *openai.AssistantRequest
}

func newFakeAssistantAPI(runs ...openai.Run) *fakeAssistantAPI {
	return &fakeAssistantAPI{knownThreads: map[string]bool{}, queue: runs}
}

func (f *fakeAssistantAPI) next() openai.Run {
	if len(f.queue) == 0 {
		return openai.Run{ID: "run_1", Status: openai.RunStatusCompleted}
	}
	r := f.queue[0]
	if len(f.queue) > 1 {
		f.queue = f.queue[1:]
	}
	return r
}

func (f *fakeAssistantAPI) CreateAssistant(_ context.Context, request openai.AssistantRequest) (openai.Assistant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assistantRequest = &request
	return openai.Assistant{ID: "asst_test"}, nil
}

func (f *fakeAssistantAPI) CreateThread(_ context.Context, _ openai.ThreadRequest) (openai.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createThreadCalls++
	if f.createThreadErr != nil {
		return openai.Thread{}, f.createThreadErr
	}
	f.threadSeq++
	id := fmt.Sprintf("thread_new_%d", f.threadSeq)
	f.knownThreads[id] = true
	return openai.Thread{ID: id}, nil
}

func (f *fakeAssistantAPI) RetrieveThread(_ context.Context, threadID string) (openai.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.knownThreads[threadID] {
		return openai.Thread{}, &openai.APIError{HTTPStatusCode: http.StatusNotFound, Message: "No thread found"}
	}
	return openai.Thread{ID: threadID}, nil
}

func (f *fakeAssistantAPI) CreateMessage(_ context.Context, _ string, request openai.MessageRequest) (openai.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createMessageErr != nil {
		return openai.Message{}, f.createMessageErr
	}
	f.userMessages = append(f.userMessages, request.Content)
	return openai.Message{ID: "msg_user"}, nil
}

func (f *fakeAssistantAPI) ListMessage(_ context.Context, _ string, _ *int, _ *string, _ *string, _ *string, _ *string) (openai.MessagesList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listMessageErr != nil {
		return openai.MessagesList{}, f.listMessageErr
	}
	if f.echoToolOutput && len(f.submitted) > 0 {
		last := f.submitted[len(f.submitted)-1]
		return openai.MessagesList{Messages: []openai.Message{textMessage(fmt.Sprint(last[0].Output))}}, nil
	}
	return openai.MessagesList{Messages: f.messages}, nil
}

func (f *fakeAssistantAPI) CreateRun(_ context.Context, _ string, _ openai.RunRequest) (openai.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next(), nil
}

func (f *fakeAssistantAPI) RetrieveRun(_ context.Context, _ string, _ string) (openai.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retrieveRunCalls++
	return f.next(), nil
}

func (f *fakeAssistantAPI) CancelRun(_ context.Context, _ string, runID string) (openai.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls++
	return openai.Run{ID: runID, Status: openai.RunStatusCancelling}, errors.New("cannot cancel run")
}

func (f *fakeAssistantAPI) SubmitToolOutputs(_ context.Context, _ string, _ string, request openai.SubmitToolOutputsRequest) (openai.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, request.ToolOutputs)
	f.queue = f.afterSubmit
	return f.next(), nil
}

func runWithStatus(status openai.RunStatus) openai.Run {
	return openai.Run{ID: "run_1", Status: status}
}

func requiresToolCalls(calls ...openai.ToolCall) openai.Run {
	return openai.Run{
		ID:     "run_1",
		Status: openai.RunStatusRequiresAction,
		RequiredAction: &openai.RunRequiredAction{
			Type:              openai.RequiredActionTypeSubmitToolOutputs,
			SubmitToolOutputs: &openai.SubmitToolOutputs{ToolCalls: calls},
		},
	}
}

func toolCall(id, name, arguments string) openai.ToolCall {
	return openai.ToolCall{
		ID:       id,
		Type:     openai.ToolTypeFunction,
		Function: openai.FunctionCall{Name: name, Arguments: arguments},
	}
}

func textMessage(text string) openai.Message {
	return openai.Message{
		ID:      "msg_assistant",
		Role:    "assistant",
		Content: []openai.MessageContent{{Type: "text", Text: &openai.MessageText{Value: text}}},
	}
}

// newMapsServer serves canned maps responses keyed by request path.
func newMapsServer(t *testing.T, responses map[string]interface{}) (*httptest.Server, *[]*http.Request) {
	t.Helper()
	var mu sync.Mutex
	var requests []*http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, r)
		mu.Unlock()

		body, ok := responses[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=UTF-8")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func newTestMapTools(baseURL, apiKey string) *MapTools {
	return NewMapTools(NewMapsService(baseURL, apiKey, "en", 0), testCity)
}

func newOfflineRegistry() *ToolRegistry {
	events := NewEventsService("http://127.0.0.1:0/", "test-agent", time.Second, testCity, fixedClock(time.Date(2025, 5, 14, 10, 0, 0, 0, time.UTC)))
	return NewToolRegistry(newTestMapTools("http://127.0.0.1:0", ""), events, testCity)
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
