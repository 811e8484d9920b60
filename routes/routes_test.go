package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrCactuss/Ai-Powered-App-Project/controllers"
	"github.com/MrCactuss/Ai-Powered-App-Project/middlewares"
	"github.com/MrCactuss/Ai-Powered-App-Project/models"
	"github.com/MrCactuss/Ai-Powered-App-Project/services"
)

var liepaja = models.City{Name: "Liepāja", Country: "Latvia"}

// toolEchoAPI asks for one find_places call and answers with whatever the
// tool returned.
type toolEchoAPI struct {
	mu      sync.Mutex
	threads int
	output  string
	args    string
}

func (a *toolEchoAPI) CreateAssistant(context.Context, openai.AssistantRequest) (openai.Assistant, error) {
	return openai.Assistant{ID: "asst_e2e"}, nil
}

func (a *toolEchoAPI) CreateThread(context.Context, openai.ThreadRequest) (openai.Thread, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.threads++
	return openai.Thread{ID: fmt.Sprintf("thread_e2e_%d", a.threads)}, nil
}

func (a *toolEchoAPI) RetrieveThread(_ context.Context, threadID string) (openai.Thread, error) {
	return openai.Thread{}, fmt.Errorf("no thread found with id '%s'", threadID)
}

func (a *toolEchoAPI) CreateMessage(_ context.Context, _ string, request openai.MessageRequest) (openai.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.args = fmt.Sprintf(`{"place_type":"pizza","area":%q}`, strings.TrimPrefix(request.Content, "Pizza near "))
	return openai.Message{ID: "msg_1"}, nil
}

func (a *toolEchoAPI) ListMessage(context.Context, string, *int, *string, *string, *string, *string) (openai.MessagesList, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return openai.MessagesList{Messages: []openai.Message{{
		ID:      "msg_2",
		Content: []openai.MessageContent{{Type: "text", Text: &openai.MessageText{Value: a.output}}},
	}}}, nil
}

func (a *toolEchoAPI) CreateRun(context.Context, string, openai.RunRequest) (openai.Run, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return openai.Run{
		ID:     "run_1",
		Status: openai.RunStatusRequiresAction,
		RequiredAction: &openai.RunRequiredAction{
			Type: openai.RequiredActionTypeSubmitToolOutputs,
			SubmitToolOutputs: &openai.SubmitToolOutputs{ToolCalls: []openai.ToolCall{{
				ID:       "call_1",
				Type:     openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: services.ToolFindPlaces, Arguments: a.args},
			}}},
		},
	}, nil
}

func (a *toolEchoAPI) RetrieveRun(_ context.Context, _ string, runID string) (openai.Run, error) {
	return openai.Run{ID: runID, Status: openai.RunStatusCompleted}, nil
}

func (a *toolEchoAPI) CancelRun(_ context.Context, _ string, runID string) (openai.Run, error) {
	return openai.Run{ID: runID, Status: openai.RunStatusCancelled}, nil
}

func (a *toolEchoAPI) SubmitToolOutputs(_ context.Context, _ string, runID string, request openai.SubmitToolOutputsRequest) (openai.Run, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.output = fmt.Sprint(request.ToolOutputs[0].Output)
	return openai.Run{ID: runID, Status: openai.RunStatusQueued}, nil
}

func newPlacesServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/place/textsearch/json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "OK",
			"results": [
				{"place_id": "p1", "name": "Pica Lulū", "formatted_address": "Lielā iela 7, Liepāja", "rating": 4.3},
				{"place_id": "p2", "name": "Čili Pica", "formatted_address": "Baznīcas iela 13, Liepāja", "rating": 4.1}
			]
		}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func newE2ERouter(t *testing.T, api services.AssistantAPI) *gin.Engine {
	gin.SetMode(gin.TestMode)
	maps := services.NewMapsService(newPlacesServer(t).URL, "maps-key", "en", 0)
	events := services.NewEventsService("http://127.0.0.1:0/", "test-agent", time.Second, liepaja, services.SystemClock)
	registry := services.NewToolRegistry(services.NewMapTools(maps, liepaja), events, liepaja)
	assistant := services.NewAssistantService(api, registry, services.AssistantOptions{
		AssistantID:  "asst_e2e",
		PollInterval: time.Millisecond,
		MaxWait:      time.Second,
	})
	return SetupRouter(controllers.NewChatController(assistant, liepaja))
}

func TestSendMessage_PizzaNearTheCenter(t *testing.T) {
	router := newE2ERouter(t, &toolEchoAPI{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/send-message", strings.NewReader(`{"message":"Pizza near the center"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "thread_e2e_1", resp.ConversationID)
	assert.Equal(t, "Pizza near the center", resp.MessageReceived)
	lines := strings.Split(resp.Reply, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Found these 'pizza' options near 'the center':", lines[0])
	assert.Equal(t, "1. Pica Lulū at Lielā iela 7, Liepāja (Rating: 4.3)", lines[1])
	assert.Equal(t, "2. Čili Pica at Baznīcas iela 13, Liepāja (Rating: 4.1)", lines[2])
	assert.NotContains(t, resp.Reply, "There might be more options available.")
	assert.NotEmpty(t, w.Header().Get(middlewares.RequestIDHeader))
}

func TestSendMessage_TrailingSlash(t *testing.T) {
	router := newE2ERouter(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/send-message/", strings.NewReader(`{"message":"Hi"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"message_received":"Hi"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/conversation-history/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"detail":"Not implemented yet"}`, w.Body.String())
}

func TestSendMessage_AssistantUnavailable(t *testing.T) {
	router := newE2ERouter(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/send-message",
		strings.NewReader(`{"message":"Hi","conversation_id":"thread_old"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"conversation_id":"thread_old","reply":"Error: the assistant service is unavailable.","message_received":"Hi"}`, w.Body.String())
}

func TestMiddlewares(t *testing.T) {
	router := newE2ERouter(t, nil)
	router.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"Internal Server Error processing message"}`, w.Body.String())

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/send-message", nil)
	req.Header.Set(middlewares.RequestIDHeader, "req-42")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "req-42", w.Header().Get(middlewares.RequestIDHeader))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.JSONEq(t, `{"message":"Liepāja chatbot backend is running!"}`, w.Body.String())
}
