package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/MrCactuss/Ai-Powered-App-Project/models"
)

// Replies returned to the user instead of provider errors.
const (
	ReplyUnavailable         = "Error: the assistant service is unavailable."
	ReplyTimedOut            = "Sorry, the request took too long to process."
	ReplyTimedOutAfterTool   = "Sorry, the request took too long after using a tool."
	ReplyBadRequiredAction   = "Error processing required action."
	ReplyNoResponse          = "Could not retrieve response from AI."
	ReplyUnexpectedFormat    = "Received unexpected response format from AI."
	ReplyFailed              = "Sorry, the request failed."
	ReplyEndedUnexpectedly   = "Sorry, the process ended unexpectedly."
	ReplyInternalServerError = "An internal server error occurred while processing your request."
)

// AssistantOptions tune the run polling.
type AssistantOptions struct {
	AssistantID   string
	PollInterval  time.Duration
	MaxWait       time.Duration
	MaxToolRounds int
}

// AssistantService drives one user message through an assistant run,
// executing any tool calls the run asks for.
type AssistantService struct {
	api           AssistantAPI
	assistantID   string
	registry      *ToolRegistry
	waiter        *RunWaiter
	maxToolRounds int
}

func NewAssistantService(api AssistantAPI, registry *ToolRegistry, opts AssistantOptions) *AssistantService {
	rounds := opts.MaxToolRounds
	if rounds < 1 {
		rounds = 1
	}
	return &AssistantService{
		api:           api,
		assistantID:   opts.AssistantID,
		registry:      registry,
		waiter:        NewRunWaiter(api, opts.PollInterval, opts.MaxWait),
		maxToolRounds: rounds,
	}
}

// Available reports whether the service has both a client and an assistant.
func (s *AssistantService) Available() bool {
	return s != nil && s.api != nil && s.assistantID != ""
}

// AssistantID is the remote assistant runs are created for.
func (s *AssistantService) AssistantID() string {
	return s.assistantID
}

// HandleQuery answers message in the conversation conversationID, starting a
// new conversation when the id is empty or unknown to the provider. It never
// fails: provider errors become a generic reply paired with whatever
// conversation id was established before the error.
func (s *AssistantService) HandleQuery(ctx context.Context, message, conversationID string) models.QueryResult {
	if !s.Available() {
		return models.QueryResult{Reply: ReplyUnavailable, ConversationID: conversationID}
	}

	threadID := conversationID
	reply, err := s.handle(ctx, message, &threadID)
	if err != nil {
		log.Error().Err(err).Str("thread_id", threadID).Msg("Error handling user query")
		return models.QueryResult{Reply: ReplyInternalServerError, ConversationID: threadID}
	}
	return models.QueryResult{Reply: reply, ConversationID: threadID}
}

func (s *AssistantService) handle(ctx context.Context, message string, threadID *string) (string, error) {
	if err := s.ensureThread(ctx, threadID); err != nil {
		return "", err
	}

	if _, err := s.api.CreateMessage(ctx, *threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	}); err != nil {
		return "", fmt.Errorf("failed to add message to thread %s: %w", *threadID, err)
	}

	run, err := s.api.CreateRun(ctx, *threadID, openai.RunRequest{AssistantID: s.assistantID})
	if err != nil {
		return "", fmt.Errorf("failed to create run on thread %s: %w", *threadID, err)
	}
	log.Info().Str("thread_id", *threadID).Str("run_id", run.ID).Msg("Run created")

	run, err = s.waiter.Wait(ctx, *threadID, run)
	if errors.Is(err, ErrRunTimedOut) {
		return ReplyTimedOut, nil
	}
	if err != nil {
		return "", err
	}

	for round := 0; run.Status == openai.RunStatusRequiresAction && round < s.maxToolRounds; round++ {
		action := run.RequiredAction
		if action == nil || action.Type != openai.RequiredActionTypeSubmitToolOutputs || action.SubmitToolOutputs == nil {
			log.Error().Str("thread_id", *threadID).Str("run_id", run.ID).Msg("Run requires action but no tool outputs were requested")
			return ReplyBadRequiredAction, nil
		}

		outputs := s.runTools(ctx, action.SubmitToolOutputs.ToolCalls)
		runID := run.ID
		run, err = s.api.SubmitToolOutputs(ctx, *threadID, runID, openai.SubmitToolOutputsRequest{ToolOutputs: outputs})
		if err != nil {
			return "", fmt.Errorf("failed to submit tool outputs for run %s: %w", runID, err)
		}
		if run.ID == "" {
			run.ID = runID
		}

		run, err = s.waiter.Wait(ctx, *threadID, run)
		if errors.Is(err, ErrRunTimedOut) {
			return ReplyTimedOutAfterTool, nil
		}
		if err != nil {
			return "", err
		}
	}

	return s.finalReply(ctx, *threadID, run)
}

// ensureThread validates an existing thread id, or replaces it with a fresh
// thread when it is empty or the provider cannot find it.
func (s *AssistantService) ensureThread(ctx context.Context, threadID *string) error {
	if *threadID != "" {
		_, err := s.api.RetrieveThread(ctx, *threadID)
		if err == nil {
			log.Debug().Str("thread_id", *threadID).Msg("Reusing existing thread")
			return nil
		}
		log.Warn().Err(err).Str("thread_id", *threadID).Msg("Failed to retrieve thread, creating a new one")
		*threadID = ""
	}

	thread, err := s.api.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return fmt.Errorf("failed to create thread: %w", err)
	}
	*threadID = thread.ID
	log.Info().Str("thread_id", thread.ID).Msg("Created new thread")
	return nil
}

// runTools executes the calls one after another; one output per call id.
func (s *AssistantService) runTools(ctx context.Context, calls []openai.ToolCall) []openai.ToolOutput {
	outputs := make([]openai.ToolOutput, 0, len(calls))
	for _, call := range calls {
		log.Info().Str("tool", call.Function.Name).Str("tool_call_id", call.ID).Msg("Calling tool")
		outputs = append(outputs, openai.ToolOutput{
			ToolCallID: call.ID,
			Output:     s.registry.Execute(ctx, call.Function.Name, call.Function.Arguments),
		})
	}
	return outputs
}

func (s *AssistantService) finalReply(ctx context.Context, threadID string, run openai.Run) (string, error) {
	switch run.Status {
	case openai.RunStatusCompleted:
		return s.latestMessage(ctx, threadID)
	case openai.RunStatusFailed:
		reason := "Unknown failure reason."
		if run.LastError != nil && run.LastError.Message != "" {
			reason = run.LastError.Message
		}
		log.Error().Str("thread_id", threadID).Str("run_id", run.ID).Str("reason", reason).Msg("Run failed")
		return ReplyFailed, nil
	default:
		log.Warn().Str("thread_id", threadID).Str("run_id", run.ID).Str("status", string(run.Status)).Msg("Run ended with unexpected status")
		return ReplyEndedUnexpectedly, nil
	}
}

func (s *AssistantService) latestMessage(ctx context.Context, threadID string) (string, error) {
	limit := 1
	order := "desc"
	messages, err := s.api.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return "", fmt.Errorf("failed to list messages on thread %s: %w", threadID, err)
	}

	if len(messages.Messages) == 0 || len(messages.Messages[0].Content) == 0 {
		return ReplyNoResponse, nil
	}
	content := messages.Messages[0].Content[0]
	if content.Text == nil {
		return ReplyUnexpectedFormat, nil
	}
	return content.Text.Value, nil
}

// ProvisionAssistant creates the remote assistant with every registered tool
// and returns its id.
func ProvisionAssistant(ctx context.Context, api AssistantAPI, registry *ToolRegistry, city models.City, model string) (string, error) {
	if api == nil {
		return "", errors.New("OpenAI API key is not configured")
	}

	name := fmt.Sprintf("%s Helper Bot", city.Name)
	instructions := fmt.Sprintf("You are a helpful assistant focused on providing information about %s. "+
		"Use the available tools to answer questions about locations and local information. Be concise and helpful.", city.Scope())

	assistant, err := api.CreateAssistant(ctx, openai.AssistantRequest{
		Model:        model,
		Name:         &name,
		Instructions: &instructions,
		Tools:        registry.Definitions(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create assistant: %w", err)
	}
	log.Info().Str("assistant_id", assistant.ID).Str("model", model).Msg("OpenAI assistant created")
	return assistant.ID, nil
}
