package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/MrCactuss/Ai-Powered-App-Project/models"
)

// Names of the tools registered with the assistant.
const (
	ToolFindPlaces      = "find_places"
	ToolGetPlaceDetails = "get_place_details"
	ToolGetDirections   = "get_directions"
	ToolGetDistanceTime = "get_distance_time"
	ToolGetEvents       = "get_events"
)

// ToolNotRecognized is the output submitted for a tool name nobody registered.
const ToolNotRecognized = "Function not recognized"

const maxLoggedOutput = 200

// ToolArgs is a decoded tool-call argument object.
type ToolArgs map[string]interface{}

// String returns the argument as a string, or def when it is missing or empty.
func (a ToolArgs) String(key, def string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// DecodeToolArgs parses the JSON argument payload of a tool call. Payloads the
// model got slightly wrong are repaired first; anything beyond repair decodes
// to an empty argument set so the tool can still answer with its defaults.
func DecodeToolArgs(raw string) ToolArgs {
	args := ToolArgs{}
	if strings.TrimSpace(raw) == "" {
		return args
	}

	if err := json.Unmarshal([]byte(raw), &args); err == nil {
		return args
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		log.Warn().Err(err).Str("arguments", raw).Msg("Tool arguments are not valid JSON")
		return ToolArgs{}
	}

	args = ToolArgs{}
	if err := json.Unmarshal([]byte(repaired), &args); err != nil {
		log.Warn().Err(err).Str("arguments", raw).Msg("Repaired tool arguments are still not an object")
		return ToolArgs{}
	}
	log.Debug().Str("arguments", raw).Str("repaired", repaired).Msg("Repaired tool arguments")
	return args
}

type toolExecutor func(ctx context.Context, args ToolArgs) string

type toolEntry struct {
	definition openai.FunctionDefinition
	execute    toolExecutor
}

// ToolRegistry holds the tool metadata handed to the assistant and routes
// tool calls to their functions.
type ToolRegistry struct {
	tools map[string]toolEntry
}

func NewToolRegistry(mapTools *MapTools, events *EventsService, city models.City) *ToolRegistry {
	name := city.Name
	originDest := func(what string) jsonschema.Definition {
		return jsonschema.Definition{
			Type:        jsonschema.String,
			Description: fmt.Sprintf("The %s address or landmark in %s.", what, name),
		}
	}
	modeParam := jsonschema.Definition{
		Type:        jsonschema.String,
		Description: "Optional mode of transport. Defaults to 'driving'. Options: 'driving', 'walking', 'bicycling', 'transit'.",
	}

	r := &ToolRegistry{tools: map[string]toolEntry{}}

	r.register(openai.FunctionDefinition{
		Name: ToolFindPlaces,
		Description: fmt.Sprintf("Searches for specific types of places (e.g., restaurants, shops, cafes, museums) within a specified area "+
			"or near a landmark in %s. Useful for queries like 'where can I find X' or 'are there any Y near Z'.", name),
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"place_type": {
					Type:        jsonschema.String,
					Description: "The type of place to search for (e.g., 'pizza restaurant', 'cafe', 'supermarket', 'pharmacy'). Be specific.",
				},
				"area": {
					Type:        jsonschema.String,
					Description: fmt.Sprintf("Optional. The specific area or landmark in %s to search near. If not specified, assumes a general city search.", name),
				},
			},
			Required: []string{"place_type"},
		},
	}, func(ctx context.Context, args ToolArgs) string {
		return mapTools.FindPlaces(ctx, args.String("place_type", ""), args.String("area", name))
	})

	r.register(openai.FunctionDefinition{
		Name: ToolGetPlaceDetails,
		Description: fmt.Sprintf("Gets detailed information (like phone number, website, opening hours, rating) for a specific place name in %s, "+
			"usually after finding it with '%s'.", name, ToolFindPlaces),
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"place_name": {
					Type:        jsonschema.String,
					Description: fmt.Sprintf("The name of the specific place in %s to get details for.", name),
				},
				"address": {
					Type:        jsonschema.String,
					Description: "Optional. The address of the place, if known, to help find the exact match.",
				},
			},
			Required: []string{"place_name"},
		},
	}, func(ctx context.Context, args ToolArgs) string {
		return mapTools.GetPlaceDetails(ctx, args.String("place_name", ""), args.String("address", ""))
	})

	r.register(openai.FunctionDefinition{
		Name:        ToolGetDirections,
		Description: fmt.Sprintf("Provides text-based directions between two locations or addresses within %s.", name),
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"origin":      originDest("starting point"),
				"destination": originDest("destination"),
				"mode":        modeParam,
			},
			Required: []string{"origin", "destination"},
		},
	}, func(ctx context.Context, args ToolArgs) string {
		return mapTools.GetDirections(ctx, args.String("origin", ""), args.String("destination", ""), args.String("mode", DefaultTravelMode))
	})

	r.register(openai.FunctionDefinition{
		Name:        ToolGetDistanceTime,
		Description: fmt.Sprintf("Calculates the estimated travel distance and duration between two locations in %s.", name),
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"origin":      originDest("starting point"),
				"destination": originDest("destination"),
				"mode":        modeParam,
			},
			Required: []string{"origin", "destination"},
		},
	}, func(ctx context.Context, args ToolArgs) string {
		return mapTools.GetDistanceTime(ctx, args.String("origin", ""), args.String("destination", ""), args.String("mode", DefaultTravelMode))
	})

	r.register(openai.FunctionDefinition{
		Name:        ToolGetEvents,
		Description: fmt.Sprintf("Fetches upcoming events listed in the official %s events calendar.", name),
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"date_range": {
					Type:        jsonschema.String,
					Description: "Optional. The time frame: 'today', 'tomorrow', 'this_weekend' or 'next_7_days'. Defaults to 'next_7_days'.",
				},
				"category": {
					Type:        jsonschema.String,
					Description: "Optional. Filter events by category if possible (e.g., 'concerts', 'exhibitions', 'sports').",
				},
			},
		},
	}, func(ctx context.Context, args ToolArgs) string {
		return events.GetEvents(ctx, args.String("date_range", RangeNext7Days), args.String("category", ""))
	})

	return r
}

func (r *ToolRegistry) register(def openai.FunctionDefinition, execute toolExecutor) {
	r.tools[def.Name] = toolEntry{definition: def, execute: execute}
}

// Names lists the registered tool names in a stable order.
func (r *ToolRegistry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions is the tool list given to the assistant at creation time.
func (r *ToolRegistry) Definitions() []openai.AssistantTool {
	tools := make([]openai.AssistantTool, 0, len(r.tools))
	for _, name := range r.Names() {
		def := r.tools[name].definition
		tools = append(tools, openai.AssistantTool{
			Type:     openai.AssistantToolTypeFunction,
			Function: &def,
		})
	}
	return tools
}

// Execute runs the named tool with the raw JSON arguments. It always returns
// an output string, ToolNotRecognized for unknown names.
func (r *ToolRegistry) Execute(ctx context.Context, name, rawArgs string) string {
	entry, ok := r.tools[name]
	if !ok {
		log.Warn().Str("tool", name).Msg("Unknown function call requested")
		return ToolNotRecognized
	}

	output := entry.execute(ctx, DecodeToolArgs(rawArgs))

	preview := output
	if len(preview) > maxLoggedOutput {
		preview = preview[:maxLoggedOutput] + "..."
	}
	log.Debug().Str("tool", name).Str("output", preview).Msg("Tool output")
	return output
}
