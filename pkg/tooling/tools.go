// Package tooling provides the wardrobe query tools the stylist model can call
package tooling

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/sealor/closet-whisperer/pkg/conversation"
	"github.com/sealor/closet-whisperer/pkg/wardrobe"
	"github.com/xeipuuv/gojsonschema"
)

const (
	SearchGarmentsName       = "searchGarments"
	GetGarmentByIDName       = "getGarmentById"
	GetAvailableGarmentsName = "getAvailableGarments"
)

var SearchGarmentsTool openai.ChatCompletionToolUnionParam = openai.ChatCompletionToolUnionParam{
	OfFunction: &openai.ChatCompletionFunctionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        SearchGarmentsName,
			Description: openai.String("Search the wardrobe for garments matching all given criteria. Only available garments are returned unless a status is given."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"type": map[string]any{
						"type": "string",
						"enum": wardrobe.GarmentTypes,
					},
					"color": map[string]any{
						"type":        "string",
						"description": "Part of the color name, case-insensitive",
					},
					"season": map[string]any{
						"type": "string",
						"enum": wardrobe.Seasons,
					},
					"occasion": map[string]any{
						"type":        "string",
						"description": "e.g. casual, formal, sport, business, party",
					},
					"status": map[string]any{
						"type": "string",
						"enum": wardrobe.Statuses,
					},
				},
				"additionalProperties": false,
			},
		},
	},
}

type SearchGarmentsArguments struct {
	Type     wardrobe.GarmentType `json:"type"`
	Color    string               `json:"color"`
	Season   wardrobe.Season      `json:"season"`
	Occasion string               `json:"occasion"`
	Status   wardrobe.Status      `json:"status"`
}

var GetGarmentByIDTool openai.ChatCompletionToolUnionParam = openai.ChatCompletionToolUnionParam{
	OfFunction: &openai.ChatCompletionFunctionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        GetGarmentByIDName,
			Description: openai.String("Get all details of one garment, including its laundry state. Returns null if the garment does not exist."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]string{
						"type": "string",
					},
				},
				"required": []string{"id"},
			},
		},
	},
}

type GetGarmentByIDArguments struct {
	ID string `json:"id"`
}

var GetAvailableGarmentsTool openai.ChatCompletionToolUnionParam = openai.ChatCompletionToolUnionParam{
	OfFunction: &openai.ChatCompletionFunctionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        GetAvailableGarmentsName,
			Description: openai.String("Get all available garments, i.e. everything that is not in the laundry."),
			Parameters: openai.FunctionParameters{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	},
}

type toolFunc func(ctx context.Context, f *Facade, args []byte) (any, error)

type tool struct {
	definition openai.ChatCompletionToolUnionParam
	schema     *gojsonschema.Schema
	call       toolFunc
}

// Toolbox dispatches tool calls of the model to the facade.
type Toolbox struct {
	facade *Facade
	tools  map[string]*tool
	order  []string
}

func NewToolbox(facade *Facade) *Toolbox {
	t := &Toolbox{facade: facade, tools: map[string]*tool{}}
	t.register(SearchGarmentsTool, searchGarments)
	t.register(GetGarmentByIDTool, getGarmentByID)
	t.register(GetAvailableGarmentsTool, getAvailableGarments)
	return t
}

func (t *Toolbox) register(definition openai.ChatCompletionToolUnionParam, call toolFunc) {
	function := definition.OfFunction.Function
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(function.Parameters))
	if err != nil {
		panic(fmt.Sprintf("invalid parameter schema of tool %s: %v", function.Name, err))
	}
	t.tools[function.Name] = &tool{definition: definition, schema: schema, call: call}
	t.order = append(t.order, function.Name)
}

// Definitions returns the tool list sent to the model.
func (t *Toolbox) Definitions() []openai.ChatCompletionToolUnionParam {
	definitions := make([]openai.ChatCompletionToolUnionParam, 0, len(t.order))
	for _, name := range t.order {
		definitions = append(definitions, t.tools[name].definition)
	}
	return definitions
}

// Call executes one tool call and returns the tool message answering it. Unknown tools and invalid
// arguments are reported to the model in the message; only store failures are returned as error.
func (t *Toolbox) Call(ctx context.Context, toolCall conversation.ToolCall) (conversation.Message, error) {
	tool, ok := t.tools[toolCall.Name]
	if !ok {
		return errorMessage("Unknown tool", toolCall.ID), nil
	}

	args := []byte(strings.TrimSpace(toolCall.Arguments))
	if len(args) == 0 {
		args = []byte("{}")
	}
	if err := validate(tool.schema, args); err != nil {
		return errorMessage(fmt.Sprint("Invalid arguments: ", err), toolCall.ID), nil
	}

	result, err := tool.call(ctx, t.facade, args)
	if err != nil {
		return conversation.Message{}, fmt.Errorf("tool %s: %w", toolCall.Name, err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return conversation.Message{}, fmt.Errorf("tool %s: encode result: %w", toolCall.Name, err)
	}
	return conversation.ToolMessage(string(data), toolCall.ID), nil
}

func validate(schema *gojsonschema.Schema, args []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return err
	}
	if !result.Valid() {
		var problems []string
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return fmt.Errorf("%s", strings.Join(problems, ", "))
	}
	return nil
}

func errorMessage(text, toolCallID string) conversation.Message {
	data, _ := json.Marshal(map[string]string{"error": text})
	return conversation.ToolMessage(string(data), toolCallID)
}

func searchGarments(ctx context.Context, f *Facade, data []byte) (any, error) {
	var args SearchGarmentsArguments
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, err
	}
	return f.SearchGarments(ctx, GarmentFilter(args))
}

func getGarmentByID(ctx context.Context, f *Facade, data []byte) (any, error) {
	var args GetGarmentByIDArguments
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, err
	}
	garment, err := f.GetGarmentByID(ctx, args.ID)
	if err != nil || garment == nil {
		return nil, err
	}
	return garment, nil
}

func getAvailableGarments(ctx context.Context, f *Facade, _ []byte) (any, error) {
	return f.GetAvailableGarments(ctx)
}
