package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rsned/production-planner/internal/planner/db"
	"github.com/rsned/production-planner/pkg/planner"
)

// ToolDefinition describes an MCP tool.
type ToolDefinition struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	InputSchema JSONSchema `json:"inputSchema"`
}

// JSONSchema is a simplified JSON Schema representation.
type JSONSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes a schema property.
type Property struct {
	Type                 string              `json:"type,omitempty"`
	Description          string              `json:"description,omitempty"`
	Default              any                 `json:"default,omitempty"`
	Enum                 []string            `json:"enum,omitempty"`
	Minimum              *float64            `json:"minimum,omitempty"`
	Maximum              *float64            `json:"maximum,omitempty"`
	Items                *Property           `json:"items,omitempty"`
	Properties           map[string]Property `json:"properties,omitempty"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties *Property           `json:"additionalProperties,omitempty"`
}

// GetToolDefinitions returns all tool definitions.
func GetToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		optimizeProductionTool(),
		productionLineOptimizeTool(),
		recipeLookupTool(),
		itemUsesTool(),
	}
}

func targetsProperty() Property {
	minRate := 0.0
	minID := 1.0

	return Property{
		Type:        "array",
		Description: "Items to produce and the minimum net rate per minute for each",
		Items: &Property{
			Type: "object",
			Properties: map[string]Property{
				"product_id": {Type: "integer", Description: "Item ID", Minimum: &minID},
				"rate":       {Type: "number", Description: "Items per minute", Minimum: &minRate},
			},
			Required: []string{"product_id", "rate"},
		},
	}
}

func optimizeProductionTool() ToolDefinition {
	return ToolDefinition{
		Name:        "optimize_production",
		Description: "Compute the cheapest set of recipe scales that meets the target output rates within raw resource limits. Returns the production line, raw resource usage, byproducts, power and build order.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"targets": targetsProperty(),
				"user_key": {
					Type:        "string",
					Description: "User whose saved recipe configuration applies (optional)",
				},
				"recipe_selection": {
					Type:        "object",
					Description: "Inline recipe configuration (recipe_id -> config); overrides user_key",
					AdditionalProperties: &Property{
						Type: "object",
						Properties: map[string]Property{
							"known":     {Type: "boolean"},
							"excluded":  {Type: "boolean"},
							"preferred": {Type: "integer", Description: "Recipe ID preferred for this recipe's products"},
						},
					},
				},
			},
			Required: []string{"targets"},
		},
	}
}

func productionLineOptimizeTool() ToolDefinition {
	return ToolDefinition{
		Name:        "production_line_optimize",
		Description: "Optimize a saved production line using the user's recipe configuration.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"user_key": {
					Type:        "string",
					Description: "Owner of the production line",
				},
				"line_id": {
					Type:        "string",
					Description: "Production line ID",
					Default:     db.DefaultLineID,
				},
			},
			Required: []string{"user_key"},
		},
	}
}

func recipeLookupTool() ToolDefinition {
	return ToolDefinition{
		Name:        "recipe_lookup",
		Description: "Look up details for a specific recipe by ID or search term. Returns recipe details and what recipes use its products.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"recipe_id": {
					Type:        "integer",
					Description: "Exact recipe ID to look up",
				},
				"search": {
					Type:        "string",
					Description: "Search term for recipe name (alternative to recipe_id)",
				},
			},
		},
	}
}

func itemUsesTool() ToolDefinition {
	return ToolDefinition{
		Name:        "item_uses",
		Description: "Find all recipes that consume or produce a specific item, with per-minute rates.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"item_id": {
					Type:        "integer",
					Description: "Item to look up uses for",
				},
			},
			Required: []string{"item_id"},
		},
	}
}

// Tool handlers

func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return nil
}

func (s *Server) toolOptimizeProduction(ctx context.Context, args json.RawMessage) (any, error) {
	var req planner.OptimizeRequest
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	return s.engine.Optimize(ctx, req)
}

type productionLineArgs struct {
	UserKey string `json:"user_key"`
	LineID  string `json:"line_id"`
}

func (s *Server) toolProductionLineOptimize(ctx context.Context, args json.RawMessage) (any, error) {
	var req productionLineArgs
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	if req.UserKey == "" {
		return nil, fmt.Errorf("%w: user_key is required", errInvalidParams)
	}
	if req.LineID == "" {
		req.LineID = db.DefaultLineID
	}
	if s.lines == nil {
		return nil, fmt.Errorf("production lines are not configured")
	}

	line, err := s.lines.GetProductionLine(ctx, req.UserKey, req.LineID)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, fmt.Errorf("%w: production line %q not found", errInvalidParams, req.LineID)
	}

	return s.engine.Optimize(ctx, planner.OptimizeRequest{
		UserKey: req.UserKey,
		Targets: line.Targets,
	})
}

func (s *Server) toolRecipeLookup(ctx context.Context, args json.RawMessage) (any, error) {
	var req planner.RecipeLookupRequest
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	return s.engine.RecipeLookup(ctx, req)
}

type itemUsesArgs struct {
	ItemID int `json:"item_id"`
}

func (s *Server) toolItemUses(ctx context.Context, args json.RawMessage) (any, error) {
	var req itemUsesArgs
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	if req.ItemID <= 0 {
		return nil, fmt.Errorf("%w: item_id must be positive", errInvalidParams)
	}
	return s.engine.ItemUses(ctx, req.ItemID)
}
