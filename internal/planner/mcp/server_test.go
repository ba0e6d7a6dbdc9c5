package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsned/production-planner/internal/planner/catalog"
	"github.com/rsned/production-planner/internal/planner/db"
	"github.com/rsned/production-planner/internal/planner/engine"
	"github.com/rsned/production-planner/internal/planner/sync"
	"github.com/rsned/production-planner/pkg/planner"
)

const testCatalog = `{
  "buildings": [
    {"id": 1, "class_name": "Build_SmelterMk1_C", "display_name": "Smelter", "power_consumption": 4},
    {"id": 2, "class_name": "Build_ConstructorMk1_C", "display_name": "Constructor", "power_consumption": 4}
  ],
  "items": [
    {"id": 155, "display_name": "Iron Ore"},
    {"id": 10, "display_name": "Iron Ingot"},
    {"id": 11, "display_name": "Iron Plate"}
  ],
  "recipes": [
    {"id": 1, "display_name": "Iron Ingot", "duration": 2, "produced_in": 1,
     "ingredients": [{"item_id": 155, "amount": 1}], "products": [{"item_id": 10, "amount": 1}]},
    {"id": 2, "display_name": "Iron Plate", "duration": 6, "produced_in": 2,
     "ingredients": [{"item_id": 10, "amount": 3}], "products": [{"item_id": 11, "amount": 2}]}
  ]
}`

func newTestServer(t *testing.T) (*Server, *db.ConfigStore) {
	t.Helper()
	ctx := context.Background()

	database, err := db.OpenAndInit(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	_, err = sync.NewSyncer(database).ImportCatalog(ctx, []byte(testCatalog))
	require.NoError(t, err)

	recipes := db.NewRecipeStore(database)
	configs := db.NewConfigStore(database)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	eng := engine.New(nil, catalog.New(recipes, 0, 0),
		engine.WithLogger(log),
		engine.WithSelectionSource(configs),
		engine.WithLookup(recipes, db.NewItemStore(database)),
	)
	return NewServer(eng, configs, log), configs
}

// roundTrip sends requests one per line and decodes every response.
func roundTrip(t *testing.T, s *Server, requests ...string) []Response {
	t.Helper()
	var out bytes.Buffer
	in := strings.Join(requests, "\n") + "\n"
	require.NoError(t, s.Serve(context.Background(), strings.NewReader(in), &out))

	var responses []Response
	scanner := bufio.NewScanner(&out)
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	for scanner.Scan() {
		var resp Response
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
		responses = append(responses, resp)
	}
	return responses
}

func toolCall(id int, name string, args any) string {
	raw, _ := json.Marshal(args)
	req, _ := json.Marshal(Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "tools/call",
		Params:  json.RawMessage(`{"name":"` + name + `","arguments":` + string(raw) + `}`),
	})
	return string(req)
}

// toolText decodes the text content of a successful tool call into v.
func toolText(t *testing.T, resp Response, v any) {
	t.Helper()
	require.Nil(t, resp.Error, "unexpected error: %+v", resp.Error)
	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result ToolCallResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.Len(t, result.Content, 1)
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), v))
}

func TestServer_InitializeAndList(t *testing.T) {
	s, _ := newTestServer(t)

	responses := roundTrip(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
	)
	require.Len(t, responses, 2)

	raw, _ := json.Marshal(responses[0].Result)
	var init InitializeResult
	require.NoError(t, json.Unmarshal(raw, &init))
	assert.Equal(t, "production-planner", init.ServerInfo.Name)

	raw, _ = json.Marshal(responses[1].Result)
	var list ToolsListResult
	require.NoError(t, json.Unmarshal(raw, &list))
	var names []string
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"optimize_production", "production_line_optimize", "recipe_lookup", "item_uses"}, names)
}

func TestServer_OptimizeProduction(t *testing.T) {
	s, _ := newTestServer(t)

	responses := roundTrip(t, s, toolCall(1, "optimize_production", map[string]any{
		"targets": []map[string]any{{"product_id": 11, "rate": 20}},
	}))
	require.Len(t, responses, 1)

	var plan planner.OptimizeResponse
	toolText(t, responses[0], &plan)

	require.Len(t, plan.ProductionLine, 2)
	assert.InDelta(t, 1.0, plan.ProductionLine[1].Scale, 1e-6)
	assert.InDelta(t, 1.0, plan.ProductionLine[2].Scale, 1e-6)
	assert.Equal(t, []planner.ResourceUsage{{ItemID: 155, TotalQuantity: 30}}, plan.RawResourceUsage)
	assert.Equal(t, 8.0, plan.TotalPowerMW)
	assert.Equal(t, []int{1, 2}, plan.BuildOrder)
}

func TestServer_ErrorCodes(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name    string
		request string
		code    int
	}{
		{
			name:    "parse error",
			request: `{not json`,
			code:    ErrCodeParse,
		},
		{
			name:    "unknown method",
			request: `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`,
			code:    ErrCodeMethodNotFound,
		},
		{
			name:    "unknown tool",
			request: toolCall(1, "craft_anything", map[string]any{}),
			code:    ErrCodeInvalidParams,
		},
		{
			name:    "no targets",
			request: toolCall(1, "optimize_production", map[string]any{"targets": []any{}}),
			code:    ErrCodeInvalidParams,
		},
		{
			name: "infeasible",
			request: toolCall(1, "optimize_production", map[string]any{
				"targets": []map[string]any{{"product_id": 11, "rate": 1e9}},
			}),
			code: ErrCodeInfeasible,
		},
		{
			name: "no producer",
			request: toolCall(1, "optimize_production", map[string]any{
				"targets": []map[string]any{{"product_id": 155, "rate": 5}},
			}),
			code: ErrCodeEmptyCandidate,
		},
		{
			name:    "item uses without id",
			request: toolCall(1, "item_uses", map[string]any{}),
			code:    ErrCodeInvalidParams,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responses := roundTrip(t, s, tt.request)
			require.Len(t, responses, 1)
			require.NotNil(t, responses[0].Error)
			assert.Equal(t, tt.code, responses[0].Error.Code, responses[0].Error.Message)
		})
	}
}

func TestServer_InfeasibleFamily(t *testing.T) {
	s, _ := newTestServer(t)

	responses := roundTrip(t, s, toolCall(1, "optimize_production", map[string]any{
		"targets": []map[string]any{{"product_id": 11, "rate": 1e9}},
	}))
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, map[string]any{"family": "raw_resource"}, responses[0].Error.Data)
}

func TestServer_ProductionLineOptimize(t *testing.T) {
	s, configs := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, configs.SaveProductionLine(ctx, "alice", planner.ProductionLine{
		ID:      "plates",
		Name:    "Plates",
		Targets: []planner.Target{{ProductID: 11, Rate: 40}},
	}))

	responses := roundTrip(t, s,
		toolCall(1, "production_line_optimize", map[string]any{"user_key": "alice", "line_id": "plates"}),
		toolCall(2, "production_line_optimize", map[string]any{"user_key": "alice", "line_id": "missing"}),
		toolCall(3, "production_line_optimize", map[string]any{}),
	)
	require.Len(t, responses, 3)

	var plan planner.OptimizeResponse
	toolText(t, responses[0], &plan)
	assert.InDelta(t, 2.0, plan.ProductionLine[2].Scale, 1e-6)
	assert.Equal(t, []planner.TargetOutput{{ItemID: 11, Amount: 40}}, plan.TargetOutput)

	require.NotNil(t, responses[1].Error)
	assert.Equal(t, ErrCodeInvalidParams, responses[1].Error.Code)
	require.NotNil(t, responses[2].Error)
	assert.Equal(t, ErrCodeInvalidParams, responses[2].Error.Code)
}

func TestServer_Lookups(t *testing.T) {
	s, _ := newTestServer(t)

	responses := roundTrip(t, s,
		toolCall(1, "recipe_lookup", map[string]any{"recipe_id": 1}),
		toolCall(2, "item_uses", map[string]any{"item_id": 10}),
	)
	require.Len(t, responses, 2)

	var lookup planner.RecipeLookupResponse
	toolText(t, responses[0], &lookup)
	require.NotNil(t, lookup.Recipe)
	assert.Equal(t, "Iron Ingot", lookup.Recipe.DisplayName)
	assert.Equal(t, []int{2}, lookup.UsedInRecipes)

	var uses planner.ItemUsesResponse
	toolText(t, responses[1], &uses)
	require.Len(t, uses.ConsumedBy, 1)
	assert.Equal(t, 30.0, uses.ConsumedBy[0].PerMinute)
	require.Len(t, uses.ProducedBy, 1)
	assert.Equal(t, 30.0, uses.ProducedBy[0].PerMinute)
}

func TestServer_StopsOnCanceledContext(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Serve(ctx, strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`+"\n"), io.Discard)
	assert.ErrorIs(t, err, context.Canceled)
}
