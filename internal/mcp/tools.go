// ABOUTME: MCP tool definitions and registration for the feedback radar server
// ABOUTME: Exposes classification, example search, and collection stats to MCP clients
package mcp

import (
	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, deps Deps) *Handlers {
	handlers := &Handlers{
		classifier: deps.Classifier,
		ensemble:   deps.Ensemble,
		store:      deps.Store,
		logger:     deps.Logger,
	}
	if handlers.logger == nil {
		handlers.logger = log.Default()
	}

	// 1. classify_text - label one feedback text
	server.AddTool(mcp.Tool{
		Name:        "classify_text",
		Description: "Classify one customer feedback text into a category using nearest labeled examples. Optionally combines the vote with the trained sequence model.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Feedback text to classify",
				},
				"use_ensemble": map[string]interface{}{
					"type":        "boolean",
					"description": "Combine the k-NN vote with the sequence model (default: false)",
					"default":     false,
				},
			},
			Required: []string{"text"},
		},
	}, handlers.ClassifyText)

	// 2. search_examples - nearest labeled examples
	server.AddTool(mcp.Tool{
		Name:        "search_examples",
		Description: "Find the labeled reference examples most similar to a query text.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Text to search for",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of examples to return (default: 5)",
					"default":     5,
				},
			},
			Required: []string{"query"},
		},
	}, handlers.SearchExamples)

	// 3. collection_stats - example counts per category
	server.AddTool(mcp.Tool{
		Name:        "collection_stats",
		Description: "Report how many reference examples the index holds per category.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.CollectionStats)

	return handlers
}
