// ABOUTME: MCP tool handler implementations for the feedback radar server
// ABOUTME: Tool failures are returned as error results so the MCP session stays up
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/harper/feedback-radar/internal/ensemble"
	"github.com/harper/feedback-radar/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

const maxSearchLimit = 50

// Classifier labels texts. *knn.Classifier satisfies it.
type Classifier interface {
	ClassifyBatch(ctx context.Context, texts []string) ([]models.Classification, error)
}

// Comparer runs both ensemble members. *ensemble.Ensemble satisfies it.
type Comparer interface {
	Compare(ctx context.Context, texts []string) ([]ensemble.Outcome, error)
}

// ExampleStore is the read side of the vector store.
type ExampleStore interface {
	Name() string
	SearchSimilar(ctx context.Context, text string, k int) ([]models.VectorSearchResult, error)
	CountByCategory(ctx context.Context) (map[string]int, error)
}

// Deps are the components the tools call into. Ensemble may be nil.
type Deps struct {
	Classifier Classifier
	Ensemble   Comparer
	Store      ExampleStore
	Logger     *log.Logger
}

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	classifier Classifier
	ensemble   Comparer
	store      ExampleStore
	logger     *log.Logger
}

// ClassifyText handles the classify_text tool
func (h *Handlers) ClassifyText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text argument is required and must be a string"), nil
	}
	useEnsemble := request.GetBool("use_ensemble", false)

	response := map[string]interface{}{}
	if useEnsemble {
		if h.ensemble == nil {
			return mcp.NewToolResultError("ensemble is not configured: set a sequence model directory"), nil
		}
		outcomes, err := h.ensemble.Compare(ctx, []string{text})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("classification failed: %v", err)), nil
		}
		o := outcomes[0]
		response["classification"] = o.Combined
		response["vector"] = o.Vector
		response["sequence"] = o.Sequence
		response["agreed"] = o.Agreed
	} else {
		results, err := h.classifier.ClassifyBatch(ctx, []string{text})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("classification failed: %v", err)), nil
		}
		response["classification"] = results[0]
	}

	h.logger.Debug("classify_text", "ensemble", useEnsemble)
	return jsonResult(response)
}

// SearchExamples handles the search_examples tool
func (h *Handlers) SearchExamples(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}

	limit := request.GetInt("limit", 5)
	if limit < 1 {
		limit = 1
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	results, err := h.store.SearchSimilar(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	examples := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		examples = append(examples, map[string]interface{}{
			"id":         r.ID,
			"text":       r.Text,
			"category":   r.Category(),
			"distance":   r.Distance,
			"similarity": r.Similarity(),
		})
	}

	return jsonResult(map[string]interface{}{
		"query":    query,
		"examples": examples,
	})
}

// CollectionStats handles the collection_stats tool
func (h *Handlers) CollectionStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	counts, err := h.store.CountByCategory(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to count examples: %v", err)), nil
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	return jsonResult(map[string]interface{}{
		"collection":  h.store.Name(),
		"total":       total,
		"by_category": counts,
	})
}

func jsonResult(response any) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}
