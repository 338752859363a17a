package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/petclinic/genai-service/internal/vectorstore"
)

// fallbackVetQuery stands in when the user gives no search terms; it pulls
// the broadest slice of the index.
const fallbackVetQuery = "veterinarian"

const (
	vetTopKDefault = 20
	vetTopKBroad   = 50
)

// ListVetsTool searches the veterinarian index semantically.
type ListVetsTool struct {
	index *vectorstore.Store
}

// NewListVetsTool creates the list_vets tool.
func NewListVetsTool(index *vectorstore.Store) *ListVetsTool {
	return &ListVetsTool{index: index}
}

func (t *ListVetsTool) Name() string { return "list_vets" }

func (t *ListVetsTool) Description() string {
	return "List the veterinarians that the pet clinic has. " +
		"Use this when the user asks about vets, veterinarians, or their specialties. " +
		"You can provide a query to search for specific vets or specialties."
}

func (t *ListVetsTool) InputSchema() string {
	return `{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "Optional search query (e.g., vet name, specialty like 'radiology' or 'surgery')"}
		},
		"additionalProperties": false
	}`
}

func (t *ListVetsTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("decoding vet query: %w", err)
	}

	// No query means "show me vets": search broadly with a generic term.
	query := args.Query
	topK := vetTopKDefault
	if query == "" {
		query = fallbackVetQuery
		topK = vetTopKBroad
	}

	docs, err := t.index.Search(ctx, query, topK)
	if err != nil {
		return "", err
	}

	results := make([]string, 0, len(docs))
	for _, d := range docs {
		results = append(results, d.Content)
	}
	data, err := json.MarshalIndent(map[string]any{"vets": results}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
