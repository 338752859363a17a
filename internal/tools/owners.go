// Package tools implements the clinic actions the model can invoke:
// listing and creating owners, adding pets, and semantic vet search.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/petclinic/genai-service/internal/domain"
	"github.com/petclinic/genai-service/internal/petclinic"
)

// ListOwnersTool lists every owner registered with the clinic.
type ListOwnersTool struct {
	records *petclinic.Client
}

// NewListOwnersTool creates the list_owners tool.
func NewListOwnersTool(records *petclinic.Client) *ListOwnersTool {
	return &ListOwnersTool{records: records}
}

func (t *ListOwnersTool) Name() string { return "list_owners" }

func (t *ListOwnersTool) Description() string {
	return "List all the owners that the pet clinic has. " +
		"Use this when the user asks about owners, their information, or wants to see all owners. " +
		"Returns a JSON list of owners with their pets."
}

func (t *ListOwnersTool) InputSchema() string {
	return `{
		"type": "object",
		"properties": {},
		"additionalProperties": false
	}`
}

func (t *ListOwnersTool) Execute(ctx context.Context, input string) (string, error) {
	owners, err := t.records.ListOwners(ctx)
	if err != nil {
		return "", err
	}
	if owners == nil {
		owners = []domain.Owner{}
	}
	data, err := json.MarshalIndent(map[string]any{"owners": owners}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// AddOwnerTool registers a new owner with the clinic.
type AddOwnerTool struct {
	records *petclinic.Client
}

// NewAddOwnerTool creates the add_owner_to_petclinic tool.
func NewAddOwnerTool(records *petclinic.Client) *AddOwnerTool {
	return &AddOwnerTool{records: records}
}

func (t *AddOwnerTool) Name() string { return "add_owner_to_petclinic" }

func (t *AddOwnerTool) Description() string {
	return "Add a new pet owner to the pet clinic. " +
		"The owner must include a first name and last name as two separate words, " +
		"plus an address, city, and a 10-digit phone number."
}

func (t *AddOwnerTool) InputSchema() string {
	return `{
		"type": "object",
		"properties": {
			"firstName": {"type": "string", "description": "Owner's first name"},
			"lastName": {"type": "string", "description": "Owner's last name"},
			"address": {"type": "string", "description": "Owner's street address"},
			"city": {"type": "string", "description": "Owner's city"},
			"telephone": {"type": "string", "pattern": "^[0-9]{10}$", "description": "Owner's 10-digit phone number"}
		},
		"required": ["firstName", "lastName", "address", "city", "telephone"],
		"additionalProperties": false
	}`
}

func (t *AddOwnerTool) Execute(ctx context.Context, input string) (string, error) {
	var req domain.OwnerRequest
	if err := json.Unmarshal([]byte(input), &req); err != nil {
		return "", fmt.Errorf("decoding owner request: %w", err)
	}

	owner, err := t.records.CreateOwner(ctx, req)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(map[string]any{"owner": owner}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
