package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/petclinic/genai-service/internal/domain"
	"github.com/petclinic/genai-service/internal/petclinic"
)

// petTypes maps the downstream pet type IDs to their names.
var petTypes = map[int]string{
	1: "cat",
	2: "dog",
	3: "lizard",
	4: "snake",
	5: "bird",
	6: "hamster",
}

// AddPetTool adds a pet to an existing owner.
type AddPetTool struct {
	records *petclinic.Client
}

// NewAddPetTool creates the add_pet_to_owner tool.
func NewAddPetTool(records *petclinic.Client) *AddPetTool {
	return &AddPetTool{records: records}
}

func (t *AddPetTool) Name() string { return "add_pet_to_owner" }

func (t *AddPetTool) Description() string {
	return "Add a pet with the specified petTypeId to an owner identified by ownerId. " +
		"The allowed pet type IDs are: 1: cat, 2: dog, 3: lizard, 4: snake, 5: bird, 6: hamster."
}

func (t *AddPetTool) InputSchema() string {
	return `{
		"type": "object",
		"properties": {
			"ownerId": {"type": "integer", "description": "ID of the owner to add the pet to"},
			"petName": {"type": "string", "description": "Name of the pet"},
			"birthDate": {"type": "string", "description": "Birth date of the pet in format YYYY-MM-DD"},
			"petTypeId": {"type": "integer", "description": "Pet type ID (1-6)"}
		},
		"required": ["ownerId", "petName", "birthDate", "petTypeId"],
		"additionalProperties": false
	}`
}

func (t *AddPetTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		OwnerID   int    `json:"ownerId"`
		PetName   string `json:"petName"`
		BirthDate string `json:"birthDate"`
		PetTypeID int    `json:"petTypeId"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("decoding pet request: %w", err)
	}

	// Reject unknown pet types before touching the network.
	if _, ok := petTypes[args.PetTypeID]; !ok {
		return "", errors.New("Invalid pet type ID. Must be 1-6 (cat, dog, lizard, snake, bird, hamster)")
	}

	pet, err := t.records.CreatePet(ctx, args.OwnerID, domain.PetRequest{
		Name:      args.PetName,
		BirthDate: args.BirthDate,
		TypeID:    args.PetTypeID,
	})
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(map[string]any{"pet": pet}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
