package tools

import (
	"github.com/petclinic/genai-service/internal/agent"
	"github.com/petclinic/genai-service/internal/petclinic"
	"github.com/petclinic/genai-service/internal/vectorstore"
)

// RegisterAll wires every clinic tool into the registry.
func RegisterAll(registry *agent.ToolRegistry, records *petclinic.Client, index *vectorstore.Store) error {
	all := []agent.Tool{
		NewListOwnersTool(records),
		NewAddOwnerTool(records),
		NewListVetsTool(index),
		NewAddPetTool(records),
	}
	for _, t := range all {
		if err := registry.Register(t); err != nil {
			return err
		}
	}
	return nil
}
