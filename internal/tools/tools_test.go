package tools

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petclinic/genai-service/internal/agent"
	"github.com/petclinic/genai-service/internal/config"
	"github.com/petclinic/genai-service/internal/domain"
	"github.com/petclinic/genai-service/internal/llm"
	"github.com/petclinic/genai-service/internal/logging"
	"github.com/petclinic/genai-service/internal/petclinic"
	"github.com/petclinic/genai-service/internal/store"
	"github.com/petclinic/genai-service/internal/vectorstore"
)

func testLogger() *logging.Logger {
	return logging.New(io.Discard, "silent", "json")
}

func recordsClient(t *testing.T, handler http.Handler) *petclinic.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return petclinic.NewClient(config.ServicesConfig{
		CustomersURL:   srv.URL,
		VetsURL:        srv.URL,
		TimeoutSeconds: 5,
	}, testLogger())
}

func vetIndex(t *testing.T, vets []domain.Vet) *vectorstore.Store {
	t.Helper()
	log := testLogger()
	db, err := store.Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	idx := vectorstore.New(db, &llm.MockEmbedder{Dim: 8}, "", log)
	if len(vets) > 0 {
		require.NoError(t, idx.PopulateOnStartup(context.Background(), func(ctx context.Context) ([]domain.Vet, error) {
			return vets, nil
		}))
	}
	return idx
}

func TestListOwnersTool(t *testing.T) {
	records := recordsClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]domain.Owner{
			{ID: 1, FirstName: "George", LastName: "Franklin"},
		})
	}))

	out, err := NewListOwnersTool(records).Execute(context.Background(), "{}")
	require.NoError(t, err)

	var payload struct {
		Owners []domain.Owner `json:"owners"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	require.Len(t, payload.Owners, 1)
	assert.Equal(t, "Franklin", payload.Owners[0].LastName)
}

func TestListOwnersToolEmpty(t *testing.T) {
	records := recordsClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]domain.Owner{})
	}))

	out, err := NewListOwnersTool(records).Execute(context.Background(), "{}")
	require.NoError(t, err)
	assert.JSONEq(t, `{"owners": []}`, out)
}

func TestAddOwnerTool(t *testing.T) {
	records := recordsClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req domain.OwnerRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(domain.Owner{
			ID: 7, FirstName: req.FirstName, LastName: req.LastName,
			Address: req.Address, City: req.City, Telephone: req.Telephone,
		})
	}))

	out, err := NewAddOwnerTool(records).Execute(context.Background(),
		`{"firstName":"Jean","lastName":"Coleman","address":"105 N. Lake St.","city":"Monona","telephone":"6085552654"}`)
	require.NoError(t, err)

	var payload struct {
		Owner domain.Owner `json:"owner"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, 7, payload.Owner.ID)
	assert.Equal(t, "Coleman", payload.Owner.LastName)
}

func TestAddOwnerToolSchemaRejectsBadTelephone(t *testing.T) {
	registry := agent.NewToolRegistry(testLogger())
	records := recordsClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("downstream must not be called for invalid input")
	}))
	require.NoError(t, registry.Register(NewAddOwnerTool(records)))

	out := registry.Execute(context.Background(), "add_owner_to_petclinic",
		`{"firstName":"Jean","lastName":"Coleman","address":"105 N. Lake St.","city":"Monona","telephone":"555-1234"}`)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Contains(t, payload, "error")
}

func TestAddPetTool(t *testing.T) {
	records := recordsClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/owners/5/pets", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(domain.Pet{
			ID: 21, Name: "Basil", BirthDate: "2022-08-06",
			Type: domain.PetType{ID: 6, Name: "hamster"},
		})
	}))

	out, err := NewAddPetTool(records).Execute(context.Background(),
		`{"ownerId":5,"petName":"Basil","birthDate":"2022-08-06","petTypeId":6}`)
	require.NoError(t, err)

	var payload struct {
		Pet domain.Pet `json:"pet"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, "hamster", payload.Pet.Type.Name)
}

func TestAddPetToolRejectsUnknownType(t *testing.T) {
	records := recordsClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("downstream must not be called for an invalid pet type")
	}))

	_, err := NewAddPetTool(records).Execute(context.Background(),
		`{"ownerId":5,"petName":"Basil","birthDate":"2022-08-06","petTypeId":9}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid pet type ID")
}

func TestListVetsToolWithQuery(t *testing.T) {
	idx := vetIndex(t, []domain.Vet{
		{ID: 1, FirstName: "James", LastName: "Carter"},
		{ID: 2, FirstName: "Helen", LastName: "Leary", Specialties: []domain.Specialty{{ID: 1, Name: "radiology"}}},
	})

	out, err := NewListVetsTool(idx).Execute(context.Background(), `{"query":"radiology"}`)
	require.NoError(t, err)

	var payload struct {
		Vets []string `json:"vets"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Len(t, payload.Vets, 2)
	assert.Contains(t, payload.Vets[0], "lastName")
}

func TestListVetsToolNoQueryUsesFallback(t *testing.T) {
	idx := vetIndex(t, []domain.Vet{
		{ID: 1, FirstName: "James", LastName: "Carter"},
	})

	out, err := NewListVetsTool(idx).Execute(context.Background(), `{}`)
	require.NoError(t, err)

	var payload struct {
		Vets []string `json:"vets"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Len(t, payload.Vets, 1)
}

func TestListVetsToolEmptyIndex(t *testing.T) {
	idx := vetIndex(t, nil)

	out, err := NewListVetsTool(idx).Execute(context.Background(), `{"query":"surgery"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"vets": []}`, out)
}

func TestRegisterAll(t *testing.T) {
	registry := agent.NewToolRegistry(testLogger())
	records := recordsClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	idx := vetIndex(t, nil)

	require.NoError(t, RegisterAll(registry, records, idx))

	defs := registry.Definitions()
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"list_owners", "add_owner_to_petclinic", "list_vets", "add_pet_to_owner"}, names)
}
