// Package petclinic is the HTTP client for the downstream clinic record
// services: customers-service (owners and pets) and vets-service
// (veterinarians). All calls are synchronous and bounded by the configured
// request timeout.
package petclinic

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/petclinic/genai-service/internal/config"
	"github.com/petclinic/genai-service/internal/domain"
	"github.com/petclinic/genai-service/internal/logging"
)

// StatusError is returned when a downstream service answers with a
// non-success status.
type StatusError struct {
	Service string
	Status  int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Service, e.Status, e.Body)
}

// Client talks to the customers-service and vets-service REST APIs.
type Client struct {
	customersURL string
	vetsURL      string
	http         *resty.Client
	log          *logging.Logger
}

// NewClient builds a record-service client from configuration.
func NewClient(cfg config.ServicesConfig, log *logging.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	http := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		customersURL: cfg.CustomersURL,
		vetsURL:      cfg.VetsURL,
		http:         http,
		log:          log.Sub("petclinic"),
	}
}

// ListOwners fetches all owners, with their pets, from customers-service.
func (c *Client) ListOwners(ctx context.Context) ([]domain.Owner, error) {
	var owners []domain.Owner
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&owners).
		Get(c.customersURL + "/owners")
	if err != nil {
		c.log.Error().Err(err).Msg("failed to fetch owners")
		return nil, fmt.Errorf("fetch owners: %w", err)
	}
	if resp.IsError() {
		return nil, &StatusError{Service: "customers-service", Status: resp.StatusCode(), Body: string(resp.Body())}
	}
	c.log.Debug().Int("count", len(owners)).Msg("fetched owners")
	return owners, nil
}

// CreateOwner registers a new owner with customers-service and returns the
// created record.
func (c *Client) CreateOwner(ctx context.Context, req domain.OwnerRequest) (*domain.Owner, error) {
	var owner domain.Owner
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&owner).
		Post(c.customersURL + "/owners")
	if err != nil {
		c.log.Error().Err(err).Msg("failed to create owner")
		return nil, fmt.Errorf("create owner: %w", err)
	}
	if resp.IsError() {
		return nil, &StatusError{Service: "customers-service", Status: resp.StatusCode(), Body: string(resp.Body())}
	}
	c.log.Info().Int("ownerId", owner.ID).Str("lastName", owner.LastName).Msg("created owner")
	return &owner, nil
}

// CreatePet adds a pet to an existing owner. The downstream API takes the
// pet type as a nested object, not a bare ID.
func (c *Client) CreatePet(ctx context.Context, ownerID int, req domain.PetRequest) (*domain.Pet, error) {
	body := map[string]any{
		"name":      req.Name,
		"birthDate": req.BirthDate,
		"type":      map[string]any{"id": req.TypeID},
	}

	var pet domain.Pet
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&pet).
		Post(fmt.Sprintf("%s/owners/%d/pets", c.customersURL, ownerID))
	if err != nil {
		c.log.Error().Err(err).Int("ownerId", ownerID).Msg("failed to create pet")
		return nil, fmt.Errorf("create pet for owner %d: %w", ownerID, err)
	}
	if resp.IsError() {
		return nil, &StatusError{Service: "customers-service", Status: resp.StatusCode(), Body: string(resp.Body())}
	}
	c.log.Info().Int("ownerId", ownerID).Str("name", pet.Name).Msg("created pet")
	return &pet, nil
}

// ListVets fetches all veterinarians from vets-service.
func (c *Client) ListVets(ctx context.Context) ([]domain.Vet, error) {
	var vets []domain.Vet
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&vets).
		Get(c.vetsURL + "/vets")
	if err != nil {
		c.log.Error().Err(err).Msg("failed to fetch vets")
		return nil, fmt.Errorf("fetch vets: %w", err)
	}
	if resp.IsError() {
		return nil, &StatusError{Service: "vets-service", Status: resp.StatusCode(), Body: string(resp.Body())}
	}
	c.log.Debug().Int("count", len(vets)).Msg("fetched vets")
	return vets, nil
}
