package domain

// Value records mirroring the downstream customers-service and vets-service
// resources. These are transient DTOs: decoded from downstream responses and
// serialized into tool results, never cached here.

// PetType classifies a pet (cat, dog, ...).
type PetType struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Pet belongs to an Owner.
type Pet struct {
	ID        int     `json:"id,omitempty"`
	Name      string  `json:"name"`
	BirthDate string  `json:"birthDate"`
	Type      PetType `json:"type"`
}

// Owner is a pet owner registered with the clinic.
type Owner struct {
	ID        int    `json:"id,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Telephone string `json:"telephone"`
	Pets      []Pet  `json:"pets,omitempty"`
}

// Specialty is a veterinary discipline (radiology, surgery, ...).
type Specialty struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Vet is a veterinarian employed by the clinic.
type Vet struct {
	ID          int         `json:"id,omitempty"`
	FirstName   string      `json:"firstName,omitempty"`
	LastName    string      `json:"lastName,omitempty"`
	Specialties []Specialty `json:"specialties,omitempty"`
}

// OwnerRequest is the payload for creating an owner.
type OwnerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Telephone string `json:"telephone"`
}

// PetRequest is the payload for adding a pet to an owner.
type PetRequest struct {
	Name      string `json:"name"`
	BirthDate string `json:"birthDate"`
	TypeID    int    `json:"typeId"`
}
