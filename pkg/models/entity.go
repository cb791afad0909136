package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// EntityType is the kind of real-world subject documents can be attributed to.
type EntityType string

const (
	EntityPerson   EntityType = "person"
	EntityVehicle  EntityType = "vehicle"
	EntityPet      EntityType = "pet"
	EntityProperty EntityType = "property"
	EntityBusiness EntityType = "business"
	EntityGroup    EntityType = "group"
)

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	switch t {
	case EntityPerson, EntityVehicle, EntityPet, EntityProperty, EntityBusiness, EntityGroup:
		return true
	}
	return false
}

// Entity is a person, vehicle, pet, property, business or group. Entities are
// deactivated, never deleted.
type Entity struct {
	ID         string         `json:"id" gorm:"primaryKey;size:36"`
	EntityType EntityType     `json:"entity_type" gorm:"size:32;index;not null"`
	Name       string         `json:"entity_name" gorm:"not null"`
	Identifier string         `json:"entity_identifier,omitempty"`
	Metadata   datatypes.JSON `json:"entity_metadata,omitempty"`
	OwnerID    *string        `json:"owner_id,omitempty" gorm:"size:36;index"`
	Owner      *Entity        `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	IsActive   bool           `json:"is_active" gorm:"index;not null"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// EntityMetadata is implemented by the per-type metadata shapes.
type EntityMetadata interface {
	EntityType() EntityType
}

// PersonDetails is metadata for a person.
type PersonDetails struct {
	DateOfBirth  string `json:"date_of_birth,omitempty"`
	Relationship string `json:"relationship,omitempty"`
}

func (*PersonDetails) EntityType() EntityType { return EntityPerson }

// VehicleDetails is metadata for a vehicle.
type VehicleDetails struct {
	Make         string `json:"make,omitempty"`
	Model        string `json:"model,omitempty"`
	Year         int    `json:"year,omitempty"`
	Registration string `json:"registration,omitempty"`
}

func (*VehicleDetails) EntityType() EntityType { return EntityVehicle }

// PetDetails is metadata for a pet.
type PetDetails struct {
	Species     string `json:"species,omitempty"`
	Breed       string `json:"breed,omitempty"`
	MicrochipID string `json:"microchip_id,omitempty"`
}

func (*PetDetails) EntityType() EntityType { return EntityPet }

// PropertyDetails is metadata for a property.
type PropertyDetails struct {
	Address string `json:"address,omitempty"`
	Eircode string `json:"eircode,omitempty"`
	Tenure  string `json:"tenure,omitempty"`
}

func (*PropertyDetails) EntityType() EntityType { return EntityProperty }

// BusinessDetails is metadata for a business.
type BusinessDetails struct {
	RegistrationNumber string `json:"registration_number,omitempty"`
	VATNumber          string `json:"vat_number,omitempty"`
}

func (*BusinessDetails) EntityType() EntityType { return EntityBusiness }

// GroupDetails is metadata for a group such as a household.
type GroupDetails struct {
	Members []string `json:"members,omitempty"`
}

func (*GroupDetails) EntityType() EntityType { return EntityGroup }

// NewEntityMetadata returns an empty metadata value for t.
func NewEntityMetadata(t EntityType) (EntityMetadata, error) {
	switch t {
	case EntityPerson:
		return &PersonDetails{}, nil
	case EntityVehicle:
		return &VehicleDetails{}, nil
	case EntityPet:
		return &PetDetails{}, nil
	case EntityProperty:
		return &PropertyDetails{}, nil
	case EntityBusiness:
		return &BusinessDetails{}, nil
	case EntityGroup:
		return &GroupDetails{}, nil
	}
	return nil, fmt.Errorf("unknown entity type %q", t)
}

// SetMetadata serializes m into the metadata column.
func (e *Entity) SetMetadata(m EntityMetadata) error {
	if m.EntityType() != e.EntityType {
		return fmt.Errorf("metadata for %s on %s entity", m.EntityType(), e.EntityType)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal entity metadata: %w", err)
	}
	e.Metadata = datatypes.JSON(data)
	return nil
}

// DecodeMetadata returns the typed metadata for the entity's type.
func (e *Entity) DecodeMetadata() (EntityMetadata, error) {
	m, err := NewEntityMetadata(e.EntityType)
	if err != nil {
		return nil, err
	}
	if len(e.Metadata) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(e.Metadata, m); err != nil {
		return nil, fmt.Errorf("failed to decode %s metadata: %w", e.EntityType, err)
	}
	return m, nil
}
