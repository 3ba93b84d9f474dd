package fowls

import "time"

// Breed define las razas soportadas en el marketplace.
// @Enum aseel, kadaknath, brahma, leghorn, rhode_island_red, country, other
type Breed string

const (
	BreedAseel          Breed = "aseel"
	BreedKadaknath      Breed = "kadaknath"
	BreedBrahma         Breed = "brahma"
	BreedLeghorn        Breed = "leghorn"
	BreedRhodeIslandRed Breed = "rhode_island_red"
	BreedCountry        Breed = "country"
	BreedOther          Breed = "other"
)

// Gender define el sexo del ave.
// @Enum male, female, unknown
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

// Status define el estado de un fowl dentro de la plataforma.
// Un fowl nunca se borra: el linaje puede referenciarlo.
type Status string

const (
	StatusActive   Status = "active"
	StatusSold     Status = "sold"
	StatusDeceased Status = "deceased"
)

// Fowl representa el ave trazable registrada en el sistema.
// ParentMaleID / ParentFemaleID forman el grafo de linaje (0 o 1 cada uno).
type Fowl struct {
	ID          string
	OwnerUserID string

	Breed  Breed
	Gender Gender

	DateOfBirth *time.Time

	ParentMaleID   string // vacío = desconocido
	ParentFemaleID string // vacío = desconocido

	Status    Status
	Traceable bool

	Notes string

	CreatedAt time.Time
	UpdatedAt time.Time
}
