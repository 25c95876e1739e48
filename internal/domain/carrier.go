package domain

import "time"

// CarrierProfile holds a carrier account's identity and operating parameters.
// Lanes are "REGION-REGION" descriptors, e.g. "NJ-PA".
type CarrierProfile struct {
	ID          string `json:"id" db:"id"`
	AccountID   string `json:"account_id" db:"account_id"`
	Name        string `json:"name" db:"name"`
	DOTNumber   string `json:"dot_number" db:"dot_number"`
	HomeState   string `json:"home_state" db:"home_state"`
	FleetSize   int    `json:"fleet_size" db:"fleet_size"`
	ContactFrom string `json:"contact_from" db:"contact_from"`

	EquipmentTypes  []string `json:"equipment_types" db:"equipment_types"`
	PreferredLanes  []string `json:"preferred_lanes" db:"preferred_lanes"`
	PreferredStates []string `json:"preferred_states" db:"preferred_states"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
