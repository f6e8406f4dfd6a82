package dto

import "time"

// SubmitHousepartyRequest is a new listing. AuthorUID is filled by the handler.
type SubmitHousepartyRequest struct {
	AuthorUID string    `json:"-"`
	Title     string    `json:"title" validate:"required,max=200"`
	Address   string    `json:"address,omitempty" validate:"max=500"`
	Notes     string    `json:"notes,omitempty" validate:"max=2000"`
	Kind      string    `json:"kind,omitempty" validate:"omitempty,oneof=pres afters all-night"`
	Lat       float64   `json:"lat" validate:"latitude"`
	Lng       float64   `json:"lng" validate:"longitude"`
	StartsAt  time.Time `json:"starts_at" validate:"required"`
	EndsAt    time.Time `json:"ends_at" validate:"required"`
}

// HousepartyItem is a listing as shown to clients
type HousepartyItem struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Address     string     `json:"address,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	Kind        string     `json:"kind"`
	Lat         float64    `json:"lat"`
	Lng         float64    `json:"lng"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      time.Time  `json:"ends_at"`
	Night       string     `json:"night"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	AuthorUID   string     `json:"author_uid,omitempty"`
	HiddenAt    *time.Time `json:"hidden_at,omitempty"`
	ModeratedAt *time.Time `json:"moderated_at,omitempty"`
	ModeratedBy *string    `json:"moderated_by,omitempty"`
}

// SubmitHousepartyResponse reports the gate decision
type SubmitHousepartyResponse struct {
	Message    string         `json:"message"`
	Houseparty HousepartyItem `json:"houseparty"`
}

// ListHousepartiesRequest selects public listings
type ListHousepartiesRequest struct {
	Range string `query:"range" json:"range" validate:"omitempty,oneof=tonight recent"`
}

// ListHousepartiesResponse carries listings
type ListHousepartiesResponse struct {
	Range        string           `json:"range"`
	Nights       []string         `json:"nights"`
	Houseparties []HousepartyItem `json:"houseparties"`
}

// AdminListHousepartiesRequest selects the moderation queue
type AdminListHousepartiesRequest struct {
	Status string `query:"status" json:"status" validate:"omitempty,oneof=pending active rejected hidden"`
	Night  string `query:"night" json:"night" validate:"omitempty,night_key"`
	Limit  int    `query:"limit" json:"limit" validate:"omitempty,min=1,max=500"`
}

// ModerateHousepartyRequest applies a moderation action
type ModerateHousepartyRequest struct {
	ID         string `json:"-"`
	Action     string `json:"action" validate:"required,oneof=approve reject hide"`
	AdminUID   string `json:"-"`
	AdminEmail string `json:"-"`
}

// ModerateHousepartyResponse returns the updated listing
type ModerateHousepartyResponse struct {
	Message    string         `json:"message"`
	Houseparty HousepartyItem `json:"houseparty"`
}
