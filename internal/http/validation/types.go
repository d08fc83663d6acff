package validation

import "github.com/sifan077/QRHub/internal/app/model"

// LoginRequest is the payload for POST /api/auth/login.
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// CreateMappingRequest is the payload for POST /api/mappings.
type CreateMappingRequest struct {
	URL            string  `json:"url" validate:"required"`
	ExpiryDays     float64 `json:"expiryDays" validate:"min=0,max=36500"`
	IsPresentation bool    `json:"isPresentation"`
	// Payloads are opaque JSON of any shape.
	PresentationData any    `json:"presentationData,omitempty"`
	CustomData       any    `json:"customData,omitempty"`
	CustomID         string `json:"customId,omitempty" validate:"omitempty,shortid"`
}

// UpdateMappingRequest is the payload for PUT /api/mappings/:id. Absent
// fields keep their stored value; an explicit null clears it.
type UpdateMappingRequest struct {
	URL              model.Optional[string]   `json:"url"`
	ExpiryDays       model.Optional[*float64] `json:"expiryDays"`
	IsPresentation   model.Optional[bool]     `json:"isPresentation"`
	PresentationData model.Optional[any]      `json:"presentationData"`
	CustomData       model.Optional[any]      `json:"customData"`
}
