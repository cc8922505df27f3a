package dto

import (
	"time"

	"majifix/internal/core/apperror"
	"majifix/internal/core/id"
	"majifix/internal/core/locale"
	"majifix/internal/domain/reference"
	"majifix/internal/domain/service"
)

// --- Responses ---

// ReferenceResponse is the embedded form of a populated reference.
type ReferenceResponse struct {
	ID    string           `json:"id"`
	Code  string           `json:"code"`
	Name  locale.Localized `json:"name"`
	Color string           `json:"color"`
}

func fromProjection(p *reference.Projection) *ReferenceResponse {
	if p == nil {
		return nil
	}
	return &ReferenceResponse{
		ID:    p.ID.String(),
		Code:  p.Code,
		Name:  p.Name,
		Color: p.Color,
	}
}

// ServiceResponse contains the full service representation.
type ServiceResponse struct {
	ID           string             `json:"id"`
	Jurisdiction *ReferenceResponse `json:"jurisdiction,omitempty"`
	Group        *ReferenceResponse `json:"group,omitempty"`
	Type         *ReferenceResponse `json:"type,omitempty"`
	Priority     *ReferenceResponse `json:"priority,omitempty"`
	Code         string             `json:"code"`
	Name         locale.Localized   `json:"name"`
	Description  locale.Localized   `json:"description,omitempty"`
	Color        string             `json:"color"`
	Sla          service.Sla        `json:"sla"`
	Flags        service.Flags      `json:"flags"`
	Default      bool               `json:"default"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
	DeletedAt    *time.Time         `json:"deletedAt,omitempty"`
}

// FromService creates a ServiceResponse from the entity.
func FromService(s *service.Service) ServiceResponse {
	return ServiceResponse{
		ID:           s.ID.String(),
		Jurisdiction: fromProjection(s.Jurisdiction),
		Group:        fromProjection(s.Group),
		Type:         fromProjection(s.Type),
		Priority:     fromProjection(s.Priority),
		Code:         s.Code,
		Name:         s.Name,
		Description:  s.Description,
		Color:        s.Color,
		Sla:          s.Sla,
		Flags:        s.Flags,
		Default:      s.Default,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		DeletedAt:    s.DeletedAt,
	}
}

// FromServices maps a page of entities.
func FromServices(items []*service.Service) []ServiceResponse {
	out := make([]ServiceResponse, 0, len(items))
	for _, s := range items {
		out = append(out, FromService(s))
	}
	return out
}

// LastModifiedOf returns the latest update timestamp in the page, nil for an
// empty page.
func LastModifiedOf(items []*service.Service) *time.Time {
	var latest *time.Time
	for _, s := range items {
		t := s.UpdatedAt
		if latest == nil || t.After(*latest) {
			latest = &t
		}
	}
	return latest
}

// --- Requests ---

// ServiceRequest carries a create or patch payload. All fields are optional
// at the transport level; domain validation decides what a complete service
// needs after derivation.
type ServiceRequest struct {
	Jurisdiction *string          `json:"jurisdiction"`
	Group        *string          `json:"group"`
	Type         *string          `json:"type"`
	Priority     *string          `json:"priority"`
	Code         *string          `json:"code"`
	Name         locale.Localized `json:"name"`
	Description  locale.Localized `json:"description"`
	Color        *string          `json:"color"`
	Sla          *service.Sla     `json:"sla"`
	Flags        *service.Flags   `json:"flags"`
	Default      *bool            `json:"default"`
}

func parseRef(field string, value *string) (*id.ID, bool, error) {
	if value == nil {
		return nil, false, nil
	}
	if *value == "" {
		// Explicit empty string clears the reference
		return nil, true, nil
	}
	refID, err := id.Parse(*value)
	if err != nil {
		return nil, false, apperror.NewValidation("invalid " + field + " id").
			WithDetail(field, *value)
	}
	return &refID, true, nil
}

// ApplyTo copies the supplied fields onto the entity. Absent fields are left
// untouched, which gives PATCH semantics; ToEntity uses the same path for
// creates.
func (r *ServiceRequest) ApplyTo(s *service.Service) error {
	if refID, set, err := parseRef("jurisdiction", r.Jurisdiction); err != nil {
		return err
	} else if set {
		s.JurisdictionID = refID
	}
	if refID, set, err := parseRef("group", r.Group); err != nil {
		return err
	} else if set {
		s.GroupID = refID
	}
	if refID, set, err := parseRef("type", r.Type); err != nil {
		return err
	} else if set {
		s.TypeID = refID
	}
	if refID, set, err := parseRef("priority", r.Priority); err != nil {
		return err
	} else if set {
		s.PriorityID = refID
	}

	if r.Code != nil {
		s.Code = *r.Code
	}
	if r.Name != nil {
		s.Name = r.Name
	}
	if r.Description != nil {
		s.Description = r.Description
	}
	if r.Color != nil {
		s.Color = *r.Color
	}
	if r.Sla != nil {
		s.Sla = *r.Sla
	}
	if r.Flags != nil {
		s.Flags = *r.Flags
	}
	if r.Default != nil {
		s.Default = *r.Default
	}

	return nil
}

// ToEntity builds a new entity from a create payload.
func (r *ServiceRequest) ToEntity() (*service.Service, error) {
	s := service.New()
	if err := r.ApplyTo(s); err != nil {
		return nil, err
	}
	return s, nil
}
