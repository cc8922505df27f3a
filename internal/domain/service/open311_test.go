package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"majifix/internal/core/entity"
	"majifix/internal/core/id"
	"majifix/internal/core/locale"
	"majifix/internal/domain/reference"
	"majifix/internal/domain/service"
)

func TestToOpen311(t *testing.T) {
	s := &service.Service{
		Base: entity.NewBase(),
		Code: "RW",
		Name: locale.Localized{"en": "Rowe", "sw": "Gana"},
		Description: locale.Localized{
			"en": "Report a problem",
			"sw": "Ripoti tatizo",
		},
		Group: &reference.Projection{
			ID:   id.New(),
			Code: "WS",
			Name: locale.Localized{"en": "Water Supply", "sw": "Maji"},
		},
	}

	o := s.ToOpen311("en")

	assert.Equal(t, "RW", o["service_code"])
	assert.Equal(t, "Rowe", o["service_name"])
	assert.Equal(t, "Gana", o["service_name_sw"])
	assert.Equal(t, "Report a problem", o["description"])
	assert.Equal(t, "Ripoti tatizo", o["description_sw"])
	assert.Equal(t, "Water Supply", o["group"])
	assert.Equal(t, "Maji", o["group_sw"])
	assert.Equal(t, false, o["metadata"])
	assert.Equal(t, "realtime", o["type"])

	// Service name values first, then group values, deduplicated
	assert.Equal(t, "Rowe,Gana,Water Supply,Maji", o["keywords"])
}

func TestToOpen311_SparseService(t *testing.T) {
	s := &service.Service{
		Base: entity.NewBase(),
		Code: "OTH",
		Name: locale.Localized{"en": "Other"},
	}

	o := s.ToOpen311("en")

	assert.Equal(t, "Other", o["service_name"])
	assert.Equal(t, "Other", o["keywords"])

	// No group and no extra locales: the suffixed keys are absent entirely
	require.NotContains(t, o, "group")
	require.NotContains(t, o, "service_name_sw")
	require.NotContains(t, o, "description")
}

func TestToOpen311_DeduplicatesKeywords(t *testing.T) {
	s := &service.Service{
		Base: entity.NewBase(),
		Code: "OTH",
		Name: locale.Localized{"en": "Other"},
		Group: &reference.Projection{
			ID:   id.New(),
			Code: "OT",
			Name: locale.Localized{"en": "Other"},
		},
	}

	o := s.ToOpen311("en")
	assert.Equal(t, "Other", o["keywords"])
}
