package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Copper Ingot", "copper_ingot"},
		{"punctuation collapses", "Iron -- Plate (Heavy)", "iron_plate_heavy"},
		{"leading and trailing separators dropped", "  Steam!  ", "steam"},
		{"diacritics folded", "Über Légierung", "uber_legierung"},
		{"digits kept", "Tier 2 Circuit", "tier_2_circuit"},
		{"already a slug", "iron_ore", "iron_ore"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.in))
		})
	}
}

func TestSlug_FallsBackToUUID(t *testing.T) {
	for _, in := range []string{"", "!!!", "   "} {
		id := Slug(in)
		parsed, err := uuid.Parse(id)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, uuid.Version(7), parsed.Version())
	}
}
