package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRoleTier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    RoleTier
		wantErr bool
	}{
		{name: "super admin", input: "super-admin", want: RoleTierSuperAdmin},
		{name: "admin", input: "admin", want: RoleTierAdmin},
		{name: "read write", input: "read-write", want: RoleTierReadWrite},
		{name: "read only", input: "read-only", want: RoleTierReadOnly},
		{name: "unknown role rejected", input: "owner", wantErr: true},
		{name: "empty rejected", input: "", wantErr: true},
		{name: "case sensitive", input: "Admin", wantErr: true},
		{name: "platform role is not a tier", input: "platform-admin", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRoleTier(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAllRoleTiersOrder(t *testing.T) {
	assert.Equal(t, []RoleTier{
		RoleTierSuperAdmin,
		RoleTierAdmin,
		RoleTierReadWrite,
		RoleTierReadOnly,
	}, AllRoleTiers)
}
