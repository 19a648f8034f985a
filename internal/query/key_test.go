package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		raw  string
		want Key
	}{
		{"name", Key{Table: "user", Field: "name"}},
		{"fuzzy.name", Key{Op: "fuzzy", Table: "user", Field: "name"}},
		{"role__role_name", Key{Table: "role", Field: "role_name", Foreign: true}},
		{"neq.role__role_name", Key{Op: "neq", Table: "role", Field: "role_name", Foreign: true}},
		{"user__name", Key{Table: "user", Field: "name"}},
		{"role__role__name", Key{Table: "role", Field: "role__name", Foreign: true}},
		{".name", Key{Table: "user", Field: ".name"}},
		{"fuzzy.", Key{Table: "user", Field: "fuzzy."}},
		{"__name", Key{Table: "user", Field: "__name"}},
		{"role__", Key{Table: "user", Field: "role__"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseKey(tt.raw, "user"))
		})
	}
}

func TestKeyOutput(t *testing.T) {
	assert.Equal(t, "name", ParseKey("cap.name", "user").Output())
	assert.Equal(t, "role__role_name", ParseKey("cap.role__role_name", "user").Output())
	assert.Equal(t, "role.role_name", ParseKey("role__role_name", "user").Qualified())
}

func TestKeyValidate(t *testing.T) {
	assert.NoError(t, ParseKey("role__role_name", "user").validate())
	assert.Error(t, ParseKey("bad-name", "user").validate())
	assert.Error(t, ParseKey("a.b.c", "user").validate())
	assert.Error(t, ParseKey("name;drop", "user").validate())
}
