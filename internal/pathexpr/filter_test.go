package pathexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGlobMatch(t *testing.T) {
	tests := []struct {
		pattern string
		s       string
		want    bool
	}{
		{"user.password", "user.password", true},
		{"user.password", "user.passwords", false},
		{"user.*", "user.address.zip", true},
		{"*.secret", "a.b.secret", true},
		{"*", "", true},
		{"a.b", "aXb", false},
		{"price(usd)", "price(usd)", true},
		{"tmp_*_x", "tmp_1_x", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, GlobMatch(tt.pattern, tt.s), "%s ~ %s", tt.pattern, tt.s)
	}
}

func TestFilter(t *testing.T) {
	f := NewFilter(nil, nil)
	assert.True(t, f.Empty())
	assert.True(t, f.Allows("anything"))

	f = NewFilter([]string{"user.name", "user.email"}, []string{"user.email"})
	assert.False(t, f.Empty())
	assert.True(t, f.Allows("user.name"))
	assert.False(t, f.Allows("user.email"), "exclusion wins over inclusion")
	assert.False(t, f.Allows("user.age"), "not included")

	f = NewFilter(nil, []string{"*password*"})
	assert.True(t, f.Excluded("user.password"))
	assert.True(t, f.Allows("user.name"))

	// Any of the given paths may satisfy the filter.
	f = NewFilter([]string{"zip"}, nil)
	assert.True(t, f.Allows("addr.zip", "zip"))
	assert.False(t, f.Allows("addr.zip"))
}
