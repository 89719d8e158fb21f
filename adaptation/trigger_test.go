package adaptation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrigger_DefaultSequence(t *testing.T) {
	trigger := DefaultTrigger()

	var fired []int64
	for count := int64(0); count <= 14; count++ {
		if trigger.Fires(count) {
			fired = append(fired, count)
		}
	}
	assert.Equal(t, []int64{5, 8, 11, 14}, fired)
}

func TestTrigger_Variants(t *testing.T) {
	tests := []struct {
		name    string
		trigger Trigger
		count   int64
		want    bool
	}{
		{name: "first only", trigger: Trigger{First: 2}, count: 2, want: true},
		{name: "first only later", trigger: Trigger{First: 2}, count: 4, want: false},
		{name: "every one", trigger: Trigger{First: 1, Every: 1}, count: 9, want: true},
		{name: "disabled", trigger: Trigger{}, count: 5, want: false},
		{name: "before first", trigger: Trigger{First: 5, Every: 3}, count: 2, want: false},
		{name: "far milestone", trigger: Trigger{First: 5, Every: 3}, count: 302, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.trigger.Fires(tt.count))
		})
	}
}
