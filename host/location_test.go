package host

import (
	"github.com/stretchr/testify/assert"
	"math"
	"testing"
)

func TestLocationDistance(t *testing.T) {
	a := Location{World: "w", X: 0, Y: 64, Z: 0}
	b := Location{World: "w", X: 3, Y: 64, Z: 4}
	assert.InDelta(t, 5, a.Distance(b), 1e-9)
	assert.True(t, math.IsInf(a.Distance(b.In("other")), 1), "different worlds should be infinitely far")
}

func TestLocationIn(t *testing.T) {
	template := Location{X: 1, Y: 2, Z: 3}
	inWorld := template.In("match-1")
	assert.Equal(t, WorldHandle("match-1"), inWorld.World)
	assert.Equal(t, WorldHandle(""), template.World, "should not modify original")
}

func TestParseResourceType(t *testing.T) {
	tests := []struct {
		in     string
		want   ResourceType
		wantOK bool
	}{
		{in: "iron", want: ResourceIron, wantOK: true},
		{in: " Emerald ", want: ResourceEmerald, wantOK: true},
		{in: "DIAMOND", want: ResourceDiamond, wantOK: true},
		{in: "copper", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseResourceType(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
