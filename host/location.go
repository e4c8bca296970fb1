package host

import (
	"fmt"
	"math"
	"strings"
)

// Location is a position in a world. Map definitions use locations without a
// world which are converted into match world coordinates via In.
type Location struct {
	World WorldHandle `json:"world,omitempty" yaml:"world,omitempty"`
	X     float64     `json:"x" yaml:"x"`
	Y     float64     `json:"y" yaml:"y"`
	Z     float64     `json:"z" yaml:"z"`
	Yaw   float64     `json:"yaw,omitempty" yaml:"yaw,omitempty"`
	Pitch float64     `json:"pitch,omitempty" yaml:"pitch,omitempty"`
}

// In returns the location in the given world.
func (l Location) In(world WorldHandle) Location {
	l.World = world
	return l
}

// Add returns the location moved by the given offset.
func (l Location) Add(x, y, z float64) Location {
	l.X += x
	l.Y += y
	l.Z += z
	return l
}

// Distance returns the euclidean distance. Locations in different worlds are
// infinitely far apart.
func (l Location) Distance(o Location) float64 {
	if l.World != o.World {
		return math.Inf(1)
	}
	dx, dy, dz := l.X-o.X, l.Y-o.Y, l.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func (l Location) String() string {
	return fmt.Sprintf("%s(%.1f, %.1f, %.1f)", l.World, l.X, l.Y, l.Z)
}

// ResourceType is the type of resource a generator produces.
type ResourceType string

const (
	ResourceIron    ResourceType = "IRON"
	ResourceGold    ResourceType = "GOLD"
	ResourceDiamond ResourceType = "DIAMOND"
	ResourceEmerald ResourceType = "EMERALD"
)

// ResourceTypes holds all known resource types, cheapest first.
var ResourceTypes = []ResourceType{ResourceIron, ResourceGold, ResourceDiamond, ResourceEmerald}

// ParseResourceType parses the given case-insensitive resource name.
func ParseResourceType(s string) (ResourceType, bool) {
	t := ResourceType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range ResourceTypes {
		if known == t {
			return t, true
		}
	}
	return "", false
}

// ItemStack is an amount of one resource.
type ItemStack struct {
	Resource ResourceType `json:"resource"`
	Amount   int          `json:"amount"`
}
