// Package simhost is an in-memory game host. It keeps track of worlds,
// participant visuals and dropped items without any physics and is used for
// running the server headless as well as for testing.
package simhost

import (
	"context"
	"fmt"
	"github.com/google/uuid"
	"github.com/lefinal/bedwars-server/errors"
	"github.com/lefinal/bedwars-server/host"
	"go.uber.org/zap"
	"sync"
)

// maxHealth is the health of a freshly spawned or restored visual.
const maxHealth = 20

// DeathHandler is called when a visual receives lethal damage. It is called in
// a separate goroutine, so it may safely report the death back to the arena
// that applied the damage.
type DeathHandler func(victim host.ParticipantInfo)

type visual struct {
	info      host.ParticipantInfo
	location  host.Location
	valid     bool
	connected bool
	spectator bool
	dead      bool
	health    float64
	items     []host.ItemStack
}

type droppedItem struct {
	stack    host.ItemStack
	location host.Location
}

// Host implements host.WorldProvider and host.Presentation in memory.
type Host struct {
	logger *zap.Logger
	// failProvision makes ProvisionMatchWorld fail.
	failProvision bool
	// failTeardown makes TeardownWorld fail.
	failTeardown bool
	// onDeath is the optional DeathHandler.
	onDeath DeathHandler
	// worlds holds the map id for each provisioned world.
	worlds map[host.WorldHandle]string
	// visuals holds all known visuals, including destroyed ones.
	visuals map[host.VisualHandle]*visual
	// items are the currently dropped items.
	items []droppedItem
	// placed counts placed items by world and resource type.
	placed map[host.WorldHandle]map[host.ResourceType]int
	// damage holds the total damage applied per visual.
	damage map[host.VisualHandle]float64
	// m locks all fields.
	m sync.Mutex
}

// New creates a new Host.
func New(logger *zap.Logger) *Host {
	return &Host{
		logger:  logger,
		worlds:  make(map[host.WorldHandle]string),
		visuals: make(map[host.VisualHandle]*visual),
		placed:  make(map[host.WorldHandle]map[host.ResourceType]int),
		damage:  make(map[host.VisualHandle]float64),
	}
}

// SetDeathHandler sets the handler to call on lethal damage.
func (h *Host) SetDeathHandler(handler DeathHandler) {
	h.m.Lock()
	defer h.m.Unlock()
	h.onDeath = handler
}

// SetFailProvision makes all following world provisioning fail.
func (h *Host) SetFailProvision(fail bool) {
	h.m.Lock()
	defer h.m.Unlock()
	h.failProvision = fail
}

// SetFailTeardown makes all following world teardowns fail. Failed teardowns
// keep the world.
func (h *Host) SetFailTeardown(fail bool) {
	h.m.Lock()
	defer h.m.Unlock()
	h.failTeardown = fail
}

// ProvisionMatchWorld creates a new world for the map.
func (h *Host) ProvisionMatchWorld(_ context.Context, mapID string) (host.WorldHandle, error) {
	h.m.Lock()
	defer h.m.Unlock()
	if h.failProvision {
		return "", errors.Error{
			Code:    errors.ErrInternal,
			Kind:    errors.KindProvisionFailed,
			Message: "no world available",
			Details: errors.Details{"map": mapID},
		}
	}
	world := host.WorldHandle(fmt.Sprintf("%s-%s", mapID, uuid.New().String()))
	h.worlds[world] = mapID
	h.placed[world] = make(map[host.ResourceType]int)
	h.logger.Debug("world provisioned", zap.String("map", mapID), zap.String("world", string(world)))
	return world, nil
}

// TeardownWorld removes the world and all items dropped in it.
func (h *Host) TeardownWorld(_ context.Context, world host.WorldHandle) error {
	h.m.Lock()
	defer h.m.Unlock()
	if _, ok := h.worlds[world]; !ok {
		return errors.NewResourceNotFoundError("unknown world", errors.Details{"world": world})
	}
	if h.failTeardown {
		return errors.Error{
			Code:    errors.ErrInternal,
			Kind:    errors.KindTeardownFailed,
			Message: "world still in use",
			Details: errors.Details{"world": world},
		}
	}
	delete(h.worlds, world)
	remaining := h.items[:0]
	for _, item := range h.items {
		if item.location.World != world {
			remaining = append(remaining, item)
		}
	}
	h.items = remaining
	h.logger.Debug("world torn down", zap.String("world", string(world)))
	return nil
}

// ConnectHuman creates the visual for a connecting human and returns its
// handle.
func (h *Host) ConnectHuman(id string, name string, location host.Location) host.VisualHandle {
	h.m.Lock()
	defer h.m.Unlock()
	handle := host.VisualHandle(uuid.New().String())
	h.visuals[handle] = &visual{
		info:      host.ParticipantInfo{ID: id, Name: name},
		location:  location,
		valid:     true,
		connected: true,
		health:    maxHealth,
	}
	return handle
}

// Disconnect marks the human owning the visual as disconnected.
func (h *Host) Disconnect(handle host.VisualHandle) {
	h.m.Lock()
	defer h.m.Unlock()
	if v, ok := h.visuals[handle]; ok {
		v.connected = false
	}
}

// SpawnParticipantVisual creates a bot visual.
func (h *Host) SpawnParticipantVisual(participant host.ParticipantInfo, location host.Location) (host.VisualHandle, error) {
	h.m.Lock()
	defer h.m.Unlock()
	if _, ok := h.worlds[location.World]; !ok {
		return "", errors.NewResourceNotFoundError("spawn in unknown world", errors.Details{"world": location.World})
	}
	handle := host.VisualHandle(uuid.New().String())
	h.visuals[handle] = &visual{
		info:      participant,
		location:  location,
		valid:     true,
		connected: true,
		health:    maxHealth,
	}
	return handle, nil
}

// DestroyVisual marks the visual as destroyed.
func (h *Host) DestroyVisual(handle host.VisualHandle) {
	h.m.Lock()
	defer h.m.Unlock()
	if v, ok := h.visuals[handle]; ok {
		v.valid = false
	}
}

func (h *Host) IsVisualValid(handle host.VisualHandle) bool {
	h.m.Lock()
	defer h.m.Unlock()
	v, ok := h.visuals[handle]
	return ok && v.valid
}

func (h *Host) IsConnected(handle host.VisualHandle) bool {
	h.m.Lock()
	defer h.m.Unlock()
	v, ok := h.visuals[handle]
	return ok && v.valid && v.connected
}

func (h *Host) VisualLocation(handle host.VisualHandle) (host.Location, bool) {
	h.m.Lock()
	defer h.m.Unlock()
	v, ok := h.visuals[handle]
	if !ok || !v.valid {
		return host.Location{}, false
	}
	return v.location, true
}

// ApplyDamage reduces the health of the visual. Reaching zero health calls the
// DeathHandler once.
func (h *Host) ApplyDamage(handle host.VisualHandle, amount float64) {
	h.m.Lock()
	v, ok := h.visuals[handle]
	if !ok || !v.valid || v.dead || v.spectator {
		h.m.Unlock()
		return
	}
	h.damage[handle] += amount
	v.health -= amount
	var notify DeathHandler
	if v.health <= 0 {
		v.dead = true
		notify = h.onDeath
	}
	info := v.info
	h.m.Unlock()
	if notify != nil {
		go notify(info)
	}
}

func (h *Host) Teleport(handle host.VisualHandle, location host.Location) {
	h.m.Lock()
	defer h.m.Unlock()
	if v, ok := h.visuals[handle]; ok && v.valid {
		v.location = location
	}
}

func (h *Host) SetSpectator(handle host.VisualHandle, observation host.Location) {
	h.m.Lock()
	defer h.m.Unlock()
	if v, ok := h.visuals[handle]; ok {
		v.spectator = true
		v.dead = false
		v.location = observation
	}
}

func (h *Host) ClearItems(handle host.VisualHandle) {
	h.m.Lock()
	defer h.m.Unlock()
	if v, ok := h.visuals[handle]; ok {
		v.items = nil
	}
}

// Restore revives the visual with full health at the location. This also ends
// spectator mode, which is what happens when humans return to the lobby.
func (h *Host) Restore(handle host.VisualHandle, location host.Location) {
	h.m.Lock()
	defer h.m.Unlock()
	if v, ok := h.visuals[handle]; ok && v.valid {
		v.dead = false
		v.spectator = false
		v.health = maxHealth
		v.location = location
	}
}

func (h *Host) PlaceItem(items host.ItemStack, location host.Location) {
	h.m.Lock()
	defer h.m.Unlock()
	h.items = append(h.items, droppedItem{stack: items, location: location})
	if placed, ok := h.placed[location.World]; ok {
		placed[items.Resource] += items.Amount
	}
}

func (h *Host) NearestItem(from host.Location, radius float64) (host.Location, bool) {
	h.m.Lock()
	defer h.m.Unlock()
	var nearest host.Location
	found := false
	best := radius
	for _, item := range h.items {
		if d := item.location.Distance(from); d <= best {
			best = d
			nearest = item.location
			found = true
		}
	}
	return nearest, found
}

func (h *Host) CollectItems(handle host.VisualHandle, radius float64) []host.ItemStack {
	h.m.Lock()
	defer h.m.Unlock()
	v, ok := h.visuals[handle]
	if !ok || !v.valid {
		return nil
	}
	var collected []host.ItemStack
	remaining := h.items[:0]
	for _, item := range h.items {
		if item.location.Distance(v.location) <= radius {
			collected = append(collected, item.stack)
			continue
		}
		remaining = append(remaining, item)
	}
	h.items = remaining
	v.items = append(v.items, collected...)
	return collected
}

// Placed returns the amount of placed items of the resource type in the world.
func (h *Host) Placed(world host.WorldHandle, resource host.ResourceType) int {
	h.m.Lock()
	defer h.m.Unlock()
	return h.placed[world][resource]
}

// PlacedTotal returns the amount of all items ever placed in the world.
func (h *Host) PlacedTotal(world host.WorldHandle) int {
	h.m.Lock()
	defer h.m.Unlock()
	total := 0
	for _, amount := range h.placed[world] {
		total += amount
	}
	return total
}

// Damage returns the total damage applied to the visual.
func (h *Host) Damage(handle host.VisualHandle) float64 {
	h.m.Lock()
	defer h.m.Unlock()
	return h.damage[handle]
}

// IsSpectator checks whether the visual is in spectator mode.
func (h *Host) IsSpectator(handle host.VisualHandle) bool {
	h.m.Lock()
	defer h.m.Unlock()
	v, ok := h.visuals[handle]
	return ok && v.spectator
}

// WorldCount returns the number of currently provisioned worlds.
func (h *Host) WorldCount() int {
	h.m.Lock()
	defer h.m.Unlock()
	return len(h.worlds)
}

// ValidBotVisuals returns the number of valid bot visuals.
func (h *Host) ValidBotVisuals() int {
	h.m.Lock()
	defer h.m.Unlock()
	count := 0
	for _, v := range h.visuals {
		if v.valid && v.info.IsBot {
			count++
		}
	}
	return count
}
