package bot

import (
	"github.com/lefinal/bedwars-server/arena"
	"github.com/lefinal/bedwars-server/host"
	"github.com/lefinal/bedwars-server/schedule"
	"go.uber.org/zap"
	"math"
	"math/rand"
)

const (
	// pickupRadius is the radius in which items are collected.
	pickupRadius = 1.5
	// meleeRange is the maximum distance for attacking.
	meleeRange = 3.5
	// itemSearchRadius is the radius for searching dropped items.
	itemSearchRadius = 10
	// shopRange is the distance in which a shop counts as visited.
	shopRange = 3
	// defendRadius is the distance from spawn a defensive bot stays within.
	defendRadius = 15
	// patrolRadius is the radius of patrol points around the spawn.
	patrolRadius = 10
	// patrolArrival is the distance in which a patrol point counts as reached.
	patrolArrival = 2
	// moveSpeed is the distance moved per step at full decision speed.
	moveSpeed = 1.5
	// arrivalEpsilon is the distance in which a target counts as reached.
	arrivalEpsilon = 0.5
	// snapHeightDistance is the distance below which the height of the target
	// is adopted.
	snapHeightDistance = 3
)

// Target is an attackable enemy.
type Target struct {
	ID       arena.ParticipantID
	Visual   host.VisualHandle
	Location host.Location
}

// Surroundings is the view of the match a bot acts in. All locations are in
// the match world.
type Surroundings interface {
	// Enemies returns all attackable participants not belonging to the team.
	Enemies(team arena.Color) []Target
	// EnemyBeds returns the bed locations of all other teams with living beds.
	EnemyBeds(team arena.Color) []host.Location
	// Spawn returns the spawn of the team.
	Spawn(team arena.Color) (host.Location, bool)
	// Generators returns all generator locations.
	Generators() []host.Location
	// Shops returns all shop locations.
	Shops() []host.Location
	// Center returns the map center.
	Center() host.Location
}

// AI drives bots. It is owned by the same goroutine as the scheduler it reads
// the current tick from.
type AI struct {
	logger       *zap.Logger
	config       Config
	presentation host.Presentation
	surroundings Surroundings
	sched        *schedule.Scheduler
	rand         *rand.Rand
}

// NewAI creates a new AI.
func NewAI(logger *zap.Logger, config Config, presentation host.Presentation, surroundings Surroundings,
	sched *schedule.Scheduler, rng *rand.Rand) *AI {
	return &AI{
		logger:       logger,
		config:       config,
		presentation: presentation,
		surroundings: surroundings,
		sched:        sched,
		rand:         rng,
	}
}

// Step runs one AI step for the bot. Items are collected on every step while
// decisions are limited by the reaction time. It returns false if the bot
// lost its visual and must be removed.
func (ai *AI) Step(b *Bot) bool {
	visual, ok := b.Visual()
	if !ok || !ai.presentation.IsVisualValid(visual) {
		return false
	}
	now := ai.sched.Now()
	ai.maybeSwitchMode(b, now)
	for _, stack := range ai.presentation.CollectItems(visual, pickupRadius) {
		b.Resources[stack.Resource] += stack.Amount
		b.pickups++
	}
	if b.hasDecided && now-b.lastDecision < uint64(ai.config.ReactionTime) {
		return true
	}
	b.hasDecided = true
	b.lastDecision = now
	b.decisions++
	location, ok := ai.presentation.VisualLocation(visual)
	if !ok {
		return false
	}
	ai.decide(b, visual, location, now)
	return true
}

func (ai *AI) maybeSwitchMode(b *Bot, now uint64) {
	if now-b.lastModeSwitch < uint64(schedule.Seconds(ai.config.ModeSwitchInterval)) {
		return
	}
	b.lastModeSwitch = now
	if ai.rand.Float64() >= ai.config.ModeSwitchChance {
		return
	}
	old := b.Mode
	if b.Mode == ModePassive {
		if ai.rand.Intn(2) == 0 {
			b.Mode = ModeAggressive
		} else {
			b.Mode = ModeDefensive
		}
	} else {
		b.Mode = ModePassive
	}
	ai.logger.Debug("bot switched mode",
		zap.String("bot", b.Name),
		zap.String("from", string(old)),
		zap.String("to", string(b.Mode)))
}

func (ai *AI) decide(b *Bot, visual host.VisualHandle, location host.Location, now uint64) {
	if enemy, ok := ai.nearestEnemy(b, location, ai.config.CombatRange); ok {
		b.InCombat = true
		ai.engage(b, visual, location, enemy, now)
		return
	}
	b.InCombat = false
	switch b.Mode {
	case ModeAggressive:
		ai.attack(b, visual, location)
	case ModeDefensive:
		ai.defend(b, visual, location, now)
	default:
		ai.passive(b, visual, location, now)
	}
}

func (ai *AI) nearestEnemy(b *Bot, from host.Location, maxRange float64) (Target, bool) {
	var nearest Target
	found := false
	best := maxRange
	for _, enemy := range ai.surroundings.Enemies(b.Team) {
		if d := from.Distance(enemy.Location); d <= best {
			best = d
			nearest = enemy
			found = true
		}
	}
	return nearest, found
}

func nearestLocation(from host.Location, locations []host.Location) (host.Location, bool) {
	var nearest host.Location
	found := false
	best := math.Inf(1)
	for _, l := range locations {
		if d := from.Distance(l); d < best {
			best = d
			nearest = l
			found = true
		}
	}
	return nearest, found
}

func (ai *AI) engage(b *Bot, visual host.VisualHandle, location host.Location, enemy Target, now uint64) {
	if location.Distance(enemy.Location) > meleeRange {
		ai.moveTo(b, visual, location, enemy.Location)
		return
	}
	cooldown := uint64(ai.config.settingsFor(b.Difficulty).AttackCooldown)
	if b.hasAttacked && now-b.lastAttack < cooldown {
		return
	}
	b.hasAttacked = true
	b.lastAttack = now
	ai.presentation.ApplyDamage(enemy.Visual, b.Weapon.Damage()*b.Skills.DecisionSpeed)
}

func (ai *AI) passive(b *Bot, visual host.VisualHandle, location host.Location, now uint64) {
	if now-b.gatherStart < uint64(schedule.Seconds(ai.config.GatherDuration)) {
		ai.gather(b, visual, location)
		return
	}
	shop, ok := nearestLocation(location, ai.surroundings.Shops())
	if !ok {
		b.gatherStart = now
		ai.gather(b, visual, location)
		return
	}
	if location.Distance(shop) > shopRange {
		ai.moveTo(b, visual, location, shop)
		return
	}
	ai.buy(b)
	b.gatherStart = now
}

func (ai *AI) gather(b *Bot, visual host.VisualHandle, location host.Location) {
	if item, ok := ai.presentation.NearestItem(location, itemSearchRadius); ok {
		ai.moveTo(b, visual, location, item)
		return
	}
	if generator, ok := nearestLocation(location, ai.surroundings.Generators()); ok {
		ai.moveTo(b, visual, location, generator)
	}
}

// buy purchases the next weapon tier if affordable.
func (ai *AI) buy(b *Bot) {
	for _, upgrade := range weaponUpgrades {
		if upgrade.tier <= b.Weapon {
			continue
		}
		if b.Resources[upgrade.resource] < upgrade.amount {
			return
		}
		b.Resources[upgrade.resource] -= upgrade.amount
		b.Weapon = upgrade.tier
		ai.logger.Debug("bot bought weapon", zap.String("bot", b.Name), zap.Int("tier", int(upgrade.tier)))
		return
	}
}

func (ai *AI) attack(b *Bot, visual host.VisualHandle, location host.Location) {
	if ai.rand.Float64() < ai.config.BedBreakPriority {
		if bed, ok := nearestLocation(location, ai.surroundings.EnemyBeds(b.Team)); ok {
			ai.moveTo(b, visual, location, bed)
			return
		}
	}
	if enemy, ok := ai.nearestEnemy(b, location, 2*ai.config.CombatRange); ok {
		ai.moveTo(b, visual, location, enemy.Location)
		return
	}
	ai.moveTo(b, visual, location, ai.surroundings.Center())
}

func (ai *AI) defend(b *Bot, visual host.VisualHandle, location host.Location, now uint64) {
	spawn, ok := ai.surroundings.Spawn(b.Team)
	if !ok {
		ai.passive(b, visual, location, now)
		return
	}
	if location.Distance(spawn) > defendRadius {
		b.patrolTarget = nil
		ai.moveTo(b, visual, location, spawn)
		return
	}
	if b.patrolTarget == nil || location.Distance(*b.patrolTarget) < patrolArrival {
		angle := ai.rand.Float64() * 2 * math.Pi
		radius := ai.rand.Float64() * patrolRadius
		patrol := spawn.Add(math.Cos(angle)*radius, 0, math.Sin(angle)*radius)
		b.patrolTarget = &patrol
	}
	ai.moveTo(b, visual, location, *b.patrolTarget)
}

// moveTo moves the visual one step toward the target.
func (ai *AI) moveTo(b *Bot, visual host.VisualHandle, from host.Location, to host.Location) {
	b.Target = &to
	distance := from.Distance(to)
	if distance < arrivalEpsilon || math.IsInf(distance, 1) {
		return
	}
	step := math.Min(moveSpeed*b.Skills.DecisionSpeed, distance)
	factor := step / distance
	next := from.Add((to.X-from.X)*factor, (to.Y-from.Y)*factor, (to.Z-from.Z)*factor)
	if distance < snapHeightDistance {
		next.Y = to.Y
	}
	ai.presentation.Teleport(visual, next)
}
