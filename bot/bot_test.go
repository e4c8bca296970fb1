package bot

import (
	"context"
	"github.com/lefinal/bedwars-server/arena"
	"github.com/lefinal/bedwars-server/errors"
	"github.com/lefinal/bedwars-server/host"
	"github.com/lefinal/bedwars-server/schedule"
	"github.com/lefinal/bedwars-server/simhost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"math/rand"
	"pgregory.net/rapid"
	"testing"
)

// surroundingsStub is a fixed Surroundings.
type surroundingsStub struct {
	enemies    []Target
	beds       []host.Location
	spawns     map[arena.Color]host.Location
	generators []host.Location
	shops      []host.Location
	center     host.Location
}

func (s *surroundingsStub) Enemies(_ arena.Color) []Target {
	return s.enemies
}

func (s *surroundingsStub) EnemyBeds(_ arena.Color) []host.Location {
	return s.beds
}

func (s *surroundingsStub) Spawn(team arena.Color) (host.Location, bool) {
	l, ok := s.spawns[team]
	return l, ok
}

func (s *surroundingsStub) Generators() []host.Location {
	return s.generators
}

func (s *surroundingsStub) Shops() []host.Location {
	return s.shops
}

func (s *surroundingsStub) Center() host.Location {
	return s.center
}

// testConfig returns a deterministic config without mode switches.
func testConfig() Config {
	c := DefaultConfig()
	c.ReactionTime = 1
	c.ModeSwitchInterval = 1000
	c.ModeSwitchChance = 0
	return c
}

// env bundles everything needed for running bots.
type env struct {
	host         *simhost.Host
	world        host.WorldHandle
	sched        *schedule.Scheduler
	surroundings *surroundingsStub
	registry     *Registry
	terminated   []*Bot
}

func newEnv(t require.TestingT, config Config) *env {
	logger := zap.New(zapcore.NewNopCore())
	e := &env{
		host:         simhost.New(logger),
		sched:        schedule.NewScheduler(),
		surroundings: &surroundingsStub{spawns: make(map[arena.Color]host.Location)},
	}
	world, err := e.host.ProvisionMatchWorld(context.Background(), "castle")
	require.NoError(t, err, "provision should not fail")
	e.world = world
	ai := NewAI(logger, config, e.host, e.surroundings, e.sched, rand.New(rand.NewSource(1)))
	e.registry = NewRegistry(logger, config, e.host, e.sched, ai, func(b *Bot) {
		e.terminated = append(e.terminated, b)
	})
	return e
}

func (e *env) at(x, y, z float64) host.Location {
	return host.Location{World: e.world, X: x, Y: y, Z: z}
}

func (e *env) spawnBot(t require.TestingT, difficulty Difficulty, location host.Location) *Bot {
	b := e.registry.Create(difficulty)
	b.Team = "RED"
	require.NoError(t, e.registry.Materialize(b.ID, location), "materialize should not fail")
	return b
}

func (e *env) tick(n int) {
	for i := 0; i < n; i++ {
		e.sched.Tick()
	}
}

func (e *env) location(t require.TestingT, b *Bot) host.Location {
	visual, ok := b.Visual()
	require.True(t, ok, "bot should be materialized")
	l, ok := e.host.VisualLocation(visual)
	require.True(t, ok, "visual should be valid")
	return l
}

// TestReactionGating assures that decisions are limited by the reaction time
// while items are collected on every tick.
func TestReactionGating(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reaction := rapid.IntRange(1, 10).Draw(t, "reaction")
		ticks := rapid.IntRange(1, 200).Draw(t, "ticks")
		config := testConfig()
		config.ReactionTime = reaction
		e := newEnv(t, config)
		b := e.spawnBot(t, DifficultyMedium, e.at(0, 64, 0))
		for i := 0; i < ticks; i++ {
			e.host.PlaceItem(host.ItemStack{Resource: host.ResourceIron, Amount: 1}, e.location(t, b))
			e.sched.Tick()
		}
		expected := ticks / reaction
		if b.Decisions() < expected-1 || b.Decisions() > expected+1 {
			t.Fatalf("expected about %d decisions but got %d", expected, b.Decisions())
		}
		if b.Pickups() != ticks {
			t.Fatalf("expected %d pickups but got %d", ticks, b.Pickups())
		}
		if b.Resources[host.ResourceIron] != ticks {
			t.Fatalf("expected %d iron but got %d", ticks, b.Resources[host.ResourceIron])
		}
	})
}

// AISuite tests single decisions of the AI.
type AISuite struct {
	suite.Suite
	e *env
}

func (suite *AISuite) SetupTest() {
	suite.e = newEnv(suite.T(), testConfig())
}

func (suite *AISuite) enemyAt(l host.Location) Target {
	id := arena.NewParticipantID()
	visual := suite.e.host.ConnectHuman(string(id), "enemy", l)
	target := Target{ID: id, Visual: visual, Location: l}
	suite.e.surroundings.enemies = append(suite.e.surroundings.enemies, target)
	return target
}

func (suite *AISuite) TestMeleeRespectsCooldown() {
	enemy := suite.enemyAt(suite.e.at(2, 64, 0))
	b := suite.e.spawnBot(suite.T(), DifficultyHard, suite.e.at(0, 64, 0))
	suite.e.tick(60)
	// Attacks at ticks 1, 11, 21, 31, 41 and 51.
	suite.InDelta(6*WeaponWood.Damage()*0.8, suite.e.host.Damage(enemy.Visual), 0.0001)
	suite.True(b.InCombat)
}

func (suite *AISuite) TestMovesTowardDistantEnemy() {
	enemy := suite.enemyAt(suite.e.at(10, 64, 0))
	b := suite.e.spawnBot(suite.T(), DifficultyHard, suite.e.at(0, 64, 0))
	suite.e.tick(1)
	suite.InDelta(moveSpeed*0.8, suite.e.location(suite.T(), b).X, 0.0001)
	suite.Zero(suite.e.host.Damage(enemy.Visual), "should not attack out of melee range")
}

func (suite *AISuite) TestIgnoresEnemiesOutOfCombatRange() {
	suite.enemyAt(suite.e.at(100, 64, 0))
	b := suite.e.spawnBot(suite.T(), DifficultyMedium, suite.e.at(0, 64, 0))
	suite.e.tick(1)
	suite.False(b.InCombat)
	suite.Equal(suite.e.at(0, 64, 0), suite.e.location(suite.T(), b), "should stay without anything to do")
}

func (suite *AISuite) TestArrivesAndSnapsHeight() {
	suite.e.surroundings.generators = []host.Location{suite.e.at(1, 66, 0)}
	b := suite.e.spawnBot(suite.T(), DifficultyExpert, suite.e.at(0, 64, 0))
	suite.e.tick(5)
	l := suite.e.location(suite.T(), b)
	suite.Equal(66.0, l.Y, "should adopt target height when close")
	suite.Less(l.Distance(suite.e.at(1, 66, 0)), arrivalEpsilon)
}

func (suite *AISuite) TestAggressiveGoesForBed() {
	config := testConfig()
	config.BedBreakPriority = 1
	suite.e = newEnv(suite.T(), config)
	bed := suite.e.at(20, 64, 0)
	suite.e.surroundings.beds = []host.Location{bed}
	b := suite.e.spawnBot(suite.T(), DifficultyMedium, suite.e.at(0, 64, 0))
	b.Mode = ModeAggressive
	suite.e.tick(1)
	suite.Require().NotNil(b.Target)
	suite.Equal(bed, *b.Target)
}

func (suite *AISuite) TestAggressiveWithoutTargetsGoesToCenter() {
	config := testConfig()
	config.BedBreakPriority = 1
	suite.e = newEnv(suite.T(), config)
	suite.e.surroundings.center = suite.e.at(0, 64, 30)
	b := suite.e.spawnBot(suite.T(), DifficultyMedium, suite.e.at(0, 64, 0))
	b.Mode = ModeAggressive
	suite.e.tick(1)
	suite.Require().NotNil(b.Target)
	suite.Equal(suite.e.at(0, 64, 30), *b.Target)
}

func (suite *AISuite) TestDefensiveReturnsToSpawn() {
	spawn := suite.e.at(30, 64, 0)
	suite.e.surroundings.spawns["RED"] = spawn
	b := suite.e.spawnBot(suite.T(), DifficultyMedium, suite.e.at(0, 64, 0))
	b.Mode = ModeDefensive
	suite.e.tick(1)
	suite.Require().NotNil(b.Target)
	suite.Equal(spawn, *b.Target)
}

func (suite *AISuite) TestDefensivePatrolsNearSpawn() {
	spawn := suite.e.at(0, 64, 0)
	suite.e.surroundings.spawns["RED"] = spawn
	b := suite.e.spawnBot(suite.T(), DifficultyMedium, spawn)
	b.Mode = ModeDefensive
	suite.e.tick(20)
	suite.Require().NotNil(b.Target)
	suite.LessOrEqual(spawn.Distance(*b.Target), float64(patrolRadius))
	suite.LessOrEqual(spawn.Distance(suite.e.location(suite.T(), b)), float64(defendRadius))
}

func (suite *AISuite) TestDefensiveWithoutSpawnGathers() {
	generator := suite.e.at(0, 64, 10)
	suite.e.surroundings.generators = []host.Location{generator}
	b := suite.e.spawnBot(suite.T(), DifficultyMedium, suite.e.at(0, 64, 0))
	b.Mode = ModeDefensive
	suite.e.tick(1)
	suite.Require().NotNil(b.Target)
	suite.Equal(generator, *b.Target)
}

func (suite *AISuite) TestPassivePrefersItems() {
	suite.e.surroundings.generators = []host.Location{suite.e.at(0, 64, 8)}
	item := suite.e.at(4, 64, 0)
	suite.e.host.PlaceItem(host.ItemStack{Resource: host.ResourceGold, Amount: 1}, item)
	b := suite.e.spawnBot(suite.T(), DifficultyMedium, suite.e.at(0, 64, 0))
	suite.e.tick(1)
	suite.Require().NotNil(b.Target)
	suite.Equal(item, *b.Target)
}

func (suite *AISuite) TestShopBuysNextWeapon() {
	config := testConfig()
	config.GatherDuration = 0
	suite.e = newEnv(suite.T(), config)
	suite.e.surroundings.shops = []host.Location{suite.e.at(1, 64, 0)}
	b := suite.e.spawnBot(suite.T(), DifficultyMedium, suite.e.at(0, 64, 0))
	b.Resources[host.ResourceIron] = 12
	suite.e.tick(1)
	suite.Equal(WeaponStone, b.Weapon)
	suite.Equal(2, b.Resources[host.ResourceIron])
	// Not enough gold for the next tier.
	suite.e.tick(1)
	suite.Equal(WeaponStone, b.Weapon)
}

func (suite *AISuite) TestModeSwitches() {
	config := testConfig()
	config.ModeSwitchInterval = 1
	config.ModeSwitchChance = 1
	suite.e = newEnv(suite.T(), config)
	b := suite.e.spawnBot(suite.T(), DifficultyMedium, suite.e.at(0, 64, 0))
	suite.e.tick(schedule.Seconds(1))
	suite.NotEqual(ModePassive, b.Mode, "passive should switch to active mode")
	suite.e.tick(schedule.Seconds(1))
	suite.Equal(ModePassive, b.Mode, "active mode should switch back to passive")
}

func (suite *AISuite) TestInvalidVisualTerminates() {
	b := suite.e.spawnBot(suite.T(), DifficultyMedium, suite.e.at(0, 64, 0))
	suite.e.tick(3)
	decisions := b.Decisions()
	visual, _ := b.Visual()
	suite.e.host.DestroyVisual(visual)
	suite.e.tick(10)
	suite.Equal(decisions, b.Decisions(), "should not decide anymore")
	suite.Require().Len(suite.e.terminated, 1)
	suite.Equal(b.ID, suite.e.terminated[0].ID)
	suite.Zero(suite.e.registry.Len())
	suite.Zero(suite.e.sched.Active(), "should not leave tasks")
}

func TestAI(t *testing.T) {
	suite.Run(t, new(AISuite))
}

// RegistrySuite tests Registry.
type RegistrySuite struct {
	suite.Suite
	e *env
}

func (suite *RegistrySuite) SetupTest() {
	suite.e = newEnv(suite.T(), testConfig())
}

func (suite *RegistrySuite) TestNames() {
	var created []string
	for i := 0; i < len(names)+2; i++ {
		created = append(created, suite.e.registry.Create(DifficultyEasy).Name)
	}
	suite.Equal(names, created[:len(names)])
	suite.Equal([]string{"Bot_1", "Bot_2"}, created[len(names):])
}

func (suite *RegistrySuite) TestNameReuseAfterRemove() {
	suite.e.registry.Create(DifficultyEasy)
	beta := suite.e.registry.Create(DifficultyEasy)
	_, ok := suite.e.registry.Remove(beta.ID)
	suite.Require().True(ok)
	suite.Equal("Bot_Beta", suite.e.registry.Create(DifficultyEasy).Name)
}

func (suite *RegistrySuite) TestSkillsFromDifficulty() {
	b := suite.e.registry.Create(DifficultyExpert)
	suite.Equal(DefaultConfig().Difficulties[DifficultyExpert].Skills, b.Skills)
	suite.Equal(PhaseRegistered, b.Phase())
	_, ok := b.Visual()
	suite.False(ok, "registered bot should have no visual")
}

func (suite *RegistrySuite) TestMaterialize() {
	b := suite.e.spawnBot(suite.T(), DifficultyEasy, suite.e.at(0, 64, 0))
	suite.Equal(PhaseMaterialized, b.Phase())
	suite.Equal(1, suite.e.host.ValidBotVisuals())
	suite.Equal(1, suite.e.sched.Active())
}

func (suite *RegistrySuite) TestMaterializeTwice() {
	b := suite.e.spawnBot(suite.T(), DifficultyEasy, suite.e.at(0, 64, 0))
	err := suite.e.registry.Materialize(b.ID, suite.e.at(0, 64, 0))
	suite.True(errors.Is(err, errors.KindInvalidTransition), "should fail with invalid transition")
}

func (suite *RegistrySuite) TestMaterializeUnknown() {
	err := suite.e.registry.Materialize(arena.NewParticipantID(), suite.e.at(0, 64, 0))
	suite.True(errors.Is(err, errors.KindUnknownParticipant), "should fail with unknown participant")
}

func (suite *RegistrySuite) TestMaterializeInUnknownWorld() {
	b := suite.e.registry.Create(DifficultyEasy)
	err := suite.e.registry.Materialize(b.ID, host.Location{World: "nope"})
	suite.Error(err)
	suite.Equal(PhaseRegistered, b.Phase())
	suite.Zero(suite.e.sched.Active())
}

func (suite *RegistrySuite) TestClear() {
	for i := 0; i < 3; i++ {
		suite.e.spawnBot(suite.T(), DifficultyEasy, suite.e.at(0, 64, 0))
	}
	suite.e.registry.Create(DifficultyEasy)
	suite.e.registry.Clear()
	suite.Zero(suite.e.registry.Len())
	suite.Zero(suite.e.host.ValidBotVisuals())
	suite.Zero(suite.e.sched.Active())
	suite.Empty(suite.e.terminated, "clearing should not report terminations")
}

func TestRegistry(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		in  string
		out Difficulty
	}{
		{in: "easy", out: DifficultyEasy},
		{in: "HARD", out: DifficultyHard},
		{in: " Expert ", out: DifficultyExpert},
		{in: "medium", out: DifficultyMedium},
		{in: "nightmare", out: DifficultyMedium},
		{in: "", out: DifficultyMedium},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.out, ParseDifficulty(tt.in))
		})
	}
}

func TestSkillsClamped(t *testing.T) {
	s := Skills{Accuracy: -1, BlockPlacingSpeed: 2, PvPSkill: 0.5, DecisionSpeed: 1, Teamwork: 0}
	assert.Equal(t, Skills{Accuracy: 0, BlockPlacingSpeed: 1, PvPSkill: 0.5, DecisionSpeed: 1, Teamwork: 0}, s.Clamped())
}

func TestWeaponDamage(t *testing.T) {
	assert.Equal(t, 2.0, WeaponNone.Damage())
	assert.Equal(t, 4.0, WeaponWood.Damage())
	assert.Equal(t, 5.0, WeaponStone.Damage())
	assert.Equal(t, 6.0, WeaponIron.Damage())
	assert.Equal(t, 7.0, WeaponDiamond.Damage())
}
