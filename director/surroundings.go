package director

import (
	"github.com/lefinal/bedwars-server/arena"
	"github.com/lefinal/bedwars-server/bot"
	"github.com/lefinal/bedwars-server/host"
)

// The arena actor is what bots see of the match. All methods are only called
// from bot AI steps, which run in the actor.

func (a *arenaActor) Enemies(team arena.Color) []bot.Target {
	enemies := make([]bot.Target, 0)
	for _, p := range a.arena.Participants() {
		if p.Team == team || p.Spectating || a.isImmune(p.ID) {
			continue
		}
		visual := p.Visual
		if p.Kind == arena.KindBot {
			b, ok := a.bots.Get(p.ID)
			if !ok {
				continue
			}
			if visual, ok = b.Visual(); !ok {
				continue
			}
		} else if !a.host.Presentation.IsConnected(visual) {
			continue
		}
		if _, respawning := a.respawns[p.ID]; respawning {
			continue
		}
		location, ok := a.host.Presentation.VisualLocation(visual)
		if !ok {
			continue
		}
		enemies = append(enemies, bot.Target{ID: p.ID, Visual: visual, Location: location})
	}
	return enemies
}

func (a *arenaActor) EnemyBeds(team arena.Color) []host.Location {
	beds := make([]host.Location, 0)
	for _, t := range a.arena.Teams() {
		if t.Color == team || !t.BedAlive() || t.Eliminated() || t.Size() == 0 {
			continue
		}
		if bed, ok := a.arena.Map.Beds[t.Color]; ok {
			beds = append(beds, bed.In(a.matchWorld()))
		}
	}
	return beds
}

func (a *arenaActor) Spawn(team arena.Color) (host.Location, bool) {
	spawn, ok := a.arena.Map.Spawn(team)
	if !ok {
		return host.Location{}, false
	}
	return spawn.In(a.matchWorld()), true
}

func (a *arenaActor) Generators() []host.Location {
	generators := make([]host.Location, 0, len(a.arena.Map.Generators))
	for _, g := range a.arena.Map.Generators {
		generators = append(generators, g.Location.In(a.matchWorld()))
	}
	return generators
}

func (a *arenaActor) Shops() []host.Location {
	shops := make([]host.Location, 0, len(a.arena.Map.Shops))
	for _, shop := range a.arena.Map.Shops {
		shops = append(shops, shop.In(a.matchWorld()))
	}
	return shops
}

func (a *arenaActor) Center() host.Location {
	return a.arena.Map.Center.In(a.matchWorld())
}
