// Package director runs the lifecycle of all arenas. Each arena is owned by an
// actor goroutine that processes ticks and commands strictly in order, so no
// arena state is ever shared between goroutines.
package director

import (
	"context"
	"github.com/lefinal/bedwars-server/arena"
	"github.com/lefinal/bedwars-server/errors"
	"github.com/lefinal/bedwars-server/host"
	"github.com/lefinal/bedwars-server/schedule"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// Human is a connecting human participant.
type Human struct {
	// ID is the id assigned by the host.
	ID arena.ParticipantID
	// Name is the display name.
	Name string
	// Visual is the in-world representation handed over by the host.
	Visual host.VisualHandle
}

// Director holds all arenas.
type Director struct {
	logger *zap.Logger
	// arenas holds the actors by arena name. It is not modified after New.
	arenas map[string]*arenaActor
	// names holds all arena names sorted.
	names []string
	// flushes tracks running stats persistence.
	flushes sync.WaitGroup
}

// New creates a Director for the given arenas. Actors start processing when
// Run is called.
func New(logger *zap.Logger, config Config, h host.Host, clock schedule.Clock, notifier Notifier,
	arenaConfigs []ArenaConfig) (*Director, error) {
	err := validateArenaConfigs(arenaConfigs)
	if err != nil {
		return nil, errors.Wrap(err, "validate arena configs", nil)
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	d := &Director{
		logger: logger,
		arenas: make(map[string]*arenaActor, len(arenaConfigs)),
	}
	for i, c := range arenaConfigs {
		a, err := arena.New(c.Name, c.Map, c.Mode, c.Settings, c.Colors)
		if err != nil {
			return nil, errors.Wrap(err, "create arena", errors.Details{"arena": c.Name})
		}
		rng := rand.New(rand.NewSource(seed + int64(i)))
		d.arenas[c.Name] = newArenaActor(logger.Named(c.Name), config, h, clock, notifier, &d.flushes, a, rng)
		d.names = append(d.names, c.Name)
	}
	sort.Strings(d.names)
	return d, nil
}

// Run all arenas until the context is done. Match worlds are torn down and
// pending stats are persisted before returning.
func (d *Director) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, actor := range d.arenas {
		actor := actor
		eg.Go(func() error {
			actor.run(ctx)
			return nil
		})
	}
	err := eg.Wait()
	d.flushes.Wait()
	return err
}

// Names returns all arena names sorted.
func (d *Director) Names() []string {
	names := make([]string, len(d.names))
	copy(names, d.names)
	return names
}

func (d *Director) actor(name string) (*arenaActor, error) {
	actor, ok := d.arenas[name]
	if !ok {
		return nil, errors.NewNotFoundError(errors.KindUnknownArena, "unknown arena", errors.Details{"arena": name})
	}
	return actor, nil
}

// do runs the function in the actor of the named arena.
func (d *Director) do(ctx context.Context, arenaName string, fn func(a *arenaActor) error) error {
	actor, err := d.actor(arenaName)
	if err != nil {
		return err
	}
	return actor.do(ctx, func() error {
		return fn(actor)
	})
}

// requireRunning returns an errors.KindInvalidTransition error if the arena is
// not running.
func requireRunning(a *arenaActor, operation string) error {
	if state := a.arena.State(); state != arena.StateRunning {
		return errors.NewInvalidTransitionError(operation, string(state))
	}
	return nil
}

func participantOf(a *arenaActor, id arena.ParticipantID) (*arena.Participant, error) {
	p, ok := a.arena.Participant(id)
	if !ok {
		return nil, errors.NewNotFoundError(errors.KindUnknownParticipant, "unknown participant",
			errors.Details{"participant": id})
	}
	return p, nil
}

// creditedKiller validates the optional killer of the victim. It returns nil
// if the kill is not credited to anyone, which is the case for kills among
// members of the same team.
func creditedKiller(a *arenaActor, victim *arena.Participant, killer *arena.ParticipantID) (*arena.ParticipantID, error) {
	if killer == nil {
		return nil, nil
	}
	k, err := participantOf(a, *killer)
	if err != nil {
		return nil, errors.Wrap(err, "killer", nil)
	}
	if k.ID == victim.ID || k.Team == victim.Team {
		return nil, nil
	}
	return killer, nil
}

// RequestJoin adds the human to the arena and returns the assigned team.
func (d *Director) RequestJoin(ctx context.Context, arenaName string, human Human) (arena.Color, error) {
	var team arena.Color
	err := d.do(ctx, arenaName, func(a *arenaActor) error {
		p := &arena.Participant{
			ID:     human.ID,
			Kind:   arena.KindHuman,
			Name:   human.Name,
			Visual: human.Visual,
		}
		err := a.join(p, nil)
		if err != nil {
			return err
		}
		team = p.Team
		return nil
	})
	return team, err
}

// RequestLeave removes the participant from the arena.
func (d *Director) RequestLeave(ctx context.Context, arenaName string, participant arena.ParticipantID) error {
	return d.do(ctx, arenaName, func(a *arenaActor) error {
		return a.leave(participant)
	})
}

// ForceStart starts the countdown regardless of the minimum player count. It
// needs at least one participant in StateWaiting.
func (d *Director) ForceStart(ctx context.Context, arenaName string) error {
	return d.do(ctx, arenaName, func(a *arenaActor) error {
		if a.arena.State() != arena.StateWaiting || a.arena.Size() == 0 {
			return errors.NewInvalidTransitionError("force start", string(a.arena.State()))
		}
		a.beginCountdown(true)
		return nil
	})
}

// ForceEnd ends a running match without winner or aborts a countdown.
func (d *Director) ForceEnd(ctx context.Context, arenaName string) error {
	return d.do(ctx, arenaName, func(a *arenaActor) error {
		switch a.arena.State() {
		case arena.StateRunning:
			a.end(nil)
			return nil
		case arena.StateStarting:
			a.enterWaiting()
			return nil
		}
		return errors.NewInvalidTransitionError("force end", string(a.arena.State()))
	})
}

// ReportBedDestroyed destroys the bed of the team. Destroying the own bed is
// rejected with errors.KindOwnBed.
func (d *Director) ReportBedDestroyed(ctx context.Context, arenaName string, team arena.Color,
	actor arena.ParticipantID) error {
	return d.do(ctx, arenaName, func(a *arenaActor) error {
		if err := requireRunning(a, "destroy bed"); err != nil {
			return err
		}
		t, ok := a.arena.Team(team)
		if !ok {
			return errors.NewNotFoundError(errors.KindUnknownTeam, "unknown team", errors.Details{"team": team})
		}
		destroyer, err := participantOf(a, actor)
		if err != nil {
			return err
		}
		if destroyer.Team == team {
			return errors.NewBadRequestError(errors.KindOwnBed, "cannot destroy own bed",
				errors.Details{"team": team, "actor": actor})
		}
		if !t.DestroyBed() {
			return errors.NewBadRequestError(errors.KindBedAlreadyDestroyed, "bed already destroyed",
				errors.Details{"team": team})
		}
		a.match.RecordBedDestroyed(actor)
		a.logger.Debug("bed destroyed", zap.String("team", string(team)), zap.String("by", destroyer.Name))
		a.notify(NotifyBedDestroyed, BedDestroyed{Team: team, Destroyer: actor})
		return nil
	})
}

// ReportDeath handles the death of a participant with an optional killer.
// Participants of teams with living beds respawn. All others become
// spectators.
func (d *Director) ReportDeath(ctx context.Context, arenaName string, victim arena.ParticipantID,
	killer *arena.ParticipantID) error {
	return d.do(ctx, arenaName, func(a *arenaActor) error {
		if err := requireRunning(a, "report death"); err != nil {
			return err
		}
		p, err := participantOf(a, victim)
		if err != nil {
			return err
		}
		killer, err = creditedKiller(a, p, killer)
		if err != nil {
			return err
		}
		if p.Kind == arena.KindBot {
			a.killBot(p, killer)
			return nil
		}
		if p.Spectating {
			return nil
		}
		if _, respawning := a.respawns[victim]; respawning {
			return nil
		}
		a.die(p, killer)
		return nil
	})
}

// ReportBotKilled handles a bot being killed by the optional actor.
func (d *Director) ReportBotKilled(ctx context.Context, arenaName string, botID arena.ParticipantID,
	actor *arena.ParticipantID) error {
	return d.do(ctx, arenaName, func(a *arenaActor) error {
		if err := requireRunning(a, "report bot killed"); err != nil {
			return err
		}
		p, err := participantOf(a, botID)
		if err != nil {
			return err
		}
		if p.Kind != arena.KindBot {
			return errors.NewBadRequestError(errors.KindUnknownParticipant, "participant is no bot",
				errors.Details{"participant": botID})
		}
		actor, err = creditedKiller(a, p, actor)
		if err != nil {
			return err
		}
		a.killBot(p, actor)
		return nil
	})
}

// ReportBlockPlaced records a block placed by a participant.
func (d *Director) ReportBlockPlaced(ctx context.Context, arenaName string, pos arena.BlockPos) error {
	return d.do(ctx, arenaName, func(a *arenaActor) error {
		if err := requireRunning(a, "place block"); err != nil {
			return err
		}
		a.arena.PlaceBlock(pos)
		return nil
	})
}

// ReportBlockBroken checks whether the block may be broken. Only blocks placed
// by participants may be broken. Others are rejected with
// errors.KindBlockProtected.
func (d *Director) ReportBlockBroken(ctx context.Context, arenaName string, actor arena.ParticipantID,
	pos arena.BlockPos) error {
	return d.do(ctx, arenaName, func(a *arenaActor) error {
		if err := requireRunning(a, "break block"); err != nil {
			return err
		}
		if _, err := participantOf(a, actor); err != nil {
			return err
		}
		if !a.arena.BreakBlock(pos) {
			return errors.NewBadRequestError(errors.KindBlockProtected, "block is part of the map",
				errors.Details{"pos": pos})
		}
		return nil
	})
}

// AddBots adds up to n bots and returns the number of added ones.
func (d *Director) AddBots(ctx context.Context, arenaName string, n int) (int, error) {
	added := 0
	err := d.do(ctx, arenaName, func(a *arenaActor) error {
		state := a.arena.State()
		if state != arena.StateWaiting && state != arena.StateStarting {
			return errors.NewInvalidTransitionError("add bots", string(state))
		}
		added = a.addBots(n)
		return nil
	})
	return added, err
}

// IsDamageImmune checks whether the participant recently spawned at match
// start or respawned and must not take damage.
func (d *Director) IsDamageImmune(ctx context.Context, arenaName string, participant arena.ParticipantID) (bool, error) {
	immune := false
	err := d.do(ctx, arenaName, func(a *arenaActor) error {
		immune = a.isImmune(participant)
		return nil
	})
	return immune, err
}

// Snapshot returns a read-only copy of the arena.
func (d *Director) Snapshot(ctx context.Context, arenaName string) (arena.Snapshot, error) {
	var snapshot arena.Snapshot
	err := d.do(ctx, arenaName, func(a *arenaActor) error {
		snapshot = a.snapshot()
		return nil
	})
	return snapshot, err
}

// Snapshots returns snapshots of all arenas sorted by name.
func (d *Director) Snapshots(ctx context.Context) ([]arena.Snapshot, error) {
	snapshots := make([]arena.Snapshot, 0, len(d.names))
	for _, name := range d.names {
		snapshot, err := d.Snapshot(ctx, name)
		if err != nil {
			return nil, errors.Wrap(err, "snapshot arena", errors.Details{"arena": name})
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

// Locate returns the name of the arena the participant is in.
func (d *Director) Locate(ctx context.Context, participant arena.ParticipantID) (string, bool, error) {
	for _, name := range d.names {
		found := false
		err := d.do(ctx, name, func(a *arenaActor) error {
			_, found = a.arena.Participant(participant)
			return nil
		})
		if err != nil {
			return "", false, errors.Wrap(err, "lookup participant", errors.Details{"arena": name})
		}
		if found {
			return name, true, nil
		}
	}
	return "", false, nil
}

func (a *arenaActor) snapshot() arena.Snapshot {
	s := a.arena.Snapshot()
	s.ScheduledTasks = a.sched.Active()
	if a.match != nil {
		for i := range s.Participants {
			counters := a.match.Counters(s.Participants[i].ID)
			s.Participants[i].Counters = &counters
		}
	}
	return s
}
