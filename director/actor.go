package director

import (
	"context"
	"github.com/lefinal/bedwars-server/arena"
	"github.com/lefinal/bedwars-server/bot"
	"github.com/lefinal/bedwars-server/errors"
	"github.com/lefinal/bedwars-server/generator"
	"github.com/lefinal/bedwars-server/host"
	"github.com/lefinal/bedwars-server/match"
	"github.com/lefinal/bedwars-server/schedule"
	"go.uber.org/zap"
	"math/rand"
	"sync"
)

// arenaActor owns one arena. Everything except the command channel is only
// accessed by the goroutine running run.
type arenaActor struct {
	logger   *zap.Logger
	config   Config
	host     host.Host
	notifier Notifier
	// flushes tracks running stats persistence.
	flushes *sync.WaitGroup
	// commands are executed in order by the actor.
	commands chan func()
	// done is closed when the actor stopped.
	done chan struct{}
	// ctx is the context of run.
	ctx        context.Context
	arena      *arena.Arena
	sched      *schedule.Scheduler
	ticker     schedule.Ticker
	generators *generator.Scheduler
	bots       *bot.Registry
	match      *match.Match
	// epoch is incremented on every WAITING entry. Timers remember the epoch
	// they were created in for detecting stale firings.
	epoch uint64
	// forced is set when the countdown was started via forceStart.
	forced        bool
	countdownTask schedule.TaskID
	matchTask     schedule.TaskID
	voidTask      schedule.TaskID
	respawns      map[arena.ParticipantID]schedule.TaskID
	// immuneUntil holds the tick until which a participant is immune to
	// damage.
	immuneUntil map[arena.ParticipantID]uint64
	// firstHumanJoin is the tick at which the first currently present human
	// joined.
	firstHumanJoin    uint64
	hasFirstHumanJoin bool
}

func newArenaActor(logger *zap.Logger, config Config, h host.Host, clock schedule.Clock, notifier Notifier,
	flushes *sync.WaitGroup, a *arena.Arena, rng *rand.Rand) *arenaActor {
	actor := &arenaActor{
		logger:      logger,
		config:      config,
		host:        h,
		notifier:    notifier,
		flushes:     flushes,
		commands:    make(chan func()),
		done:        make(chan struct{}),
		ctx:         context.Background(),
		arena:       a,
		sched:       schedule.NewScheduler(),
		ticker:      clock.NewTicker(),
		respawns:    make(map[arena.ParticipantID]schedule.TaskID),
		immuneUntil: make(map[arena.ParticipantID]uint64),
	}
	actor.generators = generator.NewScheduler(logger.Named("generators"), actor.sched, h.Presentation, config.Generators)
	ai := bot.NewAI(logger.Named("bot-ai"), config.Bots, h.Presentation, actor, actor.sched, rng)
	actor.bots = bot.NewRegistry(logger.Named("bots"), config.Bots, h.Presentation, actor.sched, ai, actor.handleBotTerminated)
	actor.scheduleAutoFill()
	return actor
}

// run processes ticks and commands until the context is done.
func (a *arenaActor) run(ctx context.Context) {
	defer close(a.done)
	defer a.ticker.Stop()
	a.ctx = ctx
	for {
		select {
		case <-ctx.Done():
			a.shutdown()
			return
		case <-a.ticker.C():
			a.sched.Tick()
			a.ticker.Done()
		case cmd := <-a.commands:
			cmd()
		}
	}
}

// do runs the function in the actor and waits for its result.
func (a *arenaActor) do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	select {
	case <-ctx.Done():
		return errors.NewContextAbortedError("send arena command")
	case <-a.done:
		return errors.Error{Code: errors.ErrAborted, Kind: errors.KindArenaClosed, Message: "arena closed",
			Details: errors.Details{"arena": a.arena.Name}}
	case a.commands <- func() { result <- fn() }:
	}
	select {
	case <-ctx.Done():
		return errors.NewContextAbortedError("wait for arena command")
	case err := <-result:
		return err
	}
}

func (a *arenaActor) notify(t NotificationType, payload interface{}) {
	a.notifier.Notify(Notification{Arena: a.arena.Name, Type: t, Payload: payload})
}

func (a *arenaActor) setState(from arena.State) {
	a.logger.Debug("state changed", zap.String("from", string(from)), zap.String("to", string(a.arena.State())))
	a.notify(NotifyStateChanged, StateChanged{From: from, To: a.arena.State()})
}

// shutdown releases everything held by the arena. A running match is ended
// first so that its results are persisted.
func (a *arenaActor) shutdown() {
	if a.arena.State() == arena.StateRunning && a.match != nil {
		a.logger.Info("ending running match due to shutdown")
		a.end(nil)
	}
	a.bots.Clear()
	a.generators.Stop()
	a.sched.CancelAll()
	if world, ok := a.arena.World(); ok {
		a.teardownWorld(world)
	}
}

func (a *arenaActor) teardownWorld(world host.WorldHandle) {
	ctx, cancel := context.WithTimeout(context.Background(), seconds(a.config.TeardownTimeoutSeconds))
	defer cancel()
	err := a.host.Worlds.TeardownWorld(ctx, world)
	if err != nil {
		errors.Log(a.logger, errors.Wrap(err, "teardown world", errors.Details{"world": world}))
	}
}

// matchWorld returns the world to convert map locations into.
func (a *arenaActor) matchWorld() host.WorldHandle {
	world, _ := a.arena.World()
	return world
}

// spawnOf returns the spawn of the team in the match world. Teams without
// spawn use the map center.
func (a *arenaActor) spawnOf(team arena.Color) host.Location {
	spawn, ok := a.arena.Map.Spawn(team)
	if !ok {
		spawn = a.arena.Map.Center
	}
	return spawn.In(a.matchWorld())
}

func (a *arenaActor) isImmune(id arena.ParticipantID) bool {
	until, ok := a.immuneUntil[id]
	return ok && a.sched.Now() < until
}

// alive is the match.AliveFunc.
func (a *arenaActor) alive(id arena.ParticipantID) bool {
	p, ok := a.arena.Participant(id)
	if !ok {
		return false
	}
	if p.Kind == arena.KindBot {
		b, ok := a.bots.Get(id)
		if !ok {
			return false
		}
		visual, ok := b.Visual()
		return ok && a.host.Presentation.IsVisualValid(visual)
	}
	return !p.Spectating && a.host.Presentation.IsConnected(p.Visual)
}

func (a *arenaActor) humanCount() int {
	return len(a.arena.ParticipantsOfKind(arena.KindHuman))
}

// enterWaiting cancels all timers and resets the arena into StateWaiting. The
// roster is kept.
func (a *arenaActor) enterWaiting() {
	from := a.arena.State()
	a.generators.Stop()
	a.sched.CancelAll()
	a.arena.EnterWaiting()
	a.epoch++
	a.forced = false
	a.match = nil
	a.countdownTask, a.matchTask, a.voidTask = 0, 0, 0
	a.respawns = make(map[arena.ParticipantID]schedule.TaskID)
	a.immuneUntil = make(map[arena.ParticipantID]uint64)
	if a.humanCount() == 0 {
		a.hasFirstHumanJoin = false
	}
	a.scheduleAutoFill()
	a.setState(from)
}

// join adds the participant and starts the countdown if enough participants
// are present.
func (a *arenaActor) join(p *arena.Participant, eligible func(team *arena.Team) bool) error {
	state := a.arena.State()
	if state != arena.StateWaiting && state != arena.StateStarting {
		return errors.NewInvalidTransitionError("join", string(state))
	}
	err := a.arena.Join(p, eligible)
	if err != nil {
		return err
	}
	if p.Kind == arena.KindHuman && !a.hasFirstHumanJoin {
		a.hasFirstHumanJoin = true
		a.firstHumanJoin = a.sched.Now()
	}
	a.logger.Debug("participant joined", zap.String("participant", p.Name), zap.String("team", string(p.Team)))
	a.notify(NotifyParticipantJoined, ParticipantJoined{
		Participant: p.ID,
		Name:        p.Name,
		Kind:        p.Kind,
		Team:        p.Team,
	})
	if a.arena.State() == arena.StateWaiting && a.arena.Size() >= a.arena.Map.MinPlayers {
		a.beginCountdown(false)
	}
	return nil
}

// leave removes the participant in any state.
func (a *arenaActor) leave(id arena.ParticipantID) error {
	p, ok := a.arena.Participant(id)
	if !ok {
		return errors.NewNotFoundError(errors.KindUnknownParticipant, "unknown participant",
			errors.Details{"participant": id})
	}
	state := a.arena.State()
	team, hasTeam := a.arena.TeamOf(id)
	if task, ok := a.respawns[id]; ok {
		a.sched.Cancel(task)
		delete(a.respawns, id)
	}
	delete(a.immuneUntil, id)
	if p.Kind == arena.KindBot {
		a.bots.Remove(id)
	} else if state == arena.StateRunning || state == arena.StateEnding {
		a.host.Presentation.Restore(p.Visual, a.config.Lobby)
	}
	_, err := a.arena.Leave(id)
	if err != nil {
		return errors.Wrap(err, "leave arena", nil)
	}
	a.logger.Debug("participant left", zap.String("participant", p.Name))
	a.notify(NotifyParticipantLeft, ParticipantLeft{Participant: p.ID, Name: p.Name, Team: p.Team})
	switch state {
	case arena.StateWaiting, arena.StateStarting:
		if a.humanCount() == 0 {
			a.hasFirstHumanJoin = false
			for _, botParticipant := range a.arena.ParticipantsOfKind(arena.KindBot) {
				a.bots.Remove(botParticipant.ID)
				_, _ = a.arena.Leave(botParticipant.ID)
				a.notify(NotifyParticipantLeft, ParticipantLeft{
					Participant: botParticipant.ID,
					Name:        botParticipant.Name,
					Team:        botParticipant.Team,
				})
			}
		}
		if state == arena.StateStarting &&
			(a.arena.Size() == 0 || (!a.forced && a.arena.Size() < a.arena.Map.MinPlayers)) {
			a.logger.Debug("not enough participants, aborting countdown")
			a.enterWaiting()
		}
	case arena.StateRunning:
		if hasTeam {
			a.checkTeam(team)
		}
	}
	return nil
}

// beginCountdown transitions into StateStarting and starts the countdown.
func (a *arenaActor) beginCountdown(forced bool) {
	from := a.arena.State()
	err := a.arena.BeginCountdown(a.config.CountdownSeconds)
	if err != nil {
		errors.Log(a.logger, errors.Wrap(err, "begin countdown", nil))
		return
	}
	a.forced = forced
	a.setState(from)
	a.notify(NotifyCountdown, Countdown{Seconds: a.arena.Countdown()})
	epoch := a.epoch
	a.countdownTask = a.sched.Every(schedule.TicksPerSecond, schedule.TicksPerSecond, func() {
		if a.epoch != epoch || a.arena.State() != arena.StateStarting {
			// Stale.
			a.sched.Cancel(a.countdownTask)
			return
		}
		remaining := a.arena.DecrementCountdown()
		if remaining > 0 {
			if remaining <= 10 || remaining%10 == 0 {
				a.notify(NotifyCountdown, Countdown{Seconds: remaining})
			}
			return
		}
		a.sched.Cancel(a.countdownTask)
		a.start()
	})
}

// start provisions the match world and all visuals before entering
// StateRunning. Provisioning failures return the arena to StateWaiting with
// the roster kept.
func (a *arenaActor) start() {
	ctx, cancel := context.WithTimeout(a.ctx, seconds(a.config.ProvisionTimeoutSeconds))
	defer cancel()
	world, err := a.host.Worlds.ProvisionMatchWorld(ctx, a.arena.Map.Name)
	if err != nil {
		a.abortProvisioning(errors.Wrap(err, "provision match world", errors.Details{"map": a.arena.Map.Name}))
		return
	}
	err = a.generators.Start(world, a.arena.Map)
	if err != nil {
		a.teardownWorld(world)
		a.abortProvisioning(errors.Wrap(err, "start generators", nil))
		return
	}
	for _, p := range a.arena.ParticipantsOfKind(arena.KindBot) {
		b, ok := a.bots.Get(p.ID)
		if !ok {
			_, _ = a.arena.Leave(p.ID)
			continue
		}
		b.Team = p.Team
		spawn, _ := a.arena.Map.Spawn(p.Team)
		err = a.bots.Materialize(p.ID, spawn.In(world))
		if err != nil {
			errors.Log(a.logger, errors.Wrap(err, "materialize bot", errors.Details{"bot": p.Name}))
			a.removeBot(p.ID)
		}
	}
	protectedUntil := a.sched.Now() + uint64(schedule.Seconds(a.config.VoidProtectionSeconds))
	for _, p := range a.arena.ParticipantsOfKind(arena.KindHuman) {
		spawn, ok := a.arena.Map.Spawn(p.Team)
		if !ok {
			spawn = a.arena.Map.Center
		}
		a.host.Presentation.Teleport(p.Visual, spawn.In(world))
		a.immuneUntil[p.ID] = protectedUntil
	}
	from := a.arena.State()
	err = a.arena.Start(world)
	if err != nil {
		errors.Log(a.logger, errors.Wrap(err, "start arena", nil))
		a.removeBots()
		a.teardownWorld(world)
		a.enterWaiting()
		return
	}
	a.match = match.New(a.arena)
	a.matchTask = a.sched.Every(a.config.EvaluateInterval, a.config.EvaluateInterval, a.evaluate)
	a.voidTask = a.sched.Every(a.config.VoidCheckInterval, a.config.VoidCheckInterval, a.checkVoid)
	a.logger.Info("match started", zap.String("world", string(world)), zap.Int("participants", a.arena.Size()))
	a.setState(from)
}

// removeBot despawns the bot and removes it from the roster.
func (a *arenaActor) removeBot(id arena.ParticipantID) {
	a.bots.Remove(id)
	_, _ = a.arena.Leave(id)
}

// removeBots removes all bots from the roster.
func (a *arenaActor) removeBots() {
	for _, p := range a.arena.ParticipantsOfKind(arena.KindBot) {
		a.removeBot(p.ID)
	}
	a.bots.Clear()
}

func (a *arenaActor) abortProvisioning(err error) {
	errors.Log(a.logger, err)
	a.enterWaiting()
	a.notify(NotifyProvisionFailed, ProvisionFailed{Reason: "no match world available"})
}

// evaluate runs the periodic win-condition evaluation.
func (a *arenaActor) evaluate() {
	if a.arena.State() != arena.StateRunning || a.match == nil {
		return
	}
	a.arena.IncrementElapsed()
	outcome := a.match.Evaluate(a.alive)
	for _, team := range outcome.Eliminated {
		if a.match.Participated(team.Color) {
			a.notify(NotifyTeamEliminated, TeamEliminated{Team: team.Color})
		}
	}
	if outcome.Ended {
		a.end(outcome.Winner)
	}
}

// checkTeam eliminates the team immediately if none of its members is alive.
func (a *arenaActor) checkTeam(team *arena.Team) {
	if a.match == nil {
		return
	}
	if match.CheckTeam(team, a.alive) && a.match.Participated(team.Color) {
		a.logger.Debug("team eliminated", zap.String("team", string(team.Color)))
		a.notify(NotifyTeamEliminated, TeamEliminated{Team: team.Color})
	}
}

// checkVoid kills all humans below the void height.
func (a *arenaActor) checkVoid() {
	if a.arena.State() != arena.StateRunning {
		return
	}
	for _, p := range a.arena.ParticipantsOfKind(arena.KindHuman) {
		if p.Spectating || a.isImmune(p.ID) {
			continue
		}
		if _, respawning := a.respawns[p.ID]; respawning {
			continue
		}
		location, ok := a.host.Presentation.VisualLocation(p.Visual)
		if !ok || location.World != a.matchWorld() || location.Y >= a.arena.Map.VoidY {
			continue
		}
		a.logger.Debug("participant fell into void", zap.String("participant", p.Name))
		a.host.Presentation.ApplyDamage(p.Visual, host.LethalDamage)
	}
}

// end transitions into StateEnding with the given winner and schedules the
// reset.
func (a *arenaActor) end(winner *arena.Team) {
	from := a.arena.State()
	err := a.arena.End()
	if err != nil {
		errors.Log(a.logger, errors.Wrap(err, "end match", nil))
		return
	}
	a.match.End()
	a.sched.Cancel(a.matchTask)
	a.sched.Cancel(a.voidTask)
	for id, task := range a.respawns {
		a.sched.Cancel(task)
		delete(a.respawns, id)
	}
	a.generators.Stop()
	a.bots.Clear()
	var winnerColor *arena.Color
	if winner != nil {
		color := winner.Color
		winnerColor = &color
	}
	results := make([]host.MatchResult, 0, a.arena.Size())
	for _, p := range a.arena.Participants() {
		result := host.MatchResult{
			ParticipantID: string(p.ID),
			Name:          p.Name,
			Counters:      a.match.Counters(p.ID),
			Won:           winnerColor != nil && p.Team == *winnerColor,
		}
		results = append(results, result)
		if p.Kind == arena.KindHuman {
			a.persistResult(result)
		}
	}
	if winnerColor != nil {
		a.logger.Info("match ended", zap.String("winner", string(*winnerColor)))
	} else {
		a.logger.Info("match ended without winner")
	}
	a.setState(from)
	a.notify(NotifyMatchEnded, MatchEnded{Winner: winnerColor, Results: results})
	epoch := a.epoch
	a.sched.After(a.config.EndingGraceTicks, func() {
		if a.epoch != epoch || a.arena.State() != arena.StateEnding {
			return
		}
		a.reset()
	})
}

// persistResult persists the result without blocking the actor.
func (a *arenaActor) persistResult(result host.MatchResult) {
	if a.host.Stats == nil {
		return
	}
	a.flushes.Add(1)
	go func() {
		defer a.flushes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), seconds(a.config.StatsTimeoutSeconds))
		defer cancel()
		err := a.host.Stats.PersistMatchResult(ctx, result)
		if err != nil {
			errors.Log(a.logger, errors.Wrap(err, "persist match result",
				errors.Details{"participant": result.ParticipantID}))
		}
	}()
}

// reset sends everybody to the lobby, tears down the match world and returns
// to StateWaiting with an empty roster.
func (a *arenaActor) reset() {
	for _, p := range a.arena.Participants() {
		if p.Kind == arena.KindHuman {
			a.host.Presentation.Restore(p.Visual, a.config.Lobby)
		}
	}
	if world, ok := a.arena.World(); ok {
		a.teardownWorld(world)
	}
	a.bots.Clear()
	for _, p := range a.arena.Participants() {
		_, _ = a.arena.Leave(p.ID)
	}
	a.enterWaiting()
}

// die handles the death of a human.
func (a *arenaActor) die(p *arena.Participant, killer *arena.ParticipantID) {
	team, ok := a.arena.TeamOf(p.ID)
	if !ok {
		return
	}
	final := !team.BedAlive()
	a.match.RecordDeath(p.ID, killer, final)
	a.notify(NotifyParticipantDied, ParticipantDied{Victim: p.ID, Killer: killer, Final: final})
	if !final {
		a.scheduleRespawn(p)
		return
	}
	p.Spectating = true
	a.host.Presentation.SetSpectator(p.Visual, a.arena.Map.Center.In(a.matchWorld()))
	a.host.Presentation.ClearItems(p.Visual)
	a.notify(NotifyParticipantEliminated, ParticipantEliminated{Participant: p.ID})
	a.checkTeam(team)
}

// scheduleRespawn counts down once per second and restores the participant at
// its team spawn.
func (a *arenaActor) scheduleRespawn(p *arena.Participant) {
	epoch := a.epoch
	id := p.ID
	remaining := a.config.RespawnSeconds
	a.notify(NotifyRespawnCountdown, RespawnCountdown{Participant: id, Seconds: remaining})
	var task schedule.TaskID
	task = a.sched.Every(schedule.TicksPerSecond, schedule.TicksPerSecond, func() {
		current, ok := a.arena.Participant(id)
		if a.epoch != epoch || a.arena.State() != arena.StateRunning || !ok || current.Spectating {
			// Stale.
			a.sched.Cancel(task)
			delete(a.respawns, id)
			return
		}
		remaining--
		if remaining > 0 {
			a.notify(NotifyRespawnCountdown, RespawnCountdown{Participant: id, Seconds: remaining})
			return
		}
		a.sched.Cancel(task)
		delete(a.respawns, id)
		a.host.Presentation.Restore(current.Visual, a.spawnOf(current.Team))
		a.immuneUntil[id] = a.sched.Now() + uint64(schedule.Seconds(a.config.VoidProtectionSeconds))
		a.notify(NotifyParticipantRespawned, ParticipantRespawned{Participant: id})
	})
	a.respawns[id] = task
}

// killBot drops the resources of the bot, credits the killer and removes the
// bot.
func (a *arenaActor) killBot(p *arena.Participant, killer *arena.ParticipantID) {
	team, hasTeam := a.arena.TeamOf(p.ID)
	final := !hasTeam || !team.BedAlive()
	if b, ok := a.bots.Get(p.ID); ok {
		if visual, ok := b.Visual(); ok {
			if location, ok := a.host.Presentation.VisualLocation(visual); ok {
				for _, resource := range host.ResourceTypes {
					if amount := b.Resources[resource]; amount > 0 {
						a.host.Presentation.PlaceItem(host.ItemStack{Resource: resource, Amount: amount}, location)
					}
				}
			}
		}
	}
	a.match.RecordDeath(p.ID, killer, final)
	a.notify(NotifyParticipantDied, ParticipantDied{Victim: p.ID, Killer: killer, Final: final})
	a.bots.Remove(p.ID)
	_, _ = a.arena.Leave(p.ID)
	a.notify(NotifyParticipantLeft, ParticipantLeft{Participant: p.ID, Name: p.Name, Team: p.Team})
	if hasTeam {
		a.checkTeam(team)
	}
}

// handleBotTerminated removes a bot whose AI stopped because its visual
// vanished.
func (a *arenaActor) handleBotTerminated(b *bot.Bot) {
	p, ok := a.arena.Participant(b.ID)
	if !ok {
		return
	}
	team, hasTeam := a.arena.TeamOf(b.ID)
	_, _ = a.arena.Leave(b.ID)
	a.notify(NotifyParticipantLeft, ParticipantLeft{Participant: p.ID, Name: p.Name, Team: p.Team})
	if hasTeam && a.arena.State() == arena.StateRunning {
		a.checkTeam(team)
	}
}

// scheduleAutoFill starts the periodic auto-fill check for StateWaiting.
func (a *arenaActor) scheduleAutoFill() {
	if !a.config.Bots.Enabled {
		return
	}
	a.sched.Every(a.config.AutoFillInterval, a.config.AutoFillInterval, a.autoFill)
}

func (a *arenaActor) autoFill() {
	if a.arena.State() != arena.StateWaiting || !a.hasFirstHumanJoin || a.humanCount() == 0 {
		return
	}
	if a.sched.Now()-a.firstHumanJoin < uint64(schedule.Seconds(a.config.Bots.AutoFillDelay)) {
		return
	}
	count := a.arena.MaxPlayers() - a.arena.Size()
	if botsLeft := a.config.Bots.MaxBotsPerGame - a.bots.Len(); botsLeft < count {
		count = botsLeft
	}
	if count <= 0 {
		return
	}
	added := a.addBots(count)
	a.logger.Debug("auto-filled bots", zap.Int("added", added))
}

// addBots adds up to n bots to teams with spawns and returns the number of
// added bots.
func (a *arenaActor) addBots(n int) int {
	added := 0
	for i := 0; i < n; i++ {
		if a.arena.IsFull() {
			break
		}
		b := a.bots.Create(a.config.Bots.Difficulty)
		p := b.Participant()
		err := a.join(p, func(team *arena.Team) bool {
			_, ok := a.arena.Map.Spawn(team.Color)
			return ok
		})
		if err != nil {
			a.bots.Remove(b.ID)
			a.logger.Debug("cannot add bot", zap.Error(err))
			break
		}
		b.Team = p.Team
		added++
	}
	return added
}
