package bot

import (
	"fmt"
	"github.com/lefinal/bedwars-server/arena"
	"github.com/lefinal/bedwars-server/errors"
	"github.com/lefinal/bedwars-server/host"
	"github.com/lefinal/bedwars-server/schedule"
	"go.uber.org/zap"
)

// names is the pool of preferred bot names.
var names = []string{
	"Bot_Alpha",
	"Bot_Beta",
	"Bot_Gamma",
	"Bot_Delta",
	"Bot_Epsilon",
	"Bot_Zeta",
	"Bot_Eta",
	"Bot_Theta",
}

// TerminatedFunc is called when the AI of a bot stopped because its visual
// became invalid. The bot is already removed from the Registry.
type TerminatedFunc func(b *Bot)

// Registry holds the bots of one arena. It is not safe for concurrent use and
// must be used by the goroutine owning the scheduler.
type Registry struct {
	logger       *zap.Logger
	config       Config
	presentation host.Presentation
	sched        *schedule.Scheduler
	ai           *AI
	onTerminated TerminatedFunc
	bots         map[arena.ParticipantID]*Bot
	// order holds bot ids in creation order.
	order []arena.ParticipantID
	// usedNames holds the names of all registered bots.
	usedNames map[string]struct{}
}

// NewRegistry creates a new Registry.
func NewRegistry(logger *zap.Logger, config Config, presentation host.Presentation, sched *schedule.Scheduler,
	ai *AI, onTerminated TerminatedFunc) *Registry {
	return &Registry{
		logger:       logger,
		config:       config,
		presentation: presentation,
		sched:        sched,
		ai:           ai,
		onTerminated: onTerminated,
		bots:         make(map[arena.ParticipantID]*Bot),
		usedNames:    make(map[string]struct{}),
	}
}

// nextName returns the first unused name from the pool or a numbered fallback.
func (r *Registry) nextName() string {
	for _, name := range names {
		if _, ok := r.usedNames[name]; !ok {
			return name
		}
	}
	for i := 1; ; i++ {
		name := fmt.Sprintf("Bot_%d", i)
		if _, ok := r.usedNames[name]; !ok {
			return name
		}
	}
}

// Create registers a new bot with the given difficulty. The bot is in
// PhaseRegistered and has no team until it joined the roster.
func (r *Registry) Create(difficulty Difficulty) *Bot {
	name := r.nextName()
	b := newBot(arena.NewParticipantID(), name, difficulty, r.config.settingsFor(difficulty).Skills)
	r.bots[b.ID] = b
	r.order = append(r.order, b.ID)
	r.usedNames[name] = struct{}{}
	return b
}

// Get returns the bot with the given id.
func (r *Registry) Get(id arena.ParticipantID) (*Bot, bool) {
	b, ok := r.bots[id]
	return b, ok
}

// Bots returns all bots in creation order.
func (r *Registry) Bots() []*Bot {
	bots := make([]*Bot, 0, len(r.order))
	for _, id := range r.order {
		bots = append(bots, r.bots[id])
	}
	return bots
}

// Len returns the number of registered bots.
func (r *Registry) Len() int {
	return len(r.bots)
}

// Materialize spawns the visual of the bot at the given location and starts
// its AI.
func (r *Registry) Materialize(id arena.ParticipantID, location host.Location) error {
	b, ok := r.bots[id]
	if !ok {
		return errors.NewNotFoundError(errors.KindUnknownParticipant, "unknown bot", errors.Details{"bot": id})
	}
	if b.Phase() == PhaseMaterialized {
		return errors.NewInvalidTransitionError("materialize bot", string(b.Phase()))
	}
	visual, err := r.presentation.SpawnParticipantVisual(b.Participant().Info(), location)
	if err != nil {
		return errors.Wrap(err, "spawn bot visual", errors.Details{"bot": b.Name})
	}
	b.presence = Materialized{Visual: visual}
	now := r.sched.Now()
	b.lastModeSwitch = now
	b.gatherStart = now
	b.aiTask = r.sched.Every(r.config.UpdateRate, r.config.UpdateRate, func() {
		if r.ai.Step(b) {
			return
		}
		r.logger.Debug("bot lost visual", zap.String("bot", b.Name))
		r.Remove(b.ID)
		if r.onTerminated != nil {
			r.onTerminated(b)
		}
	})
	r.logger.Debug("bot materialized", zap.String("bot", b.Name), zap.String("team", string(b.Team)))
	return nil
}

// Remove stops the AI of the bot, destroys its visual and unregisters it.
func (r *Registry) Remove(id arena.ParticipantID) (*Bot, bool) {
	b, ok := r.bots[id]
	if !ok {
		return nil, false
	}
	if visual, ok := b.Visual(); ok {
		r.sched.Cancel(b.aiTask)
		r.presentation.DestroyVisual(visual)
	}
	b.presence = Registered{}
	delete(r.bots, id)
	delete(r.usedNames, b.Name)
	for i, other := range r.order {
		if other == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return b, true
}

// Clear removes all bots.
func (r *Registry) Clear() {
	for _, b := range r.Bots() {
		r.Remove(b.ID)
	}
}
