// Package arenasvc connects the director with the host via the portal. It
// handles arena commands and publishes arena events.
package arenasvc

import (
	"context"
	"github.com/gobuffalo/nulls"
	"github.com/lefinal/bedwars-server/arena"
	"github.com/lefinal/bedwars-server/director"
	"github.com/lefinal/bedwars-server/errors"
	"github.com/lefinal/bedwars-server/event"
	"github.com/lefinal/bedwars-server/host"
	"github.com/lefinal/bedwars-server/portal"
	"github.com/lefinal/bedwars-server/service"
	"go.uber.org/zap"
	"sync"
)

// Command names as used in event.CommandResultEvent.
const (
	commandJoin         = "join"
	commandLeave        = "leave"
	commandForceStart   = "force-start"
	commandForceEnd     = "force-end"
	commandBedDestroyed = "bed-destroyed"
	commandDeath        = "death"
	commandBotKilled    = "bot-killed"
	commandBlockPlaced  = "block-placed"
	commandBlockBroken  = "block-broken"
	commandAddBots      = "add-bots"
)

// Topics.
const (
	topicCommandPrefix = portal.BaseTopic + "/arenas/commands/"
	// topicResults is where results for all commands are published to.
	topicResults portal.Topic = portal.BaseTopic + "/arenas/results"
	// topicReport is used for requesting snapshots of all arenas to
	// topicSnapshots.
	topicReport    portal.Topic = portal.BaseTopic + "/arenas/report"
	topicSnapshots portal.Topic = portal.BaseTopic + "/arenas/snapshots"
)

func commandTopic(command string) portal.Topic {
	return portal.Topic(topicCommandPrefix + command)
}

// Director is the part of director.Director that is needed by the service.
type Director interface {
	RequestJoin(ctx context.Context, arenaName string, human director.Human) (arena.Color, error)
	RequestLeave(ctx context.Context, arenaName string, participant arena.ParticipantID) error
	ForceStart(ctx context.Context, arenaName string) error
	ForceEnd(ctx context.Context, arenaName string) error
	ReportBedDestroyed(ctx context.Context, arenaName string, team arena.Color, actor arena.ParticipantID) error
	ReportDeath(ctx context.Context, arenaName string, victim arena.ParticipantID, killer *arena.ParticipantID) error
	ReportBotKilled(ctx context.Context, arenaName string, botID arena.ParticipantID, actor *arena.ParticipantID) error
	ReportBlockPlaced(ctx context.Context, arenaName string, pos arena.BlockPos) error
	ReportBlockBroken(ctx context.Context, arenaName string, actor arena.ParticipantID, pos arena.BlockPos) error
	AddBots(ctx context.Context, arenaName string, n int) (int, error)
	Snapshots(ctx context.Context) ([]arena.Snapshot, error)
}

// arenaService handles commands for the Director and publishes the
// notifications from the Notifier.
type arenaService struct {
	logger *zap.Logger
	// portal to use for communication.
	portal   portal.Portal
	director Director
	notifier *Notifier
}

// NewArenaService creates a new service.Service ready to run.
func NewArenaService(logger *zap.Logger, portal portal.Portal, director Director, notifier *Notifier) service.Service {
	return &arenaService{
		logger:   logger,
		portal:   portal,
		director: director,
		notifier: notifier,
	}
}

// handle subscribes to the topic and calls the handler for each received
// payload until the context is done.
func handle[payloadT any](ctx context.Context, wg *sync.WaitGroup, p portal.Portal, topic portal.Topic,
	handler func(ctx context.Context, payload payloadT)) {
	newsletter := portal.Subscribe[payloadT](ctx, p, topic)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for e := range newsletter.Receive {
			handler(ctx, e.Payload)
		}
	}()
}

// Run the service until the given context.Context is done.
func (s *arenaService) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	handle(ctx, &wg, s.portal, commandTopic(commandJoin), s.handleJoin)
	handle(ctx, &wg, s.portal, commandTopic(commandLeave), s.handleLeave)
	handle(ctx, &wg, s.portal, commandTopic(commandForceStart), s.handleForceStart)
	handle(ctx, &wg, s.portal, commandTopic(commandForceEnd), s.handleForceEnd)
	handle(ctx, &wg, s.portal, commandTopic(commandBedDestroyed), s.handleBedDestroyed)
	handle(ctx, &wg, s.portal, commandTopic(commandDeath), s.handleDeath)
	handle(ctx, &wg, s.portal, commandTopic(commandBotKilled), s.handleBotKilled)
	handle(ctx, &wg, s.portal, commandTopic(commandBlockPlaced), s.handleBlockPlaced)
	handle(ctx, &wg, s.portal, commandTopic(commandBlockBroken), s.handleBlockBroken)
	handle(ctx, &wg, s.portal, commandTopic(commandAddBots), s.handleAddBots)
	handle(ctx, &wg, s.portal, topicReport, s.handleReport)
	// Publish notifications.
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.publishNotifications(ctx)
	}()
	wg.Wait()
	return nil
}

// publishNotifications publishes all notifications from the Notifier until the
// context is done.
func (s *arenaService) publishNotifications(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-s.notifier.notifications:
			payload, ok := eventFromNotification(n)
			if !ok {
				errors.Log(s.logger, errors.NewInternalError("unsupported notification payload",
					errors.Details{"arena": n.Arena, "type": n.Type}))
				continue
			}
			s.portal.Publish(ctx, eventTopic(n.Arena, n.Type), payload)
		}
	}
}

// publishResult publishes the result of the command to topicResults. Errors
// that are not caused by the host are logged.
func (s *arenaService) publishResult(ctx context.Context, result event.CommandResultEvent, err error) {
	if err != nil {
		err = errors.Wrap(err, "handle command", errors.Details{"command": result.Command, "arena": result.Arena})
		if !errors.BlameUser(err) {
			errors.Log(s.logger, err)
		} else {
			s.logger.Debug("command rejected", zap.Error(err))
		}
		payload := event.ErrorEventPayloadFromError(err)
		result.Error = &payload
	}
	result.OK = err == nil
	s.portal.Publish(ctx, topicResults, result)
}

func optionalParticipant(id nulls.String) *arena.ParticipantID {
	if !id.Valid {
		return nil
	}
	p := arena.ParticipantID(id.String)
	return &p
}

func (s *arenaService) handleJoin(ctx context.Context, c event.JoinCommand) {
	result := event.CommandResultEvent{RequestID: c.RequestID, Command: commandJoin, Arena: c.Arena}
	var err error
	if c.Participant == "" {
		err = errors.NewBadRequestError(errors.KindUnknownParticipant, "missing participant", nil)
	} else {
		var team arena.Color
		team, err = s.director.RequestJoin(ctx, c.Arena, director.Human{
			ID:     arena.ParticipantID(c.Participant),
			Name:   c.Name,
			Visual: host.VisualHandle(c.Visual),
		})
		if err == nil {
			result.Team = nulls.NewString(string(team))
		}
	}
	s.publishResult(ctx, result, err)
}

func (s *arenaService) handleLeave(ctx context.Context, c event.LeaveCommand) {
	err := s.director.RequestLeave(ctx, c.Arena, arena.ParticipantID(c.Participant))
	s.publishResult(ctx, event.CommandResultEvent{RequestID: c.RequestID, Command: commandLeave, Arena: c.Arena}, err)
}

func (s *arenaService) handleForceStart(ctx context.Context, c event.ArenaCommand) {
	err := s.director.ForceStart(ctx, c.Arena)
	s.publishResult(ctx, event.CommandResultEvent{RequestID: c.RequestID, Command: commandForceStart, Arena: c.Arena}, err)
}

func (s *arenaService) handleForceEnd(ctx context.Context, c event.ArenaCommand) {
	err := s.director.ForceEnd(ctx, c.Arena)
	s.publishResult(ctx, event.CommandResultEvent{RequestID: c.RequestID, Command: commandForceEnd, Arena: c.Arena}, err)
}

func (s *arenaService) handleBedDestroyed(ctx context.Context, c event.BedDestroyedCommand) {
	err := s.director.ReportBedDestroyed(ctx, c.Arena, arena.Color(c.Team), arena.ParticipantID(c.Actor))
	s.publishResult(ctx, event.CommandResultEvent{RequestID: c.RequestID, Command: commandBedDestroyed, Arena: c.Arena}, err)
}

func (s *arenaService) handleDeath(ctx context.Context, c event.DeathCommand) {
	err := s.director.ReportDeath(ctx, c.Arena, arena.ParticipantID(c.Victim), optionalParticipant(c.Killer))
	s.publishResult(ctx, event.CommandResultEvent{RequestID: c.RequestID, Command: commandDeath, Arena: c.Arena}, err)
}

func (s *arenaService) handleBotKilled(ctx context.Context, c event.BotKilledCommand) {
	err := s.director.ReportBotKilled(ctx, c.Arena, arena.ParticipantID(c.Bot), optionalParticipant(c.Actor))
	s.publishResult(ctx, event.CommandResultEvent{RequestID: c.RequestID, Command: commandBotKilled, Arena: c.Arena}, err)
}

func (s *arenaService) handleBlockPlaced(ctx context.Context, c event.BlockCommand) {
	err := s.director.ReportBlockPlaced(ctx, c.Arena, c.Pos)
	s.publishResult(ctx, event.CommandResultEvent{RequestID: c.RequestID, Command: commandBlockPlaced, Arena: c.Arena}, err)
}

func (s *arenaService) handleBlockBroken(ctx context.Context, c event.BlockCommand) {
	err := s.director.ReportBlockBroken(ctx, c.Arena, arena.ParticipantID(c.Actor), c.Pos)
	s.publishResult(ctx, event.CommandResultEvent{RequestID: c.RequestID, Command: commandBlockBroken, Arena: c.Arena}, err)
}

func (s *arenaService) handleAddBots(ctx context.Context, c event.AddBotsCommand) {
	result := event.CommandResultEvent{RequestID: c.RequestID, Command: commandAddBots, Arena: c.Arena}
	added, err := s.director.AddBots(ctx, c.Arena, c.Count)
	if err == nil {
		result.Added = nulls.NewInt(added)
	}
	s.publishResult(ctx, result, err)
}

// handleReport publishes snapshots of all arenas to topicSnapshots.
func (s *arenaService) handleReport(ctx context.Context, _ event.EmptyEvent) {
	snapshots, err := s.director.Snapshots(ctx)
	if err != nil {
		errors.Log(s.logger, errors.Wrap(err, "snapshots", nil))
		return
	}
	s.portal.Publish(ctx, topicSnapshots, event.ArenaSnapshotsEvent{Arenas: snapshots})
}
