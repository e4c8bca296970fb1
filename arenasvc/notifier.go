package arenasvc

import (
	"fmt"
	"github.com/gobuffalo/nulls"
	"github.com/lefinal/bedwars-server/director"
	"github.com/lefinal/bedwars-server/event"
	"github.com/lefinal/bedwars-server/logging"
	"github.com/lefinal/bedwars-server/portal"
	"go.uber.org/zap"
)

// notificationBuffer is the amount of notifications to buffer before dropping
// new ones.
const notificationBuffer = 512

// Notifier implements director.Notifier by queueing notifications for being
// published by the service returned from NewArenaService.
type Notifier struct {
	logger        *zap.Logger
	notifications chan director.Notification
}

// NewNotifier creates a new Notifier. Pass it to director.New as well as to
// NewArenaService.
func NewNotifier(logger *zap.Logger) *Notifier {
	return &Notifier{
		logger:        logger,
		notifications: make(chan director.Notification, notificationBuffer),
	}
}

// Notify queues the notification. It never blocks, so notifications are
// dropped if nobody publishes them.
func (n *Notifier) Notify(notification director.Notification) {
	select {
	case n.notifications <- notification:
	default:
		n.logger.Warn("dropping notification",
			zap.String("arena", notification.Arena),
			zap.String("type", string(notification.Type)),
			logging.OmitPublish())
	}
}

// eventTopic returns the topic to publish arena events of the given type to.
func eventTopic(arenaName string, t director.NotificationType) portal.Topic {
	return portal.Topic(fmt.Sprintf("%s/arenas/%s/events/%s", portal.BaseTopic, arenaName, t))
}

func optionalID[T ~string](id *T) nulls.String {
	if id == nil {
		return nulls.String{}
	}
	return nulls.NewString(string(*id))
}

// eventFromNotification converts the notification payload to its event
// payload for publishing.
func eventFromNotification(n director.Notification) (interface{}, bool) {
	switch p := n.Payload.(type) {
	case director.StateChanged:
		return event.StateChangedEvent{Arena: n.Arena, From: string(p.From), To: string(p.To)}, true
	case director.Countdown:
		return event.CountdownEvent{Arena: n.Arena, Seconds: p.Seconds}, true
	case director.ParticipantJoined:
		return event.ParticipantJoinedEvent{
			Arena:       n.Arena,
			Participant: string(p.Participant),
			Name:        p.Name,
			Kind:        string(p.Kind),
			Team:        string(p.Team),
		}, true
	case director.ParticipantLeft:
		return event.ParticipantLeftEvent{
			Arena:       n.Arena,
			Participant: string(p.Participant),
			Name:        p.Name,
			Team:        string(p.Team),
		}, true
	case director.ProvisionFailed:
		return event.ProvisionFailedEvent{Arena: n.Arena, Reason: p.Reason}, true
	case director.BedDestroyed:
		return event.BedDestroyedEvent{Arena: n.Arena, Team: string(p.Team), Destroyer: string(p.Destroyer)}, true
	case director.ParticipantDied:
		return event.ParticipantDiedEvent{
			Arena:  n.Arena,
			Victim: string(p.Victim),
			Killer: optionalID(p.Killer),
			Final:  p.Final,
		}, true
	case director.RespawnCountdown:
		return event.RespawnCountdownEvent{Arena: n.Arena, Participant: string(p.Participant), Seconds: p.Seconds}, true
	case director.ParticipantRespawned:
		return event.ParticipantEvent{Arena: n.Arena, Participant: string(p.Participant)}, true
	case director.ParticipantEliminated:
		return event.ParticipantEvent{Arena: n.Arena, Participant: string(p.Participant)}, true
	case director.TeamEliminated:
		return event.TeamEliminatedEvent{Arena: n.Arena, Team: string(p.Team)}, true
	case director.MatchEnded:
		e := event.MatchEndedEvent{
			Arena:   n.Arena,
			Winner:  optionalID(p.Winner),
			Results: make([]event.MatchResultEntry, 0, len(p.Results)),
		}
		for _, r := range p.Results {
			e.Results = append(e.Results, event.MatchResultEntry{
				Participant:   r.ParticipantID,
				Name:          r.Name,
				Kills:         r.Counters.Kills,
				Deaths:        r.Counters.Deaths,
				FinalKills:    r.Counters.FinalKills,
				BedsDestroyed: r.Counters.BedsDestroyed,
				Won:           r.Won,
			})
		}
		return e, true
	}
	return nil, false
}
