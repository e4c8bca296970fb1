package store

import (
	"context"
	"github.com/doug-martin/goqu/v9"
	"github.com/gobuffalo/nulls"
	"github.com/lefinal/bedwars-server/errors"
	"github.com/lefinal/bedwars-server/host"
	"time"
)

// PlayerStats are the accumulated results of a human participant.
type PlayerStats struct {
	// ID is the participant id assigned by the host.
	ID string
	// Name is the last known display name.
	Name          nulls.String
	Kills         int
	Deaths        int
	FinalKills    int
	BedsDestroyed int
	Wins          int
	Losses        int
	GamesPlayed   int
	// LastPlayed is the time of the last persisted match result.
	LastPlayed nulls.Time
}

// persistMatchResultQuery builds the upsert query for the given result. All
// counters are added to the existing ones.
func persistMatchResultQuery(dialect goqu.DialectWrapper, result host.MatchResult, playedAt time.Time) (string, error) {
	wins, losses := 0, 1
	if result.Won {
		wins, losses = 1, 0
	}
	q, _, err := dialect.Insert(goqu.T("player_stats")).Rows(goqu.Record{
		"id":             result.ParticipantID,
		"name":           result.Name,
		"kills":          result.Counters.Kills,
		"deaths":         result.Counters.Deaths,
		"final_kills":    result.Counters.FinalKills,
		"beds_destroyed": result.Counters.BedsDestroyed,
		"wins":           wins,
		"losses":         losses,
		"games_played":   1,
		"last_played":    playedAt.UTC(),
	}).OnConflict(goqu.DoUpdate("id", goqu.Record{
		"name":           goqu.L("EXCLUDED.name"),
		"kills":          goqu.L("player_stats.kills + EXCLUDED.kills"),
		"deaths":         goqu.L("player_stats.deaths + EXCLUDED.deaths"),
		"final_kills":    goqu.L("player_stats.final_kills + EXCLUDED.final_kills"),
		"beds_destroyed": goqu.L("player_stats.beds_destroyed + EXCLUDED.beds_destroyed"),
		"wins":           goqu.L("player_stats.wins + EXCLUDED.wins"),
		"losses":         goqu.L("player_stats.losses + EXCLUDED.losses"),
		"games_played":   goqu.L("player_stats.games_played + EXCLUDED.games_played"),
		"last_played":    goqu.L("EXCLUDED.last_played"),
	})).ToSQL()
	return q, err
}

// PersistMatchResult adds the result of one human participant to its stats.
// Stats are created if not existing yet.
func (m *Mall) PersistMatchResult(ctx context.Context, result host.MatchResult) error {
	q, err := persistMatchResultQuery(m.dialect, result, time.Now())
	if err != nil {
		return errors.NewInternalErrorFromErr(err, "persist query to sql", nil)
	}
	_, err = m.db.Exec(ctx, q)
	if err != nil {
		return errors.NewExecQueryError(err, "exec persist query", q)
	}
	return nil
}

func playerStatsQuery(dialect goqu.DialectWrapper, participantID string) (string, error) {
	q, _, err := dialect.From(goqu.T("player_stats")).
		Select(goqu.C("id"),
			goqu.C("name"),
			goqu.C("kills"),
			goqu.C("deaths"),
			goqu.C("final_kills"),
			goqu.C("beds_destroyed"),
			goqu.C("wins"),
			goqu.C("losses"),
			goqu.C("games_played"),
			goqu.C("last_played")).
		Where(goqu.C("id").Eq(participantID)).ToSQL()
	return q, err
}

// PlayerStats retrieves the PlayerStats for the participant with the given id.
func (m *Mall) PlayerStats(ctx context.Context, participantID string) (PlayerStats, error) {
	q, err := playerStatsQuery(m.dialect, participantID)
	if err != nil {
		return PlayerStats{}, errors.NewInternalErrorFromErr(err, "query to sql", nil)
	}
	rows, err := m.db.Query(ctx, q)
	if err != nil {
		return PlayerStats{}, errors.NewExecQueryError(err, "query db", q)
	}
	defer rows.Close()
	if !rows.Next() {
		return PlayerStats{}, errors.NewResourceNotFoundError("player stats not found",
			errors.Details{"participant": participantID})
	}
	var stats PlayerStats
	err = rows.Scan(&stats.ID,
		&stats.Name,
		&stats.Kills,
		&stats.Deaths,
		&stats.FinalKills,
		&stats.BedsDestroyed,
		&stats.Wins,
		&stats.Losses,
		&stats.GamesPlayed,
		&stats.LastPlayed)
	if err != nil {
		return PlayerStats{}, errors.NewScanDBRowError(err, "scan row", q)
	}
	return stats, nil
}
