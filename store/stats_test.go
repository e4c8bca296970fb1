package store

import (
	"github.com/doug-martin/goqu/v9"
	"github.com/lefinal/bedwars-server/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestPersistMatchResultQuery(t *testing.T) {
	playedAt := time.Date(2022, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		result  host.MatchResult
		contain []string
	}{
		{
			name: "won",
			result: host.MatchResult{
				ParticipantID: "steve",
				Name:          "Steve",
				Counters:      host.Counters{Kills: 3, Deaths: 1, FinalKills: 2, BedsDestroyed: 1},
				Won:           true,
			},
			contain: []string{
				`INSERT INTO "player_stats"`,
				`'steve'`,
				`'Steve'`,
				`ON CONFLICT (id) DO UPDATE SET`,
				`"kills"=player_stats.kills + EXCLUDED.kills`,
				`"wins"=player_stats.wins + EXCLUDED.wins`,
				`'2022-05-01T12:00:00Z'`,
			},
		},
		{
			name:   "lost",
			result: host.MatchResult{ParticipantID: "alex", Name: "Alex"},
			contain: []string{
				`'alex'`,
				`"losses"=player_stats.losses + EXCLUDED.losses`,
				`"games_played"=player_stats.games_played + EXCLUDED.games_played`,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := persistMatchResultQuery(goqu.Dialect("postgres"), tt.result, playedAt)
			require.NoError(t, err, "should not fail")
			for _, s := range tt.contain {
				assert.Contains(t, q, s, "query should contain expected part")
			}
		})
	}
}

func TestPersistMatchResultQueryOutcome(t *testing.T) {
	won, err := persistMatchResultQuery(goqu.Dialect("postgres"), host.MatchResult{ParticipantID: "a", Won: true}, time.Now())
	require.NoError(t, err, "should not fail")
	lost, err := persistMatchResultQuery(goqu.Dialect("postgres"), host.MatchResult{ParticipantID: "a"}, time.Now())
	require.NoError(t, err, "should not fail")
	assert.NotEqual(t, won, lost, "should differ in wins and losses")
}

func TestPlayerStatsQuery(t *testing.T) {
	q, err := playerStatsQuery(goqu.Dialect("postgres"), "steve")
	require.NoError(t, err, "should not fail")
	assert.Contains(t, q, `FROM "player_stats"`, "should select from stats")
	assert.Contains(t, q, `WHERE ("id" = 'steve')`, "should filter by id")
}
