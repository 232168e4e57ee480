package transform

import (
	"nhl_stats/ingestion/internal/models"
)

// Leagues that never count as where a player developed
var amateurIgnoreLeagues = map[string]bool{
	"WC-A":          true,
	"WJC-A":         true,
	"Olympics":      true,
	"ECHL":          true,
	"M-Cup":         true,
	"International": true,
	"WCup":          true,
	"4 Nations":     true,
}

const noAmateurLeague = "N/A"

// AmateurLeague finds the last league a player played in before their first
// NHL or AHL season. ok is false when the player never reached either league.
func (t *Transformer) AmateurLeague(body []byte) (update models.AmateurLeagueUpdate, ok bool, err error) {
	var landing models.PlayerLandingInput
	if err := decode(body, &landing); err != nil {
		return update, false, malformed(err, "player landing")
	}
	if landing.PlayerID == 0 {
		return update, false, malformed(nil, "player landing without playerId")
	}

	previous := noAmateurLeague
	for i, raw := range landing.SeasonTotals {
		var total struct {
			LeagueAbbrev string `json:"leagueAbbrev"`
		}
		if err := decode(raw, &total); err != nil {
			return update, false, malformed(err, "player %d season total #%d", landing.PlayerID, i)
		}

		switch {
		case total.LeagueAbbrev == "NHL" || total.LeagueAbbrev == "AHL":
			return models.AmateurLeagueUpdate{PlayerID: landing.PlayerID, League: previous}, true, nil
		case total.LeagueAbbrev == "" || amateurIgnoreLeagues[total.LeagueAbbrev]:
			continue
		default:
			previous = total.LeagueAbbrev
		}
	}
	return update, false, nil
}
