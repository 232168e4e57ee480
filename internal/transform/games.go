package transform

import (
	"nhl_stats/ingestion/internal/models"
)

const (
	playGoal = "goal"
	playHit  = "hit"
)

// CompletedGames returns ids of finished regular season and playoff games in a
// club schedule, in schedule order
func (t *Transformer) CompletedGames(body []byte) ([]int, error) {
	var schedule models.ScheduleInput
	if err := decode(body, &schedule); err != nil {
		return nil, malformed(err, "club schedule")
	}

	var ids []int
	for _, g := range schedule.Games {
		if g.ID == 0 || g.GameType == models.GameTypePreseason || !g.Completed() {
			continue
		}
		ids = append(ids, g.ID)
	}
	return ids, nil
}

// PlayByPlay maps a game's event stream into the game row, its goals in
// scoring order and its hits. Team-season ids are left for the caller to
// resolve from the NHL team ids.
func (t *Transformer) PlayByPlay(body []byte) (*models.PlayByPlay, []error, error) {
	var input models.PlayByPlayInput
	if err := t.decodeValid(body, &input); err != nil {
		return nil, nil, malformed(err, "play-by-play")
	}

	date, err := models.ParseDate(input.GameDate)
	if err != nil {
		return nil, nil, malformed(err, "game %d", input.ID)
	}

	gameType := input.GameType
	if gameType == 0 {
		gameType = models.GameTypeFromID(input.ID)
	}

	out := &models.PlayByPlay{
		Game: models.Game{
			ID:         input.ID,
			SeasonID:   input.Season,
			Date:       date,
			GameType:   gameType,
			HomeScore:  input.HomeTeam.Score,
			AwayScore:  input.AwayTeam.Score,
			HomeTeamID: input.HomeTeam.ID,
			AwayTeamID: input.AwayTeam.ID,
		},
	}

	var skipped []error
	goalOrder := 0
	for i, raw := range input.Plays {
		var play models.PlayInput
		if err := decode(raw, &play); err != nil {
			skipped = append(skipped, malformed(err, "game %d play #%d", input.ID, i))
			continue
		}

		switch play.TypeDescKey {
		case playGoal:
			out.Goals = append(out.Goals, models.GameGoal{
				GameID:        input.ID,
				GoalOrder:     goalOrder,
				Period:        play.PeriodDescriptor.Number,
				TimeInPeriod:  play.TimeInPeriod,
				SituationCode: play.SituationCode,
				HomeScore:     play.Details.HomeScore,
				AwayScore:     play.Details.AwayScore,
				TeamID:        play.Details.EventOwnerTeamID,
			})
			goalOrder++
		case playHit:
			if play.EventID == 0 || play.Details.HittingPlayerID == 0 {
				skipped = append(skipped, malformed(nil, "game %d hit #%d without event or player id", input.ID, i))
				continue
			}
			out.Hits = append(out.Hits, models.HitEvent{
				GameID:   input.ID,
				EventID:  play.EventID,
				PlayerID: play.Details.HittingPlayerID,
				TeamID:   play.Details.EventOwnerTeamID,
			})
		}
	}

	return out, skipped, nil
}
