// Package service orchestrates training, rating maintenance and race
// prediction over the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/grid-oracle/internal/ensemble"
	"github.com/yourusername/grid-oracle/internal/features"
	"github.com/yourusername/grid-oracle/internal/models"
	"github.com/yourusername/grid-oracle/internal/rating"
)

// loadFinishedRecords assembles the full completed-race history in
// calendar order. Races without stored results are skipped; they
// carry no signal for ratings or training.
func (s *PredictorService) loadFinishedRecords(ctx context.Context) ([]*models.RaceRecord, error) {
	races, err := s.races.GetFinished(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load finished races: %w", err)
	}

	records := make([]*models.RaceRecord, 0, len(races))
	for _, race := range races {
		results, err := s.results.GetByRaceID(ctx, race.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load results for race %s: %w", race.ID, err)
		}
		if len(results) == 0 {
			s.logger.WithField("race_id", race.ID).Warn("Finished race has no stored results, skipping")
			continue
		}

		weather, err := s.weather.GetByRaceID(ctx, race.ID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("failed to load weather for race %s: %w", race.ID, err)
		}

		records = append(records, &models.RaceRecord{
			Race:    race,
			Results: results,
			Weather: weather,
			Time:    race.ScheduledStart,
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Race.Before(records[j].Race)
	})

	return records, nil
}

// raceEntries extracts the classified finishing order for a rating
// update. Retirements carry no rank and are excluded from the
// pairwise comparisons.
func raceEntries(results []*models.DriverResult) []rating.RaceEntry {
	classified := make([]*models.DriverResult, 0, len(results))
	for _, r := range results {
		if r.Position != nil && *r.Position > 0 {
			classified = append(classified, r)
		}
	}
	sort.SliceStable(classified, func(i, j int) bool {
		return *classified[i].Position < *classified[j].Position
	})

	entries := make([]rating.RaceEntry, len(classified))
	for i, r := range classified {
		entries[i] = rating.RaceEntry{Driver: r.Driver, Team: r.Team}
	}
	return entries
}

// buildTrainingRows replays history race by race, deriving each row
// from strictly pre-race information: the ratings snapshot and the
// records of earlier races only.
func (s *PredictorService) buildTrainingRows(records []*models.RaceRecord, builder *features.Builder, tracker *rating.Tracker) []ensemble.TrainingRow {
	var rows []ensemble.TrainingRow
	for i, record := range records {
		snapshot := tracker.Snapshot()
		history := records[:i]

		for _, result := range record.Results {
			if result.Position == nil || *result.Position <= 0 {
				continue // retirements carry no rank label
			}

			vector, err := builder.Build(record.Race, result, record.Weather, snapshot, history)
			if err != nil {
				s.logger.WithFields(logrus.Fields{
					"race_id": record.Race.ID,
					"driver":  result.Driver,
				}).WithError(err).Warn("Skipping training row with incomplete data")
				continue
			}

			rows = append(rows, ensemble.TrainingRow{
				Features:  vector,
				Position:  float64(*result.Position),
				RaceGroup: record.Race.ID.String(),
			})
		}

		tracker.Update(raceEntries(record.Results))
	}
	return rows
}
