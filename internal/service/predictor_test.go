package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/grid-oracle/internal/config"
	"github.com/yourusername/grid-oracle/internal/models"
	"github.com/yourusername/grid-oracle/internal/repository"
)

// --- in-memory fakes ---

type fakeRaceRepo struct {
	races []*models.Race
}

func (f *fakeRaceRepo) Create(ctx context.Context, race *models.Race) error {
	f.races = append(f.races, race)
	return nil
}

func (f *fakeRaceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Race, error) {
	for _, r := range f.races {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeRaceRepo) GetBySeasonRound(ctx context.Context, season, round int) (*models.Race, error) {
	for _, r := range f.races {
		if r.Season == season && r.Round == round {
			return r, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeRaceRepo) GetUpcoming(ctx context.Context, limit int) ([]*models.Race, error) {
	var out []*models.Race
	for _, r := range f.races {
		if r.IsUpcoming() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRaceRepo) GetFinished(ctx context.Context) ([]*models.Race, error) {
	var out []*models.Race
	for _, r := range f.races {
		if r.IsFinished() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRaceRepo) GetByDateRange(ctx context.Context, start, end time.Time) ([]*models.Race, error) {
	return nil, nil
}

func (f *fakeRaceRepo) Update(ctx context.Context, race *models.Race) error { return nil }

func (f *fakeRaceRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

type fakeResultRepo struct {
	byRace map[uuid.UUID][]*models.DriverResult
}

func (f *fakeResultRepo) InsertBatch(ctx context.Context, results []*models.DriverResult) error {
	for _, r := range results {
		f.byRace[r.RaceID] = append(f.byRace[r.RaceID], r)
	}
	return nil
}

func (f *fakeResultRepo) GetByRaceID(ctx context.Context, raceID uuid.UUID) ([]*models.DriverResult, error) {
	return f.byRace[raceID], nil
}

func (f *fakeResultRepo) GetByDriver(ctx context.Context, driver string, limit int) ([]*models.DriverResult, error) {
	return nil, nil
}

func (f *fakeResultRepo) DeleteByRaceID(ctx context.Context, raceID uuid.UUID) error {
	delete(f.byRace, raceID)
	return nil
}

type fakeWeatherRepo struct {
	byRace map[uuid.UUID]*models.RaceWeather
}

func (f *fakeWeatherRepo) Upsert(ctx context.Context, weather *models.RaceWeather) error {
	f.byRace[weather.RaceID] = weather
	return nil
}

func (f *fakeWeatherRepo) GetByRaceID(ctx context.Context, raceID uuid.UUID) (*models.RaceWeather, error) {
	if w, ok := f.byRace[raceID]; ok {
		return w, nil
	}
	return nil, models.ErrNotFound
}

type fakeArtifactRepo struct {
	byVersion map[string]*models.TrainedModelArtifact
	latest    string
}

func (f *fakeArtifactRepo) Save(ctx context.Context, artifact *models.TrainedModelArtifact) error {
	f.byVersion[artifact.ModelVersion] = artifact
	return nil
}

func (f *fakeArtifactRepo) GetByVersion(ctx context.Context, version string) (*models.TrainedModelArtifact, error) {
	if a, ok := f.byVersion[version]; ok {
		return a, nil
	}
	return nil, models.ErrNotFound
}

func (f *fakeArtifactRepo) GetLatest(ctx context.Context) (*models.TrainedModelArtifact, error) {
	if f.latest == "" {
		return nil, models.ErrModelNotTrained
	}
	return f.byVersion[f.latest], nil
}

func (f *fakeArtifactRepo) SetLatest(ctx context.Context, version string) error {
	if _, ok := f.byVersion[version]; !ok {
		return models.ErrNotFound
	}
	f.latest = version
	return nil
}

func (f *fakeArtifactRepo) ListVersions(ctx context.Context, limit int) ([]string, error) {
	var out []string
	for v := range f.byVersion {
		out = append(out, v)
	}
	return out, nil
}

type fakePredictionRepo struct {
	byRace       map[uuid.UUID][]models.PredictionResult
	insertCalls  int
	replaceCalls int
}

func (f *fakePredictionRepo) InsertBatch(ctx context.Context, predictions []models.PredictionResult) error {
	f.insertCalls++
	if len(predictions) > 0 {
		f.byRace[predictions[0].RaceID] = predictions
	}
	return nil
}

func (f *fakePredictionRepo) ReplaceForRace(ctx context.Context, raceID uuid.UUID, predictions []models.PredictionResult) error {
	f.replaceCalls++
	if len(predictions) == 0 {
		delete(f.byRace, raceID)
		return nil
	}
	f.byRace[raceID] = predictions
	return nil
}

func (f *fakePredictionRepo) GetByRaceID(ctx context.Context, raceID uuid.UUID) ([]models.PredictionResult, error) {
	return f.byRace[raceID], nil
}

func (f *fakePredictionRepo) DeleteByRaceID(ctx context.Context, raceID uuid.UUID) error {
	delete(f.byRace, raceID)
	return nil
}

// --- fixture ---

var fixtureDrivers = []struct {
	name string
	team string
}{
	{"ALPHA", "T1"},
	{"BRAVO", "T2"},
	{"CHARLIE", "T3"},
	{"DELTA", "T4"},
}

var fixtureCircuits = []string{
	"Bahrain International Circuit",
	"Jeddah Corniche Circuit, Saudi Arabia",
	"Albert Park, Australia",
	"Suzuka, Japan",
	"Shanghai, China",
	"Miami International Autodrome",
	"Circuit de Monaco",
	"Spa-Francorchamps, Belgium",
}

type fixture struct {
	races       *fakeRaceRepo
	results     *fakeResultRepo
	weather     *fakeWeatherRepo
	artifacts   *fakeArtifactRepo
	predictions *fakePredictionRepo
}

// seedSeason adds n finished races where the field always finishes in
// the same order: ALPHA first, DELTA last.
func seedSeason(f *fixture, season, n int) {
	for round := 1; round <= n; round++ {
		race := &models.Race{
			ID:             uuid.New(),
			Season:         season,
			Round:          round,
			Name:           fmt.Sprintf("Round %d", round),
			Circuit:        fixtureCircuits[(round-1)%len(fixtureCircuits)],
			ScheduledStart: time.Date(season, time.March, round, 14, 0, 0, 0, time.UTC),
			TotalLaps:      57,
			Status:         "finished",
		}
		f.races.races = append(f.races.races, race)

		for i, d := range fixtureDrivers {
			grid := i + 1
			pos := i + 1
			f.results.byRace[race.ID] = append(f.results.byRace[race.ID], &models.DriverResult{
				RaceID:   race.ID,
				DriverID: uuid.New(),
				Driver:   d.name,
				Team:     d.team,
				Grid:     &grid,
				Position: &pos,
				Status:   models.StatusFinished,
				Laps:     57,
			})
		}
	}
}

// seedUpcoming adds one scheduled race with a known grid and no results
func seedUpcoming(f *fixture, season, round int) uuid.UUID {
	race := &models.Race{
		ID:             uuid.New(),
		Season:         season,
		Round:          round,
		Name:           "Target Grand Prix",
		Circuit:        "Autodromo Nazionale Monza, Italy",
		ScheduledStart: time.Date(season, time.September, 1, 14, 0, 0, 0, time.UTC),
		TotalLaps:      53,
		Status:         "scheduled",
	}
	f.races.races = append(f.races.races, race)

	for i, d := range fixtureDrivers {
		grid := i + 1
		f.results.byRace[race.ID] = append(f.results.byRace[race.ID], &models.DriverResult{
			RaceID:   race.ID,
			DriverID: uuid.New(),
			Driver:   d.name,
			Team:     d.team,
			Grid:     &grid,
		})
	}
	return race.ID
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "grid-oracle", Environment: "development", LogLevel: "error"},
		Model: config.ModelConfig{
			LearningRate:    0.03,
			Epochs:          200,
			BlendWeightRank: 0.6,
			BlendWeightReg:  0.4,
			MinRaces:        5,
		},
		Rating: config.RatingConfig{DriverKFactor: 32, TeamKFactor: 32},
		Simulation: config.SimulationConfig{
			Trials:              300,
			BaseSeed:            1,
			Workers:             2,
			IncidentProbability: 0.05,
			IncidentMaxDrivers:  4,
			WetNoiseMultiplier:  1.5,
			WetDNFMultiplier:    1.5,
			MinResidualSamples:  5,
			DNFCap:              0.35,
		},
		Prediction: config.PredictionConfig{
			CacheTTLSeconds:     300,
			CacheCleanupSeconds: 600,
			RequestsPerSecond:   1000,
			RequestBurst:        1000,
			DefaultWeather:      "dry",
		},
	}
}

func newTestService(t *testing.T, f *fixture) *PredictorService {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	repos := &repository.Repositories{
		Race:       f.races,
		Result:     f.results,
		Weather:    f.weather,
		Artifact:   f.artifacts,
		Prediction: f.predictions,
	}
	svc, err := NewPredictorService(repos, testConfig(), log)
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return svc
}

func newFixture() *fixture {
	return &fixture{
		races:       &fakeRaceRepo{},
		results:     &fakeResultRepo{byRace: make(map[uuid.UUID][]*models.DriverResult)},
		weather:     &fakeWeatherRepo{byRace: make(map[uuid.UUID]*models.RaceWeather)},
		artifacts:   &fakeArtifactRepo{byVersion: make(map[string]*models.TrainedModelArtifact)},
		predictions: &fakePredictionRepo{byRace: make(map[uuid.UUID][]models.PredictionResult)},
	}
}

// --- tests ---

func TestTrainPromotesArtifact(t *testing.T) {
	f := newFixture()
	seedSeason(f, 2025, 6)
	svc := newTestService(t, f)

	version, err := svc.Train(context.Background())
	if err != nil {
		t.Fatalf("training failed: %v", err)
	}
	if version == "" {
		t.Fatal("expected non-empty model version")
	}

	artifact, err := f.artifacts.GetLatest(context.Background())
	if err != nil {
		t.Fatalf("expected promoted artifact, got %v", err)
	}
	if artifact.ModelVersion != version {
		t.Fatalf("latest artifact version mismatch: %s vs %s", artifact.ModelVersion, version)
	}
	if artifact.TrainingRaces != 6 {
		t.Fatalf("expected 6 training races, got %d", artifact.TrainingRaces)
	}
	for _, d := range fixtureDrivers {
		if len(artifact.DriverResiduals[d.name]) != 6 {
			t.Fatalf("expected 6 residuals for %s, got %d", d.name, len(artifact.DriverResiduals[d.name]))
		}
	}
	if len(artifact.EncoderMappings) == 0 {
		t.Fatal("expected encoder mappings retained in artifact")
	}
	if artifact.TeamReliability["T1"] != 1.0 {
		t.Fatalf("all-finisher team should have reliability 1, got %v", artifact.TeamReliability["T1"])
	}
}

func TestTrainInsufficientHistory(t *testing.T) {
	f := newFixture()
	seedSeason(f, 2025, 3)
	svc := newTestService(t, f)

	_, err := svc.Train(context.Background())
	var insufficientErr *models.InsufficientHistoryError
	if !errors.As(err, &insufficientErr) {
		t.Fatalf("expected InsufficientHistoryError, got %v", err)
	}
}

func TestPredictRaceWithoutTrainedModel(t *testing.T) {
	f := newFixture()
	seedSeason(f, 2025, 6)
	raceID := seedUpcoming(f, 2025, 7)
	svc := newTestService(t, f)

	_, err := svc.PredictRace(context.Background(), raceID, "")
	if !errors.Is(err, models.ErrModelNotTrained) {
		t.Fatalf("expected ErrModelNotTrained, got %v", err)
	}
}

func TestPredictRace(t *testing.T) {
	f := newFixture()
	seedSeason(f, 2025, 6)
	raceID := seedUpcoming(f, 2025, 7)
	svc := newTestService(t, f)

	if _, err := svc.Train(context.Background()); err != nil {
		t.Fatalf("training failed: %v", err)
	}

	results, err := svc.PredictRace(context.Background(), raceID, "")
	if err != nil {
		t.Fatalf("prediction failed: %v", err)
	}
	if len(results) != len(fixtureDrivers) {
		t.Fatalf("expected %d predictions, got %d", len(fixtureDrivers), len(results))
	}

	var winSum float64
	for _, r := range results {
		winSum += r.WinProbability
		if r.WinProbability > r.PodiumProbability || r.PodiumProbability > r.Top10Probability {
			t.Fatalf("%s: probability ordering violated: %+v", r.Driver, r)
		}
	}
	// Fully reliable teams never retire, so every trial has a winner
	if math.Abs(winSum-1.0) > 1e-9 {
		t.Fatalf("win probabilities should sum to 1, got %v", winSum)
	}

	// The model has only ever seen ALPHA win
	if results[0].Driver != "ALPHA" {
		t.Fatalf("expected ALPHA as favourite, got %s", results[0].Driver)
	}

	stored, err := f.predictions.GetByRaceID(context.Background(), raceID)
	if err != nil || len(stored) != len(fixtureDrivers) {
		t.Fatalf("expected predictions persisted, got %d (%v)", len(stored), err)
	}
}

func TestPredictRaceServedFromCache(t *testing.T) {
	f := newFixture()
	seedSeason(f, 2025, 6)
	raceID := seedUpcoming(f, 2025, 7)
	svc := newTestService(t, f)

	if _, err := svc.Train(context.Background()); err != nil {
		t.Fatalf("training failed: %v", err)
	}

	first, err := svc.PredictRace(context.Background(), raceID, "")
	if err != nil {
		t.Fatalf("first prediction failed: %v", err)
	}
	second, err := svc.PredictRace(context.Background(), raceID, "")
	if err != nil {
		t.Fatalf("second prediction failed: %v", err)
	}

	if f.predictions.replaceCalls != 1 {
		t.Fatalf("expected one simulation run, got %d persisted batches", f.predictions.replaceCalls)
	}
	for i := range first {
		if first[i].WinProbability != second[i].WinProbability {
			t.Fatal("cached prediction diverged from original")
		}
	}
}

func TestPredictRaceReplacesStoredPredictions(t *testing.T) {
	f := newFixture()
	seedSeason(f, 2025, 6)
	raceID := seedUpcoming(f, 2025, 7)
	svc := newTestService(t, f)

	if _, err := svc.Train(context.Background()); err != nil {
		t.Fatalf("training failed: %v", err)
	}

	if _, err := svc.PredictRace(context.Background(), raceID, "dry"); err != nil {
		t.Fatalf("dry prediction failed: %v", err)
	}
	// Different weather bypasses the cache and re-simulates
	if _, err := svc.PredictRace(context.Background(), raceID, "wet"); err != nil {
		t.Fatalf("wet prediction failed: %v", err)
	}

	// Persistence goes through the atomic swap, never a bare delete
	// followed by a separate insert.
	if f.predictions.replaceCalls != 2 {
		t.Fatalf("expected two atomic replaces, got %d", f.predictions.replaceCalls)
	}
	if f.predictions.insertCalls != 0 {
		t.Fatalf("expected no standalone inserts, got %d", f.predictions.insertCalls)
	}

	stored, err := f.predictions.GetByRaceID(context.Background(), raceID)
	if err != nil {
		t.Fatalf("reading stored predictions failed: %v", err)
	}
	if len(stored) != len(fixtureDrivers) {
		t.Fatalf("re-prediction should replace the batch, not append: got %d rows", len(stored))
	}
}

func TestPredictRaceCacheSurvivesCallerMutation(t *testing.T) {
	f := newFixture()
	seedSeason(f, 2025, 6)
	raceID := seedUpcoming(f, 2025, 7)
	svc := newTestService(t, f)

	if _, err := svc.Train(context.Background()); err != nil {
		t.Fatalf("training failed: %v", err)
	}

	first, err := svc.PredictRace(context.Background(), raceID, "")
	if err != nil {
		t.Fatalf("first prediction failed: %v", err)
	}
	favourite := first[0].Driver
	winProb := first[0].WinProbability

	// Scribbling over the returned slice must not reach the cache
	first[0].Driver = "MANGLED"
	first[0].WinProbability = -1

	second, err := svc.PredictRace(context.Background(), raceID, "")
	if err != nil {
		t.Fatalf("second prediction failed: %v", err)
	}
	if f.predictions.replaceCalls != 1 {
		t.Fatalf("second request should hit the cache, got %d persisted batches", f.predictions.replaceCalls)
	}
	if second[0].Driver != favourite || second[0].WinProbability != winProb {
		t.Fatalf("cache hit returned mutated data: %+v", second[0])
	}
}

func TestPredictRaceMissingGrid(t *testing.T) {
	f := newFixture()
	seedSeason(f, 2025, 6)
	raceID := seedUpcoming(f, 2025, 7)
	// Strip grid positions to simulate pre-qualifying requests
	for _, r := range f.results.byRace[raceID] {
		r.Grid = nil
	}
	svc := newTestService(t, f)

	if _, err := svc.Train(context.Background()); err != nil {
		t.Fatalf("training failed: %v", err)
	}

	_, err := svc.PredictRace(context.Background(), raceID, "")
	var incompleteErr *models.DataIncompleteError
	if !errors.As(err, &incompleteErr) {
		t.Fatalf("expected DataIncompleteError, got %v", err)
	}
	if incompleteErr.Field != "grid_position" {
		t.Fatalf("error should name the missing field, got %q", incompleteErr.Field)
	}
}

func TestPredictRaceProjectedGrid(t *testing.T) {
	f := newFixture()
	seedSeason(f, 2025, 6)
	raceID := seedUpcoming(f, 2025, 7)
	// Qualifying has not run yet
	for _, r := range f.results.byRace[raceID] {
		r.Grid = nil
	}
	svc := newTestService(t, f)

	if _, err := svc.Train(context.Background()); err != nil {
		t.Fatalf("training failed: %v", err)
	}

	results, err := svc.PredictRaceWithOptions(context.Background(), raceID, PredictOptions{ProjectGrid: true})
	if err != nil {
		t.Fatalf("projected prediction failed: %v", err)
	}
	if len(results) != len(fixtureDrivers) {
		t.Fatalf("expected %d predictions, got %d", len(fixtureDrivers), len(results))
	}

	// ALPHA has the best blended Elo after six straight wins and must
	// inherit pole in the projected grid
	for _, r := range results {
		if r.Driver == "ALPHA" && r.GridPosition != 1 {
			t.Fatalf("expected ALPHA projected on pole, got grid %d", r.GridPosition)
		}
		if r.Driver == "DELTA" && r.GridPosition != len(fixtureDrivers) {
			t.Fatalf("expected DELTA projected last, got grid %d", r.GridPosition)
		}
	}

	// The stored entries must keep their empty grids
	for _, r := range f.results.byRace[raceID] {
		if r.Grid != nil {
			t.Fatal("projection must not mutate stored entries")
		}
	}
}

func TestUpdateRatingsIdempotent(t *testing.T) {
	f := newFixture()
	seedSeason(f, 2025, 6)
	svc := newTestService(t, f)

	snapshotBefore, err := svc.Ratings(context.Background())
	if err != nil {
		t.Fatalf("ratings failed: %v", err)
	}
	alphaBefore := snapshotBefore.Rating(models.EntityDriver, "ALPHA")

	// Re-applying an already replayed race must not move ratings
	raceID := f.races.races[0].ID
	if err := svc.UpdateRatings(context.Background(), raceID); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	snapshotAfter, err := svc.Ratings(context.Background())
	if err != nil {
		t.Fatalf("ratings failed: %v", err)
	}
	if got := snapshotAfter.Rating(models.EntityDriver, "ALPHA"); got != alphaBefore {
		t.Fatalf("idempotent update moved rating: %v vs %v", got, alphaBefore)
	}
}

func TestUpdateRatingsRejectsUnfinishedRace(t *testing.T) {
	f := newFixture()
	seedSeason(f, 2025, 6)
	raceID := seedUpcoming(f, 2025, 7)
	svc := newTestService(t, f)

	if err := svc.UpdateRatings(context.Background(), raceID); err == nil {
		t.Fatal("expected error for unfinished race")
	}
}

func TestUpdateRatingsFoldsNewRace(t *testing.T) {
	f := newFixture()
	seedSeason(f, 2025, 6)
	svc := newTestService(t, f)

	before, err := svc.Ratings(context.Background())
	if err != nil {
		t.Fatalf("ratings failed: %v", err)
	}
	deltaBefore := before.Rating(models.EntityDriver, "DELTA")

	// A new race where DELTA wins must raise DELTA's rating
	race := &models.Race{
		ID:             uuid.New(),
		Season:         2025,
		Round:          7,
		Name:           "Upset Grand Prix",
		Circuit:        "Interlagos, Brazil",
		ScheduledStart: time.Date(2025, time.October, 1, 14, 0, 0, 0, time.UTC),
		Status:         "finished",
	}
	f.races.races = append(f.races.races, race)
	for i := range fixtureDrivers {
		d := fixtureDrivers[len(fixtureDrivers)-1-i]
		grid := i + 1
		pos := i + 1
		f.results.byRace[race.ID] = append(f.results.byRace[race.ID], &models.DriverResult{
			RaceID: race.ID, DriverID: uuid.New(), Driver: d.name, Team: d.team,
			Grid: &grid, Position: &pos, Status: models.StatusFinished,
		})
	}

	if err := svc.UpdateRatings(context.Background(), race.ID); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	after, err := svc.Ratings(context.Background())
	if err != nil {
		t.Fatalf("ratings failed: %v", err)
	}
	if got := after.Rating(models.EntityDriver, "DELTA"); got <= deltaBefore {
		t.Fatalf("winning should raise DELTA's rating: %v vs %v", got, deltaBefore)
	}
}
