// Package service orchestrates uploads, pipeline runs and retrieval
// of races and laps.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Lorenzo2345612/ams2-telemetry-backend/log"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/analysis/comparison"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/analysis/fuel"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/model"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/queue"
	raceRepos "github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/repository/race"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/storage"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/telemetry/parse"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/telemetry/resample"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/telemetry/timeline"
)

var (
	ErrRaceNotFound = errors.New("race not found")
	ErrLapNotFound  = errors.New("lap not found")
	ErrRaceNotReady = errors.New("race is not ready")
)

type (
	RaceService struct {
		pool   *pgxpool.Pool
		store  storage.BlobStore
		queue  *queue.Queue
		parser *parse.Parser
		l      *log.Logger
	}
	Option func(*RaceService)
)

// WithQueue lets uploads hand processing off to workers. Without it
// the caller is expected to run ProcessRace itself.
func WithQueue(q *queue.Queue) Option {
	return func(s *RaceService) { s.queue = q }
}

func WithParser(p *parse.Parser) Option {
	return func(s *RaceService) { s.parser = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *RaceService) { s.l = l }
}

func New(pool *pgxpool.Pool, store storage.BlobStore, opts ...Option) *RaceService {
	ret := &RaceService{
		pool:   pool,
		store:  store,
		parser: parse.NewParser(),
		l:      log.Default().Named("service"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// UploadRace stores a compressed capture, registers the race and, if a
// queue is attached, enqueues it for processing.
func (s *RaceService) UploadRace(
	ctx context.Context,
	name string,
	compressed []byte,
) (*model.Race, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	race := &model.Race{
		ID:         id,
		Name:       name,
		Status:     model.RaceStatusProcessing,
		RawDataKey: rawKey(id),
	}
	if err := s.store.Put(ctx, race.RawDataKey, compressed); err != nil {
		return nil, fmt.Errorf("storing capture: %w", err)
	}
	if _, err := raceRepos.Create(s.pool, race); err != nil {
		return nil, err
	}
	if s.queue != nil {
		if err := s.queue.PublishProcessJob(id.String()); err != nil {
			return nil, fmt.Errorf("enqueueing race %s: %w", id, err)
		}
	}
	s.l.Info("race uploaded",
		log.String("raceId", id.String()),
		log.Int("rawSize", len(compressed)))
	return race, nil
}

// ProcessRace runs the full pipeline for an uploaded race and stores
// the resampled laps. Any pipeline failure marks the race FAILED.
func (s *RaceService) ProcessRace(ctx context.Context, raceID uuid.UUID) error {
	race, err := s.GetRace(ctx, raceID)
	if err != nil {
		return err
	}
	if err := s.process(ctx, race); err != nil {
		if dbErr := raceRepos.UpdateStatus(s.pool, raceID, model.RaceStatusFailed); dbErr != nil {
			s.l.Error("marking race failed",
				log.String("raceId", raceID.String()),
				log.ErrorField(dbErr))
		}
		return fmt.Errorf("processing race %s: %w", raceID, err)
	}
	return raceRepos.UpdateStatus(s.pool, raceID, model.RaceStatusReady)
}

func (s *RaceService) process(ctx context.Context, race *model.Race) error {
	compressed, err := s.store.Get(ctx, race.RawDataKey)
	if err != nil {
		return err
	}
	raw, err := storage.Inflate(compressed)
	if err != nil {
		return fmt.Errorf("decompressing capture: %w", err)
	}

	frames := s.parser.Parse(raw)
	laps := timeline.Build(frames)
	resampled, err := resample.Race(laps)
	if err != nil {
		return err
	}
	s.l.Info("pipeline finished",
		log.String("raceId", race.ID.String()),
		log.Int("frames", len(frames)),
		log.Int("laps", len(resampled)))

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, lap := range resampled {
			blob, err := storage.EncodeLap(lap)
			if err != nil {
				return err
			}
			key := lapKey(race.ID, lap.LapNumber)
			if err := s.store.Put(ctx, key, blob); err != nil {
				return err
			}
			if _, err := raceRepos.CreateLap(tx.Conn(), &model.Lap{
				RaceID:    race.ID,
				LapNumber: lap.LapNumber,
				LapTime:   lap.LapTime,
				DataKey:   key,
			}); err != nil {
				return err
			}
		}
		return raceRepos.UpdateLapCount(tx.Conn(), race.ID, len(resampled))
	})
}

func (s *RaceService) ListRaces(ctx context.Context) ([]*model.Race, error) {
	return raceRepos.LoadAll(s.pool)
}

func (s *RaceService) GetRace(ctx context.Context, raceID uuid.UUID) (*model.Race, error) {
	race, err := raceRepos.LoadById(s.pool, raceID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRaceNotFound, raceID)
	}
	return race, err
}

// DeleteRace removes the race, its laps and all stored blobs.
func (s *RaceService) DeleteRace(ctx context.Context, raceID uuid.UUID) error {
	race, err := s.GetRace(ctx, raceID)
	if err != nil {
		return err
	}
	laps, err := raceRepos.LoadLaps(s.pool, raceID)
	if err != nil {
		return err
	}
	if _, err := raceRepos.DeleteById(s.pool, raceID); err != nil {
		return err
	}
	for _, lap := range laps {
		if err := s.store.Delete(ctx, lap.DataKey); err != nil {
			s.l.Warn("deleting lap blob", log.String("key", lap.DataKey), log.ErrorField(err))
		}
	}
	return s.store.Delete(ctx, race.RawDataKey)
}

// LoadLap fetches one processed lap of a READY race.
func (s *RaceService) LoadLap(
	ctx context.Context,
	raceID uuid.UUID,
	lapNumber int,
) (*model.ResampledLap, error) {
	race, err := s.GetRace(ctx, raceID)
	if err != nil {
		return nil, err
	}
	if race.Status != model.RaceStatusReady {
		return nil, fmt.Errorf("%w: %s is %s", ErrRaceNotReady, raceID, race.Status)
	}
	lap, err := raceRepos.LoadLapByNumber(s.pool, raceID, lapNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: race %s lap %d", ErrLapNotFound, raceID, lapNumber)
	}
	if err != nil {
		return nil, err
	}
	blob, err := s.store.Get(ctx, lap.DataKey)
	if err != nil {
		return nil, err
	}
	return storage.DecodeLap(blob)
}

// CompareLaps loads two laps of a race and compares them.
func (s *RaceService) CompareLaps(
	ctx context.Context,
	raceID uuid.UUID,
	lap1, lap2 int,
	opts ...comparison.Option,
) (*comparison.Result, error) {
	l1, err := s.LoadLap(ctx, raceID, lap1)
	if err != nil {
		return nil, err
	}
	l2, err := s.LoadLap(ctx, raceID, lap2)
	if err != nil {
		return nil, err
	}
	return comparison.Compare(l1, l2, opts...)
}

// FuelAnalysis analyzes the fuel consumption of one lap.
func (s *RaceService) FuelAnalysis(
	ctx context.Context,
	raceID uuid.UUID,
	lapNumber int,
) (*fuel.Analysis, error) {
	lap, err := s.LoadLap(ctx, raceID, lapNumber)
	if err != nil {
		return nil, err
	}
	return fuel.AnalyzeLap(lap)
}

// FuelComparison compares the fuel consumption of two laps.
func (s *RaceService) FuelComparison(
	ctx context.Context,
	raceID uuid.UUID,
	lap1, lap2 int,
) (*fuel.Comparison, error) {
	l1, err := s.LoadLap(ctx, raceID, lap1)
	if err != nil {
		return nil, err
	}
	l2, err := s.LoadLap(ctx, raceID, lap2)
	if err != nil {
		return nil, err
	}
	return fuel.CompareLaps(l1, l2)
}

// FuelEfficiency relates fuel burn to driving style over one lap.
func (s *RaceService) FuelEfficiency(
	ctx context.Context,
	raceID uuid.UUID,
	lapNumber int,
) ([]fuel.EfficiencyPoint, error) {
	lap, err := s.LoadLap(ctx, raceID, lapNumber)
	if err != nil {
		return nil, err
	}
	return fuel.EfficiencyScatter(lap), nil
}

func rawKey(id uuid.UUID) string {
	return fmt.Sprintf("races/%s/raw.bin.deflate", id)
}

func lapKey(id uuid.UUID, lapNumber int) string {
	return fmt.Sprintf("races/%s/laps/%04d.json.deflate", id, lapNumber)
}
