package prediction

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bonecondor/space-weather/internal/config"
	"github.com/bonecondor/space-weather/internal/logging"
	"github.com/bonecondor/space-weather/internal/models"
)

// redisKey is where the prediction blob lives when the redis backend is
// selected.
const redisKey = "predictions"

// Backend abstracts where the prediction blob is persisted. Semantics are
// identical across backends; selection happens once at startup from config.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

type fileBackend struct {
	path string
}

func (b *fileBackend) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}

func (b *fileBackend) Save(_ context.Context, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("create predictions dir failed: %w", err)
	}
	tmpPath := fmt.Sprintf("%s.%d.tmp", b.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp predictions file failed: %w", err)
	}
	if err := os.Rename(tmpPath, b.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename predictions file failed: %w", err)
	}
	return nil
}

type redisBackend struct {
	client *redis.Client
}

func (b *redisBackend) Load(ctx context.Context) ([]byte, error) {
	data, err := b.client.Get(ctx, redisKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return data, err
}

func (b *redisBackend) Save(ctx context.Context, data []byte) error {
	return b.client.Set(ctx, redisKey, data, 0).Err()
}

// Store persists the prediction log and handles submission cooldowns.
type Store struct {
	backend Backend
	cfg     *config.Config
	logger  *logging.Logger
}

// NewStore selects the backend from config: redis when REDIS_ADDR is
// configured, the JSON file otherwise.
func NewStore(cfg *config.Config, logger *logging.Logger) *Store {
	var backend Backend
	if cfg.Redis.Addr != "" {
		backend = &redisBackend{client: redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})}
		logger.Infof("Prediction store backed by redis at %s", cfg.Redis.Addr)
	} else {
		backend = &fileBackend{path: cfg.Paths.PredictionsFile}
	}
	return &Store{backend: backend, cfg: cfg, logger: logger}
}

// Load reads the prediction state, merging over defaults for tolerant reads.
func (s *Store) Load(ctx context.Context) *models.PredictionState {
	ps := defaultState(s.cfg)

	data, err := s.backend.Load(ctx)
	if err != nil {
		s.logger.Errorf("Read predictions failed, starting from defaults: %v", err)
		return ps
	}
	if data == nil {
		return ps
	}
	if err := json.Unmarshal(data, ps); err != nil {
		s.logger.Errorf("Parse predictions failed, starting from defaults: %v", err)
		return defaultState(s.cfg)
	}
	if ps.Predictions == nil {
		ps.Predictions = []models.Prediction{}
	}
	return ps
}

// Save persists the prediction state, capping the log to maxPredictions.
func (s *Store) Save(ctx context.Context, ps *models.PredictionState) error {
	if max := ps.Config.MaxPredictions; max > 0 && len(ps.Predictions) > max {
		ps.Predictions = ps.Predictions[len(ps.Predictions)-max:]
	}
	data, err := json.MarshalIndent(ps, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize predictions failed: %w", err)
	}
	return s.backend.Save(ctx, data)
}

// ErrCooldown is returned by Submit while the previous prediction's cooldown
// is still running.
type ErrCooldown struct {
	CooldownEnds time.Time
}

func (e *ErrCooldown) Error() string {
	return fmt.Sprintf("prediction cooldown until %s", e.CooldownEnds.Format(time.RFC3339))
}

// Submit appends a new pending prediction unless the most recent one is
// younger than the cooldown. The mutated state is not saved here; callers
// decide when to persist.
func (s *Store) Submit(ps *models.PredictionState, note string, now time.Time) (*models.Prediction, error) {
	if n := len(ps.Predictions); n > 0 {
		latest := ps.Predictions[n-1]
		cooldownEnds := latest.Timestamp.Add(time.Duration(ps.Config.CooldownHours) * time.Hour)
		if now.Before(cooldownEnds) {
			return nil, &ErrCooldown{CooldownEnds: cooldownEnds}
		}
	}

	windowHours := ps.Config.VerificationWindowHours
	p := models.Prediction{
		ID:            uuid.NewString(),
		Timestamp:     now,
		Note:          note,
		Status:        models.PredictionPending,
		WindowHours:   windowHours,
		WindowEnd:     now.Add(time.Duration(windowHours) * time.Hour),
		MatchedEvents: []models.MatchedEvent{},
	}
	ps.Predictions = append(ps.Predictions, p)
	if max := ps.Config.MaxPredictions; max > 0 && len(ps.Predictions) > max {
		ps.Predictions = ps.Predictions[len(ps.Predictions)-max:]
	}
	return &ps.Predictions[len(ps.Predictions)-1], nil
}

func defaultState(cfg *config.Config) *models.PredictionState {
	ps := models.DefaultPredictionState()
	ps.Config.VerificationWindowHours = cfg.Prediction.VerificationWindowHours
	ps.Config.CooldownHours = cfg.Prediction.CooldownHours
	ps.Config.MaxPredictions = cfg.Prediction.MaxPredictions
	return ps
}
