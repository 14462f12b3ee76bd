package cars

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/Domenick1991/carrental/internal/metrics"
	"github.com/Domenick1991/carrental/internal/repository"
)

type CarUseCase interface {
	List(ctx context.Context) ([]domain.Car, error)
	GetByID(ctx context.Context, id int64) (*domain.Car, error)
}

// CarCache stores the full catalog list. GetCars returns nil on a miss.
type CarCache interface {
	GetCars(ctx context.Context) ([]domain.Car, error)
	SetCars(ctx context.Context, cars []domain.Car) error
}

type CarService struct {
	repo    repository.CarRepository
	cache   CarCache
	logger  *zap.Logger
	metrics *metrics.Metrics
	group   singleflight.Group
}

// NewCarService builds the catalog service. cache may be nil.
func NewCarService(repo repository.CarRepository, cache CarCache, logger *zap.Logger, m *metrics.Metrics) *CarService {
	return &CarService{repo: repo, cache: cache, logger: logger, metrics: m}
}

// List serves the catalog from the cache and falls back to the store,
// collapsing concurrent misses into one query. Cache failures only degrade
// to a store read.
func (s *CarService) List(ctx context.Context) ([]domain.Car, error) {
	if s.cache != nil {
		cached, err := s.cache.GetCars(ctx)
		if err != nil {
			s.logger.Warn("read cars cache", zap.Error(err))
		}
		if err == nil && cached != nil {
			s.metrics.ObserveCarsCache(true)
			return cached, nil
		}
		s.metrics.ObserveCarsCache(false)
	}

	v, err, _ := s.group.Do("cars", func() (any, error) {
		cars, err := s.repo.List(ctx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.SetCars(ctx, cars); err != nil {
				s.logger.Warn("fill cars cache", zap.Error(err))
			}
		}
		return cars, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Car), nil
}

// GetByID reads through to the store; deleted cars are not found.
func (s *CarService) GetByID(ctx context.Context, id int64) (*domain.Car, error) {
	car, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if car.IsDeleted {
		return nil, fmt.Errorf("%w: car %d", domain.ErrCarNotFound, id)
	}
	return car, nil
}

var _ CarUseCase = (*CarService)(nil)
