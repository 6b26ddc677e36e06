package services

import (
	"context"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"scratchcard/internal/interfaces"
	"scratchcard/internal/models"
	"scratchcard/internal/pkg/caching"
	"scratchcard/internal/scratch"

	"github.com/samber/do"
)

type ServiceCatalog struct {
	container     *do.Injector
	catalog       interfaces.CatalogStore
	cache         caching.Cache
	readonlyCache caching.ReadOnlyCache
}

func NewServiceCatalog(container *do.Injector) (*ServiceCatalog, error) {
	catalog, err := do.Invoke[interfaces.CatalogStore](container)
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	readonlyCache, err := do.Invoke[caching.ReadOnlyCache](container)
	if err != nil {
		return nil, err
	}

	return &ServiceCatalog{container, catalog, cache, readonlyCache}, nil
}

// ListCategories returns the active categories, cheapest first.
func (service *ServiceCatalog) ListCategories(ctx context.Context) ([]models.Category, error) {
	callback := func() ([]models.Category, error) {
		return service.catalog.ListCategories(ctx, true)
	}

	categories, err := caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyCategoryList(), CACHE_TTL_1_MIN, callback)
	if err != nil {
		return nil, storageFailure("list categories", err, nil)
	}
	return categories, nil
}

func (service *ServiceCatalog) GetCategory(ctx context.Context, slug string) (*models.CategoryDetail, error) {
	callback := func() (*models.CategoryDetail, error) {
		category, err := service.activeCategory(ctx, slug)
		if err != nil {
			return nil, err
		}

		rewards, err := service.rewards(ctx, category.ID)
		if err != nil {
			return nil, err
		}

		return &models.CategoryDetail{Category: *category, Rewards: rewards}, nil
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyCategory(slug), CACHE_TTL_1_MIN, callback)
}

// GetCategoryRewards lists what a category can pay out without exposing the weights.
func (service *ServiceCatalog) GetCategoryRewards(ctx context.Context, slug string) ([]models.PrizeSummary, error) {
	detail, err := service.GetCategory(ctx, slug)
	if err != nil {
		return nil, err
	}
	return detail.Rewards, nil
}

func (service *ServiceCatalog) GetCategoryStats(ctx context.Context, slug string) (*models.CategoryStats, error) {
	category, err := service.activeCategory(ctx, slug)
	if err != nil {
		return nil, err
	}

	stats, err := service.catalog.GetCategoryStats(ctx, category.ID)
	if err != nil {
		return nil, storageFailure("category stats", err, log.Fields{"category": slug})
	}

	rtp, err := service.catalog.GetOrCreateRTP(ctx, category.ID)
	if err != nil {
		return nil, storageFailure("category rtp", err, log.Fields{"category": slug})
	}

	state := scratch.StateOf(rtp)
	stats.TotalInvested = state.TotalInvested
	stats.TotalPaid = state.TotalPaid
	stats.CurrentRTP = state.Percent()
	stats.WinRate = winRate(stats.TotalWins, stats.TotalGames)
	return stats, nil
}

// Invalidate drops the cached views of a category and the list.
func (service *ServiceCatalog) Invalidate(ctx context.Context, slugs ...string) {
	keys := []string{DBKeyCategoryList()}
	for _, slug := range slugs {
		keys = append(keys, DBKeyCategory(slug))
	}

	for _, key := range keys {
		if err := service.cache.Delete(ctx, key); err != nil {
			log.WithError(err).WithField("key", key).Warn("cache invalidation failed")
		}
	}
}

func (service *ServiceCatalog) activeCategory(ctx context.Context, slug string) (*models.Category, error) {
	category, err := service.catalog.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, lookupFailure("get category", "category "+slug, err, log.Fields{"category": slug})
	}
	if !category.Active {
		return nil, notFound("category " + slug)
	}
	return category, nil
}

func (service *ServiceCatalog) rewards(ctx context.Context, categoryID int64) ([]models.PrizeSummary, error) {
	prizes, err := service.catalog.ListPrizes(ctx, categoryID, true)
	if err != nil {
		return nil, storageFailure("list prizes", err, log.Fields{"category_id": categoryID})
	}

	rewards := make([]models.PrizeSummary, 0, len(prizes))
	for i := range prizes {
		rewards = append(rewards, *prizes[i].Summary())
	}
	return rewards, nil
}

func winRate(wins, games int) decimal.Decimal {
	if games == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(wins)).Mul(decimal.NewFromInt(100)).DivRound(decimal.NewFromInt(int64(games)), 2)
}
