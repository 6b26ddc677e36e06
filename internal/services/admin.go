package services

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"scratchcard/internal/interfaces"
	"scratchcard/internal/models"

	"github.com/samber/do"
)

const DEFAULT_ADMIN_CREDIT_DESCRIPTION = "Admin credit"

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type ServiceAdmin struct {
	container *do.Injector
	catalog   interfaces.CatalogStore
	ledger    interfaces.LedgerStore
	cards     *ServiceCatalog
	games     *ServiceGame
	wallet    *ServiceWallet
}

func NewServiceAdmin(container *do.Injector) (*ServiceAdmin, error) {
	catalog, err := do.Invoke[interfaces.CatalogStore](container)
	if err != nil {
		return nil, err
	}

	ledger, err := do.Invoke[interfaces.LedgerStore](container)
	if err != nil {
		return nil, err
	}

	cards, err := do.Invoke[*ServiceCatalog](container)
	if err != nil {
		return nil, err
	}

	games, err := do.Invoke[*ServiceGame](container)
	if err != nil {
		return nil, err
	}

	wallet, err := do.Invoke[*ServiceWallet](container)
	if err != nil {
		return nil, err
	}

	return &ServiceAdmin{container, catalog, ledger, cards, games, wallet}, nil
}

func (service *ServiceAdmin) GetGeneralStats(ctx context.Context) (*models.GeneralStats, error) {
	stats, err := service.ledger.GetGeneralStats(ctx)
	if err != nil {
		return nil, storageFailure("general stats", err, nil)
	}
	return stats, nil
}

func (service *ServiceAdmin) ListUsers(ctx context.Context, page models.Page) (*models.Paginated[models.User], error) {
	page = page.Normalize()
	users, total, err := service.ledger.ListUsers(ctx, page)
	if err != nil {
		return nil, storageFailure("list users", err, nil)
	}
	return models.NewPaginated(users, page, total), nil
}

func (service *ServiceAdmin) AddUserBalance(ctx context.Context, userID string, amount decimal.Decimal, reason string) (*models.Transaction, error) {
	if _, err := service.ledger.GetUser(ctx, userID); err != nil {
		return nil, lookupFailure("get user", "user "+userID, err, log.Fields{"user_id": userID})
	}
	if reason == "" {
		reason = DEFAULT_ADMIN_CREDIT_DESCRIPTION
	}
	return service.wallet.AddBalance(ctx, userID, amount, reason)
}

// ListCategories returns every category, inactive ones included, with its game count.
func (service *ServiceAdmin) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := service.catalog.ListCategories(ctx, false)
	if err != nil {
		return nil, storageFailure("list categories", err, nil)
	}

	counts, err := service.catalog.CountGamesByCategory(ctx)
	if err != nil {
		return nil, storageFailure("count games", err, nil)
	}
	for i := range categories {
		categories[i].TotalGames = counts[categories[i].ID]
	}
	return categories, nil
}

func (service *ServiceAdmin) CreateCategory(ctx context.Context, input *models.CategoryInput) (*models.Category, error) {
	category := &models.Category{
		Name:          strings.TrimSpace(input.Name),
		Slug:          strings.TrimSpace(input.Slug),
		Description:   input.Description,
		Price:         input.Price,
		MaxReward:     input.MaxReward,
		RTPPercentage: DEFAULT_CATEGORY_RTP,
		Active:        true,
		BannerURL:     input.BannerURL,
	}
	if input.RTPPercentage != nil {
		category.RTPPercentage = *input.RTPPercentage
	}

	if category.Name == "" {
		return nil, invalid("name is required")
	}
	if !slugPattern.MatchString(category.Slug) {
		return nil, invalid("slug must be lowercase letters, digits and dashes")
	}
	if err := validateCategoryMoney(category.Price, category.MaxReward); err != nil {
		return nil, err
	}
	if err := validateRTP(category.RTPPercentage); err != nil {
		return nil, err
	}

	_, err := service.catalog.GetCategoryBySlug(ctx, category.Slug)
	switch {
	case err == nil:
		return nil, invalid("slug %q is already used", category.Slug)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, storageFailure("get category", err, log.Fields{"category": category.Slug})
	}

	if err := service.catalog.CreateCategory(ctx, category); err != nil {
		return nil, storageFailure("create category", err, log.Fields{"category": category.Slug})
	}

	service.cards.Invalidate(ctx, category.Slug)
	return category, nil
}

func (service *ServiceAdmin) UpdateCategory(ctx context.Context, id int64, update *models.CategoryUpdate) (*models.Category, error) {
	if update.Empty() {
		return nil, invalid("nothing to update")
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, invalid("name cannot be empty")
	}

	current, err := service.catalog.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, lookupFailure("get category", "category", err, log.Fields{"category_id": id})
	}

	price, maxReward := current.Price, current.MaxReward
	if update.Price != nil {
		price = *update.Price
	}
	if update.MaxReward != nil {
		maxReward = *update.MaxReward
	}
	if err := validateCategoryMoney(price, maxReward); err != nil {
		return nil, err
	}
	if update.RTPPercentage != nil {
		if err := validateRTP(*update.RTPPercentage); err != nil {
			return nil, err
		}
	}

	category, err := service.catalog.UpdateCategory(ctx, id, update)
	if err != nil {
		return nil, lookupFailure("update category", "category", err, log.Fields{"category_id": id})
	}

	service.cards.Invalidate(ctx, category.Slug)
	return category, nil
}

func (service *ServiceAdmin) DeactivateCategory(ctx context.Context, id int64) (*models.Category, error) {
	active := false
	return service.UpdateCategory(ctx, id, &models.CategoryUpdate{Active: &active})
}

func (service *ServiceAdmin) ListPrizes(ctx context.Context, categoryID int64) ([]models.Prize, error) {
	if _, err := service.catalog.GetCategoryByID(ctx, categoryID); err != nil {
		return nil, lookupFailure("get category", "category", err, log.Fields{"category_id": categoryID})
	}

	prizes, err := service.catalog.ListPrizes(ctx, categoryID, false)
	if err != nil {
		return nil, storageFailure("list prizes", err, log.Fields{"category_id": categoryID})
	}
	return prizes, nil
}

func (service *ServiceAdmin) CreatePrize(ctx context.Context, input *models.PrizeInput) (*models.Prize, error) {
	prize := &models.Prize{
		CategoryID:        input.CategoryID,
		Name:              strings.TrimSpace(input.Name),
		ImageURL:          input.ImageURL,
		Value:             input.Value,
		ProbabilityWeight: 1,
		Type:              input.Type,
		Active:            true,
	}
	if input.ProbabilityWeight != nil {
		prize.ProbabilityWeight = *input.ProbabilityWeight
	}
	if prize.Type == "" {
		prize.Type = models.PrizeTypeCash
	}

	if prize.Name == "" {
		return nil, invalid("name is required")
	}
	if err := validatePrize(prize.Value, prize.ProbabilityWeight, prize.Type); err != nil {
		return nil, err
	}

	category, err := service.catalog.GetCategoryByID(ctx, prize.CategoryID)
	if err != nil {
		return nil, lookupFailure("get category", "category", err, log.Fields{"category_id": prize.CategoryID})
	}

	if err := service.catalog.CreatePrize(ctx, prize); err != nil {
		return nil, storageFailure("create prize", err, log.Fields{"category_id": prize.CategoryID})
	}

	service.cards.Invalidate(ctx, category.Slug)
	return prize, nil
}

func (service *ServiceAdmin) UpdatePrize(ctx context.Context, id int64, update *models.PrizeUpdate) (*models.Prize, error) {
	if update.Empty() {
		return nil, invalid("nothing to update")
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, invalid("name cannot be empty")
	}

	current, err := service.catalog.GetPrize(ctx, id)
	if err != nil {
		return nil, lookupFailure("get prize", "prize", err, log.Fields{"prize_id": id})
	}

	value, weight, kind := current.Value, current.ProbabilityWeight, current.Type
	if update.Value != nil {
		value = *update.Value
	}
	if update.ProbabilityWeight != nil {
		weight = *update.ProbabilityWeight
	}
	if update.Type != nil {
		kind = *update.Type
	}
	if err := validatePrize(value, weight, kind); err != nil {
		return nil, err
	}

	prize, err := service.catalog.UpdatePrize(ctx, id, update)
	if err != nil {
		return nil, lookupFailure("update prize", "prize", err, log.Fields{"prize_id": id})
	}

	if category, err := service.catalog.GetCategoryByID(ctx, prize.CategoryID); err == nil {
		service.cards.Invalidate(ctx, category.Slug)
	} else {
		log.WithError(err).WithField("prize_id", id).Warn("catalog cache not invalidated")
	}
	return prize, nil
}

func (service *ServiceAdmin) DeactivatePrize(ctx context.Context, id int64) (*models.Prize, error) {
	active := false
	return service.UpdatePrize(ctx, id, &models.PrizeUpdate{Active: &active})
}

func (service *ServiceAdmin) ListGames(ctx context.Context, filter models.GameSessionFilter) (*models.Paginated[models.GameSession], error) {
	return service.games.ListGames(ctx, filter)
}

func (service *ServiceAdmin) ListTransactions(ctx context.Context, filter models.TransactionFilter) (*models.Paginated[models.Transaction], error) {
	return service.wallet.ListTransactions(ctx, filter)
}

func validateCategoryMoney(price, maxReward decimal.Decimal) error {
	if !price.IsPositive() {
		return invalid("price must be positive")
	}
	if price.Exponent() < -2 || maxReward.Exponent() < -2 {
		return invalid("amounts take at most two decimal places")
	}
	if !maxReward.IsPositive() {
		return invalid("max_reward must be positive")
	}
	return nil
}

func validateRTP(v int) error {
	if v < CATEGORY_RTP_MIN || v > CATEGORY_RTP_MAX {
		return invalid("rtp_percentage must be between %d and %d", CATEGORY_RTP_MIN, CATEGORY_RTP_MAX)
	}
	return nil
}

func validatePrize(value decimal.Decimal, weight int, kind string) error {
	if !value.IsPositive() {
		return invalid("value must be positive")
	}
	if value.Exponent() < -2 {
		return invalid("value takes at most two decimal places")
	}
	if weight <= 0 {
		return invalid("probability_weight must be positive")
	}
	if kind != models.PrizeTypeCash && kind != models.PrizeTypeProduct {
		return invalid("type must be cash or product")
	}
	return nil
}
