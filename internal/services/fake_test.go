package services

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/samber/do"
	"github.com/shopspring/decimal"

	"scratchcard/internal/interfaces"
	"scratchcard/internal/models"
	"scratchcard/internal/pkg/caching"
	"scratchcard/internal/scratch"
)

var testNow = time.Date(2024, 5, 20, 15, 0, 0, 0, time.UTC)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// memStore keeps the catalog and ledger in memory with the same balance rules as the database.
type memStore struct {
	mu sync.Mutex

	categories map[int64]*models.Category
	prizes     map[int64]*models.Prize
	rtp        map[int64]*models.CategoryRTP
	users      map[string]*models.User
	sessions   map[string]*models.GameSession
	txns       []*models.Transaction
	nextID     int64

	failWin error
	// beforePurchase runs once, ahead of the next conditional debit.
	beforePurchase func()
}

var (
	_ interfaces.CatalogStore = (*memStore)(nil)
	_ interfaces.LedgerStore  = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{
		categories: map[int64]*models.Category{},
		prizes:     map[int64]*models.Prize{},
		rtp:        map[int64]*models.CategoryRTP{},
		users:      map[string]*models.User{},
		sessions:   map[string]*models.GameSession{},
	}
}

func (s *memStore) addUser(id string, balance string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &models.User{ID: id, Username: id, Role: models.UserRoleUser, WalletBalance: dec(balance)}
	s.users[id] = u
	return u
}

func (s *memStore) addCategory(slug string, price string, active bool) *models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c := &models.Category{ID: s.nextID, Name: slug, Slug: slug, Price: dec(price), MaxReward: dec("1000"), RTPPercentage: 85, Active: active}
	s.categories[c.ID] = c
	return c
}

func (s *memStore) addPrize(categoryID int64, name string, value string, weight int) *models.Prize {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p := &models.Prize{ID: s.nextID, CategoryID: categoryID, Name: name, Value: dec(value), ProbabilityWeight: weight, Type: models.PrizeTypeCash, Active: true}
	s.prizes[p.ID] = p
	return p
}

func (s *memStore) setRTP(categoryID int64, invested, paid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rtp[categoryID] = &models.CategoryRTP{CategoryID: categoryID, TotalInvested: dec(invested), TotalPaid: dec(paid)}
}

func (s *memStore) transactions(userID string, kind string) []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, t := range s.txns {
		if t.UserID == userID && (kind == "" || t.Type == kind) {
			out = append(out, *t)
		}
	}
	return out
}

func (s *memStore) balance(userID string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[userID].WalletBalance
}

func (s *memStore) ListCategories(_ context.Context, onlyActive bool) ([]models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Category
	for _, c := range s.categories {
		if !onlyActive || c.Active {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Price.Equal(out[j].Price) {
			return out[i].ID < out[j].ID
		}
		return out[i].Price.LessThan(out[j].Price)
	})
	return out, nil
}

func (s *memStore) GetCategoryBySlug(_ context.Context, slug string) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.Slug == slug {
			v := *c
			return &v, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memStore) GetCategoryByID(_ context.Context, id int64) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	v := *c
	return &v, nil
}

func (s *memStore) CreateCategory(_ context.Context, category *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	category.ID = s.nextID
	v := *category
	s.categories[v.ID] = &v
	return nil
}

func (s *memStore) UpdateCategory(_ context.Context, id int64, update *models.CategoryUpdate) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if update.Name != nil {
		c.Name = *update.Name
	}
	if update.Description != nil {
		c.Description = *update.Description
	}
	if update.Price != nil {
		c.Price = *update.Price
	}
	if update.MaxReward != nil {
		c.MaxReward = *update.MaxReward
	}
	if update.RTPPercentage != nil {
		c.RTPPercentage = *update.RTPPercentage
	}
	if update.BannerURL != nil {
		c.BannerURL = *update.BannerURL
	}
	if update.Active != nil {
		c.Active = *update.Active
	}
	v := *c
	return &v, nil
}

func (s *memStore) CountGamesByCategory(_ context.Context) (map[int64]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[int64]int{}
	for _, g := range s.sessions {
		out[g.CategoryID]++
	}
	return out, nil
}

func (s *memStore) ListPrizes(_ context.Context, categoryID int64, onlyActive bool) ([]models.Prize, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Prize
	for _, p := range s.prizes {
		if p.CategoryID == categoryID && (!onlyActive || p.Active) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value.LessThan(out[j].Value) })
	return out, nil
}

func (s *memStore) GetPrize(_ context.Context, id int64) (*models.Prize, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prizes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	v := *p
	return &v, nil
}

func (s *memStore) CreatePrize(_ context.Context, prize *models.Prize) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	prize.ID = s.nextID
	v := *prize
	s.prizes[v.ID] = &v
	return nil
}

func (s *memStore) UpdatePrize(_ context.Context, id int64, update *models.PrizeUpdate) (*models.Prize, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prizes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if update.Name != nil {
		p.Name = *update.Name
	}
	if update.ImageURL != nil {
		p.ImageURL = *update.ImageURL
	}
	if update.Value != nil {
		p.Value = *update.Value
	}
	if update.ProbabilityWeight != nil {
		p.ProbabilityWeight = *update.ProbabilityWeight
	}
	if update.Type != nil {
		p.Type = *update.Type
	}
	if update.Active != nil {
		p.Active = *update.Active
	}
	v := *p
	return &v, nil
}

func (s *memStore) GetOrCreateRTP(_ context.Context, categoryID int64) (*models.CategoryRTP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rtp[categoryID]
	if !ok {
		r = &models.CategoryRTP{CategoryID: categoryID}
		s.rtp[categoryID] = r
	}
	v := *r
	return &v, nil
}

func (s *memStore) GetCategoryStats(_ context.Context, categoryID int64) (*models.CategoryStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &models.CategoryStats{}
	for _, g := range s.sessions {
		if g.CategoryID != categoryID {
			continue
		}
		stats.TotalGames++
		if g.Won() {
			stats.TotalWins++
		}
	}
	return stats, nil
}

func (s *memStore) FindOrCreateUser(_ context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[user.ID]; ok {
		v := *u
		return &v, nil
	}
	v := *user
	s.users[user.ID] = &v
	return user, nil
}

func (s *memStore) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	v := *u
	return &v, nil
}

func (s *memStore) ListUsers(_ context.Context, page models.Page) ([]models.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, page), len(out), nil
}

func (s *memStore) debit(userID string, amount decimal.Decimal, spent bool) error {
	u, ok := s.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	if u.WalletBalance.LessThan(amount) {
		return interfaces.ErrBalanceTooLow
	}
	u.WalletBalance = u.WalletBalance.Sub(amount)
	if spent {
		u.TotalSpent = u.TotalSpent.Add(amount)
	}
	return nil
}

func (s *memStore) credit(userID string, amount decimal.Decimal, won bool) error {
	u, ok := s.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	u.WalletBalance = u.WalletBalance.Add(amount)
	if won {
		u.TotalWon = u.TotalWon.Add(amount)
	}
	return nil
}

func (s *memStore) insert(txn *models.Transaction) {
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = testNow
	}
	v := *txn
	s.txns = append(s.txns, &v)
}

func (s *memStore) RecordPurchase(_ context.Context, session *models.GameSession, purchase *models.Transaction) error {
	if hook := s.beforePurchase; hook != nil {
		s.beforePurchase = nil
		hook()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.debit(purchase.UserID, purchase.Amount, true); err != nil {
		return err
	}
	r, ok := s.rtp[session.CategoryID]
	if !ok {
		r = &models.CategoryRTP{CategoryID: session.CategoryID}
		s.rtp[session.CategoryID] = r
	}
	r.TotalInvested = r.TotalInvested.Add(session.AmountSpent)

	v := *session
	s.sessions[v.ID] = &v
	s.insert(purchase)
	return nil
}

func (s *memStore) RecordWin(_ context.Context, categoryID int64, win *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWin != nil {
		return s.failWin
	}
	s.insert(win)
	if err := s.credit(win.UserID, win.Amount, true); err != nil {
		return err
	}
	r := s.rtp[categoryID]
	r.TotalPaid = r.TotalPaid.Add(win.Amount)
	return nil
}

func (s *memStore) GetGameSession(_ context.Context, id string) (*models.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	v := *g
	return &v, nil
}

func (s *memStore) ListGameSessions(_ context.Context, filter models.GameSessionFilter) ([]models.GameSession, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.GameSession
	for _, g := range s.sessions {
		if filter.UserID != "" && g.UserID != filter.UserID {
			continue
		}
		if filter.CategoryID != 0 && g.CategoryID != filter.CategoryID {
			continue
		}
		if filter.OnlyWins && !g.Won() {
			continue
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, filter.Page), len(out), nil
}

func (s *memStore) CompleteGameSession(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.sessions[id]
	if !ok {
		return sql.ErrNoRows
	}
	if g.CompletedAt == nil {
		g.CompletedAt = &at
	}
	return nil
}

func (s *memStore) ListUnpaidWins(_ context.Context, limit int) ([]models.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	paid := map[string]bool{}
	for _, t := range s.txns {
		if t.Type == models.TransactionTypeWin && t.GameSessionID != nil {
			paid[*t.GameSessionID] = true
		}
	}
	var out []models.GameSession
	for _, g := range s.sessions {
		if g.AmountWon.IsPositive() && !paid[g.ID] && len(out) < limit {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (s *memStore) Credit(_ context.Context, txn *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.credit(txn.UserID, txn.Amount, false); err != nil {
		return err
	}
	s.insert(txn)
	return nil
}

func (s *memStore) ReserveWithdrawal(_ context.Context, txn *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.debit(txn.UserID, txn.Amount, false); err != nil {
		return err
	}
	s.insert(txn)
	return nil
}

func (s *memStore) SettleWithdrawal(_ context.Context, id string, status string, externalID *string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txns {
		if t.ID != id {
			continue
		}
		if t.Type != models.TransactionTypeWithdraw || t.Status != models.TransactionStatusPending {
			return nil, interfaces.ErrStateConflict
		}
		t.Status = status
		if externalID != nil {
			t.ExternalID = externalID
		}
		if status == models.TransactionStatusFailed || status == models.TransactionStatusCancelled {
			if err := s.credit(t.UserID, t.Amount, false); err != nil {
				return nil, err
			}
		}
		v := *t
		return &v, nil
	}
	return nil, sql.ErrNoRows
}

func (s *memStore) GetTransaction(_ context.Context, id string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txns {
		if t.ID == id {
			v := *t
			return &v, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memStore) GetTransactionByExternalID(_ context.Context, externalID string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txns {
		if t.ExternalID != nil && *t.ExternalID == externalID {
			v := *t
			return &v, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memStore) ListTransactions(_ context.Context, filter models.TransactionFilter) ([]models.Transaction, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for i := len(s.txns) - 1; i >= 0; i-- {
		t := s.txns[i]
		if (filter.UserID == "" || t.UserID == filter.UserID) &&
			(filter.Type == "" || t.Type == filter.Type) &&
			(filter.Status == "" || t.Status == filter.Status) {
			out = append(out, *t)
		}
	}
	return paginate(out, filter.Page), len(out), nil
}

func (s *memStore) CountWithdrawalsSince(_ context.Context, userID string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.txns {
		if t.UserID == userID && t.Type == models.TransactionTypeWithdraw && !t.CreatedAt.Before(since) &&
			(t.Status == models.TransactionStatusPending || t.Status == models.TransactionStatusCompleted) {
			n++
		}
	}
	return n, nil
}

func (s *memStore) SumTransactions(_ context.Context, userID string, since time.Time) ([]models.TransactionSum, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byType := map[string]*models.TransactionSum{}
	var order []string
	for _, t := range s.txns {
		if t.Status != models.TransactionStatusCompleted || t.CreatedAt.Before(since) {
			continue
		}
		if userID != "" && t.UserID != userID {
			continue
		}
		sum, ok := byType[t.Type]
		if !ok {
			sum = &models.TransactionSum{Type: t.Type}
			byType[t.Type] = sum
			order = append(order, t.Type)
		}
		sum.Total = sum.Total.Add(t.Amount)
		sum.Count++
	}
	sort.Strings(order)
	out := make([]models.TransactionSum, 0, len(order))
	for _, k := range order {
		out = append(out, *byType[k])
	}
	return out, nil
}

func (s *memStore) GetGeneralStats(ctx context.Context) (*models.GeneralStats, error) {
	sums, _ := s.SumTransactions(ctx, "", time.Time{})

	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &models.GeneralStats{TotalUsers: len(s.users), TotalGames: len(s.sessions)}
	for _, g := range s.sessions {
		if g.Won() {
			stats.TotalWins++
		}
	}
	for _, sum := range sums {
		switch sum.Type {
		case models.TransactionTypePurchase:
			stats.GamesRevenue = sum.Total
		case models.TransactionTypeWin:
			stats.GamesPayouts = sum.Total
		case models.TransactionTypeDeposit:
			stats.TotalDeposits = sum.Total
		case models.TransactionTypeWithdraw:
			stats.TotalWithdrawals = sum.Total
		}
	}
	for _, c := range s.categories {
		if c.Active {
			stats.ActiveCategories++
		}
	}
	return stats, nil
}

func (s *memStore) ListLedgerMismatches(_ context.Context, limit int) ([]models.LedgerMismatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.LedgerMismatch
	for _, u := range s.users {
		ledger := ledgerBalance(s.txns, u.ID)
		if !ledger.Equal(u.WalletBalance) && len(out) < limit {
			out = append(out, models.LedgerMismatch{UserID: u.ID, WalletBalance: u.WalletBalance, LedgerBalance: ledger})
		}
	}
	return out, nil
}

// ledgerBalance is the signed sum of completed transactions, with pending
// withdrawals counted as reserved.
func ledgerBalance(txns []*models.Transaction, userID string) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txns {
		if t.UserID != userID {
			continue
		}
		counted := t.Status == models.TransactionStatusCompleted ||
			(t.Status == models.TransactionStatusPending && t.Type == models.TransactionTypeWithdraw)
		if !counted {
			continue
		}
		if t.IsCredit() {
			total = total.Add(t.Amount)
		} else {
			total = total.Sub(t.Amount)
		}
	}
	return total
}

func paginate[T any](items []T, page models.Page) []T {
	page = page.Normalize()
	start := page.Offset()
	if start >= len(items) {
		return nil
	}
	end := start + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

type nopLocker struct {
	err error
}

func (l *nopLocker) Obtain(context.Context, string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	return func() {}, nil
}

type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]string
}

func (m *memIdempotency) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *memIdempotency) Save(_ context.Context, key string, sessionID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; !ok {
		m.keys[key] = sessionID
	}
	return nil
}

var errStorageDown = errors.New("connection refused")

// newTestContainer wires every service over store the same way cmd/api does over postgres and redis.
func newTestContainer(t *testing.T, store *memStore, locker interfaces.Locker) *do.Injector {
	t.Helper()
	if locker == nil {
		locker = &nopLocker{}
	}

	settings := DefaultSettings()
	settings.Location = time.UTC

	mem := caching.NewMemory(1000, time.Minute)

	injector := do.New()
	do.ProvideValue(injector, settings)
	do.ProvideValue(injector, scratch.NewEngine(settings.Engine, rand.NewSource(7)))
	do.ProvideValue[interfaces.CatalogStore](injector, store)
	do.ProvideValue[interfaces.LedgerStore](injector, store)
	do.ProvideValue[interfaces.Locker](injector, locker)
	do.ProvideValue[interfaces.IdempotencyStore](injector, &memIdempotency{keys: map[string]string{}})
	do.ProvideValue[caching.Cache](injector, mem)
	do.ProvideValue[caching.ReadOnlyCache](injector, mem)

	do.Provide(injector, NewServiceCatalog)
	do.Provide(injector, NewServicePurchase)
	do.Provide(injector, NewServiceGame)
	do.Provide(injector, NewServiceWallet)
	do.Provide(injector, NewServiceAdmin)
	do.Provide(injector, NewServiceReconcile)
	do.Provide(injector, NewServiceUser)
	return injector
}
