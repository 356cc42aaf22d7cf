// Package income stores monthly income and derives spending insights from it.
package income

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"spending-tracker/internal/models"
	"spending-tracker/internal/notify"
	"spending-tracker/internal/storage"
	"spending-tracker/internal/transfer"

	"go.uber.org/zap"
)

// StorageKey is the key holding the income collection.
const StorageKey = "spending-tracker-income"

// Repository holds the canonical income collection.
type Repository struct {
	mu sync.Mutex
	// pub is taken before mu is released so snapshots go out in mutation order.
	pub    sync.Mutex
	store  storage.Store
	logger *zap.Logger
	userID string
	now    func() time.Time
	data   models.IncomeData
	bus    notify.Bus[models.IncomeData]
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger used to report unreadable persisted data.
func WithLogger(l *zap.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// WithUserID sets the owner recorded on a freshly created collection.
func WithUserID(id string) Option {
	return func(r *Repository) { r.userID = id }
}

// WithClock replaces time.Now when deciding the current month.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// New loads the income collection from store. Unreadable data is logged and
// replaced by an empty collection.
func New(store storage.Store, opts ...Option) *Repository {
	r := &Repository{store: store, userID: models.DefaultUserID, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	r.data = r.load()
	return r
}

func (r *Repository) load() models.IncomeData {
	empty := models.NewIncomeData(r.userID)

	raw, ok, err := r.store.Get(StorageKey)
	if err != nil {
		r.logger.Warn("Failed to read income data, starting empty", zap.Error(err))
		return empty
	}
	if !ok {
		return empty
	}

	var d models.IncomeData
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		r.logger.Warn("Malformed income data, starting empty", zap.String("key", StorageKey), zap.Error(err))
		return empty
	}
	pruneMonths(&d)
	return d
}

func pruneMonths(d *models.IncomeData) {
	if d.Months == nil {
		d.Months = map[string]*models.MonthlyIncome{}
	}
	for month, m := range d.Months {
		if m == nil {
			delete(d.Months, month)
		}
	}
}

// apply runs fn under the lock and, when it reports a change, persists the
// collection and publishes a snapshot.
func (r *Repository) apply(fn func() bool) error {
	r.mu.Lock()
	if !fn() {
		r.mu.Unlock()
		return nil
	}
	b, err := json.Marshal(r.data)
	if err != nil {
		r.mu.Unlock()
		return &storage.Error{Op: "encode", Key: StorageKey, Err: err}
	}
	if err := r.store.Set(StorageKey, string(b)); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("save %s: %w", StorageKey, err)
	}
	snap := r.data.Clone()
	r.pub.Lock()
	r.mu.Unlock()

	r.bus.Publish(snap)
	r.pub.Unlock()
	return nil
}

// Subscribe registers fn to receive a snapshot after every successful mutation,
// in mutation order. Each subscriber gets its own copy. fn may call read
// accessors but must not mutate the repository.
func (r *Repository) Subscribe(fn func(models.IncomeData)) (cancel func()) {
	return r.bus.Subscribe(func(d models.IncomeData) { fn(d.Clone()) })
}

// Data returns a copy of the income collection.
func (r *Repository) Data() models.IncomeData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data.Clone()
}

// CurrentMonth returns the repository clock's month in UTC.
func (r *Repository) CurrentMonth() string {
	return r.now().UTC().Format("2006-01")
}

// SetMonthlyIncome records amount, rounded to cents, for month.
// A blank month or a negative amount is ignored.
func (r *Repository) SetMonthlyIncome(month string, amount float64) error {
	if month == "" || amount < 0 {
		return nil
	}
	return r.apply(func() bool {
		r.data.Months[month] = &models.MonthlyIncome{Month: month, Amount: round(amount, 2)}
		return true
	})
}

// SetUniversalIncome overwrites the income of every stored month, and of the
// current month, with amount rounded to cents. Previous per-month values are
// lost. A negative amount is ignored.
func (r *Repository) SetUniversalIncome(amount float64) error {
	if amount < 0 {
		return nil
	}
	rounded := round(amount, 2)
	current := r.CurrentMonth()
	return r.apply(func() bool {
		for _, m := range r.data.Months {
			m.Amount = rounded
		}
		r.data.Months[current] = &models.MonthlyIncome{Month: current, Amount: rounded}
		return true
	})
}

// GetMonthlyIncome returns the income of month, or 0.
func (r *Repository) GetMonthlyIncome(month string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.monthly(month)
}

func (r *Repository) monthly(month string) float64 {
	if m := r.data.Months[month]; m != nil {
		return m.Amount
	}
	return 0
}

// GetUniversalIncome returns the income of the latest stored month, or 0.
func (r *Repository) GetUniversalIncome() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	months := r.months()
	if len(months) == 0 {
		return 0
	}
	return r.monthly(months[0])
}

// GetAllMonths returns every month with recorded income, latest first.
func (r *Repository) GetAllMonths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.months()
}

func (r *Repository) months() []string {
	months := make([]string, 0, len(r.data.Months))
	for month := range r.data.Months {
		months = append(months, month)
	}
	slices.Sort(months)
	slices.Reverse(months)
	return months
}

// DeleteMonthlyIncome forgets the income of month.
func (r *Repository) DeleteMonthlyIncome(month string) error {
	return r.apply(func() bool {
		if _, ok := r.data.Months[month]; !ok {
			return false
		}
		delete(r.data.Months, month)
		return true
	})
}

// CalculateFinancialInsight rates totalExpenses against the income of month.
func (r *Repository) CalculateFinancialInsight(month string, totalExpenses float64) models.FinancialInsight {
	return Insight(r.GetMonthlyIncome(month), totalExpenses)
}

// ExportData returns the income collection as indented JSON.
func (r *Repository) ExportData() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return transfer.Encode(r.data)
}

// ImportData replaces the income collection with blob, which must be a JSON
// object with "months".
func (r *Repository) ImportData(blob string) error {
	var d models.IncomeData
	if err := transfer.Decode("income", "months", blob, &d); err != nil {
		return err
	}
	pruneMonths(&d)
	if d.UserID == "" {
		d.UserID = r.userID
	}
	return r.apply(func() bool {
		r.data = d
		return true
	})
}
