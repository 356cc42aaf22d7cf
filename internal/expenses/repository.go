// Package expenses owns the expense collection and the category registry.
//
// Expenses have no identifier. Update and delete locate the first record that
// structurally matches the one supplied (see models.MatchesExpense), so two
// identical expenses are interchangeable.
package expenses

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"spending-tracker/internal/models"
	"spending-tracker/internal/notify"
	"spending-tracker/internal/storage"
	"spending-tracker/internal/transfer"

	"go.uber.org/zap"
)

// Storage keys for the expense collection and the category registry.
const (
	StorageKey    = "spending-tracker"
	CategoriesKey = "spending-tracker-categories"
)

// Snapshot is the state delivered to subscribers after each mutation.
type Snapshot struct {
	Data       models.ExpenseData `json:"data"`
	Categories []string           `json:"categories"`
}

// Repository holds the canonical expense collection.
type Repository struct {
	mu sync.Mutex
	// pub is taken before mu is released so snapshots go out in mutation order.
	pub        sync.Mutex
	store      storage.Store
	logger     *zap.Logger
	userID     string
	data       models.ExpenseData
	categories []string
	bus        notify.Bus[Snapshot]
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

// New loads the expense collection and category registry from store.
// Unreadable data is logged and replaced by an empty collection.
func New(store storage.Store, opts ...Option) *Repository {
	r := &Repository{store: store, userID: models.DefaultUserID}
	for _, o := range opts {
		o(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	r.data = r.loadExpenses()
	r.categories = r.loadCategories()
	return r
}

func (r *Repository) loadExpenses() models.ExpenseData {
	empty := models.NewExpenseData(r.userID)

	raw, ok, err := r.store.Get(StorageKey)
	if err != nil {
		r.logger.Warn("Failed to read expense data, starting empty", zap.Error(err))
		return empty
	}
	if !ok {
		return empty
	}

	var d models.ExpenseData
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		r.logger.Warn("Malformed expense data, starting empty", zap.String("key", StorageKey), zap.Error(err))
		return empty
	}
	pruneMonths(&d)
	return d
}

func (r *Repository) loadCategories() []string {
	raw, ok, err := r.store.Get(CategoriesKey)
	if err != nil {
		r.logger.Warn("Failed to read categories, starting empty", zap.Error(err))
		return []string{}
	}
	if !ok {
		return []string{}
	}

	var cats []string
	if err := json.Unmarshal([]byte(raw), &cats); err != nil {
		r.logger.Warn("Malformed categories, starting empty", zap.String("key", CategoriesKey), zap.Error(err))
		return []string{}
	}
	if cats == nil {
		cats = []string{}
	}
	return cats
}

// pruneMonths enforces that a month key exists only while it has expenses.
func pruneMonths(d *models.ExpenseData) {
	if d.Months == nil {
		d.Months = map[string]*models.MonthlyExpense{}
	}
	for month, m := range d.Months {
		if m == nil || len(m.Expenses) == 0 {
			delete(d.Months, month)
		}
	}
}

type change uint8

const (
	changedExpenses change = 1 << iota
	changedCategories
)

// apply runs fn under the lock. When fn reports a change the affected keys are
// rewritten in full and, once every write succeeded, a snapshot is published.
// A failed write leaves the in-memory change in place and publishes nothing.
func (r *Repository) apply(fn func() change) error {
	r.mu.Lock()
	ch := fn()
	if ch == 0 {
		r.mu.Unlock()
		return nil
	}
	if err := r.persist(ch); err != nil {
		r.mu.Unlock()
		return err
	}
	snap := r.snapshot()
	r.pub.Lock()
	r.mu.Unlock()

	r.bus.Publish(snap)
	r.pub.Unlock()
	return nil
}

func (r *Repository) persist(ch change) error {
	if ch&changedExpenses != 0 {
		if err := r.write(StorageKey, r.data); err != nil {
			return err
		}
	}
	if ch&changedCategories != 0 {
		if err := r.write(CategoriesKey, r.categories); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) write(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return &storage.Error{Op: "encode", Key: key, Err: err}
	}
	if err := r.store.Set(key, string(b)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (r *Repository) snapshot() Snapshot {
	return Snapshot{Data: r.data.Clone(), Categories: slices.Clone(r.categories)}
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{Data: s.Data.Clone(), Categories: slices.Clone(s.Categories)}
}

// Subscribe registers fn to receive a snapshot after every successful mutation,
// in mutation order. Each subscriber gets its own copy. fn may call read
// accessors but must not mutate the repository.
func (r *Repository) Subscribe(fn func(Snapshot)) (cancel func()) {
	return r.bus.Subscribe(func(s Snapshot) { fn(s.Clone()) })
}

// Data returns a copy of the whole expense collection.
func (r *Repository) Data() models.ExpenseData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data.Clone()
}

// GetExpenses returns the expenses of month in insertion order.
func (r *Repository) GetExpenses(month string) []models.Expense {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.data.Months[month]
	if m == nil {
		return []models.Expense{}
	}
	out := make([]models.Expense, len(m.Expenses))
	for i, e := range m.Expenses {
		out[i] = e.Clone()
	}
	return out
}

// GetAllMonths returns every month holding expenses, latest first.
func (r *Repository) GetAllMonths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	months := make([]string, 0, len(r.data.Months))
	for month := range r.data.Months {
		months = append(months, month)
	}
	slices.Sort(months)
	slices.Reverse(months)
	return months
}

func normalize(e models.Expense) models.Expense {
	e = e.Clone()
	e.Category = Capitalize(e.Category)
	return e
}

func indexOf(expenses []models.Expense, target models.Expense) int {
	return slices.IndexFunc(expenses, func(e models.Expense) bool {
		return models.MatchesExpense(e, target)
	})
}

func (r *Repository) appendTo(month string, e models.Expense) {
	m := r.data.Months[month]
	if m == nil {
		m = &models.MonthlyExpense{}
		r.data.Months[month] = m
	}
	m.Expenses = append(m.Expenses, e)
}

func (r *Repository) removeAt(month string, i int) {
	m := r.data.Months[month]
	m.Expenses = slices.Delete(m.Expenses, i, i+1)
	if len(m.Expenses) == 0 {
		delete(r.data.Months, month)
	}
}

// AddExpense normalizes the category of e, appends e to its month and
// registers the category. The amount is stored as given.
func (r *Repository) AddExpense(e models.Expense) error {
	return r.apply(func() change {
		e = normalize(e)
		r.appendTo(e.Month(), e)
		ch := changedExpenses
		if r.register(e.Category) {
			ch |= changedCategories
		}
		return ch
	})
}

// UpdateExpense replaces the stored record matching original with updated.
// When the date moves to another month the record leaves original's month
// and is appended to the new one. Nothing happens if original is not found.
func (r *Repository) UpdateExpense(updated, original models.Expense) error {
	return r.apply(func() change {
		from := original.Month()
		m := r.data.Months[from]
		if m == nil {
			return 0
		}
		i := indexOf(m.Expenses, original)
		if i < 0 {
			return 0
		}

		updated = normalize(updated)
		if to := updated.Month(); to == from {
			m.Expenses[i] = updated
		} else {
			r.removeAt(from, i)
			r.appendTo(to, updated)
		}

		ch := changedExpenses
		if r.register(updated.Category) {
			ch |= changedCategories
		}
		return ch
	})
}

// UpdateExpenseInPlace replaces the first record in updated's month that
// structurally matches updated itself, so only fields outside the match key
// (payment mode, tags, category casing) can change.
//
// Deprecated: use UpdateExpense with the original record.
func (r *Repository) UpdateExpenseInPlace(updated models.Expense) error {
	return r.apply(func() change {
		m := r.data.Months[updated.Month()]
		if m == nil {
			return 0
		}
		i := indexOf(m.Expenses, updated)
		if i < 0 {
			return 0
		}
		updated = normalize(updated)
		m.Expenses[i] = updated

		ch := changedExpenses
		if r.register(updated.Category) {
			ch |= changedCategories
		}
		return ch
	})
}

// DeleteExpense removes the first record matching target. The month is
// dropped once it has no expenses left.
func (r *Repository) DeleteExpense(target models.Expense) error {
	return r.apply(func() change {
		month := target.Month()
		m := r.data.Months[month]
		if m == nil {
			return 0
		}
		i := indexOf(m.Expenses, target)
		if i < 0 {
			return 0
		}
		r.removeAt(month, i)
		return changedExpenses
	})
}

// RenameCategory moves every expense filed under any case-variant of old to
// the display form of newName and updates the registry accordingly.
// Blank names are ignored.
func (r *Repository) RenameCategory(old, newName string) error {
	return r.apply(func() change {
		newName = Capitalize(newName)
		if Capitalize(old) == "" || newName == "" {
			return 0
		}

		var ch change
		for _, m := range r.data.Months {
			for i := range m.Expenses {
				e := &m.Expenses[i]
				if sameCategory(e.Category, old) && e.Category != newName {
					e.Category = newName
					ch |= changedExpenses
				}
			}
		}
		if r.renameRegistered(old, newName) {
			ch |= changedCategories
		}
		return ch
	})
}

// DeleteCategory unregisters name and deletes every expense filed under it.
func (r *Repository) DeleteCategory(name string) error {
	return r.apply(func() change {
		if Capitalize(name) == "" {
			return 0
		}

		var ch change
		for month, m := range r.data.Months {
			n := len(m.Expenses)
			m.Expenses = slices.DeleteFunc(m.Expenses, func(e models.Expense) bool {
				return sameCategory(e.Category, name)
			})
			if len(m.Expenses) != n {
				ch |= changedExpenses
			}
			if len(m.Expenses) == 0 {
				delete(r.data.Months, month)
			}
		}
		if r.unregister(name) {
			ch |= changedCategories
		}
		return ch
	})
}

// ExportData returns the expense collection as indented JSON. The category
// registry is not included.
func (r *Repository) ExportData() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return transfer.Encode(r.data)
}

// ImportData replaces the whole expense collection with blob and registers
// the categories it uses. The blob must be a JSON object with "months".
func (r *Repository) ImportData(blob string) error {
	var d models.ExpenseData
	if err := transfer.Decode("expenses", "months", blob, &d); err != nil {
		return err
	}
	pruneMonths(&d)
	if d.UserID == "" {
		d.UserID = r.userID
	}

	err := r.apply(func() change {
		r.data = d
		ch := changedExpenses

		months := make([]string, 0, len(d.Months))
		for month := range d.Months {
			months = append(months, month)
		}
		slices.Sort(months)
		for _, month := range months {
			for _, e := range d.Months[month].Expenses {
				if r.register(e.Category) {
					ch |= changedCategories
				}
			}
		}
		return ch
	})
	if err != nil {
		return err
	}
	r.logger.Debug("Imported expense data", zap.Int("months", len(d.Months)))
	return nil
}
