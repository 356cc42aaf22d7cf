// Package lending tracks money lent to and borrowed from other people.
//
// Unlike expenses, lending records carry a generated id and every mutation
// locates its record by that id.
package lending

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

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StorageKey is the key holding the lending collection.
const StorageKey = "spending-tracker-lending"

// Repository holds the canonical lending collection.
type Repository struct {
	mu sync.Mutex
	// pub is taken before mu is released so snapshots go out in mutation order.
	pub    sync.Mutex
	store  storage.Store
	logger *zap.Logger
	userID string
	now    func() time.Time
	newID  func() (string, error)
	data   models.LendingData
	bus    notify.Bus[models.LendingData]
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

// WithClock replaces time.Now when defaulting repayment dates.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// newID returns a UUIDv7: a millisecond timestamp followed by random bits.
func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// New loads the lending collection from store. Unreadable data is logged and
// replaced by an empty collection.
func New(store storage.Store, opts ...Option) *Repository {
	r := &Repository{store: store, userID: models.DefaultUserID, now: time.Now, newID: newID}
	for _, o := range opts {
		o(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	r.data = r.load()
	return r
}

func (r *Repository) load() models.LendingData {
	empty := models.NewLendingData(r.userID)

	raw, ok, err := r.store.Get(StorageKey)
	if err != nil {
		r.logger.Warn("Failed to read lending data, starting empty", zap.Error(err))
		return empty
	}
	if !ok {
		return empty
	}

	var d models.LendingData
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		r.logger.Warn("Malformed lending data, starting empty", zap.String("key", StorageKey), zap.Error(err))
		return empty
	}
	if d.Lendings == nil {
		d.Lendings = []models.Lending{}
	}
	return d
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
func (r *Repository) Subscribe(fn func(models.LendingData)) (cancel func()) {
	return r.bus.Subscribe(func(d models.LendingData) { fn(d.Clone()) })
}

// Data returns a copy of the lending collection.
func (r *Repository) Data() models.LendingData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data.Clone()
}

func (r *Repository) filter(keep func(models.Lending) bool) []models.Lending {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.Lending{}
	for _, l := range r.data.Lendings {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

func isOpen(t models.LendingType) func(models.Lending) bool {
	return func(l models.Lending) bool { return l.Type == t && l.Status == models.StatusActive }
}

// GetAllLendings returns every record in insertion order.
func (r *Repository) GetAllLendings() []models.Lending {
	return r.filter(func(models.Lending) bool { return true })
}

// GetActiveLendings returns the records not yet repaid.
func (r *Repository) GetActiveLendings() []models.Lending {
	return r.filter(func(l models.Lending) bool { return l.Status == models.StatusActive })
}

// GetLentToOthers returns active records of money lent out.
func (r *Repository) GetLentToOthers() []models.Lending {
	return r.filter(isOpen(models.Lent))
}

// GetBorrowedFromOthers returns active records of money borrowed.
func (r *Repository) GetBorrowedFromOthers() []models.Lending {
	return r.filter(isOpen(models.Borrowed))
}

func sum(ls []models.Lending) float64 {
	var total float64
	for _, l := range ls {
		total += l.Amount
	}
	return total
}

// GetTotalLent sums the active money lent out.
func (r *Repository) GetTotalLent() float64 { return sum(r.GetLentToOthers()) }

// GetTotalBorrowed sums the active money borrowed.
func (r *Repository) GetTotalBorrowed() float64 { return sum(r.GetBorrowedFromOthers()) }

// GetNetLending is GetTotalLent minus GetTotalBorrowed.
func (r *Repository) GetNetLending() float64 {
	return r.GetTotalLent() - r.GetTotalBorrowed()
}

// AddLending stores l under a freshly generated id and returns the stored
// record. Any id already set on l is replaced; a blank status becomes active.
func (r *Repository) AddLending(l models.Lending) (models.Lending, error) {
	id, err := r.newID()
	if err != nil {
		return models.Lending{}, fmt.Errorf("generate lending id: %w", err)
	}
	l.ID = id
	if l.Status == "" {
		l.Status = models.StatusActive
	}

	err = r.apply(func() bool {
		r.data.Lendings = append(r.data.Lendings, l)
		return true
	})
	if err != nil {
		return models.Lending{}, err
	}
	return l, nil
}

func (r *Repository) indexOf(id string) int {
	return slices.IndexFunc(r.data.Lendings, func(l models.Lending) bool { return l.ID == id })
}

// UpdateLending replaces the record with updated.ID. Unknown ids are ignored.
func (r *Repository) UpdateLending(updated models.Lending) error {
	return r.apply(func() bool {
		i := r.indexOf(updated.ID)
		if i < 0 {
			return false
		}
		r.data.Lendings[i] = updated
		return true
	})
}

// DeleteLending removes the record with id. Unknown ids are ignored.
func (r *Repository) DeleteLending(id string) error {
	return r.apply(func() bool {
		i := r.indexOf(id)
		if i < 0 {
			return false
		}
		r.data.Lendings = slices.Delete(r.data.Lendings, i, i+1)
		return true
	})
}

// MarkAsRepaid closes the record with id. An empty date means today (UTC).
func (r *Repository) MarkAsRepaid(id, date string) error {
	if date == "" {
		date = r.now().UTC().Format(time.DateOnly)
	}
	return r.apply(func() bool {
		i := r.indexOf(id)
		if i < 0 {
			return false
		}
		r.data.Lendings[i].Status = models.StatusRepaid
		r.data.Lendings[i].RepaymentDate = date
		return true
	})
}

// ExportData returns the lending collection as indented JSON.
func (r *Repository) ExportData() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return transfer.Encode(r.data)
}

// ImportData replaces the lending collection with blob, which must be a JSON
// object with "lendings".
func (r *Repository) ImportData(blob string) error {
	var d models.LendingData
	if err := transfer.Decode("lending", "lendings", blob, &d); err != nil {
		return err
	}
	if d.UserID == "" {
		d.UserID = r.userID
	}
	return r.apply(func() bool {
		r.data = d
		return true
	})
}
