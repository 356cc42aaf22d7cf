package storage

import "sync"

// Memory is an in-process Store. The zero value is not usable; call NewMemory.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
	quota  int
}

// NewMemory returns an empty in-memory store without a quota.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// SetQuota limits the total number of bytes held across all values.
// Zero or negative disables the limit.
func (m *Memory) SetQuota(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quota = n
}

// Get retrieves the value stored under key.
func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set stores value under key, failing with ErrQuotaExceeded when the quota
// would be exceeded. A failed Set leaves the previous value in place.
func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.quota > 0 {
		size := len(value)
		for k, v := range m.values {
			if k != key {
				size += len(v)
			}
		}
		if size > m.quota {
			return &Error{Op: "set", Key: key, Err: ErrQuotaExceeded}
		}
	}
	m.values[key] = value
	return nil
}
