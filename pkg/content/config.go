package content

import (
	"errors"
	"fmt"
	"time"
)

// ErrStoreUnavailable wraps every store failure returned by the Service. The
// underlying cause stays reachable with errors.Is / errors.As.
var ErrStoreUnavailable = errors.New("content store unavailable")

// Config tunes page sizes and how long each kind of result may be served from
// cache. Entries are never invalidated on writes, so each TTL is also the
// longest time an edit made by the authoring system can stay invisible.
type Config struct {
	// PageSize applies when a request does not name one.
	PageSize int
	// MaxPageSize caps caller supplied sizes.
	MaxPageSize int

	PublicationsTTL time.Duration
	VacanciesTTL    time.Duration
	EntityTTL       time.Duration
	CategoriesTTL   time.Duration
	// HotTTL should be shorter than the listing TTLs.
	HotTTL time.Duration

	// HotSetSize bounds the hot vacancy sidebar.
	HotSetSize int

	// CoalesceMisses lets one caller per key query the store while concurrent
	// callers wait for its result.
	CoalesceMisses bool
	// StoreTimeout bounds a coalesced store read, which outlives the
	// cancellation of any single caller.
	StoreTimeout time.Duration
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		PageSize:        10,
		MaxPageSize:     100,
		PublicationsTTL: 5 * time.Minute,
		VacanciesTTL:    5 * time.Minute,
		EntityTTL:       10 * time.Minute,
		CategoriesTTL:   time.Hour,
		HotTTL:          time.Minute,
		HotSetSize:      5,
		CoalesceMisses:  true,
		StoreTimeout:    10 * time.Second,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", c.PageSize)
	}
	if c.MaxPageSize < c.PageSize {
		return fmt.Errorf("max page size %d is smaller than page size %d", c.MaxPageSize, c.PageSize)
	}
	if c.HotSetSize <= 0 {
		return fmt.Errorf("hot set size must be positive, got %d", c.HotSetSize)
	}
	ttls := []struct {
		name string
		ttl  time.Duration
	}{
		{"publications", c.PublicationsTTL},
		{"vacancies", c.VacanciesTTL},
		{"entity", c.EntityTTL},
		{"categories", c.CategoriesTTL},
		{"hot", c.HotTTL},
	}
	for _, t := range ttls {
		if t.ttl <= 0 {
			return fmt.Errorf("%s ttl must be positive, got %s", t.name, t.ttl)
		}
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("store timeout must be positive, got %s", c.StoreTimeout)
	}
	return nil
}
