// Package favorites keeps the items each user has saved. Favorites live in an
// in-memory cache backed by the user's key-value store.
package favorites

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gurman-sys/rentbuddy/internal/services"
	"github.com/gurman-sys/rentbuddy/pkg/models"
)

// Store caches favorites per user. Load and Save move a user's list between
// the cache and the key-value store; the mutating operations save on success.
type Store struct {
	kv  services.KeyValueRepository
	now func() time.Time

	mu    sync.Mutex
	cache map[string][]models.Favorite
}

// NewStore creates a Store over kv.
func NewStore(kv services.KeyValueRepository) *Store {
	return &Store{
		kv:    kv,
		now:   time.Now,
		cache: make(map[string][]models.Favorite),
	}
}

// SetClock replaces the time source used for AddedAt.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Load reads the user's favorites from the key-value store, replacing any
// cached list.
func (s *Store) Load(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, userID)
}

// Save writes the user's cached favorites to the key-value store.
func (s *Store) Save(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, userID)
}

// List returns the user's favorites in the order they were added.
func (s *Store) List(ctx context.Context, userID string) ([]models.Favorite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	favs, err := s.get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(favs), nil
}

// IsFavorite reports whether the user saved the item.
func (s *Store) IsFavorite(ctx context.Context, userID, itemID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	favs, err := s.get(ctx, userID)
	if err != nil {
		return false, err
	}
	return indexOf(favs, itemID) >= 0, nil
}

// Add saves fav for the user, stamping AddedAt. Adding an item twice keeps the
// first entry; added reports whether the list changed.
func (s *Store) Add(ctx context.Context, userID string, fav models.Favorite) (f models.Favorite, added bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	favs, err := s.get(ctx, userID)
	if err != nil {
		return models.Favorite{}, false, err
	}
	if i := indexOf(favs, fav.ID); i >= 0 {
		return favs[i], false, nil
	}

	fav.AddedAt = s.now().UTC()
	prev := favs
	s.cache[userID] = append(slices.Clone(favs), fav)
	if err := s.save(ctx, userID); err != nil {
		s.cache[userID] = prev
		return models.Favorite{}, false, err
	}
	return fav, true, nil
}

// Remove deletes the item from the user's favorites. removed reports whether
// it was present.
func (s *Store) Remove(ctx context.Context, userID, itemID string) (removed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	favs, err := s.get(ctx, userID)
	if err != nil {
		return false, err
	}
	i := indexOf(favs, itemID)
	if i < 0 {
		return false, nil
	}

	prev := favs
	s.cache[userID] = slices.Delete(slices.Clone(favs), i, i+1)
	if err := s.save(ctx, userID); err != nil {
		s.cache[userID] = prev
		return false, err
	}
	return true, nil
}

// get returns the cached list, loading it on first use. Callers hold mu.
func (s *Store) get(ctx context.Context, userID string) ([]models.Favorite, error) {
	if favs, ok := s.cache[userID]; ok {
		return favs, nil
	}
	if err := s.load(ctx, userID); err != nil {
		return nil, err
	}
	return s.cache[userID], nil
}

func (s *Store) load(ctx context.Context, userID string) error {
	favs := []models.Favorite{}
	if _, err := services.GetJSON(ctx, s.kv, userID, services.KeyFavorites, &favs); err != nil {
		return fmt.Errorf("load favorites: %w", err)
	}
	s.cache[userID] = favs
	return nil
}

func (s *Store) save(ctx context.Context, userID string) error {
	favs, ok := s.cache[userID]
	if !ok {
		favs = []models.Favorite{}
	}
	if err := services.SetJSON(ctx, s.kv, userID, services.KeyFavorites, favs); err != nil {
		return fmt.Errorf("save favorites: %w", err)
	}
	return nil
}

func indexOf(favs []models.Favorite, itemID string) int {
	return slices.IndexFunc(favs, func(f models.Favorite) bool { return f.ID == itemID })
}
