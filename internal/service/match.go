package service

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/bookswapapp/bookswap-server/internal/domain"
	domainerrors "github.com/bookswapapp/bookswap-server/internal/errors"
	"github.com/bookswapapp/bookswap-server/internal/store"
)

// MatchService computes bounded candidate lists of books a user might want
// to request. Signal-matched candidates come first in stable catalog order;
// a random backfill pads the list to the target size so even a user who
// owns nothing gets a full result set.
type MatchService struct {
	store      *store.Store
	logger     *slog.Logger
	targetSize int
	topSignals int
	rng        *rand.Rand
}

// NewMatchService creates a new match service. rng may be nil, in which case
// a default source is used; tests inject a seeded source for deterministic
// backfill.
func NewMatchService(store *store.Store, logger *slog.Logger, targetSize, topSignals int, rng *rand.Rand) *MatchService {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &MatchService{
		store:      store,
		logger:     logger,
		targetSize: targetSize,
		topSignals: topSignals,
		rng:        rng,
	}
}

// Matches returns up to the target number of books the user does not own,
// each annotated with its current owner.
func (s *MatchService) Matches(ctx context.Context, userID string) ([]*BookWithOwner, error) {
	catalog, err := s.store.ListBooks(ctx)
	if err != nil {
		return nil, domainerrors.Internal("failed to load catalog").WithCause(err)
	}

	owned, err := s.store.GetBooksByOwner(ctx, userID)
	if err != nil {
		return nil, domainerrors.Internal("failed to load owned books").WithCause(err)
	}

	userGenres, userAuthors := ownedSignals(owned)
	topGenres, topAuthors := s.popularSignals(catalog)

	wantGenres := union(userGenres, topGenres)
	wantAuthors := union(userAuthors, topAuthors)

	// Phase one: signal-matched candidates in catalog order, de-duplicated
	// by edition so multiple owners' copies do not flood the list.
	seen := make(map[string]bool)
	matched := make([]*domain.Book, 0, s.targetSize)
	var rest []*domain.Book

	for _, book := range catalog {
		if book.OwnerID == userID {
			continue
		}
		ed := strings.ToLower(book.EditionKey())
		if seen[ed] {
			continue
		}

		if wantGenres[strings.ToLower(book.Genre)] || wantAuthors[strings.ToLower(book.Author)] {
			seen[ed] = true
			matched = append(matched, book)
		} else {
			rest = append(rest, book)
		}
	}

	if len(matched) > s.targetSize {
		matched = matched[:s.targetSize]
	}

	// Phase two: random backfill from the remaining pool until the target
	// size is reached or the catalog is exhausted.
	s.rng.Shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})
	for _, book := range rest {
		if len(matched) >= s.targetSize {
			break
		}
		ed := strings.ToLower(book.EditionKey())
		if seen[ed] {
			continue
		}
		seen[ed] = true
		matched = append(matched, book)
	}

	return annotateOwners(ctx, s.store, matched)
}

// ownedSignals extracts the distinct genres and authors of a user's owned
// books, lowercased.
func ownedSignals(owned []*domain.Book) (genres, authors map[string]bool) {
	genres = make(map[string]bool)
	authors = make(map[string]bool)
	for _, book := range owned {
		genres[strings.ToLower(book.Genre)] = true
		authors[strings.ToLower(book.Author)] = true
	}
	return genres, authors
}

// popularSignals returns the top genres and authors by book count across the
// whole catalog. Ties break alphabetically so the result is stable.
func (s *MatchService) popularSignals(catalog []*domain.Book) (genres, authors map[string]bool) {
	genreCounts := make(map[string]int)
	authorCounts := make(map[string]int)
	for _, book := range catalog {
		genreCounts[strings.ToLower(book.Genre)]++
		authorCounts[strings.ToLower(book.Author)]++
	}
	return topN(genreCounts, s.topSignals), topN(authorCounts, s.topSignals)
}

// topN picks the n highest-count keys, count descending then key ascending.
func topN(counts map[string]int, n int) map[string]bool {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] == counts[keys[j]] {
			return keys[i] < keys[j]
		}
		return counts[keys[i]] > counts[keys[j]]
	})

	if len(keys) > n {
		keys = keys[:n]
	}

	top := make(map[string]bool, len(keys))
	for _, k := range keys {
		top[k] = true
	}
	return top
}

// union merges two signal sets.
func union(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool, len(a)+len(b))
	for k := range a {
		out[k] = true
	}
	for k := range b {
		out[k] = true
	}
	return out
}
