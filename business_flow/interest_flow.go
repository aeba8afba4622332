package businessflow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/amirphl/pick-intro/app/services"
	"github.com/amirphl/pick-intro/models"
	"github.com/rs/zerolog"
)

const (
	msgInterestSearchFailed  = "We couldn't load interests right now."
	msgInterestResolveFailed = "We couldn't add that interest right now."
	msgInterestLimitReached  = "You've already selected the maximum number of interests."
	msgInterestLabelEmpty    = "Type an interest before adding it."
)

// InterestFlow searches and resolves free-text interests
type InterestFlow interface {
	Search(ctx context.Context, query string) ([]models.InterestOption, error)
	ResolveLabel(ctx context.Context, label string) (*models.InterestResolution, error)
	SelectByLabel(ctx context.Context, store *ProfileDraftStore, label string) (*models.InterestResolution, error)
	PendingIDs() []string
	IsPending(id string) bool
	HasPendingIn(ids []string) bool
}

// InterestResolver tracks ids created during this session that still await moderation.
// An id leaves the pending set once a search or resolution returns it as canonical.
type InterestResolver struct {
	interests services.InterestService
	logger    zerolog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	labels  map[string]string
}

// NewInterestResolver creates a resolver over an interest service
func NewInterestResolver(interests services.InterestService, logger zerolog.Logger) *InterestResolver {
	return &InterestResolver{
		interests: interests,
		logger:    logger.With().Str("component", "interest_resolver").Logger(),
		pending:   make(map[string]struct{}),
		labels:    make(map[string]string),
	}
}

// Search queries the catalog. An empty query returns the starter set and an empty result is not an error.
func (r *InterestResolver) Search(ctx context.Context, query string) ([]models.InterestOption, error) {
	query = strings.TrimSpace(query)
	options, err := r.interests.SearchInterests(ctx, query)
	if err != nil {
		r.logger.Warn().Err(err).Str("query", query).Msg("interest search failed")
		return nil, NewBusinessError("INTEREST_SEARCH_FAILED", messageOr(err, msgInterestSearchFailed), fmt.Errorf("%w: %w", ErrInterestSearchFailed, err))
	}
	if options == nil {
		options = []models.InterestOption{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, option := range options {
		delete(r.pending, option.ID)
		r.labels[option.ID] = option.Label
	}
	return options, nil
}

// ResolveLabel maps a free-text label to an interest id, creating a pending interest when unknown
func (r *InterestResolver) ResolveLabel(ctx context.Context, label string) (*models.InterestResolution, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, NewBusinessError("INTEREST_LABEL_REQUIRED", msgInterestLabelEmpty, ErrInterestLabelEmpty)
	}

	resolution, err := r.interests.ResolveInterest(ctx, label)
	if err != nil {
		interestResolutions.WithLabelValues("failed").Inc()
		r.logger.Warn().Err(err).Str("label", label).Msg("interest resolution failed")
		return nil, NewBusinessError("INTEREST_RESOLVE_FAILED", messageOr(err, msgInterestResolveFailed), fmt.Errorf("%w: %w", ErrInterestResolveFailed, err))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.labels[resolution.InterestID] = resolution.Label
	switch {
	case resolution.Created:
		r.pending[resolution.InterestID] = struct{}{}
		interestResolutions.WithLabelValues("created").Inc()
	case resolution.Matched:
		delete(r.pending, resolution.InterestID)
		interestResolutions.WithLabelValues("matched").Inc()
	default:
		interestResolutions.WithLabelValues("awaiting").Inc()
	}
	return resolution, nil
}

// SelectByLabel resolves label and selects the resulting id in store.
// It refuses locally when the store is already at its interest limit.
func (r *InterestResolver) SelectByLabel(ctx context.Context, store *ProfileDraftStore, label string) (*models.InterestResolution, error) {
	if !store.CanSelectInterest() {
		return nil, NewBusinessError("INTEREST_LIMIT_REACHED", msgInterestLimitReached, ErrInterestLimit)
	}
	resolution, err := r.ResolveLabel(ctx, label)
	if err != nil {
		return nil, err
	}
	if !store.SelectInterest(resolution.InterestID) {
		return resolution, NewBusinessError("INTEREST_LIMIT_REACHED", msgInterestLimitReached, ErrInterestLimit)
	}
	return resolution, nil
}

// PendingIDs returns the ids awaiting moderation
func (r *InterestResolver) PendingIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.pending))
	for id := range r.pending {
		ids = append(ids, id)
	}
	return ids
}

// IsPending reports whether id awaits moderation
func (r *InterestResolver) IsPending(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[id]
	return ok
}

// HasPendingIn reports whether any of ids awaits moderation
func (r *InterestResolver) HasPendingIn(ids []string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if _, ok := r.pending[id]; ok {
			return true
		}
	}
	return false
}

// Forget drops id from the pending set
func (r *InterestResolver) Forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, id)
}

// Label returns the last label seen for id, or id itself
func (r *InterestResolver) Label(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if label, ok := r.labels[id]; ok && label != "" {
		return label
	}
	return id
}

func messageOr(err error, fallback string) string {
	if msg := services.ServiceMessage(err); msg != "" {
		return msg
	}
	return fallback
}
