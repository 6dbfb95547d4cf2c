package loaders

import (
	"context"
	"net/http"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/zatekoja/roadsideassist/internal/domain/entities"
	"github.com/zatekoja/roadsideassist/internal/domain/repositories"
	apperrors "github.com/zatekoja/roadsideassist/pkg/errors"
)

type ctxKey string

const loadersKey ctxKey = "dataloaders"

// Loaders holds the per-request dataloaders
type Loaders struct {
	PartnerLoader *dataloader.Loader[string, *entities.Partner]
}

// NewLoaders creates a fresh set of loaders. Build one per request so cached
// results never outlive it.
func NewLoaders(partnerRepo repositories.PartnerRepository) *Loaders {
	return &Loaders{
		PartnerLoader: dataloader.NewBatchedLoader(func(ctx context.Context, keys []string) []*dataloader.Result[*entities.Partner] {
			results := make([]*dataloader.Result[*entities.Partner], len(keys))
			partners, err := partnerRepo.GetByIDs(ctx, keys)

			partnerMap := make(map[string]*entities.Partner, len(partners))
			if err == nil {
				for _, p := range partners {
					partnerMap[p.ID] = p
				}
			}

			for i, key := range keys {
				if err != nil {
					results[i] = &dataloader.Result[*entities.Partner]{Error: err}
				} else if p, ok := partnerMap[key]; ok {
					results[i] = &dataloader.Result[*entities.Partner]{Data: p}
				} else {
					results[i] = &dataloader.Result[*entities.Partner]{Error: apperrors.NewNotFoundError("partner " + key + " not found")}
				}
			}
			return results
		}),
	}
}

// For returns the loaders for a given context
func For(ctx context.Context) *Loaders {
	return ctx.Value(loadersKey).(*Loaders)
}

// WithLoaders returns a new context with the loaders attached
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}

// Middleware attaches a fresh set of loaders to every request
func Middleware(partnerRepo repositories.PartnerRepository) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithLoaders(r.Context(), NewLoaders(partnerRepo))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
