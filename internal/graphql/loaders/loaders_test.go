package loaders

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/roadsideassist/internal/domain/entities"
	"github.com/zatekoja/roadsideassist/internal/domain/repositories"
	apperrors "github.com/zatekoja/roadsideassist/pkg/errors"
)

type batchRepo struct {
	repositories.PartnerRepository

	mu       sync.Mutex
	batches  [][]string
	partners map[string]*entities.Partner
	err      error
}

func (r *batchRepo) GetByIDs(ctx context.Context, ids []string) ([]*entities.Partner, error) {
	r.mu.Lock()
	r.batches = append(r.batches, append([]string(nil), ids...))
	r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}
	var out []*entities.Partner
	for _, id := range ids {
		if p, ok := r.partners[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestPartnerLoader_BatchesLoads(t *testing.T) {
	repo := &batchRepo{partners: map[string]*entities.Partner{
		"p1": {ID: "p1", BusinessName: "Ring Road Towing"},
		"p2": {ID: "p2", BusinessName: "Andheri Auto Works"},
	}}
	ctx := context.Background()
	ldrs := NewLoaders(repo)

	first := ldrs.PartnerLoader.Load(ctx, "p1")
	second := ldrs.PartnerLoader.Load(ctx, "p2")
	missing := ldrs.PartnerLoader.Load(ctx, "p3")

	p1, err := first()
	require.NoError(t, err)
	assert.Equal(t, "Ring Road Towing", p1.BusinessName)

	p2, err := second()
	require.NoError(t, err)
	assert.Equal(t, "p2", p2.ID)

	_, err = missing()
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	require.Len(t, repo.batches, 1)
	assert.ElementsMatch(t, []string{"p1", "p2", "p3"}, repo.batches[0])
}

func TestPartnerLoader_PropagatesRepositoryError(t *testing.T) {
	repo := &batchRepo{err: errors.New("connection reset")}
	ldrs := NewLoaders(repo)

	partners, errs := ldrs.PartnerLoader.LoadMany(context.Background(), []string{"p1", "p2"})()

	assert.Len(t, partners, 2)
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.EqualError(t, err, "connection reset")
	}
}

func TestMiddleware_AttachesLoaders(t *testing.T) {
	var got *Loaders
	handler := Middleware(&batchRepo{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = For(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/graphql", nil))

	require.NotNil(t, got)
	assert.NotNil(t, got.PartnerLoader)
}
