package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
	"github.com/zatekoja/roadsideassist/internal/domain/entities"
	"github.com/zatekoja/roadsideassist/internal/domain/repositories"
	"github.com/zatekoja/roadsideassist/internal/infrastructure/clients/typesense"
)

const (
	// Typesense rejects per_page above 250
	maxPerPage = 250

	// widens the geo filter so partners on the boundary survive the
	// exact distance check done after the lookup
	radiusSlack = 1.01
)

// TypesensePartnerIndex implements PartnerGeoIndex on a Typesense collection
// with a geopoint field
type TypesensePartnerIndex struct {
	client *typesense.Client
}

// NewTypesensePartnerIndex creates a new Typesense partner index
func NewTypesensePartnerIndex(client *typesense.Client) *TypesensePartnerIndex {
	return &TypesensePartnerIndex{client: client}
}

// Name identifies the index
func (i *TypesensePartnerIndex) Name() string {
	return "typesense"
}

// IndexPartner upserts the partner document
func (i *TypesensePartnerIndex) IndexPartner(ctx context.Context, partner *entities.Partner) error {
	if !partner.Location.Rankable() {
		return fmt.Errorf("partner %s has no usable location", partner.ID)
	}

	_, err := i.client.Client().Collection(typesense.PartnersCollection).Documents().Upsert(ctx, partnerDocument(partner))
	if err != nil {
		return fmt.Errorf("failed to index partner: %w", err)
	}
	return nil
}

// RemovePartner deletes the partner document
func (i *TypesensePartnerIndex) RemovePartner(ctx context.Context, id string) error {
	_, err := i.client.Client().Collection(typesense.PartnersCollection).Document(id).Delete(ctx)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete partner from index: %w", err)
	}
	return nil
}

// SearchRadius returns the IDs of matching partners, nearest first
func (i *TypesensePartnerIndex) SearchRadius(ctx context.Context, query repositories.PartnerGeoQuery) ([]string, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = maxPerPage
	}
	perPage := limit
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	ids := make([]string, 0, perPage)
	for page := 1; len(ids) < limit; page++ {
		params := &api.SearchCollectionParams{
			Q:        pointer.String("*"),
			QueryBy:  pointer.String("business_name"),
			FilterBy: pointer.String(buildGeoFilter(query)),
			SortBy:   pointer.String(fmt.Sprintf("location(%f, %f):asc", query.Center.Latitude, query.Center.Longitude)),
			Page:     pointer.Int(page),
			PerPage:  pointer.Int(perPage),
		}

		result, err := i.client.Client().Collection(typesense.PartnersCollection).Documents().Search(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to search partners: %w", err)
		}
		if result.Hits == nil || len(*result.Hits) == 0 {
			break
		}

		for _, hit := range *result.Hits {
			if hit.Document == nil {
				continue
			}
			if id, ok := (*hit.Document)["id"].(string); ok {
				ids = append(ids, id)
			}
		}

		if len(*result.Hits) < perPage {
			break
		}
	}

	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// partnerDocument maps a partner to its Typesense document. Typesense
// geopoints are [latitude, longitude].
func partnerDocument(partner *entities.Partner) map[string]interface{} {
	categories := partner.ServiceCategories
	if categories == nil {
		categories = []string{}
	}
	return map[string]interface{}{
		"id":                  partner.ID,
		"business_name":       partner.BusinessName,
		"location":            []float64{partner.Location.Latitude, partner.Location.Longitude},
		"service_categories":  categories,
		"emergency_available": partner.EmergencyAvailable,
		"approval_status":     string(partner.ApprovalStatus),
		"is_active":           partner.IsActive,
		"rating":              partner.Rating,
		"updated_at":          partner.UpdatedAt.Unix(),
	}
}

// buildGeoFilter renders the filter_by expression for a proximity query
func buildGeoFilter(query repositories.PartnerGeoQuery) string {
	clauses := []string{
		fmt.Sprintf("location:(%f, %f, %.3f km)", query.Center.Latitude, query.Center.Longitude, query.RadiusKm*radiusSlack),
	}
	if query.ApprovalStatus != "" {
		clauses = append(clauses, fmt.Sprintf("approval_status:=%s", escapeFilterValue(string(query.ApprovalStatus))))
	}
	if query.ActiveOnly {
		clauses = append(clauses, "is_active:=true")
	}
	if query.EmergencyOnly {
		clauses = append(clauses, "emergency_available:=true")
	}
	if query.ServiceCategory != "" {
		clauses = append(clauses, fmt.Sprintf("service_categories:=[%s]", escapeFilterValue(query.ServiceCategory)))
	}
	return strings.Join(clauses, " && ")
}

func escapeFilterValue(v string) string {
	return "`" + strings.ReplaceAll(v, "`", "") + "`"
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "404")
}
