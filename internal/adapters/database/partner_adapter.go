package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"
	"github.com/zatekoja/roadsideassist/internal/domain/entities"
	"github.com/zatekoja/roadsideassist/internal/domain/repositories"
	"github.com/zatekoja/roadsideassist/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/roadsideassist/pkg/errors"
)

const partnersTable = "partners"

var partnerColumns = []interface{}{
	"id", "business_name", "owner_name", "phone_number", "email",
	"street", "city", "state", "postal_code", "country",
	"latitude", "longitude", "service_categories", "emergency_available",
	"approval_status", "is_active", "rating", "review_count",
	"created_at", "updated_at",
}

// PartnerAdapter implements the PartnerRepository interface
type PartnerAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPartnerAdapter creates a new partner adapter
func NewPartnerAdapter(client *postgres.Client) repositories.PartnerRepository {
	return &PartnerAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new partner
func (a *PartnerAdapter) Create(ctx context.Context, partner *entities.Partner) error {
	record := goqu.Record{
		"id":                  partner.ID,
		"business_name":       partner.BusinessName,
		"owner_name":          partner.OwnerName,
		"phone_number":        partner.PhoneNumber,
		"email":               partner.Email,
		"street":              partner.Address.Street,
		"city":                partner.Address.City,
		"state":               partner.Address.State,
		"postal_code":         partner.Address.PostalCode,
		"country":             partner.Address.Country,
		"latitude":            partner.Location.Latitude,
		"longitude":           partner.Location.Longitude,
		"service_categories":  pq.Array(partner.ServiceCategories),
		"emergency_available": partner.EmergencyAvailable,
		"approval_status":     string(partner.ApprovalStatus),
		"is_active":           partner.IsActive,
		"rating":              partner.Rating,
		"review_count":        partner.ReviewCount,
		"created_at":          partner.CreatedAt,
		"updated_at":          partner.UpdatedAt,
	}

	query, args, err := a.db.Insert(partnersTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create partner", err)
	}

	return nil
}

// GetByID retrieves a partner by ID
func (a *PartnerAdapter) GetByID(ctx context.Context, id string) (*entities.Partner, error) {
	query, args, err := a.db.Select(partnerColumns...).
		From(partnersTable).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	partner, err := scanPartner(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("partner with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get partner", err)
	}

	return partner, nil
}

// GetByIDs retrieves multiple partners by their IDs
func (a *PartnerAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Partner, error) {
	if len(ids) == 0 {
		return []*entities.Partner{}, nil
	}

	ds := a.db.Select(partnerColumns...).
		From(partnersTable).
		Where(goqu.Ex{"id": ids})

	return a.queryPartners(ctx, ds, "get partners")
}

// Update writes a partner's profile columns. Location, approval status and
// the active flag only change through their dedicated updates.
func (a *PartnerAdapter) Update(ctx context.Context, partner *entities.Partner) error {
	partner.UpdatedAt = time.Now()

	record := goqu.Record{
		"business_name":       partner.BusinessName,
		"owner_name":          partner.OwnerName,
		"phone_number":        partner.PhoneNumber,
		"email":               partner.Email,
		"street":              partner.Address.Street,
		"city":                partner.Address.City,
		"state":               partner.Address.State,
		"postal_code":         partner.Address.PostalCode,
		"country":             partner.Address.Country,
		"service_categories":  pq.Array(partner.ServiceCategories),
		"emergency_available": partner.EmergencyAvailable,
		"updated_at":          partner.UpdatedAt,
	}

	return a.updateByID(ctx, partner.ID, record, "update partner")
}

// UpdateLocation replaces the partner's shop location
func (a *PartnerAdapter) UpdateLocation(ctx context.Context, id string, location entities.GeoPoint) error {
	record := goqu.Record{
		"latitude":   location.Latitude,
		"longitude":  location.Longitude,
		"updated_at": time.Now(),
	}

	return a.updateByID(ctx, id, record, "update partner location")
}

// UpdateApprovalStatus sets the moderation status. Approval also activates the
// partner; any other status deactivates it.
func (a *PartnerAdapter) UpdateApprovalStatus(ctx context.Context, id string, status entities.ApprovalStatus) error {
	record := goqu.Record{
		"approval_status": string(status),
		"is_active":       status == entities.ApprovalStatusApproved,
		"updated_at":      time.Now(),
	}

	return a.updateByID(ctx, id, record, "update partner status")
}

func (a *PartnerAdapter) updateByID(ctx context.Context, id string, record goqu.Record, action string) error {
	query, args, err := a.db.Update(partnersTable).
		Set(record).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to "+action, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("partner with id %s not found", id))
	}

	return nil
}

// List retrieves partners with filters
func (a *PartnerAdapter) List(ctx context.Context, filter repositories.PartnerFilter) ([]*entities.Partner, error) {
	ds := a.db.Select(partnerColumns...).From(partnersTable)

	if filter.ApprovalStatus != "" {
		ds = ds.Where(goqu.Ex{"approval_status": string(filter.ApprovalStatus)})
	}

	if filter.IsActive != nil {
		ds = ds.Where(goqu.Ex{"is_active": *filter.IsActive})
	}

	ds = ds.Order(goqu.I("created_at").Desc(), goqu.I("id").Asc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}

	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	return a.queryPartners(ctx, ds, "list partners")
}

// FindWithinRadius returns partners inside the bounding box of the query circle
// that match its filters. Rows with no location set are skipped.
func (a *PartnerAdapter) FindWithinRadius(ctx context.Context, query repositories.PartnerGeoQuery) ([]*entities.Partner, error) {
	ds := a.db.Select(partnerColumns...).
		From(partnersTable).
		Where(goqu.C("latitude").Between(goqu.Range(query.Bounds.MinLat, query.Bounds.MaxLat))).
		Where(goqu.Or(goqu.C("latitude").Neq(0), goqu.C("longitude").Neq(0)))

	if lng := longitudeCondition(query); lng != nil {
		ds = ds.Where(lng)
	}

	ds = applyGeoFilters(ds, query).Order(approximateDistance(query.Center).Asc())

	if query.Limit > 0 {
		ds = ds.Limit(uint(query.Limit))
	}

	return a.queryPartners(ctx, ds, "find partners within radius")
}

// approximateDistance orders rows by squared equirectangular distance to
// center, so a candidate limit keeps the nearest rows. The longitude delta
// wraps at the antimeridian.
func approximateDistance(center entities.GeoPoint) exp.LiteralExpression {
	return goqu.L(
		"power(latitude - ?, 2) + power(least(abs(longitude - ?), 360 - abs(longitude - ?)) * cos(radians(?)), 2)",
		center.Latitude, center.Longitude, center.Longitude, center.Latitude,
	)
}

// FindByIDs loads the given partners, keeping those matching the query filters
func (a *PartnerAdapter) FindByIDs(ctx context.Context, ids []string, query repositories.PartnerGeoQuery) ([]*entities.Partner, error) {
	if len(ids) == 0 {
		return []*entities.Partner{}, nil
	}

	ds := a.db.Select(partnerColumns...).
		From(partnersTable).
		Where(goqu.Ex{"id": ids})

	ds = applyGeoFilters(ds, query)

	return a.queryPartners(ctx, ds, "find partners by ids")
}

func longitudeCondition(query repositories.PartnerGeoQuery) exp.Expression {
	ranges := query.Bounds.LngRanges
	if len(ranges) == 0 {
		return nil
	}
	if len(ranges) == 1 {
		if ranges[0].Min <= -180 && ranges[0].Max >= 180 {
			return nil
		}
		return goqu.C("longitude").Between(goqu.Range(ranges[0].Min, ranges[0].Max))
	}

	conds := make([]exp.Expression, 0, len(ranges))
	for _, r := range ranges {
		conds = append(conds, goqu.C("longitude").Between(goqu.Range(r.Min, r.Max)))
	}
	return goqu.Or(conds...)
}

func applyGeoFilters(ds *goqu.SelectDataset, query repositories.PartnerGeoQuery) *goqu.SelectDataset {
	if query.ApprovalStatus != "" {
		ds = ds.Where(goqu.Ex{"approval_status": string(query.ApprovalStatus)})
	}
	if query.ActiveOnly {
		ds = ds.Where(goqu.Ex{"is_active": true})
	}
	if query.EmergencyOnly {
		ds = ds.Where(goqu.Ex{"emergency_available": true})
	}
	if query.ServiceCategory != "" {
		ds = ds.Where(goqu.L("? = ANY(service_categories)", query.ServiceCategory))
	}
	return ds
}

func (a *PartnerAdapter) queryPartners(ctx context.Context, ds *goqu.SelectDataset, action string) ([]*entities.Partner, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to "+action, err)
	}
	defer rows.Close()

	partners := []*entities.Partner{}
	for rows.Next() {
		partner, err := scanPartner(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan partner", err)
		}
		partners = append(partners, partner)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating partners", err)
	}

	return partners, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPartner(row rowScanner) (*entities.Partner, error) {
	partner := &entities.Partner{}
	var status string
	var ownerName, email sql.NullString

	err := row.Scan(
		&partner.ID,
		&partner.BusinessName,
		&ownerName,
		&partner.PhoneNumber,
		&email,
		&partner.Address.Street,
		&partner.Address.City,
		&partner.Address.State,
		&partner.Address.PostalCode,
		&partner.Address.Country,
		&partner.Location.Latitude,
		&partner.Location.Longitude,
		pq.Array(&partner.ServiceCategories),
		&partner.EmergencyAvailable,
		&status,
		&partner.IsActive,
		&partner.Rating,
		&partner.ReviewCount,
		&partner.CreatedAt,
		&partner.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	partner.OwnerName = ownerName.String
	partner.Email = email.String
	partner.ApprovalStatus = entities.ApprovalStatus(status)

	return partner, nil
}
