package schema

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/zatekoja/roadsideassist/internal/domain/entities"
	"github.com/zatekoja/roadsideassist/internal/graphql/scalars"
	"github.com/zatekoja/roadsideassist/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/roadsideassist/pkg/errors"
)

//go:embed schema.graphqls
var sdl string

var parsedSchema = gqlparser.MustLoadSchema(&ast.Source{Name: "schema.graphqls", Input: sdl})

// QueryResolver resolves the root query fields
type QueryResolver interface {
	NearbyPartners(ctx context.Context, latitude, longitude float64, radius *float64, serviceFilter *string) ([]entities.RankedPartner, error)
	EmergencyPartners(ctx context.Context, latitude, longitude float64, radius *float64, serviceFilter *string) ([]entities.RankedPartner, error)
	Partner(ctx context.Context, id string) (*entities.Partner, error)
	Partners(ctx context.Context, ids []string) ([]*entities.Partner, error)
}

// ResolverRoot exposes the resolvers of each root operation type
type ResolverRoot interface {
	Query() QueryResolver
}

// Config configures the executable schema
type Config struct {
	Resolvers ResolverRoot
}

// NewExecutableSchema returns a schema that gqlgen's handler package can serve
func NewExecutableSchema(cfg Config) graphql.ExecutableSchema {
	return &executableSchema{resolvers: cfg.Resolvers}
}

type executableSchema struct {
	resolvers ResolverRoot
}

func (e *executableSchema) Schema() *ast.Schema {
	return parsedSchema
}

func (e *executableSchema) Complexity(ctx context.Context, typeName, field string, childComplexity int, rawArgs map[string]any) (int, bool) {
	return 0, false
}

func (e *executableSchema) Exec(ctx context.Context) graphql.ResponseHandler {
	opCtx := graphql.GetOperationContext(ctx)
	if opCtx.Operation.Operation != ast.Query {
		return graphql.OneShot(graphql.ErrorResponse(ctx, "unsupported GraphQL operation"))
	}

	ec := &executionContext{opCtx: opCtx, resolver: e.resolvers.Query()}
	data := ec.query(ctx, opCtx.Operation.SelectionSet)

	var buf bytes.Buffer
	data.MarshalGQL(&buf)
	return graphql.OneShot(&graphql.Response{Data: buf.Bytes(), Errors: ec.errors})
}

type executionContext struct {
	opCtx    *graphql.OperationContext
	resolver QueryResolver
	errors   gqlerror.List
}

type searchFunc func(ctx context.Context, latitude, longitude float64, radius *float64, serviceFilter *string) ([]entities.RankedPartner, error)

func (ec *executionContext) query(ctx context.Context, sel ast.SelectionSet) graphql.Marshaler {
	fields := graphql.CollectFields(ec.opCtx, sel, []string{"Query"})
	out := graphql.NewFieldSet(fields)

	for i, field := range fields {
		path := ast.Path{ast.PathName(field.Alias)}
		args := field.ArgumentMap(ec.opCtx.Variables)
		out.Values[i] = graphql.Null

		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("Query")
		case "__schema", "__type":
			ec.fail(ctx, path, apperrors.NewValidationError("introspection disabled"))
		case "nearbyPartners":
			out.Values[i] = ec.search(ctx, field, path, args, ec.resolver.NearbyPartners)
		case "emergencyPartners":
			out.Values[i] = ec.search(ctx, field, path, args, ec.resolver.EmergencyPartners)
		case "partner":
			id, err := stringArg(args, "id")
			if err != nil {
				ec.fail(ctx, path, err)
				continue
			}
			partner, err := ec.resolver.Partner(ctx, id)
			if err != nil {
				ec.fail(ctx, path, err)
				continue
			}
			out.Values[i] = ec.partner(field.Selections, partner)
		case "partners":
			ids, err := stringListArg(args, "ids")
			if err != nil {
				ec.fail(ctx, path, err)
				continue
			}
			partners, err := ec.resolver.Partners(ctx, ids)
			if err != nil {
				ec.fail(ctx, path, err)
				continue
			}
			list := make(graphql.Array, len(partners))
			for j, partner := range partners {
				list[j] = ec.partner(field.Selections, partner)
			}
			out.Values[i] = list
		}
	}

	return out
}

func (ec *executionContext) search(ctx context.Context, field graphql.CollectedField, path ast.Path, args map[string]any, find searchFunc) graphql.Marshaler {
	latitude, err := floatArg(args, "latitude")
	if err != nil {
		ec.fail(ctx, path, err)
		return graphql.Null
	}
	longitude, err := floatArg(args, "longitude")
	if err != nil {
		ec.fail(ctx, path, err)
		return graphql.Null
	}
	radius, err := optionalFloatArg(args, "radius")
	if err != nil {
		ec.fail(ctx, path, err)
		return graphql.Null
	}

	var serviceFilter *string
	if v, ok := args["serviceFilter"].(string); ok {
		serviceFilter = &v
	}

	ranked, err := find(ctx, latitude, longitude, radius, serviceFilter)
	if err != nil {
		ec.fail(ctx, path, err)
		return graphql.Null
	}

	list := make(graphql.Array, len(ranked))
	for i := range ranked {
		list[i] = ec.rankedPartner(field.Selections, ranked[i])
	}
	return list
}

func (ec *executionContext) rankedPartner(sel ast.SelectionSet, ranked entities.RankedPartner) graphql.Marshaler {
	fields := graphql.CollectFields(ec.opCtx, sel, []string{"RankedPartner"})
	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("RankedPartner")
		case "distance":
			out.Values[i] = graphql.MarshalFloat(ranked.DistanceKm)
		case "partner":
			out.Values[i] = ec.partner(field.Selections, ranked.Partner)
		default:
			out.Values[i] = graphql.Null
		}
	}
	return out
}

func (ec *executionContext) partner(sel ast.SelectionSet, p *entities.Partner) graphql.Marshaler {
	if p == nil {
		return graphql.Null
	}

	fields := graphql.CollectFields(ec.opCtx, sel, []string{"Partner"})
	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("Partner")
		case "id":
			out.Values[i] = graphql.MarshalID(p.ID)
		case "businessName":
			out.Values[i] = graphql.MarshalString(p.BusinessName)
		case "ownerName":
			out.Values[i] = graphql.MarshalString(p.OwnerName)
		case "phoneNumber":
			out.Values[i] = graphql.MarshalString(p.PhoneNumber)
		case "email":
			out.Values[i] = graphql.MarshalString(p.Email)
		case "address":
			out.Values[i] = ec.address(field.Selections, p.Address)
		case "location":
			out.Values[i] = ec.geoPoint(field.Selections, p.Location)
		case "serviceCategories":
			categories := make(graphql.Array, len(p.ServiceCategories))
			for j, c := range p.ServiceCategories {
				categories[j] = graphql.MarshalString(c)
			}
			out.Values[i] = categories
		case "emergencyAvailable":
			out.Values[i] = graphql.MarshalBoolean(p.EmergencyAvailable)
		case "approvalStatus":
			out.Values[i] = graphql.MarshalString(string(p.ApprovalStatus))
		case "isActive":
			out.Values[i] = graphql.MarshalBoolean(p.IsActive)
		case "rating":
			out.Values[i] = graphql.MarshalFloat(p.Rating)
		case "reviewCount":
			out.Values[i] = graphql.MarshalInt(p.ReviewCount)
		case "createdAt":
			out.Values[i] = scalars.MarshalDateTime(p.CreatedAt)
		case "updatedAt":
			out.Values[i] = scalars.MarshalDateTime(p.UpdatedAt)
		default:
			out.Values[i] = graphql.Null
		}
	}
	return out
}

func (ec *executionContext) address(sel ast.SelectionSet, a entities.Address) graphql.Marshaler {
	fields := graphql.CollectFields(ec.opCtx, sel, []string{"Address"})
	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("Address")
		case "street":
			out.Values[i] = graphql.MarshalString(a.Street)
		case "city":
			out.Values[i] = graphql.MarshalString(a.City)
		case "state":
			out.Values[i] = graphql.MarshalString(a.State)
		case "postalCode":
			out.Values[i] = graphql.MarshalString(a.PostalCode)
		case "country":
			out.Values[i] = graphql.MarshalString(a.Country)
		default:
			out.Values[i] = graphql.Null
		}
	}
	return out
}

func (ec *executionContext) geoPoint(sel ast.SelectionSet, p entities.GeoPoint) graphql.Marshaler {
	fields := graphql.CollectFields(ec.opCtx, sel, []string{"GeoPoint"})
	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("GeoPoint")
		case "latitude":
			out.Values[i] = graphql.MarshalFloat(p.Latitude)
		case "longitude":
			out.Values[i] = graphql.MarshalFloat(p.Longitude)
		default:
			out.Values[i] = graphql.Null
		}
	}
	return out
}

// fail records a field error. Client errors keep their message; anything
// else is logged and reported generically.
func (ec *executionContext) fail(ctx context.Context, path ast.Path, err error) {
	gqlErr := &gqlerror.Error{
		Err:        err,
		Path:       path,
		Extensions: map[string]interface{}{"code": string(apperrors.TypeOf(err))},
	}

	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation,
		apperrors.ErrorTypeInvalidCoordinates,
		apperrors.ErrorTypeInvalidRadius,
		apperrors.ErrorTypeNotFound:
		var appErr *apperrors.AppError
		if stderrors.As(err, &appErr) {
			gqlErr.Message = appErr.Message
		} else {
			gqlErr.Message = err.Error()
		}
	default:
		observability.LoggerFromContext(ctx).Error().
			Err(err).
			Str("path", path.String()).
			Msg("GraphQL field failed")
		gqlErr.Message = "internal server error"
	}

	ec.errors = append(ec.errors, gqlErr)
}

func floatArg(args map[string]any, name string) (float64, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return 0, apperrors.NewInvalidCoordinatesError(name + " is required")
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, apperrors.NewInvalidCoordinatesError(name + " must be a number")
	}
	return f, nil
}

func optionalFloatArg(args map[string]any, name string) (*float64, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	f, err := toFloat(v)
	if err != nil {
		return nil, apperrors.NewInvalidRadiusError(name + " must be a number")
	}
	return &f, nil
}

// toFloat accepts the number shapes gqlparser produces for literals and
// decoded variables
func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	}
	return 0, fmt.Errorf("unexpected number type %T", v)
}

func stringArg(args map[string]any, name string) (string, error) {
	switch v := args[name].(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	}
	return "", apperrors.NewValidationError(name + " is required")
}

func stringListArg(args map[string]any, name string) ([]string, error) {
	raw, ok := args[name].([]any)
	if !ok {
		return nil, apperrors.NewValidationError(name + " must be a list")
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, err := stringArg(map[string]any{name: item}, name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
