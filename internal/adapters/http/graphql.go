package http

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/paulmach/orb"

	"github.com/plotperfect/plotmap/internal/core/alignment"
	"github.com/plotperfect/plotmap/internal/core/domain"
	"github.com/plotperfect/plotmap/internal/core/usecases"
)

// cornersType is a list of [lng, lat] pairs.
var cornersType = graphql.NewList(graphql.NewList(graphql.Float))

// cornersField resolves the corners of a config or view as [lng, lat] pairs.
func cornersField(description string) *graphql.Field {
	return &graphql.Field{
		Type:        cornersType,
		Description: description,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			switch src := p.Source.(type) {
			case *domain.MapConfig:
				return src.Corners.Slice(), nil
			case *usecases.MapView:
				return src.Corners.Slice(), nil
			}
			return nil, nil
		},
	}
}

// cornersArg converts a [[lng, lat], ...] argument into corners.
func cornersArg(v interface{}) (domain.Corners, error) {
	rows, ok := v.([]interface{})
	if !ok {
		return domain.Corners{}, &domain.ConfigurationError{Field: "corners", Reason: "must be a list of [lng, lat] pairs"}
	}
	pts := make([]orb.Point, 0, len(rows))
	for i, row := range rows {
		pair, ok := row.([]interface{})
		if !ok || len(pair) != 2 {
			return domain.Corners{}, &domain.ConfigurationError{Field: "corners", Reason: fmt.Sprintf("entry %d must be a [lng, lat] pair", i)}
		}
		lng, okLng := pair[0].(float64)
		lat, okLat := pair[1].(float64)
		if !okLng || !okLat {
			return domain.Corners{}, &domain.ConfigurationError{Field: "corners", Reason: fmt.Sprintf("entry %d must be numeric", i)}
		}
		pts = append(pts, orb.Point{lng, lat})
	}
	return domain.CornersFromPoints(pts)
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	projectType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Project",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String},
			"name":            &graphql.Field{Type: graphql.String},
			"location":        &graphql.Field{Type: graphql.String},
			"description":     &graphql.Field{Type: graphql.String},
			"contact_details": &graphql.Field{Type: graphql.String},
			"layout_image":    &graphql.Field{Type: graphql.String},
			"has_map":         &graphql.Field{Type: graphql.Boolean},
			"created_at":      &graphql.Field{Type: graphql.DateTime},
		},
	})

	mapConfigType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MapConfig",
		Fields: graphql.Fields{
			"project_id": &graphql.Field{Type: graphql.String},
			"image_ref":  &graphql.Field{Type: graphql.String},
			"corners":    cornersField("Saved corners in top-left, top-right, bottom-right, bottom-left order"),
			"opacity":    &graphql.Field{Type: graphql.Float},
			"flip_h":     &graphql.Field{Type: graphql.Boolean},
			"flip_v":     &graphql.Field{Type: graphql.Boolean},
			"is_default": &graphql.Field{Type: graphql.Boolean},
			"updated_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	mapViewType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MapView",
		Fields: graphql.Fields{
			"config":     &graphql.Field{Type: mapConfigType},
			"corners":    cornersField("Corners the overlay is drawn at"),
			"image_url":  &graphql.Field{Type: graphql.String},
			"fit_bounds": &graphql.Field{Type: cornersType},
		},
	})

	imageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ResolvedImage",
		Fields: graphql.Fields{
			"ref":         &graphql.Field{Type: graphql.String},
			"url":         &graphql.Field{Type: graphql.String},
			"placeholder": &graphql.Field{Type: graphql.Boolean},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"projects": &graphql.Field{
				Type:        graphql.NewList(projectType),
				Description: "List projects",
				Args: graphql.FieldConfigArgument{
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: defaultPageLimit},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					limit := p.Args["limit"].(int)
					offset := p.Args["offset"].(int)
					projects, _, err := deps.Projects.List(p.Context, limit, offset)
					return projects, err
				},
			},
			"project": &graphql.Field{
				Type:        projectType,
				Description: "Get a project by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					project, err := deps.Projects.GetByID(p.Context, p.Args["id"].(string))
					if errors.Is(err, domain.ErrNotFound) {
						return nil, nil
					}
					return project, err
				},
			},
			"mapConfig": &graphql.Field{
				Type:        mapViewType,
				Description: "A project's overlay as viewers see it",
				Args: graphql.FieldConfigArgument{
					"project_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					view, err := deps.Sessions.View(p.Context, p.Args["project_id"].(string))
					if errors.Is(err, domain.ErrNotFound) {
						return nil, nil
					}
					return view, err
				},
			},
			"resolveImage": &graphql.Field{
				Type:        imageType,
				Description: "Turn an image reference into a displayable URL",
				Args: graphql.FieldConfigArgument{
					"ref": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					ref := p.Args["ref"].(string)
					res, err := deps.Images.ResolveOrPlaceholder(p.Context, ref)
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{
						"ref":         ref,
						"url":         res.URL,
						"placeholder": res.URL == deps.Images.Placeholder(),
					}, nil
				},
			},
			"canonicalize": &graphql.Field{
				Type:        cornersType,
				Description: "Order four corners as top-left, top-right, bottom-right, bottom-left, then apply flips",
				Args: graphql.FieldConfigArgument{
					"corners": &graphql.ArgumentConfig{Type: graphql.NewNonNull(cornersType)},
					"flip_h":  &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
					"flip_v":  &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					corners, err := cornersArg(p.Args["corners"])
					if err != nil {
						return nil, err
					}
					ordered := alignment.Flip(alignment.Canonicalize(corners), p.Args["flip_h"].(bool), p.Args["flip_v"].(bool))
					return ordered.Slice(), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Query == "" {
			return errBadRequest(c, "query is required")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
