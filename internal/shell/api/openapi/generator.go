// Package openapi builds the OpenAPI 3 document of the advisor API from
// registered routes, reflecting request and response schemas from Go types.
package openapi

import (
	"encoding/json"
	"net/http"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

// =============================================================================
// Generator
// =============================================================================

// Generator produces an OpenAPI 3.0 document from registered routes.
type Generator struct {
	title       string
	version     string
	description string
	servers     []string
	routes      []Route
	mu          sync.RWMutex
	cachedSpec  *openapi3.T
}

// Route describes one API operation.
type Route struct {
	Method      string // http.MethodGet, ...
	Path        string // chi-style path, e.g. /api/v1/sessions/{id}
	OperationID string
	Summary     string
	Tag         string
	Request     any    // request body model, nil when the operation takes none
	Response    any    // success body model, nil for non-JSON responses
	Status      int    // success status, 200 when zero
	ContentType string // success content type, application/json when empty
	Admin       bool   // requires an admin bearer token
}

// Option configures the generator.
type Option func(*Generator)

// WithTitle sets the API title.
func WithTitle(title string) Option {
	return func(g *Generator) {
		g.title = title
	}
}

// WithVersion sets the API version.
func WithVersion(version string) Option {
	return func(g *Generator) {
		g.version = version
	}
}

// WithServer adds a server URL.
func WithServer(url string) Option {
	return func(g *Generator) {
		g.servers = append(g.servers, url)
	}
}

// NewGenerator creates a new OpenAPI generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		title:       "Salesforce Implementation Advisor API",
		version:     "1.0.0",
		description: "Implementation planning wizard, metadata generation and simulated deployment",
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Register adds routes to the document.
func (g *Generator) Register(routes ...Route) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.routes = append(g.routes, routes...)
	g.cachedSpec = nil
}

// Generate produces the complete OpenAPI 3.0 document.
func (g *Generator) Generate() *openapi3.T {
	g.mu.RLock()
	if g.cachedSpec != nil {
		spec := g.cachedSpec
		g.mu.RUnlock()
		return spec
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cachedSpec != nil {
		return g.cachedSpec
	}

	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       g.title,
			Version:     g.version,
			Description: g.description,
		},
		Servers: make(openapi3.Servers, 0, len(g.servers)),
		Paths:   &openapi3.Paths{},
		Components: &openapi3.Components{
			Schemas:         make(openapi3.Schemas),
			SecuritySchemes: make(openapi3.SecuritySchemes),
		},
	}

	for _, url := range g.servers {
		spec.Servers = append(spec.Servers, &openapi3.Server{URL: url})
	}

	g.addCommonSchemas(spec)

	for _, route := range g.routes {
		g.addRouteToSpec(spec, route)
	}

	g.cachedSpec = spec
	return spec
}

// Handler returns an HTTP handler that serves the document.
func (g *Generator) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec := g.Generate()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		if err := json.NewEncoder(w).Encode(spec); err != nil {
			http.Error(w, "Failed to encode OpenAPI spec", http.StatusInternalServerError)
		}
	}
}

// =============================================================================
// Schema Generation
// =============================================================================

// addCommonSchemas adds the error body and the admin security scheme.
func (g *Generator) addCommonSchemas(spec *openapi3.T) {
	spec.Components.Schemas["Error"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{"string"}},
				},
				"code": &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{"string"}},
				},
			},
			Required: []string{"error", "code"},
		},
	}

	spec.Components.SecuritySchemes["adminBearer"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
}

// addRouteToSpec adds the operation of a route and the schemas it names.
func (g *Generator) addRouteToSpec(spec *openapi3.T, route Route) {
	path := spec.Paths.Value(route.Path)
	if path == nil {
		path = &openapi3.PathItem{}
		spec.Paths.Set(route.Path, path)
	}

	op := &openapi3.Operation{
		OperationID: route.OperationID,
		Summary:     route.Summary,
		Tags:        []string{route.Tag},
		Parameters:  pathParameters(route.Path),
		Responses:   openapi3.NewResponses(),
	}

	if route.Request != nil {
		name := g.registerSchema(spec, route.Request)
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithRequired(true).
				WithJSONSchemaRef(&openapi3.SchemaRef{Ref: "#/components/schemas/" + name}),
		}
	}

	status := route.Status
	if status == 0 {
		status = http.StatusOK
	}
	success := openapi3.NewResponse().WithDescription(http.StatusText(status))
	switch {
	case route.Response != nil:
		name := g.registerSchema(spec, route.Response)
		success.WithJSONSchemaRef(&openapi3.SchemaRef{Ref: "#/components/schemas/" + name})
	case route.ContentType != "":
		success.WithContent(openapi3.NewContentWithSchema(
			&openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "binary"},
			[]string{route.ContentType},
		))
	}
	op.Responses.Set(strconv.Itoa(status), &openapi3.ResponseRef{Value: success})
	op.Responses.Set("default", &openapi3.ResponseRef{
		Value: openapi3.NewResponse().
			WithDescription("Error").
			WithJSONSchemaRef(&openapi3.SchemaRef{Ref: "#/components/schemas/Error"}),
	})

	if route.Admin {
		op.Security = &openapi3.SecurityRequirements{{"adminBearer": []string{}}}
	}

	path.SetOperation(route.Method, op)
}

// registerSchema stores the schema of model under its type name.
func (g *Generator) registerSchema(spec *openapi3.T, model any) string {
	t := reflect.TypeOf(model)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	name := t.Name()
	if t.Kind() == reflect.Slice {
		name = t.Elem().Name() + "List"
	}
	if _, ok := spec.Components.Schemas[name]; !ok {
		spec.Components.Schemas[name] = g.goTypeToSchema(t)
	}
	return name
}

// pathParameters declares the {name} segments of a chi path.
func pathParameters(path string) openapi3.Parameters {
	var params openapi3.Parameters
	for _, seg := range strings.Split(path, "/") {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			params = append(params, &openapi3.ParameterRef{
				Value: openapi3.NewPathParameter(strings.Trim(seg, "{}")).
					WithSchema(openapi3.NewStringSchema()),
			})
		}
	}
	return params
}

// extractSchema extracts an OpenAPI schema from a Go struct.
func (g *Generator) extractSchema(t reflect.Type) *openapi3.SchemaRef {
	schema := &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: make(openapi3.Schemas),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		// Embedded structs flatten into the parent, as encoding/json does.
		if field.Anonymous && jsonTag == "" {
			ft := field.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() != reflect.Struct {
				continue
			}
			embedded := g.extractSchema(ft)
			for name, prop := range embedded.Value.Properties {
				schema.Properties[name] = prop
			}
			continue
		}

		if !field.IsExported() {
			continue
		}

		name := field.Name
		if jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
		}

		if propSchema := g.goTypeToSchema(field.Type); propSchema != nil {
			schema.Properties[name] = propSchema
		}
	}

	return &openapi3.SchemaRef{Value: schema}
}

// goTypeToSchema converts a Go type to an OpenAPI schema.
func (g *Generator) goTypeToSchema(t reflect.Type) *openapi3.SchemaRef {
	switch t.Kind() {
	case reflect.String:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}}

	case reflect.Int64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}}

	case reflect.Uint, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}}

	case reflect.Float32, reflect.Float64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}, Format: "double"}}

	case reflect.Bool:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}}

	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "byte"}}
		}
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:  &openapi3.Types{"array"},
				Items: g.goTypeToSchema(t.Elem()),
			},
		}

	case reflect.Map:
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:                 &openapi3.Types{"object"},
				AdditionalProperties: openapi3.AdditionalProperties{Schema: g.goTypeToSchema(t.Elem())},
			},
		}

	case reflect.Ptr:
		schema := g.goTypeToSchema(t.Elem())
		if schema != nil && schema.Value != nil {
			schema.Value.Nullable = true
		}
		return schema

	case reflect.Struct:
		if t == reflect.TypeOf(time.Time{}) {
			return &openapi3.SchemaRef{
				Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"},
			}
		}
		return g.extractSchema(t)

	default:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
	}
}

// =============================================================================
// Helpers
// =============================================================================

// Tags returns the distinct route tags in sorted order.
func (g *Generator) Tags() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := map[string]bool{}
	var tags []string
	for _, r := range g.routes {
		if !seen[r.Tag] {
			seen[r.Tag] = true
			tags = append(tags, r.Tag)
		}
	}
	sort.Strings(tags)
	return tags
}
