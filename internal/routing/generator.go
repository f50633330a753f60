package routing

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	domain "github.com/yungbote/route-registry/internal/domain/routing"
)

// GeneratedPath is the output of a PathGenerator.
type GeneratedPath struct {
	Path        string
	EntityClass string
}

type PathGenerator interface {
	Generate(entity domain.Routable, override string) (GeneratedPath, error)
}

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z0-9_.]+)\}`)

// SchemaGenerator expands per-class schemas such as "/blog/{title}". An explicit override
// path always wins over the schema.
type SchemaGenerator struct {
	schemas map[string]string
}

func NewSchemaGenerator(schemas map[string]string) *SchemaGenerator {
	cp := make(map[string]string, len(schemas))
	for class, schema := range schemas {
		cp[strings.TrimSpace(class)] = strings.TrimSpace(schema)
	}
	return &SchemaGenerator{schemas: cp}
}

func (g *SchemaGenerator) Generate(entity domain.Routable, override string) (GeneratedPath, error) {
	if entity == nil {
		return GeneratedPath{}, domain.NewError(domain.CodeInvalidArgument, "routing.generate", "nil entity", nil)
	}
	class := entity.RouteEntityClass()
	if strings.TrimSpace(override) != "" {
		return GeneratedPath{Path: NormalizePath(override), EntityClass: class}, nil
	}

	schema, ok := g.schemas[class]
	if !ok || schema == "" {
		return GeneratedPath{}, domain.NewError(domain.CodeInvalidArgument, "routing.generate", fmt.Sprintf("no route schema for %q", class), nil)
	}
	var attrs map[string]string
	if src, ok := entity.(domain.AttributeSource); ok {
		attrs = src.RouteAttributes()
	}

	var missing []string
	expanded := placeholderRe.ReplaceAllStringFunc(schema, func(m string) string {
		name := m[1 : len(m)-1]
		val := strings.TrimSpace(attrs[name])
		if val == "" {
			missing = append(missing, name)
			return ""
		}
		return Slugify(val)
	})
	if len(missing) > 0 {
		return GeneratedPath{}, domain.NewError(domain.CodeInvalidArgument, "routing.generate", fmt.Sprintf("missing route attributes %v for %q", missing, class), nil)
	}
	path := NormalizePath(expanded)
	if path == "/" && schema != "/" {
		return GeneratedPath{}, domain.NewError(domain.CodeInvalidArgument, "routing.generate", fmt.Sprintf("schema %q produced an empty path", schema), nil)
	}
	return GeneratedPath{Path: path, EntityClass: class}, nil
}

// NormalizePath returns p with a single leading slash, no empty segments and no trailing slash.
func NormalizePath(p string) string {
	parts := strings.Split(strings.TrimSpace(p), "/")
	kept := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return "/" + strings.Join(kept, "/")
}

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = nonSlugRe.ReplaceAllString(folded, "-")
	return strings.Trim(folded, "-")
}
