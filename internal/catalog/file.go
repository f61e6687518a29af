package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Bundle is everything a catalog file carries: assessments with their items,
// course enrollments and staff roles.
type Bundle struct {
	Catalog     *Memory
	Enrollments []Enrollment
	Staff       []StaffMember
}

// StaffMember is a user whose role bypasses enrollment checks.
type StaffMember struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type fileAssessment struct {
	ID               string   `json:"id"`
	CourseID         string   `json:"course_id"`
	Title            string   `json:"title"`
	Strategy         Strategy `json:"strategy"`
	TimeLimitMinutes int      `json:"time_limit_minutes"`
	MinItems         int      `json:"min_items"`
	MaxItems         int      `json:"max_items"`
	AttemptsAllowed  int      `json:"attempts_allowed"`
	Items            []Item   `json:"items"`
}

type fileDoc struct {
	Assessments []fileAssessment `json:"assessments"`
	Enrollments []Enrollment     `json:"enrollments"`
	Staff       []StaffMember    `json:"staff"`
}

const schemaURL = "schema://catalog.json"

// schemaDef describes the catalog file layout.
var schemaDef = map[string]any{
	"type":     "object",
	"required": []any{"assessments"},
	"properties": map[string]any{
		"assessments": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"id", "items"},
				"properties": map[string]any{
					"id":                 map[string]any{"type": "string", "minLength": 1},
					"course_id":          map[string]any{"type": "string"},
					"title":              map[string]any{"type": "string"},
					"strategy":           map[string]any{"enum": []any{"fixed", "adaptive"}},
					"time_limit_minutes": map[string]any{"type": "integer", "minimum": 0},
					"min_items":          map[string]any{"type": "integer", "minimum": 0},
					"max_items":          map[string]any{"type": "integer", "minimum": 0},
					"attempts_allowed":   map[string]any{"type": "integer", "minimum": 0},
					"items": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type":     "object",
							"required": []any{"id", "type", "content", "key"},
							"properties": map[string]any{
								"id":         map[string]any{"type": "string", "minLength": 1},
								"type":       map[string]any{"enum": []any{"single", "multi", "fill"}},
								"content":    map[string]any{"type": "string"},
								"options":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
								"points":     map[string]any{"type": "integer", "minimum": 0},
								"difficulty": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
								"tags":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
								"order":      map[string]any{"type": "integer"},
							},
						},
					},
				},
			},
		},
		"enrollments": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"user_id", "course_id"},
				"properties": map[string]any{
					"user_id":   map[string]any{"type": "string", "minLength": 1},
					"course_id": map[string]any{"type": "string", "minLength": 1},
					"status":    map[string]any{"type": "string"},
				},
			},
		},
		"staff": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"user_id", "role"},
				"properties": map[string]any{
					"user_id": map[string]any{"type": "string", "minLength": 1},
					"role":    map[string]any{"enum": []any{"teacher", "admin", "student"}},
				},
			},
		},
	},
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func fileSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		// The compiler wants a decoded JSON value, not Go-typed maps.
		raw, err := json.Marshal(schemaDef)
		if err != nil {
			compileErr = fmt.Errorf("marshal schema definition: %w", err)
			return
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			compileErr = fmt.Errorf("parse schema definition: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}

// LoadFile reads and validates a catalog file.
func LoadFile(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse validates raw catalog JSON against the file schema and builds a
// Bundle from it.
func Parse(data []byte) (*Bundle, error) {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	sch, err := fileSchema()
	if err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}
	if err := sch.Validate(generic); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	mem := NewMemory()
	for _, fa := range doc.Assessments {
		a := Assessment{
			ID:              fa.ID,
			CourseID:        fa.CourseID,
			Title:           fa.Title,
			Strategy:        fa.Strategy,
			TimeLimit:       time.Duration(fa.TimeLimitMinutes) * time.Minute,
			MinItems:        fa.MinItems,
			MaxItems:        fa.MaxItems,
			AttemptsAllowed: fa.AttemptsAllowed,
		}
		items := make([]Item, len(fa.Items))
		for i, it := range fa.Items {
			if it.Points == 0 {
				it.Points = 1
			}
			if it.Order == 0 {
				it.Order = i + 1
			}
			items[i] = it
		}
		if err := mem.Add(a, items...); err != nil {
			return nil, err
		}
	}

	return &Bundle{
		Catalog:     mem,
		Enrollments: doc.Enrollments,
		Staff:       doc.Staff,
	}, nil
}
