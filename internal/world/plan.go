// Floor-plan documents: the JSON form in which the map editor hands storeys to the simulation.
package world

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidPlan marks a malformed or inconsistent floor-plan document.
var ErrInvalidPlan = errors.New("invalid floor plan")

const planSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["ground", "storeys"],
  "properties": {
    "name":   {"type": "string"},
    "ground": {"type": "string", "minLength": 1},
    "storeys": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "cell_size", "tiles"],
        "properties": {
          "name":        {"type": "string", "minLength": 1},
          "descends_to": {"type": "string"},
          "cell_size":   {"type": "number", "exclusiveMinimum": 0},
          "width":       {"type": "number", "minimum": 0},
          "height":      {"type": "number", "minimum": 0},
          "tiles": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "array",
              "minItems": 1,
              "items": {"enum": ["Floor", "Wall", "Stair", "Elevator", "Door", "Exit",
                                 "Alarm", "Hydrant", "Detector", "Furniture", "Stone", "SavePlace"]}
            }
          }
        }
      }
    }
  }
}`

var planSchema = jsonschema.MustCompileString("plan.schema.json", planSchemaJSON)

// PlanDocument is the serialized building.
type PlanDocument struct {
	Name    string       `json:"name,omitempty"`
	Ground  string       `json:"ground"`
	Storeys []StoreyPlan `json:"storeys"`
}

// StoreyPlan is one storey inside a PlanDocument.
type StoreyPlan struct {
	Name       string   `json:"name"`
	DescendsTo string   `json:"descends_to,omitempty"`
	CellSize   float64  `json:"cell_size"`
	Width      float64  `json:"width,omitempty"`  // Defaults to cols × cell_size
	Height     float64  `json:"height,omitempty"` // Defaults to rows × cell_size
	Tiles      [][]Tile `json:"tiles"`
}

// LoadPlan reads and validates a floor-plan document from disk.
func LoadPlan(path string) (*Building, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return DecodePlan(raw)
}

// DecodePlan validates raw JSON against the plan schema and builds a Building.
func DecodePlan(raw []byte) (*Building, error) {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	if err := planSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}

	var doc PlanDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	return doc.Build()
}

// Build checks cross-storey consistency and converts the document.
func (d *PlanDocument) Build() (*Building, error) {
	b := NewBuilding(d.Name, StoreyID(d.Ground))
	var problems []error

	for _, sp := range d.Storeys {
		if _, dup := b.Storeys[StoreyID(sp.Name)]; dup {
			problems = append(problems, fmt.Errorf("storey %q: declared twice", sp.Name))
			continue
		}
		grid, err := sp.grid()
		if err != nil {
			problems = append(problems, fmt.Errorf("storey %q: %w", sp.Name, err))
			continue
		}
		geo := GeometryFor(grid, sp.CellSize)
		if sp.Width > 0 {
			geo.Width = sp.Width
		}
		if sp.Height > 0 {
			geo.Height = sp.Height
		}
		if grid.Count(TileExit) == 0 {
			problems = append(problems, fmt.Errorf("storey %q: no exit", sp.Name))
		}
		b.Add(&Storey{
			ID:         StoreyID(sp.Name),
			Grid:       grid,
			Geometry:   geo,
			DescendsTo: StoreyID(sp.DescendsTo),
		})
	}

	if err := b.CheckDescent(); err != nil {
		problems = append(problems, err)
	}
	for _, id := range b.IDs() {
		s := b.Storeys[id]
		below, ok := b.Storeys[s.DescendsTo]
		if !ok {
			continue
		}
		if below.Grid.Rows != s.Grid.Rows || below.Grid.Cols != s.Grid.Cols {
			problems = append(problems, fmt.Errorf("storey %q: %w with %q", id, ErrDimensionMismatch, s.DescendsTo))
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, errors.Join(problems...))
	}
	return b, nil
}

func (sp StoreyPlan) grid() (*Grid, error) {
	rows := len(sp.Tiles)
	if rows == 0 {
		return nil, errors.New("no rows")
	}
	cols := len(sp.Tiles[0])
	g := NewGrid(rows, cols)
	for r, row := range sp.Tiles {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d cells, want %d", r, len(row), cols)
		}
		for c, t := range row {
			g.Set(Coord{Row: r, Col: c}, t)
		}
	}
	return g, nil
}

// Document converts a Building back to its serialized form.
func (b *Building) Document() *PlanDocument {
	doc := &PlanDocument{Name: b.Name, Ground: string(b.Ground)}
	for _, id := range b.IDs() {
		s := b.Storeys[id]
		tiles := make([][]Tile, s.Grid.Rows)
		for r := range tiles {
			tiles[r] = make([]Tile, s.Grid.Cols)
			copy(tiles[r], s.Grid.Tiles[r*s.Grid.Cols:(r+1)*s.Grid.Cols])
		}
		doc.Storeys = append(doc.Storeys, StoreyPlan{
			Name:       string(s.ID),
			DescendsTo: string(s.DescendsTo),
			CellSize:   s.Geometry.CellSize,
			Width:      s.Geometry.Width,
			Height:     s.Geometry.Height,
			Tiles:      tiles,
		})
	}
	return doc
}

// SavePlan writes the building as an indented JSON document.
func SavePlan(path string, b *Building) error {
	raw, err := json.MarshalIndent(b.Document(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	return nil
}

// Summary returns a one-line description for logs.
func (b *Building) Summary() string {
	parts := make([]string, 0, len(b.Storeys))
	for _, id := range b.IDs() {
		s := b.Storeys[id]
		parts = append(parts, fmt.Sprintf("%s=%dx%d", id, s.Grid.Rows, s.Grid.Cols))
	}
	return fmt.Sprintf("Building(%s ground=%s %s)", b.Name, b.Ground, strings.Join(parts, " "))
}
