// Package schema validates import documents against the CUE definitions
// embedded from schema.cue before they are decoded.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed schema.cue
var source string

// Shape names the top-level form of an import document.
type Shape string

const (
	ShapeSnapshot   Shape = "snapshot"   // {"version": n, "buildings": [...]}
	ShapeBuildings  Shape = "buildings"  // [{"apartments": [...]}, ...]
	ShapeApartments Shape = "apartments" // [{"rooms": [...]}, ...]
)

var definitions = map[Shape]string{
	ShapeSnapshot:   "#Snapshot",
	ShapeBuildings:  "#Buildings",
	ShapeApartments: "#Apartments",
}

// ErrUnknownShape is returned for input that is neither a snapshot object
// nor an array of buildings or apartments.
var ErrUnknownShape = errors.New("document is not a snapshot, building list or apartment list")

// ValidationError lists the schema violations found in a document.
type ValidationError struct {
	Shape    Shape
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s document: %s", e.Shape, strings.Join(e.Problems, "; "))
}

// Validator checks documents against the compiled schema. A cue.Context is
// not safe for concurrent use, so calls are serialized.
type Validator struct {
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
}

// New compiles the embedded schema.
func New() (*Validator, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(source, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	return &Validator{ctx: ctx, schema: v}, nil
}

// Validate detects the document's shape and checks it against the
// matching definition.
func (v *Validator) Validate(data []byte) (Shape, error) {
	shape, err := Detect(data)
	if err != nil {
		return "", err
	}

	expr, err := cuejson.Extract("document.json", data)
	if err != nil {
		return "", fmt.Errorf("parsing document: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	def := v.schema.LookupPath(cue.ParsePath(definitions[shape]))
	if err := def.Err(); err != nil {
		return "", fmt.Errorf("looking up %s: %w", definitions[shape], err)
	}
	doc := v.ctx.BuildExpr(expr)
	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return shape, &ValidationError{Shape: shape, Problems: problems(err)}
	}
	return shape, nil
}

func problems(err error) []string {
	var out []string
	for _, e := range cueerrors.Errors(err) {
		msg := e.Error()
		if p := e.Path(); len(p) > 0 {
			msg = strings.Join(p, ".") + ": " + msg
		}
		out = append(out, msg)
	}
	if len(out) == 0 {
		out = append(out, err.Error())
	}
	return out
}

// Detect reports the shape of data without validating its contents. An
// empty array is treated as an empty building list.
func Detect(data []byte) (Shape, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return "", ErrUnknownShape
	}
	switch trimmed[0] {
	case '{':
		var probe struct {
			Buildings json.RawMessage `json:"buildings"`
		}
		if err := json.Unmarshal(trimmed, &probe); err != nil || probe.Buildings == nil {
			return "", ErrUnknownShape
		}
		return ShapeSnapshot, nil
	case '[':
		var items []map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return "", ErrUnknownShape
		}
		if len(items) == 0 {
			return ShapeBuildings, nil
		}
		if _, ok := items[0]["apartments"]; ok {
			return ShapeBuildings, nil
		}
		if _, ok := items[0]["rooms"]; ok {
			return ShapeApartments, nil
		}
	}
	return "", ErrUnknownShape
}
