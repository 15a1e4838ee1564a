package boards

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "embed"

	"github.com/KevinKickass/ioplusd/internal/types"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/board-v1.json
var boardSchemaJSON string

// ErrInvalidDefinition marks a board definition rejected by the schema.
var ErrInvalidDefinition = errors.New("invalid board definition")

type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()

	if err := compiler.AddResource("board-v1.json",
		strings.NewReader(boardSchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile("board-v1.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// Validate checks a JSON encoded board definition.
func (v *Validator) Validate(data []byte) error {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %w", ErrInvalidDefinition, err)
	}

	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: schema validation failed: %w", ErrInvalidDefinition, err)
	}

	return nil
}

func (v *Validator) ValidateDefinition(def *types.BoardDefinition) error {
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to marshal board: %w", err)
	}

	return v.Validate(data)
}
