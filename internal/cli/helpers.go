package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tokensage/tokensage/internal/domain"
)

// readEngineFile loads an engine definition from a JSON file.
func readEngineFile(path string) (*domain.Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read engine file: %w", err)
	}

	var engine domain.Engine
	if err := json.Unmarshal(data, &engine); err != nil {
		return nil, fmt.Errorf("parse engine file: %w", err)
	}
	if engine.ID == "" {
		return nil, fmt.Errorf("engine file %s: %w: missing id", path, domain.ErrEngineInvalid)
	}
	return &engine, nil
}

// printJSON renders a value as indented JSON on stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
