package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/docsql/internal/schema"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the catalog the scenario's database is opened with.
	Schema schema.Definition `yaml:"schema"`

	// KeyPrefix prefixes generated text keys. Default: "k"
	KeyPrefix string `yaml:"key_prefix,omitempty"`

	// Flow is executed in order; a failing step does not stop the flow.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one store operation.
type Step struct {
	// Op is put, get, delete, count, query, clear or batch.
	Op string `yaml:"op"`

	Store   string           `yaml:"store,omitempty"`
	Key     any              `yaml:"key,omitempty"`
	Records []map[string]any `yaml:"records,omitempty"`

	// Query bounds and filters.
	From     any            `yaml:"from,omitempty"`
	To       any            `yaml:"to,omitempty"`
	FromOpen bool           `yaml:"from_open,omitempty"`
	ToOpen   bool           `yaml:"to_open,omitempty"`
	Limit    int            `yaml:"limit,omitempty"`
	Offset   int            `yaml:"offset,omitempty"`
	Where    map[string]any `yaml:"where,omitempty"`

	// Batch fields.
	Steps []Step `yaml:"steps,omitempty"`
	Mode  string `yaml:"mode,omitempty"` // read_write (default) or read_only
	Fail  string `yaml:"fail,omitempty"`

	// Expect is checked against the step's outcome. Without it the step
	// must not fail.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step.
type Expect struct {
	Keys    []any            `yaml:"keys,omitempty"`
	Found   *bool            `yaml:"found,omitempty"`
	Record  map[string]any   `yaml:"record,omitempty"` // subset match on get
	Records []map[string]any `yaml:"records,omitempty"`
	Count   *int             `yaml:"count,omitempty"`
	Error   string           `yaml:"error,omitempty"` // error kind, see errorKind
}

// Assertion validates the final state.
type Assertion struct {
	// Type is final_count, final_record or absent.
	Type string `yaml:"type"`

	Store  string         `yaml:"store"`
	Key    any            `yaml:"key,omitempty"`
	Count  int            `yaml:"count,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"` // subset match (final_record)
}

// Assertion type constants.
const (
	AssertFinalCount  = "final_count"
	AssertFinalRecord = "final_record"
	AssertAbsent      = "absent"
)

// Step op constants.
const (
	OpPut    = "put"
	OpGet    = "get"
	OpDelete = "delete"
	OpCount  = "count"
	OpQuery  = "query"
	OpClear  = "clear"
	OpBatch  = "batch"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so that typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Schema.Stores) == 0 {
		return fmt.Errorf("schema must declare at least one store")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	for i, step := range s.Flow {
		if err := validateStep(step, false); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		switch a.Type {
		case AssertFinalCount, AssertFinalRecord, AssertAbsent:
		default:
			return fmt.Errorf("assertions[%d]: unknown type %q", i, a.Type)
		}
		if a.Store == "" {
			return fmt.Errorf("assertions[%d]: store is required", i)
		}
		if a.Type != AssertFinalCount && a.Key == nil {
			return fmt.Errorf("assertions[%d]: key is required for %s", i, a.Type)
		}
	}
	return nil
}

func validateStep(step Step, inBatch bool) error {
	switch step.Op {
	case OpPut, OpGet, OpDelete:
	case OpCount, OpQuery, OpClear:
		if inBatch {
			return fmt.Errorf("op %q is not allowed inside a batch", step.Op)
		}
	case OpBatch:
		if inBatch {
			return fmt.Errorf("batches cannot nest")
		}
		if len(step.Steps) == 0 {
			return fmt.Errorf("batch needs steps")
		}
		if step.Mode != "" && step.Mode != "read_write" && step.Mode != "read_only" {
			return fmt.Errorf("unknown batch mode %q", step.Mode)
		}
		for i, sub := range step.Steps {
			if err := validateStep(sub, true); err != nil {
				return fmt.Errorf("steps[%d]: %w", i, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	if step.Store == "" && step.Op != OpClear {
		return fmt.Errorf("op %q needs a store", step.Op)
	}
	if (step.Op == OpGet || step.Op == OpDelete) && step.Key == nil {
		return fmt.Errorf("op %q needs a key", step.Op)
	}
	if step.Op == OpPut && len(step.Records) == 0 {
		return fmt.Errorf("put needs records")
	}
	if step.Op == OpPut && step.Key != nil && len(step.Records) != 1 {
		return fmt.Errorf("put with a key takes exactly one record")
	}
	return nil
}
