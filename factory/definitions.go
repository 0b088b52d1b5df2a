/*
Package factory turns machine definitions into machine types.

PURPOSE:
  Machine layouts (slot groups, slots, filters, energy, default faces and
  behaviour) are data. This package parses them from YAML or JSON and
  resolves every id against the item, fluid and group registries, so new
  machines need no code changes.

SCHEMA (YAML):
  groups:
    - id: fuel
      name: Fuel
      input_type: input          # input | output | storage | transfer
  machines:
    - id: generator
      name: Generator
      items:
        - group: fuel
          capacity: 64            # defaults to the max stack size
          filter: {items: [coal, lava_bucket, bucket]}
      fluids:
        - group: tank
          buckets: "16"           # or capacity in droplets
          filter: {fluids: [water]}
      energy: {capacity: 10000, max_insert: 100, max_extract: 100, external_extract: true}
      statuses: [active, idle]    # defaults to what the behaviour reports
      io:
        back: {resource: energy, flow: output}
      behaviour:
        generator:
          fuel_group: fuel
          energy_per_tick: 20
          fuels: {coal: 80}

FILTERS:
  A missing filter accepts everything. {none: true} rejects everything,
  {items: [...]} and {fluids: [...]} accept the listed ids only.

USAGE:
  defs, err := factory.Load("machines.yaml")
  resolver := factory.NewResolver(items, fluids)
  created, err := resolver.Install(types, defs)

SEE ALSO:
  - machine/type.go: the Type produced here
  - factory/defaults.yaml: the built-in machines
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// SCHEMA TYPES
// =============================================================================

// Definitions is a definition file.
type Definitions struct {
	Groups   []GroupDef   `yaml:"groups" json:"groups,omitempty"`
	Machines []MachineDef `yaml:"machines" json:"machines"`
}

// GroupDef declares a slot group type.
type GroupDef struct {
	ID        string `yaml:"id" json:"id"`
	Name      string `yaml:"name" json:"name"`
	InputType string `yaml:"input_type" json:"input_type"`
}

// MachineDef declares one machine type.
type MachineDef struct {
	ID        string           `yaml:"id" json:"id"`
	Name      string           `yaml:"name" json:"name"`
	Items     []SlotDef        `yaml:"items" json:"items,omitempty"`
	Fluids    []SlotDef        `yaml:"fluids" json:"fluids,omitempty"`
	Energy    EnergyDef        `yaml:"energy" json:"energy"`
	Statuses  []string         `yaml:"statuses" json:"statuses,omitempty"`
	IO        map[string]IODef `yaml:"io" json:"io,omitempty"`
	Behaviour *BehaviourDef    `yaml:"behaviour" json:"behaviour,omitempty"`
}

// SlotDef declares one or more identical slots.
type SlotDef struct {
	Group string `yaml:"group" json:"group"`
	// Count repeats the slot; zero means one.
	Count int `yaml:"count" json:"count,omitempty"`
	// Capacity is a count for items and droplets for fluids.
	Capacity int64 `yaml:"capacity" json:"capacity,omitempty"`
	// Buckets is a decimal fluid capacity, used when Capacity is zero.
	Buckets      string     `yaml:"buckets" json:"buckets,omitempty"`
	Filter       *FilterDef `yaml:"filter" json:"filter,omitempty"`
	PlayerInsert *bool      `yaml:"player_insert" json:"player_insert,omitempty"`
	X            int        `yaml:"x" json:"x,omitempty"`
	Y            int        `yaml:"y" json:"y,omitempty"`
}

// FilterDef restricts what a slot accepts.
type FilterDef struct {
	None   bool     `yaml:"none" json:"none,omitempty"`
	Items  []string `yaml:"items" json:"items,omitempty"`
	Fluids []string `yaml:"fluids" json:"fluids,omitempty"`
}

// EnergyDef mirrors generic.EnergySpec.
type EnergyDef struct {
	Capacity        int64 `yaml:"capacity" json:"capacity"`
	MaxInsert       int64 `yaml:"max_insert" json:"max_insert"`
	MaxExtract      int64 `yaml:"max_extract" json:"max_extract"`
	ExternalInsert  bool  `yaml:"external_insert" json:"external_insert,omitempty"`
	ExternalExtract bool  `yaml:"external_extract" json:"external_extract,omitempty"`
}

// IODef is the default configuration of a face. Group and Slot are
// mutually exclusive.
type IODef struct {
	Resource string `yaml:"resource" json:"resource"`
	Flow     string `yaml:"flow" json:"flow"`
	Group    string `yaml:"group" json:"group,omitempty"`
	Slot     *int   `yaml:"slot" json:"slot,omitempty"`
}

// BehaviourDef selects exactly one behaviour.
type BehaviourDef struct {
	Generator *GeneratorDef `yaml:"generator" json:"generator,omitempty"`
	Processor *ProcessorDef `yaml:"processor" json:"processor,omitempty"`
}

// GeneratorDef configures machine.Generator. Fuels maps item ids to burn
// ticks.
type GeneratorDef struct {
	FuelGroup     string           `yaml:"fuel_group" json:"fuel_group"`
	EnergyPerTick int64            `yaml:"energy_per_tick" json:"energy_per_tick"`
	Fuels         map[string]int64 `yaml:"fuels" json:"fuels"`
}

// ProcessorDef configures machine.Processor.
type ProcessorDef struct {
	InputGroup    string      `yaml:"input_group" json:"input_group"`
	OutputGroup   string      `yaml:"output_group" json:"output_group"`
	EnergyPerTick int64       `yaml:"energy_per_tick" json:"energy_per_tick"`
	Recipes       []RecipeDef `yaml:"recipes" json:"recipes"`
}

// RecipeDef is one processor recipe. Fluid outputs take either Amount in
// droplets or Buckets.
type RecipeDef struct {
	Input       string `yaml:"input" json:"input"`
	OutputItem  string `yaml:"output_item" json:"output_item,omitempty"`
	OutputFluid string `yaml:"output_fluid" json:"output_fluid,omitempty"`
	Amount      int64  `yaml:"amount" json:"amount,omitempty"`
	Buckets     string `yaml:"buckets" json:"buckets,omitempty"`
	Ticks       int64  `yaml:"ticks" json:"ticks"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseYAML decodes a YAML definition file. Unknown fields are rejected.
func ParseYAML(data []byte) (Definitions, error) {
	var defs Definitions
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&defs); err != nil {
		return Definitions{}, fmt.Errorf("failed to parse definitions YAML: %w", err)
	}
	return defs, nil
}

// ParseJSON decodes a JSON definition file. Unknown fields are rejected.
func ParseJSON(data []byte) (Definitions, error) {
	var defs Definitions
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&defs); err != nil {
		return Definitions{}, fmt.Errorf("failed to parse definitions JSON: %w", err)
	}
	return defs, nil
}

// Load reads a definition file, choosing the format by extension.
func Load(path string) (Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definitions{}, fmt.Errorf("failed to read definitions: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseJSON(data)
	}
	return ParseYAML(data)
}

// Merge appends other's groups and machines to d.
func (d Definitions) Merge(other Definitions) Definitions {
	return Definitions{
		Groups:   append(append([]GroupDef(nil), d.Groups...), other.Groups...),
		Machines: append(append([]MachineDef(nil), d.Machines...), other.Machines...),
	}
}
