package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/invopop/jsonschema"
)

func buildScenarioSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(new(Scenario))
	schema.Title = "Navigation Scenario"
	schema.Description = "Timing, PID gains, avoidance maneuver, flag service and CAN frames for one agent"
	return schema
}

// writeScenarioSchema prints the scenario JSON schema, for editors and CI checks.
func writeScenarioSchema(w io.Writer) error {
	data, err := json.MarshalIndent(buildScenarioSchema(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}
	return nil
}
