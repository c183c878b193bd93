package vdg

import (
	"github.com/hooklab-media/hooklab-backend/internal/pkg/apperr"
)

// ValidateContract checks the minimum the analysis contract requires of the
// vision model's output: a supported version and at least one of hook_genome
// or intent_layer. Missing hook_genome.microbeats is tolerated and reported
// as a warning so callers can log it; the normalizer reconstructs the
// sequence from scenes in that case.
func ValidateContract(doc *Document) ([]string, error) {
	if doc == nil {
		return nil, &apperr.SchemaValidationError{Reason: "empty document"}
	}
	if doc.SchemaVersion == "" {
		return nil, &apperr.SchemaValidationError{Field: "schema_version", Reason: "missing"}
	}
	if !SupportedVersion(doc.SchemaVersion) {
		return nil, &apperr.SchemaValidationError{
			SchemaVersion: doc.SchemaVersion,
			Field:         "schema_version",
			Reason:        "unsupported version",
		}
	}
	if doc.HookGenome == nil && len(doc.IntentLayer) == 0 {
		return nil, &apperr.SchemaValidationError{
			SchemaVersion: doc.SchemaVersion,
			Field:         "hook_genome",
			Reason:        "requires hook_genome or intent_layer",
		}
	}

	var warnings []string
	if doc.HookGenome != nil && len(doc.HookGenome.Microbeats) == 0 {
		warnings = append(warnings, "hook_genome.microbeats missing; microbeat sequence will be reconstructed from scenes")
	}
	return warnings, nil
}
