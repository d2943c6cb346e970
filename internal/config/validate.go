package config

import (
	"fmt"
	"strings"
)

// Validate checks RunConfig-level and SourceSpec-level invariants before
// the pipeline ever opens a connection. Mirrors the teacher's
// internal/config/validation.go pattern of aggregating every problem found
// rather than failing on the first one.
func Validate(cfg *RunConfig) error {
	var problems []string

	if cfg.DatabaseURL == "" {
		problems = append(problems, "database_url is required")
	}
	if cfg.ArchiveDir == "" {
		problems = append(problems, "archive_dir is required")
	}
	if cfg.DuplicatesDir == "" {
		problems = append(problems, "duplicates_dir is required")
	}
	if cfg.IntakeDir == "" {
		problems = append(problems, "intake_dir is required")
	}
	if cfg.BatchSize < 0 {
		problems = append(problems, "batch_size must not be negative")
	}

	seenNames := make(map[string]bool, len(cfg.Sources))
	for i, src := range cfg.Sources {
		prefix := fmt.Sprintf("sources[%d] (%s)", i, src.Name)

		if src.Name == "" {
			problems = append(problems, prefix+": name is required")
		} else if seenNames[src.Name] {
			problems = append(problems, prefix+": duplicate source name")
		}
		seenNames[src.Name] = true

		if src.FilePattern == "" {
			problems = append(problems, prefix+": file_pattern is required")
		}
		if src.TargetTable == "" {
			problems = append(problems, prefix+": target_table is required")
		}
		if len(src.Grain) == 0 {
			problems = append(problems, prefix+": grain must be non-empty")
		}
		if src.ValidationErrorThreshold < 0 || src.ValidationErrorThreshold > 1 {
			problems = append(problems, prefix+": validation_error_threshold must be in [0,1]")
		}
		// |grain| > 3 is only a warning (spec §6), logged when the target
		// table DDL is rendered — not a validation failure here.

		switch src.FormatKind {
		case FormatDelimited, FormatSpreadsheet, FormatDocument:
		default:
			problems = append(problems, prefix+fmt.Sprintf(": unsupported format_kind %q", src.FormatKind))
		}

		declared := make(map[string]bool, len(src.Model))
		for _, f := range src.Model {
			if f.Name == "" {
				problems = append(problems, prefix+": field with empty name")
				continue
			}
			declared[f.Name] = true
			switch f.SemanticType {
			case TypeString, TypeInt, TypeDecimal, TypeFloat, TypeBool, TypeDate, TypeDateTime:
			default:
				problems = append(problems, prefix+fmt.Sprintf(": field %q has unsupported type %q", f.Name, f.SemanticType))
			}
		}

		// Invariant: every identifier in grain names a field in model.
		for _, g := range src.Grain {
			if !declared[g] {
				problems = append(problems, prefix+fmt.Sprintf(": grain field %q is not declared in model", g))
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
}
