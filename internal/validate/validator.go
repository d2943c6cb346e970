// Package validate implements the streaming Reader -> RecordOutcome stage
// (spec §4.3): each RawRecord is coerced against its SourceSpec's
// FieldSpecs and emitted as exactly one of a valid, hashed row or a failed
// row carrying per-column diagnostics.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"fileloader/internal/config"
	"fileloader/internal/model"
)

var dateLayouts = []string{"2006-01-02", "01/02/2006", "2006/01/02"}
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

// Validator coerces RawRecords read from one source's files against its
// declared model (spec §4.3).
type Validator struct {
	src config.SourceSpec
}

// New builds a Validator bound to src's field model.
func New(src config.SourceSpec) *Validator {
	return &Validator{src: src}
}

// Validate coerces one RawRecord, returning a RecordOutcome tagging it as
// Valid (hashed, ready to stage) or Failed (with per-column errors).
// fileRowNumber is the 1-based data row position, used only for diagnosing
// Failed rows.
func (v *Validator) Validate(raw map[string]interface{}, fileRowNumber int) model.RecordOutcome {
	fields := make(map[string]interface{}, len(v.src.Model))
	var errs []model.FieldError

	for _, fs := range v.src.Model {
		alias := strings.ToLower(fs.AliasOrName())
		rawVal, _ := raw[alias]
		strVal := toStringValue(rawVal)
		strVal = applyCoercions(strVal, fs)

		if strVal == "" {
			if fs.Nullable {
				fields[fs.Name] = nil
				continue
			}
			errs = append(errs, model.FieldError{
				ColumnName:   alias,
				ColumnValue:  rawVal,
				ErrorKind:    "missing_required_value",
				ErrorMessage: fmt.Sprintf("field %q is required but empty", fs.Name),
			})
			continue
		}

		coerced, err := coerceTyped(strVal, fs)
		if err != nil {
			errs = append(errs, model.FieldError{
				ColumnName:   alias,
				ColumnValue:  rawVal,
				ErrorKind:    "type_coercion_failed",
				ErrorMessage: err.Error(),
			})
			continue
		}
		fields[fs.Name] = coerced
	}

	if len(errs) > 0 {
		return model.RecordOutcome{Failed: &model.FailedRow{
			FileRowNumber: fileRowNumber,
			Record:        restrictToDiagnosticFields(raw, v.src, errs),
			Errors:        errs,
		}}
	}

	return model.RecordOutcome{Valid: &model.ValidRow{
		Fields:     fields,
		ETLRowHash: RowHash(fields),
	}}
}

// restrictToDiagnosticFields narrows raw to the columns a reader or DLQ
// consumer needs to diagnose a failed row: the aliases that actually
// failed plus the source's grain fields, so a dead-letter record never
// carries the full original row (spec §4.3 step 5: "the subset of the
// original record restricted to the failing fields union grain fields").
func restrictToDiagnosticFields(raw map[string]interface{}, src config.SourceSpec, errs []model.FieldError) map[string]interface{} {
	keep := make(map[string]bool, len(errs)+len(src.Grain))
	for _, e := range errs {
		keep[e.ColumnName] = true
	}
	for _, g := range src.Grain {
		alias := g
		if fs, ok := src.FieldByName(g); ok {
			alias = fs.AliasOrName()
		}
		keep[strings.ToLower(alias)] = true
	}

	restricted := make(map[string]interface{}, len(keep))
	for k := range keep {
		if v, ok := raw[k]; ok {
			restricted[k] = v
		}
	}
	return restricted
}

func toStringValue(v interface{}) string {
	if v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimSpace(s)
}

func applyCoercions(s string, fs config.FieldSpec) string {
	for _, c := range fs.Coercions {
		switch c {
		case config.CoerceTrim:
			s = strings.TrimSpace(s)
		case config.CoerceLower:
			s = strings.ToLower(s)
		case config.CoerceStripNonDigits:
			s = nonDigits.ReplaceAllString(s, "")
		case config.CoerceMaxLength:
			if fs.MaxLength > 0 && len(s) > fs.MaxLength {
				s = s[:fs.MaxLength]
			}
		}
	}
	return s
}

// coerceTyped converts a non-empty, already-coerced string into the Go
// value its SemanticType implies.
func coerceTyped(s string, fs config.FieldSpec) (interface{}, error) {
	switch fs.SemanticType {
	case config.TypeString:
		if fs.MaxLength > 0 && len(s) > fs.MaxLength {
			return nil, fmt.Errorf("value exceeds max_length %d", fs.MaxLength)
		}
		return s, nil

	case config.TypeInt:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("not a valid int: %q", s)
		}
		return n, nil

	case config.TypeFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("not a valid float: %q", s)
		}
		return f, nil

	case config.TypeDecimal:
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return nil, fmt.Errorf("not a valid decimal: %q", s)
		}
		return s, nil // preserved as text to avoid float rounding of currency-like values

	case config.TypeBool:
		switch strings.ToLower(s) {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		default:
			return nil, fmt.Errorf("not a valid bool: %q", s)
		}

	case config.TypeDate:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("not a valid date: %q", s)

	case config.TypeDateTime:
		for _, layout := range datetimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("not a valid datetime: %q", s)

	default:
		return nil, fmt.Errorf("unknown semantic type %q", fs.SemanticType)
	}
}
