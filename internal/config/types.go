// Package config declares the run configuration and the SourceSpec model
// that drives the Source Registry, Reader, Validator, Staging Loader,
// Auditor, and Merger (spec §3, §9: "declarative field models").
package config

import "time"

// SemanticType enumerates the value types a FieldSpec may declare. Unlike
// the Python original's runtime-introspected pydantic models, this is a
// compile-time tagged variant: a closed set of string constants checked by
// the validator's coercion switch (spec §9).
type SemanticType string

const (
	TypeString   SemanticType = "string"
	TypeInt      SemanticType = "int"
	TypeDecimal  SemanticType = "decimal"
	TypeFloat    SemanticType = "float"
	TypeBool     SemanticType = "bool"
	TypeDate     SemanticType = "date"
	TypeDateTime SemanticType = "datetime"
)

// CoercionKind enumerates the declarative custom coercions a FieldSpec may
// request beyond bare type parsing (spec §4.3 step 3).
type CoercionKind string

const (
	CoerceTrim            CoercionKind = "trim"
	CoerceLower            CoercionKind = "lower"
	CoerceStripNonDigits   CoercionKind = "strip_non_digits"
	CoerceMaxLength        CoercionKind = "max_length"
)

// FieldSpec declares one column of a SourceSpec's model.
type FieldSpec struct {
	Name           string       `yaml:"name"`
	Alias          string       `yaml:"alias,omitempty"`
	SemanticType   SemanticType `yaml:"type"`
	Nullable       bool         `yaml:"nullable,omitempty"`
	MaxLength      int          `yaml:"max_length,omitempty"`
	Coercions      []CoercionKind `yaml:"coercions,omitempty"`
}

// AliasOrName returns the file header token this field is read from.
func (f FieldSpec) AliasOrName() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// FormatKind enumerates the raw file shapes the Reader capability supports.
type FormatKind string

const (
	FormatDelimited  FormatKind = "delimited"
	FormatSpreadsheet FormatKind = "spreadsheet"
	FormatDocument    FormatKind = "document"
)

// SourceSpec is the immutable, declared-at-startup description of one file
// family: how to recognize it, how to read it, how to validate it, and
// where it lands (spec §3).
type SourceSpec struct {
	Name        string     `yaml:"name"`
	FilePattern string     `yaml:"file_pattern"`
	FormatKind  FormatKind `yaml:"format_kind"`
	Model       []FieldSpec `yaml:"model"`
	TargetTable string     `yaml:"target_table"`
	Grain       []string   `yaml:"grain"`
	AuditSQL    string     `yaml:"audit_sql,omitempty"`

	ValidationErrorThreshold float64  `yaml:"validation_error_threshold,omitempty"`
	NotificationRecipients   []string `yaml:"notification_recipients,omitempty"`

	// Delimited-format options.
	Delimiter string `yaml:"delimiter,omitempty"`
	Encoding  string `yaml:"encoding,omitempty"`
	SkipRows  int    `yaml:"skip_rows,omitempty"`

	// Spreadsheet-format options.
	SheetName string `yaml:"sheet_name,omitempty"`

	// Document-format options.
	ArrayPath string `yaml:"array_path,omitempty"`
}

// FieldByName returns the FieldSpec named name, if declared.
func (s SourceSpec) FieldByName(name string) (FieldSpec, bool) {
	for _, f := range s.Model {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// DeclaredAliases returns the lowercased set of file-header tokens the
// model expects to find, used for the Reader's header-coverage check.
func (s SourceSpec) DeclaredAliases() map[string]bool {
	set := make(map[string]bool, len(s.Model))
	for _, f := range s.Model {
		set[lower(f.AliasOrName())] = true
	}
	return set
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// NotificationConfig carries the transport settings for the owner/operator
// notification sinks (spec §6).
type NotificationConfig struct {
	SMTPHost      string `yaml:"smtp_host,omitempty"`
	SMTPPort      int    `yaml:"smtp_port,omitempty"`
	SMTPUser      string `yaml:"smtp_user,omitempty"`
	SMTPPassword  string `yaml:"smtp_password,omitempty"`
	FromEmail     string `yaml:"from_email,omitempty"`
	DataTeamEmail string `yaml:"data_team_email,omitempty"`
	WebhookURL    string `yaml:"webhook_url,omitempty"`
}

// RunConfig is the top-level configuration for one run of the loader:
// directories, database connection, batching, concurrency, and the set of
// declared SourceSpecs (spec §6 "Configuration").
type RunConfig struct {
	DatabaseURL    string `yaml:"database_url"`
	IntakeDir      string `yaml:"intake_dir"`
	ArchiveDir     string `yaml:"archive_dir"`
	DuplicatesDir  string `yaml:"duplicates_dir"`

	BatchSize  int    `yaml:"batch_size,omitempty"`
	LogLevel   string `yaml:"log_level,omitempty"`
	WorkerCount int   `yaml:"worker_count,omitempty"`

	Notifications NotificationConfig `yaml:"notifications,omitempty"`

	Sources []SourceSpec `yaml:"sources"`

	// ConnectTimeout bounds connection-pool acquisition (spec §5).
	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty"`
}

const (
	DefaultBatchSize      = 10000
	DefaultLogLevel       = "info"
	DefaultConnectTimeout = 30 * time.Second
)
