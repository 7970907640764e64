package model

import "fmt"

// ErrorCode enumerates the compiler's error taxonomy (spec §7).
type ErrorCode string

const (
	// Parse errors (model YAML or measure/metric expressions).
	ErrParseYAML       ErrorCode = "PARSE_YAML"
	ErrParseExpression ErrorCode = "PARSE_ERROR"

	// Reference errors.
	ErrUnknownDataObject ErrorCode = "UNKNOWN_DATA_OBJECT"
	ErrUnknownColumn     ErrorCode = "UNKNOWN_COLUMN"
	ErrUnknownDimension  ErrorCode = "UNKNOWN_DIMENSION"
	ErrUnknownMeasure    ErrorCode = "UNKNOWN_MEASURE"
	ErrUnknownMetric     ErrorCode = "UNKNOWN_METRIC"
	ErrUnknownJoinTarget ErrorCode = "UNKNOWN_JOIN_TARGET"

	// Semantic (model validation) errors.
	ErrDuplicateName         ErrorCode = "DUPLICATE_NAME"
	ErrNonUniqueColumn       ErrorCode = "NON_UNIQUE_COLUMN"
	ErrCyclicJoin            ErrorCode = "CYCLIC_JOIN"
	ErrMultipathJoin         ErrorCode = "MULTIPATH_JOIN"
	ErrUnknownJoinColumn     ErrorCode = "UNKNOWN_JOIN_COLUMN"
	ErrSecondaryMissingPath  ErrorCode = "SECONDARY_MISSING_PATHNAME"
	ErrDuplicateSecondary    ErrorCode = "DUPLICATE_SECONDARY_PATH"
	ErrUnresolvedMeasureRef  ErrorCode = "UNRESOLVED_MEASURE_REF"
	ErrUnresolvedDimRef      ErrorCode = "UNRESOLVED_DIMENSION_REF"
	ErrMetricCycle           ErrorCode = "METRIC_CYCLE"

	// Resolution errors.
	ErrUnknownFilterOperator ErrorCode = "UNKNOWN_FILTER_OPERATOR"
	ErrInvalidGrain          ErrorCode = "INVALID_GRAIN"
	ErrAmbiguousJoin         ErrorCode = "AMBIGUOUS_JOIN"
	ErrFanout                ErrorCode = "FANOUT"
	ErrUnsupportedFeature    ErrorCode = "UNSUPPORTED_FEATURE"

	// Configuration errors.
	ErrUnsupportedDialect ErrorCode = "UNSUPPORTED_DIALECT"
)

// SourceSpan locates an error within the model YAML source.
type SourceSpan struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Length int `json:"length,omitempty"`
}

// CompileError is the single tagged error value threaded through every
// compiler stage: validator, resolver, planner, and dialect rendering.
type CompileError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Span    *SourceSpan `json:"span,omitempty"`
	Path    string      `json:"path,omitempty"`
	Related string      `json:"related,omitempty"`
	Cause   error       `json:"-"`
}

func (e *CompileError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s (at %s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *CompileError) Unwrap() error {
	return e.Cause
}

// WithSpan attaches a source position to the error.
func (e *CompileError) WithSpan(span SourceSpan) *CompileError {
	e.Span = &span
	return e
}

// WithPath attaches a dotted JSON-pointer-style path to the error.
func (e *CompileError) WithPath(path string) *CompileError {
	e.Path = path
	return e
}

// WithRelated attaches a related identifier (e.g. the unresolved name).
func (e *CompileError) WithRelated(related string) *CompileError {
	e.Related = related
	return e
}

// WithCause chains an underlying error.
func (e *CompileError) WithCause(cause error) *CompileError {
	e.Cause = cause
	return e
}

// NewCompileError constructs a CompileError with the given code and message.
func NewCompileError(code ErrorCode, message string) *CompileError {
	return &CompileError{Code: code, Message: message}
}

// NewCompileErrorf constructs a CompileError with a formatted message.
func NewCompileErrorf(code ErrorCode, format string, args ...any) *CompileError {
	return &CompileError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsCode reports whether err is a *CompileError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	ce, ok := err.(*CompileError)
	return ok && ce.Code == code
}

// ValidationErrorList is the error returned when a model fails
// validator.Validate: every issue found, not just the first.
type ValidationErrorList struct {
	Issues []*CompileError
}

// ValidationErrors wraps a non-empty issue list from validator.Validate
// into a single error value the pipeline can return.
func ValidationErrors(issues []*CompileError) *ValidationErrorList {
	return &ValidationErrorList{Issues: issues}
}

func (v *ValidationErrorList) Error() string {
	if len(v.Issues) == 1 {
		return v.Issues[0].Error()
	}
	return fmt.Sprintf("%d validation issues, first: %s", len(v.Issues), v.Issues[0].Error())
}

// Unwrap exposes every issue to errors.Is/As.
func (v *ValidationErrorList) Unwrap() []error {
	out := make([]error, len(v.Issues))
	for i, issue := range v.Issues {
		out[i] = issue
	}
	return out
}
