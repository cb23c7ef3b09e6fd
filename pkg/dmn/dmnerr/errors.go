package dmnerr

import (
	"errors"
	"fmt"
)

// Kind classifies every error raised by the DMN engine and the FEEL evaluator.
type Kind int

const (
	FileNotFound Kind = iota + 1
	Parse
	// Validation is raised by model level checks (see dmn.ZenDmnEngine.Validate).
	Validation
	Execution
	FEELSyntax
	FEELEvaluation
	DecisionNotFound
	DecisionServiceNotFound
	CircularDependency
	// UnsupportedFEELFeature marks FEEL constructs that are deliberately not implemented.
	UnsupportedFEELFeature
)

func (k Kind) String() string {
	switch k {
	case FileNotFound:
		return "FileNotFound"
	case Parse:
		return "DMNParseError"
	case Validation:
		return "DMNValidationError"
	case Execution:
		return "DMNExecutionError"
	case FEELSyntax:
		return "FEELSyntaxError"
	case FEELEvaluation:
		return "FEELEvaluationError"
	case DecisionNotFound:
		return "DecisionNotFoundError"
	case DecisionServiceNotFound:
		return "DecisionServiceNotFoundError"
	case CircularDependency:
		return "CircularDependencyError"
	case UnsupportedFEELFeature:
		return "UnsupportedFEELFeatureError"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Sentinels usable with errors.Is.
var (
	ErrFileNotFound            = &Error{Kind: FileNotFound}
	ErrParse                   = &Error{Kind: Parse}
	ErrValidation              = &Error{Kind: Validation}
	ErrExecution               = &Error{Kind: Execution}
	ErrFEELSyntax              = &Error{Kind: FEELSyntax}
	ErrFEELEvaluation          = &Error{Kind: FEELEvaluation}
	ErrDecisionNotFound        = &Error{Kind: DecisionNotFound}
	ErrDecisionServiceNotFound = &Error{Kind: DecisionServiceNotFound}
	ErrCircularDependency      = &Error{Kind: CircularDependency}
	ErrUnsupportedFEELFeature  = &Error{Kind: UnsupportedFEELFeature}
)

// Error is the common base of the taxonomy.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if len(e.Msg) > 0 {
			return e.Msg + ": " + e.Err.Error()
		}
		return e.Err.Error()
	}
	if len(e.Msg) > 0 {
		return e.Msg
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports kind equality, so any *Error matches the sentinel of its kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New uses fmt.Sprintf(format, a...) to format the message
func New(kind Kind, format string, a ...any) error {
	return &Error{
		Kind: kind,
		Msg:  fmt.Sprintf(format, a...),
	}
}

// Wrap attaches kind and message to err.
func Wrap(kind Kind, err error, format string, a ...any) error {
	return &Error{
		Kind: kind,
		Msg:  fmt.Sprintf(format, a...),
		Err:  err,
	}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
