package serving

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/periop-ai/platform/pkg/pipeline"
)

var (
	errMissingFeatures = errors.New("missing required features")
	errUnknownFeatures = errors.New("unknown features")
	errInvalidFeature  = errors.New("invalid feature value")
	errEmptyPayload    = errors.New("empty payload")
)

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// Validator checks one feature record against the artifact schema before it
// reaches the pipeline.
type Validator struct {
	numeric map[string]struct{}
	known   map[string]struct{}
}

func NewValidator(schema pipeline.FeatureSchema) *Validator {
	numeric := make(map[string]struct{}, len(schema.Numeric))
	known := make(map[string]struct{}, len(schema.Numeric)+len(schema.Categorical))
	for _, f := range schema.Numeric {
		numeric[f.Name] = struct{}{}
		known[f.Name] = struct{}{}
	}
	for _, f := range schema.Categorical {
		known[f.Name] = struct{}{}
	}
	return &Validator{numeric: numeric, known: known}
}

func (v *Validator) Validate(record map[string]interface{}) error {
	if v == nil {
		return ValidationError{reason: errors.New("validator not initialised")}
	}
	if len(record) == 0 {
		return ValidationError{reason: errEmptyPayload}
	}

	var missing []string
	for name := range v.known {
		if value, ok := record[name]; !ok || value == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return ValidationError{reason: fmt.Errorf("%w: %s", errMissingFeatures, strings.Join(missing, ", "))}
	}

	var unknown []string
	for name := range record {
		if _, ok := v.known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return ValidationError{reason: fmt.Errorf("%w: %s", errUnknownFeatures, strings.Join(unknown, ", "))}
	}

	for name := range v.numeric {
		if _, err := pipeline.ToFloat(record[name]); err != nil {
			return ValidationError{reason: fmt.Errorf("%w: %s must be numeric", errInvalidFeature, name)}
		}
	}

	return nil
}
