// Package validation checks BMI form input and tracks per-field error messages.
package validation

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/steveyegge/bmi/internal/types"
)

// Field error messages
const (
	MsgNameRequired = "Name is required"
	MsgDOBRequired  = "Date of birth is required"
	MsgGender       = "Please select your gender"
	MsgHeight       = "Please enter a valid height (1-300 cm)"
	MsgWeight       = "Please enter a valid weight (1-500 kg)"
)

// Errors maps a form field to a human-readable message.
// An empty map means the input is valid.
type Errors map[types.Field]string

// Empty reports whether there are no field errors
func (e Errors) Empty() bool {
	return len(e) == 0
}

// Fields returns the fields with errors in form order, followed by any unknown fields sorted by name
func (e Errors) Fields() []types.Field {
	fields := make([]types.Field, 0, len(e))
	for _, f := range types.FormFields {
		if _, ok := e[f]; ok {
			fields = append(fields, f)
		}
	}
	var extra []types.Field
	for f := range e {
		if !f.IsValid() {
			extra = append(extra, f)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(fields, extra...)
}

// Clone returns an independent copy
func (e Errors) Clone() Errors {
	out := make(Errors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Validate checks every form field and returns the messages for the invalid ones
func Validate(in types.FormInput) Errors {
	errs := Errors{}

	if strings.TrimSpace(in.Name) == "" {
		errs[types.FieldName] = MsgNameRequired
	}
	if in.DateOfBirth == "" {
		errs[types.FieldDateOfBirth] = MsgDOBRequired
	}
	if !types.Gender(in.Gender).IsValid() {
		errs[types.FieldGender] = MsgGender
	}
	if _, ok := ParseMeasure(in.Height, types.MaxHeightCm); !ok {
		errs[types.FieldHeight] = MsgHeight
	}
	if _, ok := ParseMeasure(in.Weight, types.MaxWeightKg); !ok {
		errs[types.FieldWeight] = MsgWeight
	}

	return errs
}

// ParseMeasure parses a positive, finite decimal number no larger than max.
// Hex floats and underscore digit separators are rejected.
func ParseMeasure(raw string, max float64) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, "_xX") {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if v <= 0 || v > max {
		return 0, false
	}
	return v, true
}
