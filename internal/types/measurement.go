package types

import (
	"fmt"
	"math"
	"strings"
)

// MeasurementRecord is a single completed BMI calculation.
// Records are created once by a successful calculation and never modified afterwards.
type MeasurementRecord struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	DateOfBirth string   `json:"dateOfBirth"`
	Gender      Gender   `json:"gender"`
	HeightCm    float64  `json:"height"`
	WeightKg    float64  `json:"weight"`
	BMI         float64  `json:"bmi"`
	Category    Category `json:"category"`
	Date        string   `json:"date"`
}

// Validate checks that a record read back from storage is well-formed
func (r *MeasurementRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !r.Gender.IsValid() {
		return fmt.Errorf("invalid gender: %q", r.Gender)
	}
	if r.HeightCm <= 0 || r.HeightCm > MaxHeightCm {
		return fmt.Errorf("height must be in (0, %v] (got %v)", MaxHeightCm, r.HeightCm)
	}
	if r.WeightKg <= 0 || r.WeightKg > MaxWeightKg {
		return fmt.Errorf("weight must be in (0, %v] (got %v)", MaxWeightKg, r.WeightKg)
	}
	if math.IsNaN(r.BMI) || math.IsInf(r.BMI, 0) || r.BMI < 0 {
		return fmt.Errorf("invalid bmi: %v", r.BMI)
	}
	if !r.Category.IsValid() {
		return fmt.Errorf("invalid category: %q", r.Category)
	}
	return nil
}

// Measurement limits accepted by the form
const (
	MaxHeightCm = 300.0
	MaxWeightKg = 500.0
)

// Gender of the person being measured
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// IsValid checks if the gender value is valid
func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale:
		return true
	}
	return false
}

// Category is the BMI weight class.
// The string values are the labels persisted in history.
type Category string

const (
	CategoryUnderweight  Category = "Underweight"
	CategoryNormalWeight Category = "Normal Weight"
	CategoryOverweight   Category = "Overweight"
	CategoryObese        Category = "Obese"
)

// IsValid checks if the category value is valid
func (c Category) IsValid() bool {
	switch c {
	case CategoryUnderweight, CategoryNormalWeight, CategoryOverweight, CategoryObese:
		return true
	}
	return false
}

// Field names a form input
type Field string

const (
	FieldName        Field = "name"
	FieldDateOfBirth Field = "dateOfBirth"
	FieldGender      Field = "gender"
	FieldHeight      Field = "height"
	FieldWeight      Field = "weight"
)

// FormFields lists the form inputs in display order
var FormFields = []Field{FieldName, FieldDateOfBirth, FieldGender, FieldHeight, FieldWeight}

// IsValid checks if the field is one of the form inputs
func (f Field) IsValid() bool {
	for _, known := range FormFields {
		if f == known {
			return true
		}
	}
	return false
}

// FormInput holds the raw, unvalidated form values as typed by the user
type FormInput struct {
	Name        string `json:"name"`
	DateOfBirth string `json:"dateOfBirth"`
	Gender      string `json:"gender"`
	Height      string `json:"height"`
	Weight      string `json:"weight"`
}

// Get returns the raw value of a field
func (in FormInput) Get(field Field) string {
	switch field {
	case FieldName:
		return in.Name
	case FieldDateOfBirth:
		return in.DateOfBirth
	case FieldGender:
		return in.Gender
	case FieldHeight:
		return in.Height
	case FieldWeight:
		return in.Weight
	}
	return ""
}

// With returns a copy of the input with one field replaced
func (in FormInput) With(field Field, value string) (FormInput, error) {
	switch field {
	case FieldName:
		in.Name = value
	case FieldDateOfBirth:
		in.DateOfBirth = value
	case FieldGender:
		in.Gender = value
	case FieldHeight:
		in.Height = value
	case FieldWeight:
		in.Weight = value
	default:
		return in, fmt.Errorf("unknown field: %q", field)
	}
	return in, nil
}

// IsEmpty reports whether no field has been filled in
func (in FormInput) IsEmpty() bool {
	return in == FormInput{}
}
