// Package bmi computes Body Mass Index values and weight categories.
//
// Rounding policy: the raw value is rounded to one decimal place, half away from
// zero, on its shortest decimal representation (24.95 becomes 25.0). The category
// is classified from the rounded value so a displayed BMI and its category always agree.
package bmi

import (
	"github.com/shopspring/decimal"

	"github.com/steveyegge/bmi/internal/types"
)

// Category thresholds (inclusive lower bounds)
const (
	NormalThreshold     = 18.5
	OverweightThreshold = 25.0
	ObeseThreshold      = 30.0
)

// Meter scale used for the visual fill
const (
	MeterMin = 15.0
	MeterMax = 40.0
)

// Result is the output of a BMI computation
type Result struct {
	BMI      float64
	Category types.Category
}

// Compute returns the rounded BMI and its category.
// heightCm and weightKg must already be validated (positive, within form limits).
func Compute(heightCm, weightKg float64) Result {
	m := heightCm / 100
	value := Round1(weightKg / (m * m))
	return Result{
		BMI:      value,
		Category: Classify(value),
	}
}

// Round1 rounds to one decimal place, half away from zero
func Round1(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(1).Float64()
	return f
}

// Classify maps a BMI value to its weight category
func Classify(value float64) types.Category {
	switch {
	case value < NormalThreshold:
		return types.CategoryUnderweight
	case value < OverweightThreshold:
		return types.CategoryNormalWeight
	case value < ObeseThreshold:
		return types.CategoryOverweight
	default:
		return types.CategoryObese
	}
}

// MeterFill returns the fraction of the BMI meter to fill, clamped to [0, 1]
func MeterFill(value float64) float64 {
	fill := (value - MeterMin) / (MeterMax - MeterMin)
	if fill < 0 {
		return 0
	}
	if fill > 1 {
		return 1
	}
	return fill
}

// Advice returns the health recommendation shown with a result
func Advice(c types.Category) string {
	switch c {
	case types.CategoryUnderweight:
		return "Consider consulting with a healthcare provider about healthy weight gain strategies. " +
			"Focus on nutrient-dense foods and strength training."
	case types.CategoryNormalWeight:
		return "Excellent! You're in the healthy weight range. " +
			"Keep up the good work with balanced nutrition and regular physical activity."
	case types.CategoryOverweight:
		return "Consider adopting a balanced diet and increasing physical activity. " +
			"Small, sustainable changes can make a big difference."
	case types.CategoryObese:
		return "It's recommended to consult with a healthcare provider for a personalized weight management plan. " +
			"Focus on gradual, sustainable lifestyle changes."
	default:
		return "Maintain a balanced lifestyle with proper nutrition and regular exercise."
	}
}
