// Package display renders BMI results, forms and history to a terminal.
package display

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/steveyegge/bmi/internal/bmi"
	"github.com/steveyegge/bmi/internal/types"
	"github.com/steveyegge/bmi/internal/validation"
)

// EmptyHistoryMessage is shown when no calculation has been saved yet
const EmptyHistoryMessage = "No BMI calculations yet. Calculate your first BMI above!"

// CategoryColor returns the color used for a category's value, badge and meter
func CategoryColor(c types.Category) *color.Color {
	switch c {
	case types.CategoryUnderweight:
		return color.New(color.FgMagenta)
	case types.CategoryNormalWeight:
		return color.New(color.FgGreen)
	case types.CategoryOverweight:
		return color.New(color.FgYellow)
	case types.CategoryObese:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgWhite)
	}
}

// categoryIcon mirrors the trend arrows shown next to the badge
func categoryIcon(c types.Category) string {
	switch c {
	case types.CategoryUnderweight:
		return "↘"
	case types.CategoryNormalWeight:
		return "—"
	case types.CategoryOverweight:
		return "↗"
	case types.CategoryObese:
		return "!"
	default:
		return "—"
	}
}

// Badge renders a category label with its icon and color
func Badge(c types.Category) string {
	return CategoryColor(c).Sprintf("[%s %s]", categoryIcon(c), c)
}

// Meter renders a bar of the given width filled to fill (0..1)
func Meter(fill float64, width int) string {
	if width <= 0 {
		width = 40
	}
	if fill < 0 {
		fill = 0
	}
	if fill > 1 {
		fill = 1
	}
	filled := int(fill*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// MeterScale is the legend printed under the meter
func MeterScale(width int) string {
	labels := []string{"Underweight", "Normal", "Overweight", "Obese"}
	total := 0
	for _, l := range labels {
		total += len(l)
	}
	gap := (width - total) / (len(labels) - 1)
	if gap < 1 {
		gap = 1
	}
	return strings.Join(labels, strings.Repeat(" ", gap))
}

// FormatNumber prints a measurement without trailing zeros
func FormatNumber(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

// Result prints the full result card for a revealed record
func Result(w io.Writer, rec *types.MeasurementRecord, meterWidth int) {
	bold := color.New(color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	valueColor := CategoryColor(rec.Category).Add(color.Bold)

	fmt.Fprintf(w, "\n%s\n\n", cyan("Your BMI Result"))
	fmt.Fprintf(w, "  %s  %s\n\n", valueColor.Sprintf("%.1f", rec.BMI), Badge(rec.Category))
	fmt.Fprintf(w, "  %s\n", CategoryColor(rec.Category).Sprint(Meter(bmi.MeterFill(rec.BMI), meterWidth)))
	fmt.Fprintf(w, "  %s\n\n", gray(MeterScale(meterWidth)))

	fmt.Fprintf(w, "  %s %s   %s %s   %s %s cm   %s %s kg\n\n",
		gray("Name:"), bold(rec.Name),
		gray("Gender:"), bold(capitalize(string(rec.Gender))),
		gray("Height:"), bold(FormatNumber(rec.HeightCm)),
		gray("Weight:"), bold(FormatNumber(rec.WeightKg)),
	)

	fmt.Fprintf(w, "  %s\n", color.New(color.FgGreen, color.Bold).Sprint("Health Recommendation"))
	fmt.Fprintf(w, "  %s\n\n", bmi.Advice(rec.Category))
}

// HistoryTable prints the saved calculations, newest first
func HistoryTable(w io.Writer, records []types.MeasurementRecord) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	if len(records) == 0 {
		fmt.Fprintf(w, "\n%s\n\n  %s\n\n", cyan("BMI History"), gray(EmptyHistoryMessage))
		return
	}

	fmt.Fprintf(w, "\n%s\n\n", cyan(fmt.Sprintf("BMI History (%d)", len(records))))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  NAME\tGENDER\tHEIGHT\tWEIGHT\tBMI\tCATEGORY\tDATE\tID")
	for _, r := range records {
		// No colors inside cells: escape codes throw off tabwriter's column widths
		fmt.Fprintf(tw, "  %s\t%s\t%s cm\t%s kg\t%.1f\t%s\t%s\t%s\n",
			r.Name,
			capitalize(string(r.Gender)),
			FormatNumber(r.HeightCm),
			FormatNumber(r.WeightKg),
			r.BMI,
			r.Category,
			r.Date,
			r.ID,
		)
	}
	_ = tw.Flush()
	fmt.Fprintln(w)
}

// FieldErrors prints validation messages in form order
func FieldErrors(w io.Writer, errs validation.Errors) {
	if errs.Empty() {
		return
	}
	red := color.New(color.FgRed).SprintFunc()
	for _, f := range errs.Fields() {
		fmt.Fprintf(w, "  %s %s: %s\n", red("✗"), FieldLabel(f), errs[f])
	}
}

// SaveStatus reports whether a calculation reached history
func SaveStatus(w io.Writer, id string, saveErr error) {
	if saveErr != nil {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Fprintf(w, "%s not saved to history\n", yellow("Note:"))
		return
	}
	gray := color.New(color.FgHiBlack).SprintFunc()
	fmt.Fprintf(w, "%s\n", gray("Saved as "+id))
}

// Form prints the current form values and any visible field errors
func Form(w io.Writer, in types.FormInput, errs validation.Errors) {
	gray := color.New(color.FgHiBlack).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	for _, f := range types.FormFields {
		value := in.Get(f)
		if value == "" {
			value = gray("(empty)")
		}
		fmt.Fprintf(w, "  %-14s %s\n", FieldLabel(f)+":", value)
		if msg, ok := errs[f]; ok {
			fmt.Fprintf(w, "  %-14s %s\n", "", red(msg))
		}
	}
}

// FieldLabel is the human-readable name of a form field
func FieldLabel(f types.Field) string {
	switch f {
	case types.FieldName:
		return "Full Name"
	case types.FieldDateOfBirth:
		return "Date of Birth"
	case types.FieldGender:
		return "Gender"
	case types.FieldHeight:
		return "Height (cm)"
	case types.FieldWeight:
		return "Weight (kg)"
	}
	return string(f)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
