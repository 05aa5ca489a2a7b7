package diag

import (
	"fmt"
	"strings"
)

// FormatError returns a human-readable error message for terminal output
func FormatError(e *Error) string {
	var b strings.Builder

	file := e.File
	if file == "" {
		file = "<input>"
	}

	fmt.Fprintf(&b, "%s %s in %s\n", severityIcon(e.Severity), categoryDisplayName(e.Category), file)

	if e.Offset >= 0 {
		fmt.Fprintf(&b, "At byte offset 0x%x:\n", e.Offset)
	}
	fmt.Fprintf(&b, "  %s\n", e.Message)

	if e.Expected != "" || e.Actual != "" {
		b.WriteString("\n")
		if e.Expected != "" {
			fmt.Fprintf(&b, "  Expected: %s\n", e.Expected)
		}
		if e.Actual != "" {
			fmt.Fprintf(&b, "  Actual:   %s\n", e.Actual)
		}
	}

	if len(e.Chain) > 0 {
		b.WriteString("\nReference chain:\n")
		for i, ref := range e.Chain {
			fmt.Fprintf(&b, "  %s%s\n", strings.Repeat("  ", i), ref)
		}
	}

	return b.String()
}

// FormatList returns a formatted string of all errors
func FormatList(errors List) string {
	if len(errors) == 0 {
		return "no errors"
	}

	var b strings.Builder

	errCount, warnCount := errors.Count()
	fmt.Fprintf(&b, "Generation failed with %d error(s), %d warning(s)\n\n", errCount, warnCount)

	for i, err := range errors {
		if i > 0 {
			b.WriteString("\n" + strings.Repeat("-", 80) + "\n\n")
		}
		b.WriteString(err.Format())
	}

	return b.String()
}

// FormatCompact returns a compact one-line error format
func FormatCompact(e *Error) string {
	file := e.File
	if file == "" {
		file = "<input>"
	}
	if e.Offset >= 0 {
		return fmt.Sprintf("%s@0x%x: %s: %s [%s]", file, e.Offset, e.Severity, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s [%s]", file, e.Severity, e.Message, e.Code)
}

// severityIcon returns the icon for a severity level
func severityIcon(severity Severity) string {
	switch severity {
	case SeverityError:
		return "❌"
	case SeverityWarning:
		return "⚠️ "
	default:
		return "❓"
	}
}

// categoryDisplayName returns a human-readable category name
func categoryDisplayName(category Category) string {
	switch category {
	case CategoryContainer:
		return "Metadata Container Error"
	case CategorySignature:
		return "Signature Error"
	case CategoryFilter:
		return "Filter Error"
	case CategoryResolution:
		return "Resolution Error"
	case CategoryEmission:
		return "Emission Error"
	default:
		return "Generator Error"
	}
}
