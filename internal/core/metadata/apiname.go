package metadata

import "strings"

// APIName joins name parts into a Salesforce-safe developer name.
//
// Runs of characters outside [A-Za-z0-9] collapse into a single underscore,
// leading and trailing separators are dropped, and a leading digit is
// prefixed with "X" since API names must start with a letter.
//
//	APIName("Financial Services", "CPQ (Configure, Price, Quote)")
//	// "Financial_Services_CPQ_Configure_Price_Quote"
func APIName(parts ...string) string {
	var b strings.Builder
	pending := false
	for _, part := range parts {
		for _, r := range part {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
				if pending && b.Len() > 0 {
					b.WriteByte('_')
				}
				pending = false
				b.WriteRune(r)
			} else {
				pending = true
			}
		}
		pending = true
	}
	name := b.String()
	if name != "" && name[0] >= '0' && name[0] <= '9' {
		name = "X" + name
	}
	return name
}

// ObjectName is the custom object API name for a module in an industry.
func ObjectName(industry, module string) string {
	return APIName(industry, module) + "__c"
}
