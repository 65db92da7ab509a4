package extraction

import "strings"

// Flatten collapses a nested document into a single-level map. Nested object
// keys are joined with underscores and the composite key is lower-cased, so
// {"Vendor": {"Name": ...}} surfaces as "vendor_name". Arrays are leaves.
func Flatten(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	flattenInto(out, "", doc)
	return out
}

func flattenInto(out map[string]any, prefix string, doc map[string]any) {
	for key, value := range doc {
		composite := key
		if prefix != "" {
			composite = prefix + "_" + key
		}
		if nested, ok := value.(map[string]any); ok {
			flattenInto(out, composite, nested)
			continue
		}
		out[strings.ToLower(composite)] = value
	}
}
