package files

import (
	"fmt"
	"sort"
	"strings"
)

// analysisToText renders structured vision output as readable text for
// ingestion. Arabic names and reference numbers pass through verbatim;
// the extractor downstream depends on that.
func analysisToText(analysis map[string]any, fileType, filename string) string {
	parts := []string{fmt.Sprintf("File: %s (type: %s)", filename, fileType)}

	switch fileType {
	case "invoice":
		vendor := stringOr(analysis, "vendor", "Unknown")
		total := stringify(analysis["total_amount"], "N/A")
		currency := stringOr(analysis, "currency", "SAR")
		date := stringOr(analysis, "date", "N/A")
		parts = append(parts, fmt.Sprintf("Invoice from %s, date: %s, total: %s %s", vendor, date, total, currency))
		if items, ok := analysis["items"].([]any); ok && len(items) > 0 {
			parts = append(parts, "Items:")
			for _, raw := range items {
				item, _ := raw.(map[string]any)
				parts = append(parts, fmt.Sprintf("  - %s: %s %s",
					stringOr(item, "name", "?"), stringify(item["price"], "?"), currency))
			}
		}

	case "business_card":
		parts = append(parts, fmt.Sprintf("Business card: %s, %s at %s",
			stringOr(analysis, "name", "Unknown"),
			firstString(analysis, "title"),
			firstString(analysis, "company")))
		if phone := firstString(analysis, "phone"); phone != "" {
			parts = append(parts, "Phone: "+phone)
		}
		if email := firstString(analysis, "email"); email != "" {
			parts = append(parts, "Email: "+email)
		}

	case "personal_photo":
		parts = append(parts, "Photo description: "+firstString(analysis, "description"))
		if tags := stringList(analysis["tags"]); len(tags) > 0 {
			parts = append(parts, "Tags: "+strings.Join(tags, ", "))
		}

	case "inventory_item":
		parts = append(parts, "Inventory item: "+firstString(analysis, "item_name"))
		for _, f := range []struct{ key, label string }{
			{"brand", "Brand"}, {"category", "Category"}, {"condition", "Condition"},
		} {
			if v := firstString(analysis, f.key); v != "" {
				parts = append(parts, f.label+": "+v)
			}
		}
		if qty := toFloat(analysis["quantity_visible"]); qty > 1 {
			parts = append(parts, fmt.Sprintf("Quantity: %d", int(qty)))
		}
		if desc := firstString(analysis, "description"); desc != "" {
			parts = append(parts, "Description: "+desc)
		}
		if specs := stringList(analysis["specifications"]); len(specs) > 0 {
			parts = append(parts, "Specs: "+strings.Join(specs, ", "))
		}

	case "official_document":
		parts = append(parts, fmt.Sprintf("Document type: %s, title: %s",
			firstString(analysis, "document_type"), firstString(analysis, "title")))
		if summary := firstString(analysis, "summary"); summary != "" {
			parts = append(parts, "Summary: "+summary)
		}
		if content := firstString(analysis, "text_content"); content != "" {
			parts = append(parts, "Content: "+content)
		}
		if dates, ok := analysis["dates"].(map[string]any); ok {
			if line := joinKV(dates); line != "" {
				parts = append(parts, "Dates: "+line)
			}
		}
		if refs, ok := analysis["reference_numbers"].(map[string]any); ok {
			if line := joinKV(refs); line != "" {
				parts = append(parts, "Reference numbers: "+line)
			}
		}
		if parties := stringList(analysis["parties"]); len(parties) > 0 {
			parts = append(parts, "Parties: "+strings.Join(parties, ", "))
		}
		if members, ok := analysis["members"].([]any); ok {
			for _, raw := range members {
				m, _ := raw.(map[string]any)
				var mp []string
				if name := firstString(m, "name"); name != "" {
					// Vision extracts names in Arabic.
					mp = append(mp, "name_ar: "+name)
				}
				if role := firstString(m, "role"); role != "" {
					mp = append(mp, "role: "+role)
				}
				if dob := firstString(m, "date_of_birth"); dob != "" {
					mp = append(mp, "born: "+dob)
				}
				if id := firstString(m, "id_number"); id != "" {
					mp = append(mp, "ID: "+id)
				}
				if len(mp) > 0 {
					parts = append(parts, "Member: "+strings.Join(mp, ", "))
				}
			}
		}

	default:
		keys := make([]string, 0, len(analysis))
		for k := range analysis {
			if k == "error" || k == "raw" {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			switch v := analysis[k].(type) {
			case nil:
			case []any:
				if items := stringList(v); len(items) > 0 {
					parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(items, ", ")))
				}
			default:
				if s := stringify(v, ""); s != "" {
					parts = append(parts, fmt.Sprintf("%s: %s", k, s))
				}
			}
		}
	}

	return strings.Join(parts, "\n")
}

func stringOr(m map[string]any, key, fallback string) string {
	if v := firstString(m, key); v != "" {
		return v
	}
	return fallback
}

func stringify(v any, fallback string) string {
	switch n := v.(type) {
	case nil:
		return fallback
	case string:
		if n == "" {
			return fallback
		}
		return n
	case float64:
		if n == float64(int64(n)) {
			return fmt.Sprintf("%d", int64(n))
		}
		return fmt.Sprintf("%.2f", n)
	default:
		return fmt.Sprintf("%v", n)
	}
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := stringify(item, ""); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// joinKV renders non-empty map entries as "k: v" sorted by key.
func joinKV(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		if s := stringify(m[k], ""); s != "" && s != "null" {
			parts = append(parts, k+": "+s)
		}
	}
	return strings.Join(parts, ", ")
}
