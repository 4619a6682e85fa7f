package graph

import (
	"regexp"
	"strings"
)

// Normalisation tables. Canonical forms are Arabic where users see
// them; extraction output arrives in either language.

var directionAliases = map[string]string{
	"owed_by_me":    "i_owe",
	"i_owe":         "i_owe",
	"i owe":         "i_owe",
	"i_owe_them":    "i_owe",
	"owed_to_other": "i_owe",
	"owed_to_me":    "owed_to_me",
	"they_owe":      "owed_to_me",
	"they owe me":   "owed_to_me",
	"they_owe_me":   "owed_to_me",
}

// NormalizeDirection clamps any LLM variant to i_owe or owed_to_me.
// Unknown values default to i_owe so the canonical-value invariant
// holds unconditionally.
func NormalizeDirection(direction string) string {
	d := strings.ToLower(strings.TrimSpace(direction))
	if canonical, ok := directionAliases[d]; ok {
		return canonical
	}
	if d == "owed_to_me" {
		return d
	}
	return "i_owe"
}

var locationAliases = map[string]string{
	"bedroom":     "غرفة النوم",
	"kitchen":     "المطبخ",
	"bathroom":    "الحمام",
	"living room": "الصالة",
	"garage":      "الكراج",
	"roof":        "السطح",
	"storage":     "المخزن",
	"office":      "المكتب",
}

var (
	separatorRe = regexp.MustCompile(`\s*>\s*`)
	spacesRe    = regexp.MustCompile(`\s+`)
)

// NormalizeLocation maps English room names to Arabic and normalises
// the "A > B > C" path separators.
func NormalizeLocation(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if ar, ok := locationAliases[strings.ToLower(path)]; ok {
		return ar
	}
	path = separatorRe.ReplaceAllString(path, " > ")
	path = spacesRe.ReplaceAllString(path, " ")
	return strings.TrimSpace(path)
}

var categoryAliases = map[string]string{
	"electronics":     "إلكترونيات",
	"electronic":      "إلكترونيات",
	"cables":          "إلكترونيات",
	"cable":           "إلكترونيات",
	"كيابل":           "إلكترونيات",
	"شواحن":           "إلكترونيات",
	"chargers":        "إلكترونيات",
	"batteries":       "إلكترونيات",
	"بطاريات":         "إلكترونيات",
	"tools":           "أدوات",
	"tool":            "أدوات",
	"عدة":             "أدوات",
	"عدد":             "أدوات",
	"parts":           "قطع غيار",
	"spare parts":     "قطع غيار",
	"household":       "منزلية",
	"home":            "منزلية",
	"منزلي":           "منزلية",
	"accessories":     "إكسسوارات",
	"accessory":       "إكسسوارات",
	"stationery":      "قرطاسية",
	"office supplies": "قرطاسية",
	"chemicals":       "كيماويات",
	"chemical":        "كيماويات",
}

// NormalizeCategory maps item categories to a consistent Arabic form.
func NormalizeCategory(category string) string {
	cat := strings.TrimSpace(category)
	if cat == "" {
		return ""
	}
	if canonical, ok := categoryAliases[strings.ToLower(cat)]; ok {
		return canonical
	}
	return cat
}

var energyAliases = map[string]string{
	"high": "high", "عالي": "high", "عالية": "high", "deep": "high", "deep focus": "high",
	"medium": "medium", "متوسط": "medium", "متوسطة": "medium", "normal": "medium",
	"low": "low", "منخفض": "low", "منخفضة": "low", "easy": "low", "light": "low",
}

// NormalizeEnergy maps task energy levels to high/medium/low.
func NormalizeEnergy(level string) string {
	l := strings.ToLower(strings.TrimSpace(level))
	if l == "" {
		return ""
	}
	if canonical, ok := energyAliases[l]; ok {
		return canonical
	}
	return l
}

var tagAliases = map[string]string{
	"programming": "برمجة", "coding": "برمجة", "code": "برمجة",
	"finance": "مالية", "money": "مالية",
	"health": "صحة", "medical": "صحة",
	"work": "عمل", "job": "عمل",
	"home": "منزل", "house": "منزل",
	"food": "طعام", "cooking": "طبخ",
	"travel": "سفر",
	"education": "تعليم", "learning": "تعليم",
	"shopping": "تسوق",
	"car": "سيارة", "auto": "سيارة",
	"tech": "تقنية", "technology": "تقنية",
}

// NormalizeTag canonicalises a tag to its Arabic form when aliased.
func NormalizeTag(tag string) string {
	t := strings.ToLower(strings.TrimSpace(tag))
	if t == "" {
		return ""
	}
	if canonical, ok := tagAliases[t]; ok {
		return canonical
	}
	return t
}

type categoryRule struct {
	keywords []string
	category string
}

var knowledgeCategoryRules = []categoryRule{
	{[]string{"python", "code", "api", "bug", "git", "docker", "server", "database", "sql", "linux"}, "تقنية"},
	{[]string{"recipe", "cook", "food", "طبخ", "أكل", "وصفة"}, "طبخ"},
	{[]string{"health", "medicine", "doctor", "صحة", "دواء", "علاج"}, "صحة"},
	{[]string{"car", "engine", "سيارة", "محرك", "صيانة", "oil change"}, "سيارة"},
	{[]string{"money", "invest", "stock", "bank", "فلوس", "استثمار", "بنك"}, "مالية"},
	{[]string{"islam", "quran", "hadith", "prayer", "قرآن", "حديث", "صلاة", "دعاء"}, "دين"},
	{[]string{"travel", "flight", "hotel", "visa", "سفر", "فندق", "تأشيرة"}, "سفر"},
	{[]string{"work", "meeting", "شغل", "وظيفة", "اجتماع"}, "عمل"},
	{[]string{"home", "plumbing", "electric", "بيت", "سباكة", "كهرباء"}, "منزل"},
}

// GuessKnowledgeCategory applies the keyword heuristic over title and
// content, defaulting to عام.
func GuessKnowledgeCategory(title, content string) string {
	combined := strings.ToLower(title + " " + content)
	for _, rule := range knowledgeCategoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(combined, kw) {
				return rule.category
			}
		}
	}
	return "عام"
}

var expenseCategoryRules = []categoryRule{
	{[]string{"restaurant", "مطعم", "food", "burger", "pizza", "coffee", "كافيه", "starbucks", "mcdonald"}, "food"},
	{[]string{"grocery", "بقالة", "tamimi", "panda", "danube", "carrefour", "supermarket"}, "groceries"},
	{[]string{"gas", "بنزين", "fuel", "petrol", "station"}, "transport"},
	{[]string{"uber", "careem", "taxi"}, "transport"},
	{[]string{"pharmacy", "صيدلية", "medicine", "medical", "hospital", "clinic", "doctor"}, "health"},
	{[]string{"amazon", "noon", "jarir", "extra", "electronics"}, "shopping"},
	{[]string{"stc", "mobily", "zain", "internet", "phone", "telecom"}, "telecom"},
	{[]string{"rent", "إيجار", "electricity", "water", "كهرباء", "ماء"}, "utilities"},
	{[]string{"school", "university", "course", "training", "book"}, "education"},
}

// GuessExpenseCategory applies the keyword heuristic over vendor and
// item names, defaulting to general.
func GuessExpenseCategory(vendor, items string) string {
	combined := strings.ToLower(vendor + " " + items)
	for _, rule := range expenseCategoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(combined, kw) {
				return rule.category
			}
		}
	}
	return "general"
}

// arabicVariants returns singular/plural spelling variants of an Arabic
// word, used by the reminder fuzzy matcher. Strips or adds the leading
// definite article and common feminine/plural suffixes.
func arabicVariants(word string) []string {
	variants := []string{word}

	bare := strings.TrimPrefix(word, "ال")
	if bare != word {
		variants = append(variants, bare)
	} else {
		variants = append(variants, "ال"+word)
	}

	for _, w := range []string{word, bare} {
		switch {
		case strings.HasSuffix(w, "ات"):
			variants = append(variants, strings.TrimSuffix(w, "ات")+"ة")
		case strings.HasSuffix(w, "ة"):
			variants = append(variants, strings.TrimSuffix(w, "ة")+"ات")
		}
	}

	return variants
}
