package agent

import (
	"context"
	"regexp"
)

// routeRule maps message patterns to a route label. Order matters:
// the more specific pattern must come before the generic one (debt
// payment before debt summary, inventory report before inventory).
type routeRule struct {
	route   string
	pattern *regexp.Regexp
}

var routeRules = []routeRule{
	{"debt_payment", regexp.MustCompile(`(سددت|سدد|دفعت له|دفعت لها|رجعت له|paid back|pay.*debt)`)},
	{"debt_summary", regexp.MustCompile(`(ديون|الديون|دين|يطلبني|أطلبه|اطلبه|عليّ فلوس|debts?\b)`)},
	{"financial_report", regexp.MustCompile(`(تقرير مصاريف|كم صرفت|مصاريف الشهر|مصاريفي|spending report|expense report|how much.*spent)`)},
	{"financial", regexp.MustCompile(`(صرفت|دفعت|اشتريت ب|مصروف|فاتورة|expense|ريال)`)},
	{"inventory_duplicates", regexp.MustCompile(`(مكرر|متكرر|تكرار|duplicates?)`)},
	{"inventory_report", regexp.MustCompile(`(تقرير (الأغراض|المخزون)|جرد|inventory report)`)},
	{"inventory_move", regexp.MustCompile(`(نقلت|حطيت .* في|خزنت .* في|moved? .* to)`)},
	{"inventory_usage", regexp.MustCompile(`(استخدمت|استهلكت|خلصت من|used up)`)},
	{"inventory_unused", regexp.MustCompile(`(ما استخدمت|مهجور|unused items)`)},
	{"inventory", regexp.MustCompile(`(أغراضي|اغراضي|وين (حطيت|خزنت)|مخزون|عندي كم|inventory)`)},
	{"reminder", regexp.MustCompile(`(ذكرني|تذكير|تذكيرات|موعد|لا تنسني|remind)`)},
	{"daily_plan", regexp.MustCompile(`(خطة اليوم|جدولي|وش عندي اليوم|برنامجي|daily plan|my day)`)},
	{"tasks", regexp.MustCompile(`(مهمة|مهام|تاسك|تاسكات|tasks?\b|todo)`)},
	{"projects", regexp.MustCompile(`(مشروع|مشاريع|projects?\b)`)},
	{"productivity", regexp.MustCompile(`(إنتاجية|انتاجية|تركيز|سبرنت|بومودورو|sprint|focus session|productivity)`)},
	{"person", regexp.MustCompile(`(مين هو|مين هي|معلومات عن|وش تعرف عن|who is)`)},
	{"store", regexp.MustCompile(`(احفظ|خزن|سجل ملاحظة|note this|remember this)`)},
	{"greeting", regexp.MustCompile(`^\s*(هلا|مرحبا|السلام عليكم|صباح الخير|مساء الخير|هاي|hi|hello|hey)\b`)},
}

var routeLabels = []string{
	"reminder", "financial", "debt_summary", "daily_plan", "tasks",
	"projects", "inventory", "productivity", "person", "store",
	"search", "greeting", "chat",
}

// DetectRoute labels the message for response metadata. Regex rules
// first, LLM classification as fallback for anything ambiguous.
func (s *Service) DetectRoute(ctx context.Context, message string) string {
	for _, rule := range routeRules {
		if rule.pattern.MatchString(message) {
			return rule.route
		}
	}

	label, err := s.llm.Classify(ctx, message, routeLabels)
	if err != nil || label == "" {
		return "chat"
	}
	return label
}
