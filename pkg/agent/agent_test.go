package agent

import (
	"strings"
	"testing"

	"github.com/khalid729/Personal-Life-RAG/pkg/llms"
)

func matchRoute(message string) string {
	for _, rule := range routeRules {
		if rule.pattern.MatchString(message) {
			return rule.route
		}
	}
	return ""
}

func TestRouteRulesSpecificityOrder(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"سددت لأحمد 200 ريال", "debt_payment"},
		{"كم عليّ ديون؟", "debt_summary"},
		{"كم صرفت هالشهر؟", "financial_report"},
		{"صرفت 50 على قهوة", "financial"},
		{"فيه أغراض مكررة عندي؟", "inventory_duplicates"},
		{"أبي تقرير الأغراض", "inventory_report"},
		{"نقلت الشاحن حطيته في الدرج", "inventory_move"},
		{"ذكرني بموعد الدكتور بكرة", "reminder"},
		{"وش عندي اليوم؟", "daily_plan"},
		{"هلا والله", "greeting"},
	}
	for _, tt := range tests {
		if got := matchRoute(tt.message); got != tt.want {
			t.Errorf("matchRoute(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}

func TestJunkReply(t *testing.T) {
	for _, junk := range []string{"", "  ", "{}", "[]", "{{}}"} {
		if !junkReply(junk) {
			t.Errorf("junkReply(%q) = false", junk)
		}
	}
	if junkReply("تم إنشاء التذكير") {
		t.Error("real reply flagged as junk")
	}
}

func TestFallbackReply(t *testing.T) {
	outcomes := []ToolOutcome{
		{Tool: "create_reminder", Success: true, Data: map[string]any{"title": "موعد الدكتور"}},
		{Tool: "get_debt_summary", Success: true, Data: map[string]any{
			"total_i_owe": float64(500), "total_owed_to_me": float64(200),
		}},
		{Tool: "manage_tasks", Success: false, Error: "not found"},
	}

	reply := fallbackReply(outcomes)
	for _, want := range []string{
		"تم إنشاء تذكير: موعد الدكتور",
		"عليك: 500 ريال | لك: 200 ريال",
		"فشل manage_tasks: not found",
	} {
		if !strings.Contains(reply, want) {
			t.Errorf("missing %q in:\n%s", want, reply)
		}
	}
}

func TestFallbackReplyEmpty(t *testing.T) {
	if got := fallbackReply(nil); got != "تم تنفيذ الطلب." {
		t.Errorf("fallbackReply(nil) = %q", got)
	}
}

func TestStorableRe(t *testing.T) {
	storable := []string{
		"أحمد يشتغل في أرامكو",
		"سارة تدرس في جامعة الملك سعود",
		"Khalid works at STC",
		"أخوي عمره 25 سنة",
	}
	for _, msg := range storable {
		if !storableRe.MatchString(msg) {
			t.Errorf("storable message not matched: %q", msg)
		}
	}

	chatter := []string{"هلا وش أخبارك", "ايش الجو اليوم"}
	for _, msg := range chatter {
		if storableRe.MatchString(msg) {
			t.Errorf("chatter matched as storable: %q", msg)
		}
	}
}

func TestShouldAutoExtractSkipsWriteTools(t *testing.T) {
	s := &Service{}
	msg := "أحمد يشتغل في أرامكو"

	if !s.shouldAutoExtract(msg, nil) {
		t.Error("storable message with no tools should extract")
	}
	outcomes := []ToolOutcome{{Tool: "store_note", Success: true}}
	if s.shouldAutoExtract(msg, outcomes) {
		t.Error("write tool ran, extraction should be skipped")
	}
	outcomes = []ToolOutcome{{Tool: "search_knowledge", Success: true}}
	if !s.shouldAutoExtract(msg, outcomes) {
		t.Error("read-only tool should not block extraction")
	}
}

func TestStripAssistantNoise(t *testing.T) {
	in := "STATUS: ACTION_EXECUTED\nتم إنشاء التذكير.\n<source id=\"1\">internal</source>\n[TOOLS AVAILABLE: all]"
	got := stripAssistantNoise(in)
	if got != "تم إنشاء التذكير." {
		t.Errorf("stripAssistantNoise = %q", got)
	}
}

func TestConfirmationRegexes(t *testing.T) {
	for _, yes := range []string{"نعم", "ايه امسحه", "تمام", "yes please", "ok"} {
		if !affirmativeRe.MatchString(yes) {
			t.Errorf("affirmative not matched: %q", yes)
		}
	}
	for _, no := range []string{"لا", "لا خله", "cancel", "إلغاء"} {
		if !negativeRe.MatchString(no) {
			t.Errorf("negative not matched: %q", no)
		}
	}
	if affirmativeRe.MatchString("وش رايك نأجلها") {
		t.Error("neutral follow-up matched as affirmative")
	}
}

func TestDestructive(t *testing.T) {
	tests := []struct {
		call llms.ToolCall
		want bool
	}{
		{llms.ToolCall{Name: "delete_reminder", Args: map[string]any{"query": "x"}}, true},
		{llms.ToolCall{Name: "manage_tasks", Args: map[string]any{"action": "delete"}}, true},
		{llms.ToolCall{Name: "manage_tasks", Args: map[string]any{"action": "update"}}, false},
		{llms.ToolCall{Name: "manage_projects", Args: map[string]any{"action": "delete"}}, true},
		{llms.ToolCall{Name: "create_reminder", Args: map[string]any{"title": "x"}}, false},
	}
	for _, tt := range tests {
		if got := destructive(tt.call); got != tt.want {
			t.Errorf("destructive(%s/%v) = %v, want %v", tt.call.Name, tt.call.Args["action"], got, tt.want)
		}
	}
}

func TestConfirmQuestion(t *testing.T) {
	q := confirmQuestion(llms.ToolCall{Name: "delete_reminder", Args: map[string]any{"query": "موعد الدكتور"}})
	if !strings.Contains(q, "التذكير") || !strings.Contains(q, "موعد الدكتور") {
		t.Errorf("confirmQuestion = %q", q)
	}

	q = confirmQuestion(llms.ToolCall{Name: "manage_projects", Args: map[string]any{"action": "delete"}})
	if !strings.Contains(q, "المشروع") {
		t.Errorf("confirmQuestion = %q", q)
	}
}

func TestParenRe(t *testing.T) {
	got := strings.TrimSpace(parenRe.ReplaceAllString("موعد الدكتور (متأخرة)", " "))
	if got != "موعد الدكتور" {
		t.Errorf("parenRe strip = %q", got)
	}
}

func TestToolCatalogComplete(t *testing.T) {
	if len(toolCatalog) != 19 {
		t.Fatalf("tool catalog has %d tools, want 19", len(toolCatalog))
	}
	s := &Service{}
	handlers := s.handlers()
	for _, def := range toolCatalog {
		if _, ok := handlers[def.Name]; !ok {
			t.Errorf("tool %s has no handler", def.Name)
		}
	}
	for name := range handlers {
		if _, ok := catalogOrder[name]; !ok {
			t.Errorf("handler %s not in catalog", name)
		}
	}
}

func TestStrList(t *testing.T) {
	got := strList([]any{"a", "", "b", 3})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("strList = %v", got)
	}
	if strList("not a list") != nil {
		t.Error("non-list should return nil")
	}
}

func TestSystemPromptHasTimeHeader(t *testing.T) {
	s := &Service{cfg: Config{TimezoneOffsetHours: 3}}
	prompt := s.systemPrompt("", "")
	if !strings.Contains(prompt, "الوقت:") || !strings.Contains(prompt, "بكرة:") {
		t.Error("time header missing from system prompt")
	}
	if strings.Contains(prompt, "المشروع النشط") {
		t.Error("active project line present without active project")
	}

	prompt = s.systemPrompt("", "تطبيق المطعم")
	if !strings.Contains(prompt, "المشروع النشط حالياً: تطبيق المطعم") {
		t.Error("active project line missing")
	}
}
