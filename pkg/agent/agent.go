// Package agent is the tool-calling chat orchestrator: it composes the
// system prompt, runs the LLM tool loop, dispatches tool calls in
// parallel and schedules post-processing after the reply is delivered.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/khalid729/Personal-Life-RAG/pkg/graph"
	"github.com/khalid729/Personal-Life-RAG/pkg/ingest"
	"github.com/khalid729/Personal-Life-RAG/pkg/llms"
	"github.com/khalid729/Personal-Life-RAG/pkg/memory"
	"github.com/khalid729/Personal-Life-RAG/pkg/ner"
	"github.com/khalid729/Personal-Life-RAG/pkg/vector"
)

type Config struct {
	MaxIterations        int
	TimezoneOffsetHours  int
	WorkingMemorySize    int
	DailySummaryInterval int
	CoreMemoryInterval   int
}

// Service orchestrates tool-calling chat.
type Service struct {
	llm      *llms.Client
	graph    *graph.Service
	vectors  *vector.Store
	embedder *llms.Embedder
	pipeline *ingest.Pipeline
	memory   *memory.Service
	ner      *ner.Client
	cfg      Config
}

func NewService(llm *llms.Client, g *graph.Service, vectors *vector.Store, embedder *llms.Embedder, pipeline *ingest.Pipeline, mem *memory.Service, nerClient *ner.Client, cfg Config) *Service {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 3
	}
	if cfg.WorkingMemorySize <= 0 {
		cfg.WorkingMemorySize = 4
	}
	if cfg.DailySummaryInterval <= 0 {
		cfg.DailySummaryInterval = 10
	}
	if cfg.CoreMemoryInterval <= 0 {
		cfg.CoreMemoryInterval = 20
	}
	return &Service{
		llm:      llm,
		graph:    g,
		vectors:  vectors,
		embedder: embedder,
		pipeline: pipeline,
		memory:   mem,
		ner:      nerClient,
		cfg:      cfg,
	}
}

// ToolOutcome is one executed tool call, as the LLM and the client see it.
type ToolOutcome struct {
	Tool       string         `json:"tool"`
	Success    bool           `json:"success"`
	Data       map[string]any `json:"data,omitempty"`
	Error      string         `json:"error,omitempty"`
	ExecutedAt string         `json:"executed_at"`
}

// ChatResult is the non-streaming chat response.
type ChatResult struct {
	Reply     string        `json:"reply"`
	ToolCalls []ToolOutcome `json:"tool_calls"`
	Route     string        `json:"route"`
}

func (s *Service) localNow() time.Time {
	return time.Now().UTC().Add(time.Duration(s.cfg.TimezoneOffsetHours) * time.Hour)
}

func (s *Service) nowStamp() string {
	return s.localNow().Format("2006-01-02 15:04:05")
}

// Chat runs one non-streaming tool-calling turn.
func (s *Service) Chat(ctx context.Context, message, session string) (*ChatResult, error) {
	if session == "" {
		session = "default"
	}

	// A stored pending action consumes this message if it is a
	// confirmation answer.
	if result, handled := s.resolvePending(ctx, message, session); handled {
		return result, nil
	}

	route := s.DetectRoute(ctx, message)

	messages, err := s.buildMessages(ctx, message, session)
	if err != nil {
		return nil, err
	}

	var (
		outcomes []ToolOutcome
		reply    string
	)

	for i := 0; i < s.cfg.MaxIterations; i++ {
		tools := toolCatalog
		if i == s.cfg.MaxIterations-1 {
			// Last iteration must produce text.
			tools = nil
		}

		content, calls, err := s.llm.Generate(ctx, messages, tools)
		if err != nil {
			slog.Error("llm call failed", "iteration", i, "error", err)
			if len(outcomes) > 0 {
				return &ChatResult{Reply: fallbackReply(outcomes), ToolCalls: outcomes, Route: route}, nil
			}
			return &ChatResult{Reply: "عذراً، حصل خطأ في المعالجة. حاول مرة ثانية.", Route: route}, nil
		}

		if len(calls) == 0 {
			reply = content
			break
		}

		if question, pending := s.interceptDestructive(ctx, calls, session); pending {
			return &ChatResult{Reply: question, ToolCalls: outcomes, Route: route}, nil
		}

		results := s.executeAll(ctx, calls, session)
		outcomes = append(outcomes, results...)

		messages = append(messages, llms.AssistantToolCalls(calls))
		for j, call := range calls {
			payload, _ := json.Marshal(results[j])
			messages = append(messages, llms.ToolResult(call.ID, string(payload)))
		}
	}

	if junkReply(reply) && len(outcomes) > 0 {
		reply = fallbackReply(outcomes)
	}

	if reply != "" {
		go s.postProcess(message, reply, session, outcomes)
	}

	return &ChatResult{Reply: reply, ToolCalls: outcomes, Route: route}, nil
}

// executeAll dispatches one iteration's tool calls concurrently and
// returns results in the order of the calls. Stable catalog order is
// applied first so the follow-up prompt is deterministic.
func (s *Service) executeAll(ctx context.Context, calls []llms.ToolCall, session string) []ToolOutcome {
	sort.SliceStable(calls, func(i, j int) bool {
		return catalogOrder[calls[i].Name] < catalogOrder[calls[j].Name]
	})

	results := make([]ToolOutcome, len(calls))
	done := make(chan struct{}, len(calls))
	for i, call := range calls {
		go func(i int, call llms.ToolCall) {
			results[i] = s.executeTool(ctx, call.Name, call.Args, session)
			done <- struct{}{}
		}(i, call)
	}
	for range calls {
		<-done
	}
	return results
}

// executeTool runs one tool and wraps the result.
func (s *Service) executeTool(ctx context.Context, name string, args map[string]any, session string) ToolOutcome {
	handler, ok := s.handlers()[name]
	if !ok {
		return ToolOutcome{Tool: name, Success: false, Error: "unknown tool: " + name, ExecutedAt: s.nowStamp()}
	}
	if args == nil {
		args = map[string]any{}
	}
	if sessionAwareTools[name] {
		args["_session_id"] = session
	}

	data, err := handler(ctx, args)
	if err != nil {
		slog.Error("tool failed", "tool", name, "error", err)
		return ToolOutcome{Tool: name, Success: false, Error: err.Error(), ExecutedAt: s.nowStamp()}
	}
	_, hadError := data["error"]
	return ToolOutcome{Tool: name, Success: !hadError, Data: data, ExecutedAt: s.nowStamp()}
}

// buildMessages composes [system, history..., user].
func (s *Service) buildMessages(ctx context.Context, message, session string) ([]llms.Message, error) {
	memoryContext := s.memoryContext(ctx, session)
	activeProject, _ := s.memory.GetActiveProject(ctx, session)
	system := s.systemPrompt(memoryContext, activeProject)

	history, err := s.memory.GetWorking(ctx, session, s.cfg.WorkingMemorySize*2)
	if err != nil {
		slog.Warn("failed to load working memory", "session", session, "error", err)
	}

	messages := make([]llms.Message, 0, len(history)+2)
	messages = append(messages, llms.System(system))
	for _, turn := range history {
		switch turn.Role {
		case "user":
			messages = append(messages, llms.User(turn.Content))
		case "assistant":
			messages = append(messages, llms.Assistant(turn.Content))
		}
	}
	messages = append(messages, llms.User(message))
	return messages, nil
}

// memoryContext renders core memory, today's summary and the compressed
// conversation summary for the system prompt.
func (s *Service) memoryContext(ctx context.Context, session string) string {
	var parts []string

	core, err := s.memory.GetCore(ctx)
	if err == nil && len(core) > 0 {
		parts = append(parts, "=== Core Memory (Preferences) ===")
		keys := make([]string, 0, len(core))
		for k := range core {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("- %s: %s", k, core[k]))
		}
	}

	today := s.localNow().Format("2006-01-02")
	if daily, err := s.memory.GetDaily(ctx, today); err == nil && daily != "" {
		parts = append(parts, "\n=== Today's Summary ===", daily)
	}

	if summary, err := s.memory.GetConversationSummary(ctx, session); err == nil && summary != "" {
		parts = append(parts, "\n=== Earlier Conversation ===", summary)
	}

	return strings.Join(parts, "\n")
}

var weekdaysAr = [7]string{
	"الأحد", "الاثنين", "الثلاثاء", "الأربعاء", "الخميس", "الجمعة", "السبت",
}

func (s *Service) systemPrompt(memoryContext, activeProject string) string {
	now := s.localNow()
	tomorrow := now.Add(24 * time.Hour)

	prompt := fmt.Sprintf(`أنت مساعد شخصي ذكي. رد بالعربي السعودي العامي.

الوقت: %s | اليوم: %s %s | بكرة: %s %s

ذاكرتك:
%s
`,
		now.Format("15:04"),
		weekdaysAr[now.Weekday()], now.Format("2006-01-02"),
		weekdaysAr[tomorrow.Weekday()], tomorrow.Format("2006-01-02"),
		memoryContext)

	if activeProject != "" {
		prompt += fmt.Sprintf("\nالمشروع النشط حالياً: %s — اربط المهام والأسئلة فيه ما لم يحدد المستخدم غيره.\n", activeProject)
	}

	prompt += `
تعليمات:
- عندك أدوات (tools) تقدر تستخدمها. لو المستخدم يبي إجراء (تذكير، مصروف، حذف، دين)، استخدم الأداة المناسبة.
- لو المستخدم يسأل سؤال عام أو يبي معلومات، استخدم search_knowledge.
- لو المستخدم يقول "خلصت" أو "أنجزت" تذكير، استخدم update_reminder مع action=done.
- لو المستخدم يبي يأجل تذكير، استخدم update_reminder مع action=snooze.
- لو المستخدم يسأل عن مصاريفه أو كم صرف، استخدم get_expense_report.
- لو المستخدم يسأل عن الديون، استخدم get_debt_summary.
- لو المستخدم يبي يسجل دين، استخدم record_debt. "عليّ لفلان" = i_owe، "فلان يطلبني" = i_owe، "لي عند فلان" = owed_to_me.
- لو المستخدم يبي يسدد دين، استخدم pay_debt.
- لو المستخدم يبي يحفظ معلومة أو ملاحظة صراحةً، استخدم store_note.
- لو المستخدم يسأل عن شخص بالاسم، استخدم get_person_info.
- لو المستخدم يتكلم عن أغراض أو مخزون، استخدم manage_inventory (search/add/move/use/report).
- لو المستخدم يتكلم عن مهام أو tasks، استخدم manage_tasks (list/create/update/delete).
- لو المستخدم يتكلم عن مشاريع، استخدم manage_projects (list/create/update/delete).
- لو المستخدم يسأل عن إنتاجيته أو تركيزه أو سبرنتات، استخدم get_productivity_stats.
- لو المستخدم يسلّم أو يسولف، رد بدون أدوات.
- مهم جداً: لو المستخدم طلب عدة إجراءات، نفذها كلها دفعة وحدة بنداءات أدوات متعددة في نفس الرد. لا تنفذ جزء وتسأل عن الباقي.
- بعد ما الأداة ترجع النتيجة، رد على المستخدم بناءً على النتيجة الفعلية.
- لو الأداة رجعت قائمة (تذكيرات، مصاريف، خطة اليوم)، اعرض كل العناصر بالتفصيل — لا تلخص ولا تحذف عناصر.
- لو الأداة رجعت خطأ (error/success=false)، قول للمستخدم إن العملية ما نجحت.
- ممنوع تقول "تم" إلا إذا الأداة رجعت نجاح فعلي.
- ردك لازم يكون نص عربي طبيعي — ممنوع JSON أو كود.
- لا تضيف أسئلة متابعة في نهاية ردك.
- لو المستخدم يبي إجراء، كن مختصر بالتأكيد. لو يسأل عن قوائم، اعرضها كاملة.`

	return prompt
}

// junkReply detects empty or degenerate model output after tool calls.
func junkReply(reply string) bool {
	switch strings.TrimSpace(reply) {
	case "", "{}", "[]", "{{}}":
		return true
	}
	return false
}

// fallbackReply builds a deterministic Arabic reply from raw tool
// results when the model times out or returns junk.
func fallbackReply(outcomes []ToolOutcome) string {
	var parts []string
	for _, r := range outcomes {
		if !r.Success {
			msg := r.Error
			if msg == "" {
				msg, _ = r.Data["error"].(string)
			}
			parts = append(parts, fmt.Sprintf("فشل %s: %s", r.Tool, msg))
			continue
		}
		d := r.Data
		switch r.Tool {
		case "create_reminder":
			parts = append(parts, "تم إنشاء تذكير: "+str(d["title"]))
		case "delete_reminder":
			parts = append(parts, "تم حذف تذكير: "+str(d["title"]))
		case "update_reminder":
			parts = append(parts, "تم تحديث تذكير: "+str(d["title"]))
		case "add_expense":
			parts = append(parts, fmt.Sprintf("تم تسجيل مصروف: %s (%v ريال)", str(d["description"]), d["amount"]))
		case "search_reminders":
			parts = append(parts, str(d["reminders"]))
		case "get_daily_plan":
			parts = append(parts, str(d["plan"]))
		case "search_knowledge":
			parts = append(parts, str(d["results"]))
		case "get_expense_report":
			parts = append(parts, fmt.Sprintf("إجمالي المصاريف: %.0f ريال", num(d["total"])))
		case "get_debt_summary":
			parts = append(parts, fmt.Sprintf("عليك: %.0f ريال | لك: %.0f ريال", num(d["total_i_owe"]), num(d["total_owed_to_me"])))
		case "record_debt":
			parts = append(parts, fmt.Sprintf("تم تسجيل دين: %s (%v ريال)", str(d["person"]), d["amount"]))
		case "pay_debt":
			parts = append(parts, "تم تسجيل سداد: "+str(d["person"]))
		case "store_note":
			parts = append(parts, fmt.Sprintf("تم حفظ الملاحظة (%v عنصر)", d["entities_saved"]))
		case "get_person_info":
			parts = append(parts, str(d["info"]))
		case "manage_inventory":
			parts = append(parts, firstNonEmpty(str(d["results"]), compact(d)))
		case "manage_tasks":
			parts = append(parts, firstNonEmpty(str(d["tasks"]), compact(d)))
		case "manage_projects":
			switch str(d["status"]) {
			case "focused":
				parts = append(parts, "تم التركيز على مشروع: "+str(d["name"]))
			case "unfocused":
				parts = append(parts, "تم إلغاء التركيز على المشروع")
			default:
				parts = append(parts, firstNonEmpty(str(d["projects"]), compact(d)))
			}
		case "manage_lists":
			parts = append(parts, firstNonEmpty(str(d["list"]), str(d["lists"]), compact(d)))
		case "merge_projects":
			parts = append(parts, fmt.Sprintf("تم دمج %v مشاريع ونقل %v مهام إلى %s",
				d["sources_deleted"], d["tasks_moved"], str(d["target"])))
		case "get_productivity_stats":
			parts = append(parts, compact(d))
		default:
			parts = append(parts, "تم تنفيذ "+r.Tool)
		}
	}
	if len(parts) == 0 {
		return "تم تنفيذ الطلب."
	}
	return strings.Join(parts, "\n")
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func compact(d map[string]any) string {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Sprintf("%v", d)
	}
	return string(b)
}
