package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/khalid729/Personal-Life-RAG/pkg/llms"
)

// pendingAction is a destructive tool call waiting for the user's
// yes/no before it runs. Stored in Redis with a short TTL.
type pendingAction struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

var (
	affirmativeRe = regexp.MustCompile(`(?i)^\s*(نعم|ايه|إيه|اي|أي|يس|أكد|اكد|تمام|طيب|موافق|امسح|احذف|ok|okay|yes|sure|y)\b`)
	negativeRe    = regexp.MustCompile(`(?i)^\s*(لا|لأ|خلاص|الغ|إلغاء|الغاء|تراجع|no|nope|cancel|n)\b`)
)

// resolvePending checks whether the incoming message answers a stored
// confirmation question. Returns handled=true when the message was
// consumed by the confirmation flow.
func (s *Service) resolvePending(ctx context.Context, message, session string) (*ChatResult, bool) {
	var action pendingAction
	found, err := s.memory.GetPending(ctx, session, &action)
	if err != nil || !found {
		return nil, false
	}

	_ = s.memory.ClearPending(ctx, session)

	if negativeRe.MatchString(message) {
		return &ChatResult{Reply: "تم الإلغاء.", Route: "confirmation"}, true
	}
	if !affirmativeRe.MatchString(message) {
		// Not an answer, fall through to normal chat.
		return nil, false
	}

	outcome := s.executeTool(ctx, action.Tool, action.Args, session)
	outcomes := []ToolOutcome{outcome}
	if !outcome.Success {
		reply := "عذراً، ما قدرت أنفذ العملية."
		if outcome.Error != "" {
			reply = fmt.Sprintf("عذراً، صار خطأ: %s", outcome.Error)
		}
		return &ChatResult{Reply: reply, ToolCalls: outcomes, Route: "confirmation"}, true
	}
	return &ChatResult{
		Reply:     fallbackReply(outcomes),
		ToolCalls: outcomes,
		Route:     "confirmation",
	}, true
}

// destructive reports whether a call deletes user data and should be
// confirmed before running.
func destructive(call llms.ToolCall) bool {
	switch call.Name {
	case "delete_reminder":
		return true
	case "manage_tasks", "manage_projects", "manage_lists":
		action, _ := call.Args["action"].(string)
		return action == "delete"
	}
	return false
}

// interceptDestructive scans the batch for destructive calls. The first
// one found is stored as a pending action and a confirmation question
// comes back instead of execution.
func (s *Service) interceptDestructive(ctx context.Context, calls []llms.ToolCall, session string) (string, bool) {
	for _, call := range calls {
		if !destructive(call) {
			continue
		}
		if err := s.memory.SetPending(ctx, session, pendingAction{Tool: call.Name, Args: call.Args}); err != nil {
			// If we cannot store the pending action, refuse rather
			// than delete without confirmation.
			return "عذراً، ما قدرت أحفظ طلب الحذف. حاول مرة ثانية.", true
		}
		return confirmQuestion(call), true
	}
	return "", false
}

func confirmQuestion(call llms.ToolCall) string {
	target := firstNonEmpty(
		str(call.Args["query"]),
		str(call.Args["title"]),
		str(call.Args["name"]),
	)
	target = strings.TrimSpace(target)

	var what string
	switch call.Name {
	case "delete_reminder":
		what = "التذكير"
	case "manage_tasks":
		what = "المهمة"
	case "manage_projects":
		what = "المشروع"
	case "manage_lists":
		what = "القائمة"
	default:
		what = "العنصر"
	}
	if target == "" {
		return fmt.Sprintf("متأكد تبي تحذف %s؟ (نعم / لا)", what)
	}
	return fmt.Sprintf("متأكد تبي تحذف %s '%s'؟ (نعم / لا)", what, target)
}
