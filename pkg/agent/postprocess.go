package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/khalid729/Personal-Life-RAG/pkg/graph"
	"github.com/khalid729/Personal-Life-RAG/pkg/ingest"
	"github.com/khalid729/Personal-Life-RAG/pkg/llms"
	"github.com/khalid729/Personal-Life-RAG/pkg/memory"
	"github.com/khalid729/Personal-Life-RAG/pkg/ner"
)

// storableRe gates auto-extraction: only messages that look like they
// carry durable personal facts are worth a fact-extraction round trip.
var storableRe = regexp.MustCompile(`(يعمل|يشتغل|يدرس|عمره|ساكن|متزوج|عنده|تخرج|يحب|works at|lives in|married|born|age|graduated|likes|شركة|جامعة|مدرسة|company|university|school)`)

// autoExtractSafeTypes limits silent extraction to entity types that
// cannot corrupt tool-managed records (tasks, reminders, debts).
var autoExtractSafeTypes = []string{"Person", "Company", "Knowledge", "Location"}

var (
	sourceBlockRe = regexp.MustCompile(`(?s)<source[^>]*>.*?</source>`)
	statusLineRe  = regexp.MustCompile(`(?m)^\s*STATUS:\s*(ACTION_EXECUTED|PENDING_CONFIRMATION|CONVERSATION)\s*$`)
	uiPreambleRe  = regexp.MustCompile(`(?m)^\s*\[(?:TOOLS AVAILABLE|INTERNAL)[^\]]*\]\s*$`)
)

// stripAssistantNoise removes chat-UI scaffolding from a reply before
// it enters working memory, so summaries never quote internal markers.
func stripAssistantNoise(reply string) string {
	reply = sourceBlockRe.ReplaceAllString(reply, "")
	reply = statusLineRe.ReplaceAllString(reply, "")
	reply = uiPreambleRe.ReplaceAllString(reply, "")
	return strings.TrimSpace(reply)
}

// postProcess runs after the reply is sent: memory writes, the
// conversation vector record, silent fact extraction, and the periodic
// summary refreshes. Runs in its own goroutine with a fresh context.
func (s *Service) postProcess(message, reply, session string, outcomes []ToolOutcome) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cleaned := stripAssistantNoise(reply)
	if err := s.memory.AppendWorking(ctx, session, "user", message); err != nil {
		slog.Warn("append working memory failed", "error", err)
	}
	if cleaned != "" {
		if err := s.memory.AppendWorking(ctx, session, "assistant", cleaned); err != nil {
			slog.Warn("append working memory failed", "error", err)
		}
	}

	s.storeConversationVector(ctx, message, cleaned)

	if s.shouldAutoExtract(message, outcomes) {
		s.autoExtract(ctx, message)
	}

	count, err := s.memory.IncrMessageCount(ctx, session)
	if err == nil {
		if s.cfg.DailySummaryInterval > 0 && count%int64(s.cfg.DailySummaryInterval) == 0 {
			s.refreshDailySummary(ctx, session)
		}
		if s.cfg.CoreMemoryInterval > 0 && count%int64(s.cfg.CoreMemoryInterval) == 0 {
			s.refreshCoreMemory(ctx, session)
		}
	}

	s.compressIfNeeded(ctx, session)
}

func (s *Service) storeConversationVector(ctx context.Context, message, reply string) {
	text := fmt.Sprintf("User: %s\nAssistant: %s", message, reply)
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		slog.Warn("conversation embed failed", "error", err)
		return
	}
	payload := map[string]any{
		"text":        text,
		"source_type": "conversation",
		"topic":       "chat",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.vectors.Upsert(ctx, uuid.NewString(), vec, payload); err != nil {
		slog.Warn("conversation upsert failed", "error", err)
	}
}

// shouldAutoExtract skips extraction when the turn already ran a write
// tool (the tool stored the data) or the message carries no fact cues.
func (s *Service) shouldAutoExtract(message string, outcomes []ToolOutcome) bool {
	for _, o := range outcomes {
		if writeTools[o.Tool] {
			return false
		}
	}
	return storableRe.MatchString(message)
}

func (s *Service) autoExtract(ctx context.Context, message string) {
	hints := ""
	if s.ner != nil && s.ner.Enabled() && !ingest.IsMostlyEnglish(message) {
		hints = ner.FormatHints(s.ner.Extract(ctx, message))
	}

	textEN := message
	if !ingest.IsMostlyEnglish(message) {
		translated, err := s.llm.TranslateToEnglish(ctx, message)
		if err == nil && translated != "" {
			textEN = translated
		}
	}

	raw, err := s.llm.ExtractFactsRestricted(ctx, textEN, hints, autoExtractSafeTypes)
	if err != nil {
		slog.Warn("auto extraction failed", "error", err)
		return
	}
	facts, err := graph.ParseFacts(raw)
	if err != nil || len(facts.Entities) == 0 {
		return
	}

	result, err := s.graph.UpsertFromFacts(ctx, facts, "")
	if err != nil {
		slog.Warn("auto extraction upsert failed", "error", err)
		return
	}
	slog.Info("auto extracted facts", "entities", len(result.Entities))
}

func (s *Service) refreshDailySummary(ctx context.Context, session string) {
	turns, err := s.memory.GetWorking(ctx, session, s.cfg.DailySummaryInterval*2)
	if err != nil || len(turns) == 0 {
		return
	}

	summary, err := s.llm.Summarize(ctx,
		"لخص المحادثة التالية في نقاط قصيرة: الحقائق المذكورة، القرارات، والمهام. بدون مقدمات.",
		renderTurns(turns))
	if err != nil || summary == "" {
		return
	}

	today := s.localNow().Format("2006-01-02")
	if err := s.memory.SetDaily(ctx, today, summary); err != nil {
		slog.Warn("daily summary store failed", "error", err)
	}
}

func (s *Service) refreshCoreMemory(ctx context.Context, session string) {
	turns, err := s.memory.GetWorking(ctx, session, s.cfg.CoreMemoryInterval*2)
	if err != nil || len(turns) == 0 {
		return
	}

	existing, _ := s.memory.GetCore(ctx)
	var existingText strings.Builder
	for k, v := range existing {
		fmt.Fprintf(&existingText, "%s: %s\n", k, v)
	}

	prompt := fmt.Sprintf(`Current stored preferences:
%s
Conversation:
%s

Extract the user's stable preferences and habits as a flat JSON object
(string values only). Keep existing entries unless contradicted. Return
{} if nothing new.`, existingText.String(), renderTurns(turns))

	raw, err := s.llm.GenerateJSON(ctx, []llms.Message{llms.User(prompt)})
	if err != nil {
		return
	}

	var prefs map[string]string
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		return
	}
	for field, value := range prefs {
		if field == "" || value == "" {
			continue
		}
		if err := s.memory.SetCore(ctx, field, value); err != nil {
			slog.Warn("core memory store failed", "field", field, "error", err)
		}
	}
}

func (s *Service) compressIfNeeded(ctx context.Context, session string) {
	removed, err := s.memory.CompressWorking(ctx, session)
	if err != nil || len(removed) == 0 {
		return
	}

	previous, _ := s.memory.GetConversationSummary(ctx, session)
	text := renderTurns(removed)
	if previous != "" {
		text = "Previous summary:\n" + previous + "\n\nNew turns:\n" + text
	}

	summary, err := s.llm.Summarize(ctx,
		"لخص سجل المحادثة التالي مع الحفاظ على كل الحقائق والأسماء والتواريخ. ادمج الملخص السابق إن وجد.",
		text)
	if err != nil || summary == "" {
		return
	}
	if err := s.memory.SetConversationSummary(ctx, session, summary); err != nil {
		slog.Warn("conversation summary store failed", "error", err)
	}
}

func renderTurns(turns []memory.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
	}
	return b.String()
}
