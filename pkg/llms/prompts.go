package llms

import (
	"context"
	"fmt"
	"strings"
)

// High-level prompt helpers. Storage language is English; user-facing
// output is Arabic. Translation keeps names, numbers and reference
// codes verbatim.

const translateToEnglishPrompt = `Translate the following text to English.
Keep person names, place names, reference numbers and codes exactly as they are (transliterate names, do not translate them).
Output only the translation, nothing else.`

const translateToArabicPrompt = `ترجم النص التالي إلى العربية.
حافظ على الأسماء والأرقام المرجعية كما هي.
أخرج الترجمة فقط بدون أي إضافات.`

// TranslateToEnglish translates Arabic text to English for storage.
func (c *Client) TranslateToEnglish(ctx context.Context, text string) (string, error) {
	reply, _, err := c.Generate(ctx, []Message{
		System(translateToEnglishPrompt),
		User(text),
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to translate to English: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// TranslateToArabic translates English text to Arabic for display.
func (c *Client) TranslateToArabic(ctx context.Context, text string) (string, error) {
	reply, _, err := c.Generate(ctx, []Message{
		System(translateToArabicPrompt),
		User(text),
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to translate to Arabic: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// Classify picks one label from labels for the message. Used as the
// fallback when no router pattern matches.
func (c *Client) Classify(ctx context.Context, message string, labels []string) (string, error) {
	prompt := fmt.Sprintf(
		"Classify the user message into exactly one of these categories: %s.\nReply with the category name only.",
		strings.Join(labels, ", "))

	reply, _, err := c.Generate(ctx, []Message{
		System(prompt),
		User(message),
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to classify message: %w", err)
	}

	reply = strings.ToLower(strings.TrimSpace(reply))
	for _, l := range labels {
		if strings.Contains(reply, strings.ToLower(l)) {
			return l, nil
		}
	}
	return reply, nil
}

const extractFactsPrompt = `You extract structured facts from personal notes.
Return a JSON object: {"entities": [...], "relationships": [...]}.

Each entity: {"type": "<Type>", "name": "<canonical english name>", "properties": {...}}.
Allowed types: Person, Company, Project, Task, Expense, Debt, Reminder, Knowledge, Topic, Tag, Item, Location, Idea, Sprint.
Never emit Section or ListEntry entities.
Person properties may include: name_ar (Arabic surface form), company, date_of_birth, id_number.
Expense: amount (number), currency, category, vendor, date.
Debt: person, amount, currency, direction (i_owe or owed_to_me), reason.
Reminder: title, due_date (ISO), reminder_type, recurrence, priority.
Knowledge: title, content, topic, category, reference_numbers (array of strings).
Item: name, quantity, location, category, brand, condition.

Each relationship: {"from": "<name>", "to": "<name>", "type": "<REL>"}.
Allowed: BELONGS_TO, INVOLVES, WORKS_AT, STORED_IN, TAGGED_WITH, RELATED_TO, SIMILAR_TO.

Keep Arabic names in name_ar and reference numbers verbatim. If nothing can be extracted, return {"entities": [], "relationships": []}.`

// ExtractFacts extracts entities and relationships as raw JSON.
// NER hints, when present, are prepended to the text.
func (c *Client) ExtractFacts(ctx context.Context, text, nerHints string) (string, error) {
	input := text
	if nerHints != "" {
		input = fmt.Sprintf("[NER hints: %s]\n%s", nerHints, text)
	}

	raw, err := c.GenerateJSON(ctx, []Message{
		System(extractFactsPrompt),
		User(input),
	})
	if err != nil {
		return "", fmt.Errorf("failed to extract facts: %w", err)
	}
	return raw, nil
}

// ExtractFactsRestricted is ExtractFacts limited to the given entity
// types; anything else must be dropped by the model.
func (c *Client) ExtractFactsRestricted(ctx context.Context, text, nerHints string, types []string) (string, error) {
	input := text
	if nerHints != "" {
		input = fmt.Sprintf("[NER hints: %s]\n%s", nerHints, text)
	}

	system := extractFactsPrompt + fmt.Sprintf(
		"\nFor this input, only extract entities of these types and drop everything else: %s.",
		strings.Join(types, ", "))

	raw, err := c.GenerateJSON(ctx, []Message{
		System(system),
		User(input),
	})
	if err != nil {
		return "", fmt.Errorf("failed to extract facts: %w", err)
	}
	return raw, nil
}

const enrichChunkPrompt = `Here is a document and one chunk of it.
Write 1-2 sentences situating the chunk within the document (what it is about, what it belongs to).
Output the sentences only.`

// EnrichChunk produces the situating paragraph prepended to a chunk
// before embedding.
func (c *Client) EnrichChunk(ctx context.Context, document, chunk string) (string, error) {
	// The full document is truncated; the lead is enough for context.
	doc := document
	if len(doc) > 8000 {
		doc = doc[:8000]
	}

	reply, _, err := c.Generate(ctx, []Message{
		System(enrichChunkPrompt),
		User(fmt.Sprintf("DOCUMENT:\n%s\n\nCHUNK:\n%s", doc, chunk)),
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to enrich chunk: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// ClassifyImage assigns one of the file classes to an image.
func (c *Client) ClassifyImage(ctx context.Context, image []byte, classes []string) (string, error) {
	prompt := fmt.Sprintf(
		"Classify this image into exactly one of: %s.\nReply with the class name only.",
		strings.Join(classes, ", "))

	msg := Message{Role: "user", Content: prompt, Images: [][]byte{image}}
	reply, _, err := c.Generate(ctx, []Message{msg}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to classify image: %w", err)
	}

	reply = strings.ToLower(strings.TrimSpace(reply))
	for _, cl := range classes {
		if strings.Contains(reply, cl) {
			return cl, nil
		}
	}
	return "", fmt.Errorf("image class %q not recognised", reply)
}

// AnalyzeImage runs a class-specific vision prompt and returns raw JSON.
func (c *Client) AnalyzeImage(ctx context.Context, prompt string, image []byte) (string, error) {
	msg := Message{Role: "user", Content: prompt, Images: [][]byte{image}}
	raw, err := c.GenerateJSON(ctx, []Message{msg})
	if err != nil {
		return "", fmt.Errorf("failed to analyze image: %w", err)
	}
	return raw, nil
}

// DescribePage extracts readable text from a rendered document page.
func (c *Client) DescribePage(ctx context.Context, image []byte) (string, error) {
	msg := Message{
		Role:    "user",
		Content: "Extract all readable text from this document page as markdown. Keep Arabic text as Arabic. Output the text only.",
		Images:  [][]byte{image},
	}
	reply, _, err := c.Generate(ctx, []Message{msg}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// Summarize produces an Arabic summary following the instruction.
func (c *Client) Summarize(ctx context.Context, instruction, text string) (string, error) {
	reply, _, err := c.Generate(ctx, []Message{
		System(instruction),
		User(text),
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to summarize: %w", err)
	}
	return strings.TrimSpace(reply), nil
}
