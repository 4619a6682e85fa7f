package agent

import "github.com/khalid729/Personal-Life-RAG/pkg/llms"

// toolCatalog is the closed tool set offered to the model. Names are
// load-bearing: clients and the LLM both depend on them. Descriptions
// are Saudi Arabic because that is the language the model is steered
// to reason in.
var toolCatalog = []llms.ToolDefinition{
	{
		Name:        "search_knowledge",
		Description: "ابحث في الذاكرة والمعرفة المخزنة. استخدمها لما المستخدم يسأل عن معلومات أو أشخاص أو مواضيع.",
		Parameters: objSchema(map[string]any{
			"query": prop("string", "سؤال البحث"),
		}, "query"),
	},
	{
		Name:        "search_reminders",
		Description: "ابحث عن التذكيرات. استخدمها لما المستخدم يسأل عن تذكيراته أو مواعيده.",
		Parameters: objSchema(map[string]any{
			"status": enumProp("فلتر حسب الحالة. الافتراضي: pending", "pending", "done", "snoozed", "all"),
			"query":  prop("string", "بحث بالعنوان (اختياري). إذا حُدد، يبحث عن تذكيرات تطابق هذا النص."),
		}),
	},
	{
		Name:        "create_reminder",
		Description: "أنشئ تذكير جديد.",
		Parameters: objSchema(map[string]any{
			"title":      prop("string", "عنوان التذكير بالعربي"),
			"due_date":   prop("string", "تاريخ الاستحقاق YYYY-MM-DD"),
			"time":       prop("string", "الوقت HH:MM (24h)"),
			"recurrence": enumProp("التكرار", "daily", "weekly", "monthly", "yearly"),
			"priority":   intProp("الأولوية 1-5", 1, 5),
		}, "title"),
	},
	{
		Name:        "update_reminder",
		Description: "عدّل أو أنجز أو أجّل أو ألغِ تذكير موجود. استخدمها لما المستخدم يقول خلصت/أنجزت/أجّل/ألغي/عدّل تذكير.",
		Parameters: objSchema(map[string]any{
			"query":    prop("string", "وصف التذكير المراد تعديله — اكتب أكثر تفاصيل ممكنة"),
			"action":   enumProp("نوع الإجراء: update=تعديل، done=إنجاز، snooze=تأجيل، cancel=إلغاء", "update", "done", "snooze", "cancel"),
			"due_date": prop("string", "تاريخ جديد YYYY-MM-DD (للتعديل أو التأجيل)"),
			"time":     prop("string", "وقت جديد HH:MM (24h)"),
			"priority": intProp("الأولوية 1-5", 1, 5),
		}, "query", "action"),
	},
	{
		Name:        "delete_reminder",
		Description: "احذف تذكير. يبحث بطريقة ذكية (مو لازم العنوان بالضبط). اكتب وصف واضح ومفصل للتذكير عشان يلقاه.",
		Parameters: objSchema(map[string]any{
			"query": prop("string", "وصف التذكير المراد حذفه — اكتب أكثر تفاصيل ممكنة مثل: استرداد العربون من محل الورق الجداري"),
		}, "query"),
	},
	{
		Name:        "add_expense",
		Description: "سجّل مصروف جديد.",
		Parameters: objSchema(map[string]any{
			"description": prop("string", "وصف المصروف"),
			"amount":      prop("number", "المبلغ بالريال"),
			"category":    prop("string", "التصنيف (طعام، مواصلات، ترفيه، إلخ)"),
			"date":        prop("string", "التاريخ YYYY-MM-DD (الافتراضي: اليوم)"),
			"vendor":      prop("string", "المتجر أو الجهة"),
		}, "description", "amount"),
	},
	{
		Name:        "get_expense_report",
		Description: "تقرير المصاريف الشهري مع تفصيل حسب الفئة. استخدمها لما يسأل عن مصاريفه أو كم صرف.",
		Parameters: objSchema(map[string]any{
			"month":   intProp("رقم الشهر (الافتراضي: الشهر الحالي)", 1, 12),
			"year":    prop("integer", "السنة (الافتراضي: السنة الحالية)"),
			"compare": prop("boolean", "قارن مع الشهر السابق"),
		}),
	},
	{
		Name:        "get_debt_summary",
		Description: "ملخص الديون: كم تطلب وكم عليك. استخدمها لما يسأل عن الديون.",
		Parameters:  objSchema(map[string]any{}),
	},
	{
		Name:        "record_debt",
		Description: "سجّل دين جديد (لك أو عليك).",
		Parameters: objSchema(map[string]any{
			"person":    prop("string", "اسم الشخص"),
			"amount":    prop("number", "المبلغ بالريال"),
			"direction": enumProp("i_owe=عليّ، owed_to_me=لي عنده", "i_owe", "owed_to_me"),
			"reason":    prop("string", "سبب الدين"),
		}, "person", "amount", "direction"),
	},
	{
		Name:        "pay_debt",
		Description: "سجّل سداد دين (كلي أو جزئي).",
		Parameters: objSchema(map[string]any{
			"person":    prop("string", "اسم الشخص"),
			"amount":    prop("number", "المبلغ المسدد بالريال"),
			"direction": enumProp("اتجاه الدين (اختياري — يُحدد تلقائياً لو في دين واحد)", "i_owe", "owed_to_me"),
		}, "person", "amount"),
	},
	{
		Name:        "get_daily_plan",
		Description: "اعرض خطة اليوم: التذكيرات والمهام والديون.",
		Parameters:  objSchema(map[string]any{}),
	},
	{
		Name:        "store_note",
		Description: "احفظ معلومة أو ملاحظة في الذاكرة. استخدمها لما المستخدم يطلب صراحةً تخزين شيء معيّن.",
		Parameters: objSchema(map[string]any{
			"text":  prop("string", "النص المراد حفظه"),
			"topic": prop("string", "الموضوع (اختياري)"),
		}, "text"),
	},
	{
		Name:        "get_person_info",
		Description: "اعرض معلومات شخص معيّن. استخدمها لما يسأل عن شخص بالاسم.",
		Parameters: objSchema(map[string]any{
			"name": prop("string", "اسم الشخص"),
		}, "name"),
	},
	{
		Name:        "manage_inventory",
		Description: "إدارة المخزون: بحث، إضافة، نقل، استخدام أغراض أو تقرير عام.",
		Parameters: objSchema(map[string]any{
			"action":   enumProp("search=بحث، add=إضافة، move=نقل، use=استخدام (إنقاص الكمية)، report=تقرير", "search", "add", "move", "use", "report"),
			"name":     prop("string", "اسم الغرض"),
			"quantity": prop("integer", "الكمية"),
			"location": prop("string", "الموقع (مكان التخزين أو النقل إليه)"),
			"category": prop("string", "التصنيف"),
		}, "action"),
	},
	{
		Name:        "manage_tasks",
		Description: "إدارة المهام: عرض، إنشاء، تعديل، أو حذف مهمة.",
		Parameters: objSchema(map[string]any{
			"action":   enumProp("list=عرض، create=إنشاء، update=تعديل، delete=حذف", "list", "create", "update", "delete"),
			"title":    prop("string", "عنوان المهمة"),
			"status":   enumProp("حالة المهمة", "todo", "in_progress", "done"),
			"priority": intProp("الأولوية 1-5", 1, 5),
			"project":  prop("string", "المشروع المرتبط"),
			"due_date": prop("string", "تاريخ الاستحقاق YYYY-MM-DD"),
		}, "action"),
	},
	{
		Name:        "manage_projects",
		Description: "إدارة المشاريع: عرض، تفاصيل، إنشاء (مع مراحل)، تعديل، حذف، تركيز، أقسام ومراحل. لا تستخدمها للدمج — استخدم merge_projects.",
		Parameters: objSchema(map[string]any{
			"action": enumProp(
				"list=عرض الكل، get=تفاصيل، create=إنشاء، update=تعديل، delete=حذف، focus=تركيز، unfocus=إلغاء التركيز، add_section=إضافة قسم، update_section=تعديل قسم، delete_section=حذف قسم، assign_section=ربط عنصر بقسم، set_phase=تحديد المرحلة النشطة",
				"list", "get", "create", "update", "delete", "focus", "unfocus",
				"add_section", "update_section", "delete_section", "assign_section", "set_phase"),
			"name":         prop("string", "اسم المشروع"),
			"status":       prop("string", "حالة المشروع (active, completed, on_hold, cancelled)"),
			"description":  prop("string", "وصف المشروع"),
			"priority":     intProp("الأولوية 1-5", 1, 5),
			"aliases":      arrayProp("أسماء بديلة للمشروع (عربي/إنجليزي مختصرة)"),
			"section_name": prop("string", "اسم القسم أو المرحلة"),
			"section_type": enumProp("نوع القسم: topic=موضوع, phase=مرحلة", "topic", "phase"),
			"order":        prop("integer", "ترتيب القسم (للمراحل)"),
			"entity_type":  prop("string", "نوع العنصر المراد ربطه بالقسم (Task, Knowledge, etc.)"),
			"entity_name":  prop("string", "اسم العنصر المراد ربطه بالقسم"),
			"with_phases":  prop("boolean", "إنشاء المشروع مع مراحل افتراضية (Planning, Preparation, Execution, Review)"),
		}, "action"),
	},
	{
		Name:        "merge_projects",
		Description: "ادمج مشاريع مكررة في مشروع واحد. ينقل كل المهام للمشروع الهدف ويحذف المشاريع القديمة.",
		Parameters: objSchema(map[string]any{
			"target_name":  prop("string", "اسم المشروع الهدف اللي تبي تدمج فيه"),
			"source_names": arrayProp("أسماء المشاريع المراد دمجها وحذفها"),
		}, "target_name", "source_names"),
	},
	{
		Name:        "manage_lists",
		Description: "إدارة القوائم: قائمة بقالة، مشتريات، أفكار، إلخ. إنشاء، إضافة عناصر، تعليم كمنجز، حذف.",
		Parameters: objSchema(map[string]any{
			"action": enumProp(
				"list=عرض كل القوائم، get=تفاصيل قائمة، create=إنشاء، add_entry=إضافة عنصر، check_entry=تعليم كمنجز، uncheck_entry=إلغاء التعليم، remove_entry=حذف عنصر، delete=حذف القائمة",
				"list", "get", "create", "add_entry", "check_entry", "uncheck_entry", "remove_entry", "delete"),
			"name":      prop("string", "اسم القائمة"),
			"list_type": enumProp("نوع القائمة", "shopping", "ideas", "checklist", "reference"),
			"entry":     prop("string", "محتوى العنصر"),
			"entries":   arrayProp("عناصر متعددة للإضافة دفعة وحدة"),
			"project":   prop("string", "ربط القائمة بمشروع (اختياري)"),
		}, "action"),
	},
	{
		Name:        "get_productivity_stats",
		Description: "إحصائيات الإنتاجية: جلسات التركيز، السبرنتات، أو نظرة عامة.",
		Parameters: objSchema(map[string]any{
			"type": enumProp("focus=جلسات التركيز، sprint=السبرنتات، overview=نظرة عامة (الافتراضي)", "focus", "sprint", "overview"),
		}),
	},
}

// catalogOrder maps tool name to catalog position, used to keep tool
// results in a deterministic order for the follow-up prompt.
var catalogOrder = func() map[string]int {
	m := make(map[string]int, len(toolCatalog))
	for i, t := range toolCatalog {
		m[t.Name] = i
	}
	return m
}()

// writeTools perform side effects; when one ran, background
// auto-extraction is skipped because the write already captured the fact.
var writeTools = map[string]bool{
	"create_reminder": true, "delete_reminder": true, "update_reminder": true,
	"add_expense": true, "record_debt": true, "pay_debt": true,
	"store_note": true, "manage_inventory": true, "manage_tasks": true,
	"manage_projects": true, "merge_projects": true, "manage_lists": true,
}

// sessionAwareTools receive the session id (active-project focus).
var sessionAwareTools = map[string]bool{
	"manage_projects": true,
}

func objSchema(props map[string]any, required ...string) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

func enumProp(desc string, values ...string) map[string]any {
	return map[string]any{"type": "string", "enum": values, "description": desc}
}

func intProp(desc string, min, max int) map[string]any {
	return map[string]any{"type": "integer", "minimum": min, "maximum": max, "description": desc}
}

func arrayProp(desc string) map[string]any {
	return map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string"},
		"description": desc,
	}
}
