package graph

import "testing"

func TestNormalizeDirection(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"i_owe", "i_owe"},
		{"owed_by_me", "i_owe"},
		{"I Owe", "i_owe"},
		{"they_owe_me", "owed_to_me"},
		{"owed_to_me", "owed_to_me"},
		{"garbage", "i_owe"},
		{"", "i_owe"},
	}
	for _, tt := range tests {
		if got := NormalizeDirection(tt.in); got != tt.want {
			t.Errorf("NormalizeDirection(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeLocation(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"kitchen", "المطبخ"},
		{"Bedroom", "غرفة النوم"},
		{"الكراج > الرف  العلوي", "الكراج > الرف العلوي"},
		{"المخزن>الدرج", "المخزن > الدرج"},
		{"  ", ""},
	}
	for _, tt := range tests {
		if got := NormalizeLocation(tt.in); got != tt.want {
			t.Errorf("NormalizeLocation(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cables", "إلكترونيات"},
		{"Tools", "أدوات"},
		{"spare parts", "قطع غيار"},
		{"غير معروف", "غير معروف"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeCategory(tt.in); got != tt.want {
			t.Errorf("NormalizeCategory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeEnergy(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"deep focus", "high"},
		{"عالي", "high"},
		{"normal", "medium"},
		{"light", "low"},
		{"منخفضة", "low"},
		{"custom", "custom"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeEnergy(tt.in); got != tt.want {
			t.Errorf("NormalizeEnergy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGuessKnowledgeCategory(t *testing.T) {
	tests := []struct {
		title   string
		content string
		want    string
	}{
		{"Docker networking", "bridge vs host", "تقنية"},
		{"وصفة كبسة", "الأرز والدجاج", "طبخ"},
		{"تغيير زيت", "صيانة السيارة", "سيارة"},
		{"random note", "nothing special", "عام"},
	}
	for _, tt := range tests {
		if got := GuessKnowledgeCategory(tt.title, tt.content); got != tt.want {
			t.Errorf("GuessKnowledgeCategory(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestGuessExpenseCategory(t *testing.T) {
	tests := []struct {
		vendor string
		items  string
		want   string
	}{
		{"Starbucks", "", "food"},
		{"Panda", "حليب وخبز", "groceries"},
		{"STC", "", "telecom"},
		{"صيدلية النهدي", "بنادول", "health"},
		{"متجر غامض", "شيء ما", "general"},
	}
	for _, tt := range tests {
		if got := GuessExpenseCategory(tt.vendor, tt.items); got != tt.want {
			t.Errorf("GuessExpenseCategory(%q) = %q, want %q", tt.vendor, got, tt.want)
		}
	}
}

func TestArabicVariants(t *testing.T) {
	variants := arabicVariants("الاجتماعات")
	want := map[string]bool{"الاجتماعات": false, "اجتماعات": false, "الاجتماعة": false, "اجتماعة": false}
	for _, v := range variants {
		if _, ok := want[v]; !ok {
			t.Errorf("unexpected variant %q", v)
		}
		want[v] = true
	}
	for v, seen := range want {
		if !seen {
			t.Errorf("missing variant %q", v)
		}
	}
}
