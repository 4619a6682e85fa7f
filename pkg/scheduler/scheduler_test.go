package scheduler

import "testing"

func TestUTCHour(t *testing.T) {
	tests := []struct {
		local, tz, want int
	}{
		{7, 3, 4},
		{13, 3, 10},
		{21, 3, 18},
		{3, 3, 0},
		{1, 3, 22},
		{0, 0, 0},
		{23, -2, 1},
	}
	for _, tt := range tests {
		if got := utcHour(tt.local, tt.tz); got != tt.want {
			t.Errorf("utcHour(%d, %d) = %d, want %d", tt.local, tt.tz, got, tt.want)
		}
	}
}

func TestNewServiceDefaults(t *testing.T) {
	s := NewService(nil, nil, Config{})
	if s.cfg.MorningHour != 7 || s.cfg.NoonHour != 13 || s.cfg.EveningHour != 21 {
		t.Errorf("daily hours = %d/%d/%d", s.cfg.MorningHour, s.cfg.NoonHour, s.cfg.EveningHour)
	}
	if s.cfg.ReminderCheckMinutes != 30 {
		t.Errorf("reminder check = %d", s.cfg.ReminderCheckMinutes)
	}
	if s.cfg.BackupHour != 3 || s.cfg.JobTimeoutSecs != 120 {
		t.Errorf("backup hour %d, timeout %d", s.cfg.BackupHour, s.cfg.JobTimeoutSecs)
	}
}
