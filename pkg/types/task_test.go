package types

import "testing"

func TestTaskTypeValid(t *testing.T) {
	tests := []struct {
		name  string
		value TaskType
		want  bool
	}{
		{"known type", TaskTypePylon, true},
		{"other bucket", TaskTypeOther, true},
		{"case matters", TaskType("pylon"), false},
		{"empty", TaskType(""), false},
		{"unknown", TaskType("Billboard"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.Valid(); got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestTaskTypesComplete(t *testing.T) {
	if len(TaskTypes) != 13 {
		t.Fatalf("expected 13 task types, got %d", len(TaskTypes))
	}

	seen := map[TaskType]bool{}
	for _, tt := range TaskTypes {
		if seen[tt] {
			t.Errorf("duplicate task type %q", tt)
		}
		seen[tt] = true
	}
}
