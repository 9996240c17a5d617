package rbac

import "testing"

func TestChecker(t *testing.T) {
	c := NewChecker(map[string][]string{
		"student": {"quiz:view"},
		"grader":  {"attempt:*"},
		"admin":   {"*"},
	})
	cases := []struct {
		role, perm string
		want       bool
	}{
		{"student", "quiz:view", true},
		{"student", "quiz:create", false},
		{"grader", "attempt:view-all", true},
		{"grader", "quiz:view", false},
		{"admin", "anything", true},
		{"nobody", "quiz:view", false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestDefaultPolicy(t *testing.T) {
	c := NewChecker(nil)
	if c.Has("student", "quiz:create") {
		t.Fatal("students must not create quizzes")
	}
	if !c.Has("teacher", "attempt:view-all") {
		t.Fatal("teachers review any attempt")
	}
}
