package store

import "testing"

func TestCreateTaskInstructionAlsoLogsIt(t *testing.T) {
	s := newTestStore(t)

	got, err := s.CreateTaskInstruction("owner/repo", "feature/a", "use table-driven tests")
	if err != nil {
		t.Fatalf("CreateTaskInstruction: %v", err)
	}
	if got.Content != "use table-driven tests" {
		t.Errorf("Content = %q", got.Content)
	}

	instructions, err := s.ListTaskInstructionsForBranch("owner/repo", "feature/a")
	if err != nil {
		t.Fatalf("ListTaskInstructionsForBranch: %v", err)
	}
	if len(instructions) != 1 {
		t.Fatalf("instructions = %d, want 1", len(instructions))
	}

	log, err := s.ListInstructionLog("owner/repo", "feature/a")
	if err != nil {
		t.Fatalf("ListInstructionLog: %v", err)
	}
	if len(log) != 1 || log[0].Content != "use table-driven tests" {
		t.Fatalf("log = %+v", log)
	}
}

func TestListTaskInstructionsForBranchOrdersOldestFirst(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.CreateTaskInstruction("owner/repo", "feature/a", "first"); err != nil {
		t.Fatalf("create first: %v", err)
	}
	if _, err := s.CreateTaskInstruction("owner/repo", "feature/a", "second"); err != nil {
		t.Fatalf("create second: %v", err)
	}

	instructions, err := s.ListTaskInstructionsForBranch("owner/repo", "feature/a")
	if err != nil {
		t.Fatalf("ListTaskInstructionsForBranch: %v", err)
	}
	if len(instructions) != 2 || instructions[0].Content != "first" || instructions[1].Content != "second" {
		t.Fatalf("instructions = %+v", instructions)
	}
}
