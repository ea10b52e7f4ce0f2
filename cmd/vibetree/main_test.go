package main

import "testing"

func TestServeCommandFlags(t *testing.T) {
	cmd := newServeCmd()
	for _, name := range []string{"host", "port"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("missing flag: --%s", name)
		}
	}
}

func TestScanCommandFlags(t *testing.T) {
	cmd := newScanCmd()
	if cmd.Flags().Lookup("json") == nil {
		t.Error("missing flag: --json")
	}
	if cmd.Use != "scan [path]" {
		t.Errorf("Use = %q", cmd.Use)
	}
}

func TestMaterializeCommandFlags(t *testing.T) {
	cmd := newMaterializeCmd()
	for _, name := range []string{"spec", "path"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("missing flag: --%s", name)
		}
	}
}

func TestTreeCommandAcceptsOptionalPath(t *testing.T) {
	cmd := newTreeCmd()
	if err := cmd.Args(cmd, []string{}); err != nil {
		t.Errorf("Args([]) = %v, want nil", err)
	}
	if err := cmd.Args(cmd, []string{"/tmp/repo"}); err != nil {
		t.Errorf("Args([path]) = %v, want nil", err)
	}
	if err := cmd.Args(cmd, []string{"a", "b"}); err == nil {
		t.Error("Args([a, b]) = nil, want error")
	}
}

func TestPRCommandHasOpenSubcommand(t *testing.T) {
	cmd := newPRCmd()
	found := false
	for _, c := range cmd.Commands() {
		if c.Use == "open <branch>" {
			found = true
		}
	}
	if !found {
		t.Error("expected a pr open subcommand")
	}
}

func TestVersionCommandIsDefined(t *testing.T) {
	cmd := newVersionCmd()
	if cmd.Use != "version" {
		t.Errorf("Use = %q", cmd.Use)
	}
	if cmd.Run == nil {
		t.Error("version command has no Run func")
	}
}
