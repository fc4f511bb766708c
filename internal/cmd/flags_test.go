package cmd

import "testing"

// editCmd and runCmd shell out to a real editor/subprocess (execEditor,
// execLauncher), so they aren't exercised end-to-end here — only their
// flag wiring is checked, the way clai's TestHistoryCmd_Flags checks
// historyCmd's flags without hitting storage.
func TestEditCmd_Flags(t *testing.T) {
	for _, name := range []string{"type", "tag", "select"} {
		if editCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag registered on edit", name)
		}
	}
}

func TestRunCmd_Flags(t *testing.T) {
	expected := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"repeat", "r", "1"},
		{"dummy", "", "false"},
		{"previous", "p", "false"},
		{"error-no-previous", "", "false"},
	}
	for _, f := range expected {
		flag := runCmd.Flags().Lookup(f.name)
		if flag == nil {
			t.Errorf("expected --%s flag registered on run", f.name)
			continue
		}
		if flag.Shorthand != f.shorthand {
			t.Errorf("--%s shorthand = %q, want %q", f.name, flag.Shorthand, f.shorthand)
		}
		if flag.DefValue != f.defValue {
			t.Errorf("--%s default = %q, want %q", f.name, flag.DefValue, f.defValue)
		}
	}
}

func TestHistoryCmd_Flags(t *testing.T) {
	for _, name := range []string{"limit", "offset"} {
		if historyCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag registered on history", name)
		}
	}
}

func TestRootCmd_RegistersEveryCLISurfaceCommand(t *testing.T) {
	want := []string{"edit", "run", "rm", "mv", "cp", "ls", "tags", "history", "which", "alias", "collect", "load-utils"}
	for _, use := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == use {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected %q registered on the root command", use)
		}
	}
}
