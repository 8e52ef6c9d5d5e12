package tui

import "testing"

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in   string
		want Command
	}{
		{"open u-parent-a", Command{Name: CmdOpen, Args: "u-parent-a"}},
		{":o  principal-u1 ", Command{Name: CmdOpen, Args: "principal-u1"}},
		{"CHAT p1", Command{Name: CmdOpen, Args: "p1"}},
		{"refresh", Command{Name: CmdReload}},
		{"h", Command{Name: CmdHelp}},
		{"q!", Command{Name: CmdQuit}},
	}
	for _, c := range cases {
		got, err := ParseCommand(c.in)
		if err != nil {
			t.Errorf("ParseCommand(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseCommand(%q) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestParseCommandErrors(t *testing.T) {
	for _, in := range []string{"", "  ", "open", "logout", ":"} {
		if _, err := ParseCommand(in); err == nil {
			t.Errorf("ParseCommand(%q) succeeded", in)
		}
	}
}
