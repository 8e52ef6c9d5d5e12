package keys

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func runeEvent(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func TestPageBindingsShadowGlobal(t *testing.T) {
	var fired []string
	r := NewRegistry()
	r.AddGlobal(
		OnRune("quit", 'q', func() { fired = append(fired, "quit") }),
		OnRune("help", '?', func() { fired = append(fired, "help") }),
	)
	r.AddPage("thread", OnRune("back", 'q', func() { fired = append(fired, "back") }))

	if !r.HandleEvent("contacts", runeEvent('q')) {
		t.Fatal("q not handled on contacts")
	}
	if !r.HandleEvent("thread", runeEvent('q')) {
		t.Fatal("q not handled on thread")
	}
	if !r.HandleEvent("thread", runeEvent('?')) {
		t.Fatal("global ? not handled on thread")
	}
	want := []string{"quit", "back", "help"}
	if len(fired) != len(want) {
		t.Fatalf("fired = %v", fired)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Fatalf("fired = %v, want %v", fired, want)
		}
	}
}

func TestSpecialKeys(t *testing.T) {
	r := NewRegistry()
	r.AddPage("contacts", OnKey("open", tcell.KeyEnter, nil))

	a, ok := r.Lookup("contacts", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))
	if !ok || a.Name != "open" {
		t.Fatalf("lookup = %+v, %v", a, ok)
	}
	// A nil handler still consumes the key.
	if !r.HandleEvent("contacts", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)) {
		t.Error("enter not consumed")
	}
	if r.HandleEvent("contacts", runeEvent('x')) {
		t.Error("unbound key consumed")
	}
}
