package main

import (
	"context"
	"errors"
	"testing"
)

func TestSendRejectsBlankText(t *testing.T) {
	t.Setenv("SCHOOLCHAT_HOME", t.TempDir())
	for _, text := range []string{"", "   ", "\n\t"} {
		err := cmdSend(context.Background(), "default", "p1", text, false)
		if !errors.Is(err, errEmptyMessage) {
			t.Errorf("cmdSend(%q) = %v, want errEmptyMessage", text, err)
		}
	}
}
