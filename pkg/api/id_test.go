package api

import "testing"

func TestNewConversationID(t *testing.T) {
	id := NewConversationID()
	if !ValidateConversationID(id) {
		t.Errorf("generated conversation ID %q failed validation", id)
	}
}

func TestNewMessageID(t *testing.T) {
	id := NewMessageID()
	if !ValidateMessageID(id) {
		t.Errorf("generated message ID %q failed validation", id)
	}
}

func TestIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewMessageID()
		if seen[id] {
			t.Fatalf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestValidateConversationID_Rejects(t *testing.T) {
	bad := []string{
		"",
		"conv_",
		"conv_short",
		"msg_abcdefghijklmnopqrstuvwx",
		"conv_abcdefghijklmnopqrstuvw!",
	}
	for _, id := range bad {
		if ValidateConversationID(id) {
			t.Errorf("expected %q to be rejected", id)
		}
	}
}
