package changefeed

import (
	"testing"

	"github.com/helpbench/support-console/internal/model"
)

func TestChangeSubject(t *testing.T) {
	got := ChangeSubject("ws1", model.TableMessages, model.ChangeInsert)
	if got != "convchange.ws1.messages.insert" {
		t.Errorf("ChangeSubject() = %q", got)
	}

	got = ChangeSubject("ws2", model.TableConversations, model.ChangeDelete)
	if got != "convchange.ws2.conversations.delete" {
		t.Errorf("ChangeSubject() = %q", got)
	}
}

func TestWorkspaceFilter(t *testing.T) {
	if got := WorkspaceFilter("ws1"); got != "convchange.ws1.>" {
		t.Errorf("WorkspaceFilter() = %q", got)
	}
}
