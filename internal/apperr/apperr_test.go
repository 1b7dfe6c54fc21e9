package apperr

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"permission", Permissionf(os.ErrPermission, "cannot read store"), Permission},
		{"not found", NotFoundf(nil, "no contact %q", "+1555"), NotFound},
		{"invalid", InvalidInputf("limit must be positive"), InvalidInput},
		{"internal", Internalf(errors.New("boom"), "query failed"), Internal},
		{"plain", errors.New("plain"), Internal},
		{"wrapped", fmt.Errorf("outer: %w", NotFoundf(nil, "gone")), NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
			if !Is(tt.err, tt.want) && tt.name != "plain" {
				t.Errorf("Is(%v) = false", tt.want)
			}
		})
	}
}

func TestPermissionMessageCarriesHint(t *testing.T) {
	err := Permissionf(os.ErrPermission, "cannot read %s", "/tmp/chat.db")
	msg := Message(err)
	if !strings.HasPrefix(msg, "cannot read /tmp/chat.db") {
		t.Errorf("Message() = %q", msg)
	}
	if !strings.Contains(msg, "Full Disk Access") {
		t.Errorf("Message() missing Full Disk Access hint: %q", msg)
	}
	if !errors.Is(err, os.ErrPermission) {
		t.Error("cause should stay reachable through errors.Is")
	}
}

func TestMessageHidesUnclassifiedDetail(t *testing.T) {
	err := fmt.Errorf("scan: %w", errors.New("near \"SELECT\": syntax error"))
	if got := Message(err); got != genericMessage {
		t.Errorf("Message() = %q, want %q", got, genericMessage)
	}
	if Message(nil) != "" {
		t.Error("Message(nil) should be empty")
	}
}

func TestDetailIncludesCause(t *testing.T) {
	err := Internalf(errors.New("disk I/O error"), "read messages")
	if d := Detail(err); !strings.Contains(d, "disk I/O error") {
		t.Errorf("Detail() = %q, want cause text", d)
	}
}
