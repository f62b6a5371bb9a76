package authcore_test

import (
	"context"
	"strings"
	"testing"
	"time"

	authcore "github.com/tradegate/authcore"
	"github.com/tradegate/authcore/directory/memdir"
)

func newAuditedEngine(t *testing.T, cfg authcore.Config) (*authcore.Engine, *memdir.Store, *authcore.ChannelSink) {
	t.Helper()

	cfg.Audit.Enabled = true
	sink := authcore.NewChannelSink(64)

	dir := memdir.New()
	engine, err := authcore.New().
		WithConfig(cfg).
		WithDirectory(dir).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, dir, sink
}

func waitForEvent(t *testing.T, sink *authcore.ChannelSink, typ authcore.AuditEventType) authcore.AuditEvent {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-sink.Events():
			if event.Type == typ {
				return event
			}
		case <-deadline:
			t.Fatalf("no %q event arrived", typ)
		}
	}
}

func TestAudit_LoginSuccessEvent(t *testing.T) {
	cfg := testConfig()
	engine, dir, sink := newAuditedEngine(t, cfg)
	seedOrgAccount(t, dir, cfg, "org-1", "factory@example.com", authcore.RoleManufacturer, authcore.StatusActive)

	result := engine.Authenticate(loginCtx("10.0.0.1"), "factory@example.com", testPassword)
	if !result.Success {
		t.Fatalf("login failed: code=%s", result.Code)
	}

	event := waitForEvent(t, sink, authcore.AuditLoginSuccess)
	if !event.Success {
		t.Fatal("success event should report success")
	}
	if event.Actor.AccountID != "org-1" {
		t.Fatalf("account: %q", event.Actor.AccountID)
	}
	if event.Actor.SessionID != result.Tokens.SessionID {
		t.Fatal("event should carry the issued session id")
	}
	if event.IP != "10.0.0.1" {
		t.Fatalf("ip: %q", event.IP)
	}
}

func TestAudit_LoginFailureEvent(t *testing.T) {
	cfg := testConfig()
	engine, dir, sink := newAuditedEngine(t, cfg)
	seedOrgAccount(t, dir, cfg, "org-1", "factory@example.com", authcore.RoleManufacturer, authcore.StatusActive)

	engine.Authenticate(loginCtx("10.0.0.1"), "factory@example.com", wrongPassword)

	event := waitForEvent(t, sink, authcore.AuditLoginFailure)
	if event.Success {
		t.Fatal("failure event should not report success")
	}
	if event.Code == "" {
		t.Fatal("failure event should carry an error code")
	}
}

func TestAudit_AccountLockedEvent(t *testing.T) {
	cfg := testConfig()
	engine, dir, sink := newAuditedEngine(t, cfg)
	seedOrgAccount(t, dir, cfg, "org-1", "factory@example.com", authcore.RoleManufacturer, authcore.StatusActive)

	for i := 0; i < cfg.Lockout.Threshold; i++ {
		engine.Authenticate(loginCtx("10.0.0.1"), "factory@example.com", wrongPassword)
	}

	waitForEvent(t, sink, authcore.AuditAccountLocked)
}

func TestAudit_LogoutEvent(t *testing.T) {
	cfg := testConfig()
	engine, dir, sink := newAuditedEngine(t, cfg)
	seedOrgAccount(t, dir, cfg, "org-1", "factory@example.com", authcore.RoleManufacturer, authcore.StatusActive)

	login := engine.Authenticate(loginCtx("10.0.0.1"), "factory@example.com", testPassword)
	if !login.Success {
		t.Fatalf("login failed: code=%s", login.Code)
	}
	if err := engine.Logout(context.Background(), login.Tokens.AccessToken, login.Tokens.RefreshToken); err != nil {
		t.Fatal(err)
	}

	waitForEvent(t, sink, authcore.AuditLogout)
}

func TestJSONWriterSink_WritesLines(t *testing.T) {
	var buf strings.Builder
	sink := authcore.NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), authcore.AuditEvent{
		At:      time.Now().UTC(),
		Type:    authcore.AuditLoginSuccess,
		Actor:   authcore.AuditActor{AccountID: "org-1"},
		Success: true,
	})

	line := buf.String()
	if !strings.HasSuffix(line, "\n") {
		t.Fatal("expected newline-delimited output")
	}
	if !strings.Contains(line, `"type":"login_success"`) {
		t.Fatalf("unexpected output: %s", line)
	}
	if !strings.Contains(line, `"account_id":"org-1"`) {
		t.Fatalf("unexpected output: %s", line)
	}
}
