package storage

import (
	"testing"
	"time"

	"github.com/souktrain/gestpay-backend/internal/models"
)

func addUser(m *MemoryStore, first, last, phone string) *models.User {
	return m.AddUser(&models.User{FirstName: first, LastName: last, PhoneNumber: phone})
}

func TestSearchRecipients(t *testing.T) {
	m := NewMemoryStore()
	sender := addUser(m, "Ada", "Obi", "08010000001")
	addUser(m, "Ada", "Eze", "08010000002")
	addUser(m, "Adaeze", "Nwosu", "08010000003")
	addUser(m, "Chidi", "Okafor", "08010000004")

	// name search excludes the sender and matches partially
	matches, err := m.SearchRecipients("ada", sender.ID, 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}
	for _, u := range matches {
		if u.ID == sender.ID {
			t.Fatal("sender returned as its own recipient")
		}
	}

	// exact phone lookup
	matches, err = m.SearchRecipients("08010000004", sender.ID, 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 1 || matches[0].FirstName != "Chidi" {
		t.Fatalf("phone search = %+v", matches)
	}

	// the cap applies
	for i := 0; i < 10; i++ {
		addUser(m, "Ada", "Test", "0802000000"+string(rune('0'+i)))
	}
	matches, _ = m.SearchRecipients("ada", sender.ID, 5)
	if len(matches) != 5 {
		t.Fatalf("matches = %d, want capped at 5", len(matches))
	}
}

func TestSeenPlatformMessage(t *testing.T) {
	m := NewMemoryStore()

	seen, err := m.SeenPlatformMessage(models.PlatformTelegram, "42")
	if err != nil || seen {
		t.Fatalf("fresh id reported seen: %v %v", seen, err)
	}

	_ = m.LogMessage(&models.Message{
		Platform:          models.PlatformTelegram,
		ChatID:            "555",
		MessageType:       "text",
		PlatformMessageID: "42",
	})

	seen, _ = m.SeenPlatformMessage(models.PlatformTelegram, "42")
	if !seen {
		t.Fatal("logged id not reported seen")
	}

	// same id on another platform is a different message
	seen, _ = m.SeenPlatformMessage(models.PlatformWhatsapp, "42")
	if seen {
		t.Fatal("id collided across platforms")
	}

	// empty ids never dedup
	seen, _ = m.SeenPlatformMessage(models.PlatformTelegram, "")
	if seen {
		t.Fatal("empty id reported seen")
	}
}

func TestOTPLifecycle(t *testing.T) {
	m := NewMemoryStore()
	exp := time.Now().Add(10 * time.Minute)

	if err := m.UpsertOTP("08010000001", "chat1", "111111", exp); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	otp, err := m.GetActiveOTP("08010000001", "111111")
	if err != nil {
		t.Fatalf("get active: %v", err)
	}

	// reissue overwrites in place
	if err := m.UpsertOTP("08010000001", "chat1", "222222", exp); err != nil {
		t.Fatalf("reissue: %v", err)
	}
	if _, err := m.GetActiveOTP("08010000001", "111111"); err != ErrNotFound {
		t.Fatal("old code survived reissue")
	}
	if _, err := m.GetActiveOTP("08010000001", "222222"); err != nil {
		t.Fatalf("new code not active: %v", err)
	}

	// consuming kills the code
	if err := m.MarkOTPUsed(otp.ID); err != nil {
		t.Fatalf("mark used: %v", err)
	}
	if _, err := m.GetActiveOTP("08010000001", "222222"); err != ErrNotFound {
		t.Fatal("used code still active")
	}

	// expired codes are inert
	if err := m.UpsertOTP("08010000009", "chat9", "333333", time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("upsert expired: %v", err)
	}
	if _, err := m.GetActiveOTP("08010000009", "333333"); err != ErrNotFound {
		t.Fatal("expired code active")
	}
}

func TestSessionLifecycle(t *testing.T) {
	m := NewMemoryStore()

	s1, err := m.GetOrCreateSession(models.PlatformWhatsapp, "08010000001")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if s1.State != models.StateStart {
		t.Fatalf("initial state = %q", s1.State)
	}

	s2, _ := m.GetOrCreateSession(models.PlatformWhatsapp, "08010000001")
	if s1.ID != s2.ID {
		t.Fatal("same chat identity produced two sessions")
	}

	// same chat id on another platform is a distinct session
	s3, _ := m.GetOrCreateSession(models.PlatformTelegram, "08010000001")
	if s3.ID == s1.ID {
		t.Fatal("sessions collided across platforms")
	}

	uid := uint(7)
	td := &models.TempData{AwaitingOTP: &models.AwaitingOTPData{UserID: uid}}
	if err := m.UpdateSessionState(models.PlatformWhatsapp, "08010000001", models.StateAwaitingOTP, td, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := m.GetOrCreateSession(models.PlatformWhatsapp, "08010000001")
	decoded, err := got.DecodeTempData()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.AwaitingOTP == nil || decoded.AwaitingOTP.UserID != uid {
		t.Fatal("temp data lost on update")
	}

	// clearing temp data on the next transition
	if err := m.UpdateSessionState(models.PlatformWhatsapp, "08010000001", models.StateLinked, nil, &uid); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = m.GetOrCreateSession(models.PlatformWhatsapp, "08010000001")
	if got.TempData != "" {
		t.Fatalf("temp data not cleared: %q", got.TempData)
	}
	if got.UserID == nil || *got.UserID != uid {
		t.Fatal("user binding lost")
	}
}
