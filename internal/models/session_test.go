package models

import "testing"

func TestTempDataRoundTrip(t *testing.T) {
	session := &ChatSession{}

	td := &TempData{AwaitingSelection: &AwaitingSelectionData{
		Amount: 5000,
		Candidates: []RecipientCandidate{
			{UserID: 7, FirstName: "Ada", LastName: "Obi", PhoneNumber: "08011111111"},
			{UserID: 9, FirstName: "Ada", LastName: "Eze", PhoneNumber: "08022222222"},
		},
	}}
	if err := session.EncodeTempData(td); err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := session.DecodeTempData()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.AwaitingSelection == nil {
		t.Fatal("awaiting selection payload lost")
	}
	if got.AwaitingSelection.Amount != 5000 {
		t.Errorf("amount = %v, want 5000", got.AwaitingSelection.Amount)
	}
	if len(got.AwaitingSelection.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(got.AwaitingSelection.Candidates))
	}
	if got.AwaitingSelection.Candidates[1].UserID != 9 {
		t.Errorf("candidate user id = %d, want 9", got.AwaitingSelection.Candidates[1].UserID)
	}
	if got.AwaitingOTP != nil {
		t.Error("unexpected awaiting_otp payload")
	}
}

func TestTempDataClearAndEmpty(t *testing.T) {
	session := &ChatSession{}
	if err := session.EncodeTempData(&TempData{AwaitingOTP: &AwaitingOTPData{UserID: 3}}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := session.EncodeTempData(nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if session.TempData != "" {
		t.Fatalf("temp data not cleared: %q", session.TempData)
	}

	got, err := session.DecodeTempData()
	if err != nil {
		t.Fatalf("decode empty: %v", err)
	}
	if got.AwaitingOTP != nil || got.AwaitingSelection != nil {
		t.Fatal("empty temp data decoded to non-empty payload")
	}
}

func TestUserPIN(t *testing.T) {
	user := &User{}
	if err := user.SetPIN("4321"); err != nil {
		t.Fatalf("SetPIN: %v", err)
	}
	if user.PIN == "4321" {
		t.Fatal("PIN stored in plain text")
	}
	if !user.CheckPIN("4321") {
		t.Fatal("correct PIN rejected")
	}
	if user.CheckPIN("1234") {
		t.Fatal("wrong PIN accepted")
	}
}
