package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/souktrain/gestpay-backend/internal/models"
	"github.com/souktrain/gestpay-backend/internal/storage"
)

func transferFixture(t *testing.T) (*storage.MemoryStore, *TransferService, *models.ChatSession, *models.User) {
	t.Helper()
	store := storage.NewMemoryStore()
	sender := seedUser(store, "Chidi", "Okafor", "08012345678", 10000)

	session, err := store.GetOrCreateSession(models.PlatformTelegram, "555001")
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if err := store.UpdateSessionState(models.PlatformTelegram, "555001", models.StateLinked, nil, &sender.ID); err != nil {
		t.Fatalf("link session: %v", err)
	}
	session.ReplyTo = "555001"

	svc := NewTransferService(store, "https://pay.example.com/confirm", testLogger())
	return store, svc, session, sender
}

func TestTransferNoMatch(t *testing.T) {
	store, svc, session, user := transferFixture(t)
	out := &fakeSender{}

	reply, err := svc.HandleInternalTransfer(out, session, user, 1000, "Nobody")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !strings.Contains(reply, "No GestPay user found") {
		t.Fatalf("reply = %q", reply)
	}
	if len(store.Tokens()) != 0 || len(store.PendingTransactions()) != 0 {
		t.Fatal("transaction or token created for zero matches")
	}
}

func TestTransferSingleMatch(t *testing.T) {
	store, svc, session, user := transferFixture(t)
	recipient := seedUser(store, "Ada", "Obi", "08011112222", 100)
	out := &fakeSender{}

	reply, err := svc.HandleInternalTransfer(out, session, user, 2500, "Ada")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !strings.Contains(reply, "₦2,500.00") || !strings.Contains(reply, "Ada Obi") {
		t.Fatalf("reply = %q", reply)
	}

	pending := store.PendingTransactions()
	if len(pending) != 1 {
		t.Fatalf("pending transactions = %d, want 1", len(pending))
	}
	if pending[0].Type != models.TxTypeDebit || pending[0].Amount != 2500 {
		t.Fatalf("pending leg = %+v", pending[0])
	}

	tokens := store.Tokens()
	if len(tokens) != 1 {
		t.Fatalf("tokens = %d, want 1", len(tokens))
	}
	tok := tokens[0]
	if tok.RecipientID != recipient.ID || tok.TransactionID != pending[0].ID {
		t.Fatalf("token wiring = %+v", tok)
	}
	if !tok.Active(time.Now()) {
		t.Fatal("fresh token not active")
	}
	if time.Until(tok.ExpiresAt) > 15*time.Minute {
		t.Fatal("token expiry beyond 15 minutes")
	}

	if len(out.linkURLs) != 1 || !strings.Contains(out.linkURLs[0], "?token="+tok.Token) {
		t.Fatalf("confirmation link = %v", out.linkURLs)
	}

	// balance untouched until the PIN confirms
	fresh, _ := store.GetUserByID(user.ID)
	if fresh.Balance != 10000 {
		t.Fatalf("balance moved before confirmation: %v", fresh.Balance)
	}
}

func TestTransferAmbiguousMatches(t *testing.T) {
	store, svc, session, user := transferFixture(t)
	seedUser(store, "Ada", "Obi", "08011112222", 100)
	seedUser(store, "Ada", "Eze", "08033334444", 100)
	out := &fakeSender{}

	reply, err := svc.HandleInternalTransfer(out, session, user, 1000, "Ada")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !strings.Contains(reply, "1.") || !strings.Contains(reply, "2.") {
		t.Fatalf("reply = %q", reply)
	}
	if session.State != models.StateAwaitingSelection {
		t.Fatalf("state = %q, want awaiting_selection", session.State)
	}
	if len(store.Tokens()) != 0 || len(store.PendingTransactions()) != 0 {
		t.Fatal("transaction created before disambiguation")
	}
	if len(out.options) != 1 || len(out.options[0]) != 2 {
		t.Fatalf("options = %v", out.options)
	}

	// out-of-range selection re-prompts and keeps the candidates
	if _, err := svc.HandleSelection(out, session, user, "9"); err != nil {
		t.Fatalf("bad selection: %v", err)
	}
	if session.State != models.StateAwaitingSelection {
		t.Fatal("candidates lost on bad selection")
	}

	// valid selection initiates the transfer
	if _, err := svc.HandleSelection(out, session, user, "2"); err != nil {
		t.Fatalf("selection: %v", err)
	}
	if session.State != models.StateLinked {
		t.Fatalf("state = %q, want linked", session.State)
	}
	tokens := store.Tokens()
	if len(tokens) != 1 {
		t.Fatalf("tokens = %d, want 1", len(tokens))
	}
}

func TestTransferGuards(t *testing.T) {
	store, svc, session, user := transferFixture(t)
	seedUser(store, "Ada", "Obi", "08011112222", 100)
	out := &fakeSender{}

	// missing amount
	reply, _ := svc.HandleInternalTransfer(out, session, user, 0, "Ada")
	if !strings.Contains(reply, "amount") {
		t.Fatalf("reply = %q", reply)
	}

	// channel disabled
	user.AllowTelegramPayments = false
	reply, _ = svc.HandleInternalTransfer(out, session, user, 1000, "Ada")
	if !strings.Contains(reply, "disabled") {
		t.Fatalf("reply = %q", reply)
	}
	user.AllowTelegramPayments = true

	// amount above balance aborts before any search
	reply, _ = svc.HandleInternalTransfer(out, session, user, 99999, "Ada")
	if !strings.Contains(reply, "Insufficient balance") {
		t.Fatalf("reply = %q", reply)
	}
	if len(store.Tokens()) != 0 {
		t.Fatal("token created despite guard failures")
	}
}

func settle(t *testing.T, store *storage.MemoryStore, svc *TransferService, session *models.ChatSession, user *models.User, amount float64) *models.ConfirmationToken {
	t.Helper()
	out := &fakeSender{}
	if _, err := svc.HandleInternalTransfer(out, session, user, amount, "Ada"); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	tokens := store.Tokens()
	if len(tokens) == 0 {
		t.Fatal("no token created")
	}
	return tokens[len(tokens)-1]
}

func TestVerifyPINSettles(t *testing.T) {
	store, svc, session, user := transferFixture(t)
	recipient := seedUser(store, "Ada", "Obi", "08011112222", 100)
	tok := settle(t, store, svc, session, user, 2500)

	out := &fakeSender{}
	senders := map[models.Platform]ChatSender{models.PlatformTelegram: out}

	result, err := svc.VerifyPIN(senders, tok.Token, "1234")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.Amount != 2500 || result.Status != models.TxStatusSuccessful {
		t.Fatalf("result = %+v", result)
	}

	s, _ := store.GetUserByID(user.ID)
	r, _ := store.GetUserByID(recipient.ID)
	if s.Balance != 7500 || s.TotalDebit != 2500 {
		t.Fatalf("sender balance = %v debit = %v", s.Balance, s.TotalDebit)
	}
	if r.Balance != 2600 || r.TotalCredit != 2500 {
		t.Fatalf("recipient balance = %v credit = %v", r.Balance, r.TotalCredit)
	}
	if len(store.PendingTransactions()) != 0 {
		t.Fatal("debit leg still pending after settlement")
	}
	if len(store.Notifications()) != 2 {
		t.Fatalf("notifications = %d, want 2", len(store.Notifications()))
	}
	if !strings.Contains(out.lastText(), "Transfer successful") {
		t.Fatalf("chat confirmation = %q", out.lastText())
	}
	if out.lastTo() != "555001" {
		t.Fatalf("confirmation delivered to %q, want the chat's reply address", out.lastTo())
	}

	// the token is single use
	if _, err := svc.VerifyPIN(senders, tok.Token, "1234"); err != ErrInvalidToken {
		t.Fatalf("replay error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyPINWrongPIN(t *testing.T) {
	store, svc, session, user := transferFixture(t)
	seedUser(store, "Ada", "Obi", "08011112222", 100)
	tok := settle(t, store, svc, session, user, 2500)

	if _, err := svc.VerifyPIN(nil, tok.Token, "9999"); err != ErrInvalidPIN {
		t.Fatalf("error = %v, want ErrInvalidPIN", err)
	}

	// a wrong PIN leaves the token live for a retry
	if _, err := store.GetActiveToken(tok.Token); err != nil {
		t.Fatalf("token consumed by wrong PIN: %v", err)
	}
	fresh, _ := store.GetUserByID(user.ID)
	if fresh.Balance != 10000 {
		t.Fatalf("balance moved on wrong PIN: %v", fresh.Balance)
	}
}

func TestVerifyPINExpiredToken(t *testing.T) {
	store, svc, session, user := transferFixture(t)
	seedUser(store, "Ada", "Obi", "08011112222", 100)
	tok := settle(t, store, svc, session, user, 2500)

	tok.ExpiresAt = time.Now().Add(-time.Minute)

	if _, err := svc.VerifyPIN(nil, tok.Token, "1234"); err != ErrInvalidToken {
		t.Fatalf("error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyPINInsufficientBalance(t *testing.T) {
	store, svc, session, user := transferFixture(t)
	seedUser(store, "Ada", "Obi", "08011112222", 100)
	tok := settle(t, store, svc, session, user, 2500)

	// balance drained between initiation and confirmation
	user.Balance = 100

	if _, err := svc.VerifyPIN(nil, tok.Token, "1234"); err != ErrInsufficientBalance {
		t.Fatalf("error = %v, want ErrInsufficientBalance", err)
	}

	// the failed attempt consumes nothing
	if _, err := store.GetActiveToken(tok.Token); err != nil {
		t.Fatalf("token consumed: %v", err)
	}
	if len(store.PendingTransactions()) != 1 {
		t.Fatal("pending leg mutated by failed settlement")
	}
}

func TestSettlementAtomicOnFailure(t *testing.T) {
	store := storage.NewMemoryStore()
	sender := seedUser(store, "Chidi", "Okafor", "08012345678", 10000)

	tx := &models.Transaction{
		UserID:    sender.ID,
		Reference: "TXNDEADBEEF",
		Amount:    2500,
		Type:      models.TxTypeDebit,
		Status:    models.TxStatusPending,
	}
	tok := &models.ConfirmationToken{
		UserID:      sender.ID,
		Platform:    models.PlatformTelegram,
		ChatID:      "555001",
		RecipientID: 999, // no such user
		ActionType:  models.TokenActionTransfer,
		Token:       strings.Repeat("ab", 32),
		ExpiresAt:   time.Now().Add(15 * time.Minute),
	}
	if err := store.CreatePendingTransfer(tx, tok); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := store.SettleTransfer(tok); err == nil {
		t.Fatal("settlement succeeded with missing recipient")
	}

	fresh, _ := store.GetUserByID(sender.ID)
	if fresh.Balance != 10000 || fresh.TotalDebit != 0 {
		t.Fatalf("sender mutated by failed settlement: %+v", fresh)
	}
	got, _ := store.GetTransaction(tx.ID)
	if got.Status != models.TxStatusPending {
		t.Fatalf("transaction status = %q, want pending", got.Status)
	}
	if tok.Used {
		t.Fatal("token consumed by failed settlement")
	}
}

func TestTransferCallback(t *testing.T) {
	store, svc, session, user := transferFixture(t)
	recipient := seedUser(store, "Ada", "Obi", "08011112222", 100)
	out := &fakeSender{}

	data := fmt.Sprintf("transfer:%d:1500.00", recipient.ID)
	reply, err := svc.HandleCallback(out, session, user, data)
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if !strings.Contains(reply, "₦1,500.00") {
		t.Fatalf("reply = %q", reply)
	}
	tokens := store.Tokens()
	if len(tokens) != 1 || tokens[0].RecipientID != recipient.ID {
		t.Fatalf("tokens = %+v", tokens)
	}
}
