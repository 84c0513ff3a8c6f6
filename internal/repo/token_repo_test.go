package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/anidl-backend/internal/domain"
)

const tokenTTL = 24 * time.Hour

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestIssueToken_Error_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	tok, _, err := IssueToken(context.Background(), db, 1, "AAAA", t0, tokenTTL)
	if err == nil || tok != nil {
		t.Fatalf("expected error without table, got tok=%v err=%v", tok, err)
	}
}

func TestIssueToken_ReusesWithinTTL(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()

	first, created, err := IssueToken(ctx, db, 7, "FIRSTFIRSTFIRST1", t0, tokenTTL)
	if err != nil || !created {
		t.Fatalf("first issue: created=%v err=%v", created, err)
	}
	if first.Token != "FIRSTFIRSTFIRST1" || first.UserID != 7 || first.Used {
		t.Fatalf("unexpected token %+v", first)
	}

	again, created, err := IssueToken(ctx, db, 7, "OTHEROTHEROTHER1", t0.Add(23*time.Hour), tokenTTL)
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}
	if created || again.Token != first.Token {
		t.Fatalf("expected reuse of %q, got %q (created=%v)", first.Token, again.Token, created)
	}

	var n int64
	db.Model(&domain.VerificationToken{}).Where("user_id = ?", 7).Count(&n)
	if n != 1 {
		t.Fatalf("expected one row, got %d", n)
	}
}

func TestIssueToken_FreshAfterExpiry(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()

	if _, _, err := IssueToken(ctx, db, 7, "OLDOLDOLDOLDOLD1", t0, tokenTTL); err != nil {
		t.Fatalf("issue: %v", err)
	}
	later, created, err := IssueToken(ctx, db, 7, "NEWNEWNEWNEWNEW1", t0.Add(25*time.Hour), tokenTTL)
	if err != nil || !created || later.Token != "NEWNEWNEWNEWNEW1" {
		t.Fatalf("expected fresh token, got %+v created=%v err=%v", later, created, err)
	}

	// The expired row keeps existing but no longer holds the slot.
	var old domain.VerificationToken
	if err := db.Where("token = ?", "OLDOLDOLDOLDOLD1").First(&old).Error; err != nil {
		t.Fatalf("load old: %v", err)
	}
	if old.ActiveKey != nil {
		t.Fatalf("expired token still holds slot: %v", *old.ActiveKey)
	}
}

func TestIssueToken_FreshAfterUse(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()

	first, _, err := IssueToken(ctx, db, 3, "USEDUSEDUSEDUSE1", t0, tokenTTL)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := MarkTokenUsed(ctx, db, first.Token, t0.Add(time.Minute)); err != nil {
		t.Fatalf("mark used: %v", err)
	}
	next, created, err := IssueToken(ctx, db, 3, "NEXTNEXTNEXTNEX1", t0.Add(2*time.Minute), tokenTTL)
	if err != nil || !created || next.Token == first.Token {
		t.Fatalf("expected new token after use, got %+v created=%v err=%v", next, created, err)
	}
}

func TestIssueToken_ConcurrentSingleActive(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "issue.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	const n = 5
	var wg sync.WaitGroup
	got := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, _, err := IssueToken(context.Background(), db, 9, fmt.Sprintf("cand%012d", i), t0, tokenTTL)
			if err != nil {
				errs[i] = err
				return
			}
			got[i] = tok.Token
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("issue %d: %v", i, errs[i])
		}
		if got[i] != got[0] {
			t.Fatalf("concurrent issues diverged: %v", got)
		}
	}
	var rows int64
	db.Model(&domain.VerificationToken{}).Where("user_id = ? AND active_key IS NOT NULL", 9).Count(&rows)
	if rows != 1 {
		t.Fatalf("expected one active token, got %d", rows)
	}
}

func TestBindToken_OverwritesKeys(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()
	since := t0.Add(-tokenTTL)

	tok, _, err := IssueToken(ctx, db, 3, "BINDBINDBINDBIN1", t0, tokenTTL)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := BindToken(ctx, db, 3, tok.Token, map[string]string{"ouo": "x1", "nano": "y1"}, since, t0); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := BindToken(ctx, db, 3, tok.Token, map[string]string{"ouo": "x2"}, since, t0); err != nil {
		t.Fatalf("rebind: %v", err)
	}

	found, err := FindValidToken(ctx, db, 3, tok.Token, since)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(found.Metadata) != 2 || found.Metadata["ouo"] != "x2" || found.Metadata["nano"] != "y1" {
		t.Fatalf("metadata = %+v", found.Metadata)
	}

	// Issue still returns the same token with its bindings loaded.
	again, _, err := IssueToken(ctx, db, 3, "IGNOREDIGNORED01", t0.Add(time.Hour), tokenTTL)
	if err != nil || again.Metadata["ouo"] != "x2" {
		t.Fatalf("issue after bind: %+v err=%v", again, err)
	}
}

func TestBindToken_CreatesMissingToken(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()
	since := t0.Add(-tokenTTL)

	if err := BindToken(ctx, db, 4, "ORPHANORPHAN0001", map[string]string{"ouo": "z"}, since, t0); err != nil {
		t.Fatalf("bind: %v", err)
	}

	var orphan domain.VerificationToken
	if err := db.Preload("Bindings").First(&orphan, "token = ?", "ORPHANORPHAN0001").Error; err != nil {
		t.Fatalf("load orphan: %v", err)
	}
	orphan.MetadataFromBindings()
	if orphan.Issued || orphan.Used || orphan.ActiveKey != nil || orphan.Metadata["ouo"] != "z" {
		t.Fatalf("unexpected created token %+v", orphan)
	}

	// A record the server never issued must not validate.
	if _, err := FindValidToken(ctx, db, 4, "ORPHANORPHAN0001", since); !errors.Is(err, ErrNotFound) {
		t.Fatalf("orphan validated: %v", err)
	}

	// Nor may it stand in for the user's active token.
	tok, created, err := IssueToken(ctx, db, 4, "REALREALREALREA1", t0, tokenTTL)
	if err != nil || !created || tok.Token != "REALREALREALREA1" || !tok.Issued {
		t.Fatalf("issue after orphan: %+v created=%v err=%v", tok, created, err)
	}
}

func TestFindValidToken_NotFoundCases(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()

	tok, _, err := IssueToken(ctx, db, 5, "FINDFINDFINDFIN1", t0, tokenTTL)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	cases := []struct {
		name   string
		userID int64
		token  string
		since  time.Time
	}{
		{"wrong user", 6, tok.Token, t0.Add(-tokenTTL)},
		{"wrong value", 5, "NOPE", t0.Add(-tokenTTL)},
		{"expired", 5, tok.Token, t0.Add(time.Second)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FindValidToken(ctx, db, tc.userID, tc.token, tc.since)
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestMarkTokenUsed_Idempotent(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()

	tok, _, err := IssueToken(ctx, db, 8, "MARKMARKMARKMAR1", t0, tokenTTL)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if used, _ := TokenMarkedUsed(ctx, db, tok.Token); used {
		t.Fatal("fresh token reported used")
	}

	first := t0.Add(time.Minute)
	if n, err := MarkTokenUsed(ctx, db, tok.Token, first); err != nil || n != 1 {
		t.Fatalf("mark #1: flipped=%d err=%v", n, err)
	}
	if n, err := MarkTokenUsed(ctx, db, tok.Token, first.Add(time.Hour)); err != nil || n != 0 {
		t.Fatalf("mark #2: flipped=%d err=%v", n, err)
	}

	var got domain.VerificationToken
	if err := db.First(&got, "token = ?", tok.Token).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.Used || got.UsedAt == nil || !got.UsedAt.Equal(first) || got.ActiveKey != nil {
		t.Fatalf("unexpected used token %+v", got)
	}
	if used, _ := TokenMarkedUsed(ctx, db, tok.Token); !used {
		t.Fatal("expected used flag")
	}
	if _, err := FindValidToken(ctx, db, 8, tok.Token, t0.Add(-tokenTTL)); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("used token still valid: %v", err)
	}
}

func TestDeleteTokensCreatedBefore_Boundary(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()
	since := t0.Add(-48 * time.Hour)

	old := t0.Add(-2 * time.Hour)
	fresh := t0.Add(-30 * time.Minute)
	for _, tc := range []struct {
		user  int64
		token string
		at    time.Time
	}{
		{1, "OLDOLDOLDOLDOLD1", old},
		{2, "NEWNEWNEWNEWNEW1", fresh},
	} {
		if _, _, err := IssueToken(ctx, db, tc.user, tc.token, tc.at, tokenTTL); err != nil {
			t.Fatal(err)
		}
		if err := BindToken(ctx, db, tc.user, tc.token, map[string]string{"ouo": tc.token}, since, tc.at); err != nil {
			t.Fatal(err)
		}
	}

	n, err := DeleteTokensCreatedBefore(ctx, db, t0.Add(-time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("deleted=%d err=%v", n, err)
	}
	if _, err := FindValidToken(ctx, db, 1, "OLDOLDOLDOLDOLD1", since); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old token survived: %v", err)
	}
	if _, err := FindValidToken(ctx, db, 2, "NEWNEWNEWNEWNEW1", since); err != nil {
		t.Fatalf("fresh token removed: %v", err)
	}

	var bindings int64
	db.Model(&domain.TokenBinding{}).Count(&bindings)
	if bindings != 1 {
		t.Fatalf("expected orphaned bindings removed, %d left", bindings)
	}
}

func TestUsedTokenLedger(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()

	if ok, err := UsedTokenRecorded(ctx, db, "LEDGER"); err != nil || ok {
		t.Fatalf("empty ledger: ok=%v err=%v", ok, err)
	}
	for i := 0; i < 2; i++ {
		if err := RecordUsedToken(ctx, db, "LEDGER", 11, t0); err != nil {
			t.Fatalf("record #%d: %v", i, err)
		}
	}
	if ok, err := UsedTokenRecorded(ctx, db, "LEDGER"); err != nil || !ok {
		t.Fatalf("ledger lookup: ok=%v err=%v", ok, err)
	}
	// The ledger is independent of the token flag.
	if used, _ := TokenMarkedUsed(ctx, db, "LEDGER"); used {
		t.Fatal("ledger entry must not set the token flag")
	}
}
