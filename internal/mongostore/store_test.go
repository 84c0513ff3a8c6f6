package mongostore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/tbourn/anidl-backend/internal/domain"
	"github.com/tbourn/anidl-backend/internal/repo"
)

// newTestStore connects to MONGO_TEST_URI and uses a throwaway database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := Connect(ctx, uri, fmt.Sprintf("anidl_test_%d", time.Now().UnixNano()))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Drop(ctx)
		_ = s.Close(ctx)
	})
	return s
}

func TestIssueToken_ReuseAndExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	first, created, err := s.IssueToken(ctx, 7, "AAAAAAAAAAAAAAAA", now, 24*time.Hour)
	if err != nil || !created {
		t.Fatalf("first issue: created=%v err=%v", created, err)
	}
	again, created, err := s.IssueToken(ctx, 7, "BBBBBBBBBBBBBBBB", now.Add(time.Hour), 24*time.Hour)
	if err != nil || created || again.Token != first.Token {
		t.Fatalf("expected reuse of %q, got %q created=%v err=%v", first.Token, again.Token, created, err)
	}

	later, created, err := s.IssueToken(ctx, 7, "CCCCCCCCCCCCCCCC", now.Add(25*time.Hour), 24*time.Hour)
	if err != nil || !created || later.Token != "CCCCCCCCCCCCCCCC" {
		t.Fatalf("expected fresh token after expiry, got %q created=%v err=%v", later.Token, created, err)
	}
}

func TestIssueToken_ConcurrentSingleActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	const n = 8
	var wg sync.WaitGroup
	got := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, _, err := s.IssueToken(ctx, 9, fmt.Sprintf("cand%012d", i), now, 24*time.Hour)
			if err != nil {
				t.Errorf("issue %d: %v", i, err)
				return
			}
			got[i] = tok.Token
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		if got[i] != got[0] {
			t.Fatalf("concurrent issues diverged: %v", got)
		}
	}
}

func TestBindConsumeAndLedger(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	since := now.Add(-24 * time.Hour)

	tok, _, err := s.IssueToken(ctx, 3, "TOKENTOKENTOKEN1", now, 24*time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := s.BindToken(ctx, 3, tok.Token, map[string]string{"ouo": "x1", "nano": "y1"}, since, now); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := s.BindToken(ctx, 3, tok.Token, map[string]string{"ouo": "x2"}, since, now); err != nil {
		t.Fatalf("rebind: %v", err)
	}
	found, err := s.FindValidToken(ctx, 3, tok.Token, since)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.Metadata["ouo"] != "x2" || found.Metadata["nano"] != "y1" {
		t.Fatalf("metadata = %+v", found.Metadata)
	}

	for i, want := range []int64{1, 0} {
		n, err := s.MarkTokenUsed(ctx, tok.Token, now)
		if err != nil || n != want {
			t.Fatalf("mark used #%d: flipped=%d err=%v, want %d", i, n, err, want)
		}
	}
	if _, err := s.FindValidToken(ctx, 3, tok.Token, since); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after use, got %v", err)
	}
	if used, _ := s.TokenMarkedUsed(ctx, tok.Token); !used {
		t.Fatal("expected used flag")
	}

	if ok, _ := s.UsedTokenRecorded(ctx, tok.Token); ok {
		t.Fatal("ledger should be empty")
	}
	if err := s.RecordUsedToken(ctx, tok.Token, 3, now); err != nil {
		t.Fatalf("record: %v", err)
	}
	if ok, _ := s.UsedTokenRecorded(ctx, tok.Token); !ok {
		t.Fatal("ledger should contain token")
	}
}

func TestBindToken_UpsertsMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	since := now.Add(-24 * time.Hour)

	if err := s.BindToken(ctx, 4, "ORPHANORPHAN0001", map[string]string{"ouo": "z"}, since, now); err != nil {
		t.Fatalf("bind: %v", err)
	}
	var doc tokenDoc
	if err := s.tokens().FindOne(ctx, bson.M{"token": "ORPHANORPHAN0001"}).Decode(&doc); err != nil {
		t.Fatalf("load orphan: %v", err)
	}
	if doc.Issued || doc.Used || doc.ActiveKey != nil || doc.Metadata["ouo"] != "z" {
		t.Fatalf("unexpected upserted token %+v", doc)
	}
	if _, err := s.FindValidToken(ctx, 4, "ORPHANORPHAN0001", since); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("orphan validated: %v", err)
	}

	tok, created, err := s.IssueToken(ctx, 4, "REALREALREALREA1", now, 24*time.Hour)
	if err != nil || !created || !tok.Issued {
		t.Fatalf("issue after orphan: %+v created=%v err=%v", tok, created, err)
	}
}

func TestMarkTokenUsed_ConcurrentSingleFlip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	tok, _, err := s.IssueToken(ctx, 5, "RACERACERACERAC1", now, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	const n = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int64
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			flipped, err := s.MarkTokenUsed(ctx, tok.Token, now)
			if err != nil {
				t.Errorf("mark used: %v", err)
				return
			}
			mu.Lock()
			total += flipped
			mu.Unlock()
		}()
	}
	wg.Wait()
	if total != 1 {
		t.Fatalf("flag flipped %d times, want 1", total)
	}
}

func TestDeleteTokensCreatedBefore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, _, err := s.IssueToken(ctx, 1, "OLDOLDOLDOLDOLD1", now.Add(-2*time.Hour), 24*time.Hour); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.IssueToken(ctx, 2, "NEWNEWNEWNEWNEW1", now.Add(-30*time.Minute), 24*time.Hour); err != nil {
		t.Fatal(err)
	}
	n, err := s.DeleteTokensCreatedBefore(ctx, now.Add(-time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("deleted=%d err=%v", n, err)
	}
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	if _, err := s.CreateUser(ctx, 10, "alice", now); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateUser(ctx, 10, "alice", now); !errors.Is(err, repo.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := s.SetUserBanned(ctx, 11, true, now); err != nil {
		t.Fatalf("ban upsert: %v", err)
	}
	u, err := s.GetUser(ctx, 11)
	if err != nil || !u.Banned || u.SearchCount != 0 {
		t.Fatalf("upserted user = %+v err=%v", u, err)
	}
	if err := s.UpdateSearchCount(ctx, 10, 3, nil, now); err != nil {
		t.Fatalf("update count: %v", err)
	}
	u, _ = s.GetUser(ctx, 10)
	if u.SearchCount != 3 || u.Username != "alice" {
		t.Fatalf("user after count = %+v", u)
	}

	ids, err := s.ListUserIDs(ctx)
	if err != nil || len(ids) != 2 || ids[0] != 10 || ids[1] != 11 {
		t.Fatalf("ids = %v err=%v", ids, err)
	}
	total, last, err := s.UsersStats(ctx)
	if err != nil || total != 2 || last == nil {
		t.Fatalf("stats = %d %v %v", total, last, err)
	}

	if err := s.DeleteUser(ctx, 10); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteUser(ctx, 10); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestComments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := s.CreateComment(ctx, domain.CommentAnime, 100, "Naruto", now); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateComment(ctx, domain.CommentAnime, 101, "Naruto", now); !errors.Is(err, repo.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if _, err := s.CreateComment(ctx, domain.CommentEpisode, 102, "Naruto", now); err != nil {
		t.Fatalf("episode registry is independent: %v", err)
	}
	ref, err := s.GetComment(ctx, domain.CommentAnime, "Naruto")
	if err != nil || ref.MessageID != 100 {
		t.Fatalf("get = %+v err=%v", ref, err)
	}
	if _, err := s.GetComment(ctx, domain.CommentEpisode, "Bleach"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
