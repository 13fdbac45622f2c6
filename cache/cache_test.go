package cache

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/chazu/pasc/artifact"
	"github.com/chazu/pasc/compiler"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "cache.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func object(t *testing.T, src string) *artifact.Object {
	t.Helper()
	res, err := compiler.Compile(src)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return artifact.FromResult(res)
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	obj := object(t, "program p; begin writeln('cached') end.")

	if _, ok, err := s.Get(ctx, obj.Key); err != nil || ok {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}
	if err := s.Put(ctx, obj); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := s.Get(ctx, obj.Key)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if strings.Join(got.Listing(), "\n") != strings.Join(obj.Listing(), "\n") {
		t.Errorf("listing differs after round trip")
	}
}

func TestPutReplaces(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	obj := object(t, "program p; begin end.")

	if err := s.Put(ctx, obj); err != nil {
		t.Fatal(err)
	}
	obj.Program = "renamed"
	if err := s.Put(ctx, obj); err != nil {
		t.Fatal(err)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Entries != 1 {
		t.Errorf("Entries = %d, want 1", st.Entries)
	}
	got, _, err := s.Get(ctx, obj.Key)
	if err != nil || got.Program != "renamed" {
		t.Errorf("got %+v, err %v", got, err)
	}
}

func TestStatsAndPurge(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	a := object(t, "program a; begin end.")
	b := object(t, "program b; begin writeln(1) end.")

	for _, obj := range []*artifact.Object{a, b} {
		if err := s.Put(ctx, obj); err != nil {
			t.Fatal(err)
		}
	}
	s.Get(ctx, a.Key)
	s.Get(ctx, [32]byte{1})

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Entries != 2 || st.Bytes <= 0 || st.Hits != 1 || st.Misses != 1 {
		t.Errorf("Stats = %+v", st)
	}

	if err := s.Purge(ctx); err != nil {
		t.Fatal(err)
	}
	st, err = s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Entries != 0 || st.Bytes != 0 {
		t.Errorf("after purge: %+v", st)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")
	obj := object(t, "program p; var x: integer; begin x := 1 end.")

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, obj); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, ok, err := s.Get(ctx, obj.Key); err != nil || !ok {
		t.Errorf("entry lost after reopen: ok=%v err=%v", ok, err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	obj := object(t, "program p; begin end.")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Put(ctx, obj); err != nil {
				t.Errorf("put: %v", err)
			}
			if _, _, err := s.Get(ctx, obj.Key); err != nil {
				t.Errorf("get: %v", err)
			}
		}()
	}
	wg.Wait()
}
