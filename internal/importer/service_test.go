package importer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/catalogimport/internal/history"
	"github.com/JonMunkholm/catalogimport/internal/lock"
)

func newTestService(gw *fakeGateway) (*Service, *history.MemoryStore, *lock.MemoryLocker) {
	store := history.NewMemoryStore(10)
	locker := lock.NewMemoryLocker(time.Minute)
	return &Service{
		Categories: &CategoryImporter{Gateway: gw, Trees: testTrees},
		Channels:   &ChannelImporter{Gateway: gw},
		Products:   &ProductImporter{Gateway: gw},
		PriceLists: &PriceListImporter{Gateway: gw, Currency: "FJD"},
		Limiter:    NewLimiter(2, 50*time.Millisecond),
		Locker:     locker,
		History:    store,
		LockKey:    "store-abc",
		Timeout:    time.Minute,
	}, store, locker
}

func TestService_RecordsHistory(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(newFakeGateway())

	report, err := svc.ImportCategories(ctx, strings.NewReader("key,name_en\na,A\n"))
	if err != nil {
		t.Fatalf("ImportCategories() error = %v", err)
	}
	if report.RunID == "" || report.Status != "success" {
		t.Fatalf("report = %+v", report)
	}

	run, err := store.Get(ctx, report.RunID)
	if err != nil {
		t.Fatalf("history Get() error = %v", err)
	}
	if run.Kind != string(KindCategories) || run.Status != "success" || run.Successful != 1 || run.FinishedAt == nil {
		t.Errorf("run = %+v", run)
	}

	var stored Result
	if err := json.Unmarshal(run.Result, &stored); err != nil {
		t.Fatalf("stored result: %v", err)
	}
	if len(stored.Successful) != 1 || stored.Successful[0].Key != "a" {
		t.Errorf("stored result = %+v", stored)
	}
}

func TestService_ReportJSON(t *testing.T) {
	svc, _, _ := newTestService(newFakeGateway())
	report, err := svc.ImportChannels(context.Background(), strings.NewReader("key,name_en,isActive\nsuva,Suva,TRUE\n"))
	if err != nil {
		t.Fatalf("ImportChannels() error = %v", err)
	}

	body, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{"run_id", "status", "message", "successful", "failed"} {
		if _, ok := decoded[field]; !ok {
			t.Errorf("response is missing %q: %s", field, body)
		}
	}
}

func TestService_StoreLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	svc, store, locker := newTestService(gw)

	held, err := locker.Lock(ctx, svc.LockKey)
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.ImportProducts(ctx, ProductFeeds{Products: strings.NewReader("key,name_en,sku\np,P,P-1\n")})
	if !errors.Is(err, lock.ErrLocked) {
		t.Fatalf("err = %v, want lock.ErrLocked", err)
	}
	if MapError(err).Code != "IMP002" {
		t.Errorf("code = %s, want IMP002", MapError(err).Code)
	}
	if len(gw.createdProducts) != 0 {
		t.Error("a locked run must not call the remote API")
	}
	if runs, _ := store.List(ctx, history.Filter{}); len(runs) != 0 {
		t.Errorf("rejected run recorded: %+v", runs)
	}
	if svc.Limiter.ActiveCount() != 0 {
		t.Error("limiter slot not released after lock failure")
	}

	_ = held.Release(ctx)
	if _, err := svc.AssignPriceLists(ctx, strings.NewReader("product_key,amount,store_key\nA,1,s1\n")); err != nil {
		t.Errorf("run after release error = %v", err)
	}
}

func TestService_LimiterSaturated(t *testing.T) {
	svc, _, _ := newTestService(newFakeGateway())
	svc.Limiter = NewLimiter(1, 20*time.Millisecond)
	if !svc.Limiter.TryAcquire() {
		t.Fatal("TryAcquire failed")
	}
	defer svc.Limiter.Release()

	_, err := svc.ImportChannels(context.Background(), strings.NewReader("key,name_en,isActive\nsuva,Suva,TRUE\n"))
	if !errors.Is(err, ErrTooManyImports) {
		t.Errorf("err = %v, want ErrTooManyImports", err)
	}
}

func TestService_ReleasesLockAfterRun(t *testing.T) {
	ctx := context.Background()
	svc, _, locker := newTestService(newFakeGateway())

	if _, err := svc.ImportCategories(ctx, strings.NewReader("key,name_en\na,A\n")); err != nil {
		t.Fatal(err)
	}
	lease, err := locker.Lock(ctx, svc.LockKey)
	if err != nil {
		t.Fatalf("lock still held after run: %v", err)
	}
	_ = lease.Release(ctx)
}

func TestService_ErrorResultIsNotAnError(t *testing.T) {
	svc, store, _ := newTestService(newFakeGateway())

	report, err := svc.ImportCategories(context.Background(), strings.NewReader(""))
	if err != nil {
		t.Fatalf("err = %v, feed problems belong on the result", err)
	}
	if report.Status != "error" || len(report.Errors) == 0 {
		t.Errorf("report = %+v", report.Result)
	}
	run, _ := store.Get(context.Background(), report.RunID)
	if run.Status != "error" {
		t.Errorf("history status = %s", run.Status)
	}
}
