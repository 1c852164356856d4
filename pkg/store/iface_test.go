package store

import (
	"testing"
	"time"

	"github.com/daviddao/badgekeeper/pkg/model"
)

// TestStoreImplementsInterface drives every StatsStore method through the
// interface type on a real database.
func TestStoreImplementsInterface(t *testing.T) {
	var iface StatsStore = newTestStore(t)

	if err := iface.SetCounter("u1", model.StatMessagesSent, 4); err != nil {
		t.Fatalf("SetCounter: %v", err)
	}
	if n, err := iface.IncrementCounter("u1", model.StatMessagesSent, 1); err != nil || n != 5 {
		t.Fatalf("IncrementCounter = %d, %v; want 5, nil", n, err)
	}
	if got := iface.Counter("u1", model.StatMessagesSent); got != 5 {
		t.Fatalf("Counter = %d, want 5", got)
	}

	if err := iface.SetFlag("u1", "night_owl"); err != nil {
		t.Fatalf("SetFlag: %v", err)
	}
	if !iface.Flag("u1", "night_owl") {
		t.Fatal("Flag should be set")
	}

	if _, err := iface.AddSetMember("u1", model.StatGenresShared, "jazz"); err != nil {
		t.Fatalf("AddSetMember: %v", err)
	}
	if iface.SetSize("u1", model.StatGenresShared) != 1 {
		t.Fatal("SetSize should be 1")
	}
	if m := iface.SetMembers("u1", model.StatGenresShared); len(m) != 1 || m[0] != "jazz" {
		t.Fatalf("SetMembers = %v", m)
	}

	snap := iface.Snapshot("u1")
	if snap.Counter(model.StatMessagesSent) != 5 || snap.SetSize(model.StatGenresShared) != 1 || !snap.Flag("night_owl") {
		t.Fatalf("Snapshot mismatch: %+v", snap)
	}

	if err := iface.SaveBaseline("u1", []string{"first_message"}); err != nil {
		t.Fatalf("SaveBaseline: %v", err)
	}
	if ids, ok, err := iface.Baseline("u1"); err != nil || !ok || len(ids) != 1 {
		t.Fatalf("Baseline = %v, %v, %v", ids, ok, err)
	}

	r := model.RemoteStats{FriendsCount: 3, FetchedAt: time.Now().UTC()}
	if err := iface.SaveRemoteStats("u1", r); err != nil {
		t.Fatalf("SaveRemoteStats: %v", err)
	}
	if got := iface.RemoteStats("u1"); got.FriendsCount != 3 {
		t.Fatalf("RemoteStats.FriendsCount = %d, want 3", got.FriendsCount)
	}

	if err := iface.ClearUser("u1"); err != nil {
		t.Fatalf("ClearUser: %v", err)
	}
	if err := iface.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
