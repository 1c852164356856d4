package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func fired(t Timer) bool {
	select {
	case <-t.C():
		return true
	default:
		return false
	}
}

func TestFake_NowAdvances(t *testing.T) {
	f := NewFake(epoch)
	f.Advance(90 * time.Second)
	if got := f.Now(); !got.Equal(epoch.Add(90 * time.Second)) {
		t.Fatalf("Now = %v, want %v", got, epoch.Add(90*time.Second))
	}
}

func TestFake_TimerFiresAtDeadline(t *testing.T) {
	f := NewFake(epoch)
	tm := f.NewTimer(3 * time.Second)

	f.Advance(2 * time.Second)
	if fired(tm) {
		t.Fatal("timer fired before deadline")
	}
	f.Advance(time.Second)
	if !fired(tm) {
		t.Fatal("timer did not fire at deadline")
	}
	if f.Pending() != 0 {
		t.Fatalf("Pending = %d after fire, want 0", f.Pending())
	}
}

func TestFake_StopPreventsFire(t *testing.T) {
	f := NewFake(epoch)
	tm := f.NewTimer(time.Second)
	if !tm.Stop() {
		t.Fatal("Stop on pending timer should return true")
	}
	f.Advance(time.Hour)
	if fired(tm) {
		t.Fatal("stopped timer fired")
	}
	if tm.Stop() {
		t.Fatal("second Stop should return false")
	}
}

func TestFake_StopAfterFire(t *testing.T) {
	f := NewFake(epoch)
	tm := f.NewTimer(time.Second)
	f.Advance(time.Second)
	if tm.Stop() {
		t.Fatal("Stop after fire should return false")
	}
}

func TestFake_ZeroDurationFiresImmediately(t *testing.T) {
	f := NewFake(epoch)
	if !fired(f.NewTimer(0)) {
		t.Fatal("zero-duration timer should fire immediately")
	}
}

func TestFake_FiresInDeadlineOrder(t *testing.T) {
	f := NewFake(epoch)
	late := f.NewTimer(2 * time.Second)
	early := f.NewTimer(time.Second)
	f.Advance(5 * time.Second)

	a := <-early.C()
	b := <-late.C()
	if !a.Before(b) {
		t.Fatalf("early fired at %v, late at %v", a, b)
	}
}

func TestReal_TimerFires(t *testing.T) {
	tm := Real{}.NewTimer(time.Millisecond)
	select {
	case <-tm.C():
	case <-time.After(time.Second):
		t.Fatal("real timer did not fire")
	}
}
