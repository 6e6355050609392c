package task

import (
	"errors"
	"sync"
	"testing"
)

type recordingSink struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (s *recordingSink) Publish(snap Snapshot) {
	s.mu.Lock()
	s.snaps = append(s.snaps, snap)
	s.mu.Unlock()
}

func TestRegistry_Lifecycle(t *testing.T) {
	sink := &recordingSink{}
	r := NewRegistry(sink)
	id := r.Create("http://x/{i}", 4, TypeBatchCheck, "check 4")

	tk, err := r.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st := tk.Status(); st != StatusPending {
		t.Fatalf("status = %s, expected pending", st)
	}

	if err := r.Update(id, WithStatus(StatusRunning)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	for i := 1; i <= 4; i++ {
		tk.SetProgress(i, i/2, 4)
	}
	tk.Apply(Complete(map[string]int{"success": 2}))

	tk.SetProgress(5, 2, 4)

	s := tk.Snapshot()
	if s.Status != StatusCompleted || !s.Status.IsFinished() {
		t.Errorf("status = %s, expected completed", s.Status)
	}
	if s.Processed != 4 || s.Success != 2 || s.Progress != 100 {
		t.Errorf("counters = %d/%d %.2f%%, expected 4/2 100%%", s.Processed, s.Success, s.Progress)
	}
	if len(sink.snaps) == 0 || sink.snaps[len(sink.snaps)-1].Status != StatusCompleted {
		t.Error("sink did not receive the terminal snapshot")
	}
}

func TestRegistry_NotFound(t *testing.T) {
	r := NewRegistry(nil)
	if _, err := r.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get err = %v, expected ErrNotFound", err)
	}
	if err := r.Update("nope", WithStatus(StatusRunning)); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update err = %v, expected ErrNotFound", err)
	}
	if len(r.List()) != 0 {
		t.Error("Update must not create tasks")
	}
}

func TestRegistry_ClearAndList(t *testing.T) {
	r := NewRegistry(nil)
	a := r.Create("", 0, TypeUpdateLive, "a")
	b := r.Create("", 0, TypeUpdateLive, "b")
	if a == b {
		t.Fatal("ids must be unique")
	}
	if n := len(r.List()); n != 2 {
		t.Errorf("List() len = %d, expected 2", n)
	}
	r.Clear()
	if _, err := r.Get(a); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Clear err = %v", err)
	}
}

func TestTask_ErrorIsTerminal(t *testing.T) {
	r := NewRegistry(nil)
	id := r.Create("", 10, TypeUpdateLive, "")
	tk, _ := r.Get(id)
	tk.Apply(WithStatus(StatusRunning))
	tk.Apply(WithError("boom"))

	s := tk.Snapshot()
	if s.Status != StatusError || s.Error != "boom" {
		t.Errorf("snapshot = %+v", s)
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		processed, total int
		expected         float64
	}{
		{0, 0, 0},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{3, 3, 100},
	}
	for _, tt := range tests {
		if got := progress(tt.processed, tt.total); got != tt.expected {
			t.Errorf("progress(%d, %d) = %v, expected %v", tt.processed, tt.total, got, tt.expected)
		}
	}
}

func TestTask_ConcurrentProgressIsConsistent(t *testing.T) {
	r := NewRegistry(nil)
	id := r.Create("", 1000, TypeBatchCheck, "")
	tk, _ := r.Get(id)

	var (
		mu                 sync.Mutex
		processed, success int
		wg                 sync.WaitGroup
	)
	for i := 0; i < 1000; i++ {
		wg.Add(1)
		go func(ok bool) {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			processed++
			if ok {
				success++
			}
			tk.SetProgress(processed, success, 1000)
		}(i%3 == 0)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			s := tk.Snapshot()
			if s.Success > s.Processed || s.Processed > s.Total {
				t.Errorf("inconsistent snapshot %+v", s)
				return
			}
			if s.Processed == s.Total {
				return
			}
		}
	}()
	wg.Wait()
	<-done

	if s := tk.Snapshot(); s.Processed != 1000 || s.Success != 334 {
		t.Errorf("final = %d/%d, expected 1000/334", s.Processed, s.Success)
	}
}
