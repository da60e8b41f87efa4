package player

import (
	"sync"
	"testing"
	"time"
)

func TestRateLimiter_Cooldown(t *testing.T) {
	base := time.Unix(1000, 0)
	current := base
	r := NewRateLimiter(5*time.Second, nil)
	r.now = func() time.Time { return current }

	steps := []struct {
		at     time.Duration
		expect bool
	}{
		{0, true},
		{3 * time.Second, false},
		{6 * time.Second, true},
		{8 * time.Second, false},
		{11 * time.Second, true},
	}

	for _, step := range steps {
		current = base.Add(step.at)
		if got := r.Admit("user-1"); got != step.expect {
			t.Errorf("Admit at t=%v = %v, expected %v", step.at, got, step.expect)
		}
	}
}

func TestRateLimiter_UnlimitedUser(t *testing.T) {
	base := time.Unix(1000, 0)
	r := NewRateLimiter(5*time.Second, []string{"vip"})
	r.now = func() time.Time { return base }

	for i := 0; i < 10; i++ {
		if !r.Admit("vip") {
			t.Fatalf("exempt user rejected on call %d", i)
		}
	}
	if _, recorded := r.last["vip"]; recorded {
		t.Error("exempt user must not have state recorded")
	}
}

func TestRateLimiter_ZeroCooldownDisables(t *testing.T) {
	r := NewRateLimiter(0, nil)
	for i := 0; i < 5; i++ {
		if !r.Admit("user-1") {
			t.Fatalf("call %d rejected with limiting disabled", i)
		}
	}
}

func TestRateLimiter_UsersIndependent(t *testing.T) {
	base := time.Unix(1000, 0)
	r := NewRateLimiter(5*time.Second, nil)
	r.now = func() time.Time { return base }

	if !r.Admit("a") {
		t.Fatal("first call for a rejected")
	}
	if !r.Admit("b") {
		t.Fatal("first call for b rejected")
	}
	if r.Admit("a") {
		t.Error("second immediate call for a admitted")
	}
}

func TestRateLimiter_ConcurrentSameUser(t *testing.T) {
	r := NewRateLimiter(time.Hour, nil)

	const n = 50
	results := make(chan bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- r.Admit("user-1")
		}()
	}
	wg.Wait()
	close(results)

	admitted := 0
	for ok := range results {
		if ok {
			admitted++
		}
	}
	if admitted != 1 {
		t.Errorf("admitted %d concurrent calls within cooldown, expected exactly 1", admitted)
	}
}
