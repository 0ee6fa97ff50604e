package dispatch

import (
	"context"
	"testing"
	"time"
)

func TestFixedDelay(t *testing.T) {
	d := FixedDelay(2 * time.Second)
	for i := 0; i < 3; i++ {
		if got := d.Next(); got != 2*time.Second {
			t.Fatalf("Next() = %v, want 2s", got)
		}
	}
}

func TestJitterDelayStaysInRange(t *testing.T) {
	d := JitterDelay{Min: 3 * time.Second, Max: 5 * time.Second}
	for i := 0; i < 200; i++ {
		got := d.Next()
		if got < d.Min || got > d.Max {
			t.Fatalf("Next() = %v, outside [%v, %v]", got, d.Min, d.Max)
		}
	}
}

func TestJitterDelayDegenerateRange(t *testing.T) {
	d := JitterDelay{Min: time.Second, Max: time.Second}
	if got := d.Next(); got != time.Second {
		t.Fatalf("Next() = %v, want 1s", got)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Wait(ctx, time.Minute); err == nil {
		t.Fatal("expected context error")
	}
}

func TestWaitZeroDuration(t *testing.T) {
	if err := Wait(context.Background(), 0); err != nil {
		t.Fatalf("Wait(0) = %v", err)
	}
}
