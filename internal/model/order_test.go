package model

import "testing"

func TestCanTransition(t *testing.T) {
    cases := []struct {
        from, to OrderStatus
        want     bool
    }{
        {StatusDraft, StatusQueued, true},
        {StatusDraft, StatusCancelled, true},
        {StatusDraft, StatusInProgress, false},
        {StatusDraft, StatusCompleted, false},
        {StatusQueued, StatusInProgress, true},
        {StatusQueued, StatusDraft, true},
        {StatusQueued, StatusCancelled, true},
        {StatusQueued, StatusCompleted, false},
        {StatusInProgress, StatusCompleted, true},
        {StatusInProgress, StatusDraft, true},
        {StatusInProgress, StatusQueued, false},
        {StatusInProgress, StatusCancelled, false},
        {StatusCompleted, StatusQueued, false},
        {StatusCompleted, StatusDraft, false},
        {StatusCancelled, StatusQueued, false},
        {OrderStatus("bogus"), StatusQueued, false},
    }
    for _, c := range cases {
        if got := CanTransition(c.from, c.to); got != c.want {
            t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
        }
    }
}

func TestStatusValid(t *testing.T) {
    for _, s := range []OrderStatus{StatusDraft, StatusQueued, StatusInProgress, StatusCompleted, StatusCancelled} {
        if !s.Valid() {
            t.Errorf("%s should be valid", s)
        }
    }
    if OrderStatus("").Valid() {
        t.Error("empty status should not be valid")
    }
    if OrderStatus("shipped").Valid() {
        t.Error("unknown status should not be valid")
    }
}

func TestInQueue(t *testing.T) {
    if !StatusQueued.InQueue() || !StatusInProgress.InQueue() {
        t.Error("queued and in_progress should be in the queue")
    }
    for _, s := range []OrderStatus{StatusDraft, StatusCompleted, StatusCancelled} {
        if s.InQueue() {
            t.Errorf("%s should not be in the queue", s)
        }
    }
}
