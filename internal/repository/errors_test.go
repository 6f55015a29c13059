package repository_test

import (
    "errors"
    "testing"

    "github.com/iliyamo/warehouse-pick-queue/internal/model"
    "github.com/iliyamo/warehouse-pick-queue/internal/repository"
)

func TestClaimable(t *testing.T) {
    cases := []struct {
        status model.OrderStatus
        want   error
    }{
        {model.StatusQueued, nil},
        {model.StatusInProgress, repository.ErrAlreadyPicking},
        {model.StatusCompleted, repository.ErrAlreadyCompleted},
        {model.StatusDraft, repository.ErrInvalidState},
        {model.StatusCancelled, repository.ErrInvalidState},
    }
    for _, c := range cases {
        got := repository.Claimable(c.status)
        if c.want == nil {
            if got != nil {
                t.Errorf("Claimable(%s) = %v, want nil", c.status, got)
            }
            continue
        }
        if !errors.Is(got, c.want) {
            t.Errorf("Claimable(%s) = %v, want %v", c.status, got, c.want)
        }
    }
}
