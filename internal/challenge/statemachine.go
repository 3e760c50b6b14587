package challenge

import (
	"errors"
	"fmt"
)

var (
	// ErrChallengeOver reports a transition attempted on a completed or
	// canceled challenge.
	ErrChallengeOver = errors.New("challenge is already over")
	// ErrInvalidTransition reports a transition from the wrong status.
	ErrInvalidTransition = errors.New("invalid challenge status transition")
)

func (c *Challenge) ensureLive() error {
	if c.Status == StatusCompleted || c.Status == StatusCanceled {
		return ErrChallengeOver
	}
	return nil
}

// Accept moves a freshly issued challenge to ACCEPTED.
func (c *Challenge) Accept() error {
	if err := c.ensureLive(); err != nil {
		return err
	}
	if c.Status != StatusWaitingAccept {
		return fmt.Errorf("%w: accept from %s", ErrInvalidTransition, c.Status)
	}
	c.Status = StatusAccepted
	return nil
}

// Start moves an accepted challenge to PENDING, making it eligible for a live
// duel session.
func (c *Challenge) Start() error {
	if err := c.ensureLive(); err != nil {
		return err
	}
	if c.Status != StatusAccepted {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, c.Status)
	}
	c.Status = StatusPending
	return nil
}

// Complete finishes a pending challenge, recording the winner's account id or,
// when winnerAccountID is nil, a draw.
func (c *Challenge) Complete(winnerAccountID *string) error {
	if err := c.ensureLive(); err != nil {
		return err
	}
	if c.Status != StatusPending {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, c.Status)
	}
	c.Status = StatusCompleted
	if winnerAccountID != nil {
		c.WinnerAccountID = winnerAccountID
	} else {
		c.Draw = true
	}
	return nil
}

// Cancel terminates a challenge in any live status.
func (c *Challenge) Cancel() error {
	if err := c.ensureLive(); err != nil {
		return err
	}
	c.Status = StatusCanceled
	return nil
}
