package app

import (
	"context"

	"lumberyard/internal/core"
)

// authorize returns the caller from ctx when the policy grants action.
func (s *appService) authorize(ctx context.Context, action core.Action) (core.Actor, error) {
	actor, ok := core.ActorFromContext(ctx)
	if !ok {
		return core.Actor{}, core.Forbiddenf("authentication required")
	}
	if !s.policy.CanPerform(actor, action) {
		return core.Actor{}, core.Forbiddenf("role %q may not perform %s", actor.Role, action)
	}
	return actor, nil
}

// authorizeAt additionally requires access to locationID.
func (s *appService) authorizeAt(ctx context.Context, action core.Action, locationID int) (core.Actor, error) {
	actor, err := s.authorize(ctx, action)
	if err != nil {
		return core.Actor{}, err
	}
	if err := s.checkLocation(actor, locationID); err != nil {
		return core.Actor{}, err
	}
	return actor, nil
}

// authorizeList checks the location filter when one is given. Unfiltered
// listings are trimmed to the caller's locations afterwards.
func (s *appService) authorizeList(ctx context.Context, action core.Action, locationID *int) (core.Actor, error) {
	if locationID != nil {
		return s.authorizeAt(ctx, action, *locationID)
	}
	return s.authorize(ctx, action)
}

// locationScope is the location filter for queries that cannot be trimmed
// after paging: nil when the actor sees every location, otherwise a non-nil
// (possibly empty) list.
func (s *appService) locationScope(actor core.Actor) []int {
	ids, all := s.policy.LocationScope(actor)
	if all {
		return nil
	}
	if ids == nil {
		return []int{}
	}
	return ids
}

func (s *appService) checkLocation(actor core.Actor, locationID int) error {
	if !s.policy.CanAccessLocation(actor, locationID) {
		return core.Forbiddenf("no access to location %d", locationID)
	}
	return nil
}
