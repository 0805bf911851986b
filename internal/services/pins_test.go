package services

import (
	"reflect"
	"testing"
	"time"

	"roehampton-community-directory/internal/models"
)

func TestTogglePinTwiceIsNoOp(t *testing.T) {
	set := models.NewPinSet()
	set = TogglePin(set, 5)
	set = TogglePin(set, 5)

	if len(set) != 0 {
		t.Errorf("Toggling twice should restore the original set, got %v", set.IDs())
	}
}

func TestTogglePinDoesNotMutateInput(t *testing.T) {
	original := models.NewPinSet()
	original[3] = struct{}{}

	next := TogglePin(original, 7)

	if !original.Contains(3) || original.Contains(7) {
		t.Error("TogglePin must not mutate the input set")
	}
	if !next.Contains(3) || !next.Contains(7) {
		t.Errorf("New set should contain both ids, got %v", next.IDs())
	}
}

func TestClearPins(t *testing.T) {
	set := TogglePin(TogglePin(models.NewPinSet(), 1), 2)
	cleared := ClearPins(set)

	if len(cleared) != 0 {
		t.Errorf("ClearPins should return an empty set, got %v", cleared.IDs())
	}
	if len(set) != 2 {
		t.Error("ClearPins must not mutate the input set")
	}
}

func TestIsPinned(t *testing.T) {
	set := TogglePin(models.NewPinSet(), 4)
	if !IsPinned(set, 4) {
		t.Error("Expected id 4 to be pinned")
	}
	if IsPinned(set, 5) {
		t.Error("Expected id 5 not to be pinned")
	}
}

func TestPinnedActivitiesPreservesOrder(t *testing.T) {
	activities := []models.Activity{{ID: 1}, {ID: 2}, {ID: 3}}
	set := TogglePin(TogglePin(models.NewPinSet(), 3), 1)

	pinned := PinnedActivities(activities, set)
	if !reflect.DeepEqual(activityIDs(pinned), []int{1, 3}) {
		t.Errorf("Pinned slice should preserve canonical order, got %v", activityIDs(pinned))
	}
}

func TestPinSessionStoreToggleAndClear(t *testing.T) {
	store := NewPinSessionStoreWithTTL(time.Hour)
	session := store.NewSession()

	pins := store.Toggle(session, 10)
	if !pins.Contains(10) {
		t.Error("Toggle should pin the activity")
	}

	pins = store.Toggle(session, 10)
	if pins.Contains(10) {
		t.Error("Second toggle should unpin the activity")
	}

	store.Toggle(session, 1)
	store.Toggle(session, 2)
	store.Clear(session)
	if len(store.Pins(session)) != 0 {
		t.Error("Clear should empty the session's pins")
	}
}

func TestPinSessionStoreIsolatesSessions(t *testing.T) {
	store := NewPinSessionStoreWithTTL(time.Hour)
	first := store.NewSession()
	second := store.NewSession()

	store.Toggle(first, 1)

	if store.Pins(second).Contains(1) {
		t.Error("Sessions must not share pin sets")
	}
}

func TestPinSessionStoreExpiry(t *testing.T) {
	store := NewPinSessionStoreWithTTL(time.Millisecond)
	session := store.NewSession()
	store.Toggle(session, 1)

	time.Sleep(5 * time.Millisecond)

	if len(store.Pins(session)) != 0 {
		t.Error("Idle session should expire and come back empty")
	}
}
