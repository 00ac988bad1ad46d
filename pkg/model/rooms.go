package model

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/onsi/gomega/matchers/support/goraph/bipartitegraph"
	"github.com/samber/lo"
)

type RoomPolicy string

const (
	// Lessons get no room
	RoomsNone RoomPolicy = "none"
	// Every lesson gets the first room of the snapshot, regardless of overlaps
	RoomsFirst RoomPolicy = "first"
	// Lessons sharing a timeslot get distinct rooms equipped for their subject as far as a maximum
	// matching allows; unmatched lessons get no room
	RoomsMatching RoomPolicy = "matching"
)

var RoomPolicies = []RoomPolicy{RoomsNone, RoomsFirst, RoomsMatching}

// AssignRooms returns a copy of the timetable with advisory rooms attached according to the policy. Rooms
// never make a timetable invalid.
func AssignRooms(snapshot Snapshot, timetable Timetable, policy RoomPolicy) (Timetable, error) {
	assigned := slices.Clone(timetable)
	for i := range assigned {
		assigned[i].Room = nil
	}

	switch policy {
	case RoomsNone:
		return assigned, nil
	case RoomsFirst:
		if len(snapshot.Rooms) == 0 {
			return assigned, nil
		}
		for i := range assigned {
			room := snapshot.Rooms[0].Id
			assigned[i].Room = &room
		}
		return assigned, nil
	case RoomsMatching:
		return assigned, matchRooms(snapshot.Rooms, assigned)
	default:
		return nil, fmt.Errorf("unknown room policy \"%v\", available policies are %v", policy, RoomPolicies)
	}
}

// matchRooms assigns rooms timeslot by timeslot through a maximum bipartite matching between the lessons
// of the timeslot and the rooms serving their subjects
func matchRooms(rooms []Room, timetable Timetable) error {
	if len(rooms) == 0 {
		return nil
	}

	timeslots := lo.GroupBy(lo.Range(len(timetable)), func(i int) TimeSlot { return timetable[i].TimeSlot() })
	keys := lo.Keys(timeslots)
	slices.SortFunc(keys, func(a, b TimeSlot) int {
		return cmp.Or(cmp.Compare(a.Weekday, b.Weekday), cmp.Compare(a.Lesson, b.Lesson))
	})

	for _, key := range keys {
		lessons := timeslots[key]

		// Build neighbors predicate based on the subjects each room serves
		neighbors := func(lessonAny any, roomAny any) (bool, error) {
			lesson := timetable[lessonAny.(int)]
			room := roomAny.(Room)
			return room.Serves(lesson.Subject), nil
		}

		// Transform lessons and rooms to slices of any
		lessonsAny, roomsAny := lo.Map(lessons, func(lesson int, _ int) any { return lesson }), lo.Map(rooms, func(room Room, _ int) any { return room })

		graph, err := bipartitegraph.NewBipartiteGraph(lessonsAny, roomsAny, neighbors)
		if err != nil {
			return err
		}

		for _, edge := range graph.LargestMatching() {
			lessonIndex, roomIndex := edge.Node1, edge.Node2-len(lessons)
			room := rooms[roomIndex].Id
			timetable[lessons[lessonIndex]].Room = &room
		}
	}
	return nil
}
