package model

import (
	"fmt"
	"math/rand/v2"
)

type SyntheticParams struct {
	Classes  int
	Subjects int
	Rooms    int
	// Share of each class's weekly slots filled with lessons, in (0, 1]
	Load float64
	Seed uint64
	// Zero means DefaultCalendar
	Calendar Calendar
}

// SyntheticSnapshot generates a snapshot which passes Validate: classes alternate between shifts, every
// class takes every subject for at most one lesson a day, and each subject gets enough qualified
// teachers to cover its demand
func SyntheticSnapshot(params SyntheticParams) Snapshot {
	random := rand.New(rand.NewPCG(params.Seed, params.Seed^0x9e3779b97f4a7c15))
	calendar := params.Calendar
	if len(calendar.Weekdays) == 0 {
		calendar = DefaultCalendar()
	}
	load := params.Load
	if load <= 0 || load > 1 {
		load = 0.6
	}
	difficulties := []Difficulty{Easy, Medium, Hard}
	shifts := calendar.ShiftNames()
	weekdays := uint64(len(calendar.Weekdays))

	snapshot := Snapshot{Calendar: calendar}
	for subject := range params.Subjects {
		snapshot.Subjects = append(snapshot.Subjects, Subject{
			Id:         uint64(subject + 1),
			Name:       fmt.Sprintf("Subject %d", subject+1),
			Difficulty: difficulties[random.IntN(len(difficulties))],
		})
	}

	demand := make([]uint64, params.Subjects)
	for class := range params.Classes {
		shift := shifts[class%len(shifts)]
		snapshot.Classes = append(snapshot.Classes, SchoolClass{
			Id:     uint64(class + 1),
			Grade:  uint64(class/len(shifts) + 1),
			Letter: string(rune('A' + class%len(shifts))),
			Shift:  shift,
		})

		budget := uint64(load * float64(calendar.WeeklySlots(shift)))
		for _, subject := range random.Perm(params.Subjects) {
			if budget == 0 {
				break
			}
			hours := min(1+random.Uint64N(weekdays), budget)
			budget -= hours
			demand[subject] += hours
			snapshot.Requirements = append(snapshot.Requirements, HoursRequirement{
				Class:   uint64(class + 1),
				Subject: uint64(subject + 1),
				Hours:   hours,
			})
		}
	}

	// Counting half the capacity per teacher leaves room for the per timeslot limits
	step := max(calendar.TeacherCapacity()/2, 1)
	for subject := range params.Subjects {
		for covered := uint64(0); covered == 0 || covered < demand[subject]; covered += step {
			id := uint64(len(snapshot.Teachers) + 1)
			snapshot.Teachers = append(snapshot.Teachers, TeacherProfile{
				Id:       id,
				Name:     fmt.Sprintf("Teacher %d", id),
				Subjects: []uint64{uint64(subject + 1)},
			})
		}
	}

	for room := range params.Rooms {
		subjects := []uint64{}
		if room%2 == 1 && params.Subjects > 0 {
			subjects = append(subjects, uint64(random.IntN(params.Subjects)+1))
		}
		snapshot.Rooms = append(snapshot.Rooms, Room{Id: uint64(room + 1), Name: fmt.Sprintf("Room %d", room+1), Subjects: subjects})
	}

	return snapshot
}
