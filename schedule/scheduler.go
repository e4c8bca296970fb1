package schedule

import "sort"

// TaskID identifies a scheduled task.
type TaskID uint64

type task struct {
	id       TaskID
	due      uint64
	interval uint64
	fn       func()
}

// Scheduler holds tick-counted tasks. It is not safe for concurrent use. Each
// arena owns one Scheduler and advances it from its own goroutine, which is
// what makes cancellation immediate: a cancelled task never runs again, not
// even later in the same tick.
type Scheduler struct {
	now    uint64
	nextID TaskID
	tasks  map[TaskID]*task
}

// NewScheduler creates an empty Scheduler at tick 0.
func NewScheduler() *Scheduler {
	return &Scheduler{
		tasks: make(map[TaskID]*task),
	}
}

// Now returns the current tick.
func (s *Scheduler) Now() uint64 {
	return s.now
}

func clampTicks(ticks int) uint64 {
	if ticks < 1 {
		return 1
	}
	return uint64(ticks)
}

// After runs the function once after the given amount of ticks. Delays below
// one tick run on the next tick.
func (s *Scheduler) After(delay int, fn func()) TaskID {
	return s.add(clampTicks(delay), 0, fn)
}

// Every runs the function first after the given delay and then every interval
// ticks until cancelled. Values below one tick are clamped to one.
func (s *Scheduler) Every(delay int, interval int, fn func()) TaskID {
	return s.add(clampTicks(delay), clampTicks(interval), fn)
}

func (s *Scheduler) add(delay uint64, interval uint64, fn func()) TaskID {
	s.nextID++
	s.tasks[s.nextID] = &task{
		id:       s.nextID,
		due:      s.now + delay,
		interval: interval,
		fn:       fn,
	}
	return s.nextID
}

// Cancel the task with the given id. It reports whether the task was still
// scheduled.
func (s *Scheduler) Cancel(id TaskID) bool {
	if _, ok := s.tasks[id]; !ok {
		return false
	}
	delete(s.tasks, id)
	return true
}

// CancelAll cancels every task.
func (s *Scheduler) CancelAll() {
	s.tasks = make(map[TaskID]*task)
}

// Active returns the number of scheduled tasks.
func (s *Scheduler) Active() int {
	return len(s.tasks)
}

// Tick advances the Scheduler by one tick and runs all due tasks ordered by
// due tick and creation.
func (s *Scheduler) Tick() {
	s.now++
	due := make([]*task, 0)
	for _, t := range s.tasks {
		if t.due <= s.now {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].id < due[j].id
	})
	for _, t := range due {
		// Cancelled by an earlier task.
		if current, ok := s.tasks[t.id]; !ok || current != t {
			continue
		}
		if t.interval == 0 {
			delete(s.tasks, t.id)
		} else {
			t.due = s.now + t.interval
		}
		t.fn()
	}
}
