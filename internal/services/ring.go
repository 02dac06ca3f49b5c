package services

// nameRing is a fixed-capacity circular buffer of recent tool-call names,
// used by the loop validator to spot a model calling the same tool over and
// over.
type nameRing struct {
	names []string
	next  int
	full  bool
}

func newNameRing(capacity int) *nameRing {
	if capacity < 1 {
		capacity = 1
	}
	return &nameRing{names: make([]string, capacity)}
}

// Push records a tool name, overwriting the oldest once full
func (r *nameRing) Push(name string) {
	r.names[r.next] = name
	r.next = (r.next + 1) % len(r.names)
	if r.next == 0 {
		r.full = true
	}
}

// Window returns the recorded names oldest-first. Shorter than capacity
// until the ring has filled.
func (r *nameRing) Window() []string {
	if !r.full {
		return append([]string(nil), r.names[:r.next]...)
	}
	window := make([]string, 0, len(r.names))
	window = append(window, r.names[r.next:]...)
	window = append(window, r.names[:r.next]...)
	return window
}

// Len returns the number of recorded names, at most the capacity
func (r *nameRing) Len() int {
	if r.full {
		return len(r.names)
	}
	return r.next
}
