package session

import (
	"time"

	"github.com/Omni-crm/talpan-bot-sub000/models"
)

// FrameKind tells which sub-flow a navigation frame belongs to.
type FrameKind string

const (
	FrameOrder    FrameKind = "order"
	FrameCartLine FrameKind = "cart-line"
	FrameEdit     FrameKind = "edit"
)

// Frame records one prior builder state so "back" can restore it, including
// inside nested product-edit flows.
type Frame struct {
	Kind      FrameKind
	State     models.BuilderState
	LineIndex int
	At        time.Time

	// Snapshot is the draft as it was when the frame was pushed; popping the
	// frame restores it wholesale.
	Snapshot models.DraftOrder
}

// NavStack is a bounded LIFO of navigation frames. When the bound is
// exceeded the oldest frame is dropped; back navigation beyond the horizon
// therefore falls back to exiting the flow entirely, never to an error.
type NavStack struct {
	frames []Frame
	depth  int
}

// NewNavStack creates a stack bounded to depth frames.
func NewNavStack(depth int) *NavStack {
	if depth <= 0 {
		depth = 1
	}
	return &NavStack{depth: depth}
}

// Push records a frame, dropping the oldest one when the stack is full.
func (s *NavStack) Push(frame Frame) {
	if frame.At.IsZero() {
		frame.At = time.Now()
	}
	if len(s.frames) == s.depth {
		copy(s.frames, s.frames[1:])
		s.frames = s.frames[:len(s.frames)-1]
	}
	s.frames = append(s.frames, frame)
}

// Pop removes and returns the most recent frame. The second return is false
// when the stack is empty, which callers treat as "exit the flow".
func (s *NavStack) Pop() (Frame, bool) {
	if len(s.frames) == 0 {
		return Frame{}, false
	}
	frame := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return frame, true
}

// Len returns the number of stored frames.
func (s *NavStack) Len() int {
	return len(s.frames)
}

// Clear drops all frames.
func (s *NavStack) Clear() {
	s.frames = s.frames[:0]
}
