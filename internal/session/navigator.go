package session

// Navigator tracks the current position in a fixed-length question list.
// Moves past either end are rejected, never wrapped.
type Navigator struct {
	index  int
	length int
}

func NewNavigator(length int) *Navigator {
	return &Navigator{length: length}
}

func (n *Navigator) CurrentIndex() int { return n.index }
func (n *Navigator) Len() int          { return n.length }
func (n *Navigator) AtLast() bool      { return n.length > 0 && n.index == n.length-1 }

func (n *Navigator) Next() bool { return n.JumpTo(n.index + 1) }

func (n *Navigator) Previous() bool { return n.JumpTo(n.index - 1) }

// JumpTo moves to i if it is in range and differs from the current index.
func (n *Navigator) JumpTo(i int) bool {
	if i < 0 || i >= n.length || i == n.index {
		return false
	}
	n.index = i
	return true
}

// ProgressFraction is (index+1)/length, for display only.
func (n *Navigator) ProgressFraction() float64 {
	if n.length == 0 {
		return 0
	}
	return float64(n.index+1) / float64(n.length)
}
