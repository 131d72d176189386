package model

// Serializer renders a single live entity back to its on-disk XML
// fragment. model depends only on this interface, never on the xmlio
// package itself, since xmlio already imports model to walk its
// arenas — a direct import the other way would cycle. The xmlio
// package supplies the concrete implementation and the host wires it
// in with SetSerializer.
type Serializer interface {
	SerializeEntity(ref Ref) (string, error)
}

// UndoFragment captures one entity's state immediately before a
// mutation. XML is the entity's full serialized form before the
// change, or "" when the entity did not exist before it (an Add),
// meaning undo is simply deleting Ref again.
type UndoFragment struct {
	Ref Ref
	XML string
}

// UndoStack accumulates UndoFragments in mutation order, most recent
// last, so Pop always returns the most recent change first.
type UndoStack struct {
	fragments []UndoFragment
}

func (s *UndoStack) push(f UndoFragment) {
	s.fragments = append(s.fragments, f)
}

// Fragments returns a snapshot of every captured fragment, oldest
// first.
func (s *UndoStack) Fragments() []UndoFragment {
	out := make([]UndoFragment, len(s.fragments))
	copy(out, s.fragments)
	return out
}

// Len reports how many fragments are on the stack.
func (s *UndoStack) Len() int { return len(s.fragments) }

// Pop removes and returns the most recently captured fragment. ok is
// false when the stack is empty.
func (s *UndoStack) Pop() (f UndoFragment, ok bool) {
	if len(s.fragments) == 0 {
		return UndoFragment{}, false
	}
	last := len(s.fragments) - 1
	f = s.fragments[last]
	s.fragments = s.fragments[:last]
	return f, true
}

// Clear discards every captured fragment, called once a save or an
// explicit "clear undo history" action has made the history moot.
func (s *UndoStack) Clear() {
	s.fragments = nil
}

// SetSerializer installs the XML fragment serializer Delete, AddX and
// Rename use to capture undo state. A model with no serializer still
// tracks which Refs changed, but every fragment's XML is "" — undo
// degrades to ref-level redo rather than full reconstruction.
func (m *Model) SetSerializer(s Serializer) {
	m.serializer = s
}

// Undo returns the model's undo history.
func (m *Model) Undo() *UndoStack {
	return &m.undo
}

// captureUndo snapshots ref's current serialized form onto the undo
// stack before the caller mutates or removes it. Call before the
// mutation, not after: the whole point of the fragment is to hold the
// pre-change state.
func (m *Model) captureUndo(ref Ref) {
	var xmlText string
	if m.serializer != nil {
		if s, err := m.serializer.SerializeEntity(ref); err == nil {
			xmlText = s
		}
	}
	m.undo.push(UndoFragment{Ref: ref, XML: xmlText})
}

// captureCreate records that ref was just created and did not exist
// before, so undoing it means deleting it again.
func (m *Model) captureCreate(ref Ref) {
	m.undo.push(UndoFragment{Ref: ref})
}
