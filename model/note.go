package model

// Note is a free-text annotation anchored to an entity (or to nothing,
// for a free-floating note).
type Note struct {
	ID     ID
	Code   string
	Text   string
	Anchor Ref
}

func NewNote(id ID, code, text string) *Note {
	return &Note{ID: id, Code: code, Text: text}
}
