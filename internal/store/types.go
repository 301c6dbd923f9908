package store

import "fmt"

// Document is a stored record addressed by collection and id.
type Document struct {
	ID   string
	Data map[string]any
}

// Merged returns the document fields with "id" set to the document id.
// A stored "id" field takes precedence over the document id.
func (d Document) Merged() map[string]any {
	out := make(map[string]any, len(d.Data)+1)
	out["id"] = d.ID
	for k, v := range d.Data {
		out[k] = v
	}
	return out
}

// WriteKind is the type of a batched write.
type WriteKind int

const (
	// WriteSet is a full-document overwrite.
	WriteSet WriteKind = iota

	// WriteDelete removes a document.
	WriteDelete
)

func (k WriteKind) String() string {
	switch k {
	case WriteSet:
		return "set"
	case WriteDelete:
		return "delete"
	default:
		return fmt.Sprintf("WriteKind(%d)", int(k))
	}
}

// Write is a single operation scheduled in a Batch.
type Write struct {
	Kind       WriteKind
	Collection string
	ID         string
	Data       map[string]any // nil for deletes
}

// Batch collects writes that are committed together.
// A Batch is not safe for concurrent use.
type Batch struct {
	writes []Write
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Set schedules a full-document write.
func (b *Batch) Set(collection, id string, data map[string]any) *Batch {
	b.writes = append(b.writes, Write{Kind: WriteSet, Collection: collection, ID: id, Data: data})
	return b
}

// Delete schedules a document deletion.
func (b *Batch) Delete(collection, id string) *Batch {
	b.writes = append(b.writes, Write{Kind: WriteDelete, Collection: collection, ID: id})
	return b
}

// Writes returns the scheduled writes in order.
func (b *Batch) Writes() []Write {
	return b.writes
}

// Len returns the number of scheduled writes.
func (b *Batch) Len() int {
	return len(b.writes)
}

// Validate checks every scheduled write has an id.
func (b *Batch) Validate() error {
	for i, w := range b.writes {
		if err := CheckID(w.ID); err != nil {
			return fmt.Errorf("write %d (%s): %w", i, w.Kind, err)
		}
	}
	return nil
}
