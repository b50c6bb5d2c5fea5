package docstore

// OpKind identifies a batch operation.
type OpKind string

const (
	OpUpsert OpKind = "upsert"
	OpDelete OpKind = "delete"
)

// Op is one staged mutation.
type Op struct {
	Kind    OpKind `json:"kind" yaml:"kind"`
	Name    string `json:"name" yaml:"name"`
	Content string `json:"-" yaml:"-"`
}

// Batch is an ordered list of mutations against one collection. Nothing
// reaches the store until the batch is committed.
type Batch struct {
	CollectionID string
	ops          []Op
}

// NewBatch begins an update of the collection.
func NewBatch(collectionID string) *Batch {
	return &Batch{CollectionID: collectionID}
}

// Upsert stages creation or replacement of a document.
func (b *Batch) Upsert(name, content string) {
	b.ops = append(b.ops, Op{Kind: OpUpsert, Name: name, Content: content})
}

// Delete stages removal of a document.
func (b *Batch) Delete(name string) {
	b.ops = append(b.ops, Op{Kind: OpDelete, Name: name})
}

// Ops returns a copy of the staged operations in order.
func (b *Batch) Ops() []Op {
	return append([]Op(nil), b.ops...)
}

// Len returns the number of staged operations.
func (b *Batch) Len() int {
	return len(b.ops)
}

// Apply replays the batch onto a copy of c and returns the result. Later
// operations on the same name win.
func (b *Batch) Apply(c Collection) Collection {
	out := make(Collection, len(c))
	for name, content := range c {
		out[name] = content
	}
	for _, op := range b.ops {
		switch op.Kind {
		case OpUpsert:
			out[op.Name] = op.Content
		case OpDelete:
			delete(out, op.Name)
		}
	}
	return out
}
