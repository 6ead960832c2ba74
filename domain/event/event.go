package event

// Collection names one record collection of the directory store.
type Collection string

const (
	Users    Collection = "users"
	Chats    Collection = "chats"
	Messages Collection = "messages"
	Profiles Collection = "profiles"
)

// Streamed lists the collections a session keeps a live view of.
var Streamed = []Collection{Users, Chats, Messages}

// Document is a schemaless store record.
type Document map[string]any

// Record is one keyed document inside a snapshot.
type Record struct {
	Key      string
	Document Document
}

// Snapshot is the full current content of a collection, in store emission order.
type Snapshot struct {
	Collection Collection
	Records    []Record
}

func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.Records))
	for _, r := range s.Records {
		keys = append(keys, r.Key)
	}
	return keys
}

// Change is what a subscription delivers: either a snapshot or a stream error.
type Change struct {
	Snapshot Snapshot
	Err      error
}
