package crdt

// Record is one comment: an opaque id, a text, and any caller fields
type Record map[string]interface{}

// ID returns the record id, or "" when absent or not a string
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Text returns the record text
func (r Record) Text() string {
	text, _ := r["text"].(string)
	return text
}

// Clone returns a shallow copy
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// CloneList copies every record in list
func CloneList(list []Record) []Record {
	out := make([]Record, len(list))
	for i, r := range list {
		out[i] = r.Clone()
	}
	return out
}

// IndexOf returns the position of the first record with id, or -1
func IndexOf(list []Record, id string) int {
	for i, r := range list {
		if r.ID() == id {
			return i
		}
	}
	return -1
}
