package drawing

import "sync"

// Document is a client-side replica of the shared element list plus a
// local undo/redo history. Local mutations snapshot the current
// elements onto the undo stack; mutations replayed from the relay for
// other authors bypass history entirely, so undoing never removes
// another participant's work.
//
// Safe for concurrent use: the sync client's reader goroutine applies
// remote mutations while the owner issues local ones.
type Document struct {
	mu        sync.Mutex
	elements  []Element
	undoStack [][]Element
	redoStack [][]Element
}

func NewDocument() *Document {
	return &Document{}
}

// Elements returns a copy of the current element list.
func (d *Document) Elements() []Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Element, len(d.elements))
	copy(out, d.elements)
	return out
}

func (d *Document) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.elements)
}

// Add appends a locally drawn element and records an undo step.
func (d *Document) Add(el Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pushHistory()
	d.elements = append(d.elements, el)
}

// Remove deletes the first element with the given id and records an
// undo step. Removing an absent id leaves the elements unchanged but
// still records the step.
func (d *Document) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pushHistory()
	d.elements = removeByID(d.elements, id)
}

// Clear empties the element list and records an undo step.
func (d *Document) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pushHistory()
	d.elements = nil
}

// Update merges patch into the element with the matching id. No undo
// step is recorded and an unknown id is a no-op.
func (d *Document) Update(id string, patch Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements = mergeByID(d.elements, id, patch)
}

// Undo restores the most recent snapshot. No-op when there is nothing
// to undo.
func (d *Document) Undo() {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.undoStack)
	if n == 0 {
		return
	}
	prev := d.undoStack[n-1]
	d.undoStack = d.undoStack[:n-1]
	d.redoStack = append([][]Element{snapshot(d.elements)}, d.redoStack...)
	d.elements = prev
}

// Redo re-applies the most recently undone snapshot. No-op when the
// redo stack is empty.
func (d *Document) Redo() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.redoStack) == 0 {
		return
	}
	next := d.redoStack[0]
	d.redoStack = d.redoStack[1:]
	d.undoStack = append(d.undoStack, snapshot(d.elements))
	d.elements = next
}

func (d *Document) CanUndo() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.undoStack) > 0
}

func (d *Document) CanRedo() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.redoStack) > 0
}

// HistoryLen reports the undo and redo stack depths.
func (d *Document) HistoryLen() (undo, redo int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.undoStack), len(d.redoStack)
}

// ApplyRemoteAdd appends an element relayed from another participant.
// No history step is recorded; the element is also folded into every
// stored snapshot so that a later local undo cannot remove it.
func (d *Document) ApplyRemoteAdd(el Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements = append(d.elements, el)
	for i := range d.undoStack {
		d.undoStack[i] = append(d.undoStack[i], el)
	}
	for i := range d.redoStack {
		d.redoStack[i] = append(d.redoStack[i], el)
	}
}

// ApplyRemoteRemove deletes by id from the elements and from every
// stored snapshot, without recording a history step.
func (d *Document) ApplyRemoteRemove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements = removeByID(d.elements, id)
	for i := range d.undoStack {
		d.undoStack[i] = removeByID(d.undoStack[i], id)
	}
	for i := range d.redoStack {
		d.redoStack[i] = removeByID(d.redoStack[i], id)
	}
}

// ApplyRemoteUpdate merges by id into the elements and every stored
// snapshot, without recording a history step.
func (d *Document) ApplyRemoteUpdate(id string, patch Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements = mergeByID(d.elements, id, patch)
	for i := range d.undoStack {
		d.undoStack[i] = mergeByID(d.undoStack[i], id, patch)
	}
	for i := range d.redoStack {
		d.redoStack[i] = mergeByID(d.redoStack[i], id, patch)
	}
}

// ApplyRemoteClear empties the element list without touching history.
func (d *Document) ApplyRemoteClear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements = nil
}

// ReplaceAll resets the replica to a full snapshot from the relay,
// discarding local history. Used when applying initial_state.
func (d *Document) ReplaceAll(elements []Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements = snapshot(elements)
	d.undoStack = nil
	d.redoStack = nil
}

// pushHistory snapshots the current elements onto the undo stack and
// invalidates any pending redo. Callers hold d.mu.
func (d *Document) pushHistory() {
	d.undoStack = append(d.undoStack, snapshot(d.elements))
	d.redoStack = nil
}

func snapshot(elements []Element) []Element {
	out := make([]Element, len(elements))
	copy(out, elements)
	return out
}

func removeByID(elements []Element, id string) []Element {
	for i := range elements {
		if elements[i].ID == id {
			return append(elements[:i:i], elements[i+1:]...)
		}
	}
	return elements
}

// mergeByID overwrites the fields of the matching element that the
// patch actually carries, leaving the rest intact.
func mergeByID(elements []Element, id string, patch Element) []Element {
	for i := range elements {
		if elements[i].ID != id {
			continue
		}
		el := elements[i]
		if patch.Type != "" {
			el.Type = patch.Type
		}
		if patch.Points != nil {
			el.Points = patch.Points
		}
		if patch.Style != (Style{}) {
			el.Style = patch.Style
		}
		if patch.Text != "" {
			el.Text = patch.Text
		}
		elements[i] = el
		break
	}
	return elements
}
