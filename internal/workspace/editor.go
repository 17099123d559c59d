package workspace

import "fmt"

// Query returns the editor text.
func (w *Workspace) Query() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.query
}

// SetQuery replaces the editor text.
func (w *Workspace) SetQuery(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.query = text
}

// GenerateQuery overwrites the editor text with a preview query for table
// and returns it.
func (w *Workspace) GenerateQuery(table string) string {
	q := GenerateQuery(table)
	w.SetQuery(q)
	return q
}

// GenerateQuery returns the preview query for table.
func GenerateQuery(table string) string {
	return fmt.Sprintf("SELECT * FROM %s LIMIT 10;", table)
}
