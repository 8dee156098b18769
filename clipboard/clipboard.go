// Package clipboard holds the low-level text injection primitives:
// system clipboard access plus synthetic Type/Paste keystrokes. The
// output package picks between them per the configured method.
package clipboard

import cb "github.com/atotto/clipboard"

func Read() (string, error) {
	return cb.ReadAll()
}

func Copy(text string) error {
	return cb.WriteAll(text)
}
