//go:build darwin

package clipboard

// Type has no native injector here; it goes through the clipboard
// and a synthetic Cmd+V.
func Type(text string) error {
	if err := Copy(text); err != nil {
		return err
	}
	return Paste()
}
