//go:build linux && nativeclipboard

package clipboard

// Type under the nativeclipboard tag avoids uinput typing entirely:
// clipboard write plus a synthetic Ctrl+V.
func Type(text string) error {
	if err := Copy(text); err != nil {
		return err
	}
	return Paste()
}
