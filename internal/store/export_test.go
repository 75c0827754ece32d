package store

// SetRenameFile replaces the file rename used by Compact and returns a
// func restoring the original.
func SetRenameFile(f func(oldpath, newpath string) error) (restore func()) {
	prev := renameFile
	renameFile = f
	return func() { renameFile = prev }
}
