package decode

// LooksStructured reports whether the first non-whitespace byte of body is
// '{' or '['. Only space, tab, CR and LF count as whitespace.
func LooksStructured(body []byte) bool {
	for _, b := range body {
		switch b {
		case ' ', '\n', '\t', '\r':
			continue
		case '{', '[':
			return true
		default:
			return false
		}
	}
	return false
}
