package basecall

// Stub is a Caller returning a fixed basecall for any signal of at least
// MinLen samples, and the empty result otherwise.  Tests use it to exercise
// the pipeline without depending on reference-caller output.
type Stub struct {
	Seq, Qual string
	MinLen    int
}

// Call implements Caller.
func (s *Stub) Call(signal []float32) (string, string) {
	if len(signal) < s.MinLen {
		return "", ""
	}
	return s.Seq, s.Qual
}
