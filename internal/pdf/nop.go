package pdf

import "errors"

// ErrUnavailable is returned by the no-op Renderer. The workflow never
// surfaces it — it degrades to sending the email without an attachment.
var ErrUnavailable = errors.New("pdf: rendering disabled")

type nopRenderer struct{}

// NewNop returns a Renderer that reports itself unavailable. Selected at
// startup when PDF_RECEIPTS=false.
func NewNop() Renderer {
	return nopRenderer{}
}

func (nopRenderer) Enabled() bool { return false }

func (nopRenderer) Render(Receipt) ([]byte, error) {
	return nil, ErrUnavailable
}
