//go:build !gosseract

package ocr

import "fmt"

// NewGosseract reports ErrUnavailable unless the binary was built with the
// "gosseract" tag (which requires cgo and libtesseract headers):
//
//	go build -tags gosseract ./src/cmd/cli
func NewGosseract(lang string) (Engine, error) {
	return nil, fmt.Errorf("%w: built without the gosseract tag", ErrUnavailable)
}
