// Package font provides the embedded label face used for card text and
// image placeholders.
package font

import (
	"fmt"
	"sync"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	once   sync.Once
	source *text.FontSource
	errSrc error
)

// Source returns the parsed Go Regular font, loading it on first use.
func Source() (*text.FontSource, error) {
	once.Do(func() {
		source, errSrc = text.NewFontSource(goregular.TTF)
		if errSrc != nil {
			errSrc = fmt.Errorf("font: load goregular: %w", errSrc)
		}
	})
	return source, errSrc
}

// Face returns a face of the given size, or nil when the font cannot be
// loaded. gg.Context.DrawString ignores a nil face.
func Face(size float64) text.Face {
	src, err := Source()
	if err != nil {
		return nil
	}
	return src.Face(size)
}
