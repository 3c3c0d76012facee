package qr

import (
	"strings"

	qrcode "github.com/skip2/go-qrcode"
	rscqr "rsc.io/qr"
)

const (
	PrimaryRendererName   = "go-qrcode"
	SecondaryRendererName = "rsc-qr"
	TextRendererName      = "text"

	// DefaultPNGSize is the image size in pixels
	DefaultPNGSize = 256
)

// PrimaryRenderer encodes with github.com/skip2/go-qrcode
type PrimaryRenderer struct {
	size int
}

// NewPrimaryRenderer creates the primary renderer producing size x size images
func NewPrimaryRenderer(size int) *PrimaryRenderer {
	if size <= 0 {
		size = DefaultPNGSize
	}
	return &PrimaryRenderer{size: size}
}

func (r *PrimaryRenderer) Name() string { return PrimaryRendererName }

func (r *PrimaryRenderer) Render(content string) (Widget, error) {
	code, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return Widget{}, err
	}
	png, err := code.PNG(r.size)
	if err != nil {
		return Widget{}, err
	}
	return Widget{PNG: png, Art: code.ToSmallString(false)}, nil
}

// SecondaryRenderer encodes with rsc.io/qr
type SecondaryRenderer struct{}

// NewSecondaryRenderer creates the secondary renderer
func NewSecondaryRenderer() *SecondaryRenderer {
	return &SecondaryRenderer{}
}

func (r *SecondaryRenderer) Name() string { return SecondaryRendererName }

func (r *SecondaryRenderer) Render(content string) (Widget, error) {
	code, err := rscqr.Encode(content, rscqr.M)
	if err != nil {
		return Widget{}, err
	}
	return Widget{PNG: code.PNG(), Art: halfBlocks(code)}, nil
}

// halfBlocks draws two module rows per text line with a quiet zone of 2
func halfBlocks(code *rscqr.Code) string {
	const quiet = 2
	black := func(x, y int) bool {
		if x < 0 || y < 0 || x >= code.Size || y >= code.Size {
			return false
		}
		return code.Black(x, y)
	}

	var sb strings.Builder
	for y := -quiet; y < code.Size+quiet; y += 2 {
		for x := -quiet; x < code.Size+quiet; x++ {
			top, bottom := black(x, y), black(x, y+1)
			switch {
			case top && bottom:
				sb.WriteRune(' ')
			case top:
				sb.WriteRune('▄')
			case bottom:
				sb.WriteRune('▀')
			default:
				sb.WriteRune('█')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// TextRenderer shows the content as selectable text. It never fails.
type TextRenderer struct{}

func (TextRenderer) Name() string { return TextRendererName }

func (TextRenderer) Render(content string) (Widget, error) {
	return Widget{Art: content}, nil
}
