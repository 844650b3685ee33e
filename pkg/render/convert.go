package render

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"

	errs "github.com/matzehuels/flowdiagram/pkg/errors"
)

// ConverterBinary is the librsvg tool used for PDF and PNG export.
const ConverterBinary = "rsvg-convert"

// Available reports whether [ConverterBinary] is on the PATH.
func Available() bool {
	_, err := exec.LookPath(ConverterBinary)
	return err == nil
}

// ToPDF converts an SVG diagram to PDF.
func ToPDF(ctx context.Context, svg []byte) ([]byte, error) {
	return convert(ctx, svg, "pdf")
}

// ToPNG converts an SVG diagram to PNG. A scale of 2 doubles the resolution;
// non-positive scales render at 1x.
func ToPNG(ctx context.Context, svg []byte, scale float64) ([]byte, error) {
	if scale <= 0 {
		scale = 1
	}
	return convert(ctx, svg, "png", "-z", strconv.FormatFloat(scale, 'f', 2, 64))
}

func convert(ctx context.Context, svg []byte, format string, extra ...string) ([]byte, error) {
	if !Available() {
		return nil, errs.New(errs.ErrCodeUnsupported,
			"%s export needs %s (brew install librsvg, apt install librsvg2-bin)", format, ConverterBinary)
	}

	cmd := exec.CommandContext(ctx, ConverterBinary, append([]string{"-f", format}, extra...)...)
	cmd.Stdin = bytes.NewReader(svg)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "%s: %s", ConverterBinary, bytes.TrimSpace(stderr.Bytes()))
	}
	return out.Bytes(), nil
}
