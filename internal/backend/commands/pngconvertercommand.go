package commands

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/jo-hoe/visionassist/internal/backend/commandstructure"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	PngConverterCommandName = "PngConverterCommand"

	defaultSvgFallbackSize = 1024
	defaultSvgMaxSize      = 2048
	// Only the head of an upload is inspected for SVG markers
	svgSniffLength = 4096
)

// ErrUnsupportedImage is returned for uploads no registered decoder understands
var ErrUnsupportedImage = errors.New("unsupported image format")

var (
	pngSignature   = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	svgWidthAttr   = regexp.MustCompile(`(?i)\swidth\s*=\s*["']\s*([0-9]+)`)
	svgHeightAttr  = regexp.MustCompile(`(?i)\sheight\s*=\s*["']\s*([0-9]+)`)
	svgStartTag    = regexp.MustCompile(`(?is)<svg[^>]*>`)
	svgNamespaceRe = regexp.MustCompile(`(?i)xmlns\s*=\s*["']http://www\.w3\.org/2000/svg["']`)
)

// hasCorrectPngSignature checks whether the provided data begins with a valid PNG signature
func hasCorrectPngSignature(data []byte) bool {
	return len(data) >= len(pngSignature) && bytes.Equal(data[:len(pngSignature)], pngSignature)
}

// PngConverterCommand re-encodes any supported upload as PNG
type PngConverterCommand struct {
	name              string
	svgFallbackWidth  int
	svgFallbackHeight int
	svgMaxWidth       int
	svgMaxHeight      int
}

// NewPngConverterCommand creates a new PNG converter command. The optional
// svgFallbackWidth/svgFallbackHeight are used for SVGs without explicit size;
// svgMaxWidth/svgMaxHeight bound the canvas any SVG is rasterised onto.
func NewPngConverterCommand(params map[string]any) (commandstructure.Command, error) {
	w := commandstructure.GetIntParam(params, "svgFallbackWidth", defaultSvgFallbackSize)
	h := commandstructure.GetIntParam(params, "svgFallbackHeight", defaultSvgFallbackSize)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("svg fallback size must be positive, got %dx%d", w, h)
	}
	maxW := commandstructure.GetIntParam(params, "svgMaxWidth", defaultSvgMaxSize)
	maxH := commandstructure.GetIntParam(params, "svgMaxHeight", defaultSvgMaxSize)
	if maxW <= 0 || maxH <= 0 {
		return nil, fmt.Errorf("svg max size must be positive, got %dx%d", maxW, maxH)
	}
	if err := checkPixelLimit(maxW, maxH); err != nil {
		return nil, err
	}

	return &PngConverterCommand{
		name:              PngConverterCommandName,
		svgFallbackWidth:  w,
		svgFallbackHeight: h,
		svgMaxWidth:       maxW,
		svgMaxHeight:      maxH,
	}, nil
}

// Name returns the command name
func (c *PngConverterCommand) Name() string {
	return c.name
}

func (c *PngConverterCommand) Execute(imageData []byte) ([]byte, error) {
	if hasCorrectPngSignature(imageData) {
		cfg, err := png.DecodeConfig(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
		}
		if err := checkPixelLimit(cfg.Width, cfg.Height); err != nil {
			return nil, err
		}
		slog.Debug("PngConverterCommand: PNG detected; returning original bytes")
		return imageData, nil
	}

	if isSVGData(imageData) {
		return c.convertSVG(imageData)
	}

	img, format, err := decodeBounded(imageData)
	if err != nil {
		return nil, err
	}
	slog.Debug("PngConverterCommand: decoded raster image",
		"format", format,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())

	out, err := encodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image to PNG: %w", err)
	}
	return out, nil
}

func (c *PngConverterCommand) convertSVG(imageData []byte) ([]byte, error) {
	w, h, ok := parseSvgExplicitSize(imageData)
	if !ok {
		w, h = c.svgFallbackWidth, c.svgFallbackHeight
	}
	// the declared size is untrusted; rasterise straight into the bounding box
	w, h = computeFitDimensions(w, h, c.svgMaxWidth, c.svgMaxHeight)
	slog.Debug("PngConverterCommand: rendering SVG", "width", w, "height", h, "explicit_size", ok)

	out, err := renderSVGToPNG(imageData, w, h)
	if err != nil {
		return nil, fmt.Errorf("failed to render SVG to PNG: %w", err)
	}
	return out, nil
}

// DetectFormat names the format of an upload ("png", "jpeg", "svg", ...) or
// returns ErrUnsupportedImage.
func DetectFormat(data []byte) (string, error) {
	if isSVGData(data) {
		return "svg", nil
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return format, nil
}

// parseSvgExplicitSize extracts numeric width and height attributes of the <svg> start tag.
// A viewBox alone is not treated as a pixel size.
func parseSvgExplicitSize(data []byte) (int, int, bool) {
	tag := svgStartTag.Find(sniff(data, 8192))
	if tag == nil {
		return 0, 0, false
	}
	w, wOk := firstNumber(svgWidthAttr, tag)
	h, hOk := firstNumber(svgHeightAttr, tag)
	if !wOk || !hOk {
		return 0, 0, false
	}
	return w, h, true
}

func firstNumber(re *regexp.Regexp, tag []byte) (int, bool) {
	m := re.FindSubmatch(tag)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(string(m[1]))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// isSVGData performs a lightweight detection of SVG content from raw bytes
func isSVGData(data []byte) bool {
	head := bytes.ToLower(sniff(data, svgSniffLength))
	if len(head) == 0 {
		return false
	}
	return bytes.Contains(head, []byte("<svg")) || svgNamespaceRe.Match(head)
}

func sniff(data []byte, n int) []byte {
	if len(data) < n {
		n = len(data)
	}
	return bytes.TrimSpace(data[:n])
}

// renderSVGToPNG rasterises an SVG onto a white canvas of the given size
func renderSVGToPNG(svgData []byte, targetW, targetH int) ([]byte, error) {
	if targetW <= 0 || targetH <= 0 {
		return nil, fmt.Errorf("invalid target dimensions for SVG rendering: %dx%d", targetW, targetH)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}
	icon.SetTarget(0, 0, float64(targetW), float64(targetH))

	dst := createTargetCanvas(targetW, targetH, color.RGBA{255, 255, 255, 255})
	scanner := rasterx.NewScannerGV(targetW, targetH, dst, dst.Bounds())
	dasher := rasterx.NewDasher(targetW, targetH, scanner)
	icon.Draw(dasher, 1.0)

	return encodePNG(dst)
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(PngConverterCommandName, NewPngConverterCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", PngConverterCommandName, err))
	}
}
