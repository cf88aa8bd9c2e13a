package imagemeta

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestRead_PNG(t *testing.T) {
	size, format, err := Read(bytes.NewReader(encodePNG(t, 800, 600)))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if format != "png" {
		t.Errorf("expected png, got %q", format)
	}
	if size != (Size{Width: 800, Height: 600}) {
		t.Errorf("expected 800x600, got %+v", size)
	}
}

func TestSizeOrFallback(t *testing.T) {
	size, ok := SizeOrFallback(encodePNG(t, 40, 20))
	if !ok || size.Width != 40 || size.Height != 20 {
		t.Errorf("expected 40x20, got %+v ok=%v", size, ok)
	}

	size, ok = SizeOrFallback([]byte("not an image"))
	if ok {
		t.Error("expected ok=false for garbage input")
	}
	if size != Fallback || size.Width != 300 || size.Height != 200 {
		t.Errorf("expected 300x200 fallback, got %+v", size)
	}
}
