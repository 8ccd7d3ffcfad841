package imageinfo

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
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	img, err := Decode(encodePNG(t, 640, 320))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w, h := img.Size(); w != 640 || h != 320 {
		t.Errorf("expected 640x320, got %dx%d", w, h)
	}
}

func TestDecode_Garbage(t *testing.T) {
	if _, err := Decode([]byte("not an image")); err == nil {
		t.Error("expected error for non-image data")
	}
}

func TestThumbnail(t *testing.T) {
	img, err := Decode(encodePNG(t, 1024, 512))
	if err != nil {
		t.Fatal(err)
	}
	data, err := img.Thumbnail()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	thumb, err := Decode(data)
	if err != nil {
		t.Fatalf("thumbnail not decodable: %v", err)
	}
	if w, h := thumb.Size(); w != ThumbnailSize || h != ThumbnailSize/2 {
		t.Errorf("expected %dx%d, got %dx%d", ThumbnailSize, ThumbnailSize/2, w, h)
	}
}
