package signature

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func scribble() []Stroke {
	return []Stroke{
		{{X: 20, Y: 90}, {X: 80, Y: 40}, {X: 140, Y: 120}, {X: 200, Y: 60}},
		{{X: 300, Y: 100}},
	}
}

func TestEncodeRejectsEmpty(t *testing.T) {
	for name, strokes := range map[string][]Stroke{
		"nil":           nil,
		"empty strokes": {{}, {}},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Encode(strokes, Options{}); !errors.Is(err, ErrEmpty) {
				t.Fatalf("expected ErrEmpty, got %v", err)
			}
		})
	}
}

func TestEncodeProducesInkedPNG(t *testing.T) {
	b, err := Encode(scribble(), Options{PenWidth: 8})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := Validate(b); err != nil {
		t.Fatalf("validate: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := img.Bounds(); got != image.Rect(0, 0, 600, 180) {
		t.Fatalf("unexpected bounds %v", got)
	}
	// On the first segment's start sample and on the lone dot.
	for _, p := range []image.Point{{20, 90}, {300, 100}} {
		if !dark(img.At(p.X, p.Y)) {
			t.Fatalf("expected ink at %v", p)
		}
	}
	if dark(img.At(590, 10)) {
		t.Fatalf("expected background far from strokes")
	}
}

func TestEncodeClampsOutOfCanvasPoints(t *testing.T) {
	b, err := Encode([]Stroke{{{X: -50, Y: -50}, {X: 900, Y: 400}}}, Options{Width: 100, Height: 50})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := Validate(b); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	good, err := Encode(scribble(), Options{Width: 64, Height: 32})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var blankBuf bytes.Buffer
	if err := png.Encode(&blankBuf, image.NewGray(image.Rect(0, 0, 10, 10))); err != nil {
		t.Fatalf("encode blank: %v", err)
	}

	cases := []struct {
		name string
		in   []byte
		want error
	}{
		{name: "valid", in: good, want: nil},
		{name: "empty", in: nil, want: ErrEmpty},
		{name: "not png", in: []byte("GIF89a...."), want: ErrInvalid},
		{name: "truncated", in: good[:len(good)/2], want: ErrInvalid},
		{name: "blank canvas", in: blankBuf.Bytes(), want: ErrEmpty},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.in)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestDataURLRoundTrip(t *testing.T) {
	b, err := Encode(scribble(), Options{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeDataURL(EncodeDataURL(b))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(got, b) {
		t.Fatalf("payload changed")
	}

	if _, err := DecodeDataURL("data:image/jpeg;base64,AAAA"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for jpeg, got %v", err)
	}
	if _, err := DecodeDataURL("data:image/png;base64,%%%"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for bad base64, got %v", err)
	}
	if _, err := DecodeDataURL("  "); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func dark(c color.Color) bool {
	g := color.GrayModel.Convert(c).(color.Gray)
	return g.Y < 128
}
