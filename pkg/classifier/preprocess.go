package classifier

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/bmharper/cimg/v2"
	"github.com/nfnt/resize"
)

// Preprocess decodes an uploaded image (JPEG or PNG), resizes it to the
// model's input dimension, and flattens it into normalized float32 values in
// the layout the model expects (NCHW or NHWC, per the metadata input shape).
func Preprocess(encoded []byte, meta *Metadata) ([]float32, error) {
	img, _, err := image.Decode(bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("Failed to decode image: %w", err)
	}
	return PreprocessImage(img, meta), nil
}

// PreprocessImage resizes and flattens a decoded image. See Preprocess.
func PreprocessImage(img image.Image, meta *Metadata) []float32 {
	size := meta.ImageSize
	resized := resize.Resize(uint(size), uint(size), img, resize.Lanczos3)

	input := make([]float32, meta.InputSize())
	plane := size * size
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			writePixel(input, meta, plane, y*size+x,
				float32(r)/65535, float32(g)/65535, float32(b)/65535)
		}
	}
	return input
}

// PreprocessFile reads an image file via cimg (libjpeg-turbo underneath),
// resizes it, and flattens it. This is the fast path used by the CLI tools,
// where the file is already on disk.
func PreprocessFile(filename string, meta *Metadata) ([]float32, error) {
	img, err := cimg.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("Failed to read image %v: %w", filename, err)
	}
	size := meta.ImageSize
	if img.Width != size || img.Height != size {
		img = cimg.ResizeNew(img, size, size, nil)
	}

	nchan := img.NChan()
	if nchan < 3 {
		return nil, fmt.Errorf("Image %v has %v channels, need RGB", filename, nchan)
	}
	input := make([]float32, meta.InputSize())
	plane := size * size
	for y := 0; y < size; y++ {
		row := img.Pixels[y*img.Stride:]
		for x := 0; x < size; x++ {
			p := x * nchan
			writePixel(input, meta, plane, y*size+x,
				float32(row[p])/255, float32(row[p+1])/255, float32(row[p+2])/255)
		}
	}
	return input, nil
}

func writePixel(input []float32, meta *Metadata, plane, idx int, r, g, b float32) {
	if meta.ChannelsFirst() {
		input[idx] = r
		input[plane+idx] = g
		input[2*plane+idx] = b
	} else {
		input[idx*3] = r
		input[idx*3+1] = g
		input[idx*3+2] = b
	}
}
