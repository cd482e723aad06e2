package frame

import (
	"bytes"
	"image"
	"image/color"
	stddraw "image/draw"
	"image/jpeg"

	"gocv.io/x/gocv"
	"golang.org/x/image/draw"
)

// FromMat converts a Mat to a frame. Single-channel mats become
// grayscale frames, everything else RGBA. The Mat is not retained and
// stays owned by the caller.
func FromMat(m gocv.Mat, seq uint64) (Frame, error) {
	if m.Empty() {
		return Frame{}, ErrEmptyMat
	}
	img, err := m.ToImage()
	if err != nil {
		return Frame{}, err
	}
	if gray, ok := img.(*image.Gray); ok {
		return NewGray(gray.Pix, m.Cols(), m.Rows(), seq), nil
	}
	return NewRGBA(rgbaOf(img).Pix, m.Cols(), m.Rows(), seq), nil
}

// ToImage converts the frame to an image for display.
func (f Frame) ToImage() (image.Image, error) {
	if f.Empty() {
		return nil, ErrEmptyFrame
	}
	switch f.Format {
	case FormatGray:
		if len(f.Data) != f.Width*f.Height {
			return nil, ErrBadLength
		}
		return &image.Gray{
			Pix:    f.Data,
			Stride: f.Width,
			Rect:   image.Rect(0, 0, f.Width, f.Height),
		}, nil
	case FormatRGBA:
		if len(f.Data) != f.Width*f.Height*4 {
			return nil, ErrBadLength
		}
		return &image.RGBA{
			Pix:    f.Data,
			Stride: f.Width * 4,
			Rect:   image.Rect(0, 0, f.Width, f.Height),
		}, nil
	case FormatJPEG:
		return jpeg.Decode(bytes.NewReader(f.Data))
	}
	return nil, ErrEmptyFrame
}

// ToBGRMat converts the frame to a 3-channel BGR Mat suitable for
// drawing. The caller owns the returned Mat and must Close it.
func (f Frame) ToBGRMat() (gocv.Mat, error) {
	if f.Empty() {
		return gocv.NewMat(), ErrEmptyFrame
	}
	switch f.Format {
	case FormatGray:
		src, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC1, f.Data)
		if err != nil {
			return gocv.NewMat(), err
		}
		defer src.Close()
		dst := gocv.NewMat()
		gocv.CvtColor(src, &dst, gocv.ColorGrayToBGR)
		return dst, nil
	case FormatRGBA:
		src, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC4, f.Data)
		if err != nil {
			return gocv.NewMat(), err
		}
		defer src.Close()
		dst := gocv.NewMat()
		gocv.CvtColor(src, &dst, gocv.ColorRGBAToBGR)
		return dst, nil
	case FormatJPEG:
		return gocv.IMDecode(f.Data, gocv.IMReadColor)
	}
	return gocv.NewMat(), ErrEmptyFrame
}

// ToGrayMat converts the frame to a single-channel Mat for detection.
// The caller owns the returned Mat and must Close it.
func (f Frame) ToGrayMat() (gocv.Mat, error) {
	if f.Empty() {
		return gocv.NewMat(), ErrEmptyFrame
	}
	switch f.Format {
	case FormatGray:
		return gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC1, f.Data)
	case FormatRGBA:
		src, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC4, f.Data)
		if err != nil {
			return gocv.NewMat(), err
		}
		defer src.Close()
		dst := gocv.NewMat()
		gocv.CvtColor(src, &dst, gocv.ColorRGBAToGray)
		return dst, nil
	case FormatJPEG:
		return gocv.IMDecode(f.Data, gocv.IMReadGrayScale)
	}
	return gocv.NewMat(), ErrEmptyFrame
}

// EncodeJPEG returns the frame as JPEG bytes. JPEG frames are returned
// as-is; raw frames are compressed at the given quality (1-100).
func (f Frame) EncodeJPEG(quality int) ([]byte, error) {
	if f.Empty() {
		return nil, ErrEmptyFrame
	}
	if f.Format == FormatJPEG {
		return f.Data, nil
	}
	img, err := f.ToImage()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// YUYVToGray extracts the luma plane from packed YUYV 4:2:2 bytes.
func YUYVToGray(data []byte, width, height int) []byte {
	out := make([]byte, width*height)
	n := len(data) / 2
	if n > len(out) {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		out[i] = data[i*2]
	}
	return out
}

// YUYVToRGBA converts packed YUYV 4:2:2 bytes to RGBA pixels.
func YUYVToRGBA(data []byte, width, height int) []byte {
	out := make([]byte, width*height*4)
	// Each 4-byte group Y0 Cb Y1 Cr carries two pixels.
	for i, p := 0, 0; i+3 < len(data) && p+7 < len(out); i, p = i+4, p+8 {
		y0, cb, y1, cr := data[i], data[i+1], data[i+2], data[i+3]
		r, g, b := color.YCbCrToRGB(y0, cb, cr)
		out[p+0], out[p+1], out[p+2], out[p+3] = r, g, b, 0xff
		r, g, b = color.YCbCrToRGB(y1, cb, cr)
		out[p+4], out[p+5], out[p+6], out[p+7] = r, g, b, 0xff
	}
	return out
}

// Scale resizes an image with bilinear filtering.
func Scale(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

func rgbaOf(img image.Image) *image.RGBA {
	if r, ok := img.(*image.RGBA); ok {
		return r
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	stddraw.Draw(dst, dst.Bounds(), img, b.Min, stddraw.Src)
	return dst
}
