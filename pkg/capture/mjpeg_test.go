package capture

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/camtk/stereocam/pkg/frame"
)

func testJPEG(t *testing.T, level uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 6))
	for i := range img.Pix {
		img.Pix[i] = level
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestMJPEGSourceReadsStream(t *testing.T) {
	first := testJPEG(t, 40)
	second := testJPEG(t, 200)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mw := multipart.NewWriter(w)
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mw.Boundary())
		w.WriteHeader(http.StatusOK)
		for _, data := range [][]byte{first, second} {
			part, err := mw.CreatePart(textproto.MIMEHeader{
				"Content-Type": {"image/jpeg"},
			})
			if err != nil {
				return
			}
			part.Write(data)
		}
		mw.Close()
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.Device = srv.URL
	src := NewMJPEGSource(cfg)
	if err := src.Open(); err != nil {
		t.Fatalf("Open() = %v", err)
	}
	defer src.Close()

	f, err := src.Read()
	if err != nil {
		t.Fatalf("Read() = %v", err)
	}
	if f.Format != frame.FormatJPEG {
		t.Errorf("Format = %v, want %v", f.Format, frame.FormatJPEG)
	}
	if f.Seq != 1 {
		t.Errorf("Seq = %d, want 1", f.Seq)
	}
	if !bytes.Equal(f.Data, first) {
		t.Error("first frame bytes differ from served part")
	}

	f, err = src.Read()
	if err != nil {
		t.Fatalf("second Read() = %v", err)
	}
	if f.Seq != 2 || !bytes.Equal(f.Data, second) {
		t.Errorf("second frame Seq = %d, bytes match = %v", f.Seq, bytes.Equal(f.Data, second))
	}

	if _, err = src.Read(); !errors.Is(err, ErrClosed) {
		t.Errorf("Read() after stream end = %v, want ErrClosed", err)
	}
}

func TestMJPEGSourceRejectsNonStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>not a camera</html>"))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.Device = srv.URL
	if err := NewMJPEGSource(cfg).Open(); err == nil {
		t.Error("Open() = nil for non-multipart response")
	}
}

func TestMJPEGSourceBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.Device = srv.URL
	err := NewMJPEGSource(cfg).Open()
	var openErr *OpenError
	if !errors.As(err, &openErr) {
		t.Errorf("Open() = %v, want *OpenError", err)
	}
}

func TestMJPEGSourceReadBeforeOpen(t *testing.T) {
	src := NewMJPEGSource(DefaultConfig())
	if _, err := src.Read(); !errors.Is(err, ErrNotOpened) {
		t.Errorf("Read() = %v, want ErrNotOpened", err)
	}
}
