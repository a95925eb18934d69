// Package media holds the uploaded file handed to the transcription stage and
// enforces the upload limits before any vendor call is made.
package media

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"

	"zanzara-go/internal/types"
)

// MaxBytes is the transcription API upload limit (25 MB).
const MaxBytes int64 = 25 * 1024 * 1024

var (
	ErrPayloadTooLarge   = errors.New("payload too large")
	ErrUnsupportedFormat = errors.New("unsupported media format")
)

// SupportedFormats lists the extensions the transcription API accepts.
var SupportedFormats = []string{"flac", "mp3", "mp4", "mpeg", "mpga", "m4a", "ogg", "wav", "webm"}

// TooLargeError carries the sizes so callers can show them.
type TooLargeError struct {
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("file is %.2f MB, over the %d MB transcription limit; shorten it or upload an excerpt",
		float64(e.Size)/(1024*1024), e.Limit/(1024*1024))
}

func (e *TooLargeError) Is(target error) bool { return target == ErrPayloadTooLarge }

// Blob is the uploaded file. It lives for one invocation only.
type Blob struct {
	Name     string
	MIMEType string
	Size     int64
	Data     []byte
}

// New wraps raw bytes. The MIME type is sniffed when the declared one is
// missing or generic. A name without extension gets the one matching the MIME
// type, since the transcription API infers the format from the file name.
func New(name, mimeType string, data []byte) Blob {
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mimetype.Detect(data).String()
	}
	if extension(name) == "" {
		if m := mimetype.Lookup(baseMIME(mimeType)); m != nil {
			name += m.Extension()
		}
	}
	return Blob{
		Name:     name,
		MIMEType: mimeType,
		Size:     int64(len(data)),
		Data:     data,
	}
}

func (b Blob) Details() types.FileDetails {
	return types.FileDetails{
		Name:      b.Name,
		SizeBytes: b.Size,
		Size:      humanize.IBytes(uint64(b.Size)),
		MIMEType:  b.MIMEType,
	}
}

// CheckSize fails when size exceeds limit. A non-positive limit means MaxBytes.
func CheckSize(size, limit int64) error {
	if limit <= 0 {
		limit = MaxBytes
	}
	if size > limit {
		return &TooLargeError{Size: size, Limit: limit}
	}
	return nil
}

func baseMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

func extension(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

func IsSupported(name string) bool {
	ext := extension(name)
	for _, f := range SupportedFormats {
		if f == ext {
			return true
		}
	}
	return false
}

// CheckFormat accepts a supported extension, or a name without extension
// whose MIME type is audio or video.
func CheckFormat(name, mimeType string) error {
	if IsSupported(name) {
		return nil
	}
	if extension(name) == "" && (strings.HasPrefix(mimeType, "audio/") || strings.HasPrefix(mimeType, "video/")) {
		return nil
	}
	return fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat, name, strings.Join(SupportedFormats, ", "))
}

// Open reads a local file, checking size and format before reading it.
func Open(path string, limit int64) (Blob, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Blob{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if err := CheckSize(info.Size(), limit); err != nil {
		return Blob{}, err
	}
	if err := CheckFormat(info.Name(), ""); err != nil {
		return Blob{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Blob{}, fmt.Errorf("read %s: %w", path, err)
	}
	return New(info.Name(), "", data), nil
}

// FromMultipart reads an uploaded form file. The declared size is checked
// before the body is touched.
func FromMultipart(fh *multipart.FileHeader, limit int64) (Blob, error) {
	if err := CheckSize(fh.Size, limit); err != nil {
		return Blob{}, err
	}
	if err := CheckFormat(fh.Filename, fh.Header.Get("Content-Type")); err != nil {
		return Blob{}, err
	}
	f, err := fh.Open()
	if err != nil {
		return Blob{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := readLimited(f, limit)
	if err != nil {
		return Blob{}, err
	}
	return New(fh.Filename, fh.Header.Get("Content-Type"), data), nil
}

// readLimited reads at most limit bytes and reports an oversize body as
// TooLargeError.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = MaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read media: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, &TooLargeError{Size: int64(len(data)), Limit: limit}
	}
	return data, nil
}
