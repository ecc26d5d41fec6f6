package filestore

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/h2non/filetype"
)

// MaxImageSize bounds decoded image payloads.
const MaxImageSize = 5 << 20

var (
	ErrInvalidImage = errors.New("invalid image")
	ErrNotFound     = errors.New("file not found")

	hashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

// ImageStore turns base64 data URLs into content addressed files served
// under BaseURL/uploads/<hash>.
type ImageStore struct {
	files   FileStore
	baseURL string
}

func NewImageStore(files FileStore, baseURL string) *ImageStore {
	return &ImageStore{files: files, baseURL: strings.TrimRight(baseURL, "/")}
}

// SaveDataURL accepts "data:image/...;base64,<payload>" or a bare base64
// payload and returns the public URL of the stored image.
func (s *ImageStore) SaveDataURL(data string) (string, error) {
	payload := data
	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, ",")
		if idx < 0 || !strings.HasSuffix(payload[:idx], ";base64") {
			return "", fmt.Errorf("%w: malformed data url", ErrInvalidImage)
		}
		payload = payload[idx+1:]
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageSize {
		return "", fmt.Errorf("%w: larger than %d bytes", ErrInvalidImage, MaxImageSize)
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if !filetype.IsImage(raw) {
		return "", fmt.Errorf("%w: unsupported content", ErrInvalidImage)
	}

	sum := sha256.Sum256(raw)
	hash := hex.EncodeToString(sum[:])
	if err := s.files.Save(bytes.NewReader(raw), hash); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return s.baseURL + "/uploads/" + hash, nil
}

// Open returns the stored image and its MIME type.
func (s *ImageStore) Open(hash string) (io.ReadCloser, string, error) {
	if !hashPattern.MatchString(hash) {
		return nil, "", ErrNotFound
	}
	rc, err := s.files.Get(hash)
	if err != nil {
		return nil, "", err
	}

	head := make([]byte, 261)
	n, _ := io.ReadFull(rc, head)
	_ = rc.Close()

	kind, err := filetype.Match(head[:n])
	if err != nil || kind == filetype.Unknown {
		return nil, "", ErrNotFound
	}

	rc, err = s.files.Get(hash)
	if err != nil {
		return nil, "", err
	}
	return rc, kind.MIME.Value, nil
}
