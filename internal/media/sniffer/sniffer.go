package sniffer

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"path/filepath"
	"strings"
)

type MediaType string

const (
	TypeJPEG MediaType = "jpeg"
	TypePNG  MediaType = "png"
	TypeGIF  MediaType = "gif"
	TypeWEBP MediaType = "webp"
	TypeHEIC MediaType = "heic"
	TypeMP4  MediaType = "mp4"
	TypeMOV  MediaType = "mov"
	TypePDF  MediaType = "pdf"
)

type Kind string

const (
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
)

var ErrUnknownType = errors.New("unknown media type")

type Result struct {
	Type MediaType
	Kind Kind
	MIME string
}

// HeadSize is how many leading bytes detection looks at.
const HeadSize = 512

// Detect reads up to HeadSize bytes from r and classifies them. The bytes
// consumed are returned so the caller can stitch the stream back together.
func Detect(r io.Reader) (Result, []byte, error) {
	head := make([]byte, HeadSize)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Result{}, nil, err
	}
	head = head[:n]

	result, err := DetectHead(head)
	return result, head, err
}

func DetectHead(head []byte) (Result, error) {
	if len(head) == 0 {
		return Result{}, ErrUnknownType
	}

	switch {
	case isJPEG(head):
		return Result{Type: TypeJPEG, Kind: KindImage, MIME: "image/jpeg"}, nil
	case isPNG(head):
		return Result{Type: TypePNG, Kind: KindImage, MIME: "image/png"}, nil
	case isGIF(head):
		return Result{Type: TypeGIF, Kind: KindImage, MIME: "image/gif"}, nil
	case isWEBP(head):
		return Result{Type: TypeWEBP, Kind: KindImage, MIME: "image/webp"}, nil
	case isPDF(head):
		return Result{Type: TypePDF, Kind: KindDocument, MIME: "application/pdf"}, nil
	}

	switch ftypBrand(head) {
	case "heic", "heix", "mif1", "msf1":
		return Result{Type: TypeHEIC, Kind: KindImage, MIME: "image/heic"}, nil
	case "qt  ":
		return Result{Type: TypeMOV, Kind: KindVideo, MIME: "video/quicktime"}, nil
	case "isom", "iso2", "mp41", "mp42", "avc1", "M4V ", "3gp4", "3gp5":
		return Result{Type: TypeMP4, Kind: KindVideo, MIME: "video/mp4"}, nil
	}

	return Result{}, ErrUnknownType
}

// FromFileName guesses a MIME type from the extension, "" if unknown.
func FromFileName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	mt := mime.TypeByExtension(ext)
	if idx := strings.Index(mt, ";"); idx >= 0 {
		mt = mt[:idx]
	}
	return strings.TrimSpace(mt)
}

func isJPEG(head []byte) bool {
	return len(head) > 3 &&
		head[0] == 0xff &&
		head[1] == 0xd8 &&
		head[2] == 0xff
}

func isPNG(head []byte) bool {
	pngMagic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return len(head) >= len(pngMagic) && bytes.Equal(head[:len(pngMagic)], pngMagic)
}

func isGIF(head []byte) bool {
	return len(head) >= 6 && (bytes.Equal(head[:6], []byte("GIF87a")) || bytes.Equal(head[:6], []byte("GIF89a")))
}

func isWEBP(head []byte) bool {
	return len(head) >= 12 &&
		bytes.Equal(head[:4], []byte("RIFF")) &&
		bytes.Equal(head[8:12], []byte("WEBP"))
}

func isPDF(head []byte) bool {
	return bytes.HasPrefix(head, []byte("%PDF-"))
}

// ftypBrand returns the major brand of an ISO base media file, "" otherwise.
func ftypBrand(head []byte) string {
	if len(head) < 12 || string(head[4:8]) != "ftyp" {
		return ""
	}
	return string(head[8:12])
}
