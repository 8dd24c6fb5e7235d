package handlers

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

const (
	maxUploadSize = 16 << 20
	maxPhotoWidth = 1280
	maxPhotoSide  = 10000
)

// UploadPhoto serves POST /api/upload_photo: it takes a PNG or JPEG in
// the "photo" field, shrinks it to maxPhotoWidth and stores it as JPEG.
func (h *OrderHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1<<20)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "File too large. Max 16MB."})
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Photo file is required."})
		return
	}
	defer file.Close()
	if header.Size > maxUploadSize {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "File too large. Max 16MB."})
		return
	}

	var (
		decodeConfig func(io.Reader) (image.Config, error)
		decode       func(io.Reader) (image.Image, error)
	)
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".png":
		decodeConfig, decode = png.DecodeConfig, png.Decode
	case ".jpg", ".jpeg":
		decodeConfig, decode = jpeg.DecodeConfig, jpeg.Decode
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Unsupported image format. Only PNG, JPG, JPEG are allowed."})
		return
	}

	// Check the declared size before decoding allocates the pixels.
	cfg, err := decodeConfig(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Failed to decode image."})
		return
	}
	if cfg.Width > maxPhotoSide || cfg.Height > maxPhotoSide {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("Image too large. Max %dx%d pixels.", maxPhotoSide, maxPhotoSide)})
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		slog.Error("Failed to rewind upload", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Error reading image file."})
		return
	}
	img, err := decode(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Failed to decode image."})
		return
	}

	if img.Bounds().Dx() > maxPhotoWidth {
		img = resize.Resize(maxPhotoWidth, 0, img, resize.Lanczos3)
	}

	name, err := h.savePhoto(img)
	if err != nil {
		slog.Error("Failed to save photo", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Error saving image file."})
		return
	}
	slog.Info("Photo uploaded", "file", name, "original", header.Filename)
	writeOK(w, map[string]any{"photo_url": "/static/uploads/" + name})
}

func (h *OrderHandler) savePhoto(img image.Image) (string, error) {
	if err := os.MkdirAll(h.UploadDir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s.jpg", uuid.New().String())
	out, err := os.Create(filepath.Join(h.UploadDir, name))
	if err != nil {
		return "", err
	}
	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: 80}); err != nil {
		out.Close()
		return "", errors.Join(err, os.Remove(out.Name()))
	}
	return name, out.Close()
}
