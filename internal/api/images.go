package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"myapi/internal/images"
)

// ImageHandler serves variants written by the local backend.
type ImageHandler struct {
	backend *images.LocalBackend
	sizes   []int
}

// NewImageHandler serves only the given variant sizes.
func NewImageHandler(backend *images.LocalBackend, sizes []int) *ImageHandler {
	return &ImageHandler{backend: backend, sizes: sizes}
}

// GET {public_path}/{name}
func (h *ImageHandler) GetVariant(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	size, _, ok := images.ParseVariantName(name)
	if !ok || !slices.Contains(h.sizes, size) {
		notFound(w, "Image not found")
		return
	}

	file, err := h.backend.Open(name)
	if errors.Is(err, os.ErrNotExist) {
		notFound(w, "Image not found")
		return
	}
	if err != nil {
		slog.Error("error opening image variant", "component", "api", "name", name, "error", err)
		internalError(w)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		slog.Error("error reading image variant", "component", "api", "name", name, "error", err)
		internalError(w)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("ETag", fmt.Sprintf("\"%s\"", name))
	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"%s\"", name))

	http.ServeContent(w, r, name, info.ModTime(), file)
}
