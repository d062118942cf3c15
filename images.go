package blog

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/meettilavat/blog-project/richtext"
)

const (
	maxUploadWidth = 1600
	jpegQuality    = 80
	maxUploadSize  = 10 << 20 // 10MB
	uploadsSubdir  = "uploads"

	// Bounds of the optimizer's w parameter.
	minOptimizeWidth = 16
	maxOptimizeWidth = 2400
	// maxRemoteImage caps how much of a remote image the optimizer reads.
	maxRemoteImage = 20 << 20
)

// scaleToWidth shrinks img to width, keeping the aspect ratio. Images that
// are already narrow enough are returned unchanged.
func scaleToWidth(img image.Image, width int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= width || w == 0 {
		return img
	}
	newH := max(1, h*width/w)
	dst := image.NewRGBA(image.Rect(0, 0, width, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// processImage decodes an uploaded image, shrinks it to maxUploadWidth, and
// re-encodes it as JPEG. Returns metadata and the encoded bytes.
func processImage(src io.Reader, originalName string) (Image, []byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return Image{}, nil, fmt.Errorf("decode image: %w", err)
	}
	img = scaleToWidth(img, maxUploadWidth)
	data, err := encodeJPEG(img)
	if err != nil {
		return Image{}, nil, err
	}

	name := richtext.Slugify(strings.TrimSuffix(originalName, filepath.Ext(originalName)))
	if name == "" {
		name = "image"
	}
	return Image{
		Filename:     name + ".jpg",
		OriginalName: originalName,
		Width:        img.Bounds().Dx(),
		Height:       img.Bounds().Dy(),
		Size:         len(data),
		UploadedAt:   time.Now().UTC().Format(time.RFC3339),
	}, data, nil
}

// uniqueFilename appends a counter until the name is free both on disk and
// in the images table.
func (a *App) uniqueFilename(filename string) (string, error) {
	dir := filepath.Join(a.staticDir, uploadsSubdir)
	base := strings.TrimSuffix(filename, ".jpg")
	candidate := filename
	for counter := 2; ; counter++ {
		_, statErr := os.Stat(filepath.Join(dir, candidate))
		exists, err := a.Store.ImageExists(candidate)
		if err != nil {
			return "", err
		}
		if statErr != nil && !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d.jpg", base, counter)
	}
}

func (a *App) handleImageUpload(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return c.String(http.StatusBadRequest, "No image file provided")
	}
	if file.Size > maxUploadSize {
		return c.String(http.StatusBadRequest, "File too large (max 10MB)")
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	img, data, err := processImage(io.LimitReader(src, maxUploadSize), file.Filename)
	if err != nil {
		return c.String(http.StatusBadRequest, "Invalid image: "+err.Error())
	}
	if img.Filename, err = a.uniqueFilename(img.Filename); err != nil {
		return err
	}

	dir := filepath.Join(a.staticDir, uploadsSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("blog: create uploads dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, img.Filename), data, 0o644); err != nil {
		return fmt.Errorf("blog: write image: %w", err)
	}
	if err := a.Store.SaveImage(img); err != nil {
		return err
	}
	c.Logger().Infof("uploaded %s (%dx%d, %d bytes)", img.Filename, img.Width, img.Height, img.Size)

	return a.renderImageList(c)
}

func (a *App) handleImageDelete(c echo.Context) error {
	filename := filepath.Base(c.Param("filename"))
	if filename == "" || filename == "." || filename == "/" {
		return c.String(http.StatusBadRequest, "Filename required")
	}

	// A file that is already gone is not an error.
	_ = os.Remove(filepath.Join(a.staticDir, uploadsSubdir, filename))

	if err := a.Store.DeleteImage(filename); err != nil {
		return err
	}
	return a.renderImageList(c)
}

func (a *App) handleImageList(c echo.Context) error {
	return a.renderImageList(c)
}

func (a *App) renderImageList(c echo.Context) error {
	images, err := a.Store.ListImages()
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminImages(images, CsrfToken(c)))
}

// handleImageOptimize serves /_img/?url=...&w=... Only allow-listed hosts
// are fetched; the image is scaled down to w and re-encoded as JPEG.
func (a *App) handleImageOptimize(c echo.Context) error {
	src := c.QueryParam("url")
	if !a.Hosts.IsAllowed(src) {
		return echo.NewHTTPError(http.StatusBadRequest, "image host not allowed")
	}
	width, err := strconv.Atoi(c.QueryParam("w"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid width")
	}
	width = min(max(width, minOptimizeWidth), maxOptimizeWidth)

	req, err := http.NewRequestWithContext(c.Request().Context(), http.MethodGet, src, nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid image url")
	}
	req.Header.Set("Accept", "image/*")
	resp, err := a.imageClient.Do(req)
	if err != nil {
		c.Logger().Warnf("optimize %s: %v", src, err)
		return echo.NewHTTPError(http.StatusBadGateway, "image fetch failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return echo.NewHTTPError(http.StatusBadGateway, fmt.Sprintf("image fetch returned %d", resp.StatusCode))
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxRemoteImage))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, "unsupported image")
	}
	data, err := encodeJPEG(scaleToWidth(img, width))
	if err != nil {
		return err
	}
	c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	return c.Blob(http.StatusOK, "image/jpeg", data)
}
